// Package main implements the entry point for the mailfoundry provisioning
// service, which orchestrates domain and mailbox creation across the
// registrar, DNS, mailbox host, and sending platform providers.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mailfoundry/mailfoundry/internal/config"
	"github.com/mailfoundry/mailfoundry/internal/platform/logger"
)

func main() {
	migrateOnly := flag.Bool("migrate-only", false, "apply database migrations and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.Setup(cfg.Server.LogLevel)
	if err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if *migrateOnly {
		appLogger.Info("migrations applied, exiting")
		return
	}

	if err := app.Run(ctx); err != nil {
		appLogger.Error("application exited with error", "error", err)
		os.Exit(1)
	}
}
