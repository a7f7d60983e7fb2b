package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/mailfoundry/mailfoundry/internal/config"
	"github.com/mailfoundry/mailfoundry/internal/notify"
	"github.com/mailfoundry/mailfoundry/internal/platform/membership"
	"github.com/mailfoundry/mailfoundry/internal/platform/postgres"
	"github.com/mailfoundry/mailfoundry/internal/platform/sandbox"
	"github.com/mailfoundry/mailfoundry/internal/platform/tracing"
	"github.com/mailfoundry/mailfoundry/internal/service"
)

// membershipCacheTTL bounds how stale a cached membership answer may be.
const membershipCacheTTL = 5 * time.Minute

// application holds the wired components and owns their lifecycles.
type application struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *sql.DB
	tracing *tracing.Provider

	Provisioning service.ProvisioningService
}

// newApplication wires configuration into a ready-to-serve application:
// database, migrations, stores, provider adapters, and the provisioning
// service itself.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	db, err := setupDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := postgres.MigrateUp(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	tracingProvider, err := tracing.NewProvider(tracing.Config{
		Enabled:  cfg.Tracing.Enabled,
		Exporter: cfg.Tracing.Exporter,
		FilePath: cfg.Tracing.FilePath,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}

	domainStore := postgres.NewPostgresDomainStore(db, logger)
	mailboxStore := postgres.NewPostgresMailboxStore(db, logger)
	runStore := postgres.NewPostgresRunStore(db, logger)
	orgStore := postgres.NewPostgresOrganizationStore(db, logger)
	usageStore := postgres.NewPostgresUsageEventStore(db, logger)

	members := membership.NewCachedChecker(orgStore, membershipCacheTTL, 2*membershipCacheTTL, logger)

	providers, err := buildProviders(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	provisioning, err := service.NewProvisioningService(
		db,
		domainStore,
		mailboxStore,
		runStore,
		orgStore,
		members,
		providers,
		usageStore,
		notify.NewLogNotifier(logger),
		tracingProvider.Tracer(),
		logger,
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to build provisioning service: %w", err)
	}

	return &application{
		cfg:          cfg,
		logger:       logger,
		db:           db,
		tracing:      tracingProvider,
		Provisioning: provisioning,
	}, nil
}

// buildProviders selects the provider adapter set for the configured mode.
func buildProviders(cfg *config.Config) (service.Providers, error) {
	switch cfg.Providers.Mode {
	case "sandbox":
		return service.Providers{
			Registrar:       sandbox.NewRegistrar(),
			DNS:             sandbox.NewDNS(),
			MailboxHost:     sandbox.NewMailboxHost(),
			SendingPlatform: sandbox.NewSendingPlatform(),
		}, nil
	case "live":
		// TODO: wire the vendor-backed adapters once the registrar and DNS
		// client packages land.
		return service.Providers{}, fmt.Errorf("live provider mode is not available yet")
	default:
		return service.Providers{}, fmt.Errorf("unknown provider mode %q", cfg.Providers.Mode)
	}
}

// Run blocks until the context is canceled, then shuts down within the
// configured timeout.
func (a *application) Run(ctx context.Context) error {
	a.logger.Info("provisioning service ready",
		"provider_mode", a.cfg.Providers.Mode,
		"tracing_enabled", a.cfg.Tracing.Enabled)

	<-ctx.Done()

	a.logger.Info("shutdown signal received")

	timeout := time.Duration(a.cfg.Server.ShutdownTimeoutSeconds) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := a.tracing.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("tracing shutdown failed", "error", err)
	}

	return nil
}

// Close releases the application's resources.
func (a *application) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close database", "error", err)
		}
	}
}
