package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Providers ProvidersConfig `mapstructure:"providers" validate:"required"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

// ServerConfig contains process-level settings.
type ServerConfig struct {
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`

	// ShutdownTimeoutSeconds bounds how long in-flight runs get to finish
	// on shutdown before their contexts are canceled.
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds" validate:"gte=0,lte=600"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// ProvidersConfig selects and configures the provider adapters.
type ProvidersConfig struct {
	// Mode chooses the adapter set. "sandbox" wires the in-process
	// providers; "live" requires vendor credentials below.
	Mode string `mapstructure:"mode" validate:"required,oneof=sandbox live"`

	RegistrarAPIKey   string `mapstructure:"registrar_api_key" validate:"required_if=Mode live"`
	DNSAPIToken       string `mapstructure:"dns_api_token" validate:"required_if=Mode live"`
	MailboxHostAPIKey string `mapstructure:"mailbox_host_api_key" validate:"required_if=Mode live"`
}

// TracingConfig controls span export.
type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Exporter string `mapstructure:"exporter" validate:"omitempty,oneof=stdout file"`
	FilePath string `mapstructure:"file_path" validate:"required_if=Exporter file"`
}
