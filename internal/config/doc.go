// Package config handles configuration loading, parsing, and validation
// from environment variables. It provides type-safe access to the settings
// the provisioning service needs while keeping configuration details
// separate from business logic.
package config
