// Package config provides centralized configuration management. Process
// settings load from environment variables with defaults and fail fast on
// misconfiguration; pipeline behavior (vocabularies, feature codes,
// validation bounds) loads from a YAML file so data stewards can change it
// without a rebuild.
package config

import (
	"fmt"
	"time"
)

// Config holds all process-level configuration.
// All settings can be configured via environment variables.
type Config struct {
	Source   SourceConfig
	Output   OutputConfig
	Database DatabaseConfig
	Server   ServerConfig
	Logging  LoggingConfig
}

// SourceConfig locates the raw exports.
type SourceConfig struct {
	// Dir is the root of the raw export tree: <dir>/csv/*.csv and
	// <dir>/fhir/*.json (default: data/raw)
	Dir string `env:"SOURCE_DIR" default:"data/raw"`

	// PipelineFile is the YAML pipeline configuration (default: pipeline.yaml)
	PipelineFile string `env:"PIPELINE_CONFIG" default:"pipeline.yaml"`
}

// OutputConfig controls where produced tables land.
type OutputConfig struct {
	// Dir receives the CSV and parquet outputs (default: data/processed)
	Dir string `env:"OUT_DIR" default:"data/processed"`

	// Parquet enables parquet serialization alongside CSV (default: true)
	Parquet bool `env:"OUT_PARQUET" default:"true"`
}

// DatabaseConfig holds optional warehouse connection settings.
// When URL is empty the warehouse load is skipped.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`
}

// ServerConfig holds report server settings.
type ServerConfig struct {
	// Enabled keeps the process alive serving the run report (default: false)
	Enabled bool `env:"SERVER_ENABLED" default:"false"`

	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading a request (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// ShutdownTimeout bounds graceful shutdown (default: 10s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks cross-field constraints not expressible as tags.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("db max conns must be at least 1, got %d", c.Database.MaxConns)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	return nil
}
