// Package config loads the immutable process configuration. Values come from
// the environment first (the deployment contract: DATABASE_URL, ISSUER_ID,
// ISSUER_SECRET, PORT) with an optional YAML overlay for local development.
// The loaded struct is constructed once at startup and passed explicitly to
// the components that need it; nothing reads ambient globals afterwards.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Issuer    IssuerConfig    `yaml:"issuer"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// DatabaseConfig contains the license store connection settings.
type DatabaseConfig struct {
	URL             string        `yaml:"url" envconfig:"DATABASE_URL"`
	MaxConns        int32         `yaml:"max_conns" envconfig:"DATABASE_MAX_CONNS" default:"8"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout" envconfig:"DATABASE_CONNECT_TIMEOUT" default:"10s"`
	QueryTimeout    time.Duration `yaml:"query_timeout" envconfig:"DATABASE_QUERY_TIMEOUT" default:"5s"`
	BootstrapSchema bool          `yaml:"bootstrap_schema" envconfig:"DATABASE_BOOTSTRAP_SCHEMA" default:"true"`
}

// IssuerConfig is the static credential pair the calling client
// authenticates with.
type IssuerConfig struct {
	ID     string `yaml:"id" envconfig:"ISSUER_ID"`
	Secret string `yaml:"secret" envconfig:"ISSUER_SECRET"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"SERVER_REQUEST_TIMEOUT" default:"10s"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL" default:"info"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT" default:"json"`
}

// RateLimitConfig contains rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"RATE_LIMIT_BURST" default:"50"`
}

// ConfigFileEnv names the optional YAML overlay file.
const ConfigFileEnv = "ISSUERD_CONFIG"

// Load loads configuration from environment variables and, when
// ISSUERD_CONFIG points at a file, a YAML overlay for values the environment
// left unset. Precedence per field: explicit env var, then file, then the
// envconfig default.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if path := os.Getenv(ConfigFileEnv); path != "" {
		overlay, err := loadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		applyOverlay(&cfg, overlay)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// fileOverlay mirrors Config with pointer fields so a value absent from the
// file is distinguishable from an explicit zero (bootstrap_schema: false,
// enabled: false).
type fileOverlay struct {
	Database struct {
		URL             *string        `yaml:"url"`
		MaxConns        *int32         `yaml:"max_conns"`
		ConnectTimeout  *time.Duration `yaml:"connect_timeout"`
		QueryTimeout    *time.Duration `yaml:"query_timeout"`
		BootstrapSchema *bool          `yaml:"bootstrap_schema"`
	} `yaml:"database"`
	Issuer struct {
		ID     *string `yaml:"id"`
		Secret *string `yaml:"secret"`
	} `yaml:"issuer"`
	Server struct {
		Port            *int           `yaml:"port"`
		ReadTimeout     *time.Duration `yaml:"read_timeout"`
		WriteTimeout    *time.Duration `yaml:"write_timeout"`
		IdleTimeout     *time.Duration `yaml:"idle_timeout"`
		ShutdownTimeout *time.Duration `yaml:"shutdown_timeout"`
		RequestTimeout  *time.Duration `yaml:"request_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level  *string `yaml:"level"`
		Format *string `yaml:"format"`
	} `yaml:"logging"`
	RateLimit struct {
		Enabled *bool    `yaml:"enabled"`
		RPS     *float64 `yaml:"rps"`
		Burst   *int     `yaml:"burst"`
	} `yaml:"rate_limit"`
}

// loadFromFile loads the overlay from a YAML file.
func loadFromFile(path string) (*fileOverlay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var overlay fileOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, err
	}
	return &overlay, nil
}

// envSet reports whether the named variable is present in the environment,
// which is what gives env values precedence over the file.
func envSet(name string) bool {
	_, ok := os.LookupEnv(name)
	return ok
}

// applyOverlay copies each file value into cfg unless the corresponding env
// var was set explicitly.
func applyOverlay(cfg *Config, o *fileOverlay) {
	setString(&cfg.Database.URL, o.Database.URL, "DATABASE_URL")
	if o.Database.MaxConns != nil && !envSet("DATABASE_MAX_CONNS") {
		cfg.Database.MaxConns = *o.Database.MaxConns
	}
	setDuration(&cfg.Database.ConnectTimeout, o.Database.ConnectTimeout, "DATABASE_CONNECT_TIMEOUT")
	setDuration(&cfg.Database.QueryTimeout, o.Database.QueryTimeout, "DATABASE_QUERY_TIMEOUT")
	if o.Database.BootstrapSchema != nil && !envSet("DATABASE_BOOTSTRAP_SCHEMA") {
		cfg.Database.BootstrapSchema = *o.Database.BootstrapSchema
	}

	setString(&cfg.Issuer.ID, o.Issuer.ID, "ISSUER_ID")
	setString(&cfg.Issuer.Secret, o.Issuer.Secret, "ISSUER_SECRET")

	if o.Server.Port != nil && !envSet("PORT") {
		cfg.Server.Port = *o.Server.Port
	}
	setDuration(&cfg.Server.ReadTimeout, o.Server.ReadTimeout, "SERVER_READ_TIMEOUT")
	setDuration(&cfg.Server.WriteTimeout, o.Server.WriteTimeout, "SERVER_WRITE_TIMEOUT")
	setDuration(&cfg.Server.IdleTimeout, o.Server.IdleTimeout, "SERVER_IDLE_TIMEOUT")
	setDuration(&cfg.Server.ShutdownTimeout, o.Server.ShutdownTimeout, "SERVER_SHUTDOWN_TIMEOUT")
	setDuration(&cfg.Server.RequestTimeout, o.Server.RequestTimeout, "SERVER_REQUEST_TIMEOUT")

	setString(&cfg.Logging.Level, o.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, o.Logging.Format, "LOG_FORMAT")

	if o.RateLimit.Enabled != nil && !envSet("RATE_LIMIT_ENABLED") {
		cfg.RateLimit.Enabled = *o.RateLimit.Enabled
	}
	if o.RateLimit.RPS != nil && !envSet("RATE_LIMIT_RPS") {
		cfg.RateLimit.RPS = *o.RateLimit.RPS
	}
	if o.RateLimit.Burst != nil && !envSet("RATE_LIMIT_BURST") {
		cfg.RateLimit.Burst = *o.RateLimit.Burst
	}
}

func setString(dst *string, src *string, env string) {
	if src != nil && !envSet(env) {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *time.Duration, env string) {
	if src != nil && !envSet(env) {
		*dst = *src
	}
}

// validate checks configuration values.
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Issuer.ID == "" {
		return fmt.Errorf("ISSUER_ID is required")
	}
	if c.Issuer.Secret == "" {
		return fmt.Errorf("ISSUER_SECRET is required")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}
	return nil
}
