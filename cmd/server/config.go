// Package main provides the secdash server CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/good-yellow-bee/secdash/internal/aggregate"
	"github.com/good-yellow-bee/secdash/internal/notifier"
)

// Config represents the server configuration.
type Config struct {
	Server   ServerConfig     `yaml:"server"`
	Database DatabaseConfig   `yaml:"database"`
	Auth     AuthConfig       `yaml:"auth"`
	API      APIConfig        `yaml:"api"`
	Import   ImportConfig     `yaml:"import"`
	Metrics  MetricsConfig    `yaml:"metrics"`
	Notify   notifier.Config  `yaml:"notify"`
	Policy   aggregate.Policy `yaml:"policy"`
	Verbose  bool             `yaml:"-"` // set via CLI flag
}

// ServerConfig contains server settings.
type ServerConfig struct {
	HTTPAddress string    `yaml:"http_address"` // HTTP listen address (default: :8080)
	TLS         TLSConfig `yaml:"tls"`
}

// TLSConfig contains HTTPS settings for the API server.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	// ClientCAFile enables mutual TLS when set.
	ClientCAFile string `yaml:"client_ca_file"`
}

// DatabaseConfig selects the storage backend.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite or postgres (default: sqlite)
	// DSN is a file path for sqlite and a connection URL for postgres.
	DSN string `yaml:"dsn"`
}

// AuthConfig contains token and lockout settings. The JWT secret is read
// from SECDASH_JWT_SECRET and never from the file.
type AuthConfig struct {
	AccessTokenTTL   string `yaml:"access_token_ttl"`
	RefreshTokenTTL  string `yaml:"refresh_token_ttl"`
	LockoutThreshold int    `yaml:"lockout_threshold"`
	LockoutDuration  string `yaml:"lockout_duration"`
}

// APIConfig contains request limits.
type APIConfig struct {
	RateLimitPerIP   int    `yaml:"rate_limit_per_ip"`   // login attempts per minute
	RateLimitPerUser int    `yaml:"rate_limit_per_user"` // reads per minute
	QueryTimeout     string `yaml:"query_timeout"`
}

// ImportConfig bounds uploads.
type ImportConfig struct {
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

// MetricsConfig contains Prometheus listener settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{Policy: aggregate.DefaultPolicy(), Metrics: MetricsConfig{Enabled: true}}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{Policy: aggregate.DefaultPolicy(), Metrics: MetricsConfig{Enabled: true}}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Server.HTTPAddress == "" {
		c.Server.HTTPAddress = ":8080"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" && c.Database.Driver == "sqlite" {
		c.Database.DSN = "./data/secdash.db"
	}
	if c.Auth.AccessTokenTTL == "" {
		c.Auth.AccessTokenTTL = "15m"
	}
	if c.Auth.RefreshTokenTTL == "" {
		c.Auth.RefreshTokenTTL = "168h"
	}
	if c.Auth.LockoutThreshold == 0 {
		c.Auth.LockoutThreshold = 5
	}
	if c.Auth.LockoutDuration == "" {
		c.Auth.LockoutDuration = "30m"
	}
	if c.API.RateLimitPerIP == 0 {
		c.API.RateLimitPerIP = 5
	}
	if c.API.RateLimitPerUser == 0 {
		c.API.RateLimitPerUser = 100
	}
	if c.API.QueryTimeout == "" {
		c.API.QueryTimeout = "10s"
	}
	if c.Import.MaxUploadBytes == 0 {
		c.Import.MaxUploadBytes = 32 << 20
	}
	if c.Metrics.Address == "" {
		c.Metrics.Address = ":9090"
	}
	if c.Notify.PerMinute == 0 {
		c.Notify.PerMinute = 10
	}
	if c.Policy.TopTactics == 0 {
		c.Policy.TopTactics = aggregate.DefaultPolicy().TopTactics
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.HTTPAddress == "" {
		return fmt.Errorf("server.http_address is required")
	}
	if c.Server.TLS.Enabled {
		if c.Server.TLS.CertFile == "" {
			return fmt.Errorf("server.tls.cert_file is required when TLS is enabled")
		}
		if c.Server.TLS.KeyFile == "" {
			return fmt.Errorf("server.tls.key_file is required when TLS is enabled")
		}
	}

	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}

	for name, value := range map[string]string{
		"auth.access_token_ttl":  c.Auth.AccessTokenTTL,
		"auth.refresh_token_ttl": c.Auth.RefreshTokenTTL,
		"auth.lockout_duration":  c.Auth.LockoutDuration,
		"api.query_timeout":      c.API.QueryTimeout,
	} {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	if c.Auth.LockoutThreshold < 1 {
		return fmt.Errorf("auth.lockout_threshold must be at least 1")
	}
	if c.API.RateLimitPerIP < 1 || c.API.RateLimitPerUser < 1 {
		return fmt.Errorf("api rate limits must be at least 1")
	}
	if c.Import.MaxUploadBytes < 1 {
		return fmt.Errorf("import.max_upload_bytes must be positive")
	}
	if c.Notify.PerMinute < 0 {
		return fmt.Errorf("notify.per_minute must not be negative")
	}
	if c.Policy.TopTactics < 1 {
		return fmt.Errorf("policy.top_tactics must be at least 1")
	}
	return nil
}

// duration parses a value already checked by Validate.
func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
