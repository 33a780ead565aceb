package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate config: %v", err)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.DSN == "" {
		t.Errorf("database = %+v", cfg.Database)
	}
	if cfg.Import.MaxUploadBytes != 32<<20 {
		t.Errorf("max upload = %d, want %d", cfg.Import.MaxUploadBytes, 32<<20)
	}
	if !cfg.Policy.ExcludeFalsePositives || cfg.Policy.TopTactics != 5 {
		t.Errorf("policy = %+v", cfg.Policy)
	}
}

func TestConfigValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"postgres without dsn", func(c *Config) { c.Database.Driver = "postgres"; c.Database.DSN = "" }},
		{"tls without cert", func(c *Config) { c.Server.TLS.Enabled = true; c.Server.TLS.KeyFile = "k.pem" }},
		{"invalid duration", func(c *Config) { c.API.QueryTimeout = "not-a-duration" }},
		{"negative duration", func(c *Config) { c.Auth.LockoutDuration = "-1m" }},
		{"zero upload limit", func(c *Config) { c.Import.MaxUploadBytes = -1 }},
		{"negative notify rate", func(c *Config) { c.Notify.PerMinute = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secdash.yaml")
	data := `
server:
  http_address: ":9000"
database:
  driver: postgres
  dsn: postgres://secdash@localhost/secdash
auth:
  access_token_ttl: 5m
import:
  max_upload_bytes: 1048576
metrics:
  enabled: false
notify:
  slack_webhook: https://hooks.slack.com/services/T00/B00/xxx
  row_errors: true
policy:
  top_tactics: 3
  exclude_false_positives: false
  excluded_severities:
    secureworks: [Informational, Low]
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.Notify.RowErrors || cfg.Notify.SlackWebhook == "" || cfg.Notify.PerMinute != 10 {
		t.Errorf("notify = %+v", cfg.Notify)
	}
	if cfg.Server.HTTPAddress != ":9000" || cfg.Database.Driver != "postgres" {
		t.Errorf("server/database = %+v %+v", cfg.Server, cfg.Database)
	}
	if duration(cfg.Auth.AccessTokenTTL) != 5*time.Minute || duration(cfg.Auth.RefreshTokenTTL) != 168*time.Hour {
		t.Errorf("auth = %+v", cfg.Auth)
	}
	if cfg.Import.MaxUploadBytes != 1<<20 || cfg.Metrics.Enabled {
		t.Errorf("import/metrics = %+v %+v", cfg.Import, cfg.Metrics)
	}
	if cfg.Policy.TopTactics != 3 || cfg.Policy.ExcludeFalsePositives || len(cfg.Policy.ExcludedSeverities["secureworks"]) != 2 {
		t.Errorf("policy = %+v", cfg.Policy)
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
