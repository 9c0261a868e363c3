package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("expected default config to be valid, got: %v", err)
	}
}

func TestValidate_InvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name:   "tick interval must be > 0",
			mutate: func(c *Config) { c.Monitor.TickInterval = 0 },
		},
		{
			name:   "negative tick interval",
			mutate: func(c *Config) { c.Monitor.TickInterval = -time.Second },
		},
		{
			name:   "history size must be > 0",
			mutate: func(c *Config) { c.Monitor.HistorySize = 0 },
		},
		{
			name:   "initial bitrate must be > 0",
			mutate: func(c *Config) { c.Monitor.InitialBitrate = 0 },
		},
		{
			name:   "unknown storage driver",
			mutate: func(c *Config) { c.Storage.Driver = "postgres" },
		},
		{
			name: "sqlite path required",
			mutate: func(c *Config) {
				c.Storage.Driver = "sqlite"
				c.Storage.SQLitePath = ""
			},
		},
		{
			name: "redis address required for redis storage",
			mutate: func(c *Config) {
				c.Storage.Driver = "redis"
				c.Redis.Address = ""
			},
		},
		{
			name: "events need a channel",
			mutate: func(c *Config) {
				c.Events.Enabled = true
				c.Events.Channel = ""
			},
		},
		{
			name:   "feed buffer must be > 0",
			mutate: func(c *Config) { c.Feed.BufferSize = 0 },
		},
		{
			name: "sample rate out of range",
			mutate: func(c *Config) {
				c.Tracing.Enabled = true
				c.Tracing.SampleRate = 1.5
			},
		},
		{
			name: "auth needs a secret",
			mutate: func(c *Config) {
				c.Auth.Enabled = true
				c.Auth.JWTSecret = ""
			},
		},
		{
			name: "http rps must be > 0",
			mutate: func(c *Config) {
				c.RateLimiting.Enabled = true
				c.RateLimiting.HTTP.RequestsPerSecond = 0
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for case %q, got nil", tc.name)
			}
		})
	}
}

func TestValidate_RateLimitingDisabled_AllowsZeroValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.HTTP.RequestsPerSecond = 0
	cfg.RateLimiting.HTTP.Burst = 0

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected config to be valid when rate limiting disabled, got error: %v", err)
	}
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Monitor.HistorySize != 60 {
		t.Errorf("HistorySize = %d, want 60", cfg.Monitor.HistorySize)
	}
}

func TestLoad_YAMLAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  address: ":9000"
  trusted_proxies: ["10.0.0.0/8"]
monitor:
  tick_interval: 500ms
  auto_optimize: true
  auto_bitrate_adjustment: true
storage:
  driver: sqlite
  sqlite_path: /tmp/pulse.db
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("STREAMPULSE_LOG_LEVEL", "debug")
	t.Setenv("STREAMPULSE_SEED", "42")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Address != ":9000" {
		t.Errorf("Server.Address = %q, want :9000", cfg.Server.Address)
	}
	if len(cfg.Server.TrustedProxies) != 1 || cfg.Server.TrustedProxies[0] != "10.0.0.0/8" {
		t.Errorf("Server.TrustedProxies = %v, want [10.0.0.0/8]", cfg.Server.TrustedProxies)
	}
	if cfg.Monitor.TickInterval != 500*time.Millisecond {
		t.Errorf("TickInterval = %v, want 500ms", cfg.Monitor.TickInterval)
	}
	if !cfg.Monitor.AutoOptimize || !cfg.Monitor.AutoBitrateAdjustment {
		t.Error("expected optimization flags from yaml")
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("Storage.Driver = %q, want sqlite", cfg.Storage.Driver)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Monitor.Seed != 42 {
		t.Errorf("Seed = %d, want 42", cfg.Monitor.Seed)
	}
	// untouched sections keep defaults
	if cfg.Feed.BufferSize != 32 {
		t.Errorf("Feed.BufferSize = %d, want 32", cfg.Feed.BufferSize)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("monitor: [oops"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}
