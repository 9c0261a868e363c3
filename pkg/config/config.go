package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		TrustedProxies  []string      `yaml:"trusted_proxies"` // empty = forwarding headers ignored
	} `yaml:"server"`

	Monitor struct {
		TickInterval          time.Duration `yaml:"tick_interval"`
		HistorySize           int           `yaml:"history_size"`
		AutoStart             bool          `yaml:"auto_start"`
		AutoOptimize          bool          `yaml:"auto_optimize"`
		AutoBitrateAdjustment bool          `yaml:"auto_bitrate_adjustment"`
		InitialBitrate        int           `yaml:"initial_bitrate"`
		Seed                  int64         `yaml:"seed"` // 0 = time based
	} `yaml:"monitor"`

	Storage struct {
		Driver     string        `yaml:"driver"` // memory | redis | sqlite
		SQLitePath string        `yaml:"sqlite_path"`
		ReportTTL  time.Duration `yaml:"report_ttl"`
		MaxReports int           `yaml:"max_reports"`
	} `yaml:"storage"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"redis"`

	Reports struct {
		PersistInterval time.Duration `yaml:"persist_interval"` // 0 disables the scheduler
	} `yaml:"reports"`

	Events struct {
		Enabled   bool   `yaml:"enabled"`
		Channel   string `yaml:"channel"`
		TickEvery int    `yaml:"tick_every"` // forward one health tick out of N
	} `yaml:"events"`

	Feed struct {
		PingInterval time.Duration `yaml:"ping_interval"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		BufferSize   int           `yaml:"buffer_size"`
	} `yaml:"feed"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
	} `yaml:"monitoring"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		JaegerURL   string  `yaml:"jaeger_url"`
		Environment string  `yaml:"environment"`
		SampleRate  float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Auth struct {
		Enabled   bool          `yaml:"enabled"`
		JWTSecret string        `yaml:"jwt_secret"`
		TokenTTL  time.Duration `yaml:"token_ttl"`
	} `yaml:"auth"`

	RateLimiting struct {
		Enabled bool `yaml:"enabled"`

		HTTP struct {
			RequestsPerSecond float64 `yaml:"requests_per_second"`
			Burst             int     `yaml:"burst"`
			MaxConcurrent     int     `yaml:"max_concurrent"` // global concurrent HTTP requests
		} `yaml:"http"`
	} `yaml:"rate_limiting"`
}

// Validate checks configuration values for consistency and sane ranges.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	if c.Monitor.TickInterval <= 0 {
		return fmt.Errorf("monitor.tick_interval must be > 0")
	}
	if c.Monitor.HistorySize <= 0 {
		return fmt.Errorf("monitor.history_size must be > 0")
	}
	if c.Monitor.InitialBitrate <= 0 {
		return fmt.Errorf("monitor.initial_bitrate must be > 0")
	}

	switch c.Storage.Driver {
	case "memory", "redis":
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path must not be empty when storage.driver=sqlite")
		}
	default:
		return fmt.Errorf("storage.driver must be one of memory, redis, sqlite (got %q)", c.Storage.Driver)
	}
	if c.Storage.MaxReports < 0 {
		return fmt.Errorf("storage.max_reports must be >= 0")
	}
	if c.Storage.ReportTTL < 0 {
		return fmt.Errorf("storage.report_ttl must be >= 0")
	}

	if c.Storage.Driver == "redis" || c.Events.Enabled {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when redis is used")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when redis is used")
		}
	}
	if c.Events.Enabled && c.Events.Channel == "" {
		return fmt.Errorf("events.channel must not be empty when events.enabled=true")
	}

	if c.Reports.PersistInterval < 0 {
		return fmt.Errorf("reports.persist_interval must be >= 0")
	}

	if c.Feed.PingInterval <= 0 {
		return fmt.Errorf("feed.ping_interval must be > 0")
	}
	if c.Feed.WriteTimeout <= 0 {
		return fmt.Errorf("feed.write_timeout must be > 0")
	}
	if c.Feed.BufferSize <= 0 {
		return fmt.Errorf("feed.buffer_size must be > 0")
	}

	if c.Tracing.Enabled {
		if c.Tracing.JaegerURL == "" {
			return fmt.Errorf("tracing.jaeger_url must not be empty when tracing.enabled=true")
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing.sample_rate must be within [0,1]")
		}
	}

	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	if c.Auth.Enabled {
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("auth.jwt_secret must not be empty when auth.enabled=true")
		}
		if c.Auth.TokenTTL <= 0 {
			return fmt.Errorf("auth.token_ttl must be > 0 when auth.enabled=true")
		}
	}

	if c.RateLimiting.Enabled {
		if c.RateLimiting.HTTP.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.http.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.Burst <= 0 {
			return fmt.Errorf("rate_limiting.http.burst must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.MaxConcurrent < 0 {
			return fmt.Errorf("rate_limiting.http.max_concurrent must be >= 0 when rate limiting is enabled")
		}
	}

	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":8080"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 15 * time.Second

	cfg.Monitor.TickInterval = time.Second
	cfg.Monitor.HistorySize = 60
	cfg.Monitor.AutoStart = true
	cfg.Monitor.AutoOptimize = false
	cfg.Monitor.AutoBitrateAdjustment = false
	cfg.Monitor.InitialBitrate = 6000

	cfg.Storage.Driver = "memory"
	cfg.Storage.SQLitePath = "data/streampulse.db"
	cfg.Storage.ReportTTL = 7 * 24 * time.Hour
	cfg.Storage.MaxReports = 500

	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.DB = 0
	cfg.Redis.PoolSize = 10

	cfg.Reports.PersistInterval = 5 * time.Minute

	cfg.Events.Enabled = false
	cfg.Events.Channel = "streampulse:events"
	cfg.Events.TickEvery = 1

	cfg.Feed.PingInterval = 30 * time.Second
	cfg.Feed.WriteTimeout = 10 * time.Second
	cfg.Feed.BufferSize = 32

	cfg.Monitoring.PrometheusEnabled = true

	cfg.Tracing.Enabled = false
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.Environment = "development"
	cfg.Tracing.SampleRate = 1.0

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Auth.Enabled = false
	cfg.Auth.JWTSecret = "change-me-in-production"
	cfg.Auth.TokenTTL = 24 * time.Hour

	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.HTTP.RequestsPerSecond = 50
	cfg.RateLimiting.HTTP.Burst = 100
	cfg.RateLimiting.HTTP.MaxConcurrent = 0

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("STREAMPULSE_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if level := os.Getenv("STREAMPULSE_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if driver := os.Getenv("STREAMPULSE_STORAGE_DRIVER"); driver != "" {
		c.Storage.Driver = driver
	}
	if addr := os.Getenv("STREAMPULSE_REDIS_ADDRESS"); addr != "" {
		c.Redis.Address = addr
	}
	if secret := os.Getenv("STREAMPULSE_JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
	}
	if seed := os.Getenv("STREAMPULSE_SEED"); seed != "" {
		if v, err := strconv.ParseInt(seed, 10, 64); err == nil {
			c.Monitor.Seed = v
		}
	}
}
