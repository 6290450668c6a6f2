// Package config holds Kestrel's runtime configuration: the Postgres DSN,
// HTTP listen address, default subscription tunables, janitor intervals,
// and the optional observability/notifier/archive integrations. Values are
// seeded by DefaultConfig, optionally overridden by a YAML manifest
// (LoadFromFile) and then by environment variables (LoadFromEnv) — env
// always wins, matching the precedence of the system this was modeled on.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// PostgresConfig holds the relational store connection settings.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// DaemonConfig holds HTTP server settings.
type DaemonConfig struct {
	HTTPAddr string `yaml:"http_addr"`
	LogLevel string `yaml:"log_level"`
}

// SubscriptionDefaults are applied when a subscription omits the field at
// creation time.
type SubscriptionDefaults struct {
	MaxDeliveryAttempts int `yaml:"max_delivery_attempts"`
	BackoffMinSeconds   int `yaml:"backoff_min_seconds"`
	BackoffMaxSeconds   int `yaml:"backoff_max_seconds"`
}

// JanitorConfig controls the two background sweeps: unlocking stuck
// leases and garbage-collecting acked messages.
type JanitorConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Interval      time.Duration `yaml:"interval"`
	LockTimeout   time.Duration `yaml:"lock_timeout"`
	RetentionAge  time.Duration `yaml:"retention_age"`
}

// LoggingConfig controls the structured operational logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// TracingConfig controls the optional OpenTelemetry exporter.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	SampleRate  float64 `yaml:"sample_rate"`
}

// RedisConfig controls the optional fan-out wake-up notifier.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Pass    string `yaml:"password"`
	DB      int    `yaml:"db"`
}

// ArchiveConfig controls the optional S3 cold-storage export that runs
// before the janitor's acked-GC sweep deletes rows.
type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Bucket  string `yaml:"bucket"`
	Prefix  string `yaml:"prefix"`
	Region  string `yaml:"region"`
}

// SeedSubscription describes one subscription in a YAML bootstrap manifest.
type SeedSubscription struct {
	ID                  string         `yaml:"id"`
	Filter              map[string]any `yaml:"filter,omitempty"`
	MaxDeliveryAttempts int            `yaml:"max_delivery_attempts,omitempty"`
	BackoffMinSeconds   int            `yaml:"backoff_min_seconds,omitempty"`
	BackoffMaxSeconds   int            `yaml:"backoff_max_seconds,omitempty"`
}

// SeedTopic describes one topic (and its subscriptions) in a YAML bootstrap
// manifest.
type SeedTopic struct {
	ID            string             `yaml:"id"`
	Subscriptions []SeedSubscription `yaml:"subscriptions,omitempty"`
}

// Config is the full set of dependencies the serve command wires up.
type Config struct {
	Postgres     PostgresConfig       `yaml:"postgres"`
	Daemon       DaemonConfig         `yaml:"daemon"`
	Defaults     SubscriptionDefaults `yaml:"defaults"`
	Janitor      JanitorConfig        `yaml:"janitor"`
	Logging      LoggingConfig        `yaml:"logging"`
	Metrics      MetricsConfig        `yaml:"metrics"`
	Tracing      TracingConfig        `yaml:"tracing"`
	Redis        RedisConfig          `yaml:"redis"`
	Archive      ArchiveConfig        `yaml:"archive"`
	Seed         []SeedTopic          `yaml:"seed,omitempty"`
}

// DefaultConfig returns a Config with every field at its documented
// default.
func DefaultConfig() *Config {
	return &Config{
		Daemon: DaemonConfig{
			HTTPAddr: ":8080",
			LogLevel: "info",
		},
		Defaults: SubscriptionDefaults{
			MaxDeliveryAttempts: 5,
			BackoffMinSeconds:   1,
			BackoffMaxSeconds:   300,
		},
		Janitor: JanitorConfig{
			Enabled:      true,
			Interval:     30 * time.Second,
			LockTimeout:  60 * time.Second,
			RetentionAge: 7 * 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "kestrel",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "kestrel",
			SampleRate:  1.0,
		},
	}
}

// LoadFromFile loads a YAML bootstrap manifest, starting from the
// defaults and overlaying whatever the file specifies.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv applies KESTREL_* environment overrides on top of cfg.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("KESTREL_PG_DSN"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("KESTREL_HTTP_ADDR"); v != "" {
		cfg.Daemon.HTTPAddr = v
	}
	if v := os.Getenv("KESTREL_LOG_LEVEL"); v != "" {
		cfg.Daemon.LogLevel = v
		cfg.Logging.Level = v
	}
	if v := os.Getenv("KESTREL_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("KESTREL_DEFAULT_MAX_DELIVERY_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Defaults.MaxDeliveryAttempts = n
		}
	}
	if v := os.Getenv("KESTREL_DEFAULT_BACKOFF_MIN_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Defaults.BackoffMinSeconds = n
		}
	}
	if v := os.Getenv("KESTREL_DEFAULT_BACKOFF_MAX_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Defaults.BackoffMaxSeconds = n
		}
	}

	if v := os.Getenv("KESTREL_JANITOR_ENABLED"); v != "" {
		cfg.Janitor.Enabled = parseBool(v)
	}
	if v := os.Getenv("KESTREL_JANITOR_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Janitor.Interval = d
		}
	}
	if v := os.Getenv("KESTREL_JANITOR_LOCK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Janitor.LockTimeout = d
		}
	}
	if v := os.Getenv("KESTREL_JANITOR_RETENTION_AGE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Janitor.RetentionAge = d
		}
	}

	if v := os.Getenv("KESTREL_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("KESTREL_METRICS_NAMESPACE"); v != "" {
		cfg.Metrics.Namespace = v
	}

	if v := os.Getenv("KESTREL_TRACING_ENABLED"); v != "" {
		cfg.Tracing.Enabled = parseBool(v)
	}
	if v := os.Getenv("KESTREL_TRACING_ENDPOINT"); v != "" {
		cfg.Tracing.Endpoint = v
	}
	if v := os.Getenv("KESTREL_TRACING_SAMPLE_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Tracing.SampleRate = f
		}
	}

	if v := os.Getenv("KESTREL_REDIS_ENABLED"); v != "" {
		cfg.Redis.Enabled = parseBool(v)
	}
	if v := os.Getenv("KESTREL_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("KESTREL_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Pass = v
	}
	if v := os.Getenv("KESTREL_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = n
		}
	}

	if v := os.Getenv("KESTREL_ARCHIVE_ENABLED"); v != "" {
		cfg.Archive.Enabled = parseBool(v)
	}
	if v := os.Getenv("KESTREL_ARCHIVE_BUCKET"); v != "" {
		cfg.Archive.Bucket = v
	}
	if v := os.Getenv("KESTREL_ARCHIVE_PREFIX"); v != "" {
		cfg.Archive.Prefix = v
	}
	if v := os.Getenv("KESTREL_ARCHIVE_REGION"); v != "" {
		cfg.Archive.Region = v
	}
}

func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes"
}
