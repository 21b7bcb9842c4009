// Package config loads the query layer's settings from the
// environment.
package config

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/ilyakaznacheev/cleanenv"
)

// Storage driver names accepted by CacheDriver.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Config is the full configuration surface of the query layer. Every
// field carries an environment default matching the reference
// deployment.
type Config struct {
	// Dataset is the default remote collection queries run against.
	Dataset string `env:"DATASET_ID"`

	// CacheEnabled is the global cache on/off switch.
	CacheEnabled bool `env:"CACHE_ENABLED" env-default:"true"`

	// CacheTTL is the default read-time freshness bound for cached
	// reads, in seconds.
	CacheTTL time.Duration `env:"CACHE_TTL" env-default:"300s"`

	// CacheDriver selects the store backend: memory, sqlite3 or
	// postgres.
	CacheDriver string `env:"CACHE_DRIVER" env-default:"sqlite3"`

	// CacheDSN is the storage location: a file path for sqlite3, a DSN
	// for postgres, ignored for memory.
	CacheDSN string `env:"CACHE_DB_PATH" env-default:".remote_cache.db"`

	// MaxRequestsPerSecond is the throttle budget for outgoing calls.
	MaxRequestsPerSecond float64 `env:"RATE_LIMIT_RPS" env-default:"3"`

	// MaxAttempts is the total attempt budget per remote call.
	MaxAttempts int `env:"MAX_RETRIES" env-default:"3"`

	// BatchDelay is the fixed pause between batch update items.
	BatchDelay time.Duration `env:"BATCH_DELAY" env-default:"400ms"`

	// MaxPages optionally caps pagination; zero trusts the remote's
	// hasMore signal without a ceiling.
	MaxPages int `env:"MAX_PAGES" env-default:"0"`

	// HistoryEnabled switches the bun-backed history sink on.
	HistoryEnabled bool `env:"HISTORY_ENABLED" env-default:"true"`

	// LogLevel sets the zap level: debug, info, warn or error.
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`
}

// Load reads the configuration from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration the reference deployment runs
// with, no environment consulted.
func Default() Config {
	return Config{
		CacheEnabled:         true,
		CacheTTL:             5 * time.Minute,
		CacheDriver:          DriverSQLite,
		CacheDSN:             ".remote_cache.db",
		MaxRequestsPerSecond: 3,
		MaxAttempts:          3,
		BatchDelay:           400 * time.Millisecond,
		HistoryEnabled:       true,
		LogLevel:             "info",
	}
}

// Validate checks the configuration for values the layer cannot run
// with. Validation failures are fatal; they are never retried.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.CacheDriver, validation.Required, validation.In(DriverMemory, DriverSQLite, DriverPostgres)),
		validation.Field(&c.CacheDSN, validation.Required.When(c.CacheDriver != DriverMemory)),
		validation.Field(&c.MaxRequestsPerSecond, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&c.MaxAttempts, validation.Required, validation.Min(1)),
		validation.Field(&c.CacheTTL, validation.Min(time.Duration(0))),
		validation.Field(&c.BatchDelay, validation.Min(time.Duration(0))),
		validation.Field(&c.MaxPages, validation.Min(0)),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
	)
}
