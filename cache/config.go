package cache

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config carries the tuning knobs shared by Store implementations.
type Config struct {
	// Capacity is the maximum number of entries the in-memory store
	// holds before evicting.
	Capacity int

	// NumShards controls in-memory shard count for concurrent access.
	NumShards int

	// EvictionPercentage is the share of entries evicted when the
	// in-memory store hits capacity, between 1 and 100.
	EvictionPercentage int

	// DefaultTTL bounds how long the in-memory store retains an entry
	// stored without a per-entry ttl.
	DefaultTTL time.Duration
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          64,
		EvictionPercentage: 10,
		DefaultTTL:         time.Hour,
	}
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Capacity, validation.Required, validation.Min(1)),
		validation.Field(&c.NumShards, validation.Required, validation.Min(1)),
		validation.Field(&c.EvictionPercentage, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.DefaultTTL, validation.Required, validation.Min(time.Second)),
	)
}
