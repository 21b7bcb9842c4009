package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent, expired, or older
// than the caller's freshness bound.
var ErrMiss = errors.New("cache: miss")

// Entry is one cached value plus the timestamps staleness checks run
// against. Entries are replaced whole, never mutated in place.
type Entry struct {
	Key       string
	Value     []byte
	CreatedAt time.Time
	// ExpiresAt is zero when the entry has no fixed expiry; such entries
	// are only filtered by the per-read maxAge bound.
	ExpiresAt time.Time
}

// Expired reports whether the entry's fixed expiry has passed at now.
func (e Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// Stale reports whether the entry is older than the read-time bound.
// A non-positive maxAge means the caller imposes no freshness bound.
func (e Entry) Stale(now time.Time, maxAge time.Duration) bool {
	return maxAge > 0 && now.Sub(e.CreatedAt) > maxAge
}

// Store is the key/value cache boundary. Implementations serialize
// internal state so concurrent callers never observe torn reads or lost
// updates, and they are read-after-write consistent: once an
// invalidation returns, a subsequent Get for an affected key misses.
type Store interface {
	// Get returns the value under key, or ErrMiss when the key is
	// absent, its fixed expiry has passed, or it is older than maxAge.
	// maxAge is a read-time bound independent of the entry's own TTL;
	// zero disables it. Expiry is checked lazily on every read, so a
	// sweep never has to run for correctness.
	Get(ctx context.Context, key string, maxAge time.Duration) ([]byte, error)

	// Set stores value under key, replacing any existing entry
	// atomically. A positive ttl fixes the entry's expiry at now+ttl;
	// zero stores it without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Invalidate removes exactly one entry; absent keys are a no-op.
	Invalidate(ctx context.Context, key string) error

	// InvalidatePattern removes every entry whose key matches the
	// glob-style pattern ("query::*" removes the whole query namespace).
	InvalidatePattern(ctx context.Context, pattern string) error

	// Clear removes all entries unconditionally.
	Clear(ctx context.Context) error

	// SweepExpired removes entries whose fixed expiry has passed. It is
	// idempotent and only bounds storage growth; Get filters expired
	// entries regardless.
	SweepExpired(ctx context.Context) error
}
