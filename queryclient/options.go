package queryclient

import "time"

// Options tunes one Client instance.
type Options struct {
	// CacheEnabled is the global switch. When false the client never
	// reads or populates the cache; every read goes to the remote.
	CacheEnabled bool

	// CacheTTL is the default read-time freshness bound applied when a
	// read consults the cache. Entries older than this are treated as
	// misses even when they carry no fixed expiry.
	CacheTTL time.Duration

	// MaxPages caps the pagination loop. Zero trusts the remote's
	// hasMore signal without a ceiling, the reference behavior.
	MaxPages int

	// BatchDelay is the fixed pause between batch items, applied on top
	// of the throttle to soften burst patterns across large batches.
	BatchDelay time.Duration
}

// DefaultOptions mirrors the reference deployment's defaults.
func DefaultOptions() Options {
	return Options{
		CacheEnabled: true,
		CacheTTL:     5 * time.Minute,
		BatchDelay:   400 * time.Millisecond,
	}
}

// readOptions carries per-call overrides for cached reads.
type readOptions struct {
	useCache bool
	maxAge   time.Duration
	entryTTL time.Duration
}

// ReadOption overrides caching behavior for a single read.
type ReadOption func(*readOptions)

// WithoutCache bypasses the cache for this read: no lookup, no
// population.
func WithoutCache() ReadOption {
	return func(o *readOptions) { o.useCache = false }
}

// WithMaxAge tightens or loosens the read-time freshness bound for this
// read. Zero disables the bound entirely.
func WithMaxAge(d time.Duration) ReadOption {
	return func(o *readOptions) { o.maxAge = d }
}

// WithEntryTTL stores the fetched result with a fixed expiry instead of
// relying solely on read-time freshness checks.
func WithEntryTTL(d time.Duration) ReadOption {
	return func(o *readOptions) { o.entryTTL = d }
}
