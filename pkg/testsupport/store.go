package testsupport

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-remote-query-cache/cache"
)

// Compile-time contract check.
var _ cache.Store = (*MemStore)(nil)

// MemStore is a map-backed cache.Store driven by a manual clock, so
// tests can age entries without sleeping.
type MemStore struct {
	mu      sync.Mutex
	entries map[string]cache.Entry
	clock   *Clock
}

// NewMemStore creates an empty store on the given clock.
func NewMemStore(clock *Clock) *MemStore {
	return &MemStore{entries: make(map[string]cache.Entry), clock: clock}
}

// Get implements cache.Store.
func (s *MemStore) Get(ctx context.Context, key string, maxAge time.Duration) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	now := s.clock.Now()
	if entry.Expired(now) {
		delete(s.entries, key)
		return nil, cache.ErrMiss
	}
	if entry.Stale(now, maxAge) {
		return nil, cache.ErrMiss
	}
	return entry.Value, nil
}

// Set implements cache.Store.
func (s *MemStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	entry := cache.Entry{Key: key, Value: value, CreatedAt: now}
	if ttl > 0 {
		entry.ExpiresAt = now.Add(ttl)
	}
	s.entries[key] = entry
	return nil
}

// Invalidate implements cache.Store.
func (s *MemStore) Invalidate(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// InvalidatePattern implements cache.Store with simple prefix globs.
func (s *MemStore) InvalidatePattern(ctx context.Context, pattern string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.entries {
		if matchPrefixGlob(pattern, key) {
			delete(s.entries, key)
		}
	}
	return nil
}

// Clear implements cache.Store.
func (s *MemStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]cache.Entry)
	return nil
}

// SweepExpired implements cache.Store.
func (s *MemStore) SweepExpired(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	for key, entry := range s.entries {
		if entry.Expired(now) {
			delete(s.entries, key)
		}
	}
	return nil
}

// Len returns the number of live entries.
func (s *MemStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Has reports whether key currently holds an entry, expiry ignored.
func (s *MemStore) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	return ok
}

func matchPrefixGlob(pattern, key string) bool {
	if pattern == "" {
		return false
	}
	if pattern[len(pattern)-1] == '*' {
		prefix := pattern[:len(pattern)-1]
		return len(key) >= len(prefix) && key[:len(prefix)] == prefix
	}
	return pattern == key
}
