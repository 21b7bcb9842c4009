// Package cachestore provides the cache.Store implementations: an
// in-memory store backed by a sturdyc client and a durable store backed
// by a bun-managed SQL table.
package cachestore

import (
	"context"
	"time"

	"github.com/viccon/sturdyc"

	"github.com/goliatone/go-remote-query-cache/cache"
)

// Compile-time contract check.
var _ cache.Store = (*MemoryStore)(nil)

// MemoryStore keeps entries in a sharded sturdyc client. The client's
// own TTL only bounds retention; the staleness the Store contract cares
// about is carried on each cache.Entry and checked on every read, so
// read-time maxAge and fixed expiry behave identically to the durable
// store.
type MemoryStore struct {
	client *sturdyc.Client[cache.Entry]

	now func() time.Time
}

// NewMemoryStore creates a MemoryStore from the shared cache config.
func NewMemoryStore(cfg cache.Config) (*MemoryStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := sturdyc.New[cache.Entry](
		cfg.Capacity,
		cfg.NumShards,
		cfg.DefaultTTL,
		cfg.EvictionPercentage,
	)
	return &MemoryStore{client: client, now: time.Now}, nil
}

// Get implements cache.Store.
func (s *MemoryStore) Get(ctx context.Context, key string, maxAge time.Duration) ([]byte, error) {
	entry, ok := s.client.Get(key)
	if !ok {
		return nil, cache.ErrMiss
	}
	now := s.now()
	if entry.Expired(now) {
		s.client.Delete(key)
		return nil, cache.ErrMiss
	}
	if entry.Stale(now, maxAge) {
		return nil, cache.ErrMiss
	}
	return entry.Value, nil
}

// Set implements cache.Store. The entry replaces any previous value
// under the key in one client call.
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := s.now()
	entry := cache.Entry{
		Key:       key,
		Value:     value,
		CreatedAt: now,
	}
	if ttl > 0 {
		entry.ExpiresAt = now.Add(ttl)
	}
	s.client.Set(key, entry)
	return nil
}

// Invalidate implements cache.Store.
func (s *MemoryStore) Invalidate(ctx context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

// InvalidatePattern implements cache.Store by scanning the client's
// keys and deleting matches.
func (s *MemoryStore) InvalidatePattern(ctx context.Context, pattern string) error {
	for _, key := range s.client.ScanKeys() {
		if matchGlob(pattern, key) {
			s.client.Delete(key)
		}
	}
	return nil
}

// Clear implements cache.Store.
func (s *MemoryStore) Clear(ctx context.Context) error {
	for _, key := range s.client.ScanKeys() {
		s.client.Delete(key)
	}
	return nil
}

// SweepExpired implements cache.Store.
func (s *MemoryStore) SweepExpired(ctx context.Context) error {
	now := s.now()
	for _, key := range s.client.ScanKeys() {
		if entry, ok := s.client.Get(key); ok && entry.Expired(now) {
			s.client.Delete(key)
		}
	}
	return nil
}
