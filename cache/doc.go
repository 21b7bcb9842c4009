// Package cache defines the key/value store boundary and cache key
// derivation for the remote query layer.
//
// # Overview
//
// This package exports:
//
//   - Store: the cache contract (TTL expiry, read-time freshness bounds,
//     glob-pattern invalidation)
//   - KeyBuilder: deterministic cache keys derived from a call's
//     identity tuple (operation kind, dataset, filter, sorts)
//   - Entry: the stored shape staleness checks run against
//
// Implementations live in internal/cachestore: an in-memory store
// backed by a sharded cache, and a durable store backed by a SQL table.
//
// # Key Namespaces
//
// Query keys and record keys live under distinct, discoverable
// prefixes:
//
//	query::tasks::a1b2c3d4e5f60718   // paginated query result
//	record::8f14e45f                 // single record fetch
//
// The shared "query::" prefix is what lets a write blanket-invalidate
// every cached query with InvalidatePattern(QueryKeyPattern) while
// leaving unrelated record entries intact. Precision is deliberately
// traded away: tracking which queries a write could affect would
// require indexing filter predicates per entry.
//
// # Staleness
//
// Two independent gates decide whether a Get returns an entry:
//
//   - the entry's own fixed expiry, set at write time from ttl
//   - the caller's read-time maxAge bound, checked against CreatedAt
//
// An entry stored without a ttl never expires on its own but can still
// be rejected by a caller asking for a tighter freshness bound. Expired
// entries are filtered lazily on every read, so correctness never
// depends on SweepExpired running.
package cache
