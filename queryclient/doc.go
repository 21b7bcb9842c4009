// Package queryclient ties the throttle, the retrying executor, and the
// keyed cache into one consistent read/write contract against a
// paginated remote service.
//
// # Read Path
//
// A read derives a deterministic cache key from its identity tuple and
// consults the store first. A hit within the freshness bound skips the
// network entirely. A miss drives the retrying executor: paginated
// queries fetch every page (each page request with its own retry
// budget, each attempt spaced by the shared throttle), and the
// flattened sequence is stored under the query's key before returning.
//
//	client.Query(ctx, queryclient.QueryRequest{Dataset: "tasks"})
//	client.Get(ctx, "42")
//
// # Write Path
//
// Writes never consult the cache. On confirmed success the record's own
// entry and the whole query namespace are invalidated, in that order,
// never speculatively before the call:
//
//	client.Update(ctx, "42", map[string]any{"status": "Done"})
//
// BatchUpdate routes every item through the single-write path in strict
// order with a fixed inter-item delay, collecting per-item outcomes
// instead of aborting on first failure.
//
// # Consistency
//
// Once a write returns, a following read for the affected record or for
// any query misses the cache and refetches; there is no eventual
// consistency window inside the store.
package queryclient
