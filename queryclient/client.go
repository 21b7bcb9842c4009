package queryclient

import (
	"context"
	"errors"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"

	"github.com/goliatone/go-remote-query-cache/cache"
	"github.com/goliatone/go-remote-query-cache/remote"
)

// QueryRequest identifies a paginated query: the dataset plus opaque
// filter and sort descriptions forwarded to the remote untouched.
type QueryRequest struct {
	Dataset string
	Filter  map[string]any
	Sorts   []map[string]any
}

// inflightQuery is a pending fetch shared by concurrent callers of the
// same cache key.
type inflightQuery struct {
	done    chan struct{}
	records []remote.Record
	err     error
}

// Client is the query facade: reads consult the cache first and
// populate it on miss, writes call through and invalidate affected
// entries only after confirmed success. One Client shares one throttle
// and one store, so it is safe for concurrent use.
type Client struct {
	remote   remote.Service
	store    cache.Store
	keys     cache.KeyBuilder
	executor *remote.Executor
	logger   *zap.Logger
	opts     Options

	// inflight merges concurrent fetches of the same query key so a
	// cold key costs one remote round of pagination, not one per caller.
	inflight *xsync.MapOf[string, *inflightQuery]

	sleep func(context.Context, time.Duration) error
}

// New creates a Client. store may be nil only when opts.CacheEnabled is
// false.
func New(svc remote.Service, store cache.Store, keys cache.KeyBuilder, executor *remote.Executor, logger *zap.Logger, opts Options) *Client {
	if keys == nil {
		keys = cache.NewDefaultKeyBuilder()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		remote:   svc,
		store:    store,
		keys:     keys,
		executor: executor,
		logger:   logger,
		opts:     opts,
		inflight: xsync.NewMapOf[string, *inflightQuery](),
		sleep:    sleepContext,
	}
}

func (c *Client) readOptions(opts []ReadOption) readOptions {
	ro := readOptions{
		useCache: c.opts.CacheEnabled,
		maxAge:   c.opts.CacheTTL,
	}
	for _, opt := range opts {
		opt(&ro)
	}
	if !c.opts.CacheEnabled {
		ro.useCache = false
	}
	return ro
}

// Query runs a paginated query to completion and returns the flattened
// record sequence. With caching enabled the result is served from the
// cache when fresh enough, and stored under the query's key after a
// full fetch. Concurrent callers of the same cold key share one fetch.
func (c *Client) Query(ctx context.Context, req QueryRequest, opts ...ReadOption) ([]remote.Record, error) {
	ro := c.readOptions(opts)

	if !ro.useCache {
		return c.fetchAll(ctx, req)
	}

	key := c.keys.QueryKey(req.Dataset, req.Filter, req.Sorts)
	if records, ok := c.cachedRecords(ctx, key, ro.maxAge); ok {
		return records, nil
	}

	fl := &inflightQuery{done: make(chan struct{})}
	if prior, loaded := c.inflight.LoadOrStore(key, fl); loaded {
		select {
		case <-prior.done:
			return prior.records, prior.err
		case <-ctx.Done():
			return nil, remote.NewError(remote.KindFatal, "query", ctx.Err())
		}
	}
	defer func() {
		c.inflight.Delete(key)
		close(fl.done)
	}()

	records, err := c.fetchAll(ctx, req)
	if err == nil {
		err = c.storeRecords(ctx, key, records, ro.entryTTL)
	}
	fl.records, fl.err = records, err
	if err != nil {
		return nil, err
	}
	return records, nil
}

// cachedRecords attempts the cache read, treating undecodable entries
// as misses and dropping them.
func (c *Client) cachedRecords(ctx context.Context, key string, maxAge time.Duration) ([]remote.Record, bool) {
	data, err := c.store.Get(ctx, key, maxAge)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		c.logger.Debug("cache miss", zap.String("key", key))
		return nil, false
	}
	records, err := decodeRecords(data)
	if err != nil {
		c.logger.Warn("dropping undecodable cache entry", zap.String("key", key), zap.Error(err))
		_ = c.store.Invalidate(ctx, key)
		return nil, false
	}
	c.logger.Debug("cache hit", zap.String("key", key), zap.Int("records", len(records)))
	return records, true
}

func (c *Client) storeRecords(ctx context.Context, key string, records []remote.Record, ttl time.Duration) error {
	data, err := encodeRecords(records)
	if err != nil {
		return remote.NewError(remote.KindFatal, "query", err)
	}
	return c.store.Set(ctx, key, data, ttl)
}

// fetchAll drives the pagination loop through the retrying executor,
// one retry budget per page request, and flattens the pages. The loop
// trusts the remote's hasMore signal unless a MaxPages ceiling is
// configured; when the ceiling trips, the accumulated records are
// returned alongside a fatal error and never cached.
func (c *Client) fetchAll(ctx context.Context, req QueryRequest) ([]remote.Record, error) {
	c.logger.Info("querying dataset", zap.String("dataset", req.Dataset))

	var records []remote.Record
	cursor := ""
	pages := 0
	for {
		result, err := c.executor.Execute(ctx, "query", func(ctx context.Context) (any, error) {
			return c.remote.Query(ctx, remote.QueryParams{
				Dataset: req.Dataset,
				Filter:  req.Filter,
				Sorts:   req.Sorts,
				Cursor:  cursor,
			})
		})
		if err != nil {
			return nil, err
		}
		page := result.(remote.Page)
		records = append(records, page.Records...)
		if !page.HasMore {
			break
		}
		cursor = page.NextCursor

		pages++
		if c.opts.MaxPages > 0 && pages >= c.opts.MaxPages {
			return records, remote.Fatalf("query", "pagination ceiling of %d pages reached for dataset %s", c.opts.MaxPages, req.Dataset)
		}
	}

	c.logger.Info("retrieved records", zap.String("dataset", req.Dataset), zap.Int("count", len(records)))
	return records, nil
}

// Get fetches a single record by id, cache first, exactly one retrying
// call on miss.
func (c *Client) Get(ctx context.Context, id string, opts ...ReadOption) (remote.Record, error) {
	ro := c.readOptions(opts)

	var key string
	if ro.useCache {
		key = c.keys.RecordKey(id)
		if data, err := c.store.Get(ctx, key, ro.maxAge); err == nil {
			if record, err := decodeRecord(data); err == nil {
				c.logger.Debug("cache hit", zap.String("key", key))
				return record, nil
			}
			_ = c.store.Invalidate(ctx, key)
		} else if !errors.Is(err, cache.ErrMiss) {
			c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		c.logger.Debug("cache miss", zap.String("key", key))
	}

	result, err := c.executor.Execute(ctx, "get", func(ctx context.Context) (any, error) {
		return c.remote.Get(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	record := result.(remote.Record)

	if ro.useCache {
		data, err := encodeRecord(record)
		if err != nil {
			return nil, remote.NewError(remote.KindFatal, "get", err)
		}
		if err := c.store.Set(ctx, key, data, ro.entryTTL); err != nil {
			return nil, err
		}
	}
	return record, nil
}

// Update applies changes to a record. The call always bypasses the
// cache; on success the record's own entry and every cached query
// result are invalidated before the remote's result is returned.
// Invalidation never happens speculatively before the call.
func (c *Client) Update(ctx context.Context, id string, changes map[string]any) (remote.Record, error) {
	c.logger.Info("updating record", zap.String("id", id))

	result, err := c.executor.Execute(ctx, "update", func(ctx context.Context) (any, error) {
		return c.remote.Update(ctx, id, changes)
	})
	if err != nil {
		return nil, err
	}

	if err := c.invalidateAfterWrite(ctx, id); err != nil {
		return nil, err
	}
	return result.(remote.Record), nil
}

// Create inserts a record under the dataset. Cached query results are
// invalidated on success; there is no record entry to drop for an id
// that did not exist before the call.
func (c *Client) Create(ctx context.Context, dataset string, changes map[string]any) (remote.Record, error) {
	c.logger.Info("creating record", zap.String("dataset", dataset))

	result, err := c.executor.Execute(ctx, "create", func(ctx context.Context) (any, error) {
		return c.remote.Create(ctx, dataset, changes)
	})
	if err != nil {
		return nil, err
	}

	if err := c.invalidateAfterWrite(ctx, ""); err != nil {
		return nil, err
	}
	return result.(remote.Record), nil
}

// Describe fetches the dataset's property schema. Schemas are not
// cached; callers use this rarely and always want the current shape.
func (c *Client) Describe(ctx context.Context, dataset string) (map[string]any, error) {
	result, err := c.executor.Execute(ctx, "describe", func(ctx context.Context) (any, error) {
		return c.remote.Describe(ctx, dataset)
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string]any), nil
}

// invalidateAfterWrite drops the record entry (when id is known) and
// blanket-invalidates the query namespace. Query predicates are not
// tracked per entry, so over-invalidation is the correctness-safe
// trade.
func (c *Client) invalidateAfterWrite(ctx context.Context, id string) error {
	if !c.opts.CacheEnabled {
		return nil
	}
	if id != "" {
		if err := c.store.Invalidate(ctx, c.keys.RecordKey(id)); err != nil {
			return err
		}
	}
	if err := c.store.InvalidatePattern(ctx, cache.QueryKeyPattern); err != nil {
		return err
	}
	c.logger.Debug("invalidated after write", zap.String("id", id))
	return nil
}

// ClearCache removes every cached entry.
func (c *Client) ClearCache(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	if err := c.store.Clear(ctx); err != nil {
		return err
	}
	c.logger.Info("cache cleared")
	return nil
}

// SweepCache removes entries whose fixed expiry has passed.
func (c *Client) SweepCache(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	return c.store.SweepExpired(ctx)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
