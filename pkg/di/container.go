// Package di wires the query layer's components together from a single
// configuration value.
package di

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/goliatone/go-remote-query-cache/cache"
	"github.com/goliatone/go-remote-query-cache/config"
	"github.com/goliatone/go-remote-query-cache/history"
	"github.com/goliatone/go-remote-query-cache/internal/cachestore"
	"github.com/goliatone/go-remote-query-cache/queryclient"
	"github.com/goliatone/go-remote-query-cache/remote"
	"github.com/goliatone/go-remote-query-cache/throttle"
)

// Container holds the shared singletons: one throttle and one store per
// process, visible at construction time rather than hidden in package
// state.
type Container struct {
	cfg      config.Config
	logger   *zap.Logger
	throttle *throttle.Throttle
	executor *remote.Executor
	store    cache.Store
	client   *queryclient.Client
	sink     *history.Sink

	bunStore *cachestore.BunStore
}

// New builds the full component graph for the given remote service.
// The configuration is validated up front; construction errors are
// fatal and never retried.
func New(ctx context.Context, cfg config.Config, svc remote.Service, logger *zap.Logger) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		var err error
		if logger, err = newLogger(cfg.LogLevel); err != nil {
			return nil, err
		}
	}

	c := &Container{cfg: cfg, logger: logger}
	c.throttle = throttle.New(cfg.MaxRequestsPerSecond)
	c.executor = remote.NewExecutor(c.throttle, cfg.MaxAttempts, logger)

	if err := c.buildStore(ctx); err != nil {
		return nil, err
	}

	if cfg.HistoryEnabled && c.bunStore != nil {
		sink, err := history.NewSink(ctx, c.bunStore.DB(), logger)
		if err != nil {
			return nil, err
		}
		c.sink = sink
	}

	c.client = queryclient.New(svc, c.store, cache.NewDefaultKeyBuilder(), c.executor, logger, queryclient.Options{
		CacheEnabled: cfg.CacheEnabled,
		CacheTTL:     cfg.CacheTTL,
		MaxPages:     cfg.MaxPages,
		BatchDelay:   cfg.BatchDelay,
	})
	return c, nil
}

func (c *Container) buildStore(ctx context.Context) error {
	switch c.cfg.CacheDriver {
	case config.DriverMemory:
		store, err := cachestore.NewMemoryStore(cache.DefaultConfig())
		if err != nil {
			return err
		}
		c.store = store
	case config.DriverSQLite:
		store, err := cachestore.OpenSQLite(ctx, c.cfg.CacheDSN, c.logger)
		if err != nil {
			return err
		}
		c.store, c.bunStore = store, store
	case config.DriverPostgres:
		store, err := cachestore.OpenPostgres(ctx, c.cfg.CacheDSN, c.logger)
		if err != nil {
			return err
		}
		c.store, c.bunStore = store, store
	default:
		return fmt.Errorf("di: unknown cache driver %q", c.cfg.CacheDriver)
	}
	return nil
}

// Client returns the query facade.
func (c *Container) Client() *queryclient.Client {
	return c.client
}

// Store returns the shared cache store.
func (c *Container) Store() cache.Store {
	return c.store
}

// Throttle returns the shared throttle instance.
func (c *Container) Throttle() *throttle.Throttle {
	return c.throttle
}

// Executor returns the retrying executor.
func (c *Container) Executor() *remote.Executor {
	return c.executor
}

// History returns the history sink, or nil when disabled or when the
// store has no durable backend to share.
func (c *Container) History() *history.Sink {
	return c.sink
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Close releases the durable store, when one was opened.
func (c *Container) Close() error {
	if c.bunStore != nil {
		return c.bunStore.Close()
	}
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
