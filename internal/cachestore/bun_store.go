package cachestore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"go.uber.org/zap"

	"github.com/goliatone/go-remote-query-cache/cache"
)

// Compile-time contract check.
var _ cache.Store = (*BunStore)(nil)

// entryRow is the durable cache table. Values are opaque payload bytes;
// the store never inspects them.
type entryRow struct {
	bun.BaseModel `bun:"table:cache_entries,alias:ce"`

	Key       string    `bun:"key,pk"`
	Value     []byte    `bun:"value,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	ExpiresAt time.Time `bun:"expires_at,nullzero"`
}

// BunStore persists cache entries in a SQL table through bun. It
// supports the SQLite file layout the reference deployment uses and a
// Postgres DSN for shared deployments; read-after-write consistency
// comes from the database itself.
type BunStore struct {
	db     *bun.DB
	logger *zap.Logger

	now func() time.Time
}

// OpenSQLite opens (creating if needed) a SQLite-backed store at path.
// Use ":memory:" for an ephemeral database.
func OpenSQLite(ctx context.Context, path string, logger *zap.Logger) (*BunStore, error) {
	sqldb, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// The sqlite3 driver serializes writes per connection; a single
	// connection avoids SQLITE_BUSY under concurrent callers.
	sqldb.SetMaxOpenConns(1)
	return newBunStore(ctx, bun.NewDB(sqldb, sqlitedialect.New()), logger)
}

// OpenPostgres opens a Postgres-backed store from a DSN.
func OpenPostgres(ctx context.Context, dsn string, logger *zap.Logger) (*BunStore, error) {
	sqldb, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	return newBunStore(ctx, bun.NewDB(sqldb, pgdialect.New()), logger)
}

// NewBunStore wraps an existing bun.DB, creating the cache table if it
// does not exist.
func NewBunStore(ctx context.Context, db *bun.DB, logger *zap.Logger) (*BunStore, error) {
	return newBunStore(ctx, db, logger)
}

func newBunStore(ctx context.Context, db *bun.DB, logger *zap.Logger) (*BunStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	store := &BunStore{db: db, logger: logger, now: time.Now}
	if _, err := db.NewCreateTable().
		Model((*entryRow)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// Get implements cache.Store. Staleness checks run in Go rather than in
// SQL so both dialects share one code path.
func (s *BunStore) Get(ctx context.Context, key string, maxAge time.Duration) ([]byte, error) {
	row := new(entryRow)
	err := s.db.NewSelect().
		Model(row).
		Where("ce.key = ?", key).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, cache.ErrMiss
		}
		return nil, err
	}

	entry := cache.Entry{
		Key:       row.Key,
		Value:     row.Value,
		CreatedAt: row.CreatedAt,
		ExpiresAt: row.ExpiresAt,
	}
	now := s.now()
	if entry.Expired(now) || entry.Stale(now, maxAge) {
		return nil, cache.ErrMiss
	}
	return entry.Value, nil
}

// Set implements cache.Store via upsert, so replacement is atomic and
// no partial overwrite is ever visible.
func (s *BunStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := s.now()
	row := &entryRow{
		Key:       key,
		Value:     value,
		CreatedAt: now,
	}
	if ttl > 0 {
		row.ExpiresAt = now.Add(ttl)
	}

	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("created_at = EXCLUDED.created_at").
		Set("expires_at = EXCLUDED.expires_at").
		Exec(ctx)
	return err
}

// Invalidate implements cache.Store.
func (s *BunStore) Invalidate(ctx context.Context, key string) error {
	_, err := s.db.NewDelete().
		Model((*entryRow)(nil)).
		Where("ce.key = ?", key).
		Exec(ctx)
	return err
}

// InvalidatePattern implements cache.Store by translating the glob to a
// LIKE pattern.
func (s *BunStore) InvalidatePattern(ctx context.Context, pattern string) error {
	res, err := s.db.NewDelete().
		Model((*entryRow)(nil)).
		Where("ce.key LIKE ? ESCAPE '\\'", globToLike(pattern)).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil {
		s.logger.Debug("invalidated cache entries",
			zap.String("pattern", pattern),
			zap.Int64("count", n),
		)
	}
	return nil
}

// Clear implements cache.Store.
func (s *BunStore) Clear(ctx context.Context) error {
	_, err := s.db.NewDelete().
		Model((*entryRow)(nil)).
		Where("1 = 1").
		Exec(ctx)
	return err
}

// SweepExpired implements cache.Store.
func (s *BunStore) SweepExpired(ctx context.Context) error {
	res, err := s.db.NewDelete().
		Model((*entryRow)(nil)).
		Where("ce.expires_at IS NOT NULL").
		Where("ce.expires_at < ?", s.now()).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.logger.Debug("swept expired cache entries", zap.Int64("count", n))
	}
	return nil
}

// DB exposes the underlying bun handle so collaborators sharing the
// same database file (history sink) can reuse the connection.
func (s *BunStore) DB() *bun.DB {
	return s.db
}

// Close releases the underlying database handle.
func (s *BunStore) Close() error {
	return s.db.Close()
}
