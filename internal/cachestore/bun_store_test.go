package cachestore

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-remote-query-cache/cache"
)

func newTestBunStore(t *testing.T) (*BunStore, *testClock) {
	t.Helper()
	ctx := context.Background()
	store, err := OpenSQLite(ctx, ":memory:", zap.NewNop())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	clock := newTestClock()
	store.now = clock.now
	return store, clock
}

func TestBunStore_SetGetRoundTrip(t *testing.T) {
	store, _ := newTestBunStore(t)
	ctx := context.Background()

	payload := []byte{0x92, 0x01, 0x02} // opaque bytes, store must not care
	if err := store.Set(ctx, "k", payload, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := store.Get(ctx, "k", 0)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("got %x, want %x", got, payload)
	}
}

func TestBunStore_MissOnAbsentKey(t *testing.T) {
	store, _ := newTestBunStore(t)
	if _, err := store.Get(context.Background(), "absent", 0); !errors.Is(err, cache.ErrMiss) {
		t.Errorf("err = %v, want ErrMiss", err)
	}
}

func TestBunStore_UpsertReplacesAtomically(t *testing.T) {
	store, clock := newTestBunStore(t)
	ctx := context.Background()

	_ = store.Set(ctx, "k", []byte("old"), time.Hour)
	clock.advance(time.Minute)
	_ = store.Set(ctx, "k", []byte("new"), 0)

	got, err := store.Get(ctx, "k", 0)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "new" {
		t.Errorf("got %q, want replacement value", got)
	}

	// Replacement resets created_at: a tight freshness bound accepts it.
	if _, err := store.Get(ctx, "k", 30*time.Second); err != nil {
		t.Errorf("replaced entry reported stale: %v", err)
	}
}

func TestBunStore_TTLExpiry(t *testing.T) {
	store, clock := newTestBunStore(t)
	ctx := context.Background()

	_ = store.Set(ctx, "k", []byte("v"), 10*time.Second)
	if _, err := store.Get(ctx, "k", 0); err != nil {
		t.Fatalf("fresh entry missed: %v", err)
	}

	clock.advance(11 * time.Second)
	if _, err := store.Get(ctx, "k", 0); !errors.Is(err, cache.ErrMiss) {
		t.Errorf("expired entry served, err = %v", err)
	}
}

func TestBunStore_ReadTimeFreshnessOverride(t *testing.T) {
	store, clock := newTestBunStore(t)
	ctx := context.Background()

	_ = store.Set(ctx, "k", []byte("v"), 0)
	if _, err := store.Get(ctx, "k", 5*time.Second); err != nil {
		t.Fatalf("fresh read missed: %v", err)
	}

	clock.advance(6 * time.Second)
	if _, err := store.Get(ctx, "k", 5*time.Second); !errors.Is(err, cache.ErrMiss) {
		t.Errorf("stale read served, err = %v", err)
	}
	if _, err := store.Get(ctx, "k", 0); err != nil {
		t.Errorf("unbounded read missed: %v", err)
	}
}

func TestBunStore_InvalidatePatternScoping(t *testing.T) {
	store, _ := newTestBunStore(t)
	ctx := context.Background()

	_ = store.Set(ctx, "query::tasks::aa", []byte("x"), 0)
	_ = store.Set(ctx, "query::notes::bb", []byte("y"), 0)
	_ = store.Set(ctx, "record::42", []byte("z"), 0)

	if err := store.InvalidatePattern(ctx, "query::*"); err != nil {
		t.Fatalf("invalidate pattern: %v", err)
	}

	for _, key := range []string{"query::tasks::aa", "query::notes::bb"} {
		if _, err := store.Get(ctx, key, 0); !errors.Is(err, cache.ErrMiss) {
			t.Errorf("%s survived pattern invalidation", key)
		}
	}
	if _, err := store.Get(ctx, "record::42", 0); err != nil {
		t.Errorf("record entry lost to query invalidation: %v", err)
	}
}

func TestBunStore_LikeMetacharactersStayLiteral(t *testing.T) {
	store, _ := newTestBunStore(t)
	ctx := context.Background()

	_ = store.Set(ctx, "record::a_b", []byte("1"), 0)
	_ = store.Set(ctx, "record::axb", []byte("2"), 0)

	// The underscore in the pattern is literal, not a LIKE wildcard.
	if err := store.InvalidatePattern(ctx, "record::a_b"); err != nil {
		t.Fatalf("invalidate pattern: %v", err)
	}
	if _, err := store.Get(ctx, "record::a_b", 0); !errors.Is(err, cache.ErrMiss) {
		t.Error("literal match not removed")
	}
	if _, err := store.Get(ctx, "record::axb", 0); err != nil {
		t.Errorf("wildcard leak removed unrelated key: %v", err)
	}
}

func TestBunStore_InvalidateAndClear(t *testing.T) {
	store, _ := newTestBunStore(t)
	ctx := context.Background()

	_ = store.Set(ctx, "a", []byte("1"), 0)
	_ = store.Set(ctx, "b", []byte("2"), 0)

	if err := store.Invalidate(ctx, "a"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := store.Get(ctx, "a", 0); !errors.Is(err, cache.ErrMiss) {
		t.Error("entry survived invalidation")
	}
	if err := store.Invalidate(ctx, "absent"); err != nil {
		t.Errorf("invalidating absent key: %v", err)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := store.Get(ctx, "b", 0); !errors.Is(err, cache.ErrMiss) {
		t.Error("entry survived clear")
	}
}

func TestBunStore_SweepExpired(t *testing.T) {
	store, clock := newTestBunStore(t)
	ctx := context.Background()

	_ = store.Set(ctx, "short", []byte("1"), 5*time.Second)
	_ = store.Set(ctx, "long", []byte("2"), time.Hour)
	_ = store.Set(ctx, "forever", []byte("3"), 0)

	clock.advance(10 * time.Second)
	if err := store.SweepExpired(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	if _, err := store.Get(ctx, "short", 0); !errors.Is(err, cache.ErrMiss) {
		t.Error("expired entry survived the sweep")
	}
	if _, err := store.Get(ctx, "long", 0); err != nil {
		t.Errorf("live entry swept: %v", err)
	}
	if _, err := store.Get(ctx, "forever", 0); err != nil {
		t.Errorf("no-expiry entry swept: %v", err)
	}
}
