package queryclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-remote-query-cache/cache"
	"github.com/goliatone/go-remote-query-cache/pkg/testsupport"
	"github.com/goliatone/go-remote-query-cache/remote"
)

func seedRecordEntries(t *testing.T, f *clientFixture, ids ...string) {
	t.Helper()
	keys := cache.NewDefaultKeyBuilder()
	for _, id := range ids {
		if err := f.store.Set(context.Background(), keys.RecordKey(id), []byte("cached"), 0); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}
}

func TestBatchUpdate_PartialFailure(t *testing.T) {
	opts := defaultTestOptions()
	opts.BatchDelay = 100 * time.Millisecond
	f := newFixture(t, opts)
	sleeper := testsupport.NewSleepRecorder(nil)
	f.client.sleep = sleeper.Sleep

	seedRecordEntries(t, f, "1", "2", "3")

	fatal := remote.NewError(remote.KindFatal, "update", errors.New("rejected"))
	f.svc.UpdateFn = func(id string, changes map[string]any) (remote.Record, error) {
		if id == "2" {
			return nil, fatal
		}
		return remote.Record{"id": id}, nil
	}

	results := f.client.BatchUpdate(context.Background(), []UpdateRequest{
		{ID: "1", Changes: map[string]any{"status": "Done"}},
		{ID: "2", Changes: map[string]any{"status": "Done"}},
		{ID: "3", Changes: map[string]any{"status": "Done"}},
	})

	if len(results) != 3 {
		t.Fatalf("got %d results, want one per item", len(results))
	}
	if !results[0].Succeeded() || !results[2].Succeeded() {
		t.Error("items 1 and 3 should succeed")
	}
	if results[1].Succeeded() {
		t.Error("item 2 should fail")
	}
	if !errors.Is(results[1].Err, fatal) {
		t.Errorf("item 2 error = %v, want the remote's fatal error", results[1].Err)
	}
	for i, want := range []string{"1", "2", "3"} {
		if results[i].ID != want {
			t.Errorf("result %d id = %q, want %q (order must be preserved)", i, results[i].ID, want)
		}
	}

	// Successful items invalidate their entries; the failed item's entry
	// deliberately survives.
	keys := cache.NewDefaultKeyBuilder()
	if f.store.Has(keys.RecordKey("1")) || f.store.Has(keys.RecordKey("3")) {
		t.Error("successful items' cache entries not invalidated")
	}
	if !f.store.Has(keys.RecordKey("2")) {
		t.Error("failed item's cache entry was invalidated")
	}
}

func TestBatchUpdate_InterItemDelay(t *testing.T) {
	opts := defaultTestOptions()
	opts.BatchDelay = 250 * time.Millisecond
	f := newFixture(t, opts)
	sleeper := testsupport.NewSleepRecorder(nil)
	f.client.sleep = sleeper.Sleep

	f.client.BatchUpdate(context.Background(), []UpdateRequest{
		{ID: "1"}, {ID: "2"}, {ID: "3"},
	})

	// A delay between consecutive items, none after the last.
	slept := sleeper.Durations()
	if len(slept) != 2 {
		t.Fatalf("recorded %d delays, want 2", len(slept))
	}
	for i, d := range slept {
		if d != 250*time.Millisecond {
			t.Errorf("delay %d = %v, want 250ms", i, d)
		}
	}
}

func TestBatchUpdate_EmptyInput(t *testing.T) {
	f := newFixture(t, defaultTestOptions())
	results := f.client.BatchUpdate(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("got %d results for empty input", len(results))
	}
	if got := f.svc.CallCount("Update"); got != 0 {
		t.Errorf("remote saw %d update calls", got)
	}
}

func TestBatchUpdate_EachItemGetsOwnRetryBudget(t *testing.T) {
	f := newFixture(t, defaultTestOptions())
	relaxExecutorSleeps(f.client)
	sleeper := testsupport.NewSleepRecorder(nil)
	f.client.sleep = sleeper.Sleep

	attempts := map[string]int{}
	f.svc.UpdateFn = func(id string, changes map[string]any) (remote.Record, error) {
		attempts[id]++
		return nil, remote.NewError(remote.KindRateLimited, "update", errors.New("429"))
	}

	results := f.client.BatchUpdate(context.Background(), []UpdateRequest{
		{ID: "a"}, {ID: "b"},
	})

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, id := range []string{"a", "b"} {
		if attempts[id] != 3 {
			t.Errorf("item %s got %d attempts, want its own budget of 3", id, attempts[id])
		}
	}
	for i, r := range results {
		if remote.KindOf(r.Err) != remote.KindRateLimited {
			t.Errorf("result %d kind = %v, want rate_limited", i, remote.KindOf(r.Err))
		}
	}
}

func TestBatchUpdate_CancellationReportsRemainder(t *testing.T) {
	opts := defaultTestOptions()
	opts.BatchDelay = 50 * time.Millisecond
	f := newFixture(t, opts)

	ctx, cancel := context.WithCancel(context.Background())
	f.client.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	results := f.client.BatchUpdate(ctx, []UpdateRequest{
		{ID: "1"}, {ID: "2"}, {ID: "3"},
	})
	if len(results) != 3 {
		t.Fatalf("got %d results, want every item accounted for", len(results))
	}
	if !results[0].Succeeded() {
		t.Error("first item should have completed before cancellation")
	}
	for i := 1; i < 3; i++ {
		if results[i].Succeeded() {
			t.Errorf("item %d reported success after cancellation", i)
		}
	}
}
