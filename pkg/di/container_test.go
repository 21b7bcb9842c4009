package di

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/goliatone/go-remote-query-cache/config"
	"github.com/goliatone/go-remote-query-cache/history"
	"github.com/goliatone/go-remote-query-cache/pkg/testsupport"
	"github.com/goliatone/go-remote-query-cache/queryclient"
	"github.com/goliatone/go-remote-query-cache/remote"
)

func memoryConfig() config.Config {
	cfg := config.Default()
	cfg.CacheDriver = config.DriverMemory
	cfg.CacheDSN = ""
	return cfg
}

func TestNew_MemoryDriver(t *testing.T) {
	c, err := New(context.Background(), memoryConfig(), &testsupport.ScriptedRemote{}, zap.NewNop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer c.Close()

	if c.Client() == nil {
		t.Error("Client() = nil")
	}
	if c.Store() == nil {
		t.Error("Store() = nil")
	}
	if c.Throttle() == nil || c.Executor() == nil {
		t.Error("throttle/executor not wired")
	}
	// The memory store has no database for the sink to share.
	if c.History() != nil {
		t.Error("History() != nil for memory driver")
	}
}

func TestNew_SQLiteDriverSharesDatabaseWithHistory(t *testing.T) {
	cfg := config.Default()
	cfg.CacheDSN = filepath.Join(t.TempDir(), "cache.db")

	c, err := New(context.Background(), cfg, &testsupport.ScriptedRemote{}, zap.NewNop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer c.Close()

	sink := c.History()
	if sink == nil {
		t.Fatal("History() = nil with sqlite driver and history enabled")
	}
	err = sink.RecordCompletion(context.Background(), history.Completion{TaskID: "task-1", Status: "Done"})
	if err != nil {
		t.Errorf("record through shared db: %v", err)
	}
}

func TestNew_HistoryDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.CacheDSN = filepath.Join(t.TempDir(), "cache.db")
	cfg.HistoryEnabled = false

	c, err := New(context.Background(), cfg, &testsupport.ScriptedRemote{}, zap.NewNop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer c.Close()

	if c.History() != nil {
		t.Error("History() != nil with history disabled")
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := memoryConfig()
	cfg.MaxRequestsPerSecond = 0

	if _, err := New(context.Background(), cfg, &testsupport.ScriptedRemote{}, zap.NewNop()); err == nil {
		t.Error("expected validation error")
	}
}

func TestNew_RoundTripThroughClient(t *testing.T) {
	svc := &testsupport.ScriptedRemote{}
	svc.QueryPages = []remote.Page{{Records: []remote.Record{{"id": "r1"}}}}

	c, err := New(context.Background(), memoryConfig(), svc, zap.NewNop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer c.Close()

	records, err := c.Client().Query(context.Background(), queryclient.QueryRequest{Dataset: "tasks"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(records) != 1 || records[0].ID() != "r1" {
		t.Errorf("records = %+v", records)
	}
}
