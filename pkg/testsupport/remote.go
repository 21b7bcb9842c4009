package testsupport

import (
	"context"
	"sync"

	"github.com/goliatone/go-remote-query-cache/remote"
)

// ScriptedRemote implements remote.Service from canned responses and
// records every call it receives, in order.
type ScriptedRemote struct {
	mu    sync.Mutex
	calls []string

	// QueryPages are served one per Query call, in order; the last page
	// keeps being served once the script runs out.
	QueryPages []remote.Page
	QueryErr   error
	queryIdx   int

	GetRecord remote.Record
	GetErr    error

	// UpdateFn decides each Update call's outcome; when nil, Update
	// echoes the id and changes back as the updated record.
	UpdateFn func(id string, changes map[string]any) (remote.Record, error)

	CreateRecord remote.Record
	CreateErr    error

	Schema      map[string]any
	DescribeErr error
}

func (s *ScriptedRemote) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

// Calls returns a copy of the recorded call names.
func (s *ScriptedRemote) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// CallCount returns how many calls named name were recorded.
func (s *ScriptedRemote) CallCount(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == name {
			n++
		}
	}
	return n
}

// Query implements remote.Service.
func (s *ScriptedRemote) Query(ctx context.Context, params remote.QueryParams) (remote.Page, error) {
	s.record("Query")
	if s.QueryErr != nil {
		return remote.Page{}, s.QueryErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.QueryPages) == 0 {
		return remote.Page{}, nil
	}
	idx := s.queryIdx
	if idx >= len(s.QueryPages) {
		idx = len(s.QueryPages) - 1
	}
	s.queryIdx++
	return s.QueryPages[idx], nil
}

// Get implements remote.Service.
func (s *ScriptedRemote) Get(ctx context.Context, id string) (remote.Record, error) {
	s.record("Get")
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	return s.GetRecord, nil
}

// Update implements remote.Service.
func (s *ScriptedRemote) Update(ctx context.Context, id string, changes map[string]any) (remote.Record, error) {
	s.record("Update")
	if s.UpdateFn != nil {
		return s.UpdateFn(id, changes)
	}
	rec := remote.Record{"id": id}
	for k, v := range changes {
		rec[k] = v
	}
	return rec, nil
}

// Create implements remote.Service.
func (s *ScriptedRemote) Create(ctx context.Context, dataset string, changes map[string]any) (remote.Record, error) {
	s.record("Create")
	if s.CreateErr != nil {
		return nil, s.CreateErr
	}
	if s.CreateRecord != nil {
		return s.CreateRecord, nil
	}
	return remote.Record{"id": "created", "dataset": dataset}, nil
}

// Describe implements remote.Service.
func (s *ScriptedRemote) Describe(ctx context.Context, dataset string) (map[string]any, error) {
	s.record("Describe")
	if s.DescribeErr != nil {
		return nil, s.DescribeErr
	}
	return s.Schema, nil
}
