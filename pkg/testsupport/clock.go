// Package testsupport provides the hand-rolled doubles the query
// layer's tests share: a manual clock, a scripted remote service, and a
// map-backed cache store whose notion of "now" the test controls.
package testsupport

import (
	"context"
	"sync"
	"time"
)

// Clock is a manually advanced clock for staleness and spacing tests.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

// NewClock starts a clock at the given instant.
func NewClock(start time.Time) *Clock {
	return &Clock{t: start}
}

// Now returns the clock's current instant.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// SleepRecorder captures requested sleep durations instead of waiting,
// advancing an optional clock so time-dependent logic observes the
// delay.
type SleepRecorder struct {
	mu    sync.Mutex
	clock *Clock
	Slept []time.Duration
}

// NewSleepRecorder creates a recorder; clock may be nil.
func NewSleepRecorder(clock *Clock) *SleepRecorder {
	return &SleepRecorder{clock: clock}
}

// Sleep records d and returns immediately.
func (r *SleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.Slept = append(r.Slept, d)
	r.mu.Unlock()
	if r.clock != nil {
		r.clock.Advance(d)
	}
	return ctx.Err()
}

// Durations returns a copy of the recorded sleeps.
func (r *SleepRecorder) Durations() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.Slept...)
}
