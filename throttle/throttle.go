// Package throttle enforces a minimum time gap between successive
// permitted actions. One Throttle instance is shared by every caller
// that talks to the same remote, so the spacing guarantee holds across
// the whole process.
package throttle

import (
	"context"
	"sync"
	"time"
)

// Throttle spaces out grants so that no two begin closer together than
// the configured minimum interval. The zero value is not usable; use New.
type Throttle struct {
	mu          sync.Mutex
	minInterval time.Duration
	lastGrant   time.Time

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// New creates a Throttle allowing at most maxRequestsPerSecond grants
// per second. Non-positive rates disable spacing entirely.
func New(maxRequestsPerSecond float64) *Throttle {
	var interval time.Duration
	if maxRequestsPerSecond > 0 {
		interval = time.Duration(float64(time.Second) / maxRequestsPerSecond)
	}
	return &Throttle{
		minInterval: interval,
		now:         time.Now,
		sleep:       sleepContext,
	}
}

// Acquire blocks until at least the minimum interval has passed since
// the previous grant, then records the new grant instant. It fails only
// when ctx is cancelled while waiting; with a background context it
// only ever delays.
func (t *Throttle) Acquire(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Spacing is measured at call-begin: holding the lock across the
	// wait keeps concurrent grants at least minInterval apart.
	if t.minInterval > 0 && !t.lastGrant.IsZero() {
		elapsed := t.now().Sub(t.lastGrant)
		if wait := t.minInterval - elapsed; wait > 0 {
			if err := t.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}

	t.lastGrant = t.now()
	return nil
}

// MinInterval returns the enforced gap between grants.
func (t *Throttle) MinInterval() time.Duration {
	return t.minInterval
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
