package remote

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-remote-query-cache/throttle"
)

// DefaultMaxAttempts is the total number of attempts Execute makes when
// the executor is built with a non-positive attempt budget.
const DefaultMaxAttempts = 3

// timeoutRetryDelay is the flat wait applied between attempts that
// failed with KindTimeout.
const timeoutRetryDelay = time.Second

// CallFn is one remote attempt. Execute invokes it after every throttle
// grant and inspects its error to decide whether to retry.
type CallFn func(ctx context.Context) (any, error)

// Executor runs remote calls through a shared throttle and retries
// transient failures with backoff. Safe for concurrent use; the retry
// budget is per call, not per executor.
type Executor struct {
	throttle    *throttle.Throttle
	maxAttempts int
	logger      *zap.Logger

	sleep func(context.Context, time.Duration) error
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithSleepFunc replaces the wait between attempts. Simulations and
// tests use it to observe backoff without consuming wall time.
func WithSleepFunc(sleep func(context.Context, time.Duration) error) ExecutorOption {
	return func(e *Executor) { e.sleep = sleep }
}

// NewExecutor creates an Executor that serializes attempts through th.
// maxAttempts is the total attempt budget per call, including the first.
func NewExecutor(th *throttle.Throttle, maxAttempts int, logger *zap.Logger, opts ...ExecutorOption) *Executor {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Executor{
		throttle:    th,
		maxAttempts: maxAttempts,
		logger:      logger,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs fn until it succeeds, fails with a non-retryable error,
// or exhausts the attempt budget. The throttle is re-acquired before
// every attempt, retries included. The first attempt never waits for
// backoff, only for the throttle. An exhausted budget surfaces the last
// attempt's error unchanged, so the caller still sees its kind.
func (e *Executor) Execute(ctx context.Context, op string, fn CallFn) (any, error) {
	var lastErr error

	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		if err := e.throttle.Acquire(ctx); err != nil {
			return nil, NewError(KindFatal, op, err)
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		kind := KindOf(err)
		if !kind.Retryable() || attempt == e.maxAttempts-1 {
			break
		}

		delay := retryDelay(kind, attempt)
		e.logger.Warn("retrying remote call",
			zap.String("op", op),
			zap.String("kind", kind.String()),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", e.maxAttempts),
			zap.Duration("delay", delay),
		)
		if err := e.sleep(ctx, delay); err != nil {
			return nil, NewError(KindFatal, op, err)
		}
	}

	return nil, lastErr
}

// retryDelay picks the wait before re-attempting after a failure on
// 0-indexed attempt i: 2^i seconds for rate limiting, a flat second for
// timeouts.
func retryDelay(kind ErrorKind, attempt int) time.Duration {
	if kind == KindTimeout {
		return timeoutRetryDelay
	}
	return time.Duration(math.Pow(2, float64(attempt))) * time.Second
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
