package queryclient

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-remote-query-cache/remote"
)

// UpdateRequest is one item of a batch update.
type UpdateRequest struct {
	ID      string
	Changes map[string]any
}

// BatchResult is the outcome of one batch item. Err is nil on success.
type BatchResult struct {
	ID     string
	Record remote.Record
	Err    error
}

// Succeeded reports whether the item's update went through.
func (r BatchResult) Succeeded() bool {
	return r.Err == nil
}

// BatchUpdate applies updates strictly in order, each through the
// single-write path so every item gets its own retry budget and its own
// post-success invalidation. A fixed delay separates items on top of
// the throttle. One item's failure never stops the rest; the returned
// slice always has one result per request, in request order.
func (c *Client) BatchUpdate(ctx context.Context, updates []UpdateRequest) []BatchResult {
	batchID := uuid.NewString()
	total := len(updates)
	logger := c.logger.With(zap.String("batch_id", batchID))
	logger.Info("starting batch update", zap.Int("total", total))

	results := make([]BatchResult, 0, total)
	for i, update := range updates {
		logger.Info("batch item",
			zap.Int("index", i+1),
			zap.Int("total", total),
			zap.String("id", update.ID),
		)

		record, err := c.Update(ctx, update.ID, update.Changes)
		if err != nil {
			logger.Error("batch item failed",
				zap.String("id", update.ID),
				zap.String("kind", remote.KindOf(err).String()),
				zap.Error(err),
			)
		}
		results = append(results, BatchResult{ID: update.ID, Record: record, Err: err})

		if i < total-1 && c.opts.BatchDelay > 0 {
			if err := c.sleep(ctx, c.opts.BatchDelay); err != nil {
				// Cancelled mid-batch: report the remaining items as
				// failed rather than dropping them from the result.
				for _, rest := range updates[i+1:] {
					results = append(results, BatchResult{
						ID:  rest.ID,
						Err: remote.NewError(remote.KindFatal, "batch_update", err),
					})
				}
				break
			}
		}
	}

	succeeded := 0
	for _, r := range results {
		if r.Succeeded() {
			succeeded++
		}
	}
	logger.Info("batch update complete",
		zap.Int("succeeded", succeeded),
		zap.Int("total", total),
	)
	return results
}
