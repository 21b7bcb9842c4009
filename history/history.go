// Package history is the data-sink collaborator recording task
// completions and estimation accuracy for long-run estimation learning.
// It shares the durable cache's database but is not part of the
// cache/retry engine: the query layer only ever writes into it.
package history

import (
	"context"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// CompletionRecord is one finished task, as reported by the caller.
type CompletionRecord struct {
	bun.BaseModel `bun:"table:task_history,alias:th"`

	ID          int64     `bun:"id,pk,autoincrement"`
	TaskID      string    `bun:"task_id,notnull"`
	TaskName    string    `bun:"task_name"`
	Status      string    `bun:"status"`
	Priority    string    `bun:"priority"`
	Category    string    `bun:"category"`
	Sprint      string    `bun:"sprint"`
	CompletedAt time.Time `bun:"completed_at,nullzero"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
}

// EstimationRecord captures estimated versus actual effort for one
// task; Accuracy is actual/estimated.
type EstimationRecord struct {
	bun.BaseModel `bun:"table:estimation_history,alias:eh"`

	ID             int64     `bun:"id,pk,autoincrement"`
	TaskID         string    `bun:"task_id,notnull"`
	TaskName       string    `bun:"task_name"`
	Category       string    `bun:"category"`
	Complexity     string    `bun:"complexity"`
	EstimatedHours float64   `bun:"estimated_hours"`
	ActualHours    float64   `bun:"actual_hours"`
	Accuracy       float64   `bun:"accuracy"`
	CompletedAt    time.Time `bun:"completed_at,notnull"`
}

// Completion is the input shape RecordCompletion accepts.
type Completion struct {
	TaskID         string
	TaskName       string
	Status         string
	Priority       string
	Category       string
	Sprint         string
	Complexity     string
	EstimatedHours float64
	ActualHours    float64
}

// Sink writes completion and estimation rows. Safe for concurrent use;
// all serialization happens in the database.
type Sink struct {
	db     *bun.DB
	logger *zap.Logger

	now func() time.Time
}

// NewSink creates the sink tables if they do not exist.
func NewSink(ctx context.Context, db *bun.DB, logger *zap.Logger) (*Sink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, model := range []any{(*CompletionRecord)(nil), (*EstimationRecord)(nil)} {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return nil, err
		}
	}
	return &Sink{db: db, logger: logger, now: time.Now}, nil
}

// RecordCompletion stores one task completion. When both hour figures
// are present an estimation row is written as well.
func (s *Sink) RecordCompletion(ctx context.Context, c Completion) error {
	now := s.now()

	if c.EstimatedHours > 0 && c.ActualHours > 0 {
		est := &EstimationRecord{
			TaskID:         c.TaskID,
			TaskName:       c.TaskName,
			Category:       c.Category,
			Complexity:     c.Complexity,
			EstimatedHours: c.EstimatedHours,
			ActualHours:    c.ActualHours,
			Accuracy:       c.ActualHours / c.EstimatedHours,
			CompletedAt:    now,
		}
		if _, err := s.db.NewInsert().Model(est).Exec(ctx); err != nil {
			return err
		}
	}

	row := &CompletionRecord{
		TaskID:      c.TaskID,
		TaskName:    c.TaskName,
		Status:      c.Status,
		Priority:    c.Priority,
		Category:    c.Category,
		Sprint:      c.Sprint,
		CompletedAt: now,
		CreatedAt:   now,
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return err
	}

	s.logger.Debug("recorded completion", zap.String("task_id", c.TaskID))
	return nil
}

// EstimationPatterns returns the most recent estimation rows, newest
// first, optionally narrowed by category and complexity. At most 50
// rows are returned.
func (s *Sink) EstimationPatterns(ctx context.Context, category, complexity string) ([]EstimationRecord, error) {
	q := s.db.NewSelect().Model((*EstimationRecord)(nil))
	if category != "" {
		q = q.Where("eh.category = ?", category)
	}
	if complexity != "" {
		q = q.Where("eh.complexity = ?", complexity)
	}

	var rows []EstimationRecord
	if err := q.Order("completed_at DESC").Limit(50).Scan(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
