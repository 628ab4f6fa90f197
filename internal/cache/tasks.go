package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/D3nams/vidnet-sub001/internal/domain"
)

// TaskTracker records asynchronous task state on the cache substrate
type TaskTracker struct {
	cache *Cache
	now   func() time.Time
}

// NewTaskTracker creates a tracker backed by c
func NewTaskTracker(c *Cache) *TaskTracker {
	return &TaskTracker{cache: c, now: time.Now}
}

// Track overwrites the record of a task. It reports whether the write
// succeeded.
func (t *TaskTracker) Track(ctx context.Context, taskID string, status domain.TaskStatus, metadata map[string]any) bool {
	if !status.Valid() {
		t.cache.logger.Warn("refusing to track unknown task status", zap.String("taskId", taskID), zap.String("status", string(status)))
		return false
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	record := domain.TaskRecord{
		TaskID:    taskID,
		Status:    status,
		Metadata:  metadata,
		UpdatedAt: t.now().UTC(),
	}
	return t.cache.Put(ctx, NamespaceTask, taskID, record, t.cache.opts.TaskTTL)
}

// Status returns the latest record of a task. Missing, expired and
// unreadable records all report false.
func (t *TaskTracker) Status(ctx context.Context, taskID string) (*domain.TaskRecord, bool) {
	b, outcome := t.cache.fetch(ctx, t.cache.Key(NamespaceTask, taskID))
	switch outcome {
	case Failed:
		t.cache.errors.Add(1)
		return nil, false
	case Miss:
		return nil, false
	}

	var record domain.TaskRecord
	if err := json.Unmarshal(b, &record); err != nil {
		t.cache.logger.Warn("failed to decode task record", zap.String("taskId", taskID), zap.Error(err))
		t.cache.errors.Add(1)
		return nil, false
	}
	return &record, true
}

// ClearAll removes every task record
func (t *TaskTracker) ClearAll(ctx context.Context) int {
	return t.cache.Invalidate(ctx, string(NamespaceTask)+"*")
}
