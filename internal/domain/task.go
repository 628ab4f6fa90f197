package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the status of an asynchronous task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// IsTerminal returns true when no further transitions are expected
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// Valid reports whether s is a known status
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusProcessing, TaskStatusCompleted, TaskStatusFailed:
		return true
	}
	return false
}

// TaskRecord is the tracked state of a task. Each transition overwrites the
// previous record.
type TaskRecord struct {
	TaskID    string         `json:"task_id"`
	Status    TaskStatus     `json:"status"`
	Metadata  map[string]any `json:"metadata"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewTaskID generates a task identifier
func NewTaskID() string {
	return uuid.NewString()
}

// Task metadata keys
const (
	TaskMetaURL         = "url"
	TaskMetaPlatform    = "platform"
	TaskMetaTitle       = "title"
	TaskMetaCached      = "cached"
	TaskMetaSnapshotKey = "snapshot_key"
	TaskMetaWorkflowID  = "workflow_id"
	TaskMetaError       = "error"
	TaskMetaMessage     = "message"
)
