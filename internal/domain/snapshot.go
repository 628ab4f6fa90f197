package domain

import (
	"fmt"
	"time"
)

// Snapshot is a metadata document exported to object storage by a task
type Snapshot struct {
	TaskID    string         `json:"task_id"`
	Bucket    string         `json:"bucket"`
	Key       string         `json:"key"`
	SizeBytes int64          `json:"size_bytes,omitempty"`
	Metadata  *VideoMetadata `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
}

// SnapshotKey returns the object key for a task's metadata document
func SnapshotKey(platform, taskID string) string {
	if platform == "" {
		platform = "unknown"
	}
	return fmt.Sprintf("metadata/%s/%s.json", platform, taskID)
}
