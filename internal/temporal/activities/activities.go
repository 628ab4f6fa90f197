package activities

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"

	"github.com/D3nams/vidnet-sub001/internal/cache"
	"github.com/D3nams/vidnet-sub001/internal/domain"
	"github.com/D3nams/vidnet-sub001/internal/metadata"
	"github.com/D3nams/vidnet-sub001/internal/metrics"
	"github.com/D3nams/vidnet-sub001/internal/storage/s3"
)

// Activities holds all activity implementations
type Activities struct {
	metadata *metadata.Service
	tasks    *cache.TaskTracker
	s3Client *s3.Client
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewActivities creates a new activities instance. A nil s3Client disables
// snapshot export.
func NewActivities(
	svc *metadata.Service,
	tasks *cache.TaskTracker,
	s3Client *s3.Client,
	logger *zap.Logger,
	m *metrics.Metrics,
) *Activities {
	return &Activities{
		metadata: svc,
		tasks:    tasks,
		s3Client: s3Client,
		logger:   logger,
		metrics:  m,
	}
}

// TaskInput holds common input for activities
type TaskInput struct {
	TaskID string `json:"taskId"`
	URL    string `json:"url"`
}

// MarkTaskProcessing records that the worker picked up the task
func (a *Activities) MarkTaskProcessing(ctx context.Context, input TaskInput) error {
	logger := a.logger.With(zap.String("taskId", input.TaskID), zap.String("activity", "MarkTaskProcessing"))

	info := activity.GetInfo(ctx)
	ok := a.tasks.Track(ctx, input.TaskID, domain.TaskStatusProcessing, map[string]any{
		domain.TaskMetaURL:        input.URL,
		domain.TaskMetaWorkflowID: info.WorkflowExecution.ID,
	})
	if !ok {
		logger.Warn("failed to record task status")
	}
	a.metrics.IncrementTasksTotal(string(domain.TaskStatusProcessing))
	return nil
}

// ExtractOutput holds metadata extraction output
type ExtractOutput struct {
	Metadata *domain.VideoMetadata `json:"metadata"`
	Cached   bool                  `json:"cached"`
}

// ExtractMetadata resolves the task URL through the metadata service
func (a *Activities) ExtractMetadata(ctx context.Context, input TaskInput) (*ExtractOutput, error) {
	logger := a.logger.With(zap.String("taskId", input.TaskID), zap.String("activity", "ExtractMetadata"))

	stopHeartbeat := startPeriodicHeartbeat(ctx, 5*time.Second, "extracting metadata")
	meta, cached, err := a.metadata.GetMetadata(ctx, input.URL)
	stopHeartbeat()
	if err != nil {
		return nil, a.recordError(logger, err)
	}

	logger.Info("metadata extracted",
		zap.String("platform", meta.Platform),
		zap.Bool("cached", cached),
		zap.Int("qualities", len(meta.AvailableQualities)),
	)

	return &ExtractOutput{Metadata: meta, Cached: cached}, nil
}

// SnapshotInput holds snapshot export input
type SnapshotInput struct {
	TaskID   string                `json:"taskId"`
	Metadata *domain.VideoMetadata `json:"metadata"`
}

// SnapshotOutput holds snapshot export output. Key is empty when export is
// disabled.
type SnapshotOutput struct {
	Bucket    string `json:"bucket,omitempty"`
	Key       string `json:"key,omitempty"`
	SizeBytes int64  `json:"sizeBytes,omitempty"`
}

// ExportSnapshot writes the task's metadata document to object storage
func (a *Activities) ExportSnapshot(ctx context.Context, input SnapshotInput) (*SnapshotOutput, error) {
	if a.s3Client == nil {
		return &SnapshotOutput{}, nil
	}
	if input.Metadata == nil {
		return nil, temporal.NewNonRetryableApplicationError("snapshot has no metadata", string(domain.ErrorKindInternal), nil)
	}
	logger := a.logger.With(zap.String("taskId", input.TaskID), zap.String("activity", "ExportSnapshot"))

	snapshot := domain.Snapshot{
		TaskID:    input.TaskID,
		Bucket:    a.s3Client.Bucket(),
		Key:       domain.SnapshotKey(input.Metadata.Platform, input.TaskID),
		Metadata:  input.Metadata,
		CreatedAt: time.Now().UTC(),
	}

	result, err := a.s3Client.PutJSON(ctx, snapshot.Key, snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to export snapshot: %w", err)
	}
	a.metrics.AddSnapshotBytes(float64(result.Size))

	logger.Info("snapshot exported",
		zap.String("bucket", result.Bucket),
		zap.String("key", result.Key),
		zap.Int64("size", result.Size),
	)

	return &SnapshotOutput{Bucket: result.Bucket, Key: result.Key, SizeBytes: result.Size}, nil
}

// FinalizeTaskInput holds the final state of a task
type FinalizeTaskInput struct {
	TaskID      string            `json:"taskId"`
	URL         string            `json:"url"`
	Status      domain.TaskStatus `json:"status"`
	Platform    string            `json:"platform,omitempty"`
	Title       string            `json:"title,omitempty"`
	Cached      bool              `json:"cached"`
	SnapshotKey string            `json:"snapshotKey,omitempty"`
	ErrorKind   string            `json:"errorKind,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// FinalizeTask records the terminal status of a task
func (a *Activities) FinalizeTask(ctx context.Context, input FinalizeTaskInput) error {
	logger := a.logger.With(zap.String("taskId", input.TaskID), zap.String("activity", "FinalizeTask"))
	if !input.Status.IsTerminal() {
		return temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("task %s cannot finish with status %q", input.TaskID, input.Status),
			string(domain.ErrorKindInternal), nil)
	}

	meta := map[string]any{domain.TaskMetaURL: input.URL}
	if input.Status == domain.TaskStatusCompleted {
		meta[domain.TaskMetaPlatform] = input.Platform
		meta[domain.TaskMetaTitle] = input.Title
		meta[domain.TaskMetaCached] = input.Cached
		if input.SnapshotKey != "" {
			meta[domain.TaskMetaSnapshotKey] = input.SnapshotKey
		}
	} else {
		meta[domain.TaskMetaError] = input.ErrorKind
		meta[domain.TaskMetaMessage] = input.Error
	}

	if !a.tasks.Track(ctx, input.TaskID, input.Status, meta) {
		return fmt.Errorf("failed to record final status of task %s", input.TaskID)
	}
	a.metrics.IncrementTasksTotal(string(input.Status))

	logger.Info("task finalized", zap.String("status", string(input.Status)))
	return nil
}

// startPeriodicHeartbeat starts a goroutine that sends heartbeats every interval
// Returns a cancel function to stop the goroutine
func startPeriodicHeartbeat(ctx context.Context, interval time.Duration, details interface{}) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				activity.RecordHeartbeat(ctx, details)
			}
		}
	}()
	return func() { close(done) }
}

// recordError converts a metadata failure into an activity error. Failures
// clients could not fix by retrying are not retried by Temporal either.
func (a *Activities) recordError(logger *zap.Logger, err error) error {
	derr := domain.AsError(err)
	logger.Warn("metadata extraction failed",
		zap.String("kind", string(derr.Kind)),
		zap.Error(err),
	)

	if derr.Retryable() {
		return temporal.NewApplicationError(derr.Message, string(derr.Kind))
	}
	return temporal.NewNonRetryableApplicationError(derr.Message, string(derr.Kind), nil)
}
