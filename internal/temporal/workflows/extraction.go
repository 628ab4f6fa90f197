package workflows

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/D3nams/vidnet-sub001/internal/domain"
	"github.com/D3nams/vidnet-sub001/internal/temporal/activities"
)

// WorkflowIDPrefix prefixes the workflow ID of every extraction task
const WorkflowIDPrefix = "metadata-extraction-"

// WorkflowID returns the workflow ID for a task
func WorkflowID(taskID string) string {
	return WorkflowIDPrefix + taskID
}

// MetadataExtractionInput holds workflow input
type MetadataExtractionInput struct {
	TaskID string `json:"taskId"`
	URL    string `json:"url"`
}

// MetadataExtractionOutput holds workflow output
type MetadataExtractionOutput struct {
	Status      domain.TaskStatus `json:"status"`
	Platform    string            `json:"platform,omitempty"`
	Title       string            `json:"title,omitempty"`
	Cached      bool              `json:"cached"`
	SnapshotKey string            `json:"snapshotKey,omitempty"`
	ErrorKind   string            `json:"errorKind,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// MetadataExtractionWorkflow extracts metadata for a URL in the background
// and tracks the task status as it goes
func MetadataExtractionWorkflow(ctx workflow.Context, input MetadataExtractionInput) (*MetadataExtractionOutput, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting metadata extraction workflow", "taskId", input.TaskID)

	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		HeartbeatTimeout:    20 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	output := &MetadataExtractionOutput{
		Status: domain.TaskStatusProcessing,
	}
	defer func() {
		// Disconnected so the final status is written even if the workflow is cancelled
		finalizeCtx, _ := workflow.NewDisconnectedContext(ctx)
		finalizeOptions := workflow.ActivityOptions{
			StartToCloseTimeout: 30 * time.Second,
			RetryPolicy: &temporal.RetryPolicy{
				InitialInterval:    time.Second,
				BackoffCoefficient: 2.0,
				MaximumInterval:    10 * time.Second,
				MaximumAttempts:    5,
			},
		}
		finalizeCtx = workflow.WithActivityOptions(finalizeCtx, finalizeOptions)

		if output.Status != domain.TaskStatusCompleted {
			output.Status = domain.TaskStatusFailed
		}
		_ = workflow.ExecuteActivity(finalizeCtx, "FinalizeTask", activities.FinalizeTaskInput{
			TaskID:      input.TaskID,
			URL:         input.URL,
			Status:      output.Status,
			Platform:    output.Platform,
			Title:       output.Title,
			Cached:      output.Cached,
			SnapshotKey: output.SnapshotKey,
			ErrorKind:   output.ErrorKind,
			Error:       output.Error,
		}).Get(finalizeCtx, nil)
	}()

	taskInput := activities.TaskInput{TaskID: input.TaskID, URL: input.URL}

	// Step 1: Mark processing
	if err := workflow.ExecuteActivity(ctx, "MarkTaskProcessing", taskInput).Get(ctx, nil); err != nil {
		logger.Warn("Failed to mark task processing", "error", err)
	}

	// Step 2: Extract metadata
	var extractOutput *activities.ExtractOutput
	err := workflow.ExecuteActivity(ctx, "ExtractMetadata", taskInput).Get(ctx, &extractOutput)
	if err != nil {
		output.Status = domain.TaskStatusFailed
		output.ErrorKind, output.Error = failureOf(err)
		return output, err
	}
	output.Platform = extractOutput.Metadata.Platform
	output.Title = extractOutput.Metadata.Title
	output.Cached = extractOutput.Cached

	// Step 3: Export snapshot (optional, non-blocking)
	var snapshotOutput *activities.SnapshotOutput
	err = workflow.ExecuteActivity(ctx, "ExportSnapshot", activities.SnapshotInput{
		TaskID:   input.TaskID,
		Metadata: extractOutput.Metadata,
	}).Get(ctx, &snapshotOutput)
	if err != nil {
		logger.Warn("Snapshot export failed", "error", err)
	} else if snapshotOutput != nil {
		output.SnapshotKey = snapshotOutput.Key
	}

	output.Status = domain.TaskStatusCompleted
	logger.Info("Metadata extraction workflow completed",
		"taskId", input.TaskID,
		"platform", output.Platform,
		"cached", output.Cached)

	return output, nil
}

// failureOf returns the error kind and message carried by an activity failure
func failureOf(err error) (string, string) {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Type(), appErr.Error()
	}
	var timeoutErr *temporal.TimeoutError
	if errors.As(err, &timeoutErr) {
		return string(domain.ErrorKindTimeout), "Metadata extraction timed out"
	}
	return string(domain.ErrorKindInternal), err.Error()
}
