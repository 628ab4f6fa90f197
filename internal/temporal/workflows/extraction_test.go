package workflows_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/D3nams/vidnet-sub001/internal/domain"
	"github.com/D3nams/vidnet-sub001/internal/temporal/activities"
	"github.com/D3nams/vidnet-sub001/internal/temporal/workflows"
)

func sampleMetadata() *domain.VideoMetadata {
	return &domain.VideoMetadata{
		Title:              "Clip",
		Thumbnail:          domain.PlaceholderThumbnail,
		Platform:           "vimeo",
		AvailableQualities: domain.FallbackQualities(),
		OriginalURL:        "https://vimeo.com/42",
	}
}

func newEnv(t *testing.T) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterActivity(&activities.Activities{})
	return env
}

func TestMetadataExtractionWorkflow_Completed(t *testing.T) {
	env := newEnv(t)

	var finalized activities.FinalizeTaskInput
	env.OnActivity("MarkTaskProcessing", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("ExtractMetadata", mock.Anything, activities.TaskInput{TaskID: "t1", URL: "https://vimeo.com/42"}).
		Return(&activities.ExtractOutput{Metadata: sampleMetadata(), Cached: true}, nil)
	env.OnActivity("ExportSnapshot", mock.Anything, mock.Anything).
		Return(&activities.SnapshotOutput{Bucket: "b", Key: "metadata/vimeo/t1.json"}, nil)
	env.OnActivity("FinalizeTask", mock.Anything, mock.Anything).
		Return(func(ctx context.Context, in activities.FinalizeTaskInput) error {
			finalized = in
			return nil
		})

	env.ExecuteWorkflow(workflows.MetadataExtractionWorkflow, workflows.MetadataExtractionInput{
		TaskID: "t1",
		URL:    "https://vimeo.com/42",
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out workflows.MetadataExtractionOutput
	require.NoError(t, env.GetWorkflowResult(&out))
	assert.Equal(t, domain.TaskStatusCompleted, out.Status)
	assert.Equal(t, "vimeo", out.Platform)
	assert.True(t, out.Cached)
	assert.Equal(t, "metadata/vimeo/t1.json", out.SnapshotKey)

	assert.Equal(t, "t1", finalized.TaskID)
	assert.Equal(t, domain.TaskStatusCompleted, finalized.Status)
	assert.Equal(t, "Clip", finalized.Title)
	assert.Equal(t, "metadata/vimeo/t1.json", finalized.SnapshotKey)
	env.AssertExpectations(t)
}

func TestMetadataExtractionWorkflow_SnapshotFailureIsTolerated(t *testing.T) {
	env := newEnv(t)

	var finalized activities.FinalizeTaskInput
	env.OnActivity("MarkTaskProcessing", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("ExtractMetadata", mock.Anything, mock.Anything).
		Return(&activities.ExtractOutput{Metadata: sampleMetadata()}, nil)
	env.OnActivity("ExportSnapshot", mock.Anything, mock.Anything).
		Return(nil, temporal.NewNonRetryableApplicationError("bucket missing", "s3", nil))
	env.OnActivity("FinalizeTask", mock.Anything, mock.Anything).
		Return(func(ctx context.Context, in activities.FinalizeTaskInput) error {
			finalized = in
			return nil
		})

	env.ExecuteWorkflow(workflows.MetadataExtractionWorkflow, workflows.MetadataExtractionInput{TaskID: "t2", URL: "https://vimeo.com/42"})

	require.NoError(t, env.GetWorkflowError())
	assert.Equal(t, domain.TaskStatusCompleted, finalized.Status)
	assert.Empty(t, finalized.SnapshotKey)
}

func TestMetadataExtractionWorkflow_Failed(t *testing.T) {
	env := newEnv(t)

	var finalized activities.FinalizeTaskInput
	env.OnActivity("MarkTaskProcessing", mock.Anything, mock.Anything).Return(errors.New("cache down"))
	env.OnActivity("ExtractMetadata", mock.Anything, mock.Anything).
		Return(nil, temporal.NewNonRetryableApplicationError("Video not found or is not accessible", string(domain.ErrorKindVideoNotFound), nil))
	env.OnActivity("FinalizeTask", mock.Anything, mock.Anything).
		Return(func(ctx context.Context, in activities.FinalizeTaskInput) error {
			finalized = in
			return nil
		})

	env.ExecuteWorkflow(workflows.MetadataExtractionWorkflow, workflows.MetadataExtractionInput{TaskID: "t3", URL: "https://vimeo.com/404"})

	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())

	assert.Equal(t, "t3", finalized.TaskID)
	assert.Equal(t, domain.TaskStatusFailed, finalized.Status)
	assert.Equal(t, string(domain.ErrorKindVideoNotFound), finalized.ErrorKind)
	assert.Contains(t, finalized.Error, "not accessible")
}

func TestWorkflowID(t *testing.T) {
	assert.Equal(t, "metadata-extraction-abc", workflows.WorkflowID("abc"))
}
