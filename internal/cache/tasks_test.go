package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/D3nams/vidnet-sub001/internal/cache"
	"github.com/D3nams/vidnet-sub001/internal/domain"
)

func TestTaskTracker_Transitions(t *testing.T) {
	c, mr := newTestCache(t)
	tracker := cache.NewTaskTracker(c)
	ctx := context.Background()

	require.True(t, tracker.Track(ctx, "task-1", domain.TaskStatusPending, nil))
	rec, ok := tracker.Status(ctx, "task-1")
	require.True(t, ok)
	assert.Equal(t, "task-1", rec.TaskID)
	assert.Equal(t, domain.TaskStatusPending, rec.Status)
	assert.NotNil(t, rec.Metadata)
	assert.False(t, rec.UpdatedAt.IsZero())

	require.True(t, tracker.Track(ctx, "task-1", domain.TaskStatusCompleted, map[string]any{
		domain.TaskMetaTitle: "Clip",
	}))
	rec, ok = tracker.Status(ctx, "task-1")
	require.True(t, ok)
	assert.Equal(t, domain.TaskStatusCompleted, rec.Status)
	assert.Equal(t, "Clip", rec.Metadata[domain.TaskMetaTitle])

	assert.Equal(t, 30*time.Minute, mr.TTL("task:task-1"))

	// task reads are not part of the metadata hit/miss stats
	assert.Equal(t, int64(0), c.Stats().TotalRequests)
}

func TestTaskTracker_Expiry(t *testing.T) {
	c, mr := newTestCache(t)
	tracker := cache.NewTaskTracker(c)
	ctx := context.Background()

	require.True(t, tracker.Track(ctx, "task-2", domain.TaskStatusProcessing, nil))
	mr.FastForward(31 * time.Minute)

	_, ok := tracker.Status(ctx, "task-2")
	assert.False(t, ok)
}

func TestTaskTracker_CorruptRecord(t *testing.T) {
	c, mr := newTestCache(t)
	tracker := cache.NewTaskTracker(c)

	require.NoError(t, mr.Set("task:broken", "{not json"))

	_, ok := tracker.Status(context.Background(), "broken")
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Stats().Errors)
}

func TestTaskTracker_ClearAll(t *testing.T) {
	c, _ := newTestCache(t)
	tracker := cache.NewTaskTracker(c)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.True(t, tracker.Track(ctx, id, domain.TaskStatusPending, nil))
	}
	require.True(t, c.PutMetadata(ctx, "https://vimeo.com/1", &domain.VideoMetadata{}))

	assert.Equal(t, 3, tracker.ClearAll(ctx))
	_, outcome := c.GetMetadata(ctx, "https://vimeo.com/1")
	assert.Equal(t, cache.Hit, outcome)
}

func TestTaskTracker_RejectsUnknownStatus(t *testing.T) {
	c, _ := newTestCache(t)
	tracker := cache.NewTaskTracker(c)
	ctx := context.Background()

	assert.False(t, tracker.Track(ctx, "task-3", domain.TaskStatus("queued"), nil))
	_, ok := tracker.Status(ctx, "task-3")
	assert.False(t, ok)
}
