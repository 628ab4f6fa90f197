package metadata_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/D3nams/vidnet-sub001/internal/cache"
	"github.com/D3nams/vidnet-sub001/internal/domain"
	"github.com/D3nams/vidnet-sub001/internal/extractor"
	"github.com/D3nams/vidnet-sub001/internal/metadata"
	"github.com/D3nams/vidnet-sub001/internal/metrics"
)

// fakeProvider counts calls and delegates to fn
type fakeProvider struct {
	calls atomic.Int32
	fn    func(ctx context.Context, url, platform string, opts extractor.Options) (*extractor.RawResult, error)
}

func (p *fakeProvider) ExtractRaw(ctx context.Context, url, platform string, opts extractor.Options) (*extractor.RawResult, error) {
	p.calls.Add(1)
	return p.fn(ctx, url, platform, opts)
}

func rawVideo(title string) *extractor.RawResult {
	h := 1080
	return &extractor.RawResult{
		Title:     title,
		Thumbnail: "https://img.example/t.jpg",
		Formats: []extractor.RawFormat{
			{Ext: "mp4", Height: &h, VCodec: "avc1", ACodec: "mp4a.40.2"},
		},
	}
}

type fixture struct {
	svc      *metadata.Service
	cache    *cache.Cache
	provider *fakeProvider
	mr       *miniredis.Miniredis
}

func newFixture(t *testing.T, timeout time.Duration, fn func(ctx context.Context, url, platform string, opts extractor.Options) (*extractor.RawResult, error)) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	m := metrics.New(prometheus.NewRegistry())
	c := cache.New(cache.DialRedis(&redis.Options{Addr: mr.Addr()}), cache.DefaultOptions(), zap.NewNop(), m)
	t.Cleanup(func() { _ = c.Disconnect() })

	p := &fakeProvider{fn: fn}
	svc := metadata.NewService(c, p, metadata.Config{
		Timeout:     timeout,
		BaseOptions: extractor.BaseOptions(30, 3),
	}, zap.NewNop(), m)
	return &fixture{svc: svc, cache: c, provider: p, mr: mr}
}

func TestService_CachesAfterFirstExtraction(t *testing.T) {
	f := newFixture(t, time.Second, func(ctx context.Context, url, platform string, opts extractor.Options) (*extractor.RawResult, error) {
		return rawVideo("Rick"), nil
	})
	ctx := context.Background()
	url := "https://youtu.be/dQw4w9WgXcQ"

	first, cached, err := f.svc.GetMetadata(ctx, url)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "Rick", first.Title)
	assert.Equal(t, "youtube", first.Platform)
	assert.Equal(t, int32(1), f.provider.calls.Load())

	second, cached, err := f.svc.GetMetadata(ctx, url)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, int32(1), f.provider.calls.Load())
	assert.Equal(t, first, second)

	// a different spelling of the same video shares the entry
	_, cached, err = f.svc.GetMetadata(ctx, "https://www.youtube.com/watch?v=dQw4w9WgXcQ&utm_source=x")
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, int32(1), f.provider.calls.Load())
}

func TestService_PlatformOptions(t *testing.T) {
	var got extractor.Options
	f := newFixture(t, time.Second, func(ctx context.Context, url, platform string, opts extractor.Options) (*extractor.RawResult, error) {
		got = opts
		return rawVideo("v"), nil
	})

	_, _, err := f.svc.GetMetadata(context.Background(), "https://vimeo.com/123456")
	require.NoError(t, err)
	assert.Equal(t, "best[height<=?2160]", got.Format)
	assert.Equal(t, 30, got.SocketTimeout)
}

func TestService_Timeout(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	f := newFixture(t, 50*time.Millisecond, func(ctx context.Context, url, platform string, opts extractor.Options) (*extractor.RawResult, error) {
		// ignores cancellation on purpose
		<-release
		return rawVideo("late"), nil
	})

	start := time.Now()
	_, _, err := f.svc.GetMetadata(context.Background(), "https://vimeo.com/123456")
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)

	var derr *domain.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ErrorKindTimeout, derr.Kind)
	assert.True(t, derr.Retryable())
	assert.Equal(t, 503, derr.HTTPStatus())
}

func TestService_DirectLinkSkipsProvider(t *testing.T) {
	f := newFixture(t, time.Second, func(ctx context.Context, url, platform string, opts extractor.Options) (*extractor.RawResult, error) {
		return nil, errors.New("must not be called")
	})

	m, cached, err := f.svc.GetMetadata(context.Background(), "https://example.com/clip.mkv")
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "direct", m.Platform)
	require.NotNil(t, m.FileExtension)
	assert.Equal(t, ".mkv", *m.FileExtension)
	assert.Equal(t, 0, m.Duration)
	assert.True(t, m.AudioAvailable)
	assert.Zero(t, f.provider.calls.Load())
}

func TestService_InvalidURLs(t *testing.T) {
	f := newFixture(t, time.Second, func(ctx context.Context, url, platform string, opts extractor.Options) (*extractor.RawResult, error) {
		return rawVideo("v"), nil
	})

	tests := []struct {
		url  string
		kind domain.ErrorKind
	}{
		{"", domain.ErrorKindValidation},
		{"   ", domain.ErrorKindValidation},
		{"https://example.com/page", domain.ErrorKindUnsupportedPlatform},
		{"https://dailymotion.com/video/x7", domain.ErrorKindUnsupportedPlatform},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			_, _, err := f.svc.GetMetadata(context.Background(), tt.url)
			var derr *domain.Error
			require.ErrorAs(t, err, &derr)
			assert.Equal(t, tt.kind, derr.Kind)
			assert.Equal(t, 400, derr.HTTPStatus())
			assert.NotEmpty(t, derr.Suggestion)
		})
	}
	assert.Zero(t, f.provider.calls.Load())
}

func TestService_ProviderErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		kind      domain.ErrorKind
		retryable bool
		reason    string
	}{
		{"not found", fmt.Errorf("%w: gone", extractor.ErrVideoNotFound), domain.ErrorKindVideoNotFound, false, "not_found"},
		{"private", fmt.Errorf("%w: x", extractor.ErrVideoPrivate), domain.ErrorKindVideoNotFound, false, "private"},
		{"region", fmt.Errorf("%w: x", extractor.ErrRegionBlocked), domain.ErrorKindVideoNotFound, false, "region_blocked"},
		{"network", fmt.Errorf("%w: reset", extractor.ErrNetwork), domain.ErrorKindExtraction, true, "network"},
		{"rate limited", fmt.Errorf("%w: 429", extractor.ErrRateLimited), domain.ErrorKindExtraction, true, "rate_limited"},
		{"provider timeout", fmt.Errorf("%w: slow", extractor.ErrTimeout), domain.ErrorKindTimeout, true, ""},
		{"unclassified", errors.New("boom"), domain.ErrorKindExtraction, false, ""},
		{"not installed", fmt.Errorf("%w: exec", extractor.ErrNotInstalled), domain.ErrorKindExtraction, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, time.Second, func(ctx context.Context, url, platform string, opts extractor.Options) (*extractor.RawResult, error) {
				return nil, tt.err
			})

			_, _, err := f.svc.GetMetadata(context.Background(), "https://vimeo.com/42")
			var derr *domain.Error
			require.ErrorAs(t, err, &derr)
			assert.Equal(t, tt.kind, derr.Kind)
			assert.Equal(t, tt.retryable, derr.Retryable())
			assert.ErrorIs(t, err, tt.err)
			if tt.reason != "" {
				assert.Equal(t, tt.reason, derr.Details["reason"])
			}

			// failures are not cached
			_, outcome := f.cache.GetMetadata(context.Background(), "https://vimeo.com/42")
			assert.Equal(t, cache.Miss, outcome)
		})
	}
}

func TestService_EmptyProviderResult(t *testing.T) {
	f := newFixture(t, time.Second, func(ctx context.Context, url, platform string, opts extractor.Options) (*extractor.RawResult, error) {
		return nil, nil
	})

	_, _, err := f.svc.GetMetadata(context.Background(), "https://vimeo.com/42")
	assert.True(t, domain.IsKind(err, domain.ErrorKindExtraction))
}

func TestService_CorruptCacheEntryIsSoftMiss(t *testing.T) {
	f := newFixture(t, time.Second, func(ctx context.Context, url, platform string, opts extractor.Options) (*extractor.RawResult, error) {
		return rawVideo("fresh"), nil
	})
	ctx := context.Background()
	url := "https://vimeo.com/42"

	key := f.cache.Key(cache.NamespaceMetadata, url)
	require.NoError(t, f.mr.Set(key, `{"title":"stale","available_qualities":[]}`))

	m, cached, err := f.svc.GetMetadata(ctx, url)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "fresh", m.Title)
	assert.Equal(t, int32(1), f.provider.calls.Load())

	// the fresh result replaced the corrupt entry
	_, cached, err = f.svc.GetMetadata(ctx, url)
	require.NoError(t, err)
	assert.True(t, cached)
}

func TestService_CacheOutage(t *testing.T) {
	f := newFixture(t, time.Second, func(ctx context.Context, url, platform string, opts extractor.Options) (*extractor.RawResult, error) {
		return rawVideo("v"), nil
	})
	f.mr.Close()

	for i := 0; i < 2; i++ {
		m, cached, err := f.svc.GetMetadata(context.Background(), "https://vimeo.com/42")
		require.NoError(t, err)
		assert.False(t, cached)
		assert.Equal(t, "v", m.Title)
	}
	assert.Equal(t, int32(2), f.provider.calls.Load())
	assert.Positive(t, f.cache.Stats().Errors)
}
