package metadata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/D3nams/vidnet-sub001/internal/cache"
	"github.com/D3nams/vidnet-sub001/internal/domain"
	"github.com/D3nams/vidnet-sub001/internal/extractor"
	"github.com/D3nams/vidnet-sub001/internal/metrics"
	"github.com/D3nams/vidnet-sub001/internal/platform"
)

// DefaultTimeout bounds a single provider call
const DefaultTimeout = 30 * time.Second

// Request outcomes recorded in metrics
const (
	OutcomeCached    = "cached"
	OutcomeExtracted = "extracted"
	OutcomeFailed    = "failed"
)

// Config controls extraction
type Config struct {
	Timeout     time.Duration
	BaseOptions extractor.Options
}

// Service resolves a URL to video metadata through the cache and the
// extraction provider
type Service struct {
	cache    *cache.Cache
	provider extractor.Provider
	cfg      Config
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewService creates a new metadata service
func NewService(c *cache.Cache, provider extractor.Provider, cfg Config, logger *zap.Logger, m *metrics.Metrics) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Service{
		cache:    c,
		provider: provider,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "metadata")),
		metrics:  m,
	}
}

// GetMetadata returns metadata for the URL and whether it came from the
// cache. Errors are always *domain.Error.
func (s *Service) GetMetadata(ctx context.Context, url string) (*domain.VideoMetadata, bool, error) {
	result := platform.Validate(url)
	if !result.IsValid {
		err := ValidationError(result)
		s.metrics.RecordMetadataRequest("unknown", OutcomeFailed)
		return nil, false, err
	}

	name := result.Platform
	key := result.CanonicalURL
	logger := s.logger.With(zap.String("url", url), zap.String("platform", name))

	if cached, ok := s.lookup(ctx, key, logger); ok {
		logger.Debug("metadata served from cache")
		s.metrics.RecordMetadataRequest(name, OutcomeCached)
		return cached, true, nil
	}

	var meta *domain.VideoMetadata
	if name == platform.Direct {
		meta = FromDirectLink(url)
	} else {
		raw, err := s.extract(ctx, url, name)
		if err != nil {
			derr := classifyProviderError(err)
			s.metrics.IncrementExtractionFailures(name, string(derr.Kind))
			s.metrics.RecordMetadataRequest(name, OutcomeFailed)
			if derr.Kind == domain.ErrorKindExtraction || derr.Kind == domain.ErrorKindInternal {
				logger.Error("metadata extraction failed", zap.Error(err))
			} else {
				logger.Warn("metadata extraction failed", zap.String("kind", string(derr.Kind)), zap.Error(err))
			}
			return nil, false, derr
		}
		meta = FromRaw(raw, name, url)
	}

	if !s.cache.PutMetadata(ctx, key, meta) {
		logger.Warn("failed to cache metadata")
	}
	s.metrics.RecordMetadataRequest(name, OutcomeExtracted)
	return meta, false, nil
}

// lookup reads the cache. Entries that do not decode into valid metadata are
// treated as misses.
func (s *Service) lookup(ctx context.Context, key string, logger *zap.Logger) (*domain.VideoMetadata, bool) {
	b, outcome := s.cache.GetMetadata(ctx, key)
	if outcome != cache.Hit {
		return nil, false
	}
	meta, err := cache.DecodeMetadata(b)
	if err != nil {
		logger.Warn("invalid cached metadata, extracting fresh", zap.Error(err))
		return nil, false
	}
	return meta, true
}

type extraction struct {
	raw *extractor.RawResult
	err error
}

// extract runs the provider in its own goroutine and stops waiting at the
// deadline. The result channel is buffered so an abandoned call can finish.
func (s *Service) extract(ctx context.Context, url, name string) (*extractor.RawResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	opts := extractor.ForPlatform(s.cfg.BaseOptions, name)
	done := make(chan extraction, 1)

	s.metrics.IncrementExtractionsActive()
	start := time.Now()
	go func() {
		defer s.metrics.DecrementExtractionsActive()
		raw, err := s.provider.ExtractRaw(ctx, url, name, opts)
		done <- extraction{raw: raw, err: err}
	}()

	select {
	case res := <-done:
		s.metrics.RecordExtractionDuration(name, time.Since(start).Seconds())
		if res.err == nil && res.raw == nil {
			return nil, fmt.Errorf("%w: no metadata returned", extractor.ErrExtraction)
		}
		return res.raw, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: after %s", extractor.ErrTimeout, s.cfg.Timeout)
		}
		return nil, ctx.Err()
	}
}

// ValidationError converts a failed validation into the client error kind
func ValidationError(result platform.ValidationResult) *domain.Error {
	msg := "Invalid or unsupported URL: " + result.Error
	if result.Error == platform.ErrMsgUnsupported {
		return domain.NewUnsupportedPlatformError(msg)
	}
	return domain.NewValidationError(msg)
}

// classifyProviderError maps provider failures onto the client error kinds
func classifyProviderError(err error) *domain.Error {
	var derr *domain.Error
	if errors.As(err, &derr) {
		return derr
	}

	switch {
	case errors.Is(err, extractor.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return domain.NewTimeoutError("Metadata extraction timed out", err).
			WithSuggestion("Please try again later or check if the video URL is accessible")
	case errors.Is(err, extractor.ErrVideoPrivate):
		return domain.NewVideoNotFoundError("This video is private and cannot be downloaded", err).
			WithDetail("reason", "private")
	case errors.Is(err, extractor.ErrVideoDeleted):
		return domain.NewVideoNotFoundError("This video has been deleted or removed", err).
			WithDetail("reason", "deleted")
	case errors.Is(err, extractor.ErrRegionBlocked):
		return domain.NewVideoNotFoundError("This video is not available in your region", err).
			WithDetail("reason", "region_blocked")
	case errors.Is(err, extractor.ErrAgeRestricted):
		return domain.NewVideoNotFoundError("This video is age restricted", err).
			WithDetail("reason", "age_restricted")
	case errors.Is(err, extractor.ErrVideoNotFound):
		return domain.NewVideoNotFoundError("Video not found or is not accessible", err).
			WithDetail("reason", "not_found")
	case errors.Is(err, extractor.ErrNetwork):
		return domain.NewNetworkError("Network error while extracting metadata", err).
			WithDetail("reason", "network")
	case errors.Is(err, extractor.ErrRateLimited):
		return domain.NewNetworkError("The platform is rate limiting requests", err).
			WithDetail("reason", "rate_limited")
	case errors.Is(err, extractor.ErrUnavailable):
		return domain.NewNetworkError("The platform is temporarily unavailable", err).
			WithDetail("reason", "platform_unavailable")
	case errors.Is(err, context.Canceled):
		return domain.NewInternalError("Request was cancelled", err)
	}
	return domain.NewExtractionError("Failed to extract video metadata", err)
}
