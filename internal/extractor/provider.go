package extractor

import (
	"context"
	"errors"
)

// Provider fetches raw media metadata for a URL
type Provider interface {
	ExtractRaw(ctx context.Context, url, platform string, opts Options) (*RawResult, error)
}

// ProviderFunc adapts a function to Provider
type ProviderFunc func(ctx context.Context, url, platform string, opts Options) (*RawResult, error)

func (f ProviderFunc) ExtractRaw(ctx context.Context, url, platform string, opts Options) (*RawResult, error) {
	return f(ctx, url, platform, opts)
}

// RawResult is the provider's view of a video
type RawResult struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Thumbnail  string      `json:"thumbnail"`
	Duration   *float64    `json:"duration"`
	ACodec     string      `json:"acodec"`
	VCodec     string      `json:"vcodec"`
	Extractor  string      `json:"extractor"`
	WebpageURL string      `json:"webpage_url"`
	Formats    []RawFormat `json:"formats"`
}

// RawFormat is one downloadable format as reported by the provider
type RawFormat struct {
	FormatID string   `json:"format_id"`
	Ext      string   `json:"ext"`
	Height   *int     `json:"height"`
	Width    *int     `json:"width"`
	VCodec   string   `json:"vcodec"`
	ACodec   string   `json:"acodec"`
	FileSize *int64   `json:"filesize"`
	FPS      *float64 `json:"fps"`
}

// Provider failures. Wrapped errors keep the provider's message.
var (
	ErrVideoNotFound = errors.New("video not found")
	ErrVideoPrivate  = errors.New("video is private")
	ErrVideoDeleted  = errors.New("video was deleted")
	ErrRegionBlocked = errors.New("video is region blocked")
	ErrAgeRestricted = errors.New("video is age restricted")
	ErrNetwork       = errors.New("network error")
	ErrRateLimited   = errors.New("rate limited by platform")
	ErrUnavailable   = errors.New("platform unavailable")
	ErrTimeout       = errors.New("extraction timed out")
	ErrNotInstalled  = errors.New("extraction tool not installed")
	ErrExtraction    = errors.New("extraction failed")
)
