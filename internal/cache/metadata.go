package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/D3nams/vidnet-sub001/internal/domain"
)

// metadataEntry is the stored form of VideoMetadata. The bookkeeping fields
// are dropped when the entry is decoded.
type metadataEntry struct {
	*domain.VideoMetadata
	CachedAt time.Time `json:"cached_at"`
	CacheTTL int       `json:"cache_ttl"`
}

// PutMetadata caches metadata under its URL with the metadata TTL
func (c *Cache) PutMetadata(ctx context.Context, url string, m *domain.VideoMetadata) bool {
	entry := metadataEntry{
		VideoMetadata: m,
		CachedAt:      time.Now().UTC(),
		CacheTTL:      int(c.opts.MetadataTTL.Seconds()),
	}
	return c.Put(ctx, NamespaceMetadata, url, entry, c.opts.MetadataTTL)
}

// GetMetadata returns the raw cached entry for a URL. Use DecodeMetadata to
// turn a hit into VideoMetadata.
func (c *Cache) GetMetadata(ctx context.Context, url string) ([]byte, Outcome) {
	return c.Get(ctx, NamespaceMetadata, url)
}

// DecodeMetadata parses a cached metadata entry and checks its shape
func DecodeMetadata(b []byte) (*domain.VideoMetadata, error) {
	entry := metadataEntry{VideoMetadata: &domain.VideoMetadata{}}
	if err := json.Unmarshal(b, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode cached metadata: %w", err)
	}
	if err := entry.VideoMetadata.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cached metadata: %w", err)
	}
	return entry.VideoMetadata, nil
}
