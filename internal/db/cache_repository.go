package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/D3nams/vidnet-sub001/internal/cache"
	"github.com/D3nams/vidnet-sub001/internal/config"
)

const cacheSchema = `
	CREATE TABLE IF NOT EXISTS cache_entries (
		key        TEXT PRIMARY KEY,
		value      BYTEA NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS cache_entries_expires_at_idx ON cache_entries (expires_at);
`

// CacheRepository stores cache entries in Postgres. Expired rows are
// invisible to reads and removed by PurgeExpired.
type CacheRepository struct {
	db *DB
}

// NewCacheRepository creates a new cache repository
func NewCacheRepository(db *DB) *CacheRepository {
	return &CacheRepository{db: db}
}

// DialPostgres returns a cache.Dialer that opens a pool and ensures the schema
func DialPostgres(cfg config.DatabaseConfig) cache.Dialer {
	return func(ctx context.Context) (cache.Store, error) {
		database, err := New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		repo := NewCacheRepository(database)
		if err := repo.EnsureSchema(ctx); err != nil {
			database.Close()
			return nil, err
		}
		return repo, nil
	}
}

// EnsureSchema creates the cache table if needed
func (r *CacheRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Pool.Exec(ctx, cacheSchema); err != nil {
		return fmt.Errorf("failed to create cache schema: %w", err)
	}
	return nil
}

// Get retrieves a live entry
func (r *CacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT value FROM cache_entries WHERE key = $1 AND expires_at > now()`

	var value []byte
	err := r.db.Pool.QueryRow(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cache.ErrMiss
		}
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}
	return value, nil
}

// SetEX writes an entry that expires after ttl
func (r *CacheRepository) SetEX(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	query := `
		INSERT INTO cache_entries (key, value, expires_at)
		VALUES ($1, $2, now() + make_interval(secs => $3))
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at
	`

	if _, err := r.db.Pool.Exec(ctx, query, key, value, ttl.Seconds()); err != nil {
		return fmt.Errorf("failed to set cache entry: %w", err)
	}
	return nil
}

// Keys lists live keys matching a glob pattern
func (r *CacheRepository) Keys(ctx context.Context, pattern string) ([]string, error) {
	query := `SELECT key FROM cache_entries WHERE key LIKE $1 ESCAPE '\' AND expires_at > now()`

	rows, err := r.db.Pool.Query(ctx, query, GlobToLike(pattern))
	if err != nil {
		return nil, fmt.Errorf("failed to list cache keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan cache key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Del removes keys and returns how many live entries were deleted
func (r *CacheRepository) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	query := `DELETE FROM cache_entries WHERE key = ANY($1) AND expires_at > now()`

	tag, err := r.db.Pool.Exec(ctx, query, keys)
	if err != nil {
		return 0, fmt.Errorf("failed to delete cache entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

// PurgeExpired deletes expired rows
func (r *CacheRepository) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM cache_entries WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

// RunPurger purges expired rows every interval until ctx is done
func (r *CacheRepository) RunPurger(ctx context.Context, every time.Duration, logger *zap.Logger) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.PurgeExpired(ctx)
			if err != nil {
				logger.Warn("cache purge failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("purged expired cache entries", zap.Int64("deleted", n), zap.Int32("poolInUse", r.db.InUse()))
			}
		}
	}
}

func (r *CacheRepository) Ping(ctx context.Context) error {
	return r.db.Health(ctx)
}

func (r *CacheRepository) Info(ctx context.Context) (cache.StoreInfo, error) {
	query := `
		SELECT current_setting('server_version'),
		       pg_size_pretty(pg_total_relation_size('cache_entries')),
		       (SELECT count(*) FROM pg_stat_activity WHERE datname = current_database())
	`

	info := cache.StoreInfo{Backend: config.CacheBackendPostgres}
	var clients int64
	err := r.db.Pool.QueryRow(ctx, query).Scan(&info.Version, &info.UsedMemory, &clients)
	if err != nil {
		return info, fmt.Errorf("failed to read database info: %w", err)
	}
	info.ConnectedClients = int(clients)
	return info, nil
}

func (r *CacheRepository) Close() error {
	r.db.Close()
	return nil
}

// GlobToLike translates a Redis-style glob into a LIKE pattern escaped with '\'
func GlobToLike(pattern string) string {
	var b strings.Builder
	escaped := false
	for _, ch := range pattern {
		if escaped {
			writeLikeLiteral(&b, ch)
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			escaped = true
		case '*':
			b.WriteRune('%')
		case '?':
			b.WriteRune('_')
		default:
			writeLikeLiteral(&b, ch)
		}
	}
	if escaped {
		writeLikeLiteral(&b, '\\')
	}
	return b.String()
}

func writeLikeLiteral(b *strings.Builder, ch rune) {
	if ch == '%' || ch == '_' || ch == '\\' {
		b.WriteRune('\\')
	}
	b.WriteRune(ch)
}
