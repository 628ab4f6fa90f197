package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by a Store when a key is absent or expired
var ErrMiss = errors.New("cache miss")

// Store is a TTL-capable key/value backend
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetEX(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Keys returns the live keys matching a glob pattern.
	Keys(ctx context.Context, pattern string) ([]string, error)
	Del(ctx context.Context, keys ...string) (int64, error)
	Ping(ctx context.Context) error
	Info(ctx context.Context) (StoreInfo, error)
	Close() error
}

// StoreInfo describes the backend for health reporting
type StoreInfo struct {
	Backend          string
	Version          string
	UsedMemory       string
	ConnectedClients int
}

// Dialer opens a Store. It is called lazily and again after a failure.
type Dialer func(ctx context.Context) (Store, error)
