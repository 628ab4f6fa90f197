package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Namespace is the key prefix of a family of entries
type Namespace string

const (
	NamespaceMetadata Namespace = "metadata:"
	NamespaceTask     Namespace = "task:"
)

// Outcome of a read against the store
type Outcome int

const (
	Miss Outcome = iota
	Hit
	// Failed reads behave like misses for callers but are counted apart.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Hit:
		return "hit"
	case Failed:
		return "error"
	}
	return "miss"
}

// Recorder receives per-operation outcomes, e.g. for Prometheus
type Recorder interface {
	RecordCacheOperation(op, result string)
}

type nopRecorder struct{}

func (nopRecorder) RecordCacheOperation(string, string) {}

// Options tune a Cache
type Options struct {
	MetadataTTL time.Duration
	TaskTTL     time.Duration
	// Identifiers longer than this are replaced by their MD5 digest.
	MaxKeyLength     int
	OperationTimeout time.Duration
}

// DefaultOptions match the production configuration defaults
func DefaultOptions() Options {
	return Options{
		MetadataTTL:      time.Hour,
		TaskTTL:          30 * time.Minute,
		MaxKeyLength:     100,
		OperationTimeout: 5 * time.Second,
	}
}

// Cache is a soft-failing TTL cache over a Store. Store errors never reach
// callers; they degrade to misses or no-ops and show up in Stats.
type Cache struct {
	dial     Dialer
	opts     Options
	logger   *zap.Logger
	recorder Recorder

	mu    sync.Mutex
	store Store

	hits   atomic.Int64
	misses atomic.Int64
	errors atomic.Int64
	total  atomic.Int64
}

// New creates a cache. No connection is made until first use or Connect.
func New(dial Dialer, opts Options, logger *zap.Logger, recorder Recorder) *Cache {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if opts.MaxKeyLength <= 0 {
		opts.MaxKeyLength = DefaultOptions().MaxKeyLength
	}
	return &Cache{
		dial:     dial,
		opts:     opts,
		logger:   logger.With(zap.String("component", "cache")),
		recorder: recorder,
	}
}

// Options returns the effective options
func (c *Cache) Options() Options {
	return c.opts
}

// Key derives the storage key for an identifier
func (c *Cache) Key(ns Namespace, id string) string {
	if len(id) > c.opts.MaxKeyLength {
		sum := md5.Sum([]byte(id))
		id = hex.EncodeToString(sum[:])
	}
	return string(ns) + id
}

// Connect opens the store eagerly
func (c *Cache) Connect(ctx context.Context) error {
	store, err := c.conn(ctx)
	if err != nil {
		return err
	}
	if err := store.Ping(ctx); err != nil {
		c.drop(store)
		return fmt.Errorf("failed to ping cache store: %w", err)
	}
	c.logger.Info("cache connected")
	return nil
}

// Disconnect closes the store. A later operation reconnects.
func (c *Cache) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		return nil
	}
	err := c.store.Close()
	c.store = nil
	c.logger.Info("cache disconnected")
	return err
}

// conn returns the current store, dialing one if needed. Dials run outside
// the lock; when several succeed concurrently the first one installed wins.
func (c *Cache) conn(ctx context.Context) (Store, error) {
	c.mu.Lock()
	store := c.store
	c.mu.Unlock()
	if store != nil {
		return store, nil
	}
	if c.dial == nil {
		return nil, errors.New("cache store is not configured")
	}

	dialed, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.store == nil {
		c.store = dialed
		c.mu.Unlock()
		return dialed, nil
	}
	store = c.store
	c.mu.Unlock()
	_ = dialed.Close()
	return store, nil
}

// drop forgets a store that failed so the next operation redials
func (c *Cache) drop(store Store) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store != store {
		return
	}
	_ = store.Close()
	c.store = nil
}

func (c *Cache) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opts.OperationTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.opts.OperationTimeout)
}

// fetch reads a key without touching the hit/miss counters
func (c *Cache) fetch(ctx context.Context, key string) ([]byte, Outcome) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	store, err := c.conn(ctx)
	if err != nil {
		c.logger.Warn("cache unavailable", zap.String("cacheKey", key), zap.Error(err))
		return nil, Failed
	}
	b, err := store.Get(ctx, key)
	switch {
	case err == nil:
		return b, Hit
	case errors.Is(err, ErrMiss):
		return nil, Miss
	default:
		c.logger.Warn("cache get failed", zap.String("cacheKey", key), zap.Error(err))
		c.drop(store)
		return nil, Failed
	}
}

// Get reads an entry and records the outcome in the stats
func (c *Cache) Get(ctx context.Context, ns Namespace, id string) ([]byte, Outcome) {
	key := c.Key(ns, id)
	b, outcome := c.fetch(ctx, key)

	c.total.Add(1)
	switch outcome {
	case Hit:
		c.hits.Add(1)
	case Miss:
		c.misses.Add(1)
	case Failed:
		c.errors.Add(1)
		c.misses.Add(1)
	}
	c.recorder.RecordCacheOperation("get", outcome.String())
	return b, outcome
}

// Put stores value as JSON under the namespace with the given TTL. It
// reports whether the write succeeded.
func (c *Cache) Put(ctx context.Context, ns Namespace, id string, value any, ttl time.Duration) bool {
	b, err := json.Marshal(value)
	if err != nil {
		c.logger.Error("failed to encode cache value", zap.Error(err))
		c.errors.Add(1)
		c.recorder.RecordCacheOperation("set", "error")
		return false
	}
	return c.putRaw(ctx, c.Key(ns, id), b, ttl)
}

func (c *Cache) putRaw(ctx context.Context, key string, b []byte, ttl time.Duration) bool {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	store, err := c.conn(ctx)
	if err != nil {
		c.logger.Warn("cache unavailable", zap.String("cacheKey", key), zap.Error(err))
		c.errors.Add(1)
		c.recorder.RecordCacheOperation("set", "error")
		return false
	}
	if err := store.SetEX(ctx, key, b, ttl); err != nil {
		c.logger.Warn("cache set failed", zap.String("cacheKey", key), zap.Error(err))
		c.errors.Add(1)
		c.drop(store)
		c.recorder.RecordCacheOperation("set", "error")
		return false
	}
	c.recorder.RecordCacheOperation("set", "ok")
	return true
}

// Invalidate deletes every key matching a glob pattern and returns how many
// were removed.
func (c *Cache) Invalidate(ctx context.Context, pattern string) int {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	store, err := c.conn(ctx)
	if err != nil {
		c.logger.Warn("cache unavailable", zap.String("pattern", pattern), zap.Error(err))
		c.errors.Add(1)
		return 0
	}
	keys, err := store.Keys(ctx, pattern)
	if err != nil {
		c.logger.Warn("cache key scan failed", zap.String("pattern", pattern), zap.Error(err))
		c.errors.Add(1)
		c.drop(store)
		return 0
	}
	if len(keys) == 0 {
		return 0
	}
	n, err := store.Del(ctx, keys...)
	if err != nil {
		c.logger.Warn("cache delete failed", zap.String("pattern", pattern), zap.Error(err))
		c.errors.Add(1)
		c.drop(store)
		return 0
	}
	c.recorder.RecordCacheOperation("invalidate", "ok")
	c.logger.Info("cache invalidated", zap.String("pattern", pattern), zap.Int64("deleted", n))
	return int(n)
}

// Stats is a snapshot of the cache counters. Rates are percentages.
type Stats struct {
	HitRate       float64 `json:"hit_rate"`
	MissRate      float64 `json:"miss_rate"`
	ErrorRate     float64 `json:"error_rate"`
	TotalRequests int64   `json:"total_requests"`
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	Errors        int64   `json:"errors"`
}

// Stats returns the current counters
func (c *Cache) Stats() Stats {
	s := Stats{
		TotalRequests: c.total.Load(),
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Errors:        c.errors.Load(),
	}
	if s.TotalRequests == 0 {
		return s
	}
	s.HitRate = percent(s.Hits, s.TotalRequests)
	s.MissRate = percent(s.Misses, s.TotalRequests)
	s.ErrorRate = percent(s.Errors, s.TotalRequests)
	return s
}

// ResetStats zeroes the counters
func (c *Cache) ResetStats() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.errors.Store(0)
	c.total.Store(0)
}

func percent(n, total int64) float64 {
	return math.Round(float64(n)/float64(total)*100*100) / 100
}

// Health is the result of a health check
type Health struct {
	Status           string  `json:"status"`
	Connected        bool    `json:"connected"`
	Backend          string  `json:"backend,omitempty"`
	ResponseTimeMs   float64 `json:"response_time_ms,omitempty"`
	Version          string  `json:"version,omitempty"`
	UsedMemory       string  `json:"used_memory,omitempty"`
	ConnectedClients int     `json:"connected_clients,omitempty"`
	Error            string  `json:"error,omitempty"`
	Stats            Stats   `json:"cache_stats"`
}

// Health statuses
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// HealthCheck pings the store and reports latency and backend details
func (c *Cache) HealthCheck(ctx context.Context) Health {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	h := Health{Status: StatusUnhealthy, Stats: c.Stats()}

	store, err := c.conn(ctx)
	if err != nil {
		h.Error = err.Error()
		return h
	}

	start := time.Now()
	if err := store.Ping(ctx); err != nil {
		c.drop(store)
		h.Error = err.Error()
		return h
	}
	h.ResponseTimeMs = math.Round(float64(time.Since(start).Microseconds())/10) / 100

	info, err := store.Info(ctx)
	if err != nil {
		c.logger.Warn("cache info failed", zap.Error(err))
	}
	h.Status = StatusHealthy
	h.Connected = true
	h.Backend = info.Backend
	h.Version = info.Version
	h.UsedMemory = info.UsedMemory
	h.ConnectedClients = info.ConnectedClients
	return h
}
