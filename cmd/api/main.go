package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/D3nams/vidnet-sub001/internal/api"
	"github.com/D3nams/vidnet-sub001/internal/cache"
	"github.com/D3nams/vidnet-sub001/internal/config"
	"github.com/D3nams/vidnet-sub001/internal/db"
	"github.com/D3nams/vidnet-sub001/internal/extractor"
	"github.com/D3nams/vidnet-sub001/internal/logger"
	"github.com/D3nams/vidnet-sub001/internal/metadata"
	"github.com/D3nams/vidnet-sub001/internal/metrics"
	"github.com/D3nams/vidnet-sub001/internal/storage/s3"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize metrics
	m := metrics.New(prometheus.DefaultRegisterer)

	// Initialize cache
	c, err := newCache(ctx, cfg, log, m)
	if err != nil {
		log.Fatal("failed to initialize cache", zap.Error(err))
	}
	defer c.Disconnect()
	if err := c.Connect(ctx); err != nil {
		log.Warn("cache unavailable at startup, continuing without it", zap.Error(err))
	}
	tasks := cache.NewTaskTracker(c)

	// Initialize metadata service
	ytdlp := extractor.NewYtdlp(cfg.Extractor.BinaryPath, log)
	if version, err := ytdlp.CheckInstalled(ctx); err != nil {
		log.Warn("yt-dlp is not available", zap.Error(err))
	} else {
		log.Info("yt-dlp found", zap.String("version", version))
	}
	svc := metadata.NewService(c, ytdlp, metadata.Config{
		Timeout:     cfg.Extractor.Timeout,
		BaseOptions: extractor.BaseOptions(cfg.Extractor.SocketTimeout, cfg.Extractor.Retries),
	}, log, m)

	// Initialize S3 client
	var s3Client *s3.Client
	if cfg.S3.Enabled {
		s3Client, err = s3.New(cfg.S3)
		if err != nil {
			log.Fatal("failed to initialize S3 client", zap.Error(err))
		}
	}

	// Initialize Temporal client
	var temporalClient client.Client
	if cfg.Temporal.Enabled {
		temporalClient, err = client.Dial(client.Options{
			HostPort:  cfg.Temporal.Address,
			Namespace: cfg.Temporal.Namespace,
		})
		if err != nil {
			log.Warn("failed to connect to Temporal, background tasks disabled", zap.Error(err))
			temporalClient = nil
		} else {
			defer temporalClient.Close()
		}
	}

	// Initialize handler
	handler := api.NewHandler(
		cfg,
		svc,
		c,
		tasks,
		s3Client,
		temporalClient,
		log,
		m,
	)

	// Rate limiting
	var rl *api.RateLimiter
	if cfg.RateLimit.Enabled {
		rl = api.NewRateLimiter(cfg.RateLimit)
		go rl.Run(ctx)
	}

	// Create router
	router := api.NewRouter(handler, rl, log)

	// Create server
	server := api.NewServer(cfg.API, router, log)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Start(); err != nil {
			log.Error("server error", zap.Error(err))
			sigChan <- syscall.SIGTERM
		}
	}()

	log.Info("API server started",
		zap.Int("port", cfg.API.Port),
		zap.String("cacheBackend", cfg.Cache.Backend),
		zap.Bool("tasksEnabled", temporalClient != nil),
		zap.Bool("snapshotsEnabled", s3Client != nil),
	)

	// Wait for shutdown signal
	<-sigChan
	log.Info("received shutdown signal")

	if err := server.Stop(ctx); err != nil {
		log.Error("error during shutdown", zap.Error(err))
	}
	cancel()

	log.Info("API server stopped")
}

// newCache builds the metadata cache over the configured backend. The
// Postgres backend also gets a purger for expired rows.
func newCache(ctx context.Context, cfg *config.Config, log *zap.Logger, m *metrics.Metrics) (*cache.Cache, error) {
	opts := cache.Options{
		MetadataTTL:      cfg.Cache.MetadataTTL,
		TaskTTL:          cfg.Cache.DownloadTTL,
		MaxKeyLength:     cfg.Cache.MaxKeyLength,
		OperationTimeout: cfg.Redis.OperationTimeout,
	}

	switch cfg.Cache.Backend {
	case config.CacheBackendPostgres:
		database, err := db.New(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		purger := db.NewCacheRepository(database)
		go func() {
			purger.RunPurger(ctx, cfg.Cache.PurgeEvery, log)
			database.Close()
		}()
		return cache.New(db.DialPostgres(cfg.Database), opts, log, m), nil
	default:
		redisOpts, err := cache.RedisOptions(cfg.Redis)
		if err != nil {
			return nil, err
		}
		return cache.New(cache.DialRedis(redisOpts), opts, log, m), nil
	}
}
