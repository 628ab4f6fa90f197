package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/D3nams/vidnet-sub001/internal/cache"
	"github.com/D3nams/vidnet-sub001/internal/config"
	"github.com/D3nams/vidnet-sub001/internal/db"
	"github.com/D3nams/vidnet-sub001/internal/extractor"
	"github.com/D3nams/vidnet-sub001/internal/logger"
	"github.com/D3nams/vidnet-sub001/internal/metadata"
	"github.com/D3nams/vidnet-sub001/internal/metrics"
	"github.com/D3nams/vidnet-sub001/internal/storage/s3"
	"github.com/D3nams/vidnet-sub001/internal/temporal/activities"
	"github.com/D3nams/vidnet-sub001/internal/temporal/workflows"
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

	if !cfg.Temporal.Enabled {
		log.Fatal("the worker requires TEMPORAL_ENABLED=true")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize metrics
	m := metrics.New(prometheus.DefaultRegisterer)

	// Initialize cache
	opts := cache.Options{
		MetadataTTL:      cfg.Cache.MetadataTTL,
		TaskTTL:          cfg.Cache.DownloadTTL,
		MaxKeyLength:     cfg.Cache.MaxKeyLength,
		OperationTimeout: cfg.Redis.OperationTimeout,
	}
	var dial cache.Dialer
	if cfg.Cache.Backend == config.CacheBackendPostgres {
		dial = db.DialPostgres(cfg.Database)
	} else {
		redisOpts, err := cache.RedisOptions(cfg.Redis)
		if err != nil {
			log.Fatal("invalid Redis configuration", zap.Error(err))
		}
		dial = cache.DialRedis(redisOpts)
	}
	c := cache.New(dial, opts, log, m)
	defer c.Disconnect()
	tasks := cache.NewTaskTracker(c)

	// Initialize metadata service
	ytdlp := extractor.NewYtdlp(cfg.Extractor.BinaryPath, log)
	version, err := ytdlp.CheckInstalled(ctx)
	if err != nil {
		log.Fatal("yt-dlp is required by the worker", zap.Error(err))
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
	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.Address,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatal("failed to connect to Temporal", zap.Error(err))
	}
	defer temporalClient.Close()

	// Create activities
	acts := activities.NewActivities(svc, tasks, s3Client, log, m)

	// Create worker
	w := worker.New(temporalClient, cfg.Temporal.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     cfg.Worker.MaxParallelTasks,
		MaxConcurrentWorkflowTaskExecutionSize: cfg.Worker.MaxParallelTasks * 2,
	})

	// Register workflows
	w.RegisterWorkflow(workflows.MetadataExtractionWorkflow)

	// Register activities
	w.RegisterActivity(acts.MarkTaskProcessing)
	w.RegisterActivity(acts.ExtractMetadata)
	w.RegisterActivity(acts.ExportSnapshot)
	w.RegisterActivity(acts.FinalizeTask)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start metrics server
	metricsServer := newMetricsServer(cfg.Worker.MetricsAddr, c)
	go func() {
		log.Info("starting metrics server", zap.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server error", zap.Error(err))
		}
	}()

	// Start worker in a goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- w.Run(worker.InterruptCh())
	}()

	log.Info("worker started",
		zap.String("taskQueue", cfg.Temporal.TaskQueue),
		zap.Int("maxParallelTasks", cfg.Worker.MaxParallelTasks),
		zap.String("ytdlpVersion", version),
		zap.Bool("snapshotsEnabled", s3Client != nil),
	)

	// Wait for shutdown signal or error
	select {
	case sig := <-sigChan:
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errChan:
		if err != nil {
			log.Error("worker error", zap.Error(err))
		}
	}

	cancel()
	w.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = metricsServer.Shutdown(shutdownCtx)

	log.Info("worker stopped")
}

// newMetricsServer serves Prometheus metrics and a cache-backed health check
func newMetricsServer(addr string, c *cache.Cache) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if health := c.HealthCheck(ctx); health.Status != cache.StatusHealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(health.Error))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
