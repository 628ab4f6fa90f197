package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter creates a new API router. A nil rate limiter disables limiting.
func NewRouter(h *Handler, rl *RateLimiter, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	requestTimeout := h.config.API.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 60 * time.Second
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(requestLogger(logger))

	// Health endpoints
	r.Get("/healthz", h.HealthCheck)
	r.Get("/readyz", h.ReadyCheck)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/v1", func(r chi.Router) {
		if rl != nil {
			r.Use(h.rateLimit(rl))
		}

		r.Get("/platforms", h.ListPlatforms)
		r.Post("/validate", h.ValidateURL)

		r.Route("/metadata", func(r chi.Router) {
			r.Post("/", h.GetMetadata)
			r.Get("/health", h.MetadataHealth)
			r.Get("/stats", h.MetadataStats)
			r.Delete("/stats", h.ResetStats)
		})

		r.Delete("/cache", h.InvalidateCache)

		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", h.CreateTask)
			r.Delete("/", h.ClearTasks)
			r.Get("/{taskId}", h.GetTask)
			r.Get("/{taskId}/snapshot", h.GetTaskSnapshot)
		})
	})

	return r
}

// requestLogger logs HTTP requests
func requestLogger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				logger.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Duration("duration", time.Since(start)),
					zap.String("requestId", middleware.GetReqID(r.Context())),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
