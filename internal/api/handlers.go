package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/D3nams/vidnet-sub001/internal/cache"
	"github.com/D3nams/vidnet-sub001/internal/config"
	"github.com/D3nams/vidnet-sub001/internal/domain"
	"github.com/D3nams/vidnet-sub001/internal/metadata"
	"github.com/D3nams/vidnet-sub001/internal/metrics"
	"github.com/D3nams/vidnet-sub001/internal/platform"
	"github.com/D3nams/vidnet-sub001/internal/storage/s3"
	"github.com/D3nams/vidnet-sub001/internal/temporal/workflows"
)

// Handler holds API dependencies
type Handler struct {
	config         *config.Config
	metadata       *metadata.Service
	cache          *cache.Cache
	tasks          *cache.TaskTracker
	s3Client       *s3.Client
	temporalClient client.Client
	logger         *zap.Logger
	metrics        *metrics.Metrics
}

// NewHandler creates a new handler. s3Client and temporalClient may be nil.
func NewHandler(
	cfg *config.Config,
	svc *metadata.Service,
	c *cache.Cache,
	tasks *cache.TaskTracker,
	s3Client *s3.Client,
	temporalClient client.Client,
	logger *zap.Logger,
	m *metrics.Metrics,
) *Handler {
	return &Handler{
		config:         cfg,
		metadata:       svc,
		cache:          c,
		tasks:          tasks,
		s3Client:       s3Client,
		temporalClient: temporalClient,
		logger:         logger,
		metrics:        m,
	}
}

// URLRequest is the body of every endpoint that takes a URL
type URLRequest struct {
	URL string `json:"url"`
}

// MetadataResponse is returned on a successful metadata request
type MetadataResponse struct {
	Success        bool                  `json:"success"`
	Data           *domain.VideoMetadata `json:"data"`
	Cached         bool                  `json:"cached"`
	ResponseTimeMs float64               `json:"response_time_ms"`
	Message        string                `json:"message"`
}

// errorResponse is returned on every failure
type errorResponse struct {
	Success        bool              `json:"success"`
	Error          string            `json:"error"`
	Message        string            `json:"message"`
	Suggestion     string            `json:"suggestion,omitempty"`
	Details        map[string]string `json:"details,omitempty"`
	ResponseTimeMs float64           `json:"response_time_ms"`
}

// PlatformsResponse lists supported platforms
type PlatformsResponse struct {
	Platforms []string            `json:"platforms"`
	Domains   map[string][]string `json:"domains"`
}

// TaskResponse is returned when a task is created
type TaskResponse struct {
	TaskID string            `json:"task_id"`
	Status domain.TaskStatus `json:"status"`
}

// InvalidateResponse reports how many cache entries were removed
type InvalidateResponse struct {
	Pattern string `json:"pattern"`
	Deleted int    `json:"deleted"`
}

// GetMetadata extracts or returns cached metadata for a URL
func (h *Handler) GetMetadata(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	url, derr := h.decodeURL(r)
	if derr != nil {
		h.writeDomainError(w, derr, start)
		return
	}

	meta, cached, err := h.metadata.GetMetadata(r.Context(), url)
	if err != nil {
		h.writeDomainError(w, domain.AsError(err), start)
		return
	}

	message := "Metadata extracted successfully"
	if cached {
		message = "Metadata retrieved from cache"
	}
	h.writeJSON(w, http.StatusOK, MetadataResponse{
		Success:        true,
		Data:           meta,
		Cached:         cached,
		ResponseTimeMs: elapsedMs(start),
		Message:        message,
	})
}

// ValidateURL reports whether a URL is supported and how it was read
func (h *Handler) ValidateURL(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req URLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeDomainError(w, domain.NewValidationError("Invalid request body"), start)
		return
	}
	h.writeJSON(w, http.StatusOK, platform.Validate(req.URL))
}

// ListPlatforms returns the supported platforms and their domains
func (h *Handler) ListPlatforms(w http.ResponseWriter, r *http.Request) {
	names := platform.Platforms()
	domains := make(map[string][]string, len(names))
	for _, name := range names {
		if d := platform.Domains(name); len(d) > 0 {
			domains[name] = d
		}
	}
	h.writeJSON(w, http.StatusOK, PlatformsResponse{Platforms: names, Domains: domains})
}

// MetadataHealth reports the health of the metadata service and its cache
func (h *Handler) MetadataHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	cacheHealth := h.cache.HealthCheck(ctx)
	status := "healthy"
	statusCode := http.StatusOK
	if cacheHealth.Status != cache.StatusHealthy {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	h.writeJSON(w, statusCode, map[string]any{
		"service":             "metadata",
		"status":              status,
		"cache":               cacheHealth,
		"supported_platforms": platform.Platforms(),
		"timestamp":           time.Now().Unix(),
	})
}

// MetadataStats returns the cache counters
func (h *Handler) MetadataStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.cache.Stats())
}

// ResetStats zeroes the cache counters
func (h *Handler) ResetStats(w http.ResponseWriter, r *http.Request) {
	h.cache.ResetStats()
	h.logger.Info("cache stats reset")
	h.writeJSON(w, http.StatusOK, h.cache.Stats())
}

// InvalidateCache removes cache entries matching the pattern query parameter
func (h *Handler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	if pattern == "" {
		pattern = string(cache.NamespaceMetadata) + "*"
	}

	deleted := h.cache.Invalidate(r.Context(), pattern)
	h.writeJSON(w, http.StatusOK, InvalidateResponse{Pattern: pattern, Deleted: deleted})
}

// CreateTask starts a background metadata extraction
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if h.temporalClient == nil {
		h.writeError(w, http.StatusServiceUnavailable, errorResponse{
			Error:          "service_unavailable",
			Message:        "Background tasks are not available",
			Suggestion:     "Use POST /v1/metadata instead",
			ResponseTimeMs: elapsedMs(start),
		})
		return
	}

	url, derr := h.decodeURL(r)
	if derr != nil {
		h.writeDomainError(w, derr, start)
		return
	}

	result := platform.Validate(url)
	if !result.IsValid {
		h.writeDomainError(w, metadata.ValidationError(result), start)
		return
	}

	ctx := r.Context()
	taskID := domain.NewTaskID()
	workflowID := workflows.WorkflowID(taskID)

	h.tasks.Track(ctx, taskID, domain.TaskStatusPending, map[string]any{
		domain.TaskMetaURL:        url,
		domain.TaskMetaPlatform:   result.Platform,
		domain.TaskMetaWorkflowID: workflowID,
	})

	workflowOptions := client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: h.config.Temporal.TaskQueue,
	}
	workflowRun, err := h.temporalClient.ExecuteWorkflow(ctx, workflowOptions, workflows.MetadataExtractionWorkflow, workflows.MetadataExtractionInput{
		TaskID: taskID,
		URL:    url,
	})
	if err != nil {
		h.logger.Error("failed to start workflow", zap.String("taskId", taskID), zap.Error(err))
		h.tasks.Track(ctx, taskID, domain.TaskStatusFailed, map[string]any{
			domain.TaskMetaURL:     url,
			domain.TaskMetaError:   string(domain.ErrorKindInternal),
			domain.TaskMetaMessage: "failed to start workflow",
		})
		h.writeDomainError(w, domain.NewInternalError("Failed to start background task", err), start)
		return
	}

	h.metrics.IncrementTasksTotal(string(domain.TaskStatusPending))
	h.logger.Info("task created",
		zap.String("taskId", taskID),
		zap.String("workflowId", workflowRun.GetID()),
		zap.String("platform", result.Platform),
	)

	h.writeJSON(w, http.StatusAccepted, TaskResponse{TaskID: taskID, Status: domain.TaskStatusPending})
}

// GetTask returns the latest status of a task
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskId")

	record, ok := h.tasks.Status(r.Context(), taskID)
	if !ok {
		h.writeError(w, http.StatusNotFound, errorResponse{
			Error:      "task_not_found",
			Message:    "Task not found or expired",
			Suggestion: "Check the task ID or create a new task",
		})
		return
	}
	h.writeJSON(w, http.StatusOK, record)
}

// ClearTasks removes every tracked task record
func (h *Handler) ClearTasks(w http.ResponseWriter, r *http.Request) {
	deleted := h.tasks.ClearAll(r.Context())
	h.writeJSON(w, http.StatusOK, InvalidateResponse{
		Pattern: string(cache.NamespaceTask) + "*",
		Deleted: deleted,
	})
}

// GetTaskSnapshot returns the metadata document a completed task exported
func (h *Handler) GetTaskSnapshot(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if h.s3Client == nil {
		h.writeError(w, http.StatusServiceUnavailable, errorResponse{
			Error:   "service_unavailable",
			Message: "Snapshot export is not enabled",
		})
		return
	}

	taskID := chi.URLParam(r, "taskId")
	record, ok := h.tasks.Status(r.Context(), taskID)
	if !ok {
		h.writeError(w, http.StatusNotFound, errorResponse{
			Error:      "task_not_found",
			Message:    "Task not found or expired",
			Suggestion: "Check the task ID or create a new task",
		})
		return
	}
	key, _ := record.Metadata[domain.TaskMetaSnapshotKey].(string)
	if record.Status != domain.TaskStatusCompleted || key == "" {
		h.writeError(w, http.StatusNotFound, errorResponse{
			Error:      "snapshot_not_found",
			Message:    "Task has no exported snapshot",
			Suggestion: "Wait for the task to complete",
		})
		return
	}

	var snapshot domain.Snapshot
	if err := h.s3Client.GetJSON(r.Context(), key, &snapshot); err != nil {
		if errors.Is(err, s3.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, errorResponse{
				Error:   "snapshot_not_found",
				Message: "Snapshot no longer exists",
			})
			return
		}
		h.logger.Error("failed to read snapshot", zap.String("taskId", taskID), zap.String("key", key), zap.Error(err))
		h.writeDomainError(w, domain.NewInternalError("Failed to read snapshot", err), start)
		return
	}
	h.writeJSON(w, http.StatusOK, snapshot)
}

// HealthCheck returns health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := map[string]string{
		"status": "healthy",
	}

	// Check cache
	if health := h.cache.HealthCheck(ctx); health.Status != cache.StatusHealthy {
		h.logger.Error("cache health check failed", zap.String("error", health.Error))
		status["cache"] = "unhealthy"
		status["status"] = "unhealthy"
	} else {
		status["cache"] = "healthy"
	}

	// Check S3
	if h.s3Client != nil {
		if err := h.s3Client.Health(ctx); err != nil {
			h.logger.Error("S3 health check failed", zap.Error(err))
			status["s3"] = "unhealthy"
			status["status"] = "unhealthy"
		} else {
			status["s3"] = "healthy"
		}
	}

	statusCode := http.StatusOK
	if status["status"] == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	h.writeJSON(w, statusCode, status)
}

// ReadyCheck returns readiness status. The service can answer requests
// without its cache, so only the process itself is checked.
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{
		"status": "ready",
	}
	if h.temporalClient == nil {
		status["tasks"] = "disabled"
	}
	h.writeJSON(w, http.StatusOK, status)
}

// decodeURL reads the URL from the request body and checks its length
func (h *Handler) decodeURL(r *http.Request) (string, *domain.Error) {
	var req URLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", domain.NewValidationError("Invalid request body")
	}
	url := strings.TrimSpace(req.URL)
	if url == "" {
		return "", domain.NewValidationError(platform.ErrMsgEmptyURL)
	}
	if limit := h.config.API.MaxURLLength; limit > 0 && len(url) > limit {
		return "", domain.NewValidationError("URL is too long")
	}
	return url, nil
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err *domain.Error, start time.Time) {
	if err.Kind == domain.ErrorKindInternal {
		h.logger.Error("request failed", zap.Error(err))
	}
	h.writeError(w, err.HTTPStatus(), errorResponse{
		Error:          string(err.Kind),
		Message:        err.Message,
		Suggestion:     err.Suggestion,
		Details:        err.Details,
		ResponseTimeMs: elapsedMs(start),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, resp errorResponse) {
	resp.Success = false
	h.writeJSON(w, status, resp)
}

// elapsedMs returns milliseconds since start rounded to two decimals
func elapsedMs(start time.Time) float64 {
	return math.Round(float64(time.Since(start).Microseconds())/10) / 100
}
