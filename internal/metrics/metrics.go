package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	metadataRequests   *prometheus.CounterVec
	cacheOperations    *prometheus.CounterVec
	extractionDuration *prometheus.HistogramVec
	extractionFailures *prometheus.CounterVec
	extractionsActive  prometheus.Gauge
	tasksTotal         *prometheus.CounterVec
	rateLimited        prometheus.Counter
	snapshotBytesTotal prometheus.Counter
}

// New creates a new metrics instance registered with reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	m := &Metrics{
		metadataRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vidnet_metadata_requests_total",
				Help: "Total number of metadata requests by platform and outcome",
			},
			[]string{"platform", "outcome"},
		),
		cacheOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vidnet_cache_operations_total",
				Help: "Total number of cache operations by operation and result",
			},
			[]string{"op", "result"},
		),
		extractionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vidnet_extraction_duration_seconds",
				Help:    "Duration of provider extractions in seconds",
				Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 0.25s to 32s
			},
			[]string{"platform"},
		),
		extractionFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vidnet_extraction_failures_total",
				Help: "Total number of extraction failures by platform and error kind",
			},
			[]string{"platform", "kind"},
		),
		extractionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "vidnet_extractions_inflight",
				Help: "Number of provider extractions currently running",
			},
		),
		tasksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vidnet_tasks_total",
				Help: "Total number of extraction task transitions by status",
			},
			[]string{"status"},
		),
		rateLimited: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "vidnet_rate_limited_requests_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
		),
		snapshotBytesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "vidnet_snapshot_bytes_total",
				Help: "Total bytes of metadata snapshots uploaded to S3",
			},
		),
	}

	return m
}

// RecordMetadataRequest counts a finished metadata request
func (m *Metrics) RecordMetadataRequest(platform, outcome string) {
	m.metadataRequests.WithLabelValues(platform, outcome).Inc()
}

// RecordCacheOperation counts a cache operation
func (m *Metrics) RecordCacheOperation(op, result string) {
	m.cacheOperations.WithLabelValues(op, result).Inc()
}

// RecordExtractionDuration records the duration of a provider call
func (m *Metrics) RecordExtractionDuration(platform string, seconds float64) {
	m.extractionDuration.WithLabelValues(platform).Observe(seconds)
}

// IncrementExtractionFailures increments the extraction failures counter
func (m *Metrics) IncrementExtractionFailures(platform, kind string) {
	m.extractionFailures.WithLabelValues(platform, kind).Inc()
}

// IncrementExtractionsActive increments the in-flight extractions gauge
func (m *Metrics) IncrementExtractionsActive() {
	m.extractionsActive.Inc()
}

// DecrementExtractionsActive decrements the in-flight extractions gauge
func (m *Metrics) DecrementExtractionsActive() {
	m.extractionsActive.Dec()
}

// IncrementTasksTotal increments the task transitions counter
func (m *Metrics) IncrementTasksTotal(status string) {
	m.tasksTotal.WithLabelValues(status).Inc()
}

// IncrementRateLimited counts a rejected request
func (m *Metrics) IncrementRateLimited() {
	m.rateLimited.Inc()
}

// AddSnapshotBytes adds bytes to the snapshot upload total
func (m *Metrics) AddSnapshotBytes(bytes float64) {
	m.snapshotBytesTotal.Add(bytes)
}
