// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Reconciliation metrics
	RecordsReconciled    *prometheus.CounterVec
	ReconciliationErrors *prometheus.CounterVec

	// Scoring metrics
	ScoresComputed prometheus.Counter
	ScoreWarnings  prometheus.Counter

	// Persistence metrics
	VersionConflicts prometheus.Counter
	HistoryAppends   prometheus.Counter
	DBQueryDuration  *prometheus.HistogramVec
	DBQueryErrors    *prometheus.CounterVec

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  prometheus.Histogram
	SubnetsScored     prometheus.Gauge
	SubnetsSkipped    prometheus.Gauge

	// Provider metrics
	ProviderRequestLatency *prometheus.HistogramVec
	ProviderRequestErrors  *prometheus.CounterVec
	CacheHits              prometheus.Counter
	CacheMisses            prometheus.Counter

	// Health metrics
	LastSuccessfulRescore prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "subnet_nexus"
	}

	return &Metrics{
		// Reconciliation metrics
		RecordsReconciled: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "records_total",
			Help:      "Total number of raw records reconciled by provider",
		}, []string{"provider"}),
		ReconciliationErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "errors_total",
			Help:      "Total number of reconciliation rejections by provider",
		}, []string{"provider"}),

		// Scoring metrics
		ScoresComputed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "scores_computed_total",
			Help:      "Total number of score sets computed",
		}),
		ScoreWarnings: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "warnings_total",
			Help:      "Total number of non-finite inputs zeroed during scoring",
		}),

		// Persistence metrics
		VersionConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "version_conflicts_total",
			Help:      "Total number of optimistic concurrency conflicts on upsert",
		}),
		HistoryAppends: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "history_appends_total",
			Help:      "Total number of history entries appended",
		}),
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Pipeline metrics
		PipelineRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of rescoring runs by status",
		}, []string{"status"}),
		PipelineDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Rescoring run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		SubnetsScored: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "subnets_scored",
			Help:      "Number of subnets scored in the last run",
		}),
		SubnetsSkipped: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "subnets_skipped",
			Help:      "Number of subnets skipped in the last run",
		}),

		// Provider metrics
		ProviderRequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "request_latency_seconds",
			Help:      "Upstream provider request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "endpoint"}),
		ProviderRequestErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "request_errors_total",
			Help:      "Total number of failed upstream provider requests",
		}, []string{"provider", "endpoint"}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "cache_hits_total",
			Help:      "Total number of provider cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "cache_misses_total",
			Help:      "Total number of provider cache misses",
		}),

		// Health metrics
		LastSuccessfulRescore: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_rescore_timestamp",
			Help:      "Unix timestamp of last successful rescoring run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordReconciled increments the reconciled records counter.
func RecordReconciled(provider string) {
	DefaultMetrics.RecordsReconciled.WithLabelValues(provider).Inc()
}

// RecordReconcileError increments the reconciliation error counter.
func RecordReconcileError(provider string) {
	DefaultMetrics.ReconciliationErrors.WithLabelValues(provider).Inc()
}

// RecordScoreComputed records a computed score set and its warnings.
func RecordScoreComputed(warnings int) {
	DefaultMetrics.ScoresComputed.Inc()
	DefaultMetrics.ScoreWarnings.Add(float64(warnings))
}

// RecordVersionConflict increments the optimistic concurrency conflict counter.
func RecordVersionConflict() {
	DefaultMetrics.VersionConflicts.Inc()
}

// RecordHistoryAppend increments the history append counter.
func RecordHistoryAppend() {
	DefaultMetrics.HistoryAppends.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordPipelineRun records a rescoring run.
func RecordPipelineRun(status string, durationSeconds float64, scored, skipped int) {
	DefaultMetrics.PipelineRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.PipelineDuration.Observe(durationSeconds)
	DefaultMetrics.SubnetsScored.Set(float64(scored))
	DefaultMetrics.SubnetsSkipped.Set(float64(skipped))
}

// RecordProviderRequest records an upstream request's latency and outcome.
func RecordProviderRequest(provider, endpoint string, seconds float64, err error) {
	DefaultMetrics.ProviderRequestLatency.WithLabelValues(provider, endpoint).Observe(seconds)
	if err != nil {
		DefaultMetrics.ProviderRequestErrors.WithLabelValues(provider, endpoint).Inc()
	}
}

// RecordCacheHit increments the provider cache hit counter.
func RecordCacheHit() {
	DefaultMetrics.CacheHits.Inc()
}

// RecordCacheMiss increments the provider cache miss counter.
func RecordCacheMiss() {
	DefaultMetrics.CacheMisses.Inc()
}

// RecordRescoreSuccess updates the last successful rescore timestamp.
func RecordRescoreSuccess(unixSeconds int64) {
	DefaultMetrics.LastSuccessfulRescore.Set(float64(unixSeconds))
}
