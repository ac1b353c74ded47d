package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	SessionAcquisitionsTotal        *prometheus.CounterVec // outcome: reused, launched
	SessionAcquisitionFailuresTotal prometheus.Counter
	SessionReconnectFailuresTotal   prometheus.Counter
	SessionReleasesTotal            prometheus.Counter
	SessionsInUse                   prometheus.Gauge

	CacheLookupsTotal       *prometheus.CounterVec // result: hit, miss, error
	CacheWriteFailuresTotal prometheus.Counter

	PipelineDuration             *prometheus.HistogramVec
	PipelineFailuresTotal        *prometheus.CounterVec
	ClassificationFallbacksTotal prometheus.Counter
)

var initOnce sync.Once

// Init registers all collectors with the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(register)
}

func register() {
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	SessionAcquisitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "browser_session_acquisitions_total",
			Help: "Browser sessions acquired, by whether an idle session was reused or a new one launched.",
		},
		[]string{"outcome"},
	)

	SessionAcquisitionFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "browser_session_acquisition_failures_total",
			Help: "Acquisitions that failed before any session was held.",
		},
	)

	SessionReconnectFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "browser_session_reconnect_failures_total",
			Help: "Reconnect attempts to a listed idle session that failed and fell back to launch.",
		},
	)

	SessionReleasesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "browser_session_releases_total",
			Help: "Browser handles released back to the pool.",
		},
	)

	SessionsInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "browser_sessions_in_use",
			Help: "Browser handles currently held by in-flight requests.",
		},
	)

	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "page_cache_lookups_total",
			Help: "Page cache lookups by result.",
		},
		[]string{"result"},
	)

	CacheWriteFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "page_cache_write_failures_total",
			Help: "Pipeline results that could not be written back to the cache.",
		},
	)

	PipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "page_pipeline_duration_seconds",
			Help:    "Duration of uncached page pipeline runs.",
			Buckets: []float64{1, 2.5, 5, 10, 15, 30, 60, 120},
		},
		[]string{"status"},
	)

	PipelineFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "page_pipeline_failures_total",
			Help: "Failed pipeline runs by error type.",
		},
		[]string{"error_type"},
	)

	ClassificationFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "image_classification_fallbacks_total",
			Help: "Image classifications that fell back to empty results.",
		},
	)
}
