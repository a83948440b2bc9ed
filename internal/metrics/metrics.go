// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "podcastgen"

var (
	ScriptsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scripts_generated_total",
			Help:      "Script generation attempts by result",
		},
		[]string{"result"},
	)

	SegmentsSynthesized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_synthesized_total",
			Help:      "Speech segments by result",
		},
		[]string{"result"},
	)

	SynthesisCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_cache_total",
			Help:      "Clip cache lookups by outcome",
		},
		[]string{"outcome"},
	)

	Assemblies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assemblies_total",
			Help:      "Combined podcast assemblies by result",
		},
		[]string{"result"},
	)

	AudioSeconds = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_seconds_total",
			Help:      "Seconds of combined podcast audio produced",
		},
	)

	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_processed_total",
			Help:      "Queue jobs processed by type and result",
		},
		[]string{"type", "result"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Result labels.
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Result returns ResultOK for a nil error and ResultFailed otherwise.
func Result(err error) string {
	if err != nil {
		return ResultFailed
	}
	return ResultOK
}
