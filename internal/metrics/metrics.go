// Package metrics exposes Prometheus collectors and in-process latency
// aggregates for extraction and projection.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Extractions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codetransmute_extractions_total",
			Help: "Structural extractions run, by language hint",
		},
		[]string{"language"},
	)

	TreeCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codetransmute_tree_cache_lookups_total",
			Help: "Structural tree cache lookups, by result",
		},
		[]string{"result"},
	)

	Projections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codetransmute_projections_total",
			Help: "Projections to block markup, by abstraction level",
		},
		[]string{"level"},
	)

	ProjectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "codetransmute_projection_duration_seconds",
			Help:    "Time to plan and render block markup",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "codetransmute_active_sessions",
			Help: "Number of live editor sessions",
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codetransmute_http_requests_total",
			Help: "HTTP requests served",
		},
		[]string{"method", "status"},
	)
)

// ObserveProjection records one projection in the Prometheus collectors.
func ObserveProjection(level int, d time.Duration) {
	Projections.WithLabelValues(strconv.Itoa(level)).Inc()
	ProjectionDuration.Observe(d.Seconds())
}
