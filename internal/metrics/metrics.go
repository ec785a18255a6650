// Package metrics registers the tile server's Prometheus instrumentation:
// cache hit/miss counters per tier, render latency, and quota rejections.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tileserve_cache_hits_total",
			Help: "Total cache hits by tier (l1, l2).",
		},
		[]string{"tier"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tileserve_cache_misses_total",
			Help: "Total cache misses by tier (l1, l2).",
		},
		[]string{"tier"},
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tileserve_cache_size",
			Help: "Current entry or byte count by cache tier.",
		},
		[]string{"tier"},
	)

	RenderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tileserve_render_requests_total",
			Help: "Total tile render requests by outcome (hit_l1, hit_l2, rendered, not_found, busy, error).",
		},
		[]string{"outcome"},
	)

	RenderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tileserve_render_duration_seconds",
			Help:    "End-to-end render duration for a coordinator-served tile.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"layer"},
	)

	ObjectStoreRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tileserve_object_store_request_duration_seconds",
			Help:    "Object store byte-range GET latency.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"op"},
	)

	QuotaRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tileserve_quota_rejections_total",
			Help: "Requests rejected by a back-pressure semaphore.",
		},
		[]string{"class"}, // "foreground" or "prefetch"
	)

	PrefetchJobsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tileserve_prefetch_jobs_enqueued_total",
			Help: "Prefetch jobs enqueued by the coordinator and warmer.",
		},
		[]string{"source"}, // "ring", "temporal", "warmer"
	)

	IngestionInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tileserve_ingestion_invalidations_total",
			Help: "Cache keys invalidated in response to ingestion events.",
		},
		[]string{"tier"},
	)
)

// RecordCacheResult increments the hit or miss counter for tier.
func RecordCacheResult(tier string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(tier).Inc()
	} else {
		CacheMisses.WithLabelValues(tier).Inc()
	}
}

// RecordRender records a render's outcome and, for completed renders, its
// latency.
func RecordRender(layer, outcome string, duration time.Duration) {
	RenderRequestsTotal.WithLabelValues(outcome).Inc()
	if outcome == "rendered" {
		RenderDuration.WithLabelValues(layer).Observe(duration.Seconds())
	}
}
