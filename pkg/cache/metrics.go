package cache

import (
	"github.com/Sternrassler/assessment-parcels/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by entry state ("fresh", "stale")
	CacheHits = promauto.With(metrics.Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessments_cache_hits_total",
			Help: "Total number of page cache hits",
		},
		[]string{"state"},
	)

	// CacheMisses tracks cache misses
	CacheMisses = promauto.With(metrics.Registry).NewCounter(
		prometheus.CounterOpts{
			Name: "assessments_cache_misses_total",
			Help: "Total number of page cache misses",
		},
	)

	// CacheSize tracks bytes written to the cache
	CacheSize = promauto.With(metrics.Registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "assessments_cache_size_bytes",
			Help: "Bytes of page data written to the cache by this process",
		},
	)

	// NotModifiedResponses tracks successful revalidations
	NotModifiedResponses = promauto.With(metrics.Registry).NewCounter(
		prometheus.CounterOpts{
			Name: "assessments_304_responses_total",
			Help: "Total number of 304 Not Modified responses",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.With(metrics.Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessments_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
