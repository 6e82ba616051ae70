package feeds

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	buildCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "multifeed_builds_total",
		Help: "The total number of feed aggregation passes",
	})

	buildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "multifeed_build_duration_seconds",
		Help:    "Duration of feed aggregation passes",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // Start at 1ms, double each bucket, 12 buckets
	})

	degradedBlogQueries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "multifeed_degraded_blog_queries_total",
		Help: "The number of per-blog queries that failed and contributed nothing",
	})

	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "multifeed_cache_hits_total",
		Help: "The number of feed requests served from the document cache",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "multifeed_cache_misses_total",
		Help: "The number of feed requests that had to rebuild the document",
	})

	cacheInvalidations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "multifeed_cache_invalidations_total",
		Help: "The number of explicit document cache invalidations",
	})
)
