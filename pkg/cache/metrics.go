package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks fresh cache hits by backend
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reqcache_cache_hits_total",
			Help: "Total number of fresh cache hits",
		},
		[]string{"backend"}, // "sqlite"
	)

	// CacheMisses tracks cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reqcache_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	// CacheStale tracks lookups that found an expired entry
	CacheStale = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reqcache_cache_stale_total",
			Help: "Total number of lookups that found an expired entry",
		},
	)

	// CacheSize tracks bytes written to the cache by backend
	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reqcache_cache_size_bytes",
			Help: "Response bytes written to the cache",
		},
		[]string{"backend"},
	)

	// NotModifiedResponses tracks 304 Not Modified responses
	NotModifiedResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reqcache_304_responses_total",
			Help: "Total number of 304 Not Modified responses",
		},
	)

	// ConditionalRequestsSent tracks requests sent with If-None-Match or If-Modified-Since
	ConditionalRequestsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reqcache_conditional_requests_total",
			Help: "Total number of conditional requests sent",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reqcache_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "clear"
	)
)
