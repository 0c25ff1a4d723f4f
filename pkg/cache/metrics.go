package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by cache name
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mealkeeper_cache_hits_total",
			Help: "Total number of runtime cache hits",
		},
		[]string{"cache"},
	)

	// CacheMisses tracks cache misses by cache name
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mealkeeper_cache_misses_total",
			Help: "Total number of runtime cache misses",
		},
		[]string{"cache"},
	)

	// CacheEvictions tracks FIFO evictions by cache name
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mealkeeper_cache_evictions_total",
			Help: "Total number of entries evicted by the FIFO size limit",
		},
		[]string{"cache"},
	)

	// CacheSize tracks bytes written into each cache
	CacheSize = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mealkeeper_cache_written_bytes_total",
			Help: "Total bytes written into each runtime cache",
		},
		[]string{"cache"},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mealkeeper_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "match", "put", "delete"
	)
)
