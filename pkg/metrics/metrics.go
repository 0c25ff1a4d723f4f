// Package metrics provides the centralized Prometheus registry reference.
// All metrics are defined in their respective packages (cache, strategy,
// lifecycle, favorites, hydrator, client) to maintain modularity and
// avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - mealkeeper_cache_hits_total{cache} (Counter): Cache hits by cache name
//   - mealkeeper_cache_misses_total{cache} (Counter): Cache misses by cache name
//   - mealkeeper_cache_evictions_total{cache} (Counter): Entries evicted by the entry cap
//   - mealkeeper_cache_written_bytes_total{cache} (Counter): Bytes written into caches
//   - mealkeeper_cache_errors_total{operation} (Counter): Cache backend errors by operation
//
// Strategy Metrics (pkg/strategy):
//   - mealkeeper_strategy_requests_total{strategy, outcome} (Counter):
//     Requests by strategy and outcome (network, cache, fallback)
//
// Lifecycle Metrics (pkg/lifecycle):
//   - mealkeeper_stale_caches_deleted_total (Counter): Stale cache generations deleted on activation
//
// Favorites Metrics (pkg/favorites):
//   - mealkeeper_favorites_ops_total{op, outcome} (Counter): Favorites store operations
//
// Hydrator Metrics (pkg/hydrator):
//   - mealkeeper_hydrator_primes_total{kind, outcome} (Counter):
//     Cache prime operations (kind: snapshot, fetch; outcome: primed, suppressed, failed)
//
// Upstream Metrics (pkg/client):
//   - mealkeeper_upstream_requests_total{endpoint, status} (Counter): Upstream requests
//   - mealkeeper_upstream_request_duration_seconds{endpoint} (Histogram): Upstream request duration
//   - mealkeeper_upstream_errors_total{class} (Counter): Upstream errors by class
//   - mealkeeper_upstream_retries_total{error_class} (Counter): Retry attempts
//   - mealkeeper_upstream_retry_backoff_seconds{error_class} (Histogram): Backoff durations
//   - mealkeeper_upstream_retry_exhausted_total{error_class} (Counter): Exhausted retry budgets
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(mealkeeper_cache_hits_total[5m])) /
//   (sum(rate(mealkeeper_cache_hits_total[5m])) + sum(rate(mealkeeper_cache_misses_total[5m])))
//
//   # Offline Fallback Rate
//   sum(rate(mealkeeper_strategy_requests_total{outcome="fallback"}[5m])) /
//   sum(rate(mealkeeper_strategy_requests_total[5m]))
//
//   # P95 Upstream Latency
//   histogram_quantile(0.95, rate(mealkeeper_upstream_request_duration_seconds_bucket[5m]))
//
//   # Eviction Pressure by Cache
//   rate(mealkeeper_cache_evictions_total[5m])
