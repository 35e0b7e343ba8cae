// Package metrics provides the centralized Prometheus metrics registry for the
// CoinGecko client. All metrics are defined in their respective packages
// (client, cache, ratelimit) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - cg_requests_total{endpoint, status} (Counter): Total requests by endpoint and HTTP status
//   - cg_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - cg_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - cg_retries_total (Counter): Retry attempts triggered by 429 responses
//   - cg_retry_backoff_seconds (Histogram): Observed backoff wait durations
//   - cg_retry_exhausted_total (Counter): Requests that exhausted the retry budget
//
// Queue and Batch Metrics (pkg/client):
//   - cg_queue_depth (Gauge): Number of calls currently queued
//   - cg_batch_executions_total{outcome} (Counter): Batch drains by outcome (success, failure)
//   - cg_pages_fetched_total (Counter): Pages fetched by the pagination aggregator
//
// Cache Metrics (pkg/cache):
//   - cg_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - cg_cache_misses_total (Counter): Cache misses
//   - cg_cache_size_bytes{layer="redis"} (Gauge): Bytes written to the cache
//   - cg_cache_errors_total{operation} (Counter): Cache operation errors
//
// Rate Limit Metrics (pkg/ratelimit):
//   - cg_429_observed_total (Counter): 429 responses recorded in the shared tracker
//   - cg_cooldown_remaining_seconds (Gauge): Seconds remaining in the shared cooldown
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(cg_cache_hits_total[5m])) /
//   (sum(rate(cg_cache_hits_total[5m])) + sum(rate(cg_cache_misses_total[5m])))
//
//   # Request Error Rate
//   rate(cg_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(cg_request_duration_seconds_bucket[5m]))
//
//   # Retry Exhaustion Rate
//   rate(cg_retry_exhausted_total[5m]) / rate(cg_retries_total[5m])
