package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for client operations.
var (
	cgRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cg_requests_total",
		Help: "Total CoinGecko requests by endpoint and status",
	}, []string{"endpoint", "status"})

	cgRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cg_request_duration_seconds",
		Help:    "CoinGecko request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	cgErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cg_errors_total",
		Help: "Total request errors by class",
	}, []string{"class"})

	cgRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cg_retries_total",
		Help: "Total number of rate-limit retry attempts",
	})

	cgRetryBackoffSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cg_retry_backoff_seconds",
		Help:    "Time spent waiting between rate-limited attempts",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	})

	cgRetryExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cg_retry_exhausted_total",
		Help: "Total number of requests that exhausted the retry budget",
	})

	cgQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cg_queue_depth",
		Help: "Number of calls currently queued for deferred execution",
	})

	cgBatchExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cg_batch_executions_total",
		Help: "Total queue drains by outcome",
	}, []string{"outcome"})

	cgPagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cg_pages_fetched_total",
		Help: "Total pages fetched through the pagination aggregator",
	})
)
