package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Upstream calls partitioned by provider and outcome (ok, status_error, transport_error)
	upstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enhancer_upstream_requests_total",
			Help: "Total number of enhancement provider requests",
		},
		[]string{"provider", "outcome"},
	)

	upstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "enhancer_upstream_request_duration_seconds",
			Help:    "Enhancement provider round trip latencies in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		},
		[]string{"provider", "outcome"},
	)

	upstreamResponseBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "enhancer_upstream_response_bytes",
			Help:    "Size of enhanced images returned by the provider",
			Buckets: prometheus.ExponentialBuckets(16*1024, 4, 8),
		},
		[]string{"provider"},
	)
)
