// Package metrics holds the gateway's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tc_gateway_requests_total",
		Help: "Requests processed by the gateway, by outcome",
	}, []string{"outcome"})

	RequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tc_gateway_request_duration_seconds",
		Help:    "End-to-end request duration through the filter chain",
		Buckets: prometheus.DefBuckets,
	})

	SlowRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tc_gateway_slow_requests_total",
		Help: "Requests exceeding the slow-request threshold",
	})

	UnauthorizedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tc_gateway_unauthorized_total",
		Help: "Requests rejected by the authentication stage, by reason",
	}, []string{"reason"})
)
