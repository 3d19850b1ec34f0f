// Package metrics owns the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	Registry = prometheus.NewRegistry()

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sparkpad_http_requests_total",
			Help: "Total number of HTTP requests processed.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sparkpad_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	StoreCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sparkpad_store_calls_total",
			Help: "Civil Memory calls by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)

	SocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sparkpad_socket_clients",
			Help: "Currently connected websocket clients.",
		},
	)
)

func init() {
	Registry.MustRegister(
		HTTPRequests,
		HTTPDuration,
		StoreCalls,
		SocketClients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}
