package metrics

import (
	"strconv"
	"time"

	"ntm-hq/ntm/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// APIMetrics tracks control API requests.
//
// Metrics:
//   - ntm_api_requests_total: Total request count by method, route, status
//   - ntm_api_request_duration_seconds: Request duration histogram
type APIMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewAPIMetrics creates and registers API metrics with the provided registry.
func NewAPIMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *APIMetrics {
	am := &APIMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Total number of control API requests",
			},
			[]string{"method", "route", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "Duration of control API requests in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(am.requestsTotal, am.requestDuration)
	return am
}

// RecordRequest records a completed request. Requests that matched no route
// are reported with route "unmatched".
func (am *APIMetrics) RecordRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	am.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	am.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
