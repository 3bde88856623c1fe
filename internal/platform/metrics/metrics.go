package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds process-wide HTTP metrics. Module-specific metrics live in
// their own metrics packages.
type Metrics struct {
	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec

	IssuancesSubmitted prometheus.Counter
	ManifestsAnchored  prometheus.Counter
	ManifestFailures   prometheus.Counter
}

// New creates and registers all platform metrics.
func New() *Metrics {
	return &Metrics{
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tokenops_http_requests_total",
			Help: "Total HTTP requests by method, route, and status code",
		}, []string{"method", "route", "status"}),

		HTTPLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tokenops_http_request_duration_seconds",
			Help:    "HTTP request duration by route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route"}),

		IssuancesSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tokenops_issuances_submitted_total",
			Help: "Total issuances submitted to a ledger adapter",
		}),

		ManifestsAnchored: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tokenops_manifests_anchored_total",
			Help: "Total compliance manifest hashes anchored on-chain",
		}),

		ManifestFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tokenops_manifest_build_failures_total",
			Help: "Total manifest build/hash failures (issuance proceeded without a manifest)",
		}),
	}
}

// ObserveRequest records one completed HTTP request.
func (m *Metrics) ObserveRequest(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
	m.HTTPLatency.WithLabelValues(route).Observe(seconds)
}
