package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the policy kernel.
type Metrics struct {
	EvaluateLatency    prometheus.Histogram
	TemplatesEvaluated prometheus.Counter
	EvaluationFailures prometheus.Counter
	InstanceTransitions *prometheus.CounterVec
}

// New creates a Metrics instance with all kernel metrics registered.
func New() *Metrics {
	return &Metrics{
		EvaluateLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tokenops_policy_evaluate_duration_seconds",
			Help:    "Duration of full policy kernel evaluations",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
		TemplatesEvaluated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tokenops_policy_templates_evaluated_total",
			Help: "Total requirement templates inspected across evaluations",
		}),
		EvaluationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tokenops_policy_evaluation_failures_total",
			Help: "Total blocking evaluation failures (catalog unavailable or unknown fact)",
		}),
		InstanceTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tokenops_requirement_transitions_total",
			Help: "Total requirement instance status transitions",
		}, []string{"to"}),
	}
}

// ObserveEvaluation records one completed evaluation.
func (m *Metrics) ObserveEvaluation(d time.Duration, templates int) {
	if m == nil {
		return
	}
	m.EvaluateLatency.Observe(d.Seconds())
	m.TemplatesEvaluated.Add(float64(templates))
}

// IncrementFailure records a blocking evaluation failure.
func (m *Metrics) IncrementFailure() {
	if m != nil {
		m.EvaluationFailures.Inc()
	}
}

// IncrementTransition records an instance status transition.
func (m *Metrics) IncrementTransition(to string) {
	if m != nil {
		m.InstanceTransitions.WithLabelValues(to).Inc()
	}
}
