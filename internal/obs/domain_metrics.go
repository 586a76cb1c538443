package obs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DomainMetrics tracks totals computation and document submission outcomes.
// A nil receiver records nothing.
type DomainMetrics struct {
	Breakdowns      *prometheus.CounterVec
	VerifyFailures  *prometheus.CounterVec
	Submissions     *prometheus.CounterVec
	BackendRequests *prometheus.CounterVec
	BackendLatency  *prometheus.HistogramVec
}

// NewDomainMetrics initialises and registers domain-specific Prometheus collectors.
func NewDomainMetrics(namespace string, reg prometheus.Registerer) *DomainMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &DomainMetrics{
		Breakdowns: registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "totals_breakdowns_total",
			Help:      "Count of computed document breakdowns by flow and tax regime.",
		}, []string{"flow", "regime"})),
		VerifyFailures: registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "totals_verify_failures_total",
			Help:      "Count of breakdowns rejected by reconciliation checks.",
		}, []string{"flow"})),
		Submissions: registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_submitted_total",
			Help:      "Count of document submissions by flow, mode and result.",
		}, []string{"flow", "mode", "result"})),
		BackendRequests: registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Count of backend API calls by operation and outcome.",
		}, []string{"op", "outcome"})),
		BackendLatency: registerOrReuse(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_ms",
			Help:      "Latency of backend API calls in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"op"})),
	}
}

// ObserveBreakdown records a computed breakdown.
func (m *DomainMetrics) ObserveBreakdown(flow, regime string) {
	if m == nil {
		return
	}
	m.Breakdowns.WithLabelValues(flow, regime).Inc()
}

// ObserveVerifyFailure records a breakdown that failed reconciliation.
func (m *DomainMetrics) ObserveVerifyFailure(flow string) {
	if m == nil {
		return
	}
	m.VerifyFailures.WithLabelValues(flow).Inc()
}

// ObserveSubmission records a submit attempt.
func (m *DomainMetrics) ObserveSubmission(flow, mode string, err error) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(flow, mode, result(err)).Inc()
}

// ObserveBackend records a backend call.
func (m *DomainMetrics) ObserveBackend(op string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.BackendRequests.WithLabelValues(op, result(err)).Inc()
	m.BackendLatency.WithLabelValues(op).Observe(DurationMillis(d))
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
