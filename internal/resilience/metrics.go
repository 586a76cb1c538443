package resilience

import "github.com/prometheus/client_golang/prometheus"

// BreakerMetrics exports breaker positions and transitions, labelled by
// breaker name. A nil *BreakerMetrics records nothing.
type BreakerMetrics struct {
	State       *prometheus.GaugeVec
	Transitions *prometheus.CounterVec
}

// NewBreakerMetrics registers the breaker collectors on reg. A nil reg
// leaves them unregistered.
func NewBreakerMetrics(namespace string, reg prometheus.Registerer) *BreakerMetrics {
	m := &BreakerMetrics{
		State: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breaker_state",
			Help:      "Breaker position: 0 closed, 1 open, 2 half-open.",
		}, []string{"target"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breaker_transitions_total",
			Help:      "Breaker state transitions.",
		}, []string{"target", "from", "to"}),
	}
	if reg != nil {
		reg.MustRegister(m.State, m.Transitions)
	}
	return m
}

func (m *BreakerMetrics) setState(name string, s State) {
	if m == nil {
		return
	}
	m.State.WithLabelValues(name).Set(float64(s))
}

func (m *BreakerMetrics) transition(name string, from, to State) {
	if m == nil {
		return
	}
	m.setState(name, to)
	m.Transitions.WithLabelValues(name, from.String(), to.String()).Inc()
}
