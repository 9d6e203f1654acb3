package metrics

import "github.com/prometheus/client_golang/prometheus"

// BreakerMetrics holds Prometheus metrics for circuit breakers.
type BreakerMetrics struct {
	StateChanges *prometheus.CounterVec
	State        *prometheus.GaugeVec
	Rejected     *prometheus.CounterVec
}

// NewBreakerMetrics creates and registers circuit breaker metrics on the given registry.
func NewBreakerMetrics(reg prometheus.Registerer) *BreakerMetrics {
	m := &BreakerMetrics{
		StateChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "circuit_breaker",
			Name:      "state_changes_total",
			Help:      "Circuit breaker state transitions, by component and new state.",
		}, []string{"component", "state"}),
		State: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "circuit_breaker",
			Name:      "state",
			Help:      "Current circuit breaker state (0=closed, 1=half-open, 2=open).",
		}, []string{"component"}),
		Rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "circuit_breaker",
			Name:      "rejected_total",
			Help:      "Calls rejected while the circuit was open, by component.",
		}, []string{"component"}),
	}

	reg.MustRegister(m.StateChanges, m.State, m.Rejected)
	return m
}
