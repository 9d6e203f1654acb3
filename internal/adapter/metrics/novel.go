package metrics

import "github.com/prometheus/client_golang/prometheus"

// NovelMetrics holds Prometheus metrics for the novel's entry points.
type NovelMetrics struct {
	Operations        *prometheus.CounterVec
	Aborts            *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	TokensSpent       *prometheus.CounterVec
	CurrentCost       prometheus.Gauge
	CadenceAverage    prometheus.Gauge
	WriteCursor       prometheus.Gauge
	CurrentBook       prometheus.Gauge
	SettleFailures    prometheus.Counter
	RefundFailures    prometheus.Counter
	PublishErrors     prometheus.Counter
}

// NewNovelMetrics creates and registers novel metrics on the given registry.
func NewNovelMetrics(reg prometheus.Registerer) *NovelMetrics {
	m := &NovelMetrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "novel",
			Name:      "operations_total",
			Help:      "Total number of write operations, by operation and result.",
		}, []string{"operation", "result"}),
		Aborts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "novel",
			Name:      "aborts_total",
			Help:      "Total number of aborted write operations, by operation and error kind.",
		}, []string{"operation", "kind"}),
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "novel",
			Name:      "operation_duration_seconds",
			Help:      "Duration of write operations in seconds, ledger calls included.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"operation"}),
		TokensSpent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "novel",
			Name:      "tokens_spent_total",
			Help:      "Total number of tokens debited, by purpose.",
		}, []string{"purpose"}),
		CurrentCost: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "novel",
			Name:      "sentence_cost",
			Help:      "Current price of adding a sentence.",
		}),
		CadenceAverage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "novel",
			Name:      "cadence_average",
			Help:      "Rolling average interval between contributions, in cadence units.",
		}),
		WriteCursor: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "novel",
			Name:      "write_cursor",
			Help:      "Number of sentences written to the current book.",
		}),
		CurrentBook: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "novel",
			Name:      "current_book",
			Help:      "Index of the current book.",
		}),
		SettleFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "novel",
			Name:      "settle_failures_total",
			Help:      "Total number of writes rolled back because the debit and state save could not complete together.",
		}),
		RefundFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "novel",
			Name:      "refund_failures_total",
			Help:      "Total number of debits that could not be refunded after a failed state save.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "novel",
			Name:      "event_publish_errors_total",
			Help:      "Total number of failed event publications.",
		}),
	}

	reg.MustRegister(
		m.Operations, m.Aborts, m.OperationDuration, m.TokensSpent,
		m.CurrentCost, m.CadenceAverage, m.WriteCursor, m.CurrentBook,
		m.SettleFailures, m.RefundFailures, m.PublishErrors,
	)
	return m
}
