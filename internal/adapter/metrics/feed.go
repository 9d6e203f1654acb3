package metrics

import "github.com/prometheus/client_golang/prometheus"

// FeedMetrics holds Prometheus metrics for the live event feed.
type FeedMetrics struct {
	ActiveConnections prometheus.Gauge
	MessagesPublished *prometheus.CounterVec
}

func NewFeedMetrics(reg prometheus.Registerer) *FeedMetrics {
	m := &FeedMetrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "active_connections",
			Help:      "Number of connected live feed clients.",
		}),
		MessagesPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "messages_published_total",
			Help:      "Events pushed to the live feed, by event type.",
		}, []string{"type"}),
	}

	reg.MustRegister(m.ActiveConnections, m.MessagesPublished)
	return m
}
