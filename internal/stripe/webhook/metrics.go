package webhook

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts delivery attempts by outcome.
type Metrics struct {
	Queued    prometheus.Counter
	Delivered *prometheus.CounterVec
	Dropped   prometheus.Counter
}

// NewMetrics registers the pipeline's counters with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Queued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mock_services",
			Subsystem: "webhooks",
			Name:      "queued_total",
			Help:      "Webhook deliveries enqueued.",
		}),
		Delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mock_services",
			Subsystem: "webhooks",
			Name:      "delivered_total",
			Help:      "Webhook delivery attempts by outcome.",
		}, []string{"outcome"}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mock_services",
			Subsystem: "webhooks",
			Name:      "dropped_total",
			Help:      "Webhook deliveries dropped because the pipeline was stopped.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.Queued, m.Delivered, m.Dropped)
	}
	return m
}
