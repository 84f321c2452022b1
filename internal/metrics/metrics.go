package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Delivery outcomes
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Metrics holds the watcher's prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	deliveries *prometheus.CounterVec
	events     *prometheus.CounterVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qrwatcher",
			Name:      "deliveries_total",
			Help:      "Telegram deliveries by action and outcome.",
		}, []string{"action", "outcome"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qrwatcher",
			Name:      "events_total",
			Help:      "Bot events processed by kind.",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.deliveries, m.events)
	}
	return m
}

// Delivery records the outcome of a gateway call
func (m *Metrics) Delivery(action string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeFailed
	}
	m.deliveries.WithLabelValues(action, outcome).Inc()
}

// Event records a processed bot event
func (m *Metrics) Event(kind string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(kind).Inc()
}
