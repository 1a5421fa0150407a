package metrics

import "github.com/prometheus/client_golang/prometheus"

// Event handling outcomes.
const (
	OutcomeHandled   = "handled"
	OutcomeDuplicate = "duplicate"
	OutcomeSkipped   = "skipped"
	OutcomeInvalid   = "invalid"
	OutcomeFailed    = "failed"
	OutcomePublished = "published"
	OutcomeParked    = "parked"
)

// EventMetrics counts order events moving through the outbox publisher and
// the Pub/Sub consumers.
type EventMetrics struct {
	events *prometheus.CounterVec
}

func NewEventMetrics(reg prometheus.Registerer) *EventMetrics {
	if reg == nil {
		return &EventMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_total",
		Help:      "Order events by component, event type and outcome.",
	}, []string{"component", "event_type", "outcome"})
	reg.MustRegister(events)
	return &EventMetrics{events: events}
}

func (m *EventMetrics) Inc(component, eventType, outcome string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(normalizeLabel(component), normalizeLabel(eventType), outcome).Inc()
}
