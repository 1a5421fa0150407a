package types

import (
	"encoding/json"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Envelope is one order event off the analytics subscription. Routing fields
// come from message attributes, Data is still the encoded payload.
type Envelope struct {
	EventID       string
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   string
	Version       int
	OccurredAt    time.Time
	Data          json.RawMessage
}

// LogFields are the envelope values attached to every log line about it.
func (e Envelope) LogFields() map[string]any {
	return map[string]any{
		"event_id":     e.EventID,
		"event_type":   e.EventType,
		"aggregate_id": e.AggregateID,
	}
}
