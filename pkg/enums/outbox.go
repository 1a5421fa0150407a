package enums

import "slices"

// OutboxAggregateType names the entity an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder OutboxAggregateType = "order"
	AggregateUser  OutboxAggregateType = "user"
)

var aggregateTypes = []OutboxAggregateType{AggregateOrder, AggregateUser}

func (a OutboxAggregateType) IsValid() bool { return slices.Contains(aggregateTypes, a) }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse(aggregateTypes, value, "aggregate type")
}

// OutboxEventType names a domain event. Values are also the Pub/Sub
// event_type attribute.
type OutboxEventType string

const (
	EventOrderCreated       OutboxEventType = "order.created"
	EventOrderPaid          OutboxEventType = "order.paid"
	EventOrderCancelled     OutboxEventType = "order.cancelled"
	EventPromoMailRequested OutboxEventType = "promo.mail_requested"
)

var orderEventTypes = []OutboxEventType{EventOrderCreated, EventOrderPaid, EventOrderCancelled}

var eventTypes = append(slices.Clone(orderEventTypes), EventPromoMailRequested)

func (e OutboxEventType) IsValid() bool { return slices.Contains(eventTypes, e) }

// IsOrderEvent reports whether analytics consumers track the event.
func (e OutboxEventType) IsOrderEvent() bool { return slices.Contains(orderEventTypes, e) }

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse(eventTypes, value, "event type")
}
