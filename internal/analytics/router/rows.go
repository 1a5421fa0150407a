package router

import (
	cbigquery "cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/analytics/types"
	"github.com/angelmondragon/storefront-backend/internal/analytics/writer"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

func orderCreatedRow(envelope types.Envelope, event *payloads.OrderCreatedEvent) (types.OrderEventRow, error) {
	units := 0
	for _, line := range event.Items {
		units += line.Quantity
	}
	return baseRow(envelope, event.OrderID, event.UserID, event.TotalPrice, units, event)
}

// orderPaidRow dates the row at payment time when the payload carries one.
func orderPaidRow(envelope types.Envelope, event *payloads.OrderPaidEvent) (types.OrderEventRow, error) {
	row, err := baseRow(envelope, event.OrderID, event.UserID, event.AmountPaid, event.ItemCount, event)
	if err != nil {
		return row, err
	}
	row.PaidStatus = nullString(string(event.PaidStatus))
	if event.SellerID != nil {
		row.SellerID = nullString(event.SellerID.String())
	}
	if !event.PaidAt.IsZero() {
		row.OccurredAt = event.PaidAt.UTC()
	}
	return row, nil
}

func orderCancelledRow(envelope types.Envelope, event *payloads.OrderCancelledEvent) (types.OrderEventRow, error) {
	row, err := baseRow(envelope, event.OrderID, event.UserID, event.TotalPrice, event.ItemCount, event)
	if err != nil {
		return row, err
	}
	row.Reason = nullString(event.Reason)
	if !event.CancelledAt.IsZero() {
		row.OccurredAt = event.CancelledAt.UTC()
	}
	return row, nil
}

func baseRow(envelope types.Envelope, orderID, userID uuid.UUID, total decimal.Decimal, itemCount int, payload any) (types.OrderEventRow, error) {
	raw, err := writer.EncodeJSON(payload)
	if err != nil {
		return types.OrderEventRow{}, err
	}
	return types.OrderEventRow{
		EventID:    envelope.EventID,
		EventType:  string(envelope.EventType),
		OrderID:    orderID.String(),
		UserID:     userID.String(),
		Total:      total.Rat(),
		ItemCount:  int64(itemCount),
		OccurredAt: envelope.OccurredAt.UTC(),
		Payload:    raw,
	}, nil
}

func nullString(value string) cbigquery.NullString {
	return cbigquery.NullString{StringVal: value, Valid: value != ""}
}
