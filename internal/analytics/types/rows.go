package types

import (
	"math/big"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// OrderEventRow mirrors the order_events BigQuery schema. Total is NUMERIC.
type OrderEventRow struct {
	EventID    string               `bigquery:"event_id"`
	EventType  string               `bigquery:"event_type"`
	OrderID    string               `bigquery:"order_id"`
	UserID     string               `bigquery:"user_id"`
	SellerID   cbigquery.NullString `bigquery:"seller_id"`
	PaidStatus cbigquery.NullString `bigquery:"paid_status"`
	Reason     cbigquery.NullString `bigquery:"reason"`
	Total      *big.Rat             `bigquery:"total"`
	ItemCount  int64                `bigquery:"item_count"`
	OccurredAt time.Time            `bigquery:"occurred_at"`
	Payload    cbigquery.NullJSON   `bigquery:"payload"`
}
