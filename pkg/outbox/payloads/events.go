package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// OrderItemLine is the per-item snapshot carried by order events.
type OrderItemLine struct {
	ProductID  uuid.UUID       `json:"product_id"`
	SellerID   uuid.UUID       `json:"seller_id"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	DiscountID *uuid.UUID      `json:"discount_id,omitempty"`
}

// OrderCreatedEvent is emitted with the order insert.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID       `json:"order_id"`
	UserID        uuid.UUID       `json:"user_id"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	DeliveryPrice decimal.Decimal `json:"delivery_price"`
	Items         []OrderItemLine `json:"items"`
}

// OrderPaidEvent is emitted when a Stripe session settles all or part of an order.
type OrderPaidEvent struct {
	OrderID    uuid.UUID        `json:"order_id"`
	UserID     uuid.UUID        `json:"user_id"`
	SellerID   *uuid.UUID       `json:"seller_id,omitempty"`
	PaidStatus enums.PaidStatus `json:"paid_status"`
	AmountPaid decimal.Decimal  `json:"amount_paid"`
	ItemCount  int              `json:"item_count"`
	SessionID  string           `json:"session_id"`
	PaidAt     time.Time        `json:"paid_at"`
}

// OrderCancelledEvent is emitted by buyer cancellation and the stale order job.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	UserID      uuid.UUID       `json:"user_id"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	ItemCount   int             `json:"item_count"`
	Reason      string          `json:"reason"`
	CancelledAt time.Time       `json:"cancelled_at"`
}

// PromoProduct is one discounted product offered in a promo mail.
type PromoProduct struct {
	ProductID uuid.UUID           `json:"product_id"`
	Name      string              `json:"name"`
	MinPrice  decimal.NullDecimal `json:"min_price"`
}

// PromoMailRequestedEvent asks the mailer to send the weekly offers.
type PromoMailRequestedEvent struct {
	UserID   uuid.UUID      `json:"user_id"`
	Email    string         `json:"email"`
	Login    string         `json:"login"`
	Week     string         `json:"week"`
	Products []PromoProduct `json:"products"`
}

// Cancellation reasons.
const (
	CancelReasonBuyer = "buyer_cancelled"
	CancelReasonStale = "stale_unpaid"
)
