package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// CreateOrderInput is a checkout request. Items are priced through the
// cart quote at creation time.
type CreateOrderInput struct {
	DeliveryCity    string
	DeliveryAddress string
	DeliveryType    enums.FulfilmentChoice
	PaymentType     enums.FulfilmentChoice
	Items           []cart.QuoteItem
}

// OrderItemDTO is one stored order line.
type OrderItemDTO struct {
	ID            uuid.UUID       `json:"id"`
	ProductID     uuid.UUID       `json:"product_id"`
	SellerID      uuid.UUID       `json:"seller_id"`
	Quantity      int             `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	DiscountID    *uuid.UUID      `json:"discount_id,omitempty"`
	LineTotal     decimal.Decimal `json:"line_total"`
	PaymentStatus bool            `json:"payment_status"`
	ReceiptURL    *string         `json:"receipt_url,omitempty"`
}

// OrderSummary is the list view of an order.
type OrderSummary struct {
	ID            uuid.UUID         `json:"id"`
	Status        enums.OrderStatus `json:"status"`
	PaidStatus    enums.PaidStatus  `json:"paid_status"`
	TotalPrice    decimal.Decimal   `json:"total_price"`
	DeliveryPrice decimal.Decimal   `json:"delivery_price"`
	ItemCount     int               `json:"item_count"`
	CreatedAt     time.Time         `json:"created_at"`
}

// OrderDetail is an order with its items.
type OrderDetail struct {
	OrderSummary
	DeliveryCity    string                 `json:"delivery_city"`
	DeliveryAddress string                 `json:"delivery_address"`
	DeliveryType    enums.FulfilmentChoice `json:"delivery_type"`
	PaymentType     enums.FulfilmentChoice `json:"payment_type"`
	Items           []OrderItemDTO         `json:"items"`
}

// OrderList is a page of the caller's orders.
type OrderList struct {
	Orders     []OrderSummary  `json:"orders"`
	Pagination pagination.Page `json:"pagination"`
}

func toItemDTO(item models.OrderItem) OrderItemDTO {
	return OrderItemDTO{
		ID:            item.ID,
		ProductID:     item.ProductID,
		SellerID:      item.SellerID,
		Quantity:      item.Quantity,
		Price:         item.Price,
		OriginalPrice: item.OriginalPrice,
		DiscountID:    item.DiscountID,
		LineTotal:     item.LineTotal(),
		PaymentStatus: item.PaymentStatus,
		ReceiptURL:    item.ReceiptURL,
	}
}

func toDetail(order models.Order) *OrderDetail {
	items := make([]OrderItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, toItemDTO(item))
	}
	return &OrderDetail{
		OrderSummary: OrderSummary{
			ID:            order.ID,
			Status:        order.Status,
			PaidStatus:    order.PaidStatus,
			TotalPrice:    order.TotalPrice,
			DeliveryPrice: order.DeliveryPrice,
			ItemCount:     len(order.Items),
			CreatedAt:     order.CreatedAt,
		},
		DeliveryCity:    order.DeliveryCity,
		DeliveryAddress: order.DeliveryAddress,
		DeliveryType:    order.DeliveryType,
		PaymentType:     order.PaymentType,
		Items:           items,
	}
}
