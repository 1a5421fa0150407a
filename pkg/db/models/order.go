package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Order is a buyer's purchase across one or more sellers.
type Order struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID              `gorm:"column:user_id;type:uuid;not null"`
	DeliveryCity    string                 `gorm:"column:delivery_city;not null"`
	DeliveryAddress string                 `gorm:"column:delivery_address;not null"`
	DeliveryType    enums.FulfilmentChoice `gorm:"column:delivery_type;not null;default:'store'"`
	PaymentType     enums.FulfilmentChoice `gorm:"column:payment_type;not null;default:'store'"`
	Status          enums.OrderStatus      `gorm:"column:status;not null;default:'OP'"`
	PaidStatus      enums.PaidStatus       `gorm:"column:paid_status;not null;default:'NP'"`
	TotalPrice      decimal.Decimal        `gorm:"column:total_price;type:numeric(10,2);not null"`
	DeliveryPrice   decimal.Decimal        `gorm:"column:delivery_price;type:numeric(10,2);not null;default:0"`
	Archived        bool                   `gorm:"column:archived;not null;default:false"`
	Items           []OrderItem            `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem snapshots one product line of an order at purchase time.
type OrderItem struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	ProductID     uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	SellerID      uuid.UUID       `gorm:"column:seller_id;type:uuid;not null"`
	Quantity      int             `gorm:"column:quantity;not null"`
	Price         decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	OriginalPrice decimal.Decimal `gorm:"column:original_price;type:numeric(10,2);not null"`
	DiscountID    *uuid.UUID      `gorm:"column:discount_id;type:uuid"`
	PaymentStatus bool            `gorm:"column:payment_status;not null;default:false"`
	ReceiptURL    *string         `gorm:"column:receipt_url"`
	Active        bool            `gorm:"column:active;not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// LineTotal returns price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
