package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/discounts"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// CategoryNode is one category with its nested children.
type CategoryNode struct {
	ID       uuid.UUID      `json:"id"`
	Name     string         `json:"name"`
	Icon     *string        `json:"icon,omitempty"`
	ParentID *uuid.UUID     `json:"parent_id,omitempty"`
	Children []CategoryNode `json:"children"`
}

// ProductSummary is a list row with the cheapest listing.
type ProductSummary struct {
	ID         uuid.UUID           `json:"id"`
	Name       string              `json:"name"`
	CategoryID uuid.UUID           `json:"category_id"`
	MinPrice   decimal.NullDecimal `json:"min_price"`
	CreatedAt  time.Time           `json:"created_at"`
}

type ProductPage struct {
	Items      []ProductSummary `json:"items"`
	Pagination pagination.Page  `json:"pagination"`
}

// ListProductsParams filters the product listing.
type ListProductsParams struct {
	CategoryID *uuid.UUID
	pagination.Params
}

type SellerPrice struct {
	SellerID   uuid.UUID       `json:"seller_id"`
	SellerName string          `json:"seller_name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
}

type Specification struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// DiscountSummary is the public view of the winning discount.
type DiscountSummary struct {
	ID      uuid.UUID            `json:"id"`
	Name    string               `json:"name"`
	Method  enums.DiscountMethod `json:"method"`
	Value   decimal.Decimal      `json:"value"`
	EndDate string               `json:"end_date"`
}

// ProductDetail is the full product page. Pricing is absent when no
// seller lists the product.
type ProductDetail struct {
	ID             uuid.UUID              `json:"id"`
	Name           string                 `json:"name"`
	Description    *string                `json:"description,omitempty"`
	CategoryID     uuid.UUID              `json:"category_id"`
	Prices         []SellerPrice          `json:"prices"`
	Specifications []Specification        `json:"specifications"`
	Discount       *DiscountSummary       `json:"discount,omitempty"`
	Pricing        *discounts.PriceResult `json:"pricing,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}
