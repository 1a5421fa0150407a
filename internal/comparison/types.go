package comparison

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
)

// ComparedProduct is one row of a user's comparison table.
type ComparedProduct struct {
	ProductID      uuid.UUID               `json:"product_id"`
	Name           string                  `json:"name"`
	CategoryID     uuid.UUID               `json:"category_id"`
	MinPrice       decimal.NullDecimal     `json:"min_price"`
	Specifications []catalog.Specification `json:"specifications"`
	AddedAt        time.Time               `json:"added_at"`
}
