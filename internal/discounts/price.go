package discounts

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

const pricePlaces = 2

var (
	hundred = decimal.NewFromInt(100)
	// amountFloor is the lowest price an AMOUNT discount can produce.
	amountFloor = decimal.NewFromInt(1)
)

// PriceResult is the outcome of applying a discount to one product price.
type PriceResult struct {
	ProductID       uuid.UUID       `json:"product_id"`
	OriginalPrice   decimal.Decimal `json:"original_price"`
	DiscountedPrice decimal.Decimal `json:"discounted_price"`
	IsDiscounted    bool            `json:"is_discounted"`
	DiscountID      *uuid.UUID      `json:"discount_id,omitempty"`
}

// Apply computes the discounted price of productID at price. A nil discount
// leaves the price unchanged.
func Apply(productID uuid.UUID, discount *models.Discount, price decimal.Decimal) PriceResult {
	result := PriceResult{
		ProductID:       productID,
		OriginalPrice:   price,
		DiscountedPrice: price,
	}
	if discount == nil {
		return result
	}

	var discounted decimal.Decimal
	switch discount.Method {
	case enums.DiscountMethodPercent:
		cut := price.Mul(discount.Value).Div(hundred)
		discounted = decimal.Max(price.Sub(cut), decimal.Zero)
	case enums.DiscountMethodAmount:
		discounted = decimal.Max(price.Sub(discount.Value), amountFloor)
		// a price already under the floor is never raised
		discounted = decimal.Min(discounted, price)
	case enums.DiscountMethodFixed:
		discounted = discount.Value
	default:
		return result
	}

	id := discount.ID
	result.DiscountedPrice = discounted.Round(pricePlaces)
	result.IsDiscounted = true
	result.DiscountID = &id
	return result
}
