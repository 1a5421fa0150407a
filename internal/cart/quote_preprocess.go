package cart

import (
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// MaxItems caps how many distinct products a quote may carry.
const MaxItems = 100

// mergeItems validates the request and folds repeated products into one
// line. The first occurrence decides the seller and the position.
func mergeItems(items []QuoteItem) ([]QuoteItem, error) {
	merged := make([]QuoteItem, 0, len(items))
	index := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
		}
		if item.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be at least 1")
		}
		if item.SellerID != nil && *item.SellerID == uuid.Nil {
			item.SellerID = nil
		}
		if pos, ok := index[item.ProductID]; ok {
			merged[pos].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, item)
	}
	if len(merged) > MaxItems {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "too many items in cart")
	}
	return merged, nil
}
