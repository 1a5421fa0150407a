package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// CartItemRequest is one cart line sent by the client.
type CartItemRequest struct {
	ProductID uuid.UUID  `json:"product_id" validate:"required"`
	SellerID  *uuid.UUID `json:"seller_id"`
	Quantity  int        `json:"quantity" validate:"gte=1"`
}

type cartQuoteRequest struct {
	Items []CartItemRequest `json:"items" validate:"max=100,dive"`
}

// QuoteItems converts request lines into quote input.
func QuoteItems(items []CartItemRequest) []cart.QuoteItem {
	out := make([]cart.QuoteItem, 0, len(items))
	for _, item := range items {
		out = append(out, cart.QuoteItem{
			ProductID: item.ProductID,
			SellerID:  item.SellerID,
			Quantity:  item.Quantity,
		})
	}
	return out
}

// CartQuote prices the posted cart without storing anything.
func CartQuote(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var body cartQuoteRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.Quote(r.Context(), cart.QuoteInput{Items: QuoteItems(body.Items)})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}
