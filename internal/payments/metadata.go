package payments

import (
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const (
	metaAllOrder      = "all_order"
	metaOrderID       = "order_id"
	metaSellerID      = "seller_id"
	metaTotalPrice    = "total_price"
	metaDeliveryPrice = "delivery_price"
	metaProductIDs    = "products_ids"
	metaReceiptURL    = "receipt_url"
)

// sessionMetadata is what a Checkout Session carries back to the webhook.
type sessionMetadata struct {
	AllOrder   bool
	OrderID    uuid.UUID
	SellerID   *uuid.UUID
	ReceiptURL string
}

func wholeOrderMetadata(order *models.Order, receiptURL string) map[string]string {
	ids := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		ids = append(ids, item.ProductID.String())
	}
	return map[string]string{
		metaAllOrder:      "1",
		metaOrderID:       order.ID.String(),
		metaTotalPrice:    order.TotalPrice.StringFixed(2),
		metaDeliveryPrice: order.DeliveryPrice.StringFixed(2),
		metaProductIDs:    strings.Join(ids, ","),
		metaReceiptURL:    receiptURL,
	}
}

func sellerMetadata(order *models.Order, sellerID uuid.UUID, amount decimal.Decimal, receiptURL string) map[string]string {
	return map[string]string{
		metaAllOrder:   "0",
		metaOrderID:    order.ID.String(),
		metaSellerID:   sellerID.String(),
		metaTotalPrice: amount.StringFixed(2),
		metaReceiptURL: receiptURL,
	}
}

func parseMetadata(raw map[string]string) (sessionMetadata, error) {
	orderID, err := uuid.Parse(raw[metaOrderID])
	if err != nil {
		return sessionMetadata{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "session metadata order_id is invalid")
	}
	meta := sessionMetadata{OrderID: orderID, ReceiptURL: raw[metaReceiptURL]}
	switch raw[metaAllOrder] {
	case "1":
		meta.AllOrder = true
	case "0":
		sellerID, err := uuid.Parse(raw[metaSellerID])
		if err != nil {
			return sessionMetadata{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "session metadata seller_id is invalid")
		}
		meta.SellerID = &sellerID
	default:
		return sessionMetadata{}, pkgerrors.New(pkgerrors.CodeValidation, "session metadata all_order is invalid")
	}
	return meta, nil
}

// receiptURL points the buyer back at the order from the payment receipt.
func receiptURL(successURL string, orderID uuid.UUID) string {
	u, err := url.Parse(successURL)
	if err != nil {
		return successURL
	}
	q := u.Query()
	q.Set(metaOrderID, orderID.String())
	u.RawQuery = q.Encode()
	return u.String()
}

// successURL appends the session placeholder Stripe substitutes on redirect.
func successURL(base string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "session_id={CHECKOUT_SESSION_ID}"
}

// toMinorUnits converts an amount to cents.
func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
