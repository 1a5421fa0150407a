package payments

import "github.com/google/uuid"

// CheckoutInput selects what a Checkout Session pays for. A nil seller pays
// the whole order.
type CheckoutInput struct {
	OrderID  uuid.UUID
	SellerID *uuid.UUID
}

// CheckoutSession is the hosted page the buyer is redirected to.
type CheckoutSession struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}
