package cart

import "github.com/google/uuid"

// QuoteInput is the client's cart. Nothing about it is stored.
type QuoteInput struct {
	Items []QuoteItem
}

// QuoteItem names a product and optionally the seller to buy from. Without
// a seller the product is priced at its highest listing.
type QuoteItem struct {
	ProductID uuid.UUID
	SellerID  *uuid.UUID
	Quantity  int
}
