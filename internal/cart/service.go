package cart

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/discounts"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type listings interface {
	SellerPrice(ctx context.Context, productID, sellerID uuid.UUID) (*models.Price, error)
	MaxListing(ctx context.Context, productID uuid.UUID) (*models.Price, error)
}

type resolver interface {
	Resolve(ctx context.Context, lines []discounts.Line) (discounts.Resolution, error)
}

// Service prices carts.
type Service interface {
	Quote(ctx context.Context, input QuoteInput) (discounts.Resolution, error)
}

type ServiceParams struct {
	Listings listings
	Resolver resolver
}

type service struct {
	listings listings
	resolver resolver
}

func NewService(params ServiceParams) (Service, error) {
	if params.Listings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "listings are required")
	}
	if params.Resolver == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "discount resolver is required")
	}
	return &service{listings: params.Listings, resolver: params.Resolver}, nil
}

// Quote prices the cart. Every resolved line carries the seller it was
// priced from.
func (s *service) Quote(ctx context.Context, input QuoteInput) (discounts.Resolution, error) {
	items, err := mergeItems(input.Items)
	if err != nil {
		return discounts.Resolution{}, err
	}

	lines := make([]discounts.Line, 0, len(items))
	for _, item := range items {
		listing, err := s.listing(ctx, item)
		if err != nil {
			return discounts.Resolution{}, err
		}
		sellerID := listing.SellerID
		lines = append(lines, discounts.Line{
			ProductID: item.ProductID,
			SellerID:  &sellerID,
			Price:     listing.Price,
			Quantity:  item.Quantity,
		})
	}
	return s.resolver.Resolve(ctx, lines)
}

func (s *service) listing(ctx context.Context, item QuoteItem) (*models.Price, error) {
	if item.SellerID != nil {
		return s.listings.SellerPrice(ctx, item.ProductID, *item.SellerID)
	}
	return s.listings.MaxListing(ctx, item.ProductID)
}
