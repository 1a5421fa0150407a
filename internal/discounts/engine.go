package discounts

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type eligibilityStore interface {
	PriorityForProduct(ctx context.Context, productID uuid.UUID, today time.Time) (*models.Discount, error)
	PriorityForProducts(ctx context.Context, productIDs []uuid.UUID, today time.Time) (*models.Discount, error)
	CartCandidates(ctx context.Context, today time.Time) ([]CartCandidate, error)
	DiscountedProducts(ctx context.Context, today time.Time) ([]DiscountedProduct, error)
	MaxPrice(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error)
}

type resolutionCounter interface {
	IncResolution(tier string)
}

// EngineParams groups the engine dependencies. Now and IntN are optional.
type EngineParams struct {
	Store   eligibilityStore
	Metrics resolutionCounter
	Now     func() time.Time
	IntN    func(n int) int
}

// Engine answers every pricing question: which discount wins for a
// product, what a product costs, how a cart is priced and which products
// are on offer. Applicability is evaluated against the current day on
// every call.
type Engine struct {
	store   eligibilityStore
	metrics resolutionCounter
	now     func() time.Time
	intN    func(n int) int
}

func NewEngine(params EngineParams) (*Engine, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "discount store is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	intN := params.IntN
	if intN == nil {
		intN = rand.IntN
	}
	return &Engine{
		store:   params.Store,
		metrics: params.Metrics,
		now:     now,
		intN:    intN,
	}, nil
}

func (e *Engine) today() time.Time {
	return Today(e.now())
}

// PriorityDiscount returns the winning PRODUCT discount for productID, or nil.
func (e *Engine) PriorityDiscount(ctx context.Context, productID uuid.UUID) (*models.Discount, error) {
	return e.store.PriorityForProduct(ctx, productID, e.today())
}

// Price applies discount to productID. A nil base prices the product at
// its highest seller listing.
func (e *Engine) Price(ctx context.Context, productID uuid.UUID, discount *models.Discount, base *decimal.Decimal) (PriceResult, error) {
	price := decimal.Zero
	if base != nil {
		price = *base
	} else {
		max, err := e.store.MaxPrice(ctx, productID)
		if err != nil {
			return PriceResult{}, err
		}
		price = max
	}
	return Apply(productID, discount, price), nil
}

// ProductPrice resolves the priority discount and prices the product at
// its max listing.
func (e *Engine) ProductPrice(ctx context.Context, productID uuid.UUID) (PriceResult, *models.Discount, error) {
	discount, err := e.PriorityDiscount(ctx, productID)
	if err != nil {
		return PriceResult{}, nil, err
	}
	result, err := e.Price(ctx, productID, discount, nil)
	if err != nil {
		return PriceResult{}, nil, err
	}
	return result, discount, nil
}
