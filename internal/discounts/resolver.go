package discounts

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Line is one cart entry priced at Price per unit.
type Line struct {
	ProductID uuid.UUID
	SellerID  *uuid.UUID
	Price     decimal.Decimal
	Quantity  int
}

// ResolvedLine is a line after discounting.
type ResolvedLine struct {
	PriceResult
	SellerID  *uuid.UUID      `json:"seller_id,omitempty"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Resolution is a priced cart. DiscountID is set when one discount
// priced every line.
type Resolution struct {
	Lines           []ResolvedLine       `json:"lines"`
	Tier            enums.ResolutionTier `json:"tier"`
	DiscountID      *uuid.UUID           `json:"discount_id,omitempty"`
	TotalQuantity   int                  `json:"total_quantity"`
	OriginalTotal   decimal.Decimal      `json:"original_total"`
	DiscountedTotal decimal.Decimal      `json:"discounted_total"`
}

// Resolve prices a cart. A whole-cart CART or SET discount wins first, then
// a PRODUCT discount covering every line, then each line on its own.
func (e *Engine) Resolve(ctx context.Context, lines []Line) (Resolution, error) {
	for _, line := range lines {
		if line.ProductID == uuid.Nil {
			return Resolution{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
		}
		if line.Quantity < 1 {
			return Resolution{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
		}
		if line.Price.IsNegative() {
			return Resolution{}, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
		}
	}

	resolution, err := e.resolve(ctx, lines)
	if err != nil {
		return Resolution{}, err
	}
	if e.metrics != nil {
		e.metrics.IncResolution(string(resolution.Tier))
	}
	return resolution, nil
}

func (e *Engine) resolve(ctx context.Context, lines []Line) (Resolution, error) {
	if len(lines) == 0 {
		return summarize(nil, enums.ResolutionTierNone, nil), nil
	}
	today := e.today()

	totalQty, totalCost := cartTotals(lines)
	productIDs := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		productIDs = append(productIDs, line.ProductID)
	}

	candidates, err := e.store.CartCandidates(ctx, today)
	if err != nil {
		return Resolution{}, err
	}
	if winner, tier := selectCartLevel(candidates, uniqueIDs(productIDs), totalQty, totalCost); winner != nil {
		return applyUniform(lines, winner, tier), nil
	}

	listDiscount, err := e.store.PriorityForProducts(ctx, productIDs, today)
	if err != nil {
		return Resolution{}, err
	}
	if listDiscount != nil {
		return applyUniform(lines, listDiscount, enums.ResolutionTierProductList), nil
	}

	resolved := make([]ResolvedLine, 0, len(lines))
	anyDiscounted := false
	for _, line := range lines {
		discount, err := e.store.PriorityForProduct(ctx, line.ProductID, today)
		if err != nil {
			return Resolution{}, err
		}
		rl := resolveLine(line, discount)
		anyDiscounted = anyDiscounted || rl.IsDiscounted
		resolved = append(resolved, rl)
	}
	tier := enums.ResolutionTierPerItem
	if !anyDiscounted {
		tier = enums.ResolutionTierNone
	}
	return summarize(resolved, tier, nil), nil
}

// selectCartLevel returns the highest priority CART or SET discount that
// qualifies for the whole cart.
func selectCartLevel(candidates []CartCandidate, productIDs []uuid.UUID, totalQty int, totalCost decimal.Decimal) (*models.Discount, enums.ResolutionTier) {
	qualifying := make([]models.Discount, 0, len(candidates))
	for _, candidate := range candidates {
		switch candidate.Discount.Kind {
		case enums.DiscountKindCart:
			if cartQualifies(candidate.Discount, totalQty, totalCost) {
				qualifying = append(qualifying, candidate.Discount)
			}
		case enums.DiscountKindSet:
			if anyGroupContains(candidate.Groups, productIDs) {
				qualifying = append(qualifying, candidate.Discount)
			}
		}
	}

	winner := highestPriority(qualifying)
	if winner == nil {
		return nil, enums.ResolutionTierNone
	}
	if winner.Kind == enums.DiscountKindSet {
		return winner, enums.ResolutionTierSet
	}
	return winner, enums.ResolutionTierCart
}

func cartQualifies(d models.Discount, totalQty int, totalCost decimal.Decimal) bool {
	if d.QuantityGT != nil && totalQty < *d.QuantityGT {
		return false
	}
	if d.QuantityLT != nil && totalQty > *d.QuantityLT {
		return false
	}
	if d.TotalGT != nil && totalCost.LessThan(*d.TotalGT) {
		return false
	}
	return true
}

func anyGroupContains(groups [][]uuid.UUID, productIDs []uuid.UUID) bool {
	if len(productIDs) == 0 {
		return false
	}
	for _, group := range groups {
		members := make(map[uuid.UUID]struct{}, len(group))
		for _, id := range group {
			members[id] = struct{}{}
		}
		all := true
		for _, id := range productIDs {
			if _, ok := members[id]; !ok {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

func cartTotals(lines []Line) (int, decimal.Decimal) {
	qty := 0
	cost := decimal.Zero
	for _, line := range lines {
		qty += line.Quantity
		cost = cost.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return qty, cost
}

func applyUniform(lines []Line, discount *models.Discount, tier enums.ResolutionTier) Resolution {
	resolved := make([]ResolvedLine, 0, len(lines))
	for _, line := range lines {
		resolved = append(resolved, resolveLine(line, discount))
	}
	id := discount.ID
	return summarize(resolved, tier, &id)
}

func resolveLine(line Line, discount *models.Discount) ResolvedLine {
	result := Apply(line.ProductID, discount, line.Price)
	return ResolvedLine{
		PriceResult: result,
		SellerID:    line.SellerID,
		Quantity:    line.Quantity,
		LineTotal:   result.DiscountedPrice.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(pricePlaces),
	}
}

func summarize(lines []ResolvedLine, tier enums.ResolutionTier, discountID *uuid.UUID) Resolution {
	out := Resolution{
		Lines:           lines,
		Tier:            tier,
		DiscountID:      discountID,
		OriginalTotal:   decimal.Zero,
		DiscountedTotal: decimal.Zero,
	}
	if out.Lines == nil {
		out.Lines = []ResolvedLine{}
	}
	for _, line := range lines {
		qty := decimal.NewFromInt(int64(line.Quantity))
		out.TotalQuantity += line.Quantity
		out.OriginalTotal = out.OriginalTotal.Add(line.OriginalPrice.Mul(qty))
		out.DiscountedTotal = out.DiscountedTotal.Add(line.LineTotal)
	}
	out.OriginalTotal = out.OriginalTotal.Round(pricePlaces)
	out.DiscountedTotal = out.DiscountedTotal.Round(pricePlaces)
	return out
}
