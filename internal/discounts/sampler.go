package discounts

import (
	"context"
)

// Sample draws n products, with replacement, from those any live discount
// currently reaches. It returns an empty slice when nothing qualifies.
func (e *Engine) Sample(ctx context.Context, n int) ([]DiscountedProduct, error) {
	if n <= 0 {
		return []DiscountedProduct{}, nil
	}
	pool, err := e.store.DiscountedProducts(ctx, e.today())
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return []DiscountedProduct{}, nil
	}

	out := make([]DiscountedProduct, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, pool[e.intN(len(pool))])
	}
	return out, nil
}
