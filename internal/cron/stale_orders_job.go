package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const defaultStaleOrderTTL = 72 * time.Hour

// StaleOrdersJobParams configure the stale order canceller.
type StaleOrdersJobParams struct {
	Logger *logger.Logger
	Orders staleOrderCanceller
	TTL    time.Duration
}

// NewStaleOrdersJob builds the job that cancels pending unpaid orders older than TTL.
func NewStaleOrdersJob(params StaleOrdersJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultStaleOrderTTL
	}
	return &staleOrdersJob{
		logg:   params.Logger,
		orders: params.Orders,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

type staleOrdersJob struct {
	logg   *logger.Logger
	orders staleOrderCanceller
	ttl    time.Duration
	now    func() time.Time
}

func (j *staleOrdersJob) Name() string { return "stale_orders" }

func (j *staleOrdersJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	cancelled, err := j.orders.CancelStale(ctx, cutoff)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":    cutoff,
		"cancelled": cancelled,
	})
	if err != nil {
		return fmt.Errorf("cancel stale orders: %w", err)
	}
	j.logg.Info(logCtx, "stale order sweep complete")
	return nil
}
