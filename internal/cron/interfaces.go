package cron

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/discounts"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type markerStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	MarkerKey(job, period string) string
}

type offerSampler interface {
	Sample(ctx context.Context, n int) ([]discounts.DiscountedProduct, error)
}

type recipientLister interface {
	ActiveRecipients(ctx context.Context, after uuid.UUID, limit int) ([]users.Recipient, error)
}

type staleOrderCanceller interface {
	CancelStale(ctx context.Context, cutoff time.Time) (int, error)
}

type outboxPruner interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, parkedAttempts int) (int64, error)
}
