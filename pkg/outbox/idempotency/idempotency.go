// Package idempotency dedupes at-least-once deliveries: Pub/Sub messages in
// the analytics worker and Stripe webhook retries in the API.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/instance"
)

// markerStore is the slice of the redis client the manager touches.
type markerStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Manager records one marker per (consumer, event id) under
// sf:idempotency:evt:<consumer>:<event id>. The marker value names the
// instance that claimed the event.
type Manager struct {
	store markerStore
	ttl   time.Duration
	owner string
	now   func() time.Time
}

// NewManager returns a manager whose markers live for ttl. A zero ttl keeps
// markers until they are released.
func NewManager(store markerStore, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency: marker store required")
	}
	if ttl < 0 {
		return nil, fmt.Errorf("idempotency: negative ttl %s", ttl)
	}
	return &Manager{store: store, ttl: ttl, owner: instance.GetID(), now: time.Now}, nil
}

// CheckAndMarkProcessed claims eventID for consumer. It reports true when a
// previous delivery already claimed it and the caller should skip the event.
func (m *Manager) CheckAndMarkProcessed(ctx context.Context, consumer, eventID string) (bool, error) {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	claimed, err := m.store.SetNX(ctx, key, m.owner+"@"+m.now().UTC().Format(time.RFC3339), m.ttl)
	if err != nil {
		return false, fmt.Errorf("idempotency: claim %s: %w", key, err)
	}
	return !claimed, nil
}

// Release drops the claim after a failed handler so redelivery runs again.
func (m *Manager) Release(ctx context.Context, consumer, eventID string) error {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return err
	}
	if err := m.store.Del(ctx, key); err != nil {
		return fmt.Errorf("idempotency: release %s: %w", key, err)
	}
	return nil
}

func (m *Manager) key(consumer, eventID string) (string, error) {
	consumer, eventID = strings.TrimSpace(consumer), strings.TrimSpace(eventID)
	switch {
	case consumer == "":
		return "", errors.New("idempotency: consumer name required")
	case eventID == "":
		return "", errors.New("idempotency: event id required")
	}
	return m.store.IdempotencyKey("evt:"+consumer, eventID), nil
}
