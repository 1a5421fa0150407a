// Package worker consumes order events from Pub/Sub for analytics.
package worker

import (
	"context"
	"errors"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/storefront-backend/internal/analytics/router"
	"github.com/angelmondragon/storefront-backend/internal/analytics/types"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

// consumerName scopes idempotency keys and metrics for this worker.
const consumerName = "analytics"

type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope) error
}

type HandlerFunc func(ctx context.Context, envelope types.Envelope) error

func (fn HandlerFunc) Handle(ctx context.Context, envelope types.Envelope) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, envelope)
}

type dedupe interface {
	CheckAndMarkProcessed(ctx context.Context, consumer, eventID string) (bool, error)
	Release(ctx context.Context, consumer, eventID string) error
}

// Params wire the analytics consumer. Metrics may be nil.
type Params struct {
	Subscription *gcppubsub.Subscriber
	Handler      Handler
	Dedupe       dedupe
	Logger       *logger.Logger
	Metrics      *metrics.EventMetrics
}

// Service acks a message once its event is handled, already seen, or
// unusable, and nacks it for redelivery on transient failures.
type Service struct {
	subscription *gcppubsub.Subscriber
	handler      Handler
	dedupe       dedupe
	logg         *logger.Logger
	metrics      *metrics.EventMetrics
}

func NewService(p Params) (*Service, error) {
	switch {
	case p.Subscription == nil:
		return nil, errors.New("analytics subscription is required")
	case p.Handler == nil:
		return nil, errors.New("analytics handler is required")
	case p.Dedupe == nil:
		return nil, errors.New("idempotency manager is required")
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	}
	return &Service{
		subscription: p.Subscription,
		handler:      p.Handler,
		dedupe:       p.Dedupe,
		logg:         p.Logger,
		metrics:      p.Metrics,
	}, nil
}

// Run blocks receiving messages until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	return s.subscription.Receive(ctx, func(msgCtx context.Context, msg *gcppubsub.Message) {
		if s.process(msgCtx, msg) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// process reports whether msg should be acked.
func (s *Service) process(ctx context.Context, msg *gcppubsub.Message) bool {
	ctx = s.logg.WithField(ctx, "message_id", msg.ID)

	env, err := decodeEnvelope(msg.Data, msg.Attributes)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "invalid analytics envelope")
		s.metrics.Inc(consumerName, msg.Attributes["event_type"], metrics.OutcomeInvalid)
		return true
	}
	ctx = s.logg.WithFields(ctx, env.LogFields())
	eventType := string(env.EventType)

	seen, err := s.dedupe.CheckAndMarkProcessed(ctx, consumerName, env.EventID)
	if err != nil {
		s.logg.Error(ctx, "idempotency check failed", err)
		s.metrics.Inc(consumerName, eventType, metrics.OutcomeFailed)
		return false
	}
	if seen {
		s.logg.Info(ctx, "event already processed")
		s.metrics.Inc(consumerName, eventType, metrics.OutcomeDuplicate)
		return true
	}

	err = s.handler.Handle(ctx, env)
	switch {
	case err == nil:
		s.logg.Info(ctx, "analytics event handled")
		s.metrics.Inc(consumerName, eventType, metrics.OutcomeHandled)
		return true
	case errors.Is(err, router.ErrUnsupportedEventType):
		s.logg.Debug(ctx, "event type not tracked by analytics")
		s.metrics.Inc(consumerName, eventType, metrics.OutcomeSkipped)
		return true
	}

	s.logg.Error(ctx, "analytics handler failed", err)
	s.metrics.Inc(consumerName, eventType, metrics.OutcomeFailed)
	if err := s.dedupe.Release(context.WithoutCancel(ctx), consumerName, env.EventID); err != nil {
		s.logg.Error(ctx, "failed to release idempotency key", err)
	}
	return false
}
