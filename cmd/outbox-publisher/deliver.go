package main

import (
	"context"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

const metricsComponent = "outbox"

type action int

const (
	actionPublished action = iota
	actionRetry
	actionPark
)

// delivery is what happened to one row and what the row becomes.
type delivery struct {
	action  action
	reason  string
	topic   string
	eventID string
	err     error
}

// deliver resolves and publishes event. Resolution failures and
// non-retryable publish errors park the row; other publish errors count an
// attempt and park once the attempt limit is reached.
func (s *Service) deliver(ctx context.Context, event models.OutboxEvent) delivery {
	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return delivery{action: actionPark, reason: "non_retryable", err: err}
	}
	d := delivery{topic: resolved.Descriptor.Topic, eventID: resolved.Envelope.EventID}

	err = s.publish(ctx, event, resolved)
	switch {
	case err == nil:
		d.action = actionPublished
	case registry.IsNonRetryable(err):
		d.action, d.reason, d.err = actionPark, "non_retryable", err
	case event.AttemptCount+1 >= s.maxAttempts:
		d.action, d.reason, d.err = actionPark, "max_attempts", fmt.Errorf("max publish attempts reached: %w", err)
	default:
		d.action, d.err = actionRetry, err
	}
	return d
}

func (s *Service) publish(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	pub := s.publishers(resolved.Descriptor.Topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", resolved.Descriptor.Topic))
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	result := pub.Publish(ctx, &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
		},
	})
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned no result for topic %s", resolved.Descriptor.Topic))
	}
	_, err := result.Get(ctx)
	return err
}

// settle records the delivery on the row inside the batch transaction.
func (s *Service) settle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, d delivery) error {
	fields := map[string]any{
		"outbox_id":     event.ID.String(),
		"event_type":    event.EventType,
		"aggregate_id":  event.AggregateID.String(),
		"attempt_count": event.AttemptCount,
	}
	if d.topic != "" {
		fields["topic"] = d.topic
	}
	if d.eventID != "" {
		fields["event_id"] = d.eventID
	}
	if d.err != nil {
		fields["error"] = d.err.Error()
	}
	ctx = s.logg.WithFields(ctx, fields)
	eventType := string(event.EventType)

	switch d.action {
	case actionPublished:
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.logg.Info(ctx, "outbox event published")
		s.metrics.Inc(metricsComponent, eventType, metrics.OutcomePublished)
	case actionRetry:
		s.logg.Warn(s.logg.WithField(ctx, "attempt_count", event.AttemptCount+1), "outbox publish failed")
		if err := s.repo.MarkFailedTx(tx, event.ID, d.err); err != nil {
			return fmt.Errorf("mark failure %s: %w", event.ID, err)
		}
		s.metrics.Inc(metricsComponent, eventType, metrics.OutcomeFailed)
	case actionPark:
		s.logg.Warn(s.logg.WithField(ctx, "terminal_reason", d.reason), "outbox event will not be retried")
		if err := s.repo.MarkTerminalTx(tx, event.ID, d.err, s.maxAttempts); err != nil {
			return fmt.Errorf("mark terminal %s: %w", event.ID, err)
		}
		s.metrics.Inc(metricsComponent, eventType, metrics.OutcomeParked)
	}
	return nil
}
