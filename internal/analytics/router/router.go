// Package router turns decoded order events into BigQuery rows.
package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/storefront-backend/internal/analytics/types"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

var ErrUnsupportedEventType = errors.New("unsupported analytics event type")

type Writer interface {
	InsertOrderEvent(ctx context.Context, row types.OrderEventRow) error
}

// Handler receives an envelope plus its decoded payload.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope, payload any) error
}

// Router decodes envelopes by event type and version and hands them to the
// handler registered for the type.
type Router struct {
	handlers map[enums.OutboxEventType]Handler
	decoders *registry.DecoderRegistry
}

// NewRouter registers a row handler per order event. Overrides replace the
// handler of an already registered type and are ignored otherwise.
func NewRouter(writer Writer, logg *logger.Logger, overrides map[enums.OutboxEventType]Handler) (*Router, error) {
	if writer == nil {
		return nil, errors.New("writer is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}

	handlers := map[enums.OutboxEventType]Handler{
		enums.EventOrderCreated:   rowHandler[payloads.OrderCreatedEvent]{writer, logg, orderCreatedRow},
		enums.EventOrderPaid:      rowHandler[payloads.OrderPaidEvent]{writer, logg, orderPaidRow},
		enums.EventOrderCancelled: rowHandler[payloads.OrderCancelledEvent]{writer, logg, orderCancelledRow},
	}
	for eventType, h := range overrides {
		if _, ok := handlers[eventType]; ok && h != nil {
			handlers[eventType] = h
		}
	}
	return &Router{handlers: handlers, decoders: registry.NewOrderDecoders()}, nil
}

func (r *Router) Handle(ctx context.Context, envelope types.Envelope) error {
	handler, ok := r.handlers[envelope.EventType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedEventType, envelope.EventType)
	}
	if len(envelope.Data) == 0 {
		return fmt.Errorf("empty payload for %s", envelope.EventType)
	}
	payload, err := r.decoders.Decode(envelope.EventType, max(envelope.Version, 1), envelope.Data)
	if err != nil {
		return fmt.Errorf("decode %s payload: %w", envelope.EventType, err)
	}
	return handler.Handle(ctx, envelope, payload)
}

// rowHandler writes one row per event, built by build from the typed payload.
type rowHandler[T any] struct {
	writer Writer
	logg   *logger.Logger
	build  func(types.Envelope, *T) (types.OrderEventRow, error)
}

func (h rowHandler[T]) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*T)
	if !ok {
		return fmt.Errorf("invalid payload for %s: %T", envelope.EventType, payload)
	}
	row, err := h.build(envelope, event)
	if err != nil {
		return fmt.Errorf("build %s row: %w", envelope.EventType, err)
	}
	ctx = h.logg.WithFields(h.logg.WithOrderID(ctx, row.OrderID), envelope.LogFields())
	if err := h.writer.InsertOrderEvent(ctx, row); err != nil {
		h.logg.Error(ctx, "analytics row insert failed", err)
		return err
	}
	h.logg.Debug(ctx, "analytics row inserted")
	return nil
}
