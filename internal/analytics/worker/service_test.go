package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/internal/analytics/router"
	"github.com/angelmondragon/storefront-backend/internal/analytics/types"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/storefront-backend/pkg/redis/redistest"
)

func TestBuildEnvelope(t *testing.T) {
		aggregateID := uuid.NewString()
	payload := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    "evt-1",
		OccurredAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Data:       json.RawMessage(`{"order_id":"` + aggregateID + `"}`),
	}
	msg := buildMessage(payload, map[string]string{
		"event_type":     "order.created",
		"aggregate_type": "order",
		"aggregate_id":   aggregateID,
	})

	env, err := decodeEnvelope(msg.Data, msg.Attributes)
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}
	if env.EventType != enums.EventOrderCreated {
		t.Fatalf("unexpected event type %v", env.EventType)
	}
	if env.AggregateType != enums.AggregateOrder {
		t.Fatalf("unexpected aggregate type %v", env.AggregateType)
	}
	if env.AggregateID != aggregateID {
		t.Fatalf("unexpected aggregate id %s", env.AggregateID)
	}
	if env.EventID != "evt-1" {
		t.Fatalf("unexpected event id %s", env.EventID)
	}
	if env.Version != 1 {
		t.Fatalf("unexpected version %d", env.Version)
	}
	if !env.OccurredAt.Equal(payload.OccurredAt) {
		t.Fatalf("unexpected occurred at %v", env.OccurredAt)
	}
}

func TestBuildEnvelopeFallsBackToAttributeEventID(t *testing.T) {
		msg := buildMessage(outbox.PayloadEnvelope{Data: json.RawMessage(`{}`)}, map[string]string{
		"event_id":       "evt-attr",
		"event_type":     "order.paid",
		"aggregate_type": "order",
		"aggregate_id":   "abc",
	})
	env, err := decodeEnvelope(msg.Data, msg.Attributes)
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}
	if env.EventID != "evt-attr" {
		t.Fatalf("expected attribute event id, got %s", env.EventID)
	}
	if env.Version != outbox.CurrentVersion {
		t.Fatalf("expected default version, got %d", env.Version)
	}
}

func TestBuildEnvelopeRejectsUnknownEventType(t *testing.T) {
		msg := buildMessage(outbox.PayloadEnvelope{EventID: "e"}, map[string]string{
		"event_type":     "ad.clicked",
		"aggregate_type": "order",
		"aggregate_id":   "abc",
	})
	if _, err := decodeEnvelope(msg.Data, msg.Attributes); err == nil {
		t.Fatal("expected unknown event type to fail")
	}
}

func TestProcessAlreadyProcessed(t *testing.T) {
	manager := &stubManager{checkResult: true}
	handler := &stubHandler{}
	svc := newTestServiceWithDeps(t, handler, manager)

	msg := buildAnalyticsMessage(t)
	if ack := svc.process(context.Background(), msg); !ack {
		t.Fatalf("expected ack, got nack")
	}
	if handler.called {
		t.Fatal("handler should not be invoked when already processed")
	}
	if len(manager.checked) != 1 {
		t.Fatalf("expected check once, got %d", len(manager.checked))
	}
}

func TestProcessHandlerErrorReleasesAndNacks(t *testing.T) {
	manager := &stubManager{}
	handler := &stubHandler{err: errors.New("boom")}
	svc := newTestServiceWithDeps(t, handler, manager)

	msg := buildAnalyticsMessage(t)
	if ack := svc.process(context.Background(), msg); ack {
		t.Fatalf("expected nack on handler error")
	}
	if !handler.called {
		t.Fatal("handler should be invoked")
	}
	if len(manager.released) != 1 {
		t.Fatalf("expected idempotency release on failure")
	}
}

func TestProcessIdempotencyErrorNacks(t *testing.T) {
	manager := &stubManager{checkErr: errors.New("redis down")}
	handler := &stubHandler{}
	svc := newTestServiceWithDeps(t, handler, manager)

	if ack := svc.process(context.Background(), buildAnalyticsMessage(t)); ack {
		t.Fatal("expected nack when idempotency check fails")
	}
	if handler.called {
		t.Fatal("handler should not run without an idempotency decision")
	}
}

func TestProcessInvalidEnvelope(t *testing.T) {
	manager := &stubManager{}
	handler := &stubHandler{}
	svc := newTestServiceWithDeps(t, handler, manager)

	msg := &gcppubsub.Message{Data: []byte("invalid json")}
	if ack := svc.process(context.Background(), msg); !ack {
		t.Fatalf("invalid envelope should ack")
	}
	if handler.called {
		t.Fatal("handler should not be invoked")
	}
	if len(manager.checked) != 0 {
		t.Fatalf("idempotency manager should not be touched")
	}
}

func TestProcessUnsupportedEvent(t *testing.T) {
	manager := &stubManager{}
	handler := &stubHandler{err: fmt.Errorf("%w: promo.mail_requested", router.ErrUnsupportedEventType)}
	svc := newTestServiceWithDeps(t, handler, manager)

	msg := buildAnalyticsMessage(t)
	if ack := svc.process(context.Background(), msg); !ack {
		t.Fatalf("unsupported event should ack")
	}
	if len(manager.released) != 0 {
		t.Fatalf("idempotency release should not run")
	}
}

func TestProcessRedeliveryIsDeduplicated(t *testing.T) {
	client, _ := redistest.NewClient()
	manager, err := idempotency.NewManager(client, time.Hour)
	if err != nil {
		t.Fatalf("idempotency manager: %v", err)
	}
	handler := &stubHandler{}
	svc := &Service{handler: handler, dedupe: manager, logg: logger.New(logger.Options{ServiceName: "analytics-test"})}

	msg := buildAnalyticsMessage(t)
	svc.process(context.Background(), msg)
	svc.process(context.Background(), msg)
	if handler.calls != 1 {
		t.Fatalf("expected handler to run once, got %d", handler.calls)
	}
}

func buildAnalyticsMessage(t *testing.T) *gcppubsub.Message {
	t.Helper()
	payload := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{"foo":"bar"}`),
	}
	return buildMessage(payload, map[string]string{
		"event_type":     "order.created",
		"aggregate_type": "order",
		"aggregate_id":   uuid.NewString(),
	})
}

func buildMessage(payload outbox.PayloadEnvelope, attrs map[string]string) *gcppubsub.Message {
	data, _ := json.Marshal(payload)
	return &gcppubsub.Message{
		ID:         "msg-1",
		Data:       data,
		Attributes: attrs,
	}
}

func newTestServiceWithDeps(t *testing.T, handler Handler, manager *stubManager) *Service {
	t.Helper()
	return &Service{
		handler: handler,
		dedupe:  manager,
		logg:    logger.New(logger.Options{ServiceName: "analytics-test"}),
	}
}

type stubHandler struct {
	called   bool
	calls    int
	envelope types.Envelope
	err      error
}

func (h *stubHandler) Handle(ctx context.Context, envelope types.Envelope) error {
	h.called = true
	h.calls++
	h.envelope = envelope
	return h.err
}

type stubManager struct {
	checkResult bool
	checkErr    error
	releaseErr  error
	checked     []string
	released    []string
}

func (s *stubManager) CheckAndMarkProcessed(ctx context.Context, consumer, eventID string) (bool, error) {
	s.checked = append(s.checked, eventID)
	return s.checkResult, s.checkErr
}

func (s *stubManager) Release(ctx context.Context, consumer, eventID string) error {
	s.released = append(s.released, eventID)
	return s.releaseErr
}

func TestProcessCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	svc := newTestServiceWithDeps(t, &stubHandler{}, &stubManager{})
	svc.metrics = metrics.NewEventMetrics(reg)

	svc.process(context.Background(), buildAnalyticsMessage(t))
	svc.process(context.Background(), &gcppubsub.Message{Data: []byte("{")})

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	outcomes := map[string]float64{}
	for _, family := range families {
		for _, m := range family.GetMetric() {
			for _, pair := range m.GetLabel() {
				if pair.GetName() == "outcome" {
					outcomes[pair.GetValue()] += m.GetCounter().GetValue()
				}
			}
		}
	}
	if outcomes[metrics.OutcomeHandled] != 1 || outcomes[metrics.OutcomeInvalid] != 1 {
		t.Fatalf("unexpected outcomes %v", outcomes)
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(Params{}); err == nil {
		t.Fatal("expected missing subscription to fail")
	}
}
