package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// StripeConsumer scopes webhook idempotency markers.
const StripeConsumer = "stripe-webhook"

// Stripe caps event payloads well below this.
const maxWebhookBody = 64 << 10

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type eventVerifier interface {
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
}

type idempotencyGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer, eventID string) (bool, error)
	Release(ctx context.Context, consumer, eventID string) error
}

// StripeWebhook verifies and applies Stripe events. Bad or missing
// signatures get 400. A redelivered event is acknowledged without being
// applied again; a failed one releases its marker so Stripe's retry is
// applied.
func StripeWebhook(svc StripeWebhookService, verifier eventVerifier, guard idempotencyGuard, logg *logger.Logger) http.HandlerFunc {
	if svc == nil || verifier == nil || guard == nil {
		return func(w http.ResponseWriter, r *http.Request) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stripe webhooks are not configured"))
		}
	}
	h := stripeWebhook{svc: svc, verifier: verifier, guard: guard, logg: logg}
	return func(w http.ResponseWriter, r *http.Request) {
		event, err := h.verify(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{
				"stripe_event_id":   event.ID,
				"stripe_event_type": string(event.Type),
			})
		}
		if err := h.apply(ctx, &event); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

type stripeWebhook struct {
	svc      StripeWebhookService
	verifier eventVerifier
	guard    idempotencyGuard
	logg     *logger.Logger
}

func (h stripeWebhook) verify(r *http.Request) (stripe.Event, error) {
	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		return stripe.Event{}, pkgerrors.New(pkgerrors.CodeValidation, "stripe signature missing")
	}
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		return stripe.Event{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body")
	}
	event, err := h.verifier.ConstructEvent(payload, signature)
	if err != nil {
		return stripe.Event{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid stripe signature")
	}
	return event, nil
}

func (h stripeWebhook) apply(ctx context.Context, event *stripe.Event) error {
	seen, err := h.guard.CheckAndMarkProcessed(ctx, StripeConsumer, event.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency")
	}
	if seen {
		h.info(ctx, "stripe event already processed")
		return nil
	}
	if err := h.svc.HandleEvent(ctx, event); err != nil {
		if releaseErr := h.guard.Release(context.WithoutCancel(ctx), StripeConsumer, event.ID); releaseErr != nil && h.logg != nil {
			h.logg.Error(ctx, "failed to release stripe idempotency key", releaseErr)
		}
		return err
	}
	h.info(ctx, "stripe event processed")
	return nil
}

func (h stripeWebhook) info(ctx context.Context, msg string) {
	if h.logg != nil {
		h.logg.Info(ctx, msg)
	}
}
