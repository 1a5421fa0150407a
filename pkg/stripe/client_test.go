package stripe

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

func TestNewClientChecksKeyAgainstEnvironment(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.StripeConfig
		wantErr string
	}{
		{name: "test key", cfg: config.StripeConfig{APIKey: "sk_test_123", Secret: "whsec_1"}},
		{name: "restricted live key", cfg: config.StripeConfig{APIKey: "rk_live_123", Secret: "whsec_1", Env: "LIVE"}},
		{name: "live key in test", cfg: config.StripeConfig{APIKey: "sk_live_123", Secret: "whsec_1"}, wantErr: "sk_test_"},
		{name: "unknown env", cfg: config.StripeConfig{APIKey: "sk_test_123", Secret: "whsec_1", Env: "staging"}, wantErr: "test or live"},
		{name: "missing key", cfg: config.StripeConfig{Secret: "whsec_1"}, wantErr: "api key"},
		{name: "missing secret", cfg: config.StripeConfig{APIKey: "sk_test_123"}, wantErr: "webhook secret"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client, err := NewClient(context.Background(), tc.cfg, nil)
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.cfg.Environment(), client.Environment())
		})
	}
}

func TestConstructEventVerifiesSignature(t *testing.T) {
	client, err := NewClient(context.Background(), config.StripeConfig{APIKey: "sk_test_123", Secret: "whsec_test"}, nil)
	require.NoError(t, err)

	payload, err := json.Marshal(stripe.Event{
		ID:         "evt_1",
		Object:     "event",
		Type:       stripe.EventTypeCheckoutSessionCompleted,
		APIVersion: stripe.APIVersion,
		Data:       &stripe.EventData{Raw: json.RawMessage(`{}`)},
	})
	require.NoError(t, err)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    "whsec_test",
		Timestamp: time.Now(),
	})
	event, err := client.ConstructEvent(signed.Payload, signed.Header)
	require.NoError(t, err)
	require.Equal(t, "evt_1", event.ID)

	_, err = client.ConstructEvent(payload, "t=1,v1=deadbeef")
	require.Error(t, err)
}

func TestNilClient(t *testing.T) {
	var client *Client
	require.Empty(t, client.Environment())
	_, err := client.ConstructEvent(nil, "")
	require.ErrorIs(t, err, errNotConfigured)
	_, err = client.CreateCheckoutSession(context.Background(), &stripe.CheckoutSessionParams{})
	require.ErrorIs(t, err, errNotConfigured)
}
