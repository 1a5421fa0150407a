// Package stripe configures the Stripe SDK for hosted checkout and webhook
// verification.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

var errNotConfigured = errors.New("stripe client is not configured")

// keyPrefixes lists the secret and restricted key prefixes each environment accepts.
var keyPrefixes = map[string][]string{
	"test": {"sk_test_", "rk_test_"},
	"live": {"sk_live_", "rk_live_"},
}

// Client creates checkout sessions and verifies webhook signatures.
type Client struct {
	env    string
	secret string
}

// NewClient sets the SDK key. Test keys are rejected in live mode and vice versa.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env := cfg.Environment()
	key := strings.TrimSpace(cfg.APIKey)
	secret := strings.TrimSpace(cfg.Secret)
	if err := checkCredentials(env, key, secret); err != nil {
		return nil, err
	}
	stripe.Key = key

	if logg != nil {
		logg.Info(logg.WithField(ctx, "stripe_env", env), "stripe client initialized")
	}
	return &Client{env: env, secret: secret}, nil
}

func checkCredentials(env, key, secret string) error {
	prefixes, ok := keyPrefixes[env]
	switch {
	case !ok:
		return fmt.Errorf("stripe environment must be test or live, got %q", env)
	case key == "":
		return errors.New("stripe api key is required")
	case secret == "":
		return errors.New("stripe webhook secret is required")
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(key, prefix) {
			return nil
		}
	}
	return fmt.Errorf("stripe %s environment requires a key starting with %s", env, strings.Join(prefixes, " or "))
}

// Environment is test or live.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.env
}

func (c *Client) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if c == nil {
		return nil, errNotConfigured
	}
	if params == nil {
		return nil, errors.New("checkout session params are required")
	}
	params.Context = ctx
	return session.New(params)
}

// ConstructEvent checks the Stripe-Signature header and decodes the event.
// Events signed for another API version are rejected.
func (c *Client) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	if c == nil {
		return stripe.Event{}, errNotConfigured
	}
	return webhook.ConstructEvent(payload, signature, c.secret)
}
