// Package pubsub wraps the Pub/Sub v2 client with the storefront's topic and
// subscription names.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Mode selects which resources must exist at startup: the orders topic for
// publishers, the subscriptions for subscribers.
type Mode int

const (
	ModePublisher Mode = iota
	ModeSubscriber
)

func (m Mode) String() string {
	if m == ModeSubscriber {
		return "subscriber"
	}
	return "publisher"
}

var errNotInitialized = errors.New("pubsub client not initialized")

type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
	mode      Mode
}

// NewClient connects and checks that the resources mode needs exist.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, mode Mode, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errors.New("gcp project id is required")
	}
	ps, err := pubsub.NewClient(ctx, projectID, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	c := &Client{client: ps, projectID: projectID, cfg: cfg, mode: mode}
	if err := c.Ping(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "pubsub_mode", mode.String()), "pubsub client initialized")
	}
	return c, nil
}

// clientOptions prefers inline credentials, then a key file, then ADC.
func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	if raw := strings.TrimSpace(gcp.CredentialsJSON); raw != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(raw))}
	}
	if path := strings.TrimSpace(gcp.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

// resourceName expands a short topic or subscription id under the client's
// project. Full resource names of the same collection pass through.
func (c *Client) resourceName(collection, name string) string {
	name = strings.TrimSpace(name)
	if c == nil || name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+collection+"/") {
		return name
	}
	if c.projectID == "" {
		return ""
	}
	return "projects/" + c.projectID + "/" + collection + "/" + name
}

func subscriptionNames(cfg config.PubSubConfig) []string {
	var names []string
	if name := strings.TrimSpace(cfg.AnalyticsSubscription); name != "" {
		names = append(names, name)
	}
	return names
}

// Ping checks that the topic or subscriptions for the client's mode exist.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	if c.mode == ModePublisher {
		return c.exists(ctx, "topics", c.cfg.OrdersTopic)
	}
	names := subscriptionNames(c.cfg)
	if len(names) == 0 {
		return errors.New("pubsub subscription name is required")
	}
	for _, name := range names {
		if err := c.exists(ctx, "subscriptions", name); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) exists(ctx context.Context, collection, name string) error {
	full := c.resourceName(collection, name)
	if full == "" {
		return fmt.Errorf("%s %q not configured", collection, name)
	}
	var err error
	switch collection {
	case "topics":
		_, err = c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: full})
	default:
		_, err = c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: full})
	}
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s does not exist", full)
	default:
		return fmt.Errorf("check %s: %w", full, err)
	}
}

// Subscription returns a Subscriber for a subscription id or full name.
func (c *Client) Subscription(name string) *pubsub.Subscriber {
	full := c.resourceName("subscriptions", name)
	if full == "" || c.client == nil {
		return nil
	}
	return c.client.Subscriber(full)
}

func (c *Client) AnalyticsSubscription() *pubsub.Subscriber {
	if c == nil {
		return nil
	}
	return c.Subscription(c.cfg.AnalyticsSubscription)
}

// Publisher returns a Publisher for a topic id or full name.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	full := c.resourceName("topics", name)
	if full == "" || c.client == nil {
		return nil
	}
	return c.client.Publisher(full)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
