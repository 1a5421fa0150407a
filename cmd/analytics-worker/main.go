package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/internal/analytics/router"
	"github.com/angelmondragon/storefront-backend/internal/analytics/worker"
	"github.com/angelmondragon/storefront-backend/internal/analytics/writer"
	"github.com/angelmondragon/storefront-backend/pkg/bigquery"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/instance"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/storefront-backend/pkg/pubsub"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

const serviceName = "analytics-worker"

func main() {
	_ = godotenv.Load()
	boot := context.Background()

	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Options{ServiceName: serviceName}).Error(boot, "failed to load config", err)
		os.Exit(1)
	}
	logg := logger.ForApp(serviceName, cfg.App)
	must := func(resource string, err error) {
		if err != nil {
			logg.Error(logg.WithField(boot, "resource", resource), "dependency unavailable", err)
			os.Exit(1)
		}
	}

	redisClient, err := redis.New(boot, cfg.Redis, logg)
	must("redis", err)
	defer closeQuietly(logg, "redis", redisClient.Close)

	pubsubClient, err := pubsub.NewClient(boot, cfg.GCP, cfg.PubSub, pubsub.ModeSubscriber, logg)
	must("pubsub", err)
	defer closeQuietly(logg, "pubsub", pubsubClient.Close)

	orderEvents, err := writer.OrderEventsSpec(cfg.BigQuery.OrderEventsTable)
	must("order events schema", err)
	bqClient, err := bigquery.NewClient(boot, cfg.GCP, cfg.BigQuery, []bigquery.TableSpec{orderEvents}, logg)
	must("bigquery", err)
	defer closeQuietly(logg, "bigquery", bqClient.Close)

	subscription := pubsubClient.AnalyticsSubscription()
	if subscription == nil {
		must("analytics subscription", errors.New("subscription not configured"))
	}

	dedupe, err := idempotency.NewManager(redisClient, cfg.Eventing.ConsumerIdempotencyTTL)
	must("idempotency manager", err)

	rows, err := writer.New(bqClient, writer.Config{OrderEventsTable: orderEvents.Name})
	must("bigquery writer", err)

	routes, err := router.NewRouter(rows, logg, nil)
	must("analytics router", err)

	service, err := worker.NewService(worker.Params{
		Subscription: subscription,
		Handler:      routes,
		Dedupe:       dedupe,
		Logger:       logg,
		Metrics:      metrics.NewEventMetrics(prometheus.DefaultRegisterer),
	})
	must("analytics worker", err)

	ctx, stop := signal.NotifyContext(boot, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"service_kind": serviceName, "instance": instance.GetID()})

	go func() {
		if err := metrics.Serve(ctx, cfg.App.MetricsAddr, logg); err != nil {
			logg.Error(ctx, "metrics listener failed", err)
		}
	}()
	logg.Info(ctx, "analytics worker ready")

	runErr := service.Run(ctx)
	if err := rows.Flush(context.WithoutCancel(ctx)); err != nil {
		logg.Error(ctx, "failed to flush buffered analytics rows", err)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logg.Error(ctx, "analytics worker failed", runErr)
		os.Exit(1)
	}
	logg.Info(ctx, "analytics worker stopped")
}

func closeQuietly(logg *logger.Logger, resource string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(logg.WithField(context.Background(), "resource", resource), "close failed", err)
	}
}
