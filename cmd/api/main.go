package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/comparison"
	"github.com/angelmondragon/storefront-backend/internal/discounts"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/internal/reviews"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/instance"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
	"github.com/angelmondragon/storefront-backend/pkg/stripe"
)

const (
	serviceName     = "api"
	shutdownTimeout = 15 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.ForApp(serviceName, cfg.App)

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe client", err)
		os.Exit(1)
	}

	webhookGuard, err := idempotency.NewManager(redisClient, cfg.Eventing.WebhookIdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook idempotency guard", err)
		os.Exit(1)
	}

	services, err := buildServices(cfg, logg, dbClient, redisClient, sessionManager, stripeClient)
	if err != nil {
		logg.Error(context.Background(), "failed to build services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"instance":   instance.GetID(),
		"stripe_env": stripeClient.Environment(),
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			sessionManager,
			metrics.NewHTTPMetrics(prometheus.DefaultRegisterer),
			stripeClient,
			webhookGuard,
			services,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}

func buildServices(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	sessionManager *session.Manager,
	stripeClient *stripe.Client,
) (routes.Services, error) {
	conn := dbClient.DB()
	cache := redis.NewCache(redisClient, logg)
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), logg)

	catalogRepo := catalog.NewRepository(conn)
	discountRepo := discounts.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)
	usersRepo := users.NewRepository(conn)

	engine, err := discounts.NewEngine(discounts.EngineParams{
		Store:   discountRepo,
		Metrics: metrics.NewDiscountMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return routes.Services{}, err
	}

	var svc routes.Services

	if svc.Auth, err = auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	}); err != nil {
		return routes.Services{}, err
	}
	if svc.Profile, err = users.NewProfileService(usersRepo); err != nil {
		return routes.Services{}, err
	}
	if svc.Catalog, err = catalog.NewService(catalog.ServiceParams{
		Repo:   catalogRepo,
		Engine: engine,
		Cache:  cache,
		TTLs:   cfg.Cache,
	}); err != nil {
		return routes.Services{}, err
	}
	if svc.Cart, err = cart.NewService(cart.ServiceParams{
		Listings: catalogRepo,
		Resolver: engine,
	}); err != nil {
		return routes.Services{}, err
	}
	if svc.Orders, err = orders.NewService(orders.ServiceParams{
		Repo:     ordersRepo,
		Quoter:   svc.Cart,
		Tx:       dbClient,
		Outbox:   outboxSvc,
		Delivery: cfg.Delivery,
		Logger:   logg,
	}); err != nil {
		return routes.Services{}, err
	}
	if svc.Payments, err = payments.NewService(payments.ServiceParams{
		Orders: ordersRepo,
		Stripe: stripeClient,
		Tx:     dbClient,
		Outbox: outboxSvc,
		Config: cfg.Stripe,
		Logger: logg,
	}); err != nil {
		return routes.Services{}, err
	}
	if svc.Comparison, err = comparison.NewService(comparison.ServiceParams{
		Repo:     comparison.NewRepository(conn),
		Products: catalogRepo,
		Cache:    cache,
		TTLs:     cfg.Cache,
	}); err != nil {
		return routes.Services{}, err
	}
	if svc.Reviews, err = reviews.NewService(reviews.ServiceParams{
		Repo:     reviews.NewRepository(conn),
		Products: catalogRepo,
	}); err != nil {
		return routes.Services{}, err
	}
	if svc.Discounts, err = discounts.NewService(discounts.ServiceParams{
		Repo:  discountRepo,
		Tx:    dbClient,
		Cache: cache,
	}); err != nil {
		return routes.Services{}, err
	}

	return svc, nil
}
