package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	admincontrollers "github.com/angelmondragon/storefront-backend/api/controllers/admin"
	ordercontrollers "github.com/angelmondragon/storefront-backend/api/controllers/orders"
	webhookcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/webhooks"
	"github.com/angelmondragon/storefront-backend/api/middleware"
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
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
	"github.com/angelmondragon/storefront-backend/pkg/stripe"
)

// Services bundles the domain services behind the HTTP surface.
type Services struct {
	Auth       auth.Service
	Profile    users.ProfileService
	Catalog    catalog.Service
	Cart       cart.Service
	Orders     orders.Service
	Payments   payments.Service
	Comparison comparison.Service
	Reviews    reviews.Service
	Discounts  discounts.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessionChecker session.AccessSessionChecker,
	httpMetrics *metrics.HTTPMetrics,
	stripeClient *stripe.Client,
	stripeWebhookGuard *idempotency.Manager,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	passthrough := func(next http.Handler) http.Handler { return next }
	loginLimit, registerLimit := passthrough, passthrough
	var (
		idempotencyStore redis.IdempotencyStore
		redisPinger      controllers.Pinger
	)
	if redisClient != nil {
		loginLimit = middleware.AuthRateLimit(loginPolicy, redisClient, logg)
		registerLimit = middleware.AuthRateLimit(registerPolicy, redisClient, logg)
		idempotencyStore = redisClient
		redisPinger = redisClient
	}
	idem := middleware.Idempotency(idempotencyStore, logg)
	authn := middleware.Auth(cfg.JWT, sessionChecker, logg)

	stripeWebhook := webhookcontrollers.StripeWebhook(svc.Payments, stripeClient, nil, logg)
	if stripeWebhookGuard != nil {
		stripeWebhook = webhookcontrollers.StripeWebhook(svc.Payments, stripeClient, stripeWebhookGuard, logg)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisPinger))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/webhooks/stripe", stripeWebhook)

		r.Route("/auth", func(r chi.Router) {
			r.With(loginLimit).Post("/login", controllers.AuthLogin(svc.Auth, logg))
			r.With(registerLimit, idem).Post("/register", controllers.AuthRegister(svc.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(svc.Auth, logg))
			r.With(authn).Post("/logout", controllers.AuthLogout(svc.Auth, logg))
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/categories", controllers.CatalogCategories(svc.Catalog, logg))
			r.Get("/products", controllers.CatalogProducts(svc.Catalog, logg))
			r.Get("/products/{productId}", controllers.CatalogProduct(svc.Catalog, logg))
			r.Get("/products/{productId}/reviews", controllers.ReviewsForProduct(svc.Reviews, logg))
			r.Get("/hot-offers", controllers.CatalogHotOffers(svc.Catalog, logg))
		})

		r.Post("/cart/quote", controllers.CartQuote(svc.Cart, logg))

		r.Group(func(r chi.Router) {
			r.Use(authn)

			r.Get("/me", controllers.MeGet(svc.Profile, logg))
			r.Patch("/me", controllers.MeUpdate(svc.Profile, logg))

			r.Route("/orders", func(r chi.Router) {
				r.With(idem).Post("/", ordercontrollers.Create(svc.Orders, logg))
				r.Get("/", ordercontrollers.List(svc.Orders, logg))
				r.Get("/{orderId}", ordercontrollers.Detail(svc.Orders, logg))
				r.With(idem).Post("/{orderId}/cancel", ordercontrollers.Cancel(svc.Orders, logg))
				r.With(idem).Post("/{orderId}/checkout", ordercontrollers.Checkout(svc.Payments, logg))
			})

			r.Route("/comparison", func(r chi.Router) {
				r.Get("/", controllers.ComparisonList(svc.Comparison, logg))
				r.Post("/", controllers.ComparisonAdd(svc.Comparison, logg))
				r.Delete("/{productId}", controllers.ComparisonRemove(svc.Comparison, logg))
			})

			r.Route("/reviews", func(r chi.Router) {
				r.With(idem).Post("/", controllers.ReviewCreate(svc.Reviews, logg))
				r.Patch("/{reviewId}", controllers.ReviewUpdate(svc.Reviews, logg))
				r.Delete("/{reviewId}", controllers.ReviewDelete(svc.Reviews, logg))
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))

				r.Route("/discounts", func(r chi.Router) {
					r.Get("/", admincontrollers.DiscountList(svc.Discounts, logg))
					r.With(idem).Post("/", admincontrollers.DiscountCreate(svc.Discounts, logg))
					r.Get("/{discountId}", admincontrollers.DiscountDetail(svc.Discounts, logg))
					r.Put("/{discountId}", admincontrollers.DiscountUpdate(svc.Discounts, logg))
					r.Delete("/{discountId}", admincontrollers.DiscountArchive(svc.Discounts, logg))
					r.Put("/{discountId}/links", admincontrollers.DiscountSetLinks(svc.Discounts, logg))
				})

				r.Route("/product-groups", func(r chi.Router) {
					r.Get("/", admincontrollers.GroupList(svc.Discounts, logg))
					r.With(idem).Post("/", admincontrollers.GroupCreate(svc.Discounts, logg))
					r.Get("/{groupId}", admincontrollers.GroupDetail(svc.Discounts, logg))
					r.Delete("/{groupId}", admincontrollers.GroupArchive(svc.Discounts, logg))
					r.Put("/{groupId}/products", admincontrollers.GroupSetProducts(svc.Discounts, logg))
				})
			})
		})
	})

	return r
}
