package config

// EnvPrefix is the prefix handed to envconfig. Every field carries its full
// variable name as a tag, which envconfig falls back to.
const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
	AppEnvTest = "test"
)

const (
	EnvAppEnv    = "STOREFRONT_APP_ENV"
	EnvPort      = "STOREFRONT_APP_PORT"
	EnvLogLevel  = "STOREFRONT_LOG_LEVEL"
	EnvLogFormat = "STOREFRONT_LOG_FORMAT"

	EnvDBDSN      = "STOREFRONT_DB_DSN"
	EnvDBHost     = "STOREFRONT_DB_HOST"
	EnvDBPort     = "STOREFRONT_DB_PORT"
	EnvDBUser     = "STOREFRONT_DB_USER"
	EnvDBPassword = "STOREFRONT_DB_PASSWORD"
	EnvDBName     = "STOREFRONT_DB_NAME"
	EnvDBSSLMode  = "STOREFRONT_DB_SSLMODE"

	EnvRedisURL = "STOREFRONT_REDIS_URL"

	EnvJWTSecret               = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer               = "STOREFRONT_JWT_ISSUER"
	EnvJWTExpMins              = "STOREFRONT_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes  = "STOREFRONT_REFRESH_TOKEN_TTL_MINUTES"
	EnvStripeAPIKey            = "STOREFRONT_STRIPE_API_KEY"
	EnvStripeSecret            = "STOREFRONT_STRIPE_SECRET"
	EnvStripeEnv               = "STOREFRONT_STRIPE_ENV"
	EnvPubSubOrdersTopic       = "STOREFRONT_PUBSUB_ORDERS_TOPIC"
	EnvCronPromoWeekday        = "STOREFRONT_CRON_PROMO_WEEKDAY"
	EnvDeliveryFlatFee         = "STOREFRONT_DELIVERY_FLAT_FEE"
	EnvDeliveryFreeThreshold   = "STOREFRONT_DELIVERY_FREE_THRESHOLD"
	EnvCacheCategoriesTTL      = "STOREFRONT_CACHE_CATEGORIES_TTL"
	EnvGCPProjectID            = "STOREFRONT_GCP_PROJECT_ID"
	EnvBigQueryOrderEventTable = "STOREFRONT_BIGQUERY_ORDER_EVENTS_TABLE"
)

// legacyDBEnvVars must all be present when no DSN is configured.
var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
