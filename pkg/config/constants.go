package config

// EnvPrefix is passed to envconfig.Process. Individual fields carry the
// fully prefixed variable name in their tags, so the prefix itself only
// matters for envconfig's usage output.
const EnvPrefix = "SHOPLINE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "SHOPLINE_APP_ENV"
	EnvPort     = "SHOPLINE_APP_PORT"
	EnvLogLevel = "SHOPLINE_LOG_LEVEL"

	EnvDBDSN    = "SHOPLINE_DB_DSN"
	EnvDBHost   = "SHOPLINE_DB_HOST"
	EnvDBPort   = "SHOPLINE_DB_PORT"
	EnvDBUser   = "SHOPLINE_DB_USER"
	EnvDBName   = "SHOPLINE_DB_NAME"
	EnvRedisURL = "SHOPLINE_REDIS_URL"

	EnvJWTSecret  = "SHOPLINE_JWT_SECRET"
	EnvJWTIssuer  = "SHOPLINE_JWT_ISSUER"
	EnvJWTExpMins = "SHOPLINE_JWT_EXPIRATION_MINUTES"

	EnvStripeSecretKey     = "SHOPLINE_STRIPE_SECRET_KEY"
	EnvStripeWebhookSecret = "SHOPLINE_STRIPE_WEBHOOK_SECRET"
)

// legacyDBEnvVars are the discrete connection variables accepted when a
// full DSN is not provided.
var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
