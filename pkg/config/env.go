package config

const (
	EnvPrefix = "TOURBOOK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	MailDriverLog    = "log"
	MailDriverPubSub = "pubsub"
)

const (
	EnvAppEnv           = "TOURBOOK_APP_ENV"
	EnvPort             = "TOURBOOK_APP_PORT"
	EnvDBDSN            = "TOURBOOK_DB_DSN"
	EnvDBHost           = "TOURBOOK_DB_HOST"
	EnvDBUser           = "TOURBOOK_DB_USER"
	EnvDBName           = "TOURBOOK_DB_NAME"
	EnvDBPassword       = "TOURBOOK_DB_PASSWORD"
	EnvDBDriver         = "TOURBOOK_DB_DRIVER"
	EnvRedisURL         = "TOURBOOK_REDIS_URL"
	EnvJWTSecret        = "TOURBOOK_JWT_SECRET"
	EnvJWTExpiresInDays = "TOURBOOK_JWT_EXPIRES_IN_DAYS"
	EnvMailDriver       = "TOURBOOK_MAIL_DRIVER"
	EnvMailTopic        = "TOURBOOK_MAIL_TOPIC"
	EnvGCPProjectID     = "TOURBOOK_GCP_PROJECT_ID"
	EnvStripeEnabled    = "TOURBOOK_STRIPE_ENABLED"
	EnvStripeAPIKey     = "TOURBOOK_STRIPE_API_KEY"
	EnvPasswordResetTTL = "TOURBOOK_PASSWORD_RESET_TTL"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
