package config

const EnvPrefix = "AGROWORLD"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	StateBackendRedis = "redis"
	StateBackendSQL   = "sql"
)

const (
	EnvAppEnv       = "AGROWORLD_APP_ENV"
	EnvPort         = "AGROWORLD_APP_PORT"
	EnvDBDSN        = "AGROWORLD_DB_DSN"
	EnvDBDriver     = "AGROWORLD_DB_DRIVER"
	EnvDBHost       = "AGROWORLD_DB_HOST"
	EnvDBUser       = "AGROWORLD_DB_USER"
	EnvDBName       = "AGROWORLD_DB_NAME"
	EnvRedisURL     = "AGROWORLD_REDIS_URL"
	EnvJWTSecret    = "AGROWORLD_JWT_SECRET"
	EnvJWTIssuer    = "AGROWORLD_JWT_ISSUER"
	EnvJWTExpMins   = "AGROWORLD_JWT_EXPIRATION_MINUTES"
	EnvSessionTTL   = "AGROWORLD_SESSION_TTL_MINUTES"
	EnvStateBackend = "AGROWORLD_STATE_BACKEND"
	EnvStateSecret  = "AGROWORLD_STATE_SECRET"
	EnvBackendURL   = "AGROWORLD_BACKEND_BASE_URL"
	EnvOTPAPIKey    = "AGROWORLD_OTP_API_KEY"
	EnvCheckoutLead = "AGROWORLD_CHECKOUT_MIN_LEAD_DAYS"
	EnvCheckoutTZ   = "AGROWORLD_CHECKOUT_TIMEZONE"
	EnvCORSOrigins  = "AGROWORLD_CORS_ALLOWED_ORIGINS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
