package config

// EnvPrefix namespaces every environment variable consumed by the service.
const EnvPrefix = "REWARDS"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names shared between Load and tests.
const (
	EnvAppEnv   = "REWARDS_APP_ENV"
	EnvLogLevel = "REWARDS_LOG_LEVEL"
	EnvDBDSN    = "REWARDS_DB_DSN"
	EnvRedisURL = "REWARDS_REDIS_URL"
)
