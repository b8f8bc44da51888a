package config

const (
	EnvPrefix = "PAYBOT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv          = "PAYBOT_APP_ENV"
	EnvLogLevel        = "PAYBOT_LOG_LEVEL"
	EnvTelegramToken   = "PAYBOT_TELEGRAM_TOKEN"
	EnvSettingsPath    = "PAYBOT_SETTINGS_PATH"
	EnvCodesPath       = "PAYBOT_CODES_PATH"
	EnvCatalogPath     = "PAYBOT_CATALOG_PATH"
	EnvBootstrapAdmins = "PAYBOT_BOOTSTRAP_ADMINS"
	EnvRedisURL        = "PAYBOT_REDIS_URL"
	EnvWorkers         = "PAYBOT_WORKERS"
	EnvHTTPAddr        = "PAYBOT_HTTP_ADDR"
)
