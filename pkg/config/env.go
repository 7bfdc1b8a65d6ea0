package config

const (
	EnvPrefix = "GOURMET"

	EnvAppEnv       = "GOURMET_APP_ENV"
	EnvLogLevel     = "GOURMET_LOG_LEVEL"
	EnvLogWarnStack = "GOURMET_LOG_WARN_STACK"

	EnvCartDeliveryFee = "GOURMET_CART_DELIVERY_FEE"
	EnvCartTaxRate     = "GOURMET_CART_TAX_RATE"
	EnvCartCurrency    = "GOURMET_CART_CURRENCY"
	EnvCartStorageKey  = "GOURMET_CART_STORAGE_KEY"

	EnvStoreDriver = "GOURMET_STORE_DRIVER"

	EnvDBDSN = "GOURMET_DB_DSN"

	EnvRedisURL  = "GOURMET_REDIS_URL"
	EnvRedisAddr = "GOURMET_REDIS_ADDR"
)

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	StoreDriverMemory   = "memory"
	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"
	StoreDriverRedis    = "redis"
)
