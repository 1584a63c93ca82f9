package config

// EnvPrefix is passed to envconfig; every field carries an explicit name so the prefix only
// matters for fields added without one.
const EnvPrefix = "AGRIGEN"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	StoreDriverMemory = "memory"
	StoreDriverRedis  = "redis"
	StoreDriverSQL    = "sql"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv      = "AGRIGEN_APP_ENV"
	EnvPort        = "AGRIGEN_APP_PORT"
	EnvStoreDriver = "AGRIGEN_STORE_DRIVER"

	EnvDBDSN    = "AGRIGEN_DB_DSN"
	EnvDBDriver = "AGRIGEN_DB_DRIVER"
	EnvDBHost   = "AGRIGEN_DB_HOST"
	EnvDBUser   = "AGRIGEN_DB_USER"
	EnvDBName   = "AGRIGEN_DB_NAME"

	EnvRedisURL  = "AGRIGEN_REDIS_URL"
	EnvRedisAddr = "AGRIGEN_REDIS_ADDR"

	EnvSessionSecret = "AGRIGEN_SESSION_SECRET"
	EnvTaxRate       = "AGRIGEN_TAX_RATE"
	EnvSeedUnitPrice = "AGRIGEN_SEED_UNIT_PRICE"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
