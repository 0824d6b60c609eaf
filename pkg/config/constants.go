package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	EnvDBDSN  = "STOREFRONT_DB_DSN"
	EnvDBHost = "STOREFRONT_DB_HOST"
	EnvDBUser = "STOREFRONT_DB_USER"
	EnvDBName = "STOREFRONT_DB_NAME"

	defaultSQLiteDSN = "file:storefront.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
