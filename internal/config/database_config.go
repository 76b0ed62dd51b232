package config

import "time"

type DatabaseConfig interface {
	GetDatabaseURL() string
	GetDBMaxOpenConns() int
	GetDBMaxIdleConns() int
	GetDBConnMaxLifetime() time.Duration
	GetApplySchema() bool
}

type Database struct{}

var _ DatabaseConfig = Database{}

// GetDatabaseURL returns the postgres DSN. An empty value runs the service on in-memory stores.
func (Database) GetDatabaseURL() string {
	return GetEnv("DATABASE_URL", "")
}

func (Database) GetDBMaxOpenConns() int {
	return GetEnvInt("DB_MAX_OPEN_CONNS", 25)
}

func (Database) GetDBMaxIdleConns() int {
	return GetEnvInt("DB_MAX_IDLE_CONNS", 10)
}

func (Database) GetDBConnMaxLifetime() time.Duration {
	return GetEnvDuration("DB_CONN_MAX_LIFETIME", 15*time.Minute)
}

func (Database) GetApplySchema() bool {
	return GetEnvBool("DB_APPLY_SCHEMA", false)
}
