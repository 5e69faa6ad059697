package store

import (
	"github.com/loykin/apicall/internal/store/postgresql"
	"github.com/loykin/apicall/internal/store/sqlite"
)

// Supported drivers.
const (
	DriverSqlite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Driver string `mapstructure:"driver"`
	// TablePrefix yields "<prefix>_interaction_runs"; empty keeps the default name.
	TablePrefix  string `mapstructure:"table_prefix"`
	DriverConfig DriverConfig
}

type DriverConfig interface {
	ToMap() map[string]interface{}
}

type SqliteConfig = sqlite.Config
type PostgresConfig = postgresql.Config
