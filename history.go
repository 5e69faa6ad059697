package apicall

import (
	"context"

	"github.com/loykin/apicall/internal/constants"
	"github.com/loykin/apicall/internal/store"
)

// Store is the interaction history store.
type Store = store.Store

type StoreConfig = store.Config
type SqliteConfig = store.SqliteConfig
type PostgresConfig = store.PostgresConfig

const (
	DriverSqlite   = store.DriverSqlite
	DriverPostgres = store.DriverPostgres
)

// StoreDBFileName is the default sqlite filename used for interaction history.
const StoreDBFileName = constants.StoreDBFileName

// OpenStore connects to the history database and ensures its schema.
func OpenStore(ctx context.Context, cfg StoreConfig) (*Store, error) {
	return store.Open(ctx, cfg)
}
