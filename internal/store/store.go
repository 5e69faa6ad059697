package store

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/loykin/apicall/internal/common"
	"github.com/loykin/apicall/internal/constants"
	"github.com/loykin/apicall/internal/store/connector"
	"github.com/loykin/apicall/internal/store/postgresql"
	"github.com/loykin/apicall/internal/store/sqlite"
)

type Run = connector.Run
type TableNames = connector.TableNames
type Connector = connector.Connector

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Store records interaction runs in a SQL database.
type Store struct {
	connector Connector
	tn        TableNames
}

func defaultTableNames() TableNames {
	return TableNames{Runs: constants.DefaultRunsTable}
}

// tableNamesFor derives table names from prefix, falling back to the defaults
// when the result is not a plain SQL identifier.
func tableNamesFor(prefix string) TableNames {
	p := strings.TrimSpace(prefix)
	if p == "" {
		return defaultTableNames()
	}
	name := p + constants.RunsTableSuffix
	if !identRe.MatchString(name) {
		common.GetLogger().WithComponent("store").Warn("invalid table prefix, using default table name", "prefix", p)
		return defaultTableNames()
	}
	return TableNames{Runs: name}
}

func newConnector(driver string) (Connector, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverSqlite, "sqlite3":
		return sqlite.NewStore(), nil
	case DriverPostgres, "postgresql", "pg":
		return postgresql.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver: %s", driver)
	}
}

// Open connects to the configured database and ensures the schema exists.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	c, err := newConnector(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if cfg.DriverConfig != nil {
		if err := c.Load(cfg.DriverConfig.ToMap()); err != nil {
			return nil, fmt.Errorf("load store config: %w", err)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if _, err := c.Connect(); err != nil {
		return nil, err
	}
	s := &Store{connector: c, tn: tableNamesFor(cfg.TablePrefix)}
	if err := s.EnsureSchema(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return s, nil
}

// TableNames returns the table names in use.
func (s *Store) TableNames() TableNames { return s.tn }

func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.connector.Ensure(ctx, s.tn)
}

// RecordRun stores run and returns its id.
func (s *Store) RecordRun(ctx context.Context, run Run) (int64, error) {
	return s.connector.RecordRun(ctx, s.tn, run)
}

// ListRuns returns up to limit runs, newest first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	return s.connector.ListRuns(ctx, s.tn, limit)
}

func (s *Store) Close() error {
	if s == nil || s.connector == nil {
		return nil
	}
	return s.connector.Close()
}
