package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/loykin/apicall/internal/common"
	"github.com/loykin/apicall/internal/store/connector"
)

type Store struct {
	db      *sql.DB
	dialect *Dialect
	DSN     string
	path    string
}

var _ connector.Connector = (*Store)(nil)

// NewStore creates a new SQLite store
func NewStore() *Store {
	return &Store{
		dialect: NewDialect(),
	}
}

// Load loads configuration into the SQLite store
func (s *Store) Load(config map[string]interface{}) error {
	if dsn, ok := config["dsn"].(string); ok && dsn != "" {
		s.DSN = dsn
		return nil
	}
	if path, ok := config["path"].(string); ok && path != "" {
		s.path = path
		s.DSN = fmt.Sprintf("file:%s?_busy_timeout=%d&%s", path, busyTimeoutMS, foreignKeysParam)
	}
	return nil
}

// Validate makes sure the directory of a file database exists.
func (s *Store) Validate() error {
	if s.path == "" {
		return nil
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create sqlite directory %s: %w", dir, err)
	}
	return nil
}

// Connect establishes a connection to SQLite using the dialect
func (s *Store) Connect() (*sql.DB, error) {
	if s.DSN == "" {
		// Default to in-memory database for testing
		s.DSN = ":memory:"
	}

	db, err := s.dialect.Connect(s.DSN)
	if err != nil {
		return nil, err
	}
	s.db = db

	logger := common.GetLogger().WithStore("sqlite")
	logger.Debug("SQLite database connection established", "dsn", s.DSN)
	return db, nil
}

func (s *Store) Ensure(ctx context.Context, th connector.TableNames) error {
	for _, stmt := range s.dialect.GetEnsureStatements(th.Runs) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure sqlite schema: %w", err)
		}
	}
	return nil
}

func (s *Store) RecordRun(ctx context.Context, th connector.TableNames, run connector.Run) (int64, error) {
	logger := common.GetLogger().WithStore("sqlite").WithAPI(run.APIName)
	logger.Debug("recording interaction run", "status", run.StatusCode, "failed", run.Failed)

	ranAt := s.dialect.ConvertTimeToStorage(time.Now())
	ph := s.dialect.GetPlaceholder()
	q := fmt.Sprintf("INSERT INTO %s(endpoint, method, api_name, status_code, attempts, output_path, error, failed, duration_ms, ran_at) VALUES(%s)",
		th.Runs, strings.TrimSuffix(strings.Repeat(ph+",", 10), ","))

	res, err := s.db.ExecContext(ctx, q,
		run.Endpoint, run.Method, run.APIName, run.StatusCode, run.Attempts,
		nullString(run.OutputPath), nullString(run.Error),
		s.dialect.ConvertBoolToStorage(run.Failed), run.DurationMS, ranAt)
	if err != nil {
		logger.Error("failed to record interaction run", "error", err)
		return 0, fmt.Errorf("failed to record interaction run (%s %s): %w", run.Method, run.Endpoint, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted run id: %w", err)
	}
	return id, nil
}

func (s *Store) ListRuns(ctx context.Context, th connector.TableNames, limit int) ([]connector.Run, error) {
	logger := common.GetLogger().WithStore("sqlite")
	logger.Debug("listing interaction runs", "limit", limit)

	q := fmt.Sprintf("SELECT id, endpoint, method, api_name, status_code, attempts, output_path, error, failed, duration_ms, ran_at FROM %s ORDER BY id DESC", th.Runs)
	var args []interface{}
	if limit > 0 {
		q += " LIMIT " + s.dialect.GetPlaceholder()
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		logger.Error("failed to query interaction runs", "error", err)
		return nil, fmt.Errorf("failed to list interaction runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []connector.Run
	for rows.Next() {
		var run connector.Run
		var outputPath, errText sql.NullString
		var failed int64
		var ranAt string
		if err := rows.Scan(&run.ID, &run.Endpoint, &run.Method, &run.APIName, &run.StatusCode, &run.Attempts,
			&outputPath, &errText, &failed, &run.DurationMS, &ranAt); err != nil {
			return nil, fmt.Errorf("failed to scan interaction run: %w", err)
		}
		run.OutputPath = outputPath.String
		run.Error = errText.String
		run.Failed = s.dialect.ConvertBoolFromStorage(failed)
		run.RanAt = s.dialect.ConvertTimeFromStorage(ranAt)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
