package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/loykin/apicall/internal/common"
	"github.com/loykin/apicall/internal/store/connector"
)

type Store struct {
	db      *sql.DB
	dialect *Dialect
	DSN     string
}

var _ connector.Connector = (*Store)(nil)

// NewStore creates a new PostgreSQL store
func NewStore() *Store {
	return &Store{
		dialect: NewDialect(),
	}
}

// Load loads configuration into the PostgreSQL store
func (s *Store) Load(config map[string]interface{}) error {
	if dsn, ok := config["dsn"].(string); ok {
		s.DSN = strings.TrimSpace(dsn)
	}
	return nil
}

func (s *Store) Validate() error {
	if s.DSN == "" {
		return errors.New("postgres store requires dsn or host")
	}
	return nil
}

// Connect establishes a connection to PostgreSQL using the dialect
func (s *Store) Connect() (*sql.DB, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	db, err := s.dialect.Connect(s.DSN)
	if err != nil {
		return nil, err
	}
	s.db = db

	logger := common.GetLogger().WithStore("postgresql")
	logger.Debug("PostgreSQL database connection established")
	return db, nil
}

func (s *Store) Ensure(ctx context.Context, th connector.TableNames) error {
	for _, stmt := range s.dialect.GetEnsureStatements(th.Runs) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure postgres schema: %w", err)
		}
	}
	return nil
}

func (s *Store) RecordRun(ctx context.Context, th connector.TableNames, run connector.Run) (int64, error) {
	logger := common.GetLogger().WithStore("postgresql").WithAPI(run.APIName)
	logger.Debug("recording interaction run", "status", run.StatusCode, "failed", run.Failed)

	phs := make([]string, 10)
	for i := range phs {
		phs[i] = s.dialect.GetPlaceholder(i + 1)
	}
	q := fmt.Sprintf("INSERT INTO %s(endpoint, method, api_name, status_code, attempts, output_path, error, failed, duration_ms, ran_at) VALUES(%s) RETURNING id",
		th.Runs, strings.Join(phs, ","))

	var id int64
	err := s.db.QueryRowContext(ctx, q,
		run.Endpoint, run.Method, run.APIName, run.StatusCode, run.Attempts,
		nullString(run.OutputPath), nullString(run.Error),
		s.dialect.ConvertBoolToStorage(run.Failed), run.DurationMS,
		s.dialect.ConvertTimeToStorage(time.Now())).Scan(&id)
	if err != nil {
		logger.Error("failed to record interaction run", "error", err)
		return 0, fmt.Errorf("failed to record interaction run (%s %s): %w", run.Method, run.Endpoint, err)
	}
	return id, nil
}

func (s *Store) ListRuns(ctx context.Context, th connector.TableNames, limit int) ([]connector.Run, error) {
	logger := common.GetLogger().WithStore("postgresql")
	logger.Debug("listing interaction runs", "limit", limit)

	q := fmt.Sprintf("SELECT id, endpoint, method, api_name, status_code, attempts, output_path, error, failed, duration_ms, ran_at FROM %s ORDER BY id DESC", th.Runs)
	var args []interface{}
	if limit > 0 {
		q += " LIMIT " + s.dialect.GetPlaceholder(1)
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
		var ranAt time.Time
		if err := rows.Scan(&run.ID, &run.Endpoint, &run.Method, &run.APIName, &run.StatusCode, &run.Attempts,
			&outputPath, &errText, &run.Failed, &run.DurationMS, &ranAt); err != nil {
			return nil, fmt.Errorf("failed to scan interaction run: %w", err)
		}
		run.OutputPath = outputPath.String
		run.Error = errText.String
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
