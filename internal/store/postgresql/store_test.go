package postgresql

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/loykin/apicall/internal/store/connector"
)

var th = connector.TableNames{Runs: "interaction_runs"}

func TestStore_LoadAndValidate(t *testing.T) {
	s := NewStore()
	if err := s.Validate(); err == nil {
		t.Fatal("expected validation error without dsn")
	}
	_ = s.Load(map[string]interface{}{"dsn": " postgres://u@h/d "})
	if s.DSN != "postgres://u@h/d" {
		t.Fatalf("DSN = %q", s.DSN)
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestStore_RecordRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer func() { _ = db.Close() }()

	s := &Store{db: db, dialect: NewDialect()}
	mock.ExpectQuery(`INSERT INTO interaction_runs\(.*\) VALUES\(\$1,\$2,\$3,\$4,\$5,\$6,\$7,\$8,\$9,\$10\) RETURNING id`).
		WithArgs("http://x", "PUT", "svc", 0, 3, sqlmock.AnyArg(), sqlmock.AnyArg(), true, int64(0), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	id, err := s.RecordRun(context.Background(), th, connector.Run{Endpoint: "http://x", Method: "PUT", APIName: "svc", Attempts: 3, Error: "refused", Failed: true})
	if err != nil || id != 42 {
		t.Fatalf("RecordRun = %d, %v", id, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStore_ListRuns(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer func() { _ = db.Close() }()

	s := &Store{db: db, dialect: NewDialect()}
	ranAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cols := []string{"id", "endpoint", "method", "api_name", "status_code", "attempts", "output_path", "error", "failed", "duration_ms", "ran_at"}
	mock.ExpectQuery(`SELECT .* FROM interaction_runs ORDER BY id DESC$`).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(int64(1), "http://x", "POST", "svc", 200, 1, "/o.json", nil, false, int64(3), ranAt))

	runs, err := s.ListRuns(context.Background(), th, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].Failed || runs[0].OutputPath != "/o.json" || runs[0].RanAt != "2024-05-01T12:00:00Z" {
		t.Fatalf("unexpected runs: %+v", runs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
