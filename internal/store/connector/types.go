package connector

import (
	"context"
	"database/sql"
)

// Run is one recorded interaction from the runs table.
type Run struct {
	ID         int64
	Endpoint   string
	Method     string
	APIName    string
	StatusCode int // 0 when no response was received
	Attempts   int
	OutputPath string
	Error      string
	Failed     bool
	DurationMS int64
	RanAt      string // RFC3339Nano for both backends
}

// TableNames represents database table names
type TableNames struct {
	Runs string
}

type Connector interface {
	Connect() (*sql.DB, error)
	Validate() error
	Load(config map[string]interface{}) error
	Ensure(ctx context.Context, th TableNames) error
	// RecordRun inserts run and returns its generated id.
	RecordRun(ctx context.Context, th TableNames, run Run) (int64, error)
	// ListRuns returns the newest runs first; limit <= 0 means all.
	ListRuns(ctx context.Context, th TableNames, limit int) ([]Run, error)
	Close() error
}
