package constants

import (
	"net/http"
	"time"
)

// Interaction defaults
const (
	DefaultAPIName         = "default"
	DefaultMethod          = http.MethodPost
	DefaultContentType     = "application/json"
	DefaultAuthKind        = "bearer"
	DefaultCredentialsPath = "~/.api_credentials"
	// DefaultOutputName is joined to os.TempDir() to form the default output base path.
	DefaultOutputName = "api_response"
	TokenSuffix       = "_token"
)

// Retry defaults
const (
	DefaultMaxAttempts  = 3
	DefaultInitialDelay = 1000 * time.Millisecond
	DefaultMultiplier   = 2.0
)

// Prompt defaults
const (
	DefaultPromptKeyEnv   = "GEMINI_API_KEY"
	DefaultPromptKeyParam = "key"
	DefaultPromptTextPath = "candidates.0.content.parts.0.text"
)

// Database Constants
const (
	DefaultPostgresPort    = 5432
	DefaultPostgresSSLMode = "disable"

	DefaultPostgresMaxConnections = 25
	DefaultPostgresMaxIdleConns   = 5
	DefaultSQLiteMaxConnections   = 1 // SQLite allows only one writer
	DefaultSQLiteMaxIdleConns     = 1

	DefaultRunsTable = "interaction_runs"
	RunsTableSuffix  = "_interaction_runs"
	StoreDBFileName  = "apicall.db"
)

// Connection pool lifetimes
const (
	DefaultMaxConnLifetime = 5 * time.Minute
	DefaultMaxIdleTime     = 1 * time.Minute
	DefaultSQLiteLifetime  = 10 * time.Minute
	DefaultSQLiteIdleTime  = 5 * time.Minute
)
