package response

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/loykin/apicall/internal/common"
)

// Outcome is a completed response as seen by the persister.
type Outcome struct {
	StatusCode int
	Body       []byte
	Format     Format
}

// APIRequestFailedError is returned when a response is not HTTP 200.
// Nothing is written in that case.
type APIRequestFailedError struct {
	StatusCode int
	Body       []byte
}

func (e *APIRequestFailedError) Error() string {
	return fmt.Sprintf("API Request Failed: %d", e.StatusCode)
}

// IOError reports a failure to write the output file at Path.
type IOError struct {
	Path string
	Op   string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("cannot write to file: %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Persister classifies outcomes and writes successful bodies to disk.
type Persister struct {
	Logger *common.Logger
	// FileMode of written files; zero means 0644.
	FileMode os.FileMode
}

// NewPersister returns a persister logging through logger (nil = default logger).
func NewPersister(logger *common.Logger) *Persister {
	return &Persister{Logger: logger}
}

// IsSuccess reports whether status counts as success. Only 200 does.
func IsSuccess(status int) bool {
	return status == http.StatusOK
}

// Persist writes the body verbatim to `<basePath>.<ext>` and returns that path.
// Non-200 outcomes return *APIRequestFailedError before anything touches the disk.
// The body is written to a temporary file next to the target and renamed into
// place, so a failed write never leaves a partial output file behind.
func (p *Persister) Persist(outcome Outcome, basePath string) (string, error) {
	logger := common.OrDefault(p.Logger).WithComponent("response")
	if !IsSuccess(outcome.StatusCode) {
		logger.Debug("response not persisted", "status_code", outcome.StatusCode)
		return "", &APIRequestFailedError{StatusCode: outcome.StatusCode, Body: outcome.Body}
	}

	path := OutputPath(basePath, outcome.Format)
	if err := p.writeFile(path, outcome.Body); err != nil {
		return "", err
	}
	logger.Info("Response saved to: "+path, "bytes", len(outcome.Body), "format", outcome.Format.String())
	return path, nil
}

func (p *Persister) writeFile(path string, body []byte) error {
	mode := p.FileMode
	if mode == 0 {
		mode = 0o644
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &IOError{Path: path, Op: "open", Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		cleanup()
		return &IOError{Path: path, Op: "write", Err: err}
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return &IOError{Path: path, Op: "close", Err: err}
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		cleanup()
		return &IOError{Path: path, Op: "chmod", Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return &IOError{Path: path, Op: "rename", Err: err}
	}
	return nil
}
