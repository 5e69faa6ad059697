package credential

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/loykin/apicall/internal/common"
	"github.com/loykin/apicall/internal/constants"
	"github.com/loykin/apicall/internal/util"
)

// Resolver yields the token used to authenticate calls for an API name.
type Resolver interface {
	Resolve(ctx context.Context, apiName string) (string, error)
}

// Store is a read-only key/value table loaded from a `key:value` file.
//
// The file is plain text with no encryption and no permission checks; anyone able
// to read it can read every token.
type Store struct {
	path    string
	entries map[string]string
}

// NewStore builds a store from an in-memory table.
func NewStore(entries map[string]string) *Store {
	m := make(map[string]string, len(entries))
	for k, v := range entries {
		m[k] = v
	}
	return &Store{entries: m}
}

// Load reads path (a leading ~ is expanded). A missing file yields an empty store
// so that calls go out with an empty token; any other read failure is returned.
// A nil logger uses the default logger.
func Load(path string, logger *common.Logger) (*Store, error) {
	p := filepath.Clean(util.ExpandHome(util.TrimWithDefault(path, constants.DefaultCredentialsPath)))
	logger = common.OrDefault(logger).WithComponent("credentials")

	// #nosec G304 -- credential path is chosen by the user
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug("credential file not found, continuing without credentials", "path", p)
		return &Store{path: p, entries: map[string]string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open credential file %s: %w", p, err)
	}
	defer func() { _ = f.Close() }()

	entries, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("read credential file %s: %w", p, err)
	}
	logger.Debug("credentials loaded", "path", p, "entries", len(entries))
	return &Store{path: p, entries: entries}, nil
}

// Parse reads `key:value` lines. A line must split on ':' into exactly two parts;
// anything else is skipped without error. Later duplicates win.
func Parse(r io.Reader) (map[string]string, error) {
	entries := map[string]string{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		parts := strings.Split(line, ":")
		if len(parts) != 2 {
			continue
		}
		entries[parts[0]] = parts[1]
	}
	return entries, sc.Err()
}

// Path returns the file the store was loaded from, if any.
func (s *Store) Path() string { return s.path }

// Len returns the number of entries.
func (s *Store) Len() int { return len(s.entries) }

// Get returns the value for key, or "" when absent.
func (s *Store) Get(key string) string {
	if s == nil {
		return ""
	}
	return s.entries[key]
}

// Resolve returns the `<apiName>_token` entry. It never fails.
func (s *Store) Resolve(_ context.Context, apiName string) (string, error) {
	return s.Get(apiName + constants.TokenSuffix), nil
}
