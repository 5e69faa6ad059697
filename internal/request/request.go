package request

import (
	"errors"
	"fmt"
)

// ErrEmptyEndpoint is returned by Build when no endpoint was given.
var ErrEmptyEndpoint = errors.New("request: endpoint is empty")

// UnsupportedMethodError reports a method outside GET, POST, PUT and DELETE.
// It is raised at build time so that builders can be prepared speculatively.
type UnsupportedMethodError struct {
	Method string
}

func (e *UnsupportedMethodError) Error() string {
	return fmt.Sprintf("unsupported HTTP method: %q", e.Method)
}

// Retryable is always false: sending the same request again cannot fix it.
func (e *UnsupportedMethodError) Retryable() bool { return false }

// Request is the immutable result of Builder.Build.
type Request struct {
	endpoint string
	method   string
	headers  map[string]string
	queries  map[string]string
	body     []byte
}

func (r *Request) Endpoint() string { return r.endpoint }
func (r *Request) Method() string   { return r.method }

// Headers returns a copy of the request headers.
func (r *Request) Headers() map[string]string { return copyMap(r.headers) }

// QueryParams returns a copy of the query parameters.
func (r *Request) QueryParams() map[string]string { return copyMap(r.queries) }

// Body returns a copy of the body bytes (nil when no body was set).
func (r *Request) Body() []byte {
	if r.body == nil {
		return nil
	}
	return append([]byte(nil), r.body...)
}

// Header returns a single header value.
func (r *Request) Header(key string) (string, bool) {
	v, ok := r.headers[key]
	return v, ok
}
