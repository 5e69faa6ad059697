package request

import (
	"net/http"
	"strings"

	"github.com/loykin/apicall/internal/constants"
)

// Auth kinds understood by SetAuthentication.
const (
	AuthNone   = "none"
	AuthBearer = "bearer"
	AuthAPIKey = "apikey"
)

// Header names derived from authentication.
const (
	HeaderAuthorization = "Authorization"
	HeaderAPIKey        = "X-API-Key"
	HeaderContentType   = "Content-Type"
)

// Auth is the authentication part of a request description.
type Auth struct {
	Kind  string
	Token string
}

// Builder is a mutable, chainable description of an HTTP request.
// Every setter returns the same *Builder; it is not safe for concurrent use.
type Builder struct {
	endpoint string
	method   string
	headers  map[string]string
	queries  map[string]string
	body     []byte
	auth     Auth
	// authHeader is the header injected by the last recognised SetAuthentication call.
	authHeader string
}

// New starts a request description for endpoint with method POST.
func New(endpoint string) *Builder {
	return &Builder{
		endpoint: endpoint,
		method:   constants.DefaultMethod,
		headers:  map[string]string{},
		queries:  map[string]string{},
		auth:     Auth{Kind: AuthNone},
	}
}

// SetMethod records the HTTP method. It is validated by Build, not here.
func (b *Builder) SetMethod(method string) *Builder {
	b.method = method
	return b
}

// AddHeader inserts or overwrites a header. Keys are case-sensitive.
func (b *Builder) AddHeader(key, value string) *Builder {
	b.headers[key] = value
	return b
}

// AddQueryParam inserts or overwrites a query parameter.
func (b *Builder) AddQueryParam(key, value string) *Builder {
	b.queries[key] = value
	return b
}

// SetBody replaces the request body.
func (b *Builder) SetBody(body []byte) *Builder {
	b.body = body
	return b
}

// SetAuthentication derives the auth header from kind and token.
// "bearer" sets Authorization: Bearer <token>, "apikey" sets X-API-Key: <token>.
// Any other kind leaves the headers untouched.
func (b *Builder) SetAuthentication(kind, token string) *Builder {
	var name, value string
	switch kind {
	case AuthBearer:
		name, value = HeaderAuthorization, "Bearer "+token
	case AuthAPIKey:
		name, value = HeaderAPIKey, token
	default:
		return b
	}
	if b.authHeader != "" {
		delete(b.headers, b.authHeader)
	}
	b.auth = Auth{Kind: kind, Token: token}
	b.authHeader = name
	b.headers[name] = value
	return b
}

// Endpoint returns the target URL.
func (b *Builder) Endpoint() string { return b.endpoint }

// Method returns the method as set, possibly unsupported.
func (b *Builder) Method() string { return b.method }

// Auth returns the last recognised authentication.
func (b *Builder) Auth() Auth { return b.auth }

// Headers returns a snapshot of the current headers.
func (b *Builder) Headers() map[string]string { return copyMap(b.headers) }

// QueryParams returns a snapshot of the current query parameters.
func (b *Builder) QueryParams() map[string]string { return copyMap(b.queries) }

// Build validates the method and returns an immutable Request.
func (b *Builder) Build() (*Request, error) {
	if !IsSupportedMethod(b.method) {
		return nil, &UnsupportedMethodError{Method: b.method}
	}
	if strings.TrimSpace(b.endpoint) == "" {
		return nil, ErrEmptyEndpoint
	}
	var body []byte
	if b.body != nil {
		body = append([]byte(nil), b.body...)
	}
	return &Request{
		endpoint: strings.TrimSpace(b.endpoint),
		method:   b.method,
		headers:  copyMap(b.headers),
		queries:  copyMap(b.queries),
		body:     body,
	}, nil
}

// IsSupportedMethod reports whether method is one of GET, POST, PUT, DELETE.
// The comparison is exact: lower-case methods are not accepted.
func IsSupportedMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}

func copyMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
