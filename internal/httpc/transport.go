package httpc

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/loykin/apicall/internal/common"
	"github.com/loykin/apicall/internal/request"
)

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

// TransportError is a failure to complete the exchange at all (DNS, connect,
// TLS, reset, timeout). It is always retryable.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error   { return e.Err }
func (e *TransportError) Retryable() bool { return true }

// HTTPStatusError reports a non-200 status observed inside an attempt.
type HTTPStatusError struct {
	StatusCode int
	Body       []byte
	// Retry marks the status as worth another attempt.
	Retry bool
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, string(e.Body))
}

func (e *HTTPStatusError) Retryable() bool { return e.Retry }

// Transport sends built requests. The zero value uses a default Httpc.
type Transport struct {
	Client *resty.Client
	Logger *common.Logger
}

// NewTransport returns a transport over a client built from h.
func NewTransport(h Httpc, logger *common.Logger) *Transport {
	return &Transport{Client: h.New(), Logger: logger}
}

// Send performs one exchange. Any response, whatever its status, is returned
// without error; only failures to obtain a response produce a *TransportError.
func (t *Transport) Send(ctx context.Context, req *request.Request) (*Response, error) {
	client := t.Client
	if client == nil {
		h := Httpc{}
		client = h.New()
	}
	logger := common.OrDefault(t.Logger).WithRequest(req.Method(), req.Endpoint())

	r := client.R().SetContext(ctx).SetHeaders(req.Headers()).SetQueryParams(req.QueryParams())
	if body := req.Body(); body != nil && hasBody(req.Method()) {
		r.SetBody(body)
	}

	logger.Debug("sending request", "headers", common.GetGlobalMasker().MaskHeaders(req.Headers()))
	resp, err := r.Execute(req.Method(), req.Endpoint())
	if err != nil {
		return nil, &TransportError{Method: req.Method(), URL: req.Endpoint(), Err: err}
	}
	logger.Debug("response received", "status", resp.StatusCode(), "bytes", len(resp.Body()))
	return &Response{
		StatusCode: resp.StatusCode(),
		Body:       resp.Body(),
		Header:     resp.Header(),
	}, nil
}

func hasBody(method string) bool {
	return method != http.MethodGet && method != http.MethodDelete
}
