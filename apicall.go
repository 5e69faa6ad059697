package apicall

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/loykin/apicall/internal/common"
	"github.com/loykin/apicall/internal/constants"
	"github.com/loykin/apicall/internal/credential"
	"github.com/loykin/apicall/internal/httpc"
	"github.com/loykin/apicall/internal/request"
	"github.com/loykin/apicall/internal/response"
	"github.com/loykin/apicall/internal/retry"
	"github.com/loykin/apicall/internal/store"
)

// Re-export commonly used types for public API

type Request = request.Request
type RequestBuilder = request.Builder
type Response = httpc.Response
type RetryPolicy = retry.Policy
type Format = response.Format
type Logger = common.Logger
type TokenResolver = credential.Resolver
type CredentialStore = credential.Store
type RunRecord = store.Run

const (
	FormatJSON   = response.FormatJSON
	FormatXML    = response.FormatXML
	FormatPlain  = response.FormatPlain
	FormatBinary = response.FormatBinary
)

// Auth kinds accepted by Call.AuthKind.
const (
	AuthNone   = request.AuthNone
	AuthBearer = request.AuthBearer
	AuthAPIKey = request.AuthAPIKey
)

// Errors surfaced by Run and Prompt; match them with errors.As.
type (
	UnsupportedMethodError = request.UnsupportedMethodError
	TransportError         = httpc.TransportError
	HTTPStatusError        = httpc.HTTPStatusError
	APIRequestFailedError  = response.APIRequestFailedError
	IOError                = response.IOError
	ExtractError           = response.ExtractError
)

// FileReadError reports that the request payload could not be read.
type FileReadError struct {
	Path string
	Err  error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("could not open file: %s: %v", e.Path, e.Err)
}

func (e *FileReadError) Unwrap() error { return e.Err }

// NewRequest starts a request description for endpoint.
func NewRequest(endpoint string) *RequestBuilder { return request.New(endpoint) }

// DefaultRetryPolicy is 3 attempts starting at one second and doubling.
func DefaultRetryPolicy() RetryPolicy { return retry.DefaultPolicy() }

// ParseFormat accepts json, xml, plain and binary.
func ParseFormat(s string) (Format, error) { return response.ParseFormat(s) }

// LoadCredentials reads a `key:value` credential file. A nil logger uses the
// default logger.
func LoadCredentials(path string, logger *Logger) (*CredentialStore, error) {
	return credential.Load(path, logger)
}

// NewCredentialStore builds a credential table in memory.
func NewCredentialStore(entries map[string]string) *CredentialStore { return credential.NewStore(entries) }

type OAuth2Resolver = credential.OAuth2Resolver

// NewOAuth2Resolver fetches tokens for the API names in specs and defers to
// fallback for every other name.
func NewOAuth2Resolver(specs map[string]map[string]interface{}, fallback TokenResolver) (*OAuth2Resolver, error) {
	return credential.NewOAuth2Resolver(specs, fallback)
}

type LogLevel = common.LogLevel

const (
	LogLevelError = common.LogLevelError
	LogLevelWarn  = common.LogLevelWarn
	LogLevelInfo  = common.LogLevelInfo
	LogLevelDebug = common.LogLevelDebug
)

// NewLogger returns a `[LEVEL] message` logger on stdout.
func NewLogger(level LogLevel) *Logger { return common.NewLogger(level) }

// Sender performs a single HTTP exchange.
type Sender interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// Recorder stores a summary of every interaction.
type Recorder interface {
	RecordRun(ctx context.Context, run RunRecord) (int64, error)
}

// Call describes one file-driven interaction. Zero fields take their defaults.
type Call struct {
	Endpoint  string
	InputPath string
	APIName   string // default "default"; the token is read from "<APIName>_token"
	Method    string // default POST
	// Headers and Params are applied after the defaults and may override them.
	Headers    map[string]string
	Params     map[string]string
	Format     Format
	OutputBase string // default <tmp>/api_response
	AuthKind   string // default bearer
	// RetryStatuses lists non-200 statuses that are retried like transport failures.
	RetryStatuses []int
}

func (c Call) withDefaults() Call {
	if c.APIName == "" {
		c.APIName = constants.DefaultAPIName
	}
	if c.Method == "" {
		c.Method = constants.DefaultMethod
	}
	if c.OutputBase == "" {
		c.OutputBase = DefaultOutputBase()
	}
	if c.AuthKind == "" {
		c.AuthKind = constants.DefaultAuthKind
	}
	return c
}

// DefaultOutputBase is <os.TempDir()>/api_response.
func DefaultOutputBase() string {
	return filepath.Join(os.TempDir(), constants.DefaultOutputName)
}

// Orchestrator wires credentials, request building, retries and persistence
// into one interaction. It holds no per-call state and is safe for concurrent use.
type Orchestrator struct {
	Tokens    TokenResolver
	Transport Sender
	Policy    RetryPolicy
	Persister *response.Persister
	Recorder  Recorder
	Logger    *Logger
	// Sleep overrides the retry wait; nil uses a context-aware timer.
	Sleep retry.SleepFunc
}

// New returns an orchestrator with the default transport, policy and persister.
func New(tokens TokenResolver, logger *Logger) *Orchestrator {
	return &Orchestrator{
		Tokens:    tokens,
		Transport: httpc.NewTransport(httpc.Httpc{}, logger),
		Policy:    retry.DefaultPolicy(),
		Persister: response.NewPersister(logger),
		Logger:    logger,
	}
}

func (o *Orchestrator) transport() Sender {
	if o.Transport == nil {
		return httpc.NewTransport(httpc.Httpc{}, o.Logger)
	}
	return o.Transport
}

func (o *Orchestrator) persister() *response.Persister {
	if o.Persister == nil {
		return response.NewPersister(o.Logger)
	}
	return o.Persister
}

func (o *Orchestrator) executor(logger *Logger) *retry.Executor {
	p := o.Policy
	if p.MaxAttempts == 0 {
		p = retry.DefaultPolicy()
	}
	e := retry.NewExecutor(p, logger)
	if o.Sleep != nil {
		e.Sleep = o.Sleep
	}
	return e
}

// Run performs the interaction described by c and returns the response body.
// Every failure is logged once at ERROR as "API Interaction Failed: <msg>" and
// returned unchanged.
func (o *Orchestrator) Run(ctx context.Context, c Call) (string, error) {
	c = c.withDefaults()
	logger := common.OrDefault(o.Logger).WithComponent("orchestrator").WithAPI(c.APIName)
	start := time.Now()
	rec := RunRecord{Endpoint: c.Endpoint, Method: c.Method, APIName: c.APIName}

	body, err := o.run(ctx, c, logger, &rec)

	rec.DurationMS = time.Since(start).Milliseconds()
	if err != nil {
		rec.Failed = true
		rec.Error = common.GetGlobalMasker().MaskString(err.Error())
	}
	o.record(ctx, rec, logger)

	if err != nil {
		logger.Error("API Interaction Failed: " + err.Error())
		return "", err
	}
	return body, nil
}

func (o *Orchestrator) run(ctx context.Context, c Call, logger *Logger, rec *RunRecord) (string, error) {
	payload, err := os.ReadFile(c.InputPath)
	if err != nil {
		return "", &FileReadError{Path: c.InputPath, Err: err}
	}

	token, err := o.resolve(ctx, c.APIName, logger)
	if err != nil {
		return "", err
	}

	b := request.New(c.Endpoint).
		SetMethod(c.Method).
		AddHeader(request.HeaderContentType, constants.DefaultContentType).
		SetAuthentication(c.AuthKind, token).
		SetBody(payload)
	for k, v := range c.Headers {
		b.AddHeader(k, v)
	}
	for k, v := range c.Params {
		b.AddQueryParam(k, v)
	}
	req, err := b.Build()
	if err != nil {
		return "", err
	}

	resp, err := o.send(ctx, req, c.RetryStatuses, logger, rec)
	if err != nil {
		return "", err
	}

	path, err := o.persister().Persist(response.Outcome{
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
		Format:     c.Format,
	}, c.OutputBase)
	if err != nil {
		return "", err
	}
	rec.OutputPath = path
	return string(resp.Body), nil
}

// send runs the exchange under the retry policy. Statuses in retryStatuses are
// turned into retryable *HTTPStatusError; every other response is returned.
func (o *Orchestrator) send(ctx context.Context, req *Request, retryStatuses []int, logger *Logger, rec *RunRecord) (*Response, error) {
	tr := o.transport()
	return retry.Execute(ctx, o.executor(logger), func(ctx context.Context) (*Response, error) {
		rec.Attempts++
		resp, err := tr.Send(ctx, req)
		if err != nil {
			return nil, err
		}
		rec.StatusCode = resp.StatusCode
		if containsStatus(retryStatuses, resp.StatusCode) {
			return nil, &HTTPStatusError{StatusCode: resp.StatusCode, Body: resp.Body, Retry: true}
		}
		return resp, nil
	})
}

func (o *Orchestrator) resolve(ctx context.Context, apiName string, logger *Logger) (string, error) {
	if o.Tokens == nil {
		return "", nil
	}
	token, err := o.Tokens.Resolve(ctx, apiName)
	if err != nil {
		return "", err
	}
	if token == "" {
		logger.Debug("no token found, sending request without credentials", "key", apiName+constants.TokenSuffix)
		return "", nil
	}
	if info := credential.InspectToken(token); info.Expired(time.Now()) {
		logger.Warn("token is expired, sending it anyway", "expired_at", info.ExpiresAt.Format(time.RFC3339))
	}
	return token, nil
}

func (o *Orchestrator) record(ctx context.Context, rec RunRecord, logger *Logger) {
	if o.Recorder == nil {
		return
	}
	if _, err := o.Recorder.RecordRun(context.WithoutCancel(ctx), rec); err != nil {
		logger.Warn("failed to record interaction run", "error", err)
	}
}

func containsStatus(list []int, status int) bool {
	for _, s := range list {
		if s == status {
			return true
		}
	}
	return false
}
