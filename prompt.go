package apicall

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/loykin/apicall/internal/common"
	"github.com/loykin/apicall/internal/constants"
	"github.com/loykin/apicall/internal/request"
	"github.com/loykin/apicall/internal/response"
)

// PromptAPIName is the API name prompt runs are recorded under.
const PromptAPIName = "prompt"

// ErrMissingAPIKey is returned by Prompt when the key variable is unset or empty.
var ErrMissingAPIKey = errors.New("API key environment variable not set")

// PromptCall is a one-shot text prompt against a generative-language style
// endpoint. The key comes from the environment, never from the credential file.
type PromptCall struct {
	Endpoint string
	Prompt   string
	KeyEnv   string // default GEMINI_API_KEY
	KeyParam string // default "key"
	TextPath string // gjson path of the answer; default candidates.0.content.parts.0.text
	// RetryStatuses lists non-200 statuses worth another attempt.
	RetryStatuses []int
}

func (p PromptCall) withDefaults() PromptCall {
	if p.KeyEnv == "" {
		p.KeyEnv = constants.DefaultPromptKeyEnv
	}
	if p.KeyParam == "" {
		p.KeyParam = constants.DefaultPromptKeyParam
	}
	if p.TextPath == "" {
		p.TextPath = constants.DefaultPromptTextPath
	}
	return p
}

type promptPart struct {
	Text string `json:"text"`
}

type promptContent struct {
	Parts []promptPart `json:"parts"`
}

type promptPayload struct {
	Contents []promptContent `json:"contents"`
}

// PromptPayload renders {"contents":[{"parts":[{"text":prompt}]}]}.
func PromptPayload(prompt string) ([]byte, error) {
	return json.Marshal(promptPayload{Contents: []promptContent{{Parts: []promptPart{{Text: prompt}}}}})
}

// Prompt sends p.Prompt and returns the extracted answer text. Non-200
// responses surface as *HTTPStatusError carrying the body; a missing answer
// surfaces as *ExtractError.
func (o *Orchestrator) Prompt(ctx context.Context, p PromptCall) (string, error) {
	p = p.withDefaults()
	logger := common.OrDefault(o.Logger).WithComponent("prompt")
	start := time.Now()
	rec := RunRecord{Endpoint: p.Endpoint, Method: http.MethodPost, APIName: PromptAPIName}

	text, err := o.prompt(ctx, p, logger, &rec)

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
	return text, nil
}

func (o *Orchestrator) prompt(ctx context.Context, p PromptCall, logger *Logger, rec *RunRecord) (string, error) {
	key := strings.TrimSpace(os.Getenv(p.KeyEnv))
	if key == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingAPIKey, p.KeyEnv)
	}
	payload, err := PromptPayload(p.Prompt)
	if err != nil {
		return "", err
	}
	req, err := request.New(p.Endpoint).
		SetMethod(http.MethodPost).
		AddHeader(request.HeaderContentType, constants.DefaultContentType).
		AddQueryParam(p.KeyParam, key).
		SetBody(payload).
		Build()
	if err != nil {
		return "", err
	}

	resp, err := o.send(ctx, req, p.RetryStatuses, logger, rec)
	if err != nil {
		return "", err
	}
	if !response.IsSuccess(resp.StatusCode) {
		return "", &HTTPStatusError{StatusCode: resp.StatusCode, Body: resp.Body}
	}
	return response.Extract(resp.Body, p.TextPath)
}
