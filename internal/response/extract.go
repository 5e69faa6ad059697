package response

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ExtractError is returned when a gjson path does not resolve in a body.
type ExtractError struct {
	Path string
	Body string
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("could not parse API response: no value at %q", e.Path)
}

// Extract evaluates a gjson path against a JSON body. Strings are returned
// unquoted; objects, arrays and numbers are returned as their raw JSON text.
func Extract(body []byte, path string) (string, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return string(body), nil
	}
	if !gjson.ValidBytes(body) {
		return "", &ExtractError{Path: p, Body: string(body)}
	}
	res := gjson.GetBytes(body, p)
	if !res.Exists() {
		return "", &ExtractError{Path: p, Body: string(body)}
	}
	if res.Type == gjson.String {
		return res.Str, nil
	}
	return res.Raw, nil
}
