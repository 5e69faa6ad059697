package common

import (
	"log/slog"
	"regexp"
	"strings"
	"sync/atomic"
)

// MaskedValue replaces any sensitive value in log output.
const MaskedValue = "***MASKED***"

// SensitivePattern detects sensitive information by attribute key or by content.
type SensitivePattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
	Keys        []string // attribute keys masked entirely (case-insensitive)
}

// DefaultSensitivePatterns covers the credentials this tool handles: bearer tokens,
// API keys sent as X-API-Key or ?key=, and client secrets used for OAuth2.
var DefaultSensitivePatterns = []SensitivePattern{
	{
		Name:        "authorization",
		Regex:       regexp.MustCompile(`(?i)(authorization)(["'\s]*[:=]["'\s]*)(bearer\s+|basic\s+)?[^"',}\]\s]+`),
		Replacement: "${1}${2}${3}" + MaskedValue,
		Keys:        []string{"authorization"},
	},
	{
		Name:        "api_key",
		Regex:       regexp.MustCompile(`(?i)(x-api-key|api[_-]?key)(["'\s]*[:=]["'\s]*)[^"',}\]\s&]+`),
		Replacement: "${1}${2}" + MaskedValue,
		Keys:        []string{"x-api-key", "api_key", "apikey", "api-key"},
	},
	{
		Name:        "query_key",
		Regex:       regexp.MustCompile(`([?&]key=)[^&\s"']+`),
		Replacement: "${1}" + MaskedValue,
	},
	{
		Name:        "token",
		Regex:       regexp.MustCompile(`(?i)((?:access[_-]?|auth[_-]?)?token)(["'\s]*[:=]["'\s]*)[^"',}\]\s]+`),
		Replacement: "${1}${2}" + MaskedValue,
		Keys:        []string{"token", "access_token", "auth_token"},
	},
	{
		Name:        "bearer",
		Regex:       regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9\-._~+/]+=*`),
		Replacement: "Bearer " + MaskedValue,
	},
	{
		Name:        "secret",
		Regex:       regexp.MustCompile(`(?i)((?:client[_-]?)?secret|password)(["'\s]*[:=]["'\s]*)[^"',}\]\s]+`),
		Replacement: "${1}${2}" + MaskedValue,
		Keys:        []string{"secret", "client_secret", "password"},
	},
}

// Masker handles masking of sensitive information in logs
type Masker struct {
	patterns []SensitivePattern
	enabled  atomic.Bool
}

// NewMasker creates a new masker with default patterns
func NewMasker() *Masker {
	return NewMaskerWithPatterns(DefaultSensitivePatterns)
}

// NewMaskerWithPatterns creates a new masker with custom patterns
func NewMaskerWithPatterns(patterns []SensitivePattern) *Masker {
	m := &Masker{patterns: patterns}
	m.enabled.Store(true)
	return m
}

// SetEnabled enables or disables masking
func (m *Masker) SetEnabled(enabled bool) {
	m.enabled.Store(enabled)
}

// IsEnabled returns whether masking is enabled
func (m *Masker) IsEnabled() bool {
	return m.enabled.Load()
}

// MaskString masks sensitive information in a string
func (m *Masker) MaskString(input string) string {
	if m == nil || !m.IsEnabled() {
		return input
	}
	result := input
	for _, p := range m.patterns {
		if p.Regex != nil {
			result = p.Regex.ReplaceAllString(result, p.Replacement)
		}
	}
	return result
}

// IsSensitiveKey reports whether values stored under key are always masked.
func (m *Masker) IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, p := range m.patterns {
		for _, k := range p.Keys {
			if lower == k {
				return true
			}
		}
	}
	return false
}

// MaskAttr masks a slog attribute by key first, then by content for string and
// error values. Other kinds are returned untouched.
func (m *Masker) MaskAttr(a slog.Attr) slog.Attr {
	if m == nil || !m.IsEnabled() {
		return a
	}
	if m.IsSensitiveKey(a.Key) {
		return slog.String(a.Key, MaskedValue)
	}
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		if masked := m.MaskString(v.String()); masked != v.String() {
			return slog.String(a.Key, masked)
		}
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			if masked := m.MaskString(err.Error()); masked != err.Error() {
				return slog.String(a.Key, masked)
			}
		}
	}
	return a
}

// MaskHeaders returns a copy of headers with sensitive values masked, for logging.
func (m *Masker) MaskHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if m.IsEnabled() && m.IsSensitiveKey(k) {
			out[k] = MaskedValue
			continue
		}
		out[k] = v
	}
	return out
}

var globalMasker = NewMasker()

// GetGlobalMasker returns the process-wide masker.
func GetGlobalMasker() *Masker {
	return globalMasker
}

// MaskSensitiveData masks sensitive data using the global masker
func MaskSensitiveData(input string) string {
	return globalMasker.MaskString(input)
}
