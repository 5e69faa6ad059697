package common

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"", LogLevelInfo, false},
		{"info", LogLevelInfo, false},
		{" WARNING ", LogLevelWarn, false},
		{"warn", LogLevelWarn, false},
		{"error", LogLevelError, false},
		{"debug", LogLevelDebug, false},
		{"verbose", LogLevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseLogLevel(%q) err=%v wantErr=%v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLineLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLineLogger(&buf, LogLevelInfo)

	logger.Info("Response saved to: /tmp/x.json")
	logger.Warn("Attempt 1 failed. Retrying in 10ms", "attempt", 1, "delay", 10*time.Millisecond)
	logger.Error("API Interaction Failed: boom")
	logger.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), buf.String())
	}
	if lines[0] != "[INFO] Response saved to: /tmp/x.json" {
		t.Errorf("unexpected info line: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "[WARNING] Attempt 1 failed. Retrying in 10ms") ||
		!strings.Contains(lines[1], "attempt=1") || !strings.Contains(lines[1], "delay=10ms") {
		t.Errorf("unexpected warning line: %q", lines[1])
	}
	if lines[2] != "[ERROR] API Interaction Failed: boom" {
		t.Errorf("unexpected error line: %q", lines[2])
	}
}

func TestLineLogger_WithComponentAndMasking(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLineLogger(&buf, LogLevelDebug).WithComponent("retry")

	logger.Debug("sending", "Authorization", "Bearer abc123", "note", "plain")
	logger.Error("failed", "error", errors.New("upstream said token=abc123"))

	out := buf.String()
	if strings.Contains(out, "abc123") {
		t.Fatalf("secret leaked into log output: %q", out)
	}
	if !strings.Contains(out, "component=retry") {
		t.Errorf("expected component attribute, got %q", out)
	}
	if !strings.Contains(out, "note=plain") {
		t.Errorf("expected plain attribute untouched, got %q", out)
	}
}

func TestLineLogger_MaskingDisabled(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLineLogger(&buf, LogLevelInfo)
	logger.EnableMasking(false)
	logger.Info("sending", "Authorization", "Bearer abc123")
	if !strings.Contains(buf.String(), "abc123") {
		t.Fatalf("expected raw value when masking disabled, got %q", buf.String())
	}
}

func TestLineHandler_Group(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewLineHandler(&buf, nil)).WithGroup("http").With("status", 200)
	logger.Info("done", "bytes", 7)
	got := strings.TrimSpace(buf.String())
	if got != "[INFO] done http.status=200 http.bytes=7" {
		t.Fatalf("unexpected grouped line: %q", got)
	}
}

func TestJSONLogger_Masks(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLoggerTo(&buf, LogLevelInfo)
	logger.Info("request", "X-API-Key", "k-123", "url", "https://api.example.com/v1?key=k-123")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("invalid json log: %v (%s)", err, buf.String())
	}
	if rec["X-API-Key"] != MaskedValue {
		t.Errorf("expected masked X-API-Key, got %v", rec["X-API-Key"])
	}
	if strings.Contains(rec["url"].(string), "k-123") {
		t.Errorf("expected key query param masked, got %v", rec["url"])
	}
}

func TestGlobalLogger(t *testing.T) {
	orig := GetLogger()
	defer SetDefaultLogger(orig)

	custom := NewLogger(LogLevelDebug)
	SetDefaultLogger(custom)
	if GetLogger() != custom {
		t.Fatal("expected custom default logger")
	}
	SetDefaultLogger(nil)
	if GetLogger() != custom {
		t.Fatal("nil must not replace the default logger")
	}
	if OrDefault(nil) != custom {
		t.Fatal("OrDefault(nil) should return the default logger")
	}
}
