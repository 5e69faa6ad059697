package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTrimHelpers(t *testing.T) {
	if got := TrimAndLower("  JSON "); got != "json" {
		t.Errorf("TrimAndLower = %q", got)
	}
	if v, ok := TrimEmptyCheck("   "); ok || v != "" {
		t.Errorf("TrimEmptyCheck(blank) = %q, %v", v, ok)
	}
	if v, ok := TrimEmptyCheck(" svc "); !ok || v != "svc" {
		t.Errorf("TrimEmptyCheck(svc) = %q, %v", v, ok)
	}
	if got := TrimWithDefault(" ", "default"); got != "default" {
		t.Errorf("TrimWithDefault = %q", got)
	}
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	if got := ExpandHome("~/.api_credentials"); got != filepath.Join(home, ".api_credentials") {
		t.Errorf("ExpandHome = %q", got)
	}
	if got := ExpandHome("~"); got != home {
		t.Errorf("ExpandHome(~) = %q", got)
	}
	abs := filepath.Join(os.TempDir(), "creds")
	if got := ExpandHome(abs); got != abs {
		t.Errorf("absolute path changed: %q", got)
	}
	if got := ExpandHome("~other/x"); got != "~other/x" {
		t.Errorf("~user form must be left alone, got %q", got)
	}
}
