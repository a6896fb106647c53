package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestHashFromSettings(t *testing.T) {
	rev := debug.BuildSetting{Key: "vcs.revision", Value: "0123456789abcdef"}
	if got := hashFromSettings([]debug.BuildSetting{rev}); got != "0123456" {
		t.Errorf("expected a short hash, got %q", got)
	}
	dirty := debug.BuildSetting{Key: "vcs.modified", Value: "true"}
	if got := hashFromSettings([]debug.BuildSetting{rev, dirty}); got != "0123456-dirty" {
		t.Errorf("expected a dirty hash, got %q", got)
	}
	if got := hashFromSettings([]debug.BuildSetting{{Key: "vcs.revision", Value: "abc"}}); got != "abc" {
		t.Errorf("expected a short revision as is, got %q", got)
	}
	if got := hashFromSettings(nil); got != "" {
		t.Errorf("expected no hash without vcs info, got %q", got)
	}
}

func TestString(t *testing.T) {
	if s := String(); !strings.HasPrefix(s, "seq4 "+VersionOrHash) {
		t.Errorf("unexpected version string %q", s)
	}
}
