package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Th3drata/Tomodoro/internal/models"
)

func writePolicy(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "timer_policy.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	return path
}

func TestLoadTimerPolicy_MissingFile(t *testing.T) {
	policy, err := LoadTimerPolicy(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if policy != DefaultTimerPolicy() {
		t.Errorf("Expected built-in policy, got %+v", policy)
	}
}

func TestLoadTimerPolicy_Overrides(t *testing.T) {
	path := writePolicy(t, `
defaults:
  focus_minutes: 25
  break_minutes: 5
limits:
  max_focus_minutes: 90
  max_long_break_minutes: 0
`)

	policy, err := LoadTimerPolicy(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := TimerPolicy{
		Defaults: models.TimerSettings{FocusMinutes: 25, BreakMinutes: 5, LongBreakMinutes: 20},
		Limits:   models.TimerLimits{MaxFocusMinutes: 90, MaxBreakMinutes: 60, MaxLongBreakMinutes: 120},
	}
	if policy != want {
		t.Errorf("Expected %+v, got %+v", want, policy)
	}
}

func TestLoadTimerPolicy_DefaultsAboveLimits(t *testing.T) {
	path := writePolicy(t, `
defaults:
  focus_minutes: 100
limits:
  max_focus_minutes: 60
`)

	policy, err := LoadTimerPolicy(path)
	if err == nil {
		t.Fatal("Expected error for defaults above limits")
	}
	if policy != DefaultTimerPolicy() {
		t.Errorf("Expected built-in policy on error, got %+v", policy)
	}
}

func TestLoadTimerPolicy_InvalidYAML(t *testing.T) {
	path := writePolicy(t, "defaults: [unterminated")

	if _, err := LoadTimerPolicy(path); err == nil {
		t.Fatal("Expected parse error")
	}
}
