package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Scheduler.MaxRetries != 3 {
		t.Errorf("expected default maxRetries 3, got %d", cfg.Scheduler.MaxRetries)
	}
	if cfg.Scheduler.Backoff.BaseMs != 500 || cfg.Scheduler.Backoff.Factor != 2 {
		t.Errorf("unexpected backoff defaults: %+v", cfg.Scheduler.Backoff)
	}
	if cfg.Scheduler.SessionDeadlineMs != 30*60*1000 {
		t.Errorf("expected 30 minute session deadline, got %d", cfg.Scheduler.SessionDeadlineMs)
	}
	if cfg.Scheduler.MaxResponseBytes != 8<<20 {
		t.Errorf("expected 8 MiB response cap, got %d", cfg.Scheduler.MaxResponseBytes)
	}
	if !cfg.Guardrails.Enabled || !cfg.Guardrails.RetryEnabled {
		t.Errorf("guardrails should default on: %+v", cfg.Guardrails)
	}
	if cfg.Router.Strategy != "auto" || !cfg.Router.FallbackToText {
		t.Errorf("unexpected router defaults: %+v", cfg.Router)
	}
	if cfg.Planner.MaxTasks != 10 {
		t.Errorf("expected planner maxTasks 10, got %d", cfg.Planner.MaxTasks)
	}
}

func TestLoadFromPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
anthropic:
  api_key: test-key
scheduler:
  maxConcurrency: 4
  perTaskTimeoutMs: 60000
  maxRetries: 5
  backoff:
    baseMs: 250
    factor: 3
guardrails:
  enabled: true
  retryEnabled: false
router:
  strategy: tool-based
  fallbackToText: false
  visionModel: claude-opus-4
planner:
  maxTasks: 6
  detailLevel: high
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Anthropic.APIKey != "test-key" {
		t.Errorf("expected api_key 'test-key', got %q", cfg.Anthropic.APIKey)
	}
	if cfg.Scheduler.MaxConcurrency != 4 {
		t.Errorf("expected maxConcurrency 4, got %d", cfg.Scheduler.MaxConcurrency)
	}
	if cfg.Scheduler.MaxRetries != 5 {
		t.Errorf("expected maxRetries 5, got %d", cfg.Scheduler.MaxRetries)
	}
	if cfg.Scheduler.Backoff.BaseMs != 250 || cfg.Scheduler.Backoff.Factor != 3 {
		t.Errorf("unexpected backoff: %+v", cfg.Scheduler.Backoff)
	}
	// Unset keys keep their defaults.
	if cfg.Scheduler.Backoff.CapMs != 30000 {
		t.Errorf("capMs should default to 30000, got %d", cfg.Scheduler.Backoff.CapMs)
	}
	if cfg.Guardrails.RetryEnabled {
		t.Errorf("retryEnabled should be off")
	}
	if cfg.Router.Strategy != "tool-based" || cfg.Router.VisionModel != "claude-opus-4" {
		t.Errorf("unexpected router: %+v", cfg.Router)
	}
	if cfg.Planner.MaxTasks != 6 || cfg.Planner.DetailLevel != "high" {
		t.Errorf("unexpected planner: %+v", cfg.Planner)
	}
}

func TestSchedulerSettingsConversion(t *testing.T) {
	cfg := Default()
	cfg.Scheduler.PerTaskTimeoutMs = 1500
	s := cfg.SchedulerSettings()

	if s.PerTaskTimeout != 1500*time.Millisecond {
		t.Errorf("per-task timeout = %v", s.PerTaskTimeout)
	}
	if s.BackoffBase != 500*time.Millisecond || s.BackoffCap != 30*time.Second {
		t.Errorf("backoff conversion wrong: %+v", s)
	}
	if s.SessionDeadline != 30*time.Minute {
		t.Errorf("session deadline = %v", s.SessionDeadline)
	}
	if s.MaxResponseBytes != 8<<20 {
		t.Errorf("response cap = %d", s.MaxResponseBytes)
	}
}

func TestGetAPIKeyPrecedence(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-env")
	cfg := Default()
	cfg.Anthropic.APIKey = "sk-ant-file"

	key, err := GetAPIKey(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if key != "sk-ant-env" {
		t.Errorf("environment should win, got %q", key)
	}

	t.Setenv("ANTHROPIC_API_KEY", "")
	key, err = GetAPIKey(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if key != "sk-ant-file" {
		t.Errorf("config should be the fallback, got %q", key)
	}
}

func TestMaskAPIKey(t *testing.T) {
	if got := MaskAPIKey(""); got != "(not set)" {
		t.Errorf("empty key mask = %q", got)
	}
	if got := MaskAPIKey("short"); got != "***" {
		t.Errorf("short key mask = %q", got)
	}
	long := "sk-ant-REDACTED"
	if got := MaskAPIKey(long); got != "sk-ant-...1234" {
		t.Errorf("long key mask = %q", got)
	}
}
