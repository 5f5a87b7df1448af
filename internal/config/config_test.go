package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_PATH", "AUTH_ENABLED", "AUTO_STEP_INTERVAL", "AUTO_STEP_MINUTES", "TRACING_ENABLED"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Port != ":8080" {
		t.Fatalf("Port = %q, want :8080", cfg.Port)
	}
	if !cfg.AuthEnabled {
		t.Fatalf("AuthEnabled = false, want true by default")
	}
	if cfg.AutoStepInterval != 0 {
		t.Fatalf("AutoStepInterval = %v, want disabled", cfg.AutoStepInterval)
	}
	if cfg.AutoStepMinutes != 1 {
		t.Fatalf("AutoStepMinutes = %d, want 1", cfg.AutoStepMinutes)
	}
	if cfg.Tracing.Enabled || cfg.Tracing.Exporter != "stdout" {
		t.Fatalf("Tracing = %+v, want disabled stdout", cfg.Tracing)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", ":9000")
	t.Setenv("AUTH_ENABLED", "false")
	t.Setenv("AUTO_STEP_INTERVAL", "15")
	t.Setenv("AUTO_STEP_MINUTES", "5")
	t.Setenv("TRACING_SAMPLE_RATIO", "0.25")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "not-a-number")

	cfg := Load()
	if cfg.Port != ":9000" {
		t.Fatalf("Port = %q", cfg.Port)
	}
	if cfg.AuthEnabled {
		t.Fatalf("AuthEnabled = true, want false")
	}
	if cfg.AutoStepInterval != 15*time.Second {
		t.Fatalf("AutoStepInterval = %v, want 15s", cfg.AutoStepInterval)
	}
	if cfg.AutoStepMinutes != 5 {
		t.Fatalf("AutoStepMinutes = %d, want 5", cfg.AutoStepMinutes)
	}
	if cfg.Tracing.SampleRatio != 0.25 {
		t.Fatalf("SampleRatio = %v, want 0.25", cfg.Tracing.SampleRatio)
	}
	if cfg.RateLimitPerMinute != 600 {
		t.Fatalf("RateLimitPerMinute = %d, want default 600 on bad input", cfg.RateLimitPerMinute)
	}
}
