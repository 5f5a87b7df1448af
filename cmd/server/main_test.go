package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jengzang/railsim-backend-go/internal/config"
	"github.com/jengzang/railsim-backend-go/internal/database"
	"github.com/jengzang/railsim-backend-go/internal/logging"
)

func TestRunReleasesResourcesOnShutdown(t *testing.T) {
	cfg := &config.Config{
		Port:               "127.0.0.1:0",
		DBPath:             filepath.Join(t.TempDir(), "run.db"),
		RateLimitPerMinute: 600,
		AutoStepInterval:   10 * time.Millisecond,
		AutoStepMinutes:    1,
	}

	ctx, cancel := context.WithCancel(context.Background())
	timer := time.AfterFunc(200*time.Millisecond, cancel)
	defer timer.Stop()

	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, logging.Noop()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatalf("run did not return after cancellation")
	}

	if err := database.GetDB().Ping(); err == nil {
		t.Fatalf("database still open after run returned")
	}
}
