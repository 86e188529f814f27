package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/v-momentum/momentum/internal/web"
)

type countingRunner struct {
	mu    sync.Mutex
	calls int
}

func (r *countingRunner) Run(_ context.Context) (*web.RunSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return &web.RunSummary{}, nil
}

func (r *countingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestNewRejectsInvalidSchedule(t *testing.T) {
	_, err := New(&Config{Schedule: "not a cron line"}, &countingRunner{}, zap.NewNop())
	if err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestNewRejectsNilRunner(t *testing.T) {
	if _, err := New(&Config{}, nil, zap.NewNop()); err == nil {
		t.Fatal("expected error for nil runner")
	}
}

func TestDefaultsApplied(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()
	if cfg.Schedule != "0 * * * *" {
		t.Errorf("schedule = %q, want hourly default", cfg.Schedule)
	}
	if cfg.RunTimeout != 5*time.Minute {
		t.Errorf("runTimeout = %v", cfg.RunTimeout)
	}
}

func TestTickInvokesRunner(t *testing.T) {
	runner := &countingRunner{}
	s, err := New(&Config{Schedule: "0 * * * *"}, runner, zap.NewNop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	s.tick()
	s.tick()

	if runner.count() != 2 {
		t.Errorf("runner called %d times, want 2", runner.count())
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	runner := &countingRunner{}
	s, err := New(&Config{Schedule: "0 * * * *", RunTimeout: time.Second}, runner, zap.NewNop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}
