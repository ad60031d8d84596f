package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kursadbilgin/verse-dispatch/internal/domain"
	"go.uber.org/zap"
)

type fakeRunner struct {
	runs atomic.Int64
}

func (f *fakeRunner) Run(ctx context.Context) (domain.Report, error) {
	f.runs.Add(1)
	return domain.Report{RunID: "run-1"}, nil
}

func TestNewDispatchSchedulerValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewDispatchScheduler(nil, "0 6 * * *", zap.NewNop()); err == nil {
		t.Error("expected error for missing runner")
	}
	if _, err := NewDispatchScheduler(&fakeRunner{}, "", zap.NewNop()); err == nil {
		t.Error("expected error for empty cron spec")
	}
	if _, err := NewDispatchScheduler(&fakeRunner{}, "not a cron spec", zap.NewNop()); err == nil {
		t.Error("expected error for malformed cron spec")
	}
	if _, err := NewDispatchScheduler(&fakeRunner{}, "0 6 * * *", zap.NewNop()); err != nil {
		t.Errorf("valid spec rejected: %v", err)
	}
}

func TestDispatchSchedulerFiresAndStops(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	scheduler, err := NewDispatchScheduler(runner, "@every 10ms", zap.NewNop())
	if err != nil {
		t.Fatalf("NewDispatchScheduler() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = scheduler.Start(ctx)
	}()

	deadline := time.After(2 * time.Second)
	for runner.runs.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("scheduler never fired")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}
