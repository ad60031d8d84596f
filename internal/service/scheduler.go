package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/verse-dispatch/internal/domain"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const defaultRunTimeout = 30 * time.Minute

// DispatchRunner is the part of DispatchService the scheduler needs.
type DispatchRunner interface {
	Run(ctx context.Context) (domain.Report, error)
}

// DispatchScheduler fires a full dispatch run on a cron schedule.
// Overlapping runs are prevented by cron's job wrapper: a tick that
// arrives while a run is still in flight is skipped.
type DispatchScheduler struct {
	runner     DispatchRunner
	cronSpec   string
	runTimeout time.Duration
	logger     *zap.Logger
	cron       *cron.Cron
}

func NewDispatchScheduler(runner DispatchRunner, cronSpec string, logger *zap.Logger) (*DispatchScheduler, error) {
	if runner == nil {
		return nil, fmt.Errorf("dispatch runner is required")
	}
	cronSpec = strings.TrimSpace(cronSpec)
	if cronSpec == "" {
		return nil, fmt.Errorf("cron spec is required")
	}
	if _, err := cron.ParseStandard(cronSpec); err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", cronSpec, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DispatchScheduler{
		runner:     runner,
		cronSpec:   cronSpec,
		runTimeout: defaultRunTimeout,
		logger:     logger,
	}, nil
}

// Start blocks until the context is cancelled, then waits for an
// in-flight run to settle before returning.
func (s *DispatchScheduler) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(s.cronSpec, func() { s.runOnce(ctx) }); err != nil {
		return fmt.Errorf("failed to register dispatch job: %w", err)
	}
	s.cron = c

	s.logger.Info("dispatch scheduler started",
		zap.String("cron", s.cronSpec),
	)
	c.Start()

	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	return nil
}

func (s *DispatchScheduler) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	report, err := s.runner.Run(runCtx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("scheduled dispatch run failed",
			zap.String("run_id", report.RunID),
			zap.Error(err),
		)
		return
	}

	s.logger.Info("scheduled dispatch run finished",
		zap.String("run_id", report.RunID),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
	)
}
