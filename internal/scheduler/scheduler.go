// Package scheduler triggers alert runs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/v-momentum/momentum/internal/web"
)

// Config holds scheduler configuration.
type Config struct {
	// Schedule is a standard 5-field cron expression.
	Schedule string
	// RunTimeout bounds one scheduled run.
	RunTimeout time.Duration
}

// SetDefaults applies default values for missing configuration.
func (c *Config) SetDefaults() {
	if c.Schedule == "" {
		c.Schedule = "0 * * * *" // hourly
	}
	if c.RunTimeout == 0 {
		c.RunTimeout = 5 * time.Minute
	}
}

// Scheduler runs the alert coordinator on a cron schedule.
type Scheduler struct {
	config *Config
	runner web.AlertRunner
	cron   *cron.Cron
	logger *zap.Logger
}

// cronLogger adapts zap.Logger to cron.Logger.
type cronLogger struct {
	logger *zap.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, zap.Error(err))
}

// New creates a scheduler around the given runner.
func New(cfg *Config, runner web.AlertRunner, logger *zap.Logger) (*Scheduler, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	cfg.SetDefaults()

	cl := &cronLogger{logger: logger.Named("cron")}
	s := &Scheduler{
		config: cfg,
		runner: runner,
		cron:   cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		logger: logger,
	}

	if _, err := s.cron.AddFunc(cfg.Schedule, s.tick); err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", cfg.Schedule, err)
	}

	return s, nil
}

// Run starts the cron loop and blocks until the context is canceled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started", zap.String("schedule", s.config.Schedule))
	s.cron.Start()

	<-ctx.Done()

	s.logger.Info("scheduler stopping")
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(s.config.RunTimeout):
		s.logger.Warn("scheduler stop timed out with a run in flight")
	}
	return nil
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.RunTimeout)
	defer cancel()

	s.logger.Info("scheduled alert run starting")
	summary, err := s.runner.Run(ctx)
	if err != nil {
		s.logger.Error("scheduled alert run failed", zap.Error(err))
		return
	}
	s.logger.Info("scheduled alert run finished",
		zap.Int("alerts_triggered", summary.AlertsTriggered),
		zap.Int("emails_sent", summary.EmailsSent),
		zap.Int("errors", len(summary.Errors)))
}
