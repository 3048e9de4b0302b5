// Package scheduler drives periodic insight check runs: a fixed ticker plus an
// on-demand trigger. Runs are idempotent upstream (fingerprint upsert), so
// overlapping or superseded runs are tolerated rather than cancelled.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/cocoflow/insight-engine/internal/domain"
)

// CheckRunner is the subset of the insight engine the scheduler drives.
type CheckRunner interface {
	RunAllChecks(ctx context.Context) domain.CheckResult
}

type Scheduler struct {
	runner   CheckRunner
	interval time.Duration
	timeout  time.Duration
	trigger  chan struct{}
	log      zerolog.Logger
}

func New(runner CheckRunner, interval, timeout time.Duration, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
		timeout:  timeout,
		trigger:  make(chan struct{}, 1),
		log:      log.With().Str("component", "scheduler").Logger(),
	}
}

// TriggerNow requests an immediate check run. Coalesces when a trigger is
// already pending.
func (s *Scheduler) TriggerNow() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run loops until ctx is cancelled, running checks on every interval tick and
// on every trigger.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", s.interval).Msg("check scheduler started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("check scheduler stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx, "tick")
		case <-s.trigger:
			s.runOnce(ctx, "trigger")
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, reason string) {
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	result := s.runner.RunAllChecks(runCtx)

	s.log.Info().
		Str("reason", reason).
		Int("created", result.Created).
		Int("skipped", result.Skipped).
		Int("errors", result.Errors).
		Dur("took", time.Since(started)).
		Msg("check run finished")
}
