/**
 * @description
 * Cron scheduler for the daily fine sweep. The sweep moves every pending
 * fine past its due date to overdue in one statement, so overlapping or
 * repeated runs are harmless.
 */
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler manages the service's cron jobs.
type Scheduler struct {
	cron          *cron.Cron
	fines         *FineService
	logger        *slog.Logger
	sweepSchedule string
}

// NewScheduler creates a scheduler. sweepSchedule is a standard cron
// expression; an empty string disables the job.
func NewScheduler(fines *FineService, logger *slog.Logger, sweepSchedule string) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:          c,
		fines:         fines,
		logger:        logger,
		sweepSchedule: sweepSchedule,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() {
	if s.sweepSchedule == "" {
		s.logger.Info("fine sweep disabled, no schedule configured")
		s.cron.Start()
		return
	}

	if _, err := s.cron.AddFunc(s.sweepSchedule, s.runFineSweep); err != nil {
		s.logger.Error("failed to schedule fine sweep job", "error", err)
	} else {
		s.logger.Info("scheduled fine sweep job", "schedule", s.sweepSchedule)
	}

	s.cron.Start()
}

func (s *Scheduler) runFineSweep() {
	s.logger.Info("starting fine sweep job")
	ctx := context.Background()

	changed, err := s.fines.RefreshStatuses(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error("fine sweep failed", "error", err)
		return
	}

	s.logger.Info("fine sweep job finished", "fines_marked_overdue", changed)
}

// Stop gracefully stops the cron loop.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
