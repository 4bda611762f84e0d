package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Job is a unit of periodic work, such as a relationship rebuild.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler runs its jobs in order once per interval.
type Scheduler struct {
	jobs     []Job
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler creates a scheduler over jobs. A non-positive interval makes
// Run execute a single cycle.
func NewScheduler(jobs []Job, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		jobs:     jobs,
		interval: interval,
		logger:   logger,
	}
}

// Run executes one cycle immediately and then one per interval until ctx is
// cancelled. It returns nil on cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	names := make([]string, len(s.jobs))
	for i, j := range s.jobs {
		names[i] = j.Name()
	}
	s.logger.Info("scheduler started", "interval", s.interval.String(), "jobs", names)

	s.cycle(ctx)
	if s.interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

// cycle runs every job in order and returns how many failed. A failure does
// not stop the jobs after it.
func (s *Scheduler) cycle(ctx context.Context) int {
	failed := 0
	for _, j := range s.jobs {
		if ctx.Err() != nil {
			break
		}
		start := time.Now()
		if err := j.Run(ctx); err != nil {
			failed++
			s.logger.Error("scheduled job failed", "job", j.Name(), "took", time.Since(start), "error", err)
			continue
		}
		s.logger.Debug("scheduled job finished", "job", j.Name(), "took", time.Since(start))
	}
	if failed > 0 {
		s.logger.Warn("cycle finished with failures", "failed", failed, "jobs", len(s.jobs))
	}
	return failed
}
