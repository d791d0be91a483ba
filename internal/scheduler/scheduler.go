package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/robfig/cron/v3"
)

// Job is one poll cycle.
type Job func(ctx context.Context) error

// Scheduler runs a job on a cron schedule, plus once at start.
type Scheduler struct {
	scheduler *gocron.Scheduler
	spec      string
	timeout   time.Duration
	job       Job
	logger    *slog.Logger
}

// ValidateSpec checks a standard five-field cron expression.
func ValidateSpec(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return nil
}

// New creates a new Scheduler. timeout bounds each run.
func New(spec string, timeout time.Duration, job Job, logger *slog.Logger) (*Scheduler, error) {
	if err := ValidateSpec(spec); err != nil {
		return nil, err
	}

	s := gocron.NewScheduler(time.Local)
	// A slow cycle must not stack with the next tick.
	s.SingletonModeAll()

	return &Scheduler{
		scheduler: s,
		spec:      spec,
		timeout:   timeout,
		job:       job,
		logger:    logger,
	}, nil
}

// Start schedules the job, starts the underlying scheduler and triggers an
// immediate run.
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Cron(s.spec).Do(s.run); err != nil {
		return err
	}

	s.scheduler.StartAsync()
	go s.run()

	s.logger.Info("scheduler started", "schedule", s.spec)
	return nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	s.logger.Debug("scheduler: running poll cycle")
	if err := s.job(ctx); err != nil {
		s.logger.Warn("scheduler: poll cycle failed", "error", err)
	}
}

// NextRun reports when the cron job fires next.
func (s *Scheduler) NextRun() time.Time {
	_, next := s.scheduler.NextRun()
	return next
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
