// Package scheduler runs named jobs on cron schedules until its context is cancelled.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

var ErrInvalidJob = errors.New("invalid job")

// Job is a unit of scheduled work. Spec uses the standard five-field cron
// syntax or descriptors such as "@every 1h".
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

type Option func(*Scheduler)

// WithJobTimeout bounds every single job execution.
func WithJobTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.jobTimeout = d
		}
	}
}

func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

// Scheduler wraps a cron runner. Panicking jobs are recovered and a job still
// running when its next activation arrives is skipped.
type Scheduler struct {
	logger     *slog.Logger
	jobs       []Job
	jobTimeout time.Duration
	location   *time.Location
}

func New(logger *slog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		logger:     logger,
		jobTimeout: 10 * time.Minute,
		location:   time.Local,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Add registers a job. It fails when the job has no name, no function or an
// unparsable schedule.
func (s *Scheduler) Add(job Job) error {
	const op = "scheduler.Scheduler.Add"

	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("%s: %w", op, ErrInvalidJob)
	}

	if _, err := cron.ParseStandard(job.Spec); err != nil {
		return fmt.Errorf("%s: job %q: %w: %w", op, job.Name, ErrInvalidJob, err)
	}

	s.jobs = append(s.jobs, job)

	return nil
}

// Run starts all registered jobs and blocks until ctx is done, then waits for
// running jobs to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	const op = "scheduler.Scheduler.Run"

	logger := &cronLogger{logger: s.logger}

	c := cron.New(
		cron.WithLocation(s.location),
		cron.WithLogger(logger),
		cron.WithChain(
			cron.Recover(logger),
			cron.SkipIfStillRunning(logger),
		),
	)

	for _, job := range s.jobs {
		if _, err := c.AddFunc(job.Spec, s.wrap(ctx, job)); err != nil {
			return fmt.Errorf("%s: job %q: %w", op, job.Name, err)
		}

		s.logger.Info("job scheduled",
			slog.String("job", job.Name),
			slog.String("spec", job.Spec),
		)
	}

	c.Start()
	<-ctx.Done()

	s.logger.Info("stopping scheduler")
	<-c.Stop().Done()

	return nil
}

func (s *Scheduler) wrap(ctx context.Context, job Job) func() {
	return func() {
		ctx, cancel := context.WithTimeout(ctx, s.jobTimeout)
		defer cancel()

		start := time.Now()
		logger := s.logger.With(slog.String("job", job.Name))
		logger.Info("job started")

		if err := job.Run(ctx); err != nil {
			logger.Error("job failed",
				slog.Duration("duration", time.Since(start)),
				slog.Any("err", err),
			)
			return
		}

		logger.Info("job completed", slog.Duration("duration", time.Since(start)))
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, slog.Any("err", err))...)
}
