package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"streamguide/internal/logging"
	"streamguide/internal/services"
)

// Scheduler runs a mode on a cron expression. Overlapping triggers are
// skipped while a run is still in progress.
type Scheduler struct {
	runner   *Runner
	mode     Mode
	spec     string
	schedule cron.Schedule
	cron     *cron.Cron
	logger   *slog.Logger
	afterRun func(Report)
}

// NewScheduler validates spec (standard five-field syntax or a descriptor
// such as @daily) and builds a scheduler in UTC.
func NewScheduler(runner *Runner, mode Mode, spec string, logger *slog.Logger) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "schedule", "parse cron", fmt.Sprintf("invalid schedule.cron %q", spec), err)
	}
	logger = logging.NewComponentLogger(logger, "scheduler")
	cronLog := cronLogger{logger: logger}
	return &Scheduler{
		runner:   runner,
		mode:     mode,
		spec:     spec,
		schedule: schedule,
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		logger: logger,
	}, nil
}

// OnRunComplete registers fn to run after every scheduled run that
// acquired the lock, whatever its outcome.
func (s *Scheduler) OnRunComplete(fn func(Report)) {
	s.afterRun = fn
}

// Next returns the first activation after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// Run blocks until ctx ends, triggering the mode on schedule. The cron
// stops accepting triggers on return and any in-flight run is awaited.
func (s *Scheduler) Run(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.trigger(ctx) }); err != nil {
		return fmt.Errorf("add scheduled job: %w", err)
	}
	s.cron.Start()
	s.logger.Info("scheduler started",
		logging.String("cron", s.spec),
		logging.String("mode", string(s.mode)),
		logging.String("next", s.Next(time.Now()).Format(time.RFC3339)),
	)

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
	return nil
}

// trigger runs one scheduled execution. Errors are logged; the scheduler
// keeps going.
func (s *Scheduler) trigger(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	report, err := s.runner.Run(ctx, s.mode)
	switch {
	case err == nil:
		s.logger.Info("scheduled run complete",
			logging.String(logging.FieldRunID, report.RunID),
			logging.Duration("duration", report.Duration),
		)
	case errors.Is(err, ErrLocked):
		logging.WarnWithContext(s.logger, "scheduled run skipped", "schedule_locked",
			logging.String(logging.FieldErrorHint, "another streamguide command is running"),
			logging.String(logging.FieldImpact, "waiting for the next trigger"),
		)
	default:
		logging.ErrorWithContext(s.logger, "scheduled run failed", "schedule_run_failed",
			logging.String(logging.FieldRunID, report.RunID),
			logging.Int("failed_passes", report.Failed()),
			logging.Error(err),
		)
	}
	if s.afterRun != nil && !errors.Is(err, ErrLocked) {
		s.afterRun(report)
	}
	s.logger.Info("next scheduled run", logging.String("at", s.Next(time.Now()).Format(time.RFC3339)))
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, logging.Error(err))...)
}
