package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"streamguide/internal/logging"
	"streamguide/internal/metrics"
	"streamguide/internal/notifications"
	"streamguide/internal/quota"
	"streamguide/internal/services"
)

// Pass names.
const (
	PassBulk      = "bulk_import"
	PassSeed      = "seed"
	PassMetadata  = "metadata"
	PassPresence  = "presence"
	PassWatchmode = "watchmode"
	PassMOTN      = "motn"
	PassVerify    = "verify"
	PassPublish   = "publish"
)

// Mode selects which passes a run executes.
type Mode string

const (
	ModeBulk    Mode = "bulk"
	ModeSeed    Mode = "seed"
	ModeDaily   Mode = "pipeline"
	ModeFull    Mode = "pipeline:full"
	ModeVerify  Mode = "verify"
	ModePublish Mode = "publish"
)

var dailyPasses = []string{PassMetadata, PassPresence, PassWatchmode, PassMOTN, PassVerify, PassPublish}

// Passes lists the passes mode runs, in order.
func (m Mode) Passes() []string {
	switch m {
	case ModeBulk:
		return []string{PassBulk}
	case ModeSeed:
		return []string{PassSeed}
	case ModeDaily:
		return append([]string(nil), dailyPasses...)
	case ModeFull:
		return append([]string{PassSeed}, dailyPasses...)
	case ModeVerify:
		return []string{PassVerify}
	case ModePublish:
		return []string{PassPublish}
	}
	return nil
}

// ParseMode accepts a mode name or one of its command aliases.
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "bulk":
		return ModeBulk, nil
	case "seed":
		return ModeSeed, nil
	case "pipeline", "daily":
		return ModeDaily, nil
	case "pipeline:full", "full":
		return ModeFull, nil
	case "pipeline:verify", "verify":
		return ModeVerify, nil
	case "generate", "publish":
		return ModePublish, nil
	}
	return "", services.Wrap(services.ErrValidation, "pipeline", "parse mode", fmt.Sprintf("unknown mode %q", value), nil)
}

// Output is what a pass reports back to the runner.
type Output struct {
	Detail     string
	Skipped    bool
	Budget     string
	Unresolved []string
	Published  int
}

// Pass is one named unit of work.
type Pass struct {
	Name string
	Run  func(ctx context.Context) (Output, error)
}

// Pass outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeSkipped   = "skipped"
	OutcomeExhausted = "budget_exhausted"
	OutcomeFailed    = "failed"
	OutcomeAborted   = "aborted"
)

// PassReport records one pass execution.
type PassReport struct {
	Name      string
	Outcome   string
	Detail    string
	Published int
	Duration  time.Duration
	Err       error
}

// Report summarizes a run.
type Report struct {
	RunID    string
	Mode     Mode
	Started  time.Time
	Duration time.Duration
	Passes   []PassReport
}

// Failed counts passes that failed or aborted.
func (r Report) Failed() int {
	n := 0
	for _, p := range r.Passes {
		if p.Outcome == OutcomeFailed || p.Outcome == OutcomeAborted {
			n++
		}
	}
	return n
}

// ErrPassFailed is returned when a run completed but at least one pass failed.
var ErrPassFailed = errors.New("pipeline pass failed")

// Runner executes modes under the writer lock.
type Runner struct {
	lockPath string
	passes   map[string]Pass
	notifier notifications.Service
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewRunner builds a runner over passes. lockPath empty disables locking.
func NewRunner(lockPath string, passes []Pass, notifier notifications.Service, logger *slog.Logger, m *metrics.Metrics) *Runner {
	byName := make(map[string]Pass, len(passes))
	for _, p := range passes {
		byName[p.Name] = p
	}
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	return &Runner{
		lockPath: lockPath,
		passes:   byName,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
		metrics:  m,
		now:      time.Now,
	}
}

// Run executes mode. It returns ErrLocked when another run is active,
// ErrPassFailed when any pass failed, and the pass error itself when a
// configuration error or cancellation aborted the run.
func (r *Runner) Run(ctx context.Context, mode Mode) (Report, error) {
	names := mode.Passes()
	if len(names) == 0 {
		return Report{Mode: mode}, services.Wrap(services.ErrValidation, "pipeline", "run", fmt.Sprintf("unknown mode %q", mode), nil)
	}

	if r.lockPath != "" {
		lock, err := AcquireLock(r.lockPath)
		if err != nil {
			return Report{Mode: mode}, err
		}
		defer func() {
			if err := lock.Release(); err != nil {
				r.logger.Warn("failed to release run lock", logging.Error(err))
			}
		}()
	}

	report := Report{RunID: uuid.NewString(), Mode: mode, Started: r.now()}
	ctx = services.WithRunID(ctx, report.RunID)
	logger := logging.WithContext(ctx, r.logger)
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("mode", string(mode)),
		logging.String("passes", strings.Join(names, ",")),
	)
	r.publish(ctx, notifications.EventRunStarted, notifications.Payload{"mode": string(mode)})

	var abortErr error
	for _, name := range names {
		pr, err := r.runPass(ctx, name)
		report.Passes = append(report.Passes, pr)
		if pr.Outcome == OutcomeAborted {
			abortErr = err
			break
		}
	}
	report.Duration = r.now().Sub(report.Started)

	published := 0
	for _, p := range report.Passes {
		published += p.Published
	}
	logger.Info("run complete",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.String("mode", string(mode)),
		logging.Int("passes", len(report.Passes)),
		logging.Int("failed", report.Failed()),
		logging.Duration("duration", report.Duration),
	)
	r.publish(context.WithoutCancel(ctx), notifications.EventRunCompleted, notifications.Payload{
		"mode":     string(mode),
		"passes":   len(report.Passes),
		"failed":   report.Failed(),
		"duration": report.Duration,
		"shows":    published,
	})

	if abortErr != nil {
		return report, abortErr
	}
	if failed := report.Failed(); failed > 0 {
		return report, fmt.Errorf("%d of %d passes failed: %w", failed, len(report.Passes), ErrPassFailed)
	}
	return report, nil
}

// runPass executes one pass and classifies its result.
func (r *Runner) runPass(ctx context.Context, name string) (PassReport, error) {
	pr := PassReport{Name: name}
	pass, ok := r.passes[name]
	if !ok || pass.Run == nil {
		pr.Outcome = OutcomeSkipped
		pr.Detail = "not configured"
		r.metrics.PassRun(name, OutcomeSkipped)
		return pr, nil
	}

	ctx = services.WithStage(ctx, name)
	logger := logging.WithContext(ctx, r.logger)
	logger.Info("pass started", logging.String(logging.FieldEventType, "pass_start"))
	start := r.now()
	out, err := pass.Run(ctx)
	pr.Duration = r.now().Sub(start)
	pr.Detail = out.Detail
	pr.Published = out.Published
	pr.Err = err

	if len(out.Unresolved) > 0 {
		r.publish(ctx, notifications.EventSeedUnresolved, notifications.Payload{"titles": out.Unresolved})
	}

	switch {
	case err == nil && out.Skipped:
		pr.Outcome = OutcomeSkipped
		logger.Info("pass skipped", logging.String("reason", out.Detail))
	case err == nil:
		pr.Outcome = OutcomeOK
		logger.Info("pass complete",
			logging.String(logging.FieldEventType, "pass_complete"),
			logging.String("detail", out.Detail),
			logging.Duration("duration", pr.Duration),
		)
	case errors.Is(err, quota.ErrBudgetExhausted):
		pr.Outcome = OutcomeExhausted
		logger.Info("pass stopped on budget",
			logging.String(logging.FieldEventType, "pass_budget_exhausted"),
			logging.String("budget", out.Budget),
			logging.String("detail", out.Detail),
		)
		r.publish(ctx, notifications.EventBudgetExhausted, notifications.Payload{
			"provider": name,
			"budget":   out.Budget,
		})
	case ctx.Err() != nil || services.IsFatal(err):
		pr.Outcome = OutcomeAborted
		logging.ErrorWithContext(logger, "pass aborted run", "pass_aborted",
			logging.String(logging.FieldErrorHint, abortHint(err)),
			logging.String(logging.FieldImpact, "remaining passes not run"),
			logging.Error(err),
		)
		if ctx.Err() == nil {
			r.publish(ctx, notifications.EventError, notifications.Payload{"context": name, "error": err})
		}
	default:
		pr.Outcome = OutcomeFailed
		logging.ErrorWithContext(logger, "pass failed", "pass_failed",
			logging.String(logging.FieldErrorHint, "inspect the error; the next run retries this pass"),
			logging.String(logging.FieldImpact, "later passes still run"),
			logging.Error(err),
		)
		r.publish(ctx, notifications.EventError, notifications.Payload{"context": name, "error": err})
	}
	r.publish(ctx, notifications.EventPassCompleted, notifications.Payload{"pass": name, "outcome": pr.Outcome})
	if pr.Outcome == OutcomeAborted {
		return pr, err
	}
	return pr, nil
}

func abortHint(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "run was canceled"
	case errors.Is(err, services.ErrConfiguration):
		return "fix the configuration and rerun"
	default:
		return "invalid input; fix and rerun"
	}
}

// publish sends a notification. Delivery failures are logged and ignored.
func (r *Runner) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if err := r.notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.Error(err),
		)
	}
}
