package directurl

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"streamguide/internal/catalog"
	"streamguide/internal/logging"
	"streamguide/internal/metrics"
	"streamguide/internal/quota"
	"streamguide/internal/services"
)

// BudgetChecker evaluates provider budgets.
type BudgetChecker interface {
	Check(ctx context.Context, provider string, windows []quota.Window) (quota.Budget, error)
}

// Options tunes an enricher.
type Options struct {
	Tracked []string
	Delay   time.Duration
}

// Result summarizes one run.
type Result struct {
	Source    string
	Selected  int
	Processed int
	URLsAdded int
	Failed    int
	Errors    int
	Skipped   int
	Stopped   bool
	Reason    string
	Budget    string
}

// Enricher writes provider deep links onto featured titles.
type Enricher struct {
	store   *catalog.Store
	budgets BudgetChecker
	source  Source
	opts    Options
	tracked map[string]struct{}
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New builds an enricher for source.
func New(store *catalog.Store, budgets BudgetChecker, source Source, opts Options, logger *slog.Logger, m *metrics.Metrics) *Enricher {
	tracked := make(map[string]struct{}, len(opts.Tracked))
	for _, id := range opts.Tracked {
		tracked[strings.TrimSpace(id)] = struct{}{}
	}
	return &Enricher{
		store:   store,
		budgets: budgets,
		source:  source,
		opts:    opts,
		tracked: tracked,
		logger:  logging.NewComponentLogger(logger, source.Name()),
		metrics: m,
	}
}

func (e *Enricher) passName() string {
	return e.source.Name()
}

// Run enriches titles in priority order until the worklist or the budget runs
// out. A stopped run returns an error wrapping quota.ErrBudgetExhausted along
// with the partial result.
func (e *Enricher) Run(ctx context.Context) (Result, error) {
	ctx = services.WithStage(ctx, e.passName())
	logger := logging.WithContext(ctx, e.logger)
	result := Result{Source: e.source.Name()}

	budget, err := e.budget(ctx)
	if err != nil {
		e.metrics.PassRun(e.passName(), "error")
		return result, err
	}
	if budget.Exhausted() {
		return e.stop(ctx, result, budget)
	}

	targets, err := e.store.ShowsForURLEnrich(ctx, catalog.Source(e.source.Name()), budget.Remaining)
	if err != nil {
		e.metrics.PassRun(e.passName(), "error")
		return result, err
	}
	result.Selected = len(targets)
	logger.Info("direct link pass starting",
		logging.Int("titles", len(targets)),
		logging.String("budget", budget.String()),
	)

	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			e.metrics.PassRun(e.passName(), "canceled")
			return result, err
		}
		budget, err := e.budget(ctx)
		if err != nil {
			e.metrics.PassRun(e.passName(), "error")
			return result, err
		}
		if budget.Exhausted() {
			return e.stop(ctx, result, budget)
		}

		status, err := e.store.EnrichStatus(ctx, target.Show.ID)
		if err != nil {
			e.metrics.PassRun(e.passName(), "error")
			return result, err
		}
		if status == catalog.StatusComplete {
			result.Skipped++
			continue
		}

		stopped, err := e.enrichTarget(services.WithShowID(ctx, target.Show.ID), toTarget(target), &result)
		if err != nil {
			e.metrics.PassRun(e.passName(), services.Outcome(err))
			return result, err
		}
		if stopped != nil {
			return e.stop(ctx, result, *stopped)
		}
		if err := services.SleepWithContext(ctx, e.opts.Delay); err != nil {
			e.metrics.PassRun(e.passName(), "canceled")
			return result, err
		}
	}

	logger.Info("direct link pass complete",
		logging.Int("processed", result.Processed),
		logging.Int("urls_added", result.URLsAdded),
		logging.Int("failed", result.Failed),
		logging.Int("errors", result.Errors),
		logging.Int("skipped", result.Skipped),
	)
	e.recordItems(result)
	e.metrics.PassRun(e.passName(), "ok")
	return result, nil
}

func toTarget(t catalog.EnrichTarget) Target {
	return Target{
		ShowID:      t.Show.ID,
		TMDBID:      t.Show.TMDBID,
		IMDBID:      t.Show.IMDBID,
		Title:       t.Show.Title,
		Type:        t.Show.Type,
		WatchmodeID: t.WatchmodeID,
	}
}

// enrichTarget handles one title. A non-nil budget return means the search
// fallback could not be afforded and the run must stop.
func (e *Enricher) enrichTarget(ctx context.Context, target Target, result *Result) (*quota.Budget, error) {
	logger := logging.WithContext(ctx, e.logger)

	match, err := e.source.Lookup(ctx, target)
	if err != nil {
		return nil, e.callFailed(ctx, "lookup", target, err, result)
	}
	if match == nil {
		budget, err := e.budget(ctx)
		if err != nil {
			return nil, err
		}
		if budget.Remaining < searchCalls(e.source) {
			return &budget, nil
		}
		match, err = e.source.Search(ctx, target)
		if err != nil {
			return nil, e.callFailed(ctx, "search", target, err, result)
		}
	}

	result.Processed++
	if match == nil {
		result.Failed++
		if err := e.store.SetEnrichStatus(ctx, target.ShowID, catalog.Source(e.source.Name()), catalog.StatusFailed, nil); err != nil {
			return nil, err
		}
		logger.Info("title not found by provider",
			logging.String("title", target.Title),
			logging.Int64("tmdb_id", target.TMDBID),
		)
		return nil, nil
	}

	added := 0
	for _, offer := range match.Offers {
		if _, ok := e.tracked[offer.ServiceID]; !ok {
			continue
		}
		if err := e.store.UpsertAvailability(ctx, catalog.Availability{
			ShowID:     target.ShowID,
			ServiceID:  offer.ServiceID,
			AccessType: offer.Access,
			StreamURL:  offer.URL,
			Price:      offer.Price,
			Source:     catalog.Source(e.source.Name()),
		}); err != nil {
			return nil, err
		}
		if offer.URL != "" {
			added++
		}
	}
	result.URLsAdded += added

	rows, err := e.store.AvailabilityForShow(ctx, target.ShowID)
	if err != nil {
		return nil, err
	}
	status := catalog.DeriveStatus(rows)
	if err := e.store.SetEnrichStatus(ctx, target.ShowID, catalog.Source(e.source.Name()), status, match.ProviderTitleID); err != nil {
		return nil, err
	}
	logger.Debug("direct links stored",
		logging.String("title", target.Title),
		logging.Int("urls", added),
		logging.String("status", string(status)),
	)
	return nil, nil
}

// callFailed logs a provider failure. The title keeps its status so the next
// run retries it. Only cancellation and configuration errors escape.
func (e *Enricher) callFailed(ctx context.Context, step string, target Target, err error, result *Result) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if services.IsFatal(err) {
		return err
	}
	result.Errors++
	logging.WarnWithContext(logging.WithContext(ctx, e.logger), "provider call failed", "direct_link_call_failed",
		logging.String("step", step),
		logging.String("title", target.Title),
		logging.String(logging.FieldProvider, e.source.Name()),
		logging.String(logging.FieldErrorHint, "provider unavailable or rate limited"),
		logging.String(logging.FieldImpact, "title retried next run"),
		logging.Error(err),
	)
	return nil
}

func (e *Enricher) budget(ctx context.Context) (quota.Budget, error) {
	return e.budgets.Check(ctx, e.source.Name(), e.source.Windows())
}

func (e *Enricher) stop(ctx context.Context, result Result, budget quota.Budget) (Result, error) {
	result.Stopped = true
	result.Budget = budget.String()
	result.Reason = "budget exhausted (" + result.Budget + ")"
	logging.WithContext(ctx, e.logger).Info("direct link pass stopped",
		logging.String("reason", result.Reason),
		logging.Int("processed", result.Processed),
		logging.Int("urls_added", result.URLsAdded),
	)
	e.recordItems(result)
	e.metrics.PassRun(e.passName(), "budget_exhausted")
	return result, fmt.Errorf("%s: %s: %w", e.source.Name(), budget.String(), quota.ErrBudgetExhausted)
}

func (e *Enricher) recordItems(result Result) {
	e.metrics.PassItems(e.passName(), "processed", result.Processed)
	e.metrics.PassItems(e.passName(), "urls_added", result.URLsAdded)
	e.metrics.PassItems(e.passName(), "failed", result.Failed)
	e.metrics.PassItems(e.passName(), "errors", result.Errors)
	e.metrics.PassItems(e.passName(), "skipped", result.Skipped)
}
