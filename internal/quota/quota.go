package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"streamguide/internal/catalog"
	"streamguide/internal/logging"
	"streamguide/internal/metrics"
	"streamguide/internal/services"
)

// ErrBudgetExhausted stops a pass once any window for its provider is spent.
var ErrBudgetExhausted = errors.New("provider budget exhausted")

// Unlimited is the remaining count reported when no window applies.
const Unlimited = math.MaxInt32

// Window is a rolling budget period. Start maps an instant to the beginning
// of the period that contains it.
type Window struct {
	Name  string
	Limit int
	Start func(time.Time) time.Time
}

// Daily returns a window that resets at local midnight.
func Daily(limit int) Window {
	return Window{
		Name:  "daily",
		Limit: limit,
		Start: func(now time.Time) time.Time {
			y, m, d := now.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
		},
	}
}

// Monthly returns a window that resets on the first of the local month.
func Monthly(limit int) Window {
	return Window{
		Name:  "monthly",
		Limit: limit,
		Start: func(now time.Time) time.Time {
			y, m, _ := now.Date()
			return time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
		},
	}
}

// WindowUsage is the evaluated state of one window.
type WindowUsage struct {
	Name      string
	Limit     int
	Used      int
	Remaining int
	Since     time.Time
}

// Budget is the evaluated state of every window for a provider.
type Budget struct {
	Provider  string
	Windows   []WindowUsage
	Remaining int
}

// Exhausted reports whether any window has no calls left.
func (b Budget) Exhausted() bool {
	return b.Remaining <= 0
}

// Recorder receives one notification per provider HTTP attempt. status is 0
// when no response arrived.
type Recorder interface {
	RecordCall(ctx context.Context, provider, endpoint string, status int, err error)
}

// Tracker writes the quota log and evaluates provider budgets.
type Tracker struct {
	store   *catalog.Store
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewTracker builds a tracker over the catalog quota log.
func NewTracker(store *catalog.Store, m *metrics.Metrics, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Tracker{
		store:   store,
		metrics: m,
		logger:  logging.NewComponentLogger(logger, "quota"),
		now:     time.Now,
	}
}

// SetClock overrides the time source used for window evaluation.
func (t *Tracker) SetClock(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	t.now = now
}

// LogCall appends a call to the quota log.
func (t *Tracker) LogCall(ctx context.Context, provider, endpoint string, showID *int64, success bool) error {
	if err := t.store.LogCall(ctx, catalog.CallRecord{
		Source:   provider,
		Endpoint: endpoint,
		ShowID:   showID,
		Success:  success,
		CalledAt: t.now(),
	}); err != nil {
		return err
	}
	t.metrics.ProviderCall(provider, success)
	return nil
}

// RecordCall logs an HTTP attempt. The show id comes from the context when
// present. Log failures are reported but never interrupt the caller.
func (t *Tracker) RecordCall(ctx context.Context, provider, endpoint string, status int, err error) {
	var showID *int64
	if id, ok := services.ShowIDFromContext(ctx); ok {
		showID = &id
	}
	success := Succeeded(status, err)
	if logErr := t.LogCall(context.WithoutCancel(ctx), provider, endpoint, showID, success); logErr != nil {
		logging.WarnWithContext(logging.WithContext(ctx, t.logger), "quota log write failed", "quota_log_failed",
			logging.String(logging.FieldErrorHint, "check catalog database health"),
			logging.String(logging.FieldImpact, "budget counts may undercount this call"),
			logging.String(logging.FieldProvider, provider),
			logging.Error(logErr),
		)
	}
}

// Succeeded reports whether an attempt counts against the budget. A 404 is
// an answer from the provider; rate limits, server errors, and transport
// failures are not.
func Succeeded(status int, err error) bool {
	if status == http.StatusNotFound {
		return true
	}
	if status == 0 {
		return err == nil
	}
	return status >= 200 && status < 300
}

// CountCalls returns successful calls for provider since the given instant.
func (t *Tracker) CountCalls(ctx context.Context, provider string, since time.Time) (int, error) {
	return t.store.CountCalls(ctx, provider, since.UTC())
}

// Check evaluates every window for provider. With no windows the budget is
// Unlimited.
func (t *Tracker) Check(ctx context.Context, provider string, windows []Window) (Budget, error) {
	now := t.now()
	budget := Budget{Provider: provider, Remaining: Unlimited}
	for _, w := range windows {
		since := w.Start(now)
		used, err := t.CountCalls(ctx, provider, since)
		if err != nil {
			return Budget{}, fmt.Errorf("check %s %s budget: %w", provider, w.Name, err)
		}
		remaining := w.Limit - used
		if remaining < 0 {
			remaining = 0
		}
		budget.Windows = append(budget.Windows, WindowUsage{
			Name:      w.Name,
			Limit:     w.Limit,
			Used:      used,
			Remaining: remaining,
			Since:     since,
		})
		if remaining < budget.Remaining {
			budget.Remaining = remaining
		}
	}
	return budget, nil
}

// String renders a compact usage summary such as "daily 3/30, monthly 40/1000".
func (b Budget) String() string {
	if len(b.Windows) == 0 {
		return "unlimited"
	}
	parts := make([]string, 0, len(b.Windows))
	for _, w := range b.Windows {
		parts = append(parts, fmt.Sprintf("%s %d/%d", w.Name, w.Used, w.Limit))
	}
	return strings.Join(parts, ", ")
}
