// Package linkcheck checks stored stream URLs and records whether they are
// still live.
package linkcheck

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"streamguide/internal/catalog"
	"streamguide/internal/logging"
	"streamguide/internal/metrics"
	"streamguide/internal/services"
)

const (
	passName  = "verify"
	userAgent = "streamguide-linkcheck/1.0"
)

// Outcome classifies one check.
type Outcome string

const (
	OutcomeLive    Outcome = "live"
	OutcomeDead    Outcome = "dead"
	OutcomeTimeout Outcome = "timeout"
)

// Options tunes the verifier.
type Options struct {
	BatchSize int
	Timeout   time.Duration
	Delay     time.Duration
	FreeFresh time.Duration
	PaidFresh time.Duration
}

// Result counts check outcomes.
type Result struct {
	Checked int
	Live    int
	Dead    int
	Timeout int
}

// Verifier runs HEAD checks over links due for verification.
type Verifier struct {
	store   *catalog.Store
	client  *http.Client
	opts    Options
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// New builds a verifier. A nil client uses a default client; checks carry
// their own per-request deadline.
func New(store *catalog.Store, client *http.Client, opts Options, logger *slog.Logger, m *metrics.Metrics) *Verifier {
	if client == nil {
		client = &http.Client{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Verifier{
		store:   store,
		client:  client,
		opts:    opts,
		logger:  logging.NewComponentLogger(logger, passName),
		metrics: m,
		now:     time.Now,
	}
}

// SetClock overrides the clock used for freshness cutoffs and timestamps.
func (v *Verifier) SetClock(now func() time.Time) {
	if now != nil {
		v.now = now
	}
}

// Run checks one batch of due links.
func (v *Verifier) Run(ctx context.Context) (Result, error) {
	ctx = services.WithStage(ctx, passName)
	logger := logging.WithContext(ctx, v.logger)
	var result Result

	now := v.now()
	links, err := v.store.LinksToVerify(ctx, now.Add(-v.opts.FreeFresh), now.Add(-v.opts.PaidFresh), v.opts.BatchSize)
	if err != nil {
		v.metrics.PassRun(passName, "error")
		return result, err
	}
	logger.Info("link verification starting", logging.Int("links", len(links)))

	for i, link := range links {
		if i > 0 {
			if err := services.SleepWithContext(ctx, v.opts.Delay); err != nil {
				v.metrics.PassRun(passName, "canceled")
				return result, err
			}
		}
		status, outcome, err := v.Check(ctx, link.StreamURL)
		if err != nil {
			v.metrics.PassRun(passName, "canceled")
			return result, err
		}
		if err := v.store.RecordVerification(ctx, link.AvailabilityID, status, v.now()); err != nil {
			v.metrics.PassRun(passName, "error")
			return result, err
		}
		result.Checked++
		switch outcome {
		case OutcomeLive:
			result.Live++
		case OutcomeTimeout:
			result.Timeout++
		default:
			result.Dead++
		}
		v.metrics.LinkCheck(string(outcome))
		if outcome != OutcomeLive {
			logger.Debug("link not live",
				logging.Int64(logging.FieldShowID, link.ShowID),
				logging.String("service", link.ServiceID),
				logging.String("url", link.StreamURL),
				logging.Int("status", status),
				logging.String("outcome", string(outcome)),
			)
		}
	}

	logger.Info("link verification complete",
		logging.Int("checked", result.Checked),
		logging.Int("live", result.Live),
		logging.Int("dead", result.Dead),
		logging.Int("timeout", result.Timeout),
	)
	v.metrics.PassRun(passName, "ok")
	return result, nil
}

// Check issues a HEAD request and classifies the answer. 2xx and 3xx are
// live; a check that hits its deadline reports status 0 and OutcomeTimeout;
// other transport failures report status 0 and OutcomeDead. The error is
// non-nil only when ctx itself is done.
func (v *Verifier) Check(ctx context.Context, rawURL string) (int, Outcome, error) {
	checkCtx, cancel := context.WithTimeout(ctx, v.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodHead, rawURL, nil)
	if err != nil {
		return 0, OutcomeDead, nil
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := v.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, "", ctxErr
		}
		if isTimeout(err) {
			return 0, OutcomeTimeout, nil
		}
		return 0, OutcomeDead, nil
	}
	resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		return resp.StatusCode, OutcomeLive, nil
	}
	return resp.StatusCode, OutcomeDead, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
