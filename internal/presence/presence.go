// Package presence records which tracked services carry each featured title,
// using TMDB watch-provider data. Rows written here never carry a URL.
package presence

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"streamguide/internal/catalog"
	"streamguide/internal/logging"
	"streamguide/internal/metrics"
	"streamguide/internal/providers/tmdb"
	"streamguide/internal/servicemap"
	"streamguide/internal/services"
)

const passName = "presence"

// ProviderSource fetches TMDB watch providers.
type ProviderSource interface {
	WatchProviders(ctx context.Context, kind string, id int64) (*tmdb.WatchProviders, error)
}

// Options tunes the enricher.
type Options struct {
	Region  string
	Tracked []string
	Batch   int
	Delay   time.Duration
}

// Result counts pass outcomes.
type Result struct {
	Processed  int
	Rows       int
	NotTracked int
	Failed     int
}

// Enricher upserts URL-less availability rows from TMDB.
type Enricher struct {
	store   *catalog.Store
	source  ProviderSource
	opts    Options
	tracked map[string]struct{}
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New builds an enricher.
func New(store *catalog.Store, source ProviderSource, opts Options, logger *slog.Logger, m *metrics.Metrics) *Enricher {
	tracked := make(map[string]struct{}, len(opts.Tracked))
	for _, id := range opts.Tracked {
		tracked[strings.TrimSpace(id)] = struct{}{}
	}
	opts.Region = strings.ToUpper(strings.TrimSpace(opts.Region))
	return &Enricher{
		store:   store,
		source:  source,
		opts:    opts,
		tracked: tracked,
		logger:  logging.NewComponentLogger(logger, passName),
		metrics: m,
	}
}

// Run processes up to Batch featured titles lacking TMDB presence rows.
func (e *Enricher) Run(ctx context.Context) (Result, error) {
	ctx = services.WithStage(ctx, passName)
	logger := logging.WithContext(ctx, e.logger)
	var result Result

	shows, err := e.store.ShowsMissingPresence(ctx, catalog.SourceTMDBProviders, e.opts.Batch)
	if err != nil {
		e.metrics.PassRun(passName, "error")
		return result, err
	}
	logger.Info("presence pass starting", logging.Int("titles", len(shows)), logging.String("region", e.opts.Region))

	for _, show := range shows {
		if err := ctx.Err(); err != nil {
			e.metrics.PassRun(passName, "canceled")
			return result, err
		}
		showCtx := services.WithShowID(ctx, show.ID)
		rows, err := e.enrichShow(showCtx, show)
		result.Processed++
		switch {
		case err == nil:
			result.Rows += rows
		case errors.Is(err, tmdb.ErrNotFound):
			result.NotTracked++
		case ctx.Err() != nil:
			e.metrics.PassRun(passName, "canceled")
			return result, ctx.Err()
		case services.IsFatal(err):
			e.metrics.PassRun(passName, services.Outcome(err))
			return result, err
		default:
			result.Failed++
			logging.WarnWithContext(logging.WithContext(showCtx, e.logger), "watch providers fetch failed", "presence_fetch_failed",
				logging.String("title", show.Title),
				logging.Int64("tmdb_id", show.TMDBID),
				logging.String(logging.FieldErrorHint, "check tmdb availability"),
				logging.String(logging.FieldImpact, "title retried next run"),
				logging.Error(err),
			)
		}
		if err := services.SleepWithContext(ctx, e.opts.Delay); err != nil {
			e.metrics.PassRun(passName, "canceled")
			return result, err
		}
	}

	logger.Info("presence pass complete",
		logging.Int("processed", result.Processed),
		logging.Int("rows", result.Rows),
		logging.Int("not_tracked", result.NotTracked),
		logging.Int("failed", result.Failed),
	)
	e.metrics.PassItems(passName, "rows", result.Rows)
	e.metrics.PassItems(passName, "failed", result.Failed)
	e.metrics.PassRun(passName, "ok")
	return result, nil
}

func (e *Enricher) enrichShow(ctx context.Context, show catalog.ShowRef) (int, error) {
	resp, err := e.source.WatchProviders(ctx, show.Type.TMDBKind(), show.TMDBID)
	if err != nil {
		return 0, err
	}
	region, ok := resp.Results[e.opts.Region]
	if !ok {
		return 0, nil
	}

	categories := region.Categories()
	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	sort.Strings(names)

	written := 0
	for _, name := range names {
		access, ok := servicemap.TMDBCategory(name)
		if !ok {
			continue
		}
		for _, entry := range categories[name] {
			serviceID, ok := servicemap.LookupTMDB(entry.ProviderID)
			if !ok {
				continue
			}
			if _, tracked := e.tracked[serviceID]; !tracked {
				continue
			}
			if err := e.store.UpsertAvailability(ctx, catalog.Availability{
				ShowID:     show.ID,
				ServiceID:  serviceID,
				AccessType: access,
				Source:     catalog.SourceTMDBProviders,
			}); err != nil {
				return written, err
			}
			written++
		}
	}
	return written, nil
}
