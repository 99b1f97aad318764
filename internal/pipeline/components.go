package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"streamguide/internal/bulkimport"
	"streamguide/internal/catalog"
	"streamguide/internal/config"
	"streamguide/internal/directurl"
	"streamguide/internal/linkcheck"
	"streamguide/internal/logging"
	"streamguide/internal/metadata"
	"streamguide/internal/metrics"
	"streamguide/internal/presence"
	"streamguide/internal/providers/motn"
	"streamguide/internal/providers/tmdb"
	"streamguide/internal/providers/watchmode"
	"streamguide/internal/publish"
	"streamguide/internal/quota"
	"streamguide/internal/seed"
)

// Components holds every pass built from one configuration. Passes that
// call the TMDB API are nil when the TMDB client could not be built; Watchmode
// and MOTN are nil when their keys are unset. Bulk import only downloads the
// public exports and is always built.
type Components struct {
	cfg     *config.Config
	logger  *slog.Logger
	tmdbErr error

	Store     *catalog.Store
	Tracker   *quota.Tracker
	Bulk      *bulkimport.Importer
	Seeder    *seed.Seeder
	Metadata  *metadata.Enricher
	Presence  *presence.Enricher
	Watchmode *directurl.Enricher
	MOTN      *directurl.Enricher
	Verifier  *linkcheck.Verifier
	Publisher *publish.Publisher
}

// NewComponents wires clients and passes from cfg. Provider construction
// failures are deferred to the passes that need them so verify and publish
// work without API keys.
func NewComponents(cfg *config.Config, store *catalog.Store, logger *slog.Logger, m *metrics.Metrics) *Components {
	c := &Components{
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, "pipeline"),
		Store:   store,
		Tracker: quota.NewTracker(store, m, logger),
	}
	tracked := cfg.Catalog.Services

	c.Bulk = bulkimport.NewImporter(store, tmdb.NewExporter(cfg.TMDB.ExportBaseURL, nil), cfg.TMDB.ImportBatchSize, logger, m)

	tmdbClient, err := tmdb.New(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.Language, tmdb.WithRecorder(c.Tracker))
	if err != nil {
		c.tmdbErr = err
	} else {
		c.Seeder = seed.New(store, tmdbClient, seed.Options{
			MoviesPath:  cfg.Seed.Movies,
			TVShowsPath: cfg.Seed.TVShows,
			Priority:    cfg.Seed.Priority,
			Delay:       cfg.TMDB.SeedDelay(),
		}, logger, m)
		c.Metadata = metadata.New(store, tmdbClient, metadata.Options{
			ImageBaseURL: cfg.TMDB.ImageBaseURL,
			Delay:        cfg.TMDB.RequestDelay(),
			Cooldown:     cfg.TMDB.Cooldown(),
			StaleAfter:   time.Duration(cfg.TMDB.StaleDays) * 24 * time.Hour,
			StaleBatch:   cfg.TMDB.StaleBatch,
		}, logger, m)
		c.Presence = presence.New(store, tmdbClient, presence.Options{
			Region:  cfg.Catalog.Country,
			Tracked: tracked,
			Batch:   cfg.TMDB.ProvidersBatch,
			Delay:   cfg.TMDB.RequestDelay(),
		}, logger, m)
	}

	if strings.TrimSpace(cfg.Watchmode.APIKey) != "" {
		client, err := watchmode.New(cfg.Watchmode.APIKey, cfg.Watchmode.BaseURL, cfg.Catalog.Country, watchmode.WithRecorder(c.Tracker))
		if err != nil {
			c.logger.Warn("watchmode client unavailable", logging.Error(err))
		} else {
			source := directurl.NewWatchmodeSource(client, cfg.Watchmode.DailyBudget, cfg.Watchmode.MonthlyBudget)
			c.Watchmode = directurl.New(store, c.Tracker, source, directurl.Options{Tracked: tracked, Delay: cfg.Watchmode.Delay()}, logger, m)
		}
	}
	if strings.TrimSpace(cfg.MOTN.APIKey) != "" {
		client, err := motn.New(cfg.MOTN.APIKey, cfg.MOTN.BaseURL, cfg.Catalog.Country, motn.WithRecorder(c.Tracker))
		if err != nil {
			c.logger.Warn("motn client unavailable", logging.Error(err))
		} else {
			source := directurl.NewMOTNSource(client, cfg.MOTN.DailyBudget)
			c.MOTN = directurl.New(store, c.Tracker, source, directurl.Options{Tracked: tracked, Delay: cfg.MOTN.Delay()}, logger, m)
		}
	}

	c.Verifier = linkcheck.New(store, &http.Client{}, linkcheck.Options{
		BatchSize: cfg.Verify.BatchSize,
		Timeout:   cfg.Verify.Timeout(),
		Delay:     cfg.Verify.Delay(),
		FreeFresh: time.Duration(cfg.Verify.FreeFreshDays) * 24 * time.Hour,
		PaidFresh: time.Duration(cfg.Verify.PaidFreshDays) * 24 * time.Hour,
	}, logger, m)
	c.Publisher = publish.NewPublisher(store, cfg.Paths.PublishDir, logger, m)
	return c
}

// Passes adapts every component to a Pass.
func (c *Components) Passes() []Pass {
	return []Pass{
		{Name: PassBulk, Run: c.runBulk},
		{Name: PassSeed, Run: c.runSeed},
		{Name: PassMetadata, Run: c.runMetadata},
		{Name: PassPresence, Run: c.runPresence},
		{Name: PassWatchmode, Run: c.directURL(c.Watchmode, "watchmode.api_key")},
		{Name: PassMOTN, Run: c.directURL(c.MOTN, "motn.api_key")},
		{Name: PassVerify, Run: c.runVerify},
		{Name: PassPublish, Run: c.runPublish},
	}
}

// tmdbUnavailable reports whether a TMDB API pass cannot run. A missing key
// skips the pass with a warning; any other construction error fails it.
func (c *Components) tmdbUnavailable(ctx context.Context) (Output, bool, error) {
	if c.tmdbErr == nil {
		return Output{}, false, nil
	}
	if err := c.cfg.RequireTMDB(); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "tmdb pass skipped", "provider_key_missing",
			logging.String("setting", "tmdb.api_key"),
			logging.String(logging.FieldErrorHint, "set TMDB_API_KEY or tmdb.api_key to enable this pass"),
			logging.String(logging.FieldImpact, "no TMDB data for this run"),
		)
		return Output{Skipped: true, Detail: "tmdb.api_key not set"}, true, nil
	}
	return Output{}, true, c.tmdbErr
}

func (c *Components) runBulk(ctx context.Context) (Output, error) {
	result, err := c.Bulk.Run(ctx)
	if err != nil {
		return Output{}, err
	}
	parts := make([]string, 0, len(result.Kinds))
	var failures []error
	for _, k := range result.Kinds {
		parts = append(parts, fmt.Sprintf("%s read=%d inserted=%d skipped=%d", k.Kind, k.Read, k.Inserted, k.Skipped))
		if k.Err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", k.File, k.Err))
		}
	}
	out := Output{Detail: strings.Join(parts, "; ")}
	if len(result.Kinds) > 0 && len(failures) == len(result.Kinds) {
		return out, errors.Join(failures...)
	}
	return out, nil
}

func (c *Components) runSeed(ctx context.Context) (Output, error) {
	if out, unavailable, err := c.tmdbUnavailable(ctx); unavailable {
		return out, err
	}
	result, err := c.Seeder.Run(ctx)
	return Output{
		Detail: fmt.Sprintf("rows=%d resolved=%d inserted=%d existing=%d skipped=%d",
			result.Rows, result.Resolved, result.Inserted, result.Existing, result.Skipped),
		Unresolved: result.Unresolved,
	}, err
}

func (c *Components) runMetadata(ctx context.Context) (Output, error) {
	if out, unavailable, err := c.tmdbUnavailable(ctx); unavailable {
		return out, err
	}
	result, err := c.Metadata.Run(ctx)
	return Output{Detail: fmt.Sprintf("fill updated=%d/%d refresh updated=%d/%d not_found=%d rate_limited=%d failed=%d",
		result.Fill.Updated, result.Fill.Candidates,
		result.Refresh.Updated, result.Refresh.Candidates,
		result.Fill.NotFound+result.Refresh.NotFound,
		result.Fill.RateLimited+result.Refresh.RateLimited,
		result.Fill.Failed+result.Refresh.Failed,
	)}, err
}

func (c *Components) runPresence(ctx context.Context) (Output, error) {
	if out, unavailable, err := c.tmdbUnavailable(ctx); unavailable {
		return out, err
	}
	result, err := c.Presence.Run(ctx)
	return Output{Detail: fmt.Sprintf("processed=%d rows=%d not_tracked=%d failed=%d",
		result.Processed, result.Rows, result.NotTracked, result.Failed)}, err
}

func (c *Components) directURL(enricher *directurl.Enricher, keyName string) func(context.Context) (Output, error) {
	return func(ctx context.Context) (Output, error) {
		if enricher == nil {
			logging.WarnWithContext(logging.WithContext(ctx, c.logger), "direct link pass skipped", "provider_key_missing",
				logging.String("setting", keyName),
				logging.String(logging.FieldErrorHint, "set "+keyName+" to enable this provider"),
				logging.String(logging.FieldImpact, "no direct links from this provider"),
			)
			return Output{Skipped: true, Detail: keyName + " not set"}, nil
		}
		result, err := enricher.Run(ctx)
		out := Output{Detail: fmt.Sprintf("selected=%d processed=%d urls_added=%d failed=%d errors=%d skipped=%d",
			result.Selected, result.Processed, result.URLsAdded, result.Failed, result.Errors, result.Skipped)}
		if result.Stopped {
			out.Budget = result.Budget
		}
		return out, err
	}
}

func (c *Components) runVerify(ctx context.Context) (Output, error) {
	result, err := c.Verifier.Run(ctx)
	return Output{Detail: fmt.Sprintf("checked=%d live=%d dead=%d timeout=%d",
		result.Checked, result.Live, result.Dead, result.Timeout)}, err
}

func (c *Components) runPublish(ctx context.Context) (Output, error) {
	result, err := c.Publisher.Generate(ctx)
	return Output{
		Detail:    fmt.Sprintf("shows=%d services=%d dir=%s", result.Shows, result.Services, c.cfg.Paths.PublishDir),
		Published: result.Shows,
	}, err
}
