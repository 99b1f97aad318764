package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"streamguide/internal/catalog"
	"streamguide/internal/logging"
	"streamguide/internal/metrics"
	"streamguide/internal/providers/tmdb"
	"streamguide/internal/services"
)

const passName = "metadata"

// Fetcher is the TMDB surface used by the enricher.
type Fetcher interface {
	MovieDetails(ctx context.Context, movieID int64) (*tmdb.MovieDetails, error)
	TVDetails(ctx context.Context, showID int64) (*tmdb.TVDetails, error)
	TVExternalIDs(ctx context.Context, showID int64) (*tmdb.ExternalIDs, error)
}

// Options tunes the enricher.
type Options struct {
	ImageBaseURL string
	Delay        time.Duration
	Cooldown     time.Duration
	StaleAfter   time.Duration
	StaleBatch   int
}

// PassResult counts outcomes for one pass.
type PassResult struct {
	Candidates  int
	Updated     int
	NotFound    int
	RateLimited int
	Failed      int
}

// Result covers both passes.
type Result struct {
	Fill    PassResult
	Refresh PassResult
}

// Enricher writes TMDB metadata onto catalog rows.
type Enricher struct {
	store   *catalog.Store
	fetcher Fetcher
	opts    Options
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// New builds an enricher.
func New(store *catalog.Store, fetcher Fetcher, opts Options, logger *slog.Logger, m *metrics.Metrics) *Enricher {
	return &Enricher{
		store:   store,
		fetcher: fetcher,
		opts:    opts,
		logger:  logging.NewComponentLogger(logger, passName),
		metrics: m,
		now:     time.Now,
	}
}

// SetClock overrides the clock used for staleness and fetch timestamps.
func (e *Enricher) SetClock(now func() time.Time) {
	if now != nil {
		e.now = now
	}
}

// Run executes the fill pass and then the refresh pass.
func (e *Enricher) Run(ctx context.Context) (Result, error) {
	ctx = services.WithStage(ctx, passName)
	var result Result

	fill, err := e.Fill(ctx)
	result.Fill = fill
	if err != nil {
		e.metrics.PassRun(passName, services.Outcome(err))
		return result, err
	}
	refresh, err := e.Refresh(ctx)
	result.Refresh = refresh
	if err != nil {
		e.metrics.PassRun(passName, services.Outcome(err))
		return result, err
	}
	e.metrics.PassRun(passName, "ok")
	return result, nil
}

// Fill fetches every featured title without metadata.
func (e *Enricher) Fill(ctx context.Context) (PassResult, error) {
	shows, err := e.store.ShowsMissingMetadata(ctx)
	if err != nil {
		return PassResult{}, err
	}
	return e.runBatch(ctx, "fill", shows)
}

// Refresh re-fetches the oldest stale titles, up to the batch size.
func (e *Enricher) Refresh(ctx context.Context) (PassResult, error) {
	if e.opts.StaleBatch <= 0 {
		return PassResult{}, nil
	}
	cutoff := e.now().Add(-e.opts.StaleAfter)
	shows, err := e.store.StaleShows(ctx, cutoff, e.opts.StaleBatch)
	if err != nil {
		return PassResult{}, err
	}
	return e.runBatch(ctx, "refresh", shows)
}

func (e *Enricher) runBatch(ctx context.Context, label string, shows []catalog.ShowRef) (PassResult, error) {
	logger := logging.WithContext(ctx, e.logger)
	result := PassResult{Candidates: len(shows)}
	if len(shows) == 0 {
		logger.Info("no titles need metadata", logging.String("pass", label))
		return result, nil
	}
	logger.Info("metadata pass starting", logging.String("pass", label), logging.Int("titles", len(shows)))

	for _, show := range shows {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		showCtx := services.WithShowID(ctx, show.ID)
		err := e.enrichShow(showCtx, show)
		showLogger := logging.WithContext(showCtx, e.logger)
		switch {
		case err == nil:
			result.Updated++
			showLogger.Debug("metadata updated", logging.String("title", show.Title), logging.String("pass", label))
		case errors.Is(err, tmdb.ErrNotFound):
			result.NotFound++
			showLogger.Info("title not found on tmdb",
				logging.String("title", show.Title),
				logging.Int64("tmdb_id", show.TMDBID),
			)
		case errors.Is(err, tmdb.ErrRateLimited):
			result.RateLimited++
			logging.WarnWithContext(showLogger, "tmdb rate limited", "tmdb_rate_limited",
				logging.Duration("cooldown", e.opts.Cooldown),
				logging.String(logging.FieldErrorHint, "raise tmdb.request_delay_ms if this repeats"),
				logging.String(logging.FieldImpact, "title retried next run"),
			)
			if sleepErr := services.SleepWithContext(ctx, e.opts.Cooldown); sleepErr != nil {
				return result, sleepErr
			}
		case ctx.Err() != nil:
			return result, ctx.Err()
		case services.IsFatal(err):
			return result, err
		default:
			result.Failed++
			logging.WarnWithContext(showLogger, "metadata fetch failed", "metadata_fetch_failed",
				logging.String("title", show.Title),
				logging.Int64("tmdb_id", show.TMDBID),
				logging.String(logging.FieldErrorHint, "check tmdb availability"),
				logging.String(logging.FieldImpact, "title retried next run"),
				logging.Error(err),
			)
		}

		delay := e.opts.Delay
		if show.Type == catalog.ShowTypeSeries {
			delay *= 2
		}
		if err := services.SleepWithContext(ctx, delay); err != nil {
			return result, err
		}
	}

	logger.Info("metadata pass complete",
		logging.String("pass", label),
		logging.Int("updated", result.Updated),
		logging.Int("not_found", result.NotFound),
		logging.Int("rate_limited", result.RateLimited),
		logging.Int("failed", result.Failed),
	)
	e.metrics.PassItems(passName, "updated", result.Updated)
	e.metrics.PassItems(passName, "not_found", result.NotFound)
	e.metrics.PassItems(passName, "failed", result.Failed+result.RateLimited)
	return result, nil
}

func (e *Enricher) enrichShow(ctx context.Context, show catalog.ShowRef) error {
	var (
		meta catalog.Metadata
		err  error
	)
	if show.Type == catalog.ShowTypeSeries {
		meta, err = e.fetchSeries(ctx, show)
	} else {
		meta, err = e.fetchMovie(ctx, show)
	}
	if err != nil {
		return err
	}
	if err := e.store.UpdateShowMetadata(ctx, show.ID, meta, e.now()); err != nil {
		return fmt.Errorf("store metadata: %w", err)
	}
	return nil
}

func (e *Enricher) fetchMovie(ctx context.Context, show catalog.ShowRef) (catalog.Metadata, error) {
	details, err := e.fetcher.MovieDetails(ctx, show.TMDBID)
	if err != nil {
		return catalog.Metadata{}, err
	}
	return catalog.Metadata{
		IMDBID:         optString(details.IMDBID),
		Title:          optString(details.Title),
		OriginalTitle:  optString(details.OriginalTitle),
		ReleaseYear:    optInt(tmdb.Year(details.ReleaseDate)),
		RuntimeMinutes: optInt(details.Runtime),
		Overview:       optString(details.Overview),
		Rating:         optFloat(details.VoteAverage),
		Genres:         tmdb.GenreNames(details.Genres),
		ImageURL:       e.imageURL(details.PosterPath),
		YouTubeURL:     optString(tmdb.TrailerURL(details.Videos)),
	}, nil
}

// fetchSeries runs the details and external-id requests concurrently. Only a
// details failure fails the title; a missing external-id response leaves the
// stored IMDb id untouched.
func (e *Enricher) fetchSeries(ctx context.Context, show catalog.ShowRef) (catalog.Metadata, error) {
	var (
		details *tmdb.TVDetails
		ids     *tmdb.ExternalIDs
		idsErr  error
	)
	p := pool.New().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		var err error
		details, err = e.fetcher.TVDetails(ctx, show.TMDBID)
		return err
	})
	p.Go(func(ctx context.Context) error {
		ids, idsErr = e.fetcher.TVExternalIDs(ctx, show.TMDBID)
		return nil
	})
	if err := p.Wait(); err != nil {
		return catalog.Metadata{}, err
	}
	if idsErr != nil && !errors.Is(idsErr, tmdb.ErrNotFound) {
		logging.WarnWithContext(logging.WithContext(ctx, e.logger), "external ids fetch failed", "tmdb_external_ids_failed",
			logging.Int64("tmdb_id", show.TMDBID),
			logging.String(logging.FieldErrorHint, "imdb id refreshed on a later run"),
			logging.String(logging.FieldImpact, "imdb id not updated"),
			logging.Error(idsErr),
		)
	}

	meta := catalog.Metadata{
		Title:         optString(details.Name),
		OriginalTitle: optString(details.OriginalName),
		ReleaseYear:   optInt(tmdb.Year(details.FirstAirDate)),
		SeasonCount:   optInt(details.NumberOfSeasons),
		Overview:      optString(details.Overview),
		Rating:        optFloat(details.VoteAverage),
		Genres:        tmdb.GenreNames(details.Genres),
		ImageURL:      e.imageURL(details.PosterPath),
		YouTubeURL:    optString(tmdb.TrailerURL(details.Videos)),
	}
	if len(details.EpisodeRunTime) > 0 {
		meta.RuntimeMinutes = optInt(details.EpisodeRunTime[0])
	}
	if ids != nil {
		meta.IMDBID = optString(ids.IMDBID)
	}
	return meta, nil
}

func (e *Enricher) imageURL(posterPath string) *string {
	posterPath = strings.TrimSpace(posterPath)
	if posterPath == "" {
		return nil
	}
	url := strings.TrimRight(e.opts.ImageBaseURL, "/") + "/" + strings.TrimLeft(posterPath, "/")
	return &url
}

func optString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func optInt(v int) *int {
	if v <= 0 {
		return nil
	}
	return &v
}

func optFloat(v float64) *float64 {
	if v <= 0 {
		return nil
	}
	return &v
}
