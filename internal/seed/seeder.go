package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"streamguide/internal/catalog"
	"streamguide/internal/logging"
	"streamguide/internal/metrics"
	"streamguide/internal/providers/tmdb"
	"streamguide/internal/services"
	"streamguide/internal/textutil"
)

const (
	passName = "seed"

	// endpointLabel tags every resolution call in the quota log.
	endpointLabel = "seed-resolve"

	// minTitleOverlap is the Jaccard floor for accepting an IMDb match.
	minTitleOverlap = 0.25
)

// Resolver is the TMDB surface the seeder needs.
type Resolver interface {
	FindByIMDB(ctx context.Context, imdbID string) (*tmdb.FindResponse, error)
	SearchMovie(ctx context.Context, query string, year int) (*tmdb.Response, error)
	SearchTV(ctx context.Context, query string, year int) (*tmdb.Response, error)
}

// Method names the resolution step that produced a TMDB id.
type Method string

const (
	MethodExplicit   Method = "explicit"
	MethodIMDB       Method = "imdb"
	MethodTitleYear  Method = "title_year"
	MethodTitleOnly  Method = "title_only"
	MethodUnresolved Method = ""
)

// Resolution is the outcome of the fallback chain for one entry.
type Resolution struct {
	TMDBID int64
	IMDBID string
	Method Method
}

// Options configures a seeder.
type Options struct {
	MoviesPath  string
	TVShowsPath string
	Priority    int
	Delay       time.Duration
}

// Result summarizes a seed run.
type Result struct {
	Rows       int
	Resolved   int
	Inserted   int
	Existing   int
	Skipped    int
	Unresolved []string
}

// Seeder resolves curated rows and marks them featured.
type Seeder struct {
	store    *catalog.Store
	resolver Resolver
	opts     Options
	logger   *slog.Logger
	metrics  *metrics.Metrics

	calls int
}

// New constructs a seeder.
func New(store *catalog.Store, resolver Resolver, opts Options, logger *slog.Logger, m *metrics.Metrics) *Seeder {
	return &Seeder{
		store:    store,
		resolver: resolver,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, passName),
		metrics:  m,
	}
}

type seedFile struct {
	path string
	kind catalog.ShowType
}

// Run seeds both configured files. Unset paths are skipped; a configured path
// that cannot be read fails the run before any provider call.
func (s *Seeder) Run(ctx context.Context) (Result, error) {
	ctx = services.WithStage(ctx, passName)
	logger := logging.WithContext(ctx, s.logger)
	s.calls = 0

	files := []seedFile{
		{path: s.opts.MoviesPath, kind: catalog.ShowTypeMovie},
		{path: s.opts.TVShowsPath, kind: catalog.ShowTypeSeries},
	}
	batches := make(map[catalog.ShowType][]Entry, len(files))
	var result Result
	for _, f := range files {
		if strings.TrimSpace(f.path) == "" {
			logger.Info("seed file not configured", logging.String("kind", string(f.kind)))
			continue
		}
		entries, invalid, err := readFile(f.path)
		if err != nil {
			s.metrics.PassRun(passName, "error")
			return result, services.Wrap(services.ErrConfiguration, passName, "read seed file", f.path, err)
		}
		for _, line := range invalid {
			logging.WarnWithContext(logger, "seed row skipped", "seed_row_invalid",
				logging.String("file", f.path),
				logging.Int("line", line),
				logging.String(logging.FieldErrorHint, "every row needs a title"),
				logging.String(logging.FieldImpact, "row not imported"),
			)
		}
		result.Rows += len(entries) + len(invalid)
		result.Skipped += len(invalid)
		batches[f.kind] = entries
	}

	for _, f := range files {
		for _, entry := range batches[f.kind] {
			if err := ctx.Err(); err != nil {
				s.metrics.PassRun(passName, "canceled")
				return result, err
			}
			if err := s.seedEntry(ctx, f.kind, entry, &result); err != nil {
				s.metrics.PassRun(passName, services.Outcome(err))
				return result, err
			}
		}
	}

	logger.Info("seed complete",
		logging.Int("rows", result.Rows),
		logging.Int("resolved", result.Resolved),
		logging.Int("inserted", result.Inserted),
		logging.Int("existing", result.Existing),
		logging.Int("skipped", result.Skipped),
	)
	s.metrics.PassItems(passName, "inserted", result.Inserted)
	s.metrics.PassItems(passName, "existing", result.Existing)
	s.metrics.PassItems(passName, "skipped", result.Skipped)
	s.metrics.PassRun(passName, "ok")
	return result, nil
}

func readFile(path string) ([]Entry, []int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()
	return ParseCSV(file)
}

func (s *Seeder) seedEntry(ctx context.Context, kind catalog.ShowType, entry Entry, result *Result) error {
	logger := logging.WithContext(ctx, s.logger)
	res, err := s.Resolve(ctx, kind, entry)
	if err != nil {
		return err
	}
	if res.Method == MethodUnresolved {
		result.Skipped++
		result.Unresolved = append(result.Unresolved, entry.Title)
		logging.WarnWithContext(logger, "seed title unresolved", "seed_unresolved",
			logging.String("title", entry.Title),
			logging.String("kind", string(kind)),
			logging.Int("year", entry.Year),
			logging.String(logging.FieldErrorHint, "add a tmdbId column value for this row"),
			logging.String(logging.FieldImpact, "title not featured"),
		)
		return nil
	}
	result.Resolved++

	id, created, err := s.store.InsertShowIfMissing(ctx, catalog.NewShow{
		TMDBID:      res.TMDBID,
		IMDBID:      res.IMDBID,
		Title:       textutil.DisplayTitle(entry.Title),
		Type:        kind,
		ReleaseYear: entry.Year,
		Featured:    true,
	})
	if err != nil {
		return fmt.Errorf("insert seeded show %q: %w", entry.Title, err)
	}
	if err := s.store.UpsertFeatured(ctx, id, s.opts.Priority, ""); err != nil {
		return fmt.Errorf("feature show %q: %w", entry.Title, err)
	}
	if created {
		result.Inserted++
	} else {
		result.Existing++
	}
	logger.Debug("seed title resolved",
		logging.String("title", entry.Title),
		logging.Int64("tmdb_id", res.TMDBID),
		logging.String("method", string(res.Method)),
		logging.Bool("created", created),
	)
	return nil
}

// Resolve runs the fallback chain for entry. Provider failures other than
// cancellation and configuration errors fall through to the next step.
func (s *Seeder) Resolve(ctx context.Context, kind catalog.ShowType, entry Entry) (Resolution, error) {
	if entry.TMDBID > 0 {
		return Resolution{TMDBID: entry.TMDBID, IMDBID: entry.IMDBID, Method: MethodExplicit}, nil
	}
	ctx = tmdb.WithEndpoint(ctx, endpointLabel)

	if entry.IMDBID != "" {
		match, err := s.findByIMDB(ctx, kind, entry)
		if err != nil {
			return Resolution{}, err
		}
		if match > 0 {
			return Resolution{TMDBID: match, IMDBID: entry.IMDBID, Method: MethodIMDB}, nil
		}
	}

	if entry.Year > 0 {
		match, err := s.search(ctx, kind, entry.Title, entry.Year)
		if err != nil {
			return Resolution{}, err
		}
		if match > 0 {
			return Resolution{TMDBID: match, Method: MethodTitleYear}, nil
		}
	}

	match, err := s.search(ctx, kind, entry.Title, 0)
	if err != nil {
		return Resolution{}, err
	}
	if match > 0 {
		return Resolution{TMDBID: match, Method: MethodTitleOnly}, nil
	}
	return Resolution{Method: MethodUnresolved}, nil
}

func (s *Seeder) findByIMDB(ctx context.Context, kind catalog.ShowType, entry Entry) (int64, error) {
	if err := s.throttle(ctx); err != nil {
		return 0, err
	}
	resp, err := s.resolver.FindByIMDB(ctx, entry.IMDBID)
	if err != nil {
		return 0, s.tolerate(ctx, "find", entry, err)
	}
	results := resp.MovieResults
	if kind == catalog.ShowTypeSeries {
		results = resp.TVResults
	}
	if len(results) == 0 {
		return 0, nil
	}
	candidate := results[0]
	if !textutil.TitlesAgree(entry.Title, candidate.DisplayName(), minTitleOverlap) {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "imdb match rejected", "seed_imdb_mismatch",
			logging.String("title", entry.Title),
			logging.String("imdb_id", entry.IMDBID),
			logging.String("matched_title", candidate.DisplayName()),
			logging.String(logging.FieldErrorHint, "check the imdbId column for this row"),
			logging.String(logging.FieldImpact, "falling back to title search"),
		)
		return 0, nil
	}
	return candidate.ID, nil
}

func (s *Seeder) search(ctx context.Context, kind catalog.ShowType, title string, year int) (int64, error) {
	if err := s.throttle(ctx); err != nil {
		return 0, err
	}
	var (
		resp *tmdb.Response
		err  error
	)
	if kind == catalog.ShowTypeSeries {
		resp, err = s.resolver.SearchTV(ctx, title, year)
	} else {
		resp, err = s.resolver.SearchMovie(ctx, title, year)
	}
	if err != nil {
		return 0, s.tolerate(ctx, "search", Entry{Title: title, Year: year}, err)
	}
	return pickResult(title, resp.Results), nil
}

// pickResult prefers an exact normalized-title match and otherwise takes the
// first result.
func pickResult(title string, results []tmdb.Result) int64 {
	if len(results) == 0 {
		return 0
	}
	want := textutil.NormalizeTitle(title)
	for _, r := range results {
		for _, candidate := range []string{r.DisplayName(), r.OriginalTitle, r.OriginalName} {
			if candidate != "" && textutil.NormalizeTitle(candidate) == want {
				return r.ID
			}
		}
	}
	return results[0].ID
}

// throttle sleeps the seed delay before every call after the first.
func (s *Seeder) throttle(ctx context.Context) error {
	defer func() { s.calls++ }()
	if s.calls == 0 {
		return nil
	}
	return services.SleepWithContext(ctx, s.opts.Delay)
}

func (s *Seeder) tolerate(ctx context.Context, step string, entry Entry, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, services.ErrConfiguration) {
		return err
	}
	if errors.Is(err, tmdb.ErrNotFound) {
		return nil
	}
	logging.WarnWithContext(logging.WithContext(ctx, s.logger), "seed lookup failed", "seed_lookup_failed",
		logging.String("step", step),
		logging.String("title", entry.Title),
		logging.String(logging.FieldErrorHint, "tmdb request failed; the next resolution step is tried"),
		logging.String(logging.FieldImpact, "resolution continues"),
		logging.Error(err),
	)
	return nil
}
