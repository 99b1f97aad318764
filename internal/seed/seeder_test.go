package seed_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"streamguide/internal/catalog"
	"streamguide/internal/config"
	"streamguide/internal/providers/tmdb"
	"streamguide/internal/quota"
	"streamguide/internal/seed"
	"streamguide/internal/testsupport"
)

type fakeTMDB struct {
	mu       sync.Mutex
	requests []string
	handlers map[string]string
}

func (f *fakeTMDB) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	key := requestKey(r.URL.Path, query.Get("query"), query.Get("primary_release_year")+query.Get("first_air_date_year"))
	f.mu.Lock()
	f.requests = append(f.requests, key)
	f.mu.Unlock()

	body, ok := f.handlers[key]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func requestKey(path, query, year string) string {
	if query == "" {
		return path
	}
	key := path + "?query=" + query
	if year != "" {
		key += "&year=" + year
	}
	return key
}

func (f *fakeTMDB) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

type harness struct {
	store  *catalog.Store
	tmdb   *fakeTMDB
	seeder *seed.Seeder
}

func newHarness(t *testing.T, movies, tvshows string, handlers map[string]string) *harness {
	t.Helper()
	fake := &fakeTMDB{handlers: handlers}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithTMDB(server.URL), testsupport.WithSeedFiles(movies, tvshows))
	store := testsupport.MustOpenStore(t, cfg)
	tracker := quota.NewTracker(store, nil, nil)
	client, err := tmdb.New(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.Language, tmdb.WithRecorder(tracker))
	if err != nil {
		t.Fatalf("tmdb.New: %v", err)
	}
	seeder := seed.New(store, client, optionsFrom(cfg), nil, nil)
	return &harness{store: store, tmdb: fake, seeder: seeder}
}

func optionsFrom(cfg *config.Config) seed.Options {
	return seed.Options{
		MoviesPath:  cfg.Seed.Movies,
		TVShowsPath: cfg.Seed.TVShows,
		Priority:    cfg.Seed.Priority,
		Delay:       cfg.TMDB.SeedDelay(),
	}
}

const casablancaSearch = `{"page":1,"results":[
	{"id":41995,"title":"Casablanca Express","release_date":"1989-01-01"},
	{"id":289,"title":"Casablanca","release_date":"1942-11-26"}
]}`

func TestSeedCasablancaTitleYearSearch(t *testing.T) {
	h := newHarness(t, "title,year\nCasablanca,1942\n", "", map[string]string{
		"/search/movie?query=Casablanca&year=1942": casablancaSearch,
	})
	ctx := context.Background()

	result, err := h.seeder.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Rows != 1 || result.Resolved != 1 || result.Inserted != 1 || result.Skipped != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if got := h.tmdb.seen(); len(got) != 1 || got[0] != "/search/movie?query=Casablanca&year=1942" {
		t.Fatalf("unexpected requests: %v", got)
	}

	show, err := h.store.GetShowByTMDBID(ctx, 289)
	if err != nil || show == nil {
		t.Fatalf("GetShowByTMDBID: %v %v", show, err)
	}
	if !show.Featured || show.Title != "Casablanca" || show.Type != catalog.ShowTypeMovie {
		t.Fatalf("unexpected show: %+v", show)
	}
	status, err := h.store.EnrichStatus(ctx, show.ID)
	if err != nil {
		t.Fatalf("EnrichStatus: %v", err)
	}
	if status != catalog.StatusPending {
		t.Fatalf("status = %q, want pending", status)
	}

	var logged int
	if err := h.store.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM api_quota_log WHERE source = 'tmdb' AND endpoint = 'seed-resolve'`,
	).Scan(&logged); err != nil {
		t.Fatalf("count quota log: %v", err)
	}
	if logged != 1 {
		t.Fatalf("quota log rows = %d, want 1", logged)
	}
}

func TestSeedRejectsMismatchedIMDBMatch(t *testing.T) {
	h := newHarness(t, "Title,imdbId,Year\nCasablanca,tt0068646,1942\n", "", map[string]string{
		"/find/tt0068646":                          `{"movie_results":[{"id":238,"title":"The Godfather"}],"tv_results":[]}`,
		"/search/movie?query=Casablanca&year=1942": casablancaSearch,
	})
	ctx := context.Background()

	result, err := h.seeder.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Inserted != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	want := []string{"/find/tt0068646", "/search/movie?query=Casablanca&year=1942"}
	if got := h.tmdb.seen(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("requests = %v, want %v", got, want)
	}
	if godfather, _ := h.store.GetShowByTMDBID(ctx, 238); godfather != nil {
		t.Fatalf("mismatched imdb result was inserted: %+v", godfather)
	}
	show, err := h.store.GetShowByTMDBID(ctx, 289)
	if err != nil || show == nil {
		t.Fatalf("GetShowByTMDBID: %v %v", show, err)
	}
	if show.IMDBID != "" {
		t.Fatalf("rejected imdb id stored: %q", show.IMDBID)
	}
}

func TestSeedAcceptsAgreeingIMDBMatch(t *testing.T) {
	h := newHarness(t, "", "title,imdb_id\nbreaking bad,tt0903747\n", map[string]string{
		"/find/tt0903747": `{"movie_results":[],"tv_results":[{"id":1396,"name":"Breaking Bad"}]}`,
	})
	ctx := context.Background()

	res, err := h.seeder.Resolve(ctx, catalog.ShowTypeSeries, seed.Entry{Title: "breaking bad", IMDBID: "tt0903747"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.TMDBID != 1396 || res.Method != seed.MethodIMDB || res.IMDBID != "tt0903747" {
		t.Fatalf("unexpected resolution: %+v", res)
	}

	if _, err := h.seeder.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	show, err := h.store.GetShowByTMDBID(ctx, 1396)
	if err != nil || show == nil {
		t.Fatalf("GetShowByTMDBID: %v %v", show, err)
	}
	if show.Title != "Breaking Bad" || show.IMDBID != "tt0903747" || show.Type != catalog.ShowTypeSeries {
		t.Fatalf("unexpected show: %+v", show)
	}
}

func TestSeedExplicitIDUpdatesExistingRow(t *testing.T) {
	h := newHarness(t, "title,tmdbId\nThe Matrix,603\n", "", nil)
	ctx := context.Background()

	if _, _, err := h.store.InsertShowIfMissing(ctx, catalog.NewShow{
		TMDBID: 603,
		Title:  "The Matrix",
		Type:   catalog.ShowTypeMovie,
	}); err != nil {
		t.Fatalf("InsertShowIfMissing: %v", err)
	}

	result, err := h.seeder.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Existing != 1 || result.Inserted != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if got := h.tmdb.seen(); len(got) != 0 {
		t.Fatalf("explicit id should not call tmdb, got %v", got)
	}
	count, err := h.store.CountShows(ctx)
	if err != nil {
		t.Fatalf("CountShows: %v", err)
	}
	if count != 1 {
		t.Fatalf("CountShows = %d, want 1", count)
	}
	show, _ := h.store.GetShowByTMDBID(ctx, 603)
	if show == nil || !show.Featured {
		t.Fatalf("existing show not featured: %+v", show)
	}
}

func TestSeedFallsBackToTitleOnlyAndReportsUnresolved(t *testing.T) {
	tvshows := "title,year\nSeverance,2023\nNo Such Show,2001\n,1999\n"
	h := newHarness(t, "", tvshows, map[string]string{
		"/search/tv?query=Severance&year=2023":    `{"results":[]}`,
		"/search/tv?query=Severance":              `{"results":[{"id":95396,"name":"Severance"}]}`,
		"/search/tv?query=No Such Show&year=2001": `{"results":[]}`,
		"/search/tv?query=No Such Show":           `{"results":[]}`,
	})
	ctx := context.Background()

	result, err := h.seeder.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Rows != 3 || result.Resolved != 1 || result.Inserted != 1 || result.Skipped != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if show, _ := h.store.GetShowByTMDBID(ctx, 95396); show == nil || show.Type != catalog.ShowTypeSeries {
		t.Fatalf("severance not seeded: %+v", show)
	}
	if len(result.Unresolved) != 1 || result.Unresolved[0] != "No Such Show" {
		t.Fatalf("unresolved = %v", result.Unresolved)
	}
}

func TestSeedUnresolvedTitleIsSkipped(t *testing.T) {
	h := newHarness(t, "title\nNowhere Film\n", "", map[string]string{
		"/search/movie?query=Nowhere Film": `{"results":[]}`,
	})

	result, err := h.seeder.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Resolved != 0 || result.Skipped != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(result.Unresolved) != 1 || result.Unresolved[0] != "Nowhere Film" {
		t.Fatalf("unresolved = %v", result.Unresolved)
	}
}

func TestSeedMissingFileIsConfigurationError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	opts := optionsFrom(cfg)
	opts.MoviesPath = filepath.Join(testsupport.BaseDir(cfg), "missing.csv")

	seeder := seed.New(store, nil, opts, nil, nil)
	if _, err := seeder.Run(context.Background()); err == nil {
		t.Fatal("expected error for missing seed file")
	}
}

func TestParseCSV(t *testing.T) {
	input := "\ufeffTitle, IMDB_ID ,Year,TMDBID,notes\n" +
		"Alien,tt0078748,1979,348,classic\n" +
		"\n" +
		",tt0000001,2000,,\n" +
		"Heat,,not-a-year,\n"
	entries, invalid, err := seed.ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[0].Title != "Alien" || entries[0].IMDBID != "tt0078748" || entries[0].Year != 1979 || entries[0].TMDBID != 348 {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Title != "Heat" || entries[1].Year != 0 || entries[1].TMDBID != 0 {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
	if len(invalid) != 1 || invalid[0] != 4 {
		t.Fatalf("invalid = %v, want [4]", invalid)
	}

	if _, _, err := seed.ParseCSV(strings.NewReader("name,year\nAlien,1979\n")); err == nil {
		t.Fatal("expected error when title column is missing")
	}
}
