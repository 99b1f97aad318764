package testsupport

import (
	"path/filepath"
	"testing"

	"streamguide/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Provider delays are zeroed so passes run without sleeping.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.Database = filepath.Join(base, "data", "catalog.db")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.PublishDir = filepath.Join(base, "public")
	cfgVal.Services = config.DefaultServices()
	cfgVal.TMDB.APIKey = "test"
	cfgVal.TMDB.RequestDelayMS = 0
	cfgVal.TMDB.CooldownSeconds = 0
	cfgVal.TMDB.SeedDelayMS = 0
	cfgVal.Watchmode.DelayMS = 0
	cfgVal.MOTN.DelayMS = 0
	cfgVal.Verify.DelayMS = 0
	cfgVal.Verify.TimeoutSeconds = 2
	cfgVal.API.Bind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithTMDB points the TMDB client and export downloads at a test server.
func WithTMDB(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.TMDB.BaseURL = baseURL
		b.cfg.TMDB.ExportBaseURL = baseURL
	}
}

// WithWatchmode enables Watchmode against a test server.
func WithWatchmode(baseURL, key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Watchmode.BaseURL = baseURL
		b.cfg.Watchmode.APIKey = key
	}
}

// WithMOTN enables MOTN against a test server.
func WithMOTN(baseURL, key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.MOTN.BaseURL = baseURL
		b.cfg.MOTN.APIKey = key
	}
}

// WithSeedFiles writes the given CSV bodies into the temp directory and
// points the seed config at them. An empty body leaves that kind unset.
func WithSeedFiles(movies, tvshows string) ConfigOption {
	return func(b *configBuilder) {
		if movies != "" {
			b.cfg.Seed.Movies = WriteFile(b.t, filepath.Join(b.baseDir, "seed", "movies.csv"), movies)
		}
		if tvshows != "" {
			b.cfg.Seed.TVShows = WriteFile(b.t, filepath.Join(b.baseDir, "seed", "tvshows.csv"), tvshows)
		}
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}
