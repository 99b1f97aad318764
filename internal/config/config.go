package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains storage locations.
type Paths struct {
	Database   string `toml:"database"`
	LogDir     string `toml:"log_dir"`
	PublishDir string `toml:"publish_dir"`
}

// TMDB contains configuration for The Movie Database API and its daily exports.
type TMDB struct {
	APIKey          string `toml:"api_key"`
	BaseURL         string `toml:"base_url"`
	ImageBaseURL    string `toml:"image_base_url"`
	ExportBaseURL   string `toml:"export_base_url"`
	Language        string `toml:"language"`
	RequestDelayMS  int    `toml:"request_delay_ms"`
	CooldownSeconds int    `toml:"cooldown_seconds"`
	StaleDays       int    `toml:"stale_days"`
	StaleBatch      int    `toml:"stale_batch"`
	ProvidersBatch  int    `toml:"providers_batch"`
	SeedDelayMS     int    `toml:"seed_delay_ms"`
	ImportBatchSize int    `toml:"import_batch_size"`
}

// Watchmode contains configuration for the Watchmode direct-link provider.
type Watchmode struct {
	APIKey        string `toml:"api_key"`
	BaseURL       string `toml:"base_url"`
	DailyBudget   int    `toml:"daily_budget"`
	MonthlyBudget int    `toml:"monthly_budget"`
	DelayMS       int    `toml:"delay_ms"`
}

// MOTN contains configuration for the Movie of the Night streaming-availability API.
type MOTN struct {
	APIKey      string `toml:"api_key"`
	BaseURL     string `toml:"base_url"`
	DailyBudget int    `toml:"daily_budget"`
	DelayMS     int    `toml:"delay_ms"`
}

// Catalog selects the region and the services the pipeline tracks.
type Catalog struct {
	Country  string   `toml:"country"`
	Services []string `toml:"services"`
}

// Service describes a streaming platform. Entries in the config file override
// the built-in definitions with the same ID.
type Service struct {
	ID    string `toml:"id"`
	Name  string `toml:"name"`
	Free  bool   `toml:"free"`
	Color string `toml:"color"`
	URL   string `toml:"url"`
}

// Verify contains link verification settings.
type Verify struct {
	BatchSize      int `toml:"batch_size"`
	TimeoutSeconds int `toml:"timeout_seconds"`
	DelayMS        int `toml:"delay_ms"`
	FreeFreshDays  int `toml:"free_fresh_days"`
	PaidFreshDays  int `toml:"paid_fresh_days"`
}

// Seed points at the curated CSV inputs.
type Seed struct {
	Movies   string `toml:"movies"`
	TVShows  string `toml:"tvshows"`
	Priority int    `toml:"priority"`
}

// API contains read API settings.
type API struct {
	Bind            string  `toml:"bind"`
	CacheTTLSeconds int     `toml:"cache_ttl_seconds"`
	RatePerSecond   float64 `toml:"rate_per_second"`
	Burst           int     `toml:"burst"`

	// TrustProxy keys rate limits on X-Forwarded-For / X-Real-IP. Enable only
	// behind a reverse proxy that overwrites those headers.
	TrustProxy bool `toml:"trust_proxy"`
}

// Schedule contains the cron expression used by the schedule command.
type Schedule struct {
	Cron string `toml:"cron"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format     string `toml:"format"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Config encapsulates all configuration values for streamguide.
//
// Configuration sections by subsystem:
//   - Paths: catalog database, logs, published artifacts
//   - TMDB: metadata, watch providers, seed resolution, bulk exports
//   - Watchmode / MOTN: budget-capped direct-link providers
//   - Catalog: region and tracked services
//   - Services: streaming platform reference data
//   - Verify: link verification batch and freshness windows
//   - Seed: curated CSV inputs
//   - API / Schedule / Notifications / Logging: runtime surfaces
type Config struct {
	Paths         Paths         `toml:"paths"`
	TMDB          TMDB          `toml:"tmdb"`
	Watchmode     Watchmode     `toml:"watchmode"`
	MOTN          MOTN          `toml:"motn"`
	Catalog       Catalog       `toml:"catalog"`
	Services      []Service     `toml:"service"`
	Verify        Verify        `toml:"verify"`
	Seed          Seed          `toml:"seed"`
	API           API           `toml:"api"`
	Schedule      Schedule      `toml:"schedule"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/streamguide/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("streamguide.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the catalog, logs, and published
// artifacts live in.
func (c *Config) EnsureDirectories() error {
	dirs := []string{filepath.Dir(c.Paths.Database), c.Paths.LogDir, c.Paths.PublishDir}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RequireTMDB reports a configuration error when no TMDB key is available.
// Commands that call TMDB check this before doing any work.
func (c *Config) RequireTMDB() error {
	if strings.TrimSpace(c.TMDB.APIKey) != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = "~/.config/streamguide/config.toml"
	}
	return fmt.Errorf("tmdb.api_key is required. Set TMDB_API_KEY env var or edit %s (create with 'streamguide config init')", defaultPath)
}

// IsTracked reports whether the service ID is in catalog.services.
func (c *Config) IsTracked(serviceID string) bool {
	for _, id := range c.Catalog.Services {
		if id == serviceID {
			return true
		}
	}
	return false
}

// LockPath returns the path of the single-writer lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "streamguide.lock")
}

// RequestDelay returns the pause between TMDB requests.
func (t TMDB) RequestDelay() time.Duration {
	return time.Duration(t.RequestDelayMS) * time.Millisecond
}

// Cooldown returns the wait applied after a TMDB 429.
func (t TMDB) Cooldown() time.Duration {
	return time.Duration(t.CooldownSeconds) * time.Second
}

// SeedDelay returns the pause between seed resolution requests.
func (t TMDB) SeedDelay() time.Duration {
	return time.Duration(t.SeedDelayMS) * time.Millisecond
}

// Delay returns the pause after each Watchmode title.
func (w Watchmode) Delay() time.Duration {
	return time.Duration(w.DelayMS) * time.Millisecond
}

// Delay returns the pause after each MOTN title.
func (m MOTN) Delay() time.Duration {
	return time.Duration(m.DelayMS) * time.Millisecond
}

// Timeout returns the per-check deadline.
func (v Verify) Timeout() time.Duration {
	return time.Duration(v.TimeoutSeconds) * time.Second
}

// Delay returns the pause between checks.
func (v Verify) Delay() time.Duration {
	return time.Duration(v.DelayMS) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
