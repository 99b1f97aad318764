package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTMDB()
	c.normalizeProviders()
	c.normalizeCatalog()
	c.normalizeServices()
	if err := c.normalizeSeed(); err != nil {
		return err
	}
	c.normalizeAPI()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.Database) == "" {
		c.Paths.Database = defaultDatabasePath
	}
	if c.Paths.Database, err = expandPath(c.Paths.Database); err != nil {
		return fmt.Errorf("paths.database: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.PublishDir) == "" {
		c.Paths.PublishDir = defaultPublishDir
	}
	if c.Paths.PublishDir, err = expandPath(c.Paths.PublishDir); err != nil {
		return fmt.Errorf("paths.publish_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTMDB() {
	c.TMDB.APIKey = strings.TrimSpace(c.TMDB.APIKey)
	if c.TMDB.APIKey == "" {
		if value, ok := os.LookupEnv("TMDB_API_KEY"); ok {
			c.TMDB.APIKey = strings.TrimSpace(value)
		}
	}
	c.TMDB.BaseURL = trimURL(c.TMDB.BaseURL, defaultTMDBBaseURL)
	c.TMDB.ImageBaseURL = trimURL(c.TMDB.ImageBaseURL, defaultTMDBImageBaseURL)
	c.TMDB.ExportBaseURL = trimURL(c.TMDB.ExportBaseURL, defaultTMDBExportBaseURL)
	c.TMDB.Language = strings.TrimSpace(c.TMDB.Language)
	if c.TMDB.StaleBatch <= 0 {
		c.TMDB.StaleBatch = defaultTMDBStaleBatch
	}
	if c.TMDB.ProvidersBatch <= 0 {
		c.TMDB.ProvidersBatch = defaultTMDBProvidersBatch
	}
	if c.TMDB.ImportBatchSize <= 0 {
		c.TMDB.ImportBatchSize = defaultImportBatchSize
	}
}

func (c *Config) normalizeProviders() {
	c.Watchmode.APIKey = strings.TrimSpace(c.Watchmode.APIKey)
	if c.Watchmode.APIKey == "" {
		if value, ok := os.LookupEnv("WATCHMODE_API_KEY"); ok {
			c.Watchmode.APIKey = strings.TrimSpace(value)
		}
	}
	c.Watchmode.BaseURL = trimURL(c.Watchmode.BaseURL, defaultWatchmodeBaseURL)

	c.MOTN.APIKey = strings.TrimSpace(c.MOTN.APIKey)
	if c.MOTN.APIKey == "" {
		if value, ok := os.LookupEnv("MOTN_API_KEY"); ok {
			c.MOTN.APIKey = strings.TrimSpace(value)
		}
	}
	c.MOTN.BaseURL = trimURL(c.MOTN.BaseURL, defaultMOTNBaseURL)
}

func (c *Config) normalizeCatalog() {
	c.Catalog.Country = strings.ToUpper(strings.TrimSpace(c.Catalog.Country))
	if c.Catalog.Country == "" {
		c.Catalog.Country = defaultCountry
	}
	ids := make([]string, 0, len(c.Catalog.Services))
	seen := make(map[string]struct{}, len(c.Catalog.Services))
	for _, id := range c.Catalog.Services {
		normalized := strings.ToLower(strings.TrimSpace(id))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		ids = append(ids, normalized)
	}
	c.Catalog.Services = ids
}

// normalizeServices merges configured [[service]] entries over the built-in
// definitions, keyed by ID. Built-in order is kept; new IDs are appended.
func (c *Config) normalizeServices() {
	merged := DefaultServices()
	index := make(map[string]int, len(merged))
	for i, svc := range merged {
		index[svc.ID] = i
	}
	for _, svc := range c.Services {
		svc.ID = strings.ToLower(strings.TrimSpace(svc.ID))
		svc.Name = strings.TrimSpace(svc.Name)
		svc.Color = strings.TrimSpace(svc.Color)
		svc.URL = strings.TrimSpace(svc.URL)
		if svc.ID == "" {
			continue
		}
		if i, ok := index[svc.ID]; ok {
			base := merged[i]
			if svc.Name == "" {
				svc.Name = base.Name
			}
			if svc.Color == "" {
				svc.Color = base.Color
			}
			if svc.URL == "" {
				svc.URL = base.URL
			}
			merged[i] = svc
			continue
		}
		index[svc.ID] = len(merged)
		merged = append(merged, svc)
	}
	c.Services = merged
}

func (c *Config) normalizeSeed() error {
	var err error
	if c.Seed.Movies, err = expandPath(strings.TrimSpace(c.Seed.Movies)); err != nil {
		return fmt.Errorf("seed.movies: %w", err)
	}
	if c.Seed.TVShows, err = expandPath(strings.TrimSpace(c.Seed.TVShows)); err != nil {
		return fmt.Errorf("seed.tvshows: %w", err)
	}
	if c.Seed.Priority <= 0 {
		c.Seed.Priority = defaultSeedPriority
	}
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	if c.API.CacheTTLSeconds <= 0 {
		c.API.CacheTTLSeconds = defaultAPICacheTTLSeconds
	}
	c.Schedule.Cron = strings.TrimSpace(c.Schedule.Cron)
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = defaultScheduleCron
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func trimURL(value, fallback string) string {
	value = strings.TrimRight(strings.TrimSpace(value), "/")
	if value == "" {
		return fallback
	}
	return value
}
