package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTMDB(); err != nil {
		return err
	}
	if err := c.validateProviders(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateServices(); err != nil {
		return err
	}
	if err := c.validateVerify(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTMDB() error {
	if c.TMDB.RequestDelayMS < 0 {
		return errors.New("tmdb.request_delay_ms must be >= 0")
	}
	if c.TMDB.CooldownSeconds < 0 {
		return errors.New("tmdb.cooldown_seconds must be >= 0")
	}
	if c.TMDB.StaleDays <= 0 {
		return errors.New("tmdb.stale_days must be positive")
	}
	if c.TMDB.SeedDelayMS < 0 {
		return errors.New("tmdb.seed_delay_ms must be >= 0")
	}
	return nil
}

func (c *Config) validateProviders() error {
	if c.Watchmode.DailyBudget < 0 {
		return errors.New("watchmode.daily_budget must be >= 0")
	}
	if c.Watchmode.MonthlyBudget < 0 {
		return errors.New("watchmode.monthly_budget must be >= 0")
	}
	if c.Watchmode.DelayMS < 0 {
		return errors.New("watchmode.delay_ms must be >= 0")
	}
	if c.MOTN.DailyBudget < 0 {
		return errors.New("motn.daily_budget must be >= 0")
	}
	if c.MOTN.DelayMS < 0 {
		return errors.New("motn.delay_ms must be >= 0")
	}
	return nil
}

func (c *Config) validateCatalog() error {
	if len(c.Catalog.Country) != 2 {
		return fmt.Errorf("catalog.country must be a two-letter region code, got %q", c.Catalog.Country)
	}
	if len(c.Catalog.Services) == 0 {
		return errors.New("catalog.services must list at least one service")
	}
	return nil
}

func (c *Config) validateServices() error {
	known := make(map[string]struct{}, len(c.Services))
	for _, svc := range c.Services {
		if svc.Name == "" {
			return fmt.Errorf("service %q must have a name", svc.ID)
		}
		if svc.Color != "" && !colorPattern.MatchString(svc.Color) {
			return fmt.Errorf("service %q color must be #RRGGBB, got %q", svc.ID, svc.Color)
		}
		known[svc.ID] = struct{}{}
	}
	for _, id := range c.Catalog.Services {
		if _, ok := known[id]; !ok {
			return fmt.Errorf("catalog.services references unknown service %q", id)
		}
	}
	return nil
}

func (c *Config) validateVerify() error {
	if c.Verify.BatchSize <= 0 {
		return errors.New("verify.batch_size must be positive")
	}
	if c.Verify.TimeoutSeconds <= 0 {
		return errors.New("verify.timeout_seconds must be positive")
	}
	if c.Verify.DelayMS < 0 {
		return errors.New("verify.delay_ms must be >= 0")
	}
	if c.Verify.FreeFreshDays <= 0 || c.Verify.PaidFreshDays <= 0 {
		return errors.New("verify.free_fresh_days and verify.paid_fresh_days must be positive")
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.RatePerSecond <= 0 {
		return errors.New("api.rate_per_second must be positive")
	}
	if c.API.Burst <= 0 {
		return errors.New("api.burst must be positive")
	}
	if !strings.Contains(c.API.Bind, ":") {
		return fmt.Errorf("api.bind must be host:port, got %q", c.API.Bind)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 || c.Logging.MaxAgeDays < 0 {
		return errors.New("logging rotation settings must be >= 0")
	}
	return nil
}
