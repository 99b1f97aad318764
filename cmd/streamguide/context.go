package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"streamguide/internal/catalog"
	"streamguide/internal/config"
	"streamguide/internal/logging"
	"streamguide/internal/metrics"
	"streamguide/internal/notifications"
	"streamguide/internal/pipeline"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error

	metricsOnce sync.Once
	metrics     *metrics.Metrics
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = fmt.Errorf("init logger: %w", err)
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) ensureMetrics() *metrics.Metrics {
	c.metricsOnce.Do(func() {
		c.metrics = metrics.New()
	})
	return c.metrics
}

// withStore opens the catalog, applying the schema, for the duration of fn.
func (c *commandContext) withStore(fn func(*config.Config, *catalog.Store, *slog.Logger) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}
	store, err := catalog.Open(cfg)
	if err != nil {
		logger.Error("open catalog", logging.Error(err))
		return fmt.Errorf("open catalog: %w", err)
	}
	defer store.Close()
	return fn(cfg, store, logger)
}

// newRunner builds the full pass set over store.
func (c *commandContext) newRunner(cfg *config.Config, store *catalog.Store, logger *slog.Logger) *pipeline.Runner {
	m := c.ensureMetrics()
	components := pipeline.NewComponents(cfg, store, logger, m)
	return pipeline.NewRunner(cfg.LockPath(), components.Passes(), notifications.NewService(cfg), logger, m)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
