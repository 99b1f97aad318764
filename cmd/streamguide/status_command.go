package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"streamguide/internal/catalog"
	"streamguide/internal/config"
	"streamguide/internal/pipeline"
	"streamguide/internal/providers/motn"
	"streamguide/internal/providers/tmdb"
	"streamguide/internal/providers/watchmode"
	"streamguide/internal/quota"
)

type statusSnapshot struct {
	Database  string           `json:"database"`
	Running   bool             `json:"running"`
	Stats     catalog.Stats    `json:"stats"`
	Providers []providerStatus `json:"providers"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show catalog counts and provider budget usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store, logger *slog.Logger) error {
				snapshot, err := collectStatus(cmd.Context(), cfg, store, logger)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, snapshot)
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				for _, line := range renderSectionHeader("Pipeline", colorize) {
					fmt.Fprintln(out, line)
				}
				fmt.Fprintln(out, renderStatusLine("Database", statusInfo, snapshot.Database, colorize))
				if snapshot.Running {
					fmt.Fprintln(out, renderStatusLine("Run", statusWarn, "in progress (lock held)", colorize))
				} else {
					fmt.Fprintln(out, renderStatusLine("Run", statusOK, "idle", colorize))
				}
				notify := strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""
				fmt.Fprintln(out, renderStatusLine("Notifications", statusInfo, "ntfy "+yesNo(notify), colorize))
				fmt.Fprintln(out)

				for _, line := range renderSectionHeader("Provider Budgets", colorize) {
					fmt.Fprintln(out, line)
				}
				for _, line := range providerLines(snapshot.Providers, colorize) {
					fmt.Fprintln(out, line)
				}
				fmt.Fprintln(out)

				fmt.Fprintln(out, renderCatalogTable(snapshot.Stats))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print status as JSON")
	return cmd
}

func collectStatus(ctx context.Context, cfg *config.Config, store *catalog.Store, logger *slog.Logger) (statusSnapshot, error) {
	stats, err := store.Stats(ctx)
	if err != nil {
		return statusSnapshot{}, err
	}
	snapshot := statusSnapshot{Database: store.Path(), Stats: stats}

	lock, err := pipeline.AcquireLock(cfg.LockPath())
	switch {
	case errors.Is(err, pipeline.ErrLocked):
		snapshot.Running = true
	case err != nil:
		return statusSnapshot{}, err
	default:
		_ = lock.Release()
	}

	tracker := quota.NewTracker(store, nil, logger)
	providers := []struct {
		name       string
		configured bool
		windows    []quota.Window
	}{
		{tmdb.Provider, strings.TrimSpace(cfg.TMDB.APIKey) != "", nil},
		{watchmode.Provider, strings.TrimSpace(cfg.Watchmode.APIKey) != "", []quota.Window{quota.Daily(cfg.Watchmode.DailyBudget), quota.Monthly(cfg.Watchmode.MonthlyBudget)}},
		{motn.Provider, strings.TrimSpace(cfg.MOTN.APIKey) != "", []quota.Window{quota.Daily(cfg.MOTN.DailyBudget)}},
	}
	today := quota.Daily(0).Start(time.Now())
	for _, p := range providers {
		budget, err := tracker.Check(ctx, p.name, p.windows)
		if err != nil {
			return statusSnapshot{}, err
		}
		calls, err := tracker.CountCalls(ctx, p.name, today)
		if err != nil {
			return statusSnapshot{}, err
		}
		snapshot.Providers = append(snapshot.Providers, providerStatus{
			Name:       p.name,
			Configured: p.configured,
			Today:      calls,
			Budget:     budget,
			Usage:      budget.String(),
		})
	}
	return snapshot, nil
}
