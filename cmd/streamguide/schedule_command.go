package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"streamguide/internal/catalog"
	"streamguide/internal/config"
	"streamguide/internal/pipeline"
)

func newScheduleCommand(ctx *commandContext) *cobra.Command {
	var spec string
	var modeName string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the pipeline on a cron schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := pipeline.ParseMode(modeName)
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store, logger *slog.Logger) error {
				cronSpec := cfg.Schedule.Cron
				if s := strings.TrimSpace(spec); s != "" {
					cronSpec = s
				}
				scheduler, err := pipeline.NewScheduler(ctx.newRunner(cfg, store, logger), mode, cronSpec, logger)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Running %s on %q; next run %s\n",
					mode, cronSpec, scheduler.Next(time.Now()).Local().Format(time.RFC1123))
				return scheduler.Run(cmd.Context())
			})
		},
	}

	cmd.Flags().StringVar(&spec, "cron", "", "Cron expression (overrides schedule.cron)")
	cmd.Flags().StringVar(&modeName, "mode", string(pipeline.ModeDaily), "Mode to run on each trigger")
	return cmd
}
