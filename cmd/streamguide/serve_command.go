package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"

	"streamguide/internal/catalog"
	"streamguide/internal/config"
	"streamguide/internal/logging"
	"streamguide/internal/pipeline"
	"streamguide/internal/publish"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string
	var withSchedule bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the published catalog over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store, logger *slog.Logger) error {
				opts := publish.ServerOptions{
					Bind:          cfg.API.Bind,
					CacheTTL:      time.Duration(cfg.API.CacheTTLSeconds) * time.Second,
					RatePerSecond: cfg.API.RatePerSecond,
					Burst:         cfg.API.Burst,
					TrustProxy:    cfg.API.TrustProxy,
				}
				if b := strings.TrimSpace(bind); b != "" {
					opts.Bind = b
				}

				var scheduler *pipeline.Scheduler
				if withSchedule {
					var err error
					scheduler, err = pipeline.NewScheduler(ctx.newRunner(cfg, store, logger), pipeline.ModeDaily, cfg.Schedule.Cron, logger)
					if err != nil {
						return err
					}
				}

				server := publish.NewServer(store, opts, logger, ctx.ensureMetrics())
				if scheduler != nil {
					scheduler.OnRunComplete(func(pipeline.Report) { server.Invalidate() })
				}
				runCtx := cmd.Context()
				if err := server.Start(runCtx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Serving catalog API on http://%s/api/shows\n", server.Addr())

				var wg conc.WaitGroup
				if scheduler != nil {
					wg.Go(func() {
						if err := scheduler.Run(runCtx); err != nil {
							logger.Error("scheduler stopped", logging.Error(err))
						}
					})
				}
				<-runCtx.Done()
				server.Stop()
				wg.Wait()
				logger.Info("streamguide server shutting down")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (overrides api.bind)")
	cmd.Flags().BoolVar(&withSchedule, "schedule", false, "Also run the daily pipeline on schedule.cron")
	return cmd
}
