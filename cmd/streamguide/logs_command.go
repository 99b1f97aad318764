package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"streamguide/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines  int
		follow bool
		filter logs.Filter
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent log records, optionally for a single run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.Paths.LogDir, logs.FileName)
			records, offset, err := logs.Tail(path, lines, filter)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 && !follow {
				fmt.Fprintf(out, "No matching log records in %s\n", path)
				return nil
			}
			for _, rec := range records {
				fmt.Fprintln(out, logs.Format(rec))
			}
			if !follow {
				return nil
			}
			return logs.Follow(cmd.Context(), path, offset, filter, func(rec logs.Record) {
				fmt.Fprintln(out, logs.Format(rec))
			})
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of records to show (0 for all)")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new records")
	cmd.Flags().StringVar(&filter.RunID, "run", "", "Only records for this run id")
	cmd.Flags().StringVar(&filter.Stage, "stage", "", "Only records for this pass")
	cmd.Flags().StringVar(&filter.MinLevel, "level", "", "Minimum level (debug, info, warn, error)")
	return cmd
}
