package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"streamguide/internal/catalog"
	"streamguide/internal/config"
	"streamguide/internal/pipeline"
)

func newInitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the catalog schema and seed streaming services",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store, _ *slog.Logger) error {
				platforms, err := store.Services(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Catalog ready at %s\n", store.Path())
				fmt.Fprintf(out, "%d streaming services configured, %d tracked for %s\n",
					len(platforms), len(cfg.Catalog.Services), cfg.Catalog.Country)
				return nil
			})
		},
	}
}

type modeCommand struct {
	use     string
	aliases []string
	short   string
	mode    pipeline.Mode
}

var modeCommands = []modeCommand{
	{use: "bulk", short: "Import the TMDB daily export of every movie and series", mode: pipeline.ModeBulk},
	{use: "seed", short: "Resolve the curated seed CSVs against TMDB", mode: pipeline.ModeSeed},
	{use: "pipeline", short: "Run the daily enrichment pipeline", mode: pipeline.ModeDaily},
	{use: "pipeline:full", short: "Run the seeder followed by the daily pipeline", mode: pipeline.ModeFull},
	{use: "pipeline:verify", aliases: []string{"verify"}, short: "Verify stored direct links", mode: pipeline.ModeVerify},
	{use: "generate", aliases: []string{"publish"}, short: "Write the published catalog artifacts", mode: pipeline.ModePublish},
}

func newPipelineCommands(ctx *commandContext) []*cobra.Command {
	cmds := make([]*cobra.Command, 0, len(modeCommands))
	for _, mc := range modeCommands {
		cmds = append(cmds, newModeCommand(ctx, mc))
	}
	return cmds
}

func newModeCommand(ctx *commandContext, mc modeCommand) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:     mc.use,
		Aliases: mc.aliases,
		Short:   mc.short,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store, logger *slog.Logger) error {
				runner := ctx.newRunner(cfg, store, logger)
				report, runErr := runner.Run(cmd.Context(), mc.mode)
				switch {
				case len(report.Passes) == 0:
				case jsonOutput:
					if err := writeJSON(cmd, reportView(report)); err != nil {
						return err
					}
				default:
					fmt.Fprintln(cmd.OutOrStdout(), renderReport(report))
				}
				return runErr
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run report as JSON")
	return cmd
}

type passJSON struct {
	Name      string  `json:"name"`
	Outcome   string  `json:"outcome"`
	Detail    string  `json:"detail,omitempty"`
	Published int     `json:"published,omitempty"`
	Seconds   float64 `json:"seconds"`
	Error     string  `json:"error,omitempty"`
}

type reportJSON struct {
	RunID   string     `json:"run_id"`
	Mode    string     `json:"mode"`
	Started time.Time  `json:"started"`
	Seconds float64    `json:"seconds"`
	Failed  int        `json:"failed"`
	Passes  []passJSON `json:"passes"`
}

func reportView(report pipeline.Report) reportJSON {
	view := reportJSON{
		RunID:   report.RunID,
		Mode:    string(report.Mode),
		Started: report.Started.UTC(),
		Seconds: report.Duration.Seconds(),
		Failed:  report.Failed(),
		Passes:  make([]passJSON, 0, len(report.Passes)),
	}
	for _, p := range report.Passes {
		pj := passJSON{
			Name:      p.Name,
			Outcome:   p.Outcome,
			Detail:    p.Detail,
			Published: p.Published,
			Seconds:   p.Duration.Seconds(),
		}
		if p.Err != nil {
			pj.Error = p.Err.Error()
		}
		view.Passes = append(view.Passes, pj)
	}
	return view
}

func renderReport(report pipeline.Report) string {
	rows := make([][]string, 0, len(report.Passes))
	for _, p := range report.Passes {
		detail := p.Detail
		if p.Err != nil {
			detail = p.Err.Error()
		}
		rows = append(rows, []string{p.Name, p.Outcome, formatDuration(p.Duration), detail})
	}
	title := fmt.Sprintf("%s run %s (%s)", report.Mode, report.RunID, formatDuration(report.Duration))
	return renderTable(title, []string{"Pass", "Outcome", "Duration", "Detail"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft})
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	default:
		return d.Round(100 * time.Millisecond).String()
	}
}
