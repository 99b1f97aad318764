package main

import (
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"streamguide/internal/catalog"
	"streamguide/internal/pipeline"
	"streamguide/internal/quota"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Run", statusWarn, "in progress", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Run:", "[WARN] in progress")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Run", statusOK, "idle", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestProviderLines(t *testing.T) {
	providers := []providerStatus{
		{Name: "tmdb", Configured: true, Today: 12, Budget: quota.Budget{Remaining: quota.Unlimited}},
		{Name: "watchmode", Configured: true, Budget: quota.Budget{
			Windows:   []quota.WindowUsage{{Name: "daily", Limit: 30, Used: 30}, {Name: "monthly", Limit: 1000, Used: 400, Remaining: 600}},
			Remaining: 0,
		}},
		{Name: "motn", Configured: false},
	}
	lines := providerLines(providers, false)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "[OK] 12 calls today") {
		t.Fatalf("unexpected tmdb line %q", lines[0])
	}
	if !strings.Contains(lines[1], "[WARN] budget exhausted (daily 30/30, monthly 400/1000)") {
		t.Fatalf("unexpected watchmode line %q", lines[1])
	}
	if !strings.Contains(lines[2], "[WARN] api key not set") {
		t.Fatalf("unexpected motn line %q", lines[2])
	}
}

func TestRenderCatalogTableListsEnrichStatuses(t *testing.T) {
	table := renderCatalogTable(catalog.Stats{
		Shows:    10,
		Featured: 4,
		EnrichStatus: map[catalog.EnrichStatus]int{
			catalog.StatusPending:  3,
			catalog.StatusComplete: 1,
		},
	})
	for _, want := range []string{"Featured", "Enrichment complete", "Enrichment pending"} {
		if !strings.Contains(table, want) {
			t.Fatalf("expected %q in table:\n%s", want, table)
		}
	}
	if strings.Index(table, "Enrichment complete") > strings.Index(table, "Enrichment pending") {
		t.Fatalf("expected sorted enrichment rows:\n%s", table)
	}
}

func TestRenderReportShowsErrors(t *testing.T) {
	report := pipeline.Report{
		RunID:    "run-1",
		Mode:     pipeline.ModeVerify,
		Duration: 1500 * time.Millisecond,
		Passes: []pipeline.PassReport{
			{Name: pipeline.PassVerify, Outcome: pipeline.OutcomeFailed, Err: fmt.Errorf("catalog locked")},
		},
	}
	out := renderReport(report)
	for _, want := range []string{"verify run run-1", "failed", "catalog locked"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in report:\n%s", want, out)
		}
	}
	view := reportView(report)
	if view.Failed != 1 || view.Passes[0].Error != "catalog locked" {
		t.Fatalf("unexpected view %+v", view)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}
