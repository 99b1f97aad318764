package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"streamguide/internal/metrics"
)

func TestProviderCallsExposed(t *testing.T) {
	m := metrics.New()
	m.ProviderCall("watchmode", true)
	m.ProviderCall("watchmode", true)
	m.ProviderCall("watchmode", false)
	m.PassItems("linkcheck", "live", 3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	text := string(body)

	for _, want := range []string{
		`streamguide_provider_calls_total{provider="watchmode",success="true"} 2`,
		`streamguide_provider_calls_total{provider="watchmode",success="false"} 1`,
		`streamguide_pass_items_total{pass="linkcheck",result="live"} 3`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	m.ProviderCall("tmdb", true)
	m.PassRun("metadata", "ok")
	m.LinkCheck("dead")
	m.APIRequest("/api/shows", 200)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Fatalf("expected 404 from nil handler, got %d", rec.Code)
	}
}

func TestPassRunCounts(t *testing.T) {
	m := metrics.New()
	m.PassRun("presence", "ok")
	m.PassRun("presence", "ok")

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != "streamguide_pass_runs_total" {
			continue
		}
		series := family.GetMetric()
		if len(series) != 1 {
			t.Fatalf("expected one series, got %d", len(series))
		}
		if got := series[0].GetCounter().GetValue(); got != 2 {
			t.Fatalf("expected 2 runs, got %v", got)
		}
		return
	}
	t.Fatal("pass_runs_total not gathered")
}
