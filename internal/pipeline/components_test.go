package pipeline_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"streamguide/internal/catalog"
	"streamguide/internal/logging"
	"streamguide/internal/pipeline"
	"streamguide/internal/publish"
	"streamguide/internal/testsupport"
)

func TestComponentsDailyOnEmptyCatalog(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithTMDB(server.URL))
	cfg.Watchmode.APIKey = ""
	cfg.MOTN.APIKey = ""
	store := testsupport.MustOpenStore(t, cfg)

	components := pipeline.NewComponents(cfg, store, logging.NewNop(), nil)
	if components.Watchmode != nil || components.MOTN != nil {
		t.Fatal("direct link enrichers should be nil without keys")
	}
	runner := pipeline.NewRunner(cfg.LockPath(), components.Passes(), nil, logging.NewNop(), nil)

	report, err := runner.Run(context.Background(), pipeline.ModeDaily)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	outcomes := make(map[string]string, len(report.Passes))
	for _, p := range report.Passes {
		outcomes[p.Name] = p.Outcome
	}
	want := map[string]string{
		pipeline.PassMetadata:  pipeline.OutcomeOK,
		pipeline.PassPresence:  pipeline.OutcomeOK,
		pipeline.PassWatchmode: pipeline.OutcomeSkipped,
		pipeline.PassMOTN:      pipeline.OutcomeSkipped,
		pipeline.PassVerify:    pipeline.OutcomeOK,
		pipeline.PassPublish:   pipeline.OutcomeOK,
	}
	for name, outcome := range want {
		if outcomes[name] != outcome {
			t.Fatalf("pass %s outcome = %q, want %q (all: %v)", name, outcomes[name], outcome, outcomes)
		}
	}
	for _, file := range []string{publish.ShowsFile, publish.ServicesFile} {
		if _, err := os.Stat(filepath.Join(cfg.Paths.PublishDir, file)); err != nil {
			t.Fatalf("expected %s: %v", file, err)
		}
	}
}

func TestComponentsWithoutTMDBKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.TMDB.APIKey = ""
	cfg.Watchmode.APIKey = ""
	cfg.MOTN.APIKey = ""
	store := testsupport.MustOpenStore(t, cfg)

	components := pipeline.NewComponents(cfg, store, logging.NewNop(), nil)
	if components.Metadata != nil || components.Seeder != nil {
		t.Fatal("TMDB API passes should not be built without a key")
	}
	runner := pipeline.NewRunner(cfg.LockPath(), components.Passes(), nil, logging.NewNop(), nil)

	report, err := runner.Run(context.Background(), pipeline.ModeDaily)
	if err != nil {
		t.Fatalf("daily run without TMDB: %v", err)
	}
	want := []struct{ name, outcome string }{
		{pipeline.PassMetadata, pipeline.OutcomeSkipped},
		{pipeline.PassPresence, pipeline.OutcomeSkipped},
		{pipeline.PassWatchmode, pipeline.OutcomeSkipped},
		{pipeline.PassMOTN, pipeline.OutcomeSkipped},
		{pipeline.PassVerify, pipeline.OutcomeOK},
		{pipeline.PassPublish, pipeline.OutcomeOK},
	}
	if len(report.Passes) != len(want) {
		t.Fatalf("expected %d passes, got %+v", len(want), report.Passes)
	}
	for i, w := range want {
		if got := report.Passes[i]; got.Name != w.name || got.Outcome != w.outcome {
			t.Fatalf("pass %d = %s/%s, want %s/%s", i, got.Name, got.Outcome, w.name, w.outcome)
		}
	}

	report, err = runner.Run(context.Background(), pipeline.ModeSeed)
	if err != nil || len(report.Passes) != 1 || report.Passes[0].Outcome != pipeline.OutcomeSkipped {
		t.Fatalf("seed without TMDB: err=%v passes=%+v", err, report.Passes)
	}
}

func TestBulkRunsWithoutTMDBKey(t *testing.T) {
	gzipped := func(body string) []byte {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, _ = zw.Write([]byte(body))
		_ = zw.Close()
		return buf.Bytes()
	}
	movies := gzipped(`{"id":7,"original_title":"Seven"}` + "\n")
	series := gzipped("")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "" {
			t.Errorf("export request carried an api key: %s", r.URL)
		}
		if strings.HasPrefix(r.URL.Path, "/movie_ids_") {
			_, _ = w.Write(movies)
			return
		}
		_, _ = w.Write(series)
	}))
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t)
	cfg.TMDB.APIKey = ""
	cfg.TMDB.ExportBaseURL = server.URL
	store := testsupport.MustOpenStore(t, cfg)

	components := pipeline.NewComponents(cfg, store, logging.NewNop(), nil)
	runner := pipeline.NewRunner(cfg.LockPath(), components.Passes(), nil, logging.NewNop(), nil)

	report, err := runner.Run(context.Background(), pipeline.ModeBulk)
	if err != nil {
		t.Fatalf("bulk without TMDB key: %v", err)
	}
	if len(report.Passes) != 1 || report.Passes[0].Outcome != pipeline.OutcomeOK {
		t.Fatalf("unexpected report %+v", report.Passes)
	}
	show, err := store.GetShowByTMDBID(context.Background(), 7)
	if err != nil || show == nil || show.Type != catalog.ShowTypeMovie {
		t.Fatalf("expected imported movie, got %+v err=%v", show, err)
	}
}
