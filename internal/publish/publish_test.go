package publish_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"streamguide/internal/catalog"
	"streamguide/internal/metrics"
	"streamguide/internal/publish"
	"streamguide/internal/testsupport"
)

func ratingPtr(v float64) *float64 { return &v }

// seedCatalog stores two featured titles. The first carries a live hulu link
// and a netflix link that verified as 404.
func seedCatalog(t *testing.T, store *catalog.Store) (int64, int64) {
	t.Helper()
	ctx := context.Background()
	matrix := testsupport.SeedShow(t, store, 603, "The Matrix", catalog.ShowTypeMovie)
	heat := testsupport.SeedShow(t, store, 949, "Heat", catalog.ShowTypeMovie)
	if err := store.UpdateShowMetadata(ctx, matrix, catalog.Metadata{Rating: ratingPtr(7.1)}, time.Now()); err != nil {
		t.Fatalf("UpdateShowMetadata: %v", err)
	}
	if err := store.UpdateShowMetadata(ctx, heat, catalog.Metadata{Rating: ratingPtr(8.3)}, time.Now()); err != nil {
		t.Fatalf("UpdateShowMetadata: %v", err)
	}

	for _, row := range []catalog.Availability{
		{ShowID: matrix, ServiceID: "netflix", AccessType: catalog.AccessSubscription, StreamURL: "https://www.netflix.com/title/1", Source: catalog.SourceWatchmode},
		{ShowID: matrix, ServiceID: "hulu", AccessType: catalog.AccessSubscription, StreamURL: "https://www.hulu.com/movie/1", Source: catalog.SourceWatchmode},
	} {
		if err := store.UpsertAvailability(ctx, row); err != nil {
			t.Fatalf("UpsertAvailability: %v", err)
		}
	}
	rows, err := store.AvailabilityForShow(ctx, matrix)
	if err != nil {
		t.Fatalf("AvailabilityForShow: %v", err)
	}
	for _, row := range rows {
		if row.ServiceID == "netflix" {
			if err := store.RecordVerification(ctx, row.ID, http.StatusNotFound, time.Now()); err != nil {
				t.Fatalf("RecordVerification: %v", err)
			}
		}
	}
	return matrix, heat
}

func TestGenerateWritesArtifactsWithout404Links(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	_, _ = seedCatalog(t, store)

	publisher := publish.NewPublisher(store, cfg.Paths.PublishDir, nil, nil)
	generatedAt := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	publisher.SetClock(testsupport.FixedClock(generatedAt))
	result, err := publisher.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.Shows != 2 || result.Services != len(cfg.Services) || result.Checksum == "" {
		t.Fatalf("unexpected result: %+v", result)
	}

	raw, err := os.ReadFile(filepath.Join(cfg.Paths.PublishDir, publish.ShowsFile))
	if err != nil {
		t.Fatalf("read shows.json: %v", err)
	}
	var doc publish.ShowsDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("decode shows.json: %v", err)
	}
	if !doc.GeneratedAt.Equal(generatedAt) || doc.Count != 2 {
		t.Fatalf("unexpected header: %+v", doc)
	}
	if doc.Shows[0].Title != "Heat" || doc.Shows[1].Title != "The Matrix" {
		t.Fatalf("shows not ordered by rating: %s, %s", doc.Shows[0].Title, doc.Shows[1].Title)
	}
	matrix := doc.Shows[1]
	if len(matrix.Services) != 1 || matrix.Services[0].ServiceID != "hulu" {
		t.Fatalf("404 link leaked into projection: %+v", matrix.Services)
	}
	if doc.Shows[0].Services == nil {
		t.Fatal("titles without availability should encode an empty list")
	}

	// The 404 row stays in storage.
	rows, err := store.AvailabilityForShow(context.Background(), matrix.ID)
	if err != nil {
		t.Fatalf("AvailabilityForShow: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("stored rows = %d, want 2", len(rows))
	}

	if _, err := os.Stat(filepath.Join(cfg.Paths.PublishDir, publish.ServicesFile)); err != nil {
		t.Fatalf("services.json missing: %v", err)
	}
}

func TestGenerateRequiresPublishDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	if _, err := publish.NewPublisher(store, "", nil, nil).Generate(context.Background()); err == nil {
		t.Fatal("expected configuration error")
	}
}

func newAPI(t *testing.T, opts publish.ServerOptions) (*publish.Server, *catalog.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	seedCatalog(t, store)
	return publish.NewServer(store, opts, nil, metrics.New()), store
}

func get(t *testing.T, handler http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "203.0.113.7:5123"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestShowsEndpointCachesAndSetsHeaders(t *testing.T) {
	server, store := newAPI(t, publish.ServerOptions{CacheTTL: 300 * time.Second, RatePerSecond: 100, Burst: 100})
	handler := server.Handler()

	first := get(t, handler, "/api/shows", nil)
	if first.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", first.Code, first.Body.String())
	}
	if got := first.Header().Get("Cache-Control"); got != "public, max-age=300" {
		t.Fatalf("Cache-Control = %q", got)
	}
	if first.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing request id header")
	}
	var doc publish.ShowsDocument
	if err := json.Unmarshal(first.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Count != 2 {
		t.Fatalf("count = %d", doc.Count)
	}

	// A new featured title is invisible until the cache is invalidated.
	testsupport.SeedShow(t, store, 11, "Star Wars", catalog.ShowTypeMovie)
	cached := get(t, handler, "/api/shows", nil)
	if cached.Body.String() != first.Body.String() {
		t.Fatal("expected cached body")
	}
	etag := cached.Header().Get("ETag")
	if notModified := get(t, handler, "/api/shows", map[string]string{"If-None-Match": etag}); notModified.Code != http.StatusNotModified {
		t.Fatalf("conditional status = %d", notModified.Code)
	}

	server.Invalidate()
	fresh := get(t, handler, "/api/shows", nil)
	if err := json.Unmarshal(fresh.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Count != 3 {
		t.Fatalf("count after invalidate = %d", doc.Count)
	}
}

func TestShowsEndpointFiltersByService(t *testing.T) {
	server, _ := newAPI(t, publish.ServerOptions{RatePerSecond: 100, Burst: 100})
	rec := get(t, server.Handler(), "/api/shows?service=hulu", nil)
	var doc publish.ShowsDocument
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Count != 1 || doc.Shows[0].Title != "The Matrix" {
		t.Fatalf("unexpected filter result: %+v", doc)
	}
	if none := get(t, server.Handler(), "/api/shows?service=netflix", nil); !jsonCountIs(t, none, 0) {
		t.Fatal("404 netflix link should not match the filter")
	}
}

func TestShowsEndpointRejectsUnknownService(t *testing.T) {
	server, _ := newAPI(t, publish.ServerOptions{RatePerSecond: 100, Burst: 100})
	rec := get(t, server.Handler(), "/api/shows?service=not-a-service", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "unknown service") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
	if ok := get(t, server.Handler(), "/api/shows?service=HULU", nil); !jsonCountIs(t, ok, 1) {
		t.Fatal("known service filter should be case-insensitive")
	}
}

func jsonCountIs(t *testing.T, rec *httptest.ResponseRecorder, want int) bool {
	t.Helper()
	var doc publish.ShowsDocument
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return doc.Count == want
}

func TestRateLimitPerClient(t *testing.T) {
	server, _ := newAPI(t, publish.ServerOptions{RatePerSecond: 0.5, Burst: 2})
	handler := server.Handler()

	for i := 0; i < 2; i++ {
		if rec := get(t, handler, "/api/health", nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
	limited := get(t, handler, "/api/health", nil)
	if limited.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", limited.Code)
	}
	if limited.Header().Get("Retry-After") != "2" {
		t.Fatalf("Retry-After = %q", limited.Header().Get("Retry-After"))
	}

	// Forwarding headers are ignored unless a proxy is trusted.
	spoofed := get(t, handler, "/api/health", map[string]string{"X-Forwarded-For": "198.51.100.4, 10.0.0.1"})
	if spoofed.Code != http.StatusTooManyRequests {
		t.Fatalf("spoofed client status = %d, want 429", spoofed.Code)
	}
}

func TestRateLimitBehindTrustedProxy(t *testing.T) {
	server, _ := newAPI(t, publish.ServerOptions{RatePerSecond: 0.5, Burst: 1, TrustProxy: true})
	handler := server.Handler()

	first := map[string]string{"X-Forwarded-For": "198.51.100.4, 10.0.0.1"}
	if rec := get(t, handler, "/api/health", first); rec.Code != http.StatusOK {
		t.Fatalf("first client status = %d", rec.Code)
	}
	if rec := get(t, handler, "/api/health", first); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("first client repeat status = %d, want 429", rec.Code)
	}
	if rec := get(t, handler, "/api/health", map[string]string{"X-Real-IP": "198.51.100.9"}); rec.Code != http.StatusOK {
		t.Fatalf("second client status = %d", rec.Code)
	}
}

func TestServicesAndMetricsRoutes(t *testing.T) {
	server, _ := newAPI(t, publish.ServerOptions{RatePerSecond: 100, Burst: 100})
	handler := server.Handler()

	rec := get(t, handler, "/api/services", map[string]string{"X-Request-ID": "abc-123"})
	if rec.Code != http.StatusOK || rec.Header().Get("X-Request-ID") != "abc-123" {
		t.Fatalf("status = %d, request id = %q", rec.Code, rec.Header().Get("X-Request-ID"))
	}
	var doc publish.ServicesDocument
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Services) == 0 {
		t.Fatal("expected services")
	}

	metricsRec := get(t, handler, "/metrics", nil)
	if metricsRec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", metricsRec.Code)
	}
	if !strings.Contains(metricsRec.Body.String(), `streamguide_api_requests_total{code="200",route="/api/services"} 1`) {
		t.Fatalf("api request metric missing:\n%s", metricsRec.Body.String())
	}

	if missing := get(t, handler, "/api/nope", nil); missing.Code != http.StatusNotFound {
		t.Fatalf("unknown route status = %d", missing.Code)
	}
}

func TestServerStartAndStop(t *testing.T) {
	server, _ := newAPI(t, publish.ServerOptions{Bind: "127.0.0.1:0", RatePerSecond: 100, Burst: 100})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := server.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	resp, err := http.Get("http://" + server.Addr() + "/api/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}
	server.Stop()
}
