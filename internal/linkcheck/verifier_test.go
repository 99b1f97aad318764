package linkcheck_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"streamguide/internal/catalog"
	"streamguide/internal/linkcheck"
	"streamguide/internal/testsupport"
)

func newLinkServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/live", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD, got %s", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/live", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.WriteHeader(http.StatusOK)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestRunClassifiesAndRecordsChecks(t *testing.T) {
	server := newLinkServer(t)
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	showID := testsupport.SeedShow(t, store, 603, "The Matrix", catalog.ShowTypeMovie)

	links := map[string]string{
		"netflix": "/live",
		"hulu":    "/gone",
		"prime":   "/moved",
		"max":     "/slow",
	}
	for service, path := range links {
		if err := store.UpsertAvailability(ctx, catalog.Availability{
			ShowID:     showID,
			ServiceID:  service,
			AccessType: catalog.AccessSubscription,
			StreamURL:  server.URL + path,
			Source:     catalog.SourceWatchmode,
		}); err != nil {
			t.Fatalf("UpsertAvailability: %v", err)
		}
	}

	checkedAt := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	verifier := linkcheck.New(store, server.Client(), linkcheck.Options{
		BatchSize: 10,
		Timeout:   150 * time.Millisecond,
		FreeFresh: 7 * 24 * time.Hour,
		PaidFresh: 30 * 24 * time.Hour,
	}, nil, nil)
	verifier.SetClock(testsupport.FixedClock(checkedAt))

	result, err := verifier.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Checked != 4 || result.Live != 2 || result.Dead != 1 || result.Timeout != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	rows, err := store.AvailabilityForShow(ctx, showID)
	if err != nil {
		t.Fatalf("AvailabilityForShow: %v", err)
	}
	want := map[string]int{"netflix": 200, "hulu": 404, "prime": 200, "max": 0}
	for _, row := range rows {
		if row.URLStatus == nil || *row.URLStatus != want[row.ServiceID] {
			t.Fatalf("%s status = %v, want %d", row.ServiceID, row.URLStatus, want[row.ServiceID])
		}
		if row.URLVerifiedAt == nil || !row.URLVerifiedAt.Equal(checkedAt) {
			t.Fatalf("%s verified_at = %v, want %v", row.ServiceID, row.URLVerifiedAt, checkedAt)
		}
	}

	again, err := verifier.Run(ctx)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if again.Checked != 0 {
		t.Fatalf("fresh and dead links should not be re-checked: %+v", again)
	}
}

func TestCheckTimeoutReportsZero(t *testing.T) {
	server := newLinkServer(t)
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	verifier := linkcheck.New(store, server.Client(), linkcheck.Options{Timeout: 50 * time.Millisecond}, nil, nil)

	status, outcome, err := verifier.Check(context.Background(), server.URL+"/slow")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if status != 0 || outcome != linkcheck.OutcomeTimeout {
		t.Fatalf("Check = (%d, %s), want (0, timeout)", status, outcome)
	}

	status, outcome, err = verifier.Check(context.Background(), "http://127.0.0.1:1/unreachable")
	if err != nil {
		t.Fatalf("Check unreachable: %v", err)
	}
	if status != 0 || outcome != linkcheck.OutcomeDead {
		t.Fatalf("unreachable = (%d, %s), want (0, dead)", status, outcome)
	}
}
