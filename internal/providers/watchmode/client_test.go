package watchmode_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"streamguide/internal/providers/watchmode"
	"streamguide/internal/services"
)

type fakeRecorder struct {
	statuses []int
}

func (f *fakeRecorder) RecordCall(_ context.Context, _, _ string, status int, _ error) {
	f.statuses = append(f.statuses, status)
}

func TestTitleFiltersRegion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/title/tmdb:movie:289/details/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("apiKey") != "wm" || r.URL.Query().Get("append_to_response") != "sources" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"id": 1174318, "title": "Casablanca", "sources": [
			{"source_id": 387, "name": "Max", "type": "sub", "region": "US", "web_url": "https://play.max.com/m/1"},
			{"source_id": 349, "name": "iTunes", "type": "rent", "region": "US", "web_url": "https://tv.apple.com/x", "price": 3.99},
			{"source_id": 203, "name": "Netflix", "type": "sub", "region": "GB", "web_url": "https://www.netflix.com/title/1"}
		]}`))
	}))
	t.Cleanup(server.Close)

	rec := &fakeRecorder{}
	client, err := watchmode.New("wm", server.URL, "us", watchmode.WithRecorder(rec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	title, err := client.Title(context.Background(), watchmode.TMDBKey("movie", 289))
	if err != nil {
		t.Fatalf("Title: %v", err)
	}
	if title == nil || title.ID != 1174318 {
		t.Fatalf("unexpected title %#v", title)
	}
	sources := client.RegionalSources(title)
	if len(sources) != 2 {
		t.Fatalf("expected 2 US sources, got %d", len(sources))
	}
	if sources[1].Price == nil || *sources[1].Price != 3.99 {
		t.Fatalf("price not decoded: %#v", sources[1])
	}
	if len(rec.statuses) != 1 || rec.statuses[0] != 200 {
		t.Fatalf("recorded %v", rec.statuses)
	}
}

func TestTitleMissesOn404And500(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusInternalServerError} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		rec := &fakeRecorder{}
		client, _ := watchmode.New("wm", server.URL, "US", watchmode.WithRecorder(rec))
		title, err := client.Title(context.Background(), "123")
		server.Close()
		if err != nil || title != nil {
			t.Fatalf("status %d: expected (nil, nil), got %v, %v", status, title, err)
		}
		if len(rec.statuses) != 1 || rec.statuses[0] != status {
			t.Fatalf("status %d: recorded %v", status, rec.statuses)
		}
	}
}

func TestRateLimitIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	client, _ := watchmode.New("wm", server.URL, "US")
	_, err := client.Title(context.Background(), "123")
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("search_field") != "name" || q.Get("search_value") != "Casablanca" || q.Get("types") != "movie" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"title_results": [{"id": 1174318, "name": "Casablanca", "type": "movie", "year": 1942}]}`))
	}))
	t.Cleanup(server.Close)

	client, _ := watchmode.New("wm", server.URL, "US")
	results, err := client.Search(context.Background(), "Casablanca", "movie")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != 1174318 {
		t.Fatalf("unexpected results %#v", results)
	}
}

func TestNewRequiresKey(t *testing.T) {
	if _, err := watchmode.New(" ", "https://api.watchmode.com/v1", "US"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
