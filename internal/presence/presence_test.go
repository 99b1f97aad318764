package presence_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"streamguide/internal/catalog"
	"streamguide/internal/presence"
	"streamguide/internal/providers/tmdb"
	"streamguide/internal/testsupport"
)

const matrixProviders = `{"id":603,"results":{
	"US":{"link":"https://www.themoviedb.org/movie/603/watch",
		"flatrate":[{"provider_id":8,"provider_name":"Netflix"}],
		"ads":[{"provider_id":73,"provider_name":"Tubi TV"}],
		"rent":[{"provider_id":2,"provider_name":"Apple TV"}],
		"buy":[{"provider_id":9,"provider_name":"Amazon Prime Video"}]},
	"GB":{"flatrate":[{"provider_id":15,"provider_name":"Hulu"}]}
}}`

func TestRunUpsertsTrackedPresenceRows(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	seen := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), paths...)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		if r.URL.Path != "/movie/603/watch/providers" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(matrixProviders))
	}))
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	movie := testsupport.SeedShow(t, store, 603, "The Matrix", catalog.ShowTypeMovie)
	series := testsupport.SeedShow(t, store, 1396, "Breaking Bad", catalog.ShowTypeSeries)
	for _, id := range []int64{movie, series} {
		if err := store.UpdateShowMetadata(ctx, id, catalog.Metadata{}, time.Now()); err != nil {
			t.Fatalf("UpdateShowMetadata: %v", err)
		}
	}

	client, err := tmdb.New("key", server.URL, "")
	if err != nil {
		t.Fatalf("tmdb.New: %v", err)
	}
	enricher := presence.New(store, client, presence.Options{
		Region:  "us",
		Tracked: []string{"netflix", "tubi", "hulu"},
		Batch:   10,
	}, nil, nil)

	result, err := enricher.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Processed != 2 || result.Rows != 2 || result.NotTracked != 1 || result.Failed != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	rows, err := store.AvailabilityForShow(ctx, movie)
	if err != nil {
		t.Fatalf("AvailabilityForShow: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected two rows, got %+v", rows)
	}
	want := map[string]catalog.AccessType{"netflix": catalog.AccessSubscription, "tubi": catalog.AccessFree}
	for _, row := range rows {
		if want[row.ServiceID] != row.AccessType {
			t.Fatalf("unexpected row %+v", row)
		}
		if row.StreamURL != "" || row.Source != catalog.SourceTMDBProviders {
			t.Fatalf("presence rows must be URL-less tmdb rows: %+v", row)
		}
	}

	before := len(seen())
	again, err := enricher.Run(ctx)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	latest := seen()[before:]
	if again.Processed != 1 || len(latest) != 1 || latest[0] != "/tv/1396/watch/providers" {
		t.Fatalf("second run should only revisit the untracked series: %+v %v", again, latest)
	}
}
