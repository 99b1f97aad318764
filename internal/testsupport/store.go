package testsupport

import (
	"context"
	"testing"
	"time"

	"streamguide/internal/catalog"
	"streamguide/internal/config"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedShow inserts a featured show with priority 5 and returns its id.
func SeedShow(t testing.TB, store *catalog.Store, tmdbID int64, title string, kind catalog.ShowType) int64 {
	t.Helper()

	ctx := context.Background()
	id, _, err := store.InsertShowIfMissing(ctx, catalog.NewShow{
		TMDBID:   tmdbID,
		Title:    title,
		Type:     kind,
		Featured: true,
	})
	if err != nil {
		t.Fatalf("InsertShowIfMissing: %v", err)
	}
	if err := store.UpsertFeatured(ctx, id, 5, ""); err != nil {
		t.Fatalf("UpsertFeatured: %v", err)
	}
	return id
}

// FixedClock returns a clock that always reports at.
func FixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
