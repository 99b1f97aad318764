package directurl

import (
	"context"
	"strconv"

	"streamguide/internal/providers/watchmode"
	"streamguide/internal/quota"
	"streamguide/internal/servicemap"
)

// WatchmodeClient is the Watchmode API surface used here.
type WatchmodeClient interface {
	Title(ctx context.Context, key string) (*watchmode.Title, error)
	Search(ctx context.Context, name, kind string) ([]watchmode.SearchResult, error)
	RegionalSources(title *watchmode.Title) []watchmode.Source
}

// WatchmodeSource adapts Watchmode to Source.
type WatchmodeSource struct {
	client  WatchmodeClient
	windows []quota.Window
}

// NewWatchmodeSource builds a source with daily and monthly budgets.
func NewWatchmodeSource(client WatchmodeClient, dailyBudget, monthlyBudget int) *WatchmodeSource {
	return &WatchmodeSource{
		client:  client,
		windows: []quota.Window{quota.Daily(dailyBudget), quota.Monthly(monthlyBudget)},
	}
}

// Name implements Source.
func (s *WatchmodeSource) Name() string { return watchmode.Provider }

// Windows implements Source.
func (s *WatchmodeSource) Windows() []quota.Window { return s.windows }

// SearchCalls reports that a search is a name search plus a title lookup.
func (s *WatchmodeSource) SearchCalls() int { return 2 }

// Lookup fetches by stored Watchmode id, falling back to the TMDB key.
func (s *WatchmodeSource) Lookup(ctx context.Context, target Target) (*Match, error) {
	key := watchmode.TMDBKey(target.Type.TMDBKind(), target.TMDBID)
	if target.WatchmodeID != nil && *target.WatchmodeID > 0 {
		key = strconv.FormatInt(*target.WatchmodeID, 10)
	}
	return s.fetch(ctx, key)
}

// Search finds the title by name and fetches the first result.
func (s *WatchmodeSource) Search(ctx context.Context, target Target) (*Match, error) {
	results, err := s.client.Search(ctx, target.Title, target.Type.TMDBKind())
	if err != nil || len(results) == 0 {
		return nil, err
	}
	return s.fetch(ctx, strconv.FormatInt(results[0].ID, 10))
}

func (s *WatchmodeSource) fetch(ctx context.Context, key string) (*Match, error) {
	title, err := s.client.Title(ctx, key)
	if err != nil || title == nil {
		return nil, err
	}
	match := &Match{}
	if title.ID > 0 {
		id := title.ID
		match.ProviderTitleID = &id
	}
	for _, src := range s.client.RegionalSources(title) {
		serviceID, ok := servicemap.Lookup(servicemap.Watchmode, src.Name)
		if !ok {
			continue
		}
		access, ok := servicemap.WatchmodeAccess(src.Type)
		if !ok {
			continue
		}
		match.Offers = append(match.Offers, Offer{
			ServiceID: serviceID,
			Access:    access,
			URL:       src.WebURL,
			Price:     src.Price,
		})
	}
	match.Offers = dedupOffers(match.Offers)
	return match, nil
}

var _ Source = (*WatchmodeSource)(nil)
