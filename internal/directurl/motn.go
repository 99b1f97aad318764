package directurl

import (
	"context"

	"streamguide/internal/catalog"
	"streamguide/internal/providers/motn"
	"streamguide/internal/quota"
	"streamguide/internal/servicemap"
)

// MOTNClient is the Streaming Availability API surface used here.
type MOTNClient interface {
	GetShow(ctx context.Context, id string) (*motn.Show, error)
	SearchByTitle(ctx context.Context, title, showType string) ([]motn.Show, error)
	Country() string
}

// MOTNSource adapts MOTN to Source.
type MOTNSource struct {
	client  MOTNClient
	windows []quota.Window
}

// NewMOTNSource builds a source with a daily budget.
func NewMOTNSource(client MOTNClient, dailyBudget int) *MOTNSource {
	return &MOTNSource{
		client:  client,
		windows: []quota.Window{quota.Daily(dailyBudget)},
	}
}

// Name implements Source.
func (s *MOTNSource) Name() string { return motn.Provider }

// Windows implements Source.
func (s *MOTNSource) Windows() []quota.Window { return s.windows }

// Lookup fetches by IMDb id, or by TMDB key when the IMDb id is unknown.
func (s *MOTNSource) Lookup(ctx context.Context, target Target) (*Match, error) {
	key := target.IMDBID
	if key == "" {
		key = motn.TMDBKey(target.Type.TMDBKind(), target.TMDBID)
	}
	show, err := s.client.GetShow(ctx, key)
	if err != nil || show == nil {
		return nil, err
	}
	return s.match(show), nil
}

// Search takes the first title search result.
func (s *MOTNSource) Search(ctx context.Context, target Target) (*Match, error) {
	shows, err := s.client.SearchByTitle(ctx, target.Title, showTypeParam(target.Type))
	if err != nil || len(shows) == 0 {
		return nil, err
	}
	return s.match(&shows[0]), nil
}

func (s *MOTNSource) match(show *motn.Show) *Match {
	match := &Match{}
	for _, opt := range show.Options(s.client.Country()) {
		serviceID, ok := servicemap.Lookup(servicemap.MOTN, opt.Service.ID)
		if !ok {
			continue
		}
		access, ok := servicemap.MOTNAccess(opt.Type)
		if !ok {
			continue
		}
		match.Offers = append(match.Offers, Offer{
			ServiceID: serviceID,
			Access:    access,
			URL:       opt.Link,
			Price:     opt.PriceFloat(),
		})
	}
	match.Offers = dedupOffers(match.Offers)
	return match
}

var _ Source = (*MOTNSource)(nil)

func showTypeParam(kind catalog.ShowType) string {
	if kind == catalog.ShowTypeSeries {
		return "series"
	}
	return "movie"
}
