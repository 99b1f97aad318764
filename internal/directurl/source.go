package directurl

import (
	"context"

	"streamguide/internal/catalog"
	"streamguide/internal/quota"
)

// Target is a featured title awaiting links.
type Target struct {
	ShowID      int64
	TMDBID      int64
	IMDBID      string
	Title       string
	Type        catalog.ShowType
	WatchmodeID *int64
}

// Offer is one provider offer mapped onto an internal service id.
type Offer struct {
	ServiceID string
	Access    catalog.AccessType
	URL       string
	Price     *float64
}

// Match is a provider's answer for a title.
type Match struct {
	// ProviderTitleID is stored as the title's watchmode_id when set.
	ProviderTitleID *int64
	Offers          []Offer
}

// Source is a direct-link provider.
type Source interface {
	// Name is the quota provider and availability provenance.
	Name() string
	Windows() []quota.Window
	// Lookup is the keyed lookup. (nil, nil) means not found.
	Lookup(ctx context.Context, target Target) (*Match, error)
	// Search is the title and kind fallback. (nil, nil) means no result.
	Search(ctx context.Context, target Target) (*Match, error)
}

// searchCoster is implemented by sources whose Search issues more than one
// call.
type searchCoster interface {
	SearchCalls() int
}

func searchCalls(src Source) int {
	if c, ok := src.(searchCoster); ok && c.SearchCalls() > 0 {
		return c.SearchCalls()
	}
	return 1
}

func dedupOffers(offers []Offer) []Offer {
	seen := make(map[string]struct{}, len(offers))
	out := offers[:0]
	for _, o := range offers {
		key := o.ServiceID + "|" + string(o.Access)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, o)
	}
	return out
}
