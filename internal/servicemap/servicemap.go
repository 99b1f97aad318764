package servicemap

import (
	"strconv"
	"strings"

	"streamguide/internal/catalog"
)

// Provider names a mapping namespace.
type Provider string

const (
	TMDB      Provider = "tmdb"
	Watchmode Provider = "watchmode"
	MOTN      Provider = "motn"
)

var tmdbProviders = map[int]string{
	8:    "netflix",
	9:    "prime",
	15:   "hulu",
	337:  "disney",
	1899: "max",
	350:  "appletv",
	531:  "paramount",
	386:  "peacock",
	526:  "amc",
	151:  "britbox",
	258:  "criterion",
	73:   "tubi",
	300:  "pluto",
	207:  "roku",
	613:  "freevee",
}

var watchmodeNames = map[string]string{
	"netflix":           "netflix",
	"amazon prime":      "prime",
	"prime video":       "prime",
	"hulu":              "hulu",
	"disney plus":       "disney",
	"disney+":           "disney",
	"hbo max":           "max",
	"max":               "max",
	"apple tv plus":     "appletv",
	"apple tv+":         "appletv",
	"paramount plus":    "paramount",
	"paramount+":        "paramount",
	"peacock":           "peacock",
	"amc plus":          "amc",
	"amc+":              "amc",
	"britbox":           "britbox",
	"criterion channel": "criterion",
	"tubi":              "tubi",
	"pluto tv":          "pluto",
	"the roku channel":  "roku",
	"amazon freevee":    "freevee",
	"freevee":           "freevee",
}

var motnServices = map[string]string{
	"netflix":   "netflix",
	"prime":     "prime",
	"hulu":      "hulu",
	"disney":    "disney",
	"hbo":       "max",
	"max":       "max",
	"apple":     "appletv",
	"paramount": "paramount",
	"peacock":   "peacock",
	"amc":       "amc",
	"britbox":   "britbox",
	"criterion": "criterion",
	"tubi":      "tubi",
	"pluto":     "pluto",
	"roku":      "roku",
	"freevee":   "freevee",
}

// Lookup maps a provider-native key to an internal service id. TMDB keys are
// numeric provider ids; Watchmode keys are source names; MOTN keys are
// service ids. Unknown keys return false.
func Lookup(provider Provider, key string) (string, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return "", false
	}
	var (
		id string
		ok bool
	)
	switch provider {
	case TMDB:
		n, err := strconv.Atoi(key)
		if err != nil {
			return "", false
		}
		id, ok = tmdbProviders[n]
	case Watchmode:
		id, ok = watchmodeNames[key]
	case MOTN:
		id, ok = motnServices[key]
	}
	return id, ok
}

// LookupTMDB is Lookup for a numeric TMDB provider id.
func LookupTMDB(providerID int) (string, bool) {
	id, ok := tmdbProviders[providerID]
	return id, ok
}

// TMDBCategory maps a watch/providers bucket to an access type.
func TMDBCategory(category string) (catalog.AccessType, bool) {
	switch strings.ToLower(category) {
	case "flatrate":
		return catalog.AccessSubscription, true
	case "free", "ads":
		return catalog.AccessFree, true
	case "rent":
		return catalog.AccessRent, true
	case "buy":
		return catalog.AccessBuy, true
	}
	return "", false
}

// WatchmodeAccess maps a Watchmode source type to an access type.
func WatchmodeAccess(kind string) (catalog.AccessType, bool) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "sub":
		return catalog.AccessSubscription, true
	case "free":
		return catalog.AccessFree, true
	case "rent":
		return catalog.AccessRent, true
	case "buy":
		return catalog.AccessBuy, true
	}
	return "", false
}

// MOTNAccess maps a MOTN streaming option type to an access type. Add-on
// channels are folded into subscription.
func MOTNAccess(kind string) (catalog.AccessType, bool) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "subscription", "addon":
		return catalog.AccessSubscription, true
	case "free":
		return catalog.AccessFree, true
	case "rent":
		return catalog.AccessRent, true
	case "buy":
		return catalog.AccessBuy, true
	}
	return "", false
}
