package tmdb

import (
	"strconv"
	"strings"
)

// Result represents a single TMDB search or find match.
type Result struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	Name          string  `json:"name"`
	OriginalTitle string  `json:"original_title"`
	OriginalName  string  `json:"original_name"`
	ReleaseDate   string  `json:"release_date"`
	FirstAirDate  string  `json:"first_air_date"`
	Popularity    float64 `json:"popularity"`
}

// DisplayName returns Title for movies and Name for series.
func (r Result) DisplayName() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Name
}

// Response models the TMDB paginated search response.
type Response struct {
	Page         int      `json:"page"`
	Results      []Result `json:"results"`
	TotalPages   int      `json:"total_pages"`
	TotalResults int      `json:"total_results"`
}

// FindResponse models /find results split by media kind.
type FindResponse struct {
	MovieResults []Result `json:"movie_results"`
	TVResults    []Result `json:"tv_results"`
}

// Genre is a TMDB genre entry.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Video is an appended videos entry.
type Video struct {
	Key      string `json:"key"`
	Site     string `json:"site"`
	Type     string `json:"type"`
	Official bool   `json:"official"`
}

// VideoList wraps appended videos.
type VideoList struct {
	Results []Video `json:"results"`
}

// MovieDetails is the /movie/{id} payload.
type MovieDetails struct {
	ID            int64     `json:"id"`
	IMDBID        string    `json:"imdb_id"`
	Title         string    `json:"title"`
	OriginalTitle string    `json:"original_title"`
	Overview      string    `json:"overview"`
	ReleaseDate   string    `json:"release_date"`
	Runtime       int       `json:"runtime"`
	VoteAverage   float64   `json:"vote_average"`
	Genres        []Genre   `json:"genres"`
	PosterPath    string    `json:"poster_path"`
	Videos        VideoList `json:"videos"`
}

// TVDetails is the /tv/{id} payload.
type TVDetails struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	OriginalName    string    `json:"original_name"`
	Overview        string    `json:"overview"`
	FirstAirDate    string    `json:"first_air_date"`
	EpisodeRunTime  []int     `json:"episode_run_time"`
	NumberOfSeasons int       `json:"number_of_seasons"`
	VoteAverage     float64   `json:"vote_average"`
	Genres          []Genre   `json:"genres"`
	PosterPath      string    `json:"poster_path"`
	Videos          VideoList `json:"videos"`
}

// ExternalIDs is the /tv/{id}/external_ids payload.
type ExternalIDs struct {
	ID     int64  `json:"id"`
	IMDBID string `json:"imdb_id"`
}

// ProviderEntry is one service inside a watch/providers bucket.
type ProviderEntry struct {
	ProviderID   int    `json:"provider_id"`
	ProviderName string `json:"provider_name"`
}

// RegionProviders lists offers for one country.
type RegionProviders struct {
	Link     string          `json:"link"`
	Flatrate []ProviderEntry `json:"flatrate"`
	Free     []ProviderEntry `json:"free"`
	Ads      []ProviderEntry `json:"ads"`
	Rent     []ProviderEntry `json:"rent"`
	Buy      []ProviderEntry `json:"buy"`
}

// Categories returns the buckets keyed by their TMDB names.
func (r RegionProviders) Categories() map[string][]ProviderEntry {
	return map[string][]ProviderEntry{
		"flatrate": r.Flatrate,
		"free":     r.Free,
		"ads":      r.Ads,
		"rent":     r.Rent,
		"buy":      r.Buy,
	}
}

// WatchProviders is the /{kind}/{id}/watch/providers payload.
type WatchProviders struct {
	ID      int64                      `json:"id"`
	Results map[string]RegionProviders `json:"results"`
}

// GenreNames returns the genre names in response order.
func GenreNames(genres []Genre) []string {
	if len(genres) == 0 {
		return nil
	}
	names := make([]string, 0, len(genres))
	for _, g := range genres {
		if name := strings.TrimSpace(g.Name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// TrailerURL returns the watch URL of the first YouTube trailer, or "".
func TrailerURL(videos VideoList) string {
	for _, v := range videos.Results {
		if strings.EqualFold(v.Site, "YouTube") && v.Type == "Trailer" && v.Key != "" {
			return "https://www.youtube.com/watch?v=" + v.Key
		}
	}
	return ""
}

// Year parses the leading four digits of a TMDB date. It returns 0 when the
// date is empty or malformed.
func Year(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}
