package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"streamguide/internal/quota"
	"streamguide/internal/services"
)

// Provider is the quota log name for TMDB calls.
const Provider = "tmdb"

var (
	// ErrNotFound is returned when TMDB answers 404.
	ErrNotFound = fmt.Errorf("tmdb: %w", services.ErrNotFound)
	// ErrRateLimited is returned when TMDB answers 429.
	ErrRateLimited = fmt.Errorf("tmdb rate limited: %w", services.ErrTransient)
)

// Client provides access to the TMDB v3 API.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
	recorder   quota.Recorder
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRecorder reports every API attempt to r.
func WithRecorder(r quota.Recorder) Option {
	return func(c *Client) {
		c.recorder = r
	}
}

// New creates a TMDB client.
func New(apiKey, baseURL, language string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("tmdb api key required: %w", services.ErrConfiguration)
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("tmdb base url required: %w", services.ErrConfiguration)
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   strings.TrimSpace(language),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type endpointKey struct{}

// WithEndpoint overrides the quota log endpoint label for calls made with ctx.
func WithEndpoint(ctx context.Context, label string) context.Context {
	return context.WithValue(ctx, endpointKey{}, label)
}

func endpointLabel(ctx context.Context, fallback string) string {
	if label, ok := ctx.Value(endpointKey{}).(string); ok && label != "" {
		return label
	}
	return fallback
}

// MovieDetails fetches /movie/{id} with trailers appended.
func (c *Client) MovieDetails(ctx context.Context, movieID int64) (*MovieDetails, error) {
	if movieID <= 0 {
		return nil, errors.New("movie id must be positive")
	}
	params := url.Values{}
	params.Set("append_to_response", "videos")
	var payload MovieDetails
	if err := c.get(ctx, "movie", fmt.Sprintf("/movie/%d", movieID), params, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// TVDetails fetches /tv/{id} with trailers appended.
func (c *Client) TVDetails(ctx context.Context, showID int64) (*TVDetails, error) {
	if showID <= 0 {
		return nil, errors.New("show id must be positive")
	}
	params := url.Values{}
	params.Set("append_to_response", "videos")
	var payload TVDetails
	if err := c.get(ctx, "tv", fmt.Sprintf("/tv/%d", showID), params, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// TVExternalIDs fetches /tv/{id}/external_ids.
func (c *Client) TVExternalIDs(ctx context.Context, showID int64) (*ExternalIDs, error) {
	if showID <= 0 {
		return nil, errors.New("show id must be positive")
	}
	var payload ExternalIDs
	if err := c.get(ctx, "tv-external-ids", fmt.Sprintf("/tv/%d/external_ids", showID), nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// FindByIMDB resolves an IMDb id through /find.
func (c *Client) FindByIMDB(ctx context.Context, imdbID string) (*FindResponse, error) {
	imdbID = strings.TrimSpace(imdbID)
	if imdbID == "" {
		return nil, errors.New("imdb id must not be empty")
	}
	params := url.Values{}
	params.Set("external_source", "imdb_id")
	var payload FindResponse
	if err := c.get(ctx, "find", "/find/"+url.PathEscape(imdbID), params, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// SearchMovie searches movies, optionally constrained to a release year.
func (c *Client) SearchMovie(ctx context.Context, query string, year int) (*Response, error) {
	return c.search(ctx, "search-movie", "/search/movie", "primary_release_year", query, year)
}

// SearchTV searches series, optionally constrained to a first-air year.
func (c *Client) SearchTV(ctx context.Context, query string, year int) (*Response, error) {
	return c.search(ctx, "search-tv", "/search/tv", "first_air_date_year", query, year)
}

func (c *Client) search(ctx context.Context, label, path, yearParam, query string, year int) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	params := url.Values{}
	params.Set("query", query)
	if year > 0 {
		params.Set(yearParam, strconv.Itoa(year))
	}
	var payload Response
	if err := c.get(ctx, label, path, params, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// WatchProviders fetches /{movie|tv}/{id}/watch/providers. kind is "movie"
// or "tv".
func (c *Client) WatchProviders(ctx context.Context, kind string, id int64) (*WatchProviders, error) {
	if kind != "movie" && kind != "tv" {
		return nil, fmt.Errorf("unknown tmdb kind %q", kind)
	}
	if id <= 0 {
		return nil, errors.New("id must be positive")
	}
	var payload WatchProviders
	if err := c.get(ctx, "watch-providers", fmt.Sprintf("/%s/%d/watch/providers", kind, id), nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) get(ctx context.Context, label, path string, params url.Values, dest any) error {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("parse tmdb url: %w", err)
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	label = endpointLabel(ctx, label)
	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		c.record(ctx, label, 0, err)
		return fmt.Errorf("execute %s request (latency=%v): %w: %w", label, latency, services.ErrTransient, err)
	}
	defer resp.Body.Close()

	status := resp.StatusCode
	switch {
	case status == http.StatusNotFound:
		err = ErrNotFound
	case status == http.StatusTooManyRequests:
		err = ErrRateLimited
	case status >= 500:
		err = fmt.Errorf("tmdb %s returned %d (latency=%v): %w", label, status, latency, services.ErrTransient)
	case status != http.StatusOK:
		err = fmt.Errorf("tmdb %s returned %d (latency=%v): %w", label, status, latency, services.ErrExternal)
	}
	c.record(ctx, label, status, err)
	if err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode tmdb %s response: %w", label, err)
	}
	return nil
}

func (c *Client) record(ctx context.Context, label string, status int, err error) {
	if c.recorder != nil {
		c.recorder.RecordCall(ctx, Provider, label, status, err)
	}
}
