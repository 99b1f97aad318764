package watchmode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"streamguide/internal/quota"
	"streamguide/internal/services"
)

// Provider is the quota log name for Watchmode calls.
const Provider = "watchmode"

// Source is one regional offer inside a title response.
type Source struct {
	SourceID int      `json:"source_id"`
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Region   string   `json:"region"`
	WebURL   string   `json:"web_url"`
	Format   string   `json:"format"`
	Price    *float64 `json:"price"`
}

// Title is the /title/{id}/details payload with sources appended.
type Title struct {
	ID      int64    `json:"id"`
	Title   string   `json:"title"`
	Type    string   `json:"type"`
	Year    int      `json:"year"`
	IMDBID  string   `json:"imdb_id"`
	TMDBID  int64    `json:"tmdb_id"`
	Sources []Source `json:"sources"`
}

// SearchResult is one entry of a name search.
type SearchResult struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Year   int    `json:"year"`
	TMDBID int64  `json:"tmdb_id"`
}

type searchResponse struct {
	TitleResults []SearchResult `json:"title_results"`
}

// Client calls the Watchmode v1 API.
type Client struct {
	apiKey     string
	baseURL    string
	region     string
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

// New creates a Watchmode client. region filters sources (for example "US").
func New(apiKey, baseURL, region string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("watchmode api key required: %w", services.ErrConfiguration)
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("watchmode base url required: %w", services.ErrConfiguration)
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		region:     strings.ToUpper(strings.TrimSpace(region)),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// TMDBKey formats the Watchmode lookup key for a TMDB id. kind is "movie" or
// "tv".
func TMDBKey(kind string, tmdbID int64) string {
	return fmt.Sprintf("tmdb:%s:%d", kind, tmdbID)
}

// Title fetches a title with its sources. key is a Watchmode id or a TMDBKey.
// It returns (nil, nil) when Watchmode does not know the title; Watchmode
// answers unknown keys with 404 or 500.
func (c *Client) Title(ctx context.Context, key string) (*Title, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("title key must not be empty")
	}
	params := url.Values{}
	params.Set("append_to_response", "sources")
	if c.region != "" {
		params.Set("regions", c.region)
	}
	var payload Title
	found, err := c.get(ctx, "title", "/title/"+url.PathEscape(key)+"/details/", params, &payload, true)
	if err != nil || !found {
		return nil, err
	}
	return &payload, nil
}

// Search looks up titles by name. kind is "movie" or "tv".
func (c *Client) Search(ctx context.Context, name, kind string) ([]SearchResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("search name must not be empty")
	}
	params := url.Values{}
	params.Set("search_field", "name")
	params.Set("search_value", name)
	switch kind {
	case "tv":
		params.Set("types", "tv")
	default:
		params.Set("types", "movie")
	}
	var payload searchResponse
	found, err := c.get(ctx, "search", "/search/", params, &payload, false)
	if err != nil || !found {
		return nil, err
	}
	return payload.TitleResults, nil
}

// RegionalSources returns the title's sources for the client region.
func (c *Client) RegionalSources(title *Title) []Source {
	if title == nil {
		return nil
	}
	if c.region == "" {
		return title.Sources
	}
	out := make([]Source, 0, len(title.Sources))
	for _, src := range title.Sources {
		if strings.EqualFold(src.Region, c.region) {
			out = append(out, src)
		}
	}
	return out
}

func (c *Client) get(ctx context.Context, label, path string, params url.Values, dest any, serverErrorIsMiss bool) (bool, error) {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return false, fmt.Errorf("parse watchmode url: %w", err)
	}
	params.Set("apiKey", c.apiKey)
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		c.record(ctx, label, 0, err)
		return false, fmt.Errorf("execute watchmode %s (latency=%v): %w: %w", label, latency, services.ErrTransient, err)
	}
	defer resp.Body.Close()

	status := resp.StatusCode
	switch {
	case status == http.StatusOK:
		c.record(ctx, label, status, nil)
	case status == http.StatusNotFound:
		c.record(ctx, label, status, services.ErrNotFound)
		return false, nil
	case status == http.StatusInternalServerError && serverErrorIsMiss:
		c.record(ctx, label, status, services.ErrNotFound)
		return false, nil
	default:
		marker := services.ErrExternal
		if status == http.StatusTooManyRequests || status >= 500 {
			marker = services.ErrTransient
		}
		err := fmt.Errorf("watchmode %s returned %d (latency=%v): %w", label, status, latency, marker)
		c.record(ctx, label, status, err)
		return false, err
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return false, fmt.Errorf("decode watchmode %s response: %w", label, err)
	}
	return true, nil
}

func (c *Client) record(ctx context.Context, label string, status int, err error) {
	if c.recorder != nil {
		c.recorder.RecordCall(ctx, Provider, label, status, err)
	}
}
