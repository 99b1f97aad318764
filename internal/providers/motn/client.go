package motn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"streamguide/internal/quota"
	"streamguide/internal/services"
)

// Provider is the quota log name for MOTN calls.
const Provider = "motn"

const rapidAPIHost = "streaming-availability.p.rapidapi.com"

// ServiceRef identifies the platform of a streaming option.
type ServiceRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Price is a rent or buy price. Amount arrives as a decimal string.
type Price struct {
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Formatted string          `json:"formatted"`
}

// StreamingOption is one offer for a show in one country.
type StreamingOption struct {
	Service ServiceRef `json:"service"`
	Type    string     `json:"type"`
	Link    string     `json:"link"`
	Price   *Price     `json:"price"`
}

// PriceFloat returns the price amount rounded to cents, or nil.
func (o StreamingOption) PriceFloat() *float64 {
	if o.Price == nil {
		return nil
	}
	f := o.Price.Amount.Round(2).InexactFloat64()
	return &f
}

// Show is the MOTN show payload.
type Show struct {
	ID               string                       `json:"id"`
	IMDBID           string                       `json:"imdbId"`
	TMDBID           string                       `json:"tmdbId"`
	Title            string                       `json:"title"`
	ShowType         string                       `json:"showType"`
	StreamingOptions map[string][]StreamingOption `json:"streamingOptions"`
}

// Options returns the streaming options for country.
func (s *Show) Options(country string) []StreamingOption {
	if s == nil {
		return nil
	}
	return s.StreamingOptions[strings.ToLower(country)]
}

// Client calls the Streaming Availability API.
type Client struct {
	apiKey     string
	baseURL    string
	country    string
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

// New creates a MOTN client for one country.
func New(apiKey, baseURL, country string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("motn api key required: %w", services.ErrConfiguration)
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("motn base url required: %w", services.ErrConfiguration)
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		country:    strings.ToLower(strings.TrimSpace(country)),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Country returns the lower-case country code requests are scoped to.
func (c *Client) Country() string {
	return c.country
}

// GetShow looks a show up by IMDb id or TMDBKey. It returns (nil, nil) on 404.
func (c *Client) GetShow(ctx context.Context, id string) (*Show, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("show id must not be empty")
	}
	params := url.Values{}
	params.Set("country", c.country)
	var show Show
	found, err := c.get(ctx, "shows", "/shows/"+url.PathEscape(id), params, &show)
	if err != nil || !found {
		return nil, err
	}
	return &show, nil
}

// SearchByTitle searches one country's catalog. showType is "movie" or
// "series".
func (c *Client) SearchByTitle(ctx context.Context, title, showType string) ([]Show, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("title must not be empty")
	}
	params := url.Values{}
	params.Set("title", title)
	params.Set("country", c.country)
	if showType != "" {
		params.Set("show_type", showType)
	}
	var shows []Show
	found, err := c.get(ctx, "search-title", "/shows/search/title", params, &shows)
	if err != nil || !found {
		return nil, err
	}
	return shows, nil
}

// TMDBKey formats a TMDB id as a lookup key. kind is "movie" or "tv".
func TMDBKey(kind string, tmdbID int64) string {
	return fmt.Sprintf("tmdb:%s:%d", kind, tmdbID)
}

func (c *Client) get(ctx context.Context, label, path string, params url.Values, dest any) (bool, error) {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return false, fmt.Errorf("parse motn url: %w", err)
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", rapidAPIHost)
	req.Header.Set("Accept", "application/json")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		c.record(ctx, label, 0, err)
		return false, fmt.Errorf("execute motn %s (latency=%v): %w: %w", label, latency, services.ErrTransient, err)
	}
	defer resp.Body.Close()

	status := resp.StatusCode
	switch {
	case status == http.StatusOK:
		c.record(ctx, label, status, nil)
	case status == http.StatusNotFound:
		c.record(ctx, label, status, services.ErrNotFound)
		return false, nil
	default:
		marker := services.ErrExternal
		if status == http.StatusTooManyRequests || status >= 500 {
			marker = services.ErrTransient
		}
		err := fmt.Errorf("motn %s returned %d (latency=%v): %w", label, status, latency, marker)
		c.record(ctx, label, status, err)
		return false, err
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return false, fmt.Errorf("decode motn %s response: %w", label, err)
	}
	return true, nil
}

func (c *Client) record(ctx context.Context, label string, status int, err error) {
	if c.recorder != nil {
		c.recorder.RecordCall(ctx, Provider, label, status, err)
	}
}
