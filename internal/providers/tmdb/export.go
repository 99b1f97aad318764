package tmdb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"streamguide/internal/services"
)

// Exporter downloads the daily id export files. Exports are public, so no
// API key is needed and downloads are not quota logged.
type Exporter struct {
	baseURL    string
	httpClient *http.Client
}

// NewExporter creates an export downloader rooted at baseURL. A nil client
// uses http.DefaultClient; export files are large, so no overall timeout is
// applied.
func NewExporter(baseURL string, client *http.Client) *Exporter {
	if client == nil {
		client = http.DefaultClient
	}
	return &Exporter{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: client,
	}
}

// OpenExport streams an export file such as movie_ids_05_14_2026.json.gz.
// The caller closes the body.
func (e *Exporter) OpenExport(ctx context.Context, name string) (io.ReadCloser, error) {
	if e.baseURL == "" {
		return nil, fmt.Errorf("tmdb export base url required: %w", services.ErrConfiguration)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/"+name, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", name, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("export %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("export %s returned %d", name, resp.StatusCode)
	}
	return resp.Body, nil
}
