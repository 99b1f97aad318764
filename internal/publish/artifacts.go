package publish

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"streamguide/internal/catalog"
	"streamguide/internal/fileutil"
	"streamguide/internal/logging"
	"streamguide/internal/metrics"
	"streamguide/internal/services"
)

const (
	passName = "publish"

	ShowsFile    = "shows.json"
	ServicesFile = "services.json"
)

// Catalog is the read surface the publisher projects from.
type Catalog interface {
	FeaturedProjection(ctx context.Context) ([]catalog.ProjectedShow, error)
	Services(ctx context.Context) ([]catalog.Service, error)
}

// ShowsDocument is the shows.json payload.
type ShowsDocument struct {
	GeneratedAt time.Time               `json:"generated_at"`
	Count       int                     `json:"count"`
	Shows       []catalog.ProjectedShow `json:"shows"`
}

// ServicesDocument is the services.json payload.
type ServicesDocument struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Services    []catalog.Service `json:"services"`
}

// Result describes one generate run.
type Result struct {
	ShowsPath    string
	ServicesPath string
	Shows        int
	Services     int
	Checksum     string
}

// Publisher writes projection artifacts.
type Publisher struct {
	catalog Catalog
	dir     string
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewPublisher builds a publisher writing into dir.
func NewPublisher(source Catalog, dir string, logger *slog.Logger, m *metrics.Metrics) *Publisher {
	return &Publisher{
		catalog: source,
		dir:     dir,
		logger:  logging.NewComponentLogger(logger, passName),
		metrics: m,
		now:     time.Now,
	}
}

// SetClock overrides the generation timestamp source.
func (p *Publisher) SetClock(now func() time.Time) {
	if now != nil {
		p.now = now
	}
}

// Generate projects the catalog and replaces both artifacts.
func (p *Publisher) Generate(ctx context.Context) (Result, error) {
	ctx = services.WithStage(ctx, passName)
	logger := logging.WithContext(ctx, p.logger)
	if p.dir == "" {
		p.metrics.PassRun(passName, "config")
		return Result{}, services.Wrap(services.ErrConfiguration, passName, "generate", "publish_dir is not set", nil)
	}

	shows, platforms, err := project(ctx, p.catalog)
	if err != nil {
		p.metrics.PassRun(passName, "error")
		return Result{}, err
	}
	generated := p.now().UTC()

	result := Result{
		ShowsPath:    filepath.Join(p.dir, ShowsFile),
		ServicesPath: filepath.Join(p.dir, ServicesFile),
		Shows:        len(shows),
		Services:     len(platforms),
	}
	data, err := fileutil.WriteJSONAtomic(result.ShowsPath, ShowsDocument{
		GeneratedAt: generated,
		Count:       len(shows),
		Shows:       shows,
	})
	if err != nil {
		p.metrics.PassRun(passName, "error")
		return result, fmt.Errorf("write %s: %w", ShowsFile, err)
	}
	result.Checksum = fileutil.Checksum(data)
	if _, err := fileutil.WriteJSONAtomic(result.ServicesPath, ServicesDocument{
		GeneratedAt: generated,
		Services:    platforms,
	}); err != nil {
		p.metrics.PassRun(passName, "error")
		return result, fmt.Errorf("write %s: %w", ServicesFile, err)
	}

	logger.Info("artifacts published",
		logging.String("dir", p.dir),
		logging.Int("shows", result.Shows),
		logging.Int("services", result.Services),
		logging.String("checksum", result.Checksum),
	)
	p.metrics.PassItems(passName, "shows", result.Shows)
	p.metrics.PassRun(passName, "ok")
	return result, nil
}

// project reads both collections and replaces nil slices with empty ones so
// the encoded documents always carry arrays.
func project(ctx context.Context, source Catalog) ([]catalog.ProjectedShow, []catalog.Service, error) {
	shows, err := source.FeaturedProjection(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("project featured shows: %w", err)
	}
	list, err := source.Services(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list services: %w", err)
	}
	if shows == nil {
		shows = []catalog.ProjectedShow{}
	}
	for i := range shows {
		if shows[i].Services == nil {
			shows[i].Services = []catalog.ServiceBadge{}
		}
		if shows[i].Genres == nil {
			shows[i].Genres = []string{}
		}
	}
	if list == nil {
		list = []catalog.Service{}
	}
	return shows, list, nil
}
