package bulkimport

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"streamguide/internal/catalog"
	"streamguide/internal/logging"
	"streamguide/internal/metrics"
	"streamguide/internal/services"
)

const (
	passName      = "bulk_import"
	maxLineBytes  = 1 << 20
	defaultBatch  = 1000
	exportTimeFmt = "01_02_2006"
)

// ExportOpener streams a TMDB daily export by file name.
type ExportOpener interface {
	OpenExport(ctx context.Context, name string) (io.ReadCloser, error)
}

// KindResult summarizes one export file.
type KindResult struct {
	Kind     catalog.ShowType
	File     string
	Read     int
	Inserted int
	Skipped  int
	Err      error
}

// Result summarizes a bulk import run.
type Result struct {
	Kinds []KindResult
}

// Inserted returns the total rows created across kinds.
func (r Result) Inserted() int {
	total := 0
	for _, k := range r.Kinds {
		total += k.Inserted
	}
	return total
}

// Importer loads the TMDB id exports into the catalog as minimal rows.
type Importer struct {
	store     *catalog.Store
	exports   ExportOpener
	batchSize int
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewImporter builds an importer. batchSize <= 0 uses 1000.
func NewImporter(store *catalog.Store, exports ExportOpener, batchSize int, logger *slog.Logger, m *metrics.Metrics) *Importer {
	if batchSize <= 0 {
		batchSize = defaultBatch
	}
	return &Importer{
		store:     store,
		exports:   exports,
		batchSize: batchSize,
		logger:    logging.NewComponentLogger(logger, passName),
		metrics:   m,
		now:       time.Now,
	}
}

// SetClock overrides the clock used to pick the export date.
func (i *Importer) SetClock(now func() time.Time) {
	if now != nil {
		i.now = now
	}
}

// ExportName returns the export file for kind published on date.
func ExportName(kind catalog.ShowType, date time.Time) string {
	prefix := "movie_ids"
	if kind == catalog.ShowTypeSeries {
		prefix = "tv_series_ids"
	}
	return fmt.Sprintf("%s_%s.json.gz", prefix, date.Format(exportTimeFmt))
}

// Run imports yesterday's (UTC) movie and series exports. A failure in one
// kind is recorded in its KindResult and does not stop the other.
func (i *Importer) Run(ctx context.Context) (Result, error) {
	ctx = services.WithStage(ctx, passName)
	date := i.now().UTC().AddDate(0, 0, -1)

	var result Result
	for _, kind := range []catalog.ShowType{catalog.ShowTypeMovie, catalog.ShowTypeSeries} {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		kr := i.importKind(ctx, kind, ExportName(kind, date))
		logger := logging.WithContext(ctx, i.logger)
		if kr.Err != nil {
			logging.ErrorWithContext(logger, "export import failed", "bulk_import_failed",
				logging.String("kind", string(kind)),
				logging.String("file", kr.File),
				logging.Int("inserted", kr.Inserted),
				logging.String(logging.FieldErrorHint, "tmdb publishes exports around 08:00 UTC; retry later"),
				logging.Error(kr.Err),
			)
		} else {
			logger.Info("export imported",
				logging.String("kind", string(kind)),
				logging.String("file", kr.File),
				logging.Int("read", kr.Read),
				logging.Int("inserted", kr.Inserted),
				logging.Int("skipped", kr.Skipped),
			)
		}
		i.metrics.PassItems(passName, "inserted", kr.Inserted)
		i.metrics.PassItems(passName, "skipped", kr.Skipped)
		result.Kinds = append(result.Kinds, kr)
	}
	i.metrics.PassRun(passName, "ok")
	return result, nil
}

type exportLine struct {
	ID            int64  `json:"id"`
	OriginalTitle string `json:"original_title"`
	Name          string `json:"name"`
	OriginalName  string `json:"original_name"`
}

func (l exportLine) title() string {
	for _, candidate := range []string{l.OriginalTitle, l.Name, l.OriginalName} {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func (i *Importer) importKind(ctx context.Context, kind catalog.ShowType, name string) KindResult {
	kr := KindResult{Kind: kind, File: name}
	body, err := i.exports.OpenExport(ctx, name)
	if err != nil {
		kr.Err = err
		return kr
	}
	defer body.Close()

	gz, err := gzip.NewReader(body)
	if err != nil {
		kr.Err = fmt.Errorf("open gzip %s: %w", name, err)
		return kr
	}
	defer gz.Close()

	kr.Read, kr.Inserted, kr.Skipped, kr.Err = i.load(ctx, kind, gz)
	return kr
}

// load reads newline-delimited JSON from r and inserts it in batches.
func (i *Importer) load(ctx context.Context, kind catalog.ShowType, r io.Reader) (read, inserted, skipped int, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	batch := make([]catalog.NewShow, 0, i.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := i.store.InsertShows(ctx, batch)
		if err != nil {
			return err
		}
		inserted += n
		batch = batch[:0]
		return nil
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		read++
		var entry exportLine
		if jsonErr := json.Unmarshal([]byte(line), &entry); jsonErr != nil || entry.ID <= 0 || entry.title() == "" {
			skipped++
			continue
		}
		batch = append(batch, catalog.NewShow{TMDBID: entry.ID, Title: entry.title(), Type: kind})
		if len(batch) >= i.batchSize {
			if err := flush(); err != nil {
				return read, inserted, skipped, err
			}
			if err := ctx.Err(); err != nil {
				return read, inserted, skipped, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return read, inserted, skipped, errors.Join(fmt.Errorf("read export: %w", err), flush())
	}
	if err := flush(); err != nil {
		return read, inserted, skipped, err
	}
	return read, inserted, skipped, nil
}
