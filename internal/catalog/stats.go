package catalog

import (
	"context"
	"fmt"
)

// Stats returns catalog counts for the status command.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	stats := Stats{EnrichStatus: make(map[EnrichStatus]int)}

	counts := []struct {
		dest  *int
		query string
	}{
		{&stats.Shows, `SELECT COUNT(1) FROM shows`},
		{&stats.Featured, `SELECT COUNT(1) FROM shows WHERE is_featured = 1`},
		{&stats.MissingMetadata, `SELECT COUNT(1) FROM shows WHERE is_featured = 1 AND tmdb_fetched_at IS NULL`},
		{&stats.Availability, `SELECT COUNT(1) FROM streaming_availability`},
		{&stats.WithURL, `SELECT COUNT(1) FROM streaming_availability WHERE stream_url IS NOT NULL`},
		{&stats.Verified, `SELECT COUNT(1) FROM streaming_availability WHERE stream_url_verified_at IS NOT NULL`},
		{&stats.Dead, `SELECT COUNT(1) FROM streaming_availability
                       WHERE stream_url_status IS NOT NULL
                         AND (stream_url_status < 200 OR stream_url_status >= 400)`},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return Stats{}, fmt.Errorf("catalog stats: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT url_enrich_status, COUNT(1) FROM featured_shows GROUP BY url_enrich_status`,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("enrich status counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return Stats{}, fmt.Errorf("scan enrich status count: %w", err)
		}
		stats.EnrichStatus[EnrichStatus(status)] = n
	}
	return stats, rows.Err()
}
