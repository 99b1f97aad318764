package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// UpsertFeatured marks a show featured with the given priority. New rows start
// pending; on a reseed a failed or pending status goes back to pending while
// complete and partial are kept, since both reflect stored links. Existing
// curator notes survive a nil update.
func (s *Store) UpsertFeatured(ctx context.Context, showID int64, priority int, notes string) error {
	ctx = ensureContext(ctx)
	timestamp := formatTime(s.now())
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE shows SET is_featured = 1, updated_at = ? WHERE id = ? AND is_featured = 0`,
			timestamp, showID,
		); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO featured_shows (show_id, priority, curator_notes, url_enrich_status, curated_at)
             VALUES (?, ?, ?, 'pending', ?)
             ON CONFLICT(show_id) DO UPDATE SET
                 priority          = excluded.priority,
                 url_enrich_status = CASE
                     WHEN featured_shows.url_enrich_status IN ('complete', 'partial') THEN featured_shows.url_enrich_status
                     ELSE 'pending'
                 END,
                 failed_source     = NULL,
                 curator_notes     = COALESCE(excluded.curator_notes, featured_shows.curator_notes)`,
			showID, priority, nullableString(notes), timestamp,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("upsert featured: %w", err)
	}
	return nil
}

// SetEnrichStatus records the direct-link status written by source and stamps
// last_enrich_at. A failed status remembers source so other providers keep
// trying the title; any other status clears it. A nil watchmodeID keeps the
// stored provider id.
func (s *Store) SetEnrichStatus(ctx context.Context, showID int64, source Source, status EnrichStatus, watchmodeID *int64) error {
	var failedSource any
	if status == StatusFailed {
		failedSource = string(source)
	}
	if err := s.execWithoutResultRetry(ctx,
		`UPDATE featured_shows SET
             url_enrich_status = ?,
             failed_source     = ?,
             watchmode_id      = COALESCE(?, watchmode_id),
             last_enrich_at    = ?
         WHERE show_id = ?`,
		string(status), failedSource, nullableInt64Ptr(watchmodeID), formatTime(s.now()), showID,
	); err != nil {
		return fmt.Errorf("set enrich status: %w", err)
	}
	return nil
}

// EnrichStatus returns the current status for a featured show, or "" when the
// show is not featured.
func (s *Store) EnrichStatus(ctx context.Context, showID int64) (EnrichStatus, error) {
	var status string
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT url_enrich_status FROM featured_shows WHERE show_id = ?`, showID,
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read enrich status: %w", err)
	}
	return EnrichStatus(status), nil
}

// ShowsForURLEnrich returns up to limit featured shows that source should
// try, lowest priority value first: pending and partial titles, plus failed
// titles that a different provider marked failed.
func (s *Store) ShowsForURLEnrich(ctx context.Context, source Source, limit int) ([]EnrichTarget, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+refColumns+`, fs.url_enrich_status, fs.watchmode_id
         FROM shows s
         JOIN featured_shows fs ON fs.show_id = s.id
         WHERE fs.url_enrich_status IN ('pending', 'partial')
            OR (fs.url_enrich_status = 'failed' AND COALESCE(fs.failed_source, '') <> ?)
         ORDER BY fs.priority ASC, s.id ASC
         LIMIT ?`,
		string(source), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("shows for url enrich: %w", err)
	}
	defer rows.Close()

	var targets []EnrichTarget
	for rows.Next() {
		var (
			target      EnrichTarget
			imdb        sql.NullString
			showType    string
			status      string
			watchmodeID sql.NullInt64
		)
		if err := rows.Scan(
			&target.Show.ID, &target.Show.TMDBID, &imdb, &target.Show.Title, &showType, &target.Show.Priority,
			&status, &watchmodeID,
		); err != nil {
			return nil, fmt.Errorf("scan url enrich target: %w", err)
		}
		target.Show.IMDBID = imdb.String
		target.Show.Type = ShowType(showType)
		target.Status = EnrichStatus(status)
		target.WatchmodeID = int64Ptr(watchmodeID)
		targets = append(targets, target)
	}
	return targets, rows.Err()
}
