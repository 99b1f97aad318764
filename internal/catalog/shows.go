package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const showColumns = "id, tmdb_id, imdb_id, title, original_title, show_type, release_year, runtime_minutes, season_count, overview, rating, genres, image_url, youtube_url, is_featured, tmdb_fetched_at, created_at, updated_at"

func scanShow(scanner interface{ Scan(dest ...any) error }) (*Show, error) {
	var (
		show          Show
		imdbID        sql.NullString
		originalTitle sql.NullString
		showType      string
		releaseYear   sql.NullInt64
		runtime       sql.NullInt64
		seasons       sql.NullInt64
		overview      sql.NullString
		rating        sql.NullFloat64
		genres        sql.NullString
		imageURL      sql.NullString
		youtubeURL    sql.NullString
		featured      int
		fetchedRaw    sql.NullString
		createdRaw    string
		updatedRaw    string
	)
	if err := scanner.Scan(
		&show.ID,
		&show.TMDBID,
		&imdbID,
		&show.Title,
		&originalTitle,
		&showType,
		&releaseYear,
		&runtime,
		&seasons,
		&overview,
		&rating,
		&genres,
		&imageURL,
		&youtubeURL,
		&featured,
		&fetchedRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	show.IMDBID = imdbID.String
	show.OriginalTitle = originalTitle.String
	show.Type = ShowType(showType)
	show.ReleaseYear = intPtr(releaseYear)
	show.RuntimeMinutes = intPtr(runtime)
	show.SeasonCount = intPtr(seasons)
	show.Overview = overview.String
	show.Rating = floatPtr(rating)
	show.Genres = decodeGenres(genres)
	show.ImageURL = imageURL.String
	show.YouTubeURL = youtubeURL.String
	show.Featured = featured != 0
	show.TMDBFetchedAt = parseNullTime(fetchedRaw)
	if created, err := parseTimeString(createdRaw); err == nil {
		show.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		show.UpdatedAt = updated
	}
	return &show, nil
}

func validateNewShow(show NewShow) error {
	if show.TMDBID <= 0 {
		return fmt.Errorf("tmdb id must be positive, got %d", show.TMDBID)
	}
	if strings.TrimSpace(show.Title) == "" {
		return errors.New("title is required")
	}
	if show.Type != ShowTypeMovie && show.Type != ShowTypeSeries {
		return fmt.Errorf("unknown show type %q", show.Type)
	}
	return nil
}

// InsertShowIfMissing creates a minimal show row keyed by TMDB id. An existing
// row is left untouched except that a featured request sets is_featured.
// A cross-reference id already owned by another row is dropped rather than
// failing the insert.
func (s *Store) InsertShowIfMissing(ctx context.Context, show NewShow) (int64, bool, error) {
	if err := validateNewShow(show); err != nil {
		return 0, false, fmt.Errorf("insert show: %w", err)
	}
	ctx = ensureContext(ctx)
	timestamp := formatTime(s.now())

	var (
		id      int64
		created bool
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		created = false
		imdb := nullableString(show.IMDBID)
		if imdb != nil {
			var owner int64
			err := tx.QueryRowContext(ctx,
				`SELECT tmdb_id FROM shows WHERE imdb_id = ?`, imdb,
			).Scan(&owner)
			switch {
			case err == nil && owner != show.TMDBID:
				imdb = nil
			case err != nil && !errors.Is(err, sql.ErrNoRows):
				return fmt.Errorf("check imdb owner: %w", err)
			}
		}

		var year any
		if show.ReleaseYear > 0 {
			year = show.ReleaseYear
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO shows (tmdb_id, imdb_id, title, show_type, release_year, is_featured, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)
             ON CONFLICT(tmdb_id) DO NOTHING`,
			show.TMDBID, imdb, strings.TrimSpace(show.Title), string(show.Type), year,
			boolToInt(show.Featured), timestamp, timestamp,
		)
		if err != nil {
			return fmt.Errorf("insert show: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		created = affected > 0

		if err := tx.QueryRowContext(ctx, `SELECT id FROM shows WHERE tmdb_id = ?`, show.TMDBID).Scan(&id); err != nil {
			return fmt.Errorf("lookup show id: %w", err)
		}

		if !created && show.Featured {
			if _, err := tx.ExecContext(ctx,
				`UPDATE shows SET is_featured = 1, updated_at = ? WHERE id = ? AND is_featured = 0`,
				timestamp, id,
			); err != nil {
				return fmt.Errorf("mark featured: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	return id, created, nil
}

// InsertShows inserts a batch of minimal rows in one transaction, ignoring rows
// whose TMDB id (or cross-reference id) already exists. It returns the number
// of rows created.
func (s *Store) InsertShows(ctx context.Context, shows []NewShow) (int, error) {
	if len(shows) == 0 {
		return 0, nil
	}
	ctx = ensureContext(ctx)
	timestamp := formatTime(s.now())

	var inserted int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		inserted = 0
		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR IGNORE INTO shows (tmdb_id, imdb_id, title, show_type, is_featured, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
		)
		if err != nil {
			return fmt.Errorf("prepare batch insert: %w", err)
		}
		defer stmt.Close()

		for _, show := range shows {
			if validateNewShow(show) != nil {
				continue
			}
			res, err := stmt.ExecContext(ctx,
				show.TMDBID, nullableString(show.IMDBID), strings.TrimSpace(show.Title),
				string(show.Type), boolToInt(show.Featured), timestamp, timestamp,
			)
			if err != nil {
				return fmt.Errorf("insert tmdb %d: %w", show.TMDBID, err)
			}
			if n, err := res.RowsAffected(); err == nil {
				inserted += int(n)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// UpdateShowMetadata merges provider metadata into a show. Nil fields keep the
// stored value; tmdb_fetched_at and updated_at are always written. A
// cross-reference id owned by a different row is ignored.
func (s *Store) UpdateShowMetadata(ctx context.Context, showID int64, meta Metadata, fetchedAt time.Time) error {
	genres, err := nullableGenres(meta.Genres)
	if err != nil {
		return fmt.Errorf("encode genres: %w", err)
	}
	imdb := nullableStringPtr(meta.IMDBID)
	_, err = s.execWithRetry(ctx,
		`UPDATE shows SET
            imdb_id = CASE
                WHEN ?1 IS NULL THEN imdb_id
                WHEN EXISTS (SELECT 1 FROM shows other WHERE other.imdb_id = ?1 AND other.id <> shows.id) THEN imdb_id
                ELSE ?1
            END,
            title           = COALESCE(?2, title),
            original_title  = COALESCE(?3, original_title),
            release_year    = COALESCE(?4, release_year),
            runtime_minutes = COALESCE(?5, runtime_minutes),
            season_count    = COALESCE(?6, season_count),
            overview        = COALESCE(?7, overview),
            rating          = COALESCE(?8, rating),
            genres          = COALESCE(?9, genres),
            image_url       = COALESCE(?10, image_url),
            youtube_url     = COALESCE(?11, youtube_url),
            tmdb_fetched_at = ?12,
            updated_at      = ?13
        WHERE id = ?14`,
		imdb,
		nullableStringPtr(meta.Title),
		nullableStringPtr(meta.OriginalTitle),
		nullableIntPtr(meta.ReleaseYear),
		nullableIntPtr(meta.RuntimeMinutes),
		nullableIntPtr(meta.SeasonCount),
		nullableStringPtr(meta.Overview),
		nullableFloatPtr(meta.Rating),
		genres,
		nullableStringPtr(meta.ImageURL),
		nullableStringPtr(meta.YouTubeURL),
		formatTime(fetchedAt),
		formatTime(s.now()),
		showID,
	)
	if err != nil {
		return fmt.Errorf("update show metadata: %w", err)
	}
	return nil
}

// GetShow fetches a show by row id. It returns nil when the row does not exist.
func (s *Store) GetShow(ctx context.Context, id int64) (*Show, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+showColumns+` FROM shows WHERE id = ?`, id)
	show, err := scanShow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get show: %w", err)
	}
	return show, nil
}

// GetShowByTMDBID fetches a show by TMDB id. It returns nil when absent.
func (s *Store) GetShowByTMDBID(ctx context.Context, tmdbID int64) (*Show, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+showColumns+` FROM shows WHERE tmdb_id = ?`, tmdbID)
	show, err := scanShow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get show by tmdb id: %w", err)
	}
	return show, nil
}

// CountShows returns the number of show rows.
func (s *Store) CountShows(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ensureContext(ctx), `SELECT COUNT(1) FROM shows`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count shows: %w", err)
	}
	return n, nil
}

const refColumns = "s.id, s.tmdb_id, s.imdb_id, s.title, s.show_type, fs.priority"

func (s *Store) queryRefs(ctx context.Context, op, query string, args ...any) ([]ShowRef, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var refs []ShowRef
	for rows.Next() {
		var (
			ref      ShowRef
			imdb     sql.NullString
			showType string
		)
		if err := rows.Scan(&ref.ID, &ref.TMDBID, &imdb, &ref.Title, &showType, &ref.Priority); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		ref.IMDBID = imdb.String
		ref.Type = ShowType(showType)
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return refs, nil
}

// ShowsMissingMetadata returns every featured show never fetched from TMDB,
// lowest priority value first. The result is not limited.
func (s *Store) ShowsMissingMetadata(ctx context.Context) ([]ShowRef, error) {
	return s.queryRefs(ctx, "shows missing metadata",
		`SELECT `+refColumns+` FROM shows s
         JOIN featured_shows fs ON fs.show_id = s.id
         WHERE s.tmdb_fetched_at IS NULL
         ORDER BY fs.priority ASC, s.id ASC`,
	)
}

// StaleShows returns featured shows fetched before cutoff, oldest first.
func (s *Store) StaleShows(ctx context.Context, cutoff time.Time, limit int) ([]ShowRef, error) {
	return s.queryRefs(ctx, "stale shows",
		`SELECT `+refColumns+` FROM shows s
         JOIN featured_shows fs ON fs.show_id = s.id
         WHERE s.tmdb_fetched_at IS NOT NULL AND s.tmdb_fetched_at < ?
         ORDER BY s.tmdb_fetched_at ASC, s.id ASC
         LIMIT ?`,
		formatTime(cutoff), limit,
	)
}

// ShowsMissingPresence returns featured shows with metadata that have no
// availability row from source.
func (s *Store) ShowsMissingPresence(ctx context.Context, source Source, limit int) ([]ShowRef, error) {
	return s.queryRefs(ctx, "shows missing presence",
		`SELECT `+refColumns+` FROM shows s
         JOIN featured_shows fs ON fs.show_id = s.id
         WHERE s.tmdb_fetched_at IS NOT NULL
           AND NOT EXISTS (
               SELECT 1 FROM streaming_availability sa
               WHERE sa.show_id = s.id AND sa.source = ?
           )
         ORDER BY fs.priority ASC, s.id ASC
         LIMIT ?`,
		string(source), limit,
	)
}
