package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// UpsertAvailability merges a fact on (show, service, access type). A new
// non-empty URL or price replaces the stored one; empty values never erase
// it. Provenance and fetched_at always reflect the latest writer.
func (s *Store) UpsertAvailability(ctx context.Context, row Availability) error {
	if row.ShowID <= 0 || strings.TrimSpace(row.ServiceID) == "" || row.AccessType == "" || row.Source == "" {
		return errors.New("upsert availability: show, service, access type and source are required")
	}
	if err := s.execWithoutResultRetry(ctx,
		`INSERT INTO streaming_availability (show_id, service_id, access_type, stream_url, price, source, fetched_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(show_id, service_id, access_type) DO UPDATE SET
             stream_url = COALESCE(excluded.stream_url, streaming_availability.stream_url),
             price      = COALESCE(excluded.price, streaming_availability.price),
             source     = excluded.source,
             fetched_at = excluded.fetched_at`,
		row.ShowID, row.ServiceID, string(row.AccessType), nullableString(row.StreamURL),
		nullableFloatPtr(row.Price), string(row.Source), formatTime(s.now()),
	); err != nil {
		return fmt.Errorf("upsert availability: %w", err)
	}
	return nil
}

// AvailabilityForShow returns every availability row for a show ordered by
// service, access type, and id.
func (s *Store) AvailabilityForShow(ctx context.Context, showID int64) ([]Availability, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id, show_id, service_id, access_type, stream_url, stream_url_verified_at,
                stream_url_status, price, source, fetched_at
         FROM streaming_availability
         WHERE show_id = ?
         ORDER BY service_id, access_type, id`,
		showID,
	)
	if err != nil {
		return nil, fmt.Errorf("availability for show: %w", err)
	}
	defer rows.Close()

	var out []Availability
	for rows.Next() {
		var (
			row        Availability
			accessType string
			streamURL  sql.NullString
			verified   sql.NullString
			status     sql.NullInt64
			price      sql.NullFloat64
			source     string
			fetchedRaw string
		)
		if err := rows.Scan(&row.ID, &row.ShowID, &row.ServiceID, &accessType, &streamURL,
			&verified, &status, &price, &source, &fetchedRaw); err != nil {
			return nil, fmt.Errorf("scan availability: %w", err)
		}
		row.AccessType = AccessType(accessType)
		row.StreamURL = streamURL.String
		row.URLVerifiedAt = parseNullTime(verified)
		row.URLStatus = intPtr(status)
		row.Price = floatPtr(price)
		row.Source = Source(source)
		if fetched, err := parseTimeString(fetchedRaw); err == nil {
			row.FetchedAt = fetched
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// DeriveStatus computes the direct-link status implied by a show's rows:
// complete when there is at least one row and all carry a URL, partial when
// some do, pending otherwise.
func DeriveStatus(rows []Availability) EnrichStatus {
	withURL := 0
	for _, row := range rows {
		if row.StreamURL != "" {
			withURL++
		}
	}
	switch {
	case len(rows) > 0 && withURL == len(rows):
		return StatusComplete
	case withURL > 0:
		return StatusPartial
	default:
		return StatusPending
	}
}

// LinksToVerify selects rows with a URL that were never checked, or were checked
// before the cutoff that applies to their service tier. Rows last seen as 404
// are left alone.
func (s *Store) LinksToVerify(ctx context.Context, freeCutoff, paidCutoff time.Time, limit int) ([]LinkToVerify, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT sa.id, sa.show_id, sa.service_id, sa.stream_url, sv.is_free
         FROM streaming_availability sa
         JOIN services sv ON sv.id = sa.service_id
         WHERE sa.stream_url IS NOT NULL
           AND (sa.stream_url_status IS NULL OR sa.stream_url_status <> 404)
           AND (
               sa.stream_url_verified_at IS NULL
               OR (sv.is_free = 1 AND sa.stream_url_verified_at < ?)
               OR (sv.is_free = 0 AND sa.stream_url_verified_at < ?)
           )
         ORDER BY sa.stream_url_verified_at IS NOT NULL, sa.stream_url_verified_at, sa.id
         LIMIT ?`,
		formatTime(freeCutoff), formatTime(paidCutoff), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("links to verify: %w", err)
	}
	defer rows.Close()

	var links []LinkToVerify
	for rows.Next() {
		var (
			link LinkToVerify
			free int
		)
		if err := rows.Scan(&link.AvailabilityID, &link.ShowID, &link.ServiceID, &link.StreamURL, &free); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		link.ServiceFree = free != 0
		links = append(links, link)
	}
	return links, rows.Err()
}

// RecordVerification stores a check result. status 0 means no HTTP response.
func (s *Store) RecordVerification(ctx context.Context, availabilityID int64, status int, at time.Time) error {
	if err := s.execWithoutResultRetry(ctx,
		`UPDATE streaming_availability SET stream_url_status = ?, stream_url_verified_at = ? WHERE id = ?`,
		status, formatTime(at), availabilityID,
	); err != nil {
		return fmt.Errorf("record verification: %w", err)
	}
	return nil
}
