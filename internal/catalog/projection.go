package catalog

import (
	"context"
	"database/sql"
	"fmt"
)

// ProjectedShow is one featured title in the published artifact.
type ProjectedShow struct {
	ID             int64          `json:"id"`
	TMDBID         int64          `json:"tmdb_id"`
	Title          string         `json:"title"`
	ShowType       ShowType       `json:"show_type"`
	ReleaseYear    *int           `json:"release_year"`
	RuntimeMinutes *int           `json:"runtime_minutes"`
	SeasonCount    *int           `json:"season_count"`
	Overview       string         `json:"overview"`
	Rating         *float64       `json:"rating"`
	Genres         []string       `json:"genres"`
	ImageURL       string         `json:"image_url"`
	YouTubeURL     string         `json:"youtube_url"`
	Services       []ServiceBadge `json:"services"`
}

// ServiceBadge is an availability row joined with its platform.
type ServiceBadge struct {
	ServiceID       string     `json:"service_id"`
	DisplayName     string     `json:"display_name"`
	AccessType      AccessType `json:"access_type"`
	StreamURL       string     `json:"stream_url"`
	StreamURLStatus *int       `json:"stream_url_status"`
	Price           *float64   `json:"price"`
	ColorHex        string     `json:"color_hex"`
	BaseURL         string     `json:"base_url"`
	IsFree          bool       `json:"is_free"`
}

// FeaturedProjection assembles every featured title with its availability.
// Rows last checked as 404 are dropped and each (service, access type) pair
// appears once.
func (s *Store) FeaturedProjection(ctx context.Context) ([]ProjectedShow, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tmdb_id, title, show_type, release_year, runtime_minutes, season_count,
                overview, rating, genres, image_url, youtube_url
         FROM shows
         WHERE is_featured = 1
         ORDER BY rating IS NULL, rating DESC, title ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("featured projection: %w", err)
	}
	var (
		shows []ProjectedShow
		index = make(map[int64]int)
	)
	for rows.Next() {
		var (
			show     ProjectedShow
			showType string
			year     sql.NullInt64
			runtime  sql.NullInt64
			seasons  sql.NullInt64
			overview sql.NullString
			rating   sql.NullFloat64
			genres   sql.NullString
			image    sql.NullString
			youtube  sql.NullString
		)
		if err := rows.Scan(&show.ID, &show.TMDBID, &show.Title, &showType, &year, &runtime, &seasons,
			&overview, &rating, &genres, &image, &youtube); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan projected show: %w", err)
		}
		show.ShowType = ShowType(showType)
		show.ReleaseYear = intPtr(year)
		show.RuntimeMinutes = intPtr(runtime)
		show.SeasonCount = intPtr(seasons)
		show.Overview = overview.String
		show.Rating = floatPtr(rating)
		show.Genres = decodeGenres(genres)
		if show.Genres == nil {
			show.Genres = []string{}
		}
		show.ImageURL = image.String
		show.YouTubeURL = youtube.String
		show.Services = []ServiceBadge{}
		index[show.ID] = len(shows)
		shows = append(shows, show)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("featured projection: %w", err)
	}
	rows.Close()

	if err := s.attachBadges(ctx, shows, index); err != nil {
		return nil, err
	}
	return shows, nil
}

func (s *Store) attachBadges(ctx context.Context, shows []ProjectedShow, index map[int64]int) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sa.show_id, sa.service_id, sv.display_name, sa.access_type, sa.stream_url,
                sa.stream_url_status, sa.price, sv.color_hex, sv.base_url, sv.is_free
         FROM streaming_availability sa
         JOIN services sv ON sv.id = sa.service_id
         JOIN shows s ON s.id = sa.show_id
         WHERE s.is_featured = 1
           AND (sa.stream_url_status IS NULL OR sa.stream_url_status <> 404)
         ORDER BY sa.show_id, sa.service_id, sa.access_type, sa.id`,
	)
	if err != nil {
		return fmt.Errorf("projection availability: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	for rows.Next() {
		var (
			showID     int64
			badge      ServiceBadge
			accessType string
			streamURL  sql.NullString
			status     sql.NullInt64
			price      sql.NullFloat64
			color      sql.NullString
			base       sql.NullString
			free       int
		)
		if err := rows.Scan(&showID, &badge.ServiceID, &badge.DisplayName, &accessType, &streamURL,
			&status, &price, &color, &base, &free); err != nil {
			return fmt.Errorf("scan projection availability: %w", err)
		}
		i, ok := index[showID]
		if !ok {
			continue
		}
		key := fmt.Sprintf("%d|%s|%s", showID, badge.ServiceID, accessType)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		badge.AccessType = AccessType(accessType)
		badge.StreamURL = streamURL.String
		badge.StreamURLStatus = intPtr(status)
		badge.Price = floatPtr(price)
		badge.ColorHex = color.String
		badge.BaseURL = base.String
		badge.IsFree = free != 0 || badge.AccessType == AccessFree
		shows[i].Services = append(shows[i].Services, badge)
	}
	return rows.Err()
}
