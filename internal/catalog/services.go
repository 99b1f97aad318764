package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"streamguide/internal/config"
)

// seedServices inserts the configured platforms. Existing rows are left as
// they are.
func (s *Store) seedServices(ctx context.Context, services []config.Service) error {
	if len(services) == 0 {
		return nil
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO services (id, display_name, is_free, color_hex, base_url)
             VALUES (?, ?, ?, ?, ?)
             ON CONFLICT(id) DO NOTHING`,
		)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, svc := range services {
			if _, err := stmt.ExecContext(ctx, svc.ID, svc.Name, boolToInt(svc.Free),
				nullableString(svc.Color), nullableString(svc.URL)); err != nil {
				return fmt.Errorf("service %s: %w", svc.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("seed services: %w", err)
	}
	return nil
}

// Services lists every platform, paid services first, then by display name.
func (s *Store) Services(ctx context.Context) ([]Service, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id, display_name, is_free, color_hex, base_url FROM services ORDER BY is_free, display_name`,
	)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var out []Service
	for rows.Next() {
		var (
			svc   Service
			free  int
			color sql.NullString
			base  sql.NullString
		)
		if err := rows.Scan(&svc.ID, &svc.DisplayName, &free, &color, &base); err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		svc.IsFree = free != 0
		svc.ColorHex = color.String
		svc.BaseURL = base.String
		out = append(out, svc)
	}
	return out, rows.Err()
}
