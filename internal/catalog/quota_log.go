package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// LogCall appends one provider call to the quota log. A zero CalledAt uses
// the store clock.
func (s *Store) LogCall(ctx context.Context, rec CallRecord) error {
	if strings.TrimSpace(rec.Source) == "" {
		return errors.New("log call: source is required")
	}
	calledAt := rec.CalledAt
	if calledAt.IsZero() {
		calledAt = s.now()
	}
	if err := s.execWithoutResultRetry(ctx,
		`INSERT INTO api_quota_log (source, endpoint, show_id, success, called_at) VALUES (?, ?, ?, ?, ?)`,
		rec.Source, rec.Endpoint, nullableInt64Ptr(rec.ShowID), boolToInt(rec.Success), formatTime(calledAt),
	); err != nil {
		return fmt.Errorf("log call: %w", err)
	}
	return nil
}

// CountCalls returns the number of successful calls for source at or after since.
func (s *Store) CountCalls(ctx context.Context, source string, since time.Time) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT COUNT(1) FROM api_quota_log WHERE source = ? AND success = 1 AND called_at >= ?`,
		source, formatTime(since),
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count calls: %w", err)
	}
	return n, nil
}
