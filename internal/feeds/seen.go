package feeds

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// seenStore persists links already surfaced so repeated scans never
// re-surface the same article.
type seenStore struct {
	db *sql.DB
}

// markSeen records a link and reports whether it was new.
func (s *seenStore) markSeen(ctx context.Context, link string, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO seen_links (link, seen_at) VALUES (?, ?) ON CONFLICT(link) DO NOTHING`,
		link, now.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return false, fmt.Errorf("insert seen link: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("seen link rows affected: %w", err)
	}
	return affected == 1, nil
}

// prune drops links older than the cutoff.
func (s *seenStore) prune(ctx context.Context, cutoff time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM seen_links WHERE seen_at < ?`,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("prune seen links: %w", err)
	}
	return nil
}
