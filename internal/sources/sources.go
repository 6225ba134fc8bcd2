// Package sources persists monitored feed sources and their keyword rules.
package sources

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"readout/internal/services"
)

// AcceptAll is the keyword sentinel that matches every entry.
const AcceptAll = "*"

// Source is a monitored origin with its keyword rules.
type Source struct {
	ID        int64
	URL       string
	Category  string
	Keywords  []string
	CreatedAt time.Time
}

// Store manages source persistence. It shares the task database handle.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Add inserts a source or merges keywords into an existing one with the same
// URL. Sources are never mutated by the pipeline, only by this call and
// Remove.
func (s *Store) Add(ctx context.Context, src Source) (*Source, error) {
	normalized, err := normalizeURL(src.URL)
	if err != nil {
		return nil, err
	}
	keywords := normalizeKeywords(src.Keywords)

	existing, err := s.getByURL(ctx, normalized)
	if err != nil && !errors.Is(err, services.ErrNotFound) {
		return nil, err
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	if existing == nil {
		encoded, err := json.Marshal(keywords)
		if err != nil {
			return nil, fmt.Errorf("encode keywords: %w", err)
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO sources (url, category, keywords, created_at) VALUES (?, ?, ?, ?)`,
			normalized, strings.TrimSpace(src.Category), string(encoded), timestamp,
		)
		if err != nil {
			return nil, services.Wrap(services.ErrPersistence, "sources", "add", normalized, err)
		}
		return s.getByURL(ctx, normalized)
	}

	merged := mergeKeywords(existing.Keywords, keywords)
	encoded, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("encode keywords: %w", err)
	}
	category := existing.Category
	if trimmed := strings.TrimSpace(src.Category); trimmed != "" {
		category = trimmed
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE sources SET category = ?, keywords = ? WHERE id = ?`,
		category, string(encoded), existing.ID,
	)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "sources", "merge", normalized, err)
	}
	return s.getByURL(ctx, normalized)
}

// Remove deletes a source by URL.
func (s *Store) Remove(ctx context.Context, rawURL string) error {
	normalized, err := normalizeURL(rawURL)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM sources WHERE url = ?`, normalized)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "sources", "remove", normalized, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "sources", "remove", normalized, nil)
	}
	return nil
}

// List returns all sources ordered by URL.
func (s *Store) List(ctx context.Context) ([]Source, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, category, keywords, created_at FROM sources ORDER BY url`)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sources: %w", err)
	}
	return out, nil
}

// AddGlobalKeywords adds keywords that apply to every source.
func (s *Store) AddGlobalKeywords(ctx context.Context, keywords []string) error {
	for _, keyword := range normalizeKeywords(keywords) {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO global_keywords (keyword) VALUES (?) ON CONFLICT(keyword) DO NOTHING`,
			keyword,
		)
		if err != nil {
			return services.Wrap(services.ErrPersistence, "sources", "add global keyword", keyword, err)
		}
	}
	return nil
}

// GlobalKeywords returns the global keyword set, sorted.
func (s *Store) GlobalKeywords(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT keyword FROM global_keywords ORDER BY keyword`)
	if err != nil {
		return nil, fmt.Errorf("query global keywords: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var keyword string
		if err := rows.Scan(&keyword); err != nil {
			return nil, fmt.Errorf("scan keyword: %w", err)
		}
		out = append(out, keyword)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keywords: %w", err)
	}
	return out, nil
}

func (s *Store) getByURL(ctx context.Context, normalized string) (*Source, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, url, category, keywords, created_at FROM sources WHERE url = ?`, normalized)
	src, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "sources", "get", normalized, nil)
	}
	if err != nil {
		return nil, err
	}
	return src, nil
}

func scanSource(scanner interface{ Scan(dest ...any) error }) (*Source, error) {
	var (
		id         int64
		rawURL     string
		category   sql.NullString
		keywords   sql.NullString
		createdRaw string
	)
	if err := scanner.Scan(&id, &rawURL, &category, &keywords, &createdRaw); err != nil {
		return nil, err
	}
	src := &Source{ID: id, URL: rawURL, Category: category.String}
	if keywords.Valid && keywords.String != "" {
		if err := json.Unmarshal([]byte(keywords.String), &src.Keywords); err != nil {
			return nil, fmt.Errorf("decode keywords for %s: %w", rawURL, err)
		}
	}
	if ts, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		src.CreatedAt = ts
	}
	return src, nil
}

func normalizeURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", services.Wrap(services.ErrValidation, "sources", "validate url", trimmed, err)
	}
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""
	return parsed.String(), nil
}

func normalizeKeywords(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		trimmed := strings.ToLower(strings.TrimSpace(keyword))
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	sort.Strings(out)
	return out
}

func mergeKeywords(a, b []string) []string {
	return normalizeKeywords(append(append([]string{}, a...), b...))
}
