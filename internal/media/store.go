package media

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"readout/internal/services"
)

const itemColumns = "id, content_type, title, source_url, audio_file, markdown_file, full_text, short_text, date_added, date_published"

// Store manages media records. It shares the task database handle.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Insert persists a media record. The id must be unique; a second completion
// of the same content overwrites the previous record.
func (s *Store) Insert(ctx context.Context, item *Item) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO media_items (`+itemColumns+`)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
            content_type = excluded.content_type,
            title = excluded.title,
            source_url = excluded.source_url,
            audio_file = excluded.audio_file,
            markdown_file = excluded.markdown_file,
            full_text = excluded.full_text,
            short_text = excluded.short_text,
            date_added = excluded.date_added,
            date_published = excluded.date_published`,
		item.ID,
		string(item.ContentType),
		item.Title,
		nullable(item.SourceURL),
		item.AudioFile,
		nullable(item.MarkdownFile),
		item.FullText,
		nullable(item.ShortText),
		item.DateAdded.UTC().Format(time.RFC3339Nano),
		nullableTime(item.DatePublished),
	)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "package", "insert media", item.ID, err)
	}
	return nil
}

// GetByID fetches one media record, optionally constrained to a content type.
func (s *Store) GetByID(ctx context.Context, contentType ContentType, id string) (*Item, error) {
	query := "SELECT " + itemColumns + " FROM media_items WHERE id = ?"
	args := []any{id}
	if contentType != "" {
		query += " AND content_type = ?"
		args = append(args, string(contentType))
	}
	row := s.db.QueryRowContext(ctx, query, args...)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "media", "get", id, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get media %s: %w", id, err)
	}
	return item, nil
}

// List returns media records newest first. A zero limit returns everything;
// contentType "" spans all types.
func (s *Store) List(ctx context.Context, contentType ContentType, limit, offset int) ([]*Item, error) {
	query := "SELECT " + itemColumns + " FROM media_items"
	var args []any
	if contentType != "" {
		query += " WHERE content_type = ?"
		args = append(args, string(contentType))
	}
	query += " ORDER BY date_added DESC, id"
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query media: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan media: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate media: %w", err)
	}
	return items, nil
}

// Delete removes records and their backing files. Unknown refs are skipped;
// the first filesystem or database failure aborts. Returns how many records
// were removed.
func (s *Store) Delete(ctx context.Context, refs []Ref) (int, error) {
	deleted := 0
	for _, ref := range refs {
		item, err := s.GetByID(ctx, ref.ContentType, ref.ID)
		if errors.Is(err, services.ErrNotFound) {
			continue
		}
		if err != nil {
			return deleted, err
		}

		for _, path := range []string{item.AudioFile, item.MarkdownFile} {
			if path == "" {
				continue
			}
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				return deleted, services.Wrap(services.ErrPersistence, "media", "delete file", path, err)
			}
		}
		if _, err := s.db.ExecContext(ctx, `DELETE FROM media_items WHERE id = ?`, item.ID); err != nil {
			return deleted, services.Wrap(services.ErrPersistence, "media", "delete record", item.ID, err)
		}
		deleted++
	}
	return deleted, nil
}

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id           string
		contentType  string
		title        string
		sourceURL    sql.NullString
		audioFile    string
		markdownFile sql.NullString
		fullText     string
		shortText    sql.NullString
		addedRaw     string
		publishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&id, &contentType, &title, &sourceURL, &audioFile,
		&markdownFile, &fullText, &shortText, &addedRaw, &publishedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:           id,
		ContentType:  ContentType(contentType),
		Title:        title,
		SourceURL:    sourceURL.String,
		AudioFile:    audioFile,
		MarkdownFile: markdownFile.String,
		FullText:     fullText,
		ShortText:    shortText.String,
	}
	if ts, err := time.Parse(time.RFC3339Nano, addedRaw); err == nil {
		item.DateAdded = ts
	}
	if publishedRaw.Valid {
		if ts, err := time.Parse(time.RFC3339Nano, publishedRaw.String); err == nil {
			item.DatePublished = ts
		}
	}
	return item, nil
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(ts time.Time) any {
	if ts.IsZero() {
		return nil
	}
	return ts.UTC().Format(time.RFC3339Nano)
}
