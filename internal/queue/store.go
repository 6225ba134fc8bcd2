package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"readout/internal/config"
	"readout/internal/services"
)

// Store manages queue persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// Open initializes or connects to the task database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DB exposes the shared database handle so sibling stores (sources, feeds,
// media) can operate on the same file.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Enqueue validates the origin and inserts a new pending task. A matching
// active task (same normalized origin and mode) is rejected with ErrDuplicate.
func (s *Store) Enqueue(ctx context.Context, origin Origin, mode Mode, engine string) (*Task, error) {
	ctx = ensureContext(ctx)
	if err := origin.Validate(); err != nil {
		return nil, err
	}
	if _, ok := ParseMode(string(mode)); !ok {
		return nil, services.Wrap(services.ErrValidation, "queue", "enqueue", fmt.Sprintf("unknown mode %q", mode), nil)
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO queue_items (
            origin_kind, origin, mode, engine, status, progress,
            dedup_key, cancel_requested, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, 0, ?, 0, ?, ?)`,
		string(origin.Kind),
		origin.Value,
		string(mode),
		engine,
		StatusPending,
		DedupKey(origin, mode),
		timestamp,
		timestamp,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, services.Wrap(services.ErrDuplicate, "queue", "enqueue", "a matching task is already pending or processing", nil)
		}
		return nil, services.Wrap(services.ErrPersistence, "queue", "enqueue", "insert task", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "queue", "enqueue", "last insert id", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a single task.
func (s *Store) GetByID(ctx context.Context, id int64) (*Task, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM queue_items WHERE id = ?", id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "queue", "get", fmt.Sprintf("task %d", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}
	return task, nil
}

// ClaimNext atomically promotes the oldest pending task to processing and
// returns it. Returns nil without error when the queue has no pending work.
// The compare-and-swap on status guarantees no two callers claim the same
// task.
func (s *Store) ClaimNext(ctx context.Context) (*Task, error) {
	ctx = ensureContext(ctx)
	for {
		var id int64
		err := s.db.QueryRowContext(ctx,
			`SELECT id FROM queue_items WHERE status = ? ORDER BY created_at, id LIMIT 1`,
			StatusPending,
		).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("select next pending: %w", err)
		}

		timestamp := time.Now().UTC().Format(time.RFC3339Nano)
		res, err := s.execWithRetry(ctx,
			`UPDATE queue_items
             SET status = ?, progress = 0, stage = NULL,
                 error_kind = NULL, error_message = NULL, updated_at = ?
             WHERE id = ? AND status = ?`,
			StatusProcessing, timestamp, id, StatusPending,
		)
		if err != nil {
			return nil, fmt.Errorf("claim task %d: %w", id, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("claim rows affected: %w", err)
		}
		if affected == 1 {
			return s.GetByID(ctx, id)
		}
		// Another worker won the race; try the next candidate.
	}
}

// UpdateProgress records stage progress for a processing task. Progress is
// clamped to be monotone non-decreasing; updates on tasks that are no longer
// processing are silently dropped.
func (s *Store) UpdateProgress(ctx context.Context, id int64, stage string, progress int) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(ensureContext(ctx),
		`UPDATE queue_items
         SET progress = max(progress, ?), stage = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		progress, stage, timestamp, id, StatusProcessing,
	)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "queue", "update progress", fmt.Sprintf("task %d", id), err)
	}
	return nil
}

// SetTitle records the resolved title on a task once extraction knows it.
func (s *Store) SetTitle(ctx context.Context, id int64, title string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(ensureContext(ctx),
		`UPDATE queue_items SET title = ?, updated_at = ? WHERE id = ?`,
		title, timestamp, id,
	)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "queue", "set title", fmt.Sprintf("task %d", id), err)
	}
	return nil
}

// Complete marks a task finished and records the media record it produced.
func (s *Store) Complete(ctx context.Context, id int64, mediaID string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(ensureContext(ctx),
		`UPDATE queue_items
         SET status = ?, progress = 100, media_id = ?,
             error_kind = NULL, error_message = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusCompleted, mediaID, timestamp, id, StatusProcessing,
	)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "queue", "complete", fmt.Sprintf("task %d", id), err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "queue", "complete", fmt.Sprintf("task %d is not processing", id), nil)
	}
	return nil
}

// Fail marks a task terminally failed with its classified error.
func (s *Store) Fail(ctx context.Context, id int64, kind, message string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(ensureContext(ctx),
		`UPDATE queue_items
         SET status = ?, error_kind = ?, error_message = ?, media_id = NULL, updated_at = ?
         WHERE id = ?`,
		StatusFailed, kind, message, timestamp, id,
	)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "queue", "fail", fmt.Sprintf("task %d", id), err)
	}
	return nil
}

// RequestCancel flags a processing task for cooperative cancellation. The
// worker observes the flag between stages and aborts at the next checkpoint.
func (s *Store) RequestCancel(ctx context.Context, id int64) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(ensureContext(ctx),
		`UPDATE queue_items SET cancel_requested = 1, updated_at = ? WHERE id = ? AND status = ?`,
		timestamp, id, StatusProcessing,
	)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "queue", "request cancel", fmt.Sprintf("task %d", id), err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("cancel rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "queue", "request cancel", fmt.Sprintf("task %d is not processing", id), nil)
	}
	return nil
}

// CancelRequested reports whether cancellation has been requested for a task.
func (s *Store) CancelRequested(ctx context.Context, id int64) (bool, error) {
	var flag int
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT cancel_requested FROM queue_items WHERE id = ?`, id).Scan(&flag)
	if errors.Is(err, sql.ErrNoRows) {
		return false, services.Wrap(services.ErrNotFound, "queue", "cancel requested", fmt.Sprintf("task %d", id), nil)
	}
	if err != nil {
		return false, fmt.Errorf("read cancel flag: %w", err)
	}
	return flag != 0, nil
}

// Remove deletes a pending, completed, or failed task. Processing tasks are
// flagged for cooperative cancellation instead of being deleted. The task's
// media record, if any, is never touched.
func (s *Store) Remove(ctx context.Context, id int64) error {
	ctx = ensureContext(ctx)
	task, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if task.Status == StatusProcessing {
		return s.RequestCancel(ctx, id)
	}
	_, err = s.execWithRetry(ctx, `DELETE FROM queue_items WHERE id = ?`, id)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "queue", "remove", fmt.Sprintf("task %d", id), err)
	}
	return nil
}

// RecoverInterrupted re-queues tasks left processing by a previous run. Each
// interrupted task becomes pending again with progress reset, so a restart
// never loses in-flight work. Returns the number of recovered tasks.
func (s *Store) RecoverInterrupted(ctx context.Context) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(ensureContext(ctx),
		`UPDATE queue_items
         SET status = ?, progress = 0, stage = NULL, cancel_requested = 0, updated_at = ?
         WHERE status = ?`,
		StatusPending, timestamp, StatusProcessing,
	)
	if err != nil {
		return 0, services.Wrap(services.ErrPersistence, "queue", "recover", "re-queue interrupted tasks", err)
	}
	return res.RowsAffected()
}

// List returns all tasks ordered oldest first.
func (s *Store) List(ctx context.Context) ([]*Task, error) {
	return s.queryTasks(ensureContext(ctx),
		"SELECT "+taskColumns+" FROM queue_items ORDER BY created_at, id")
}

// ListByStatus returns tasks in the given status, oldest first.
func (s *Store) ListByStatus(ctx context.Context, status Status) ([]*Task, error) {
	return s.queryTasks(ensureContext(ctx),
		"SELECT "+taskColumns+" FROM queue_items WHERE status = ? ORDER BY created_at, id", status)
}

func (s *Store) queryTasks(ctx context.Context, query string, args ...any) ([]*Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

// Stats returns per-status task counts.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT status, COUNT(1) FROM queue_items GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("query stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var stats Stats
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, fmt.Errorf("scan stats: %w", err)
		}
		stats.Total += count
		switch Status(status) {
		case StatusPending:
			stats.Pending = count
		case StatusProcessing:
			stats.Processing = count
		case StatusCompleted:
			stats.Completed = count
		case StatusFailed:
			stats.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterate stats: %w", err)
	}
	return stats, nil
}
