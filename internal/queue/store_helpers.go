package queue

import (
	"database/sql"
	"time"
)

const taskColumns = "id, origin_kind, origin, mode, engine, status, progress, stage, title, error_kind, error_message, media_id, dedup_key, cancel_requested, created_at, updated_at"

func scanTask(scanner interface{ Scan(dest ...any) error }) (*Task, error) {
	var (
		id           int64
		originKind   string
		origin       string
		mode         string
		engine       sql.NullString
		statusStr    string
		progress     sql.NullInt64
		stage        sql.NullString
		title        sql.NullString
		errorKind    sql.NullString
		errorMessage sql.NullString
		mediaID      sql.NullString
		dedupKey     string
		cancelFlag   sql.NullInt64
		createdRaw   string
		updatedRaw   string
	)

	if err := scanner.Scan(
		&id,
		&originKind,
		&origin,
		&mode,
		&engine,
		&statusStr,
		&progress,
		&stage,
		&title,
		&errorKind,
		&errorMessage,
		&mediaID,
		&dedupKey,
		&cancelFlag,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	task := &Task{
		ID:           id,
		Origin:       Origin{Kind: OriginKind(originKind), Value: origin},
		Mode:         Mode(mode),
		Engine:       engine.String,
		Status:       Status(statusStr),
		Progress:     int(progress.Int64),
		Stage:        stage.String,
		Title:        title.String,
		ErrorKind:    errorKind.String,
		ErrorMessage: errorMessage.String,
		MediaID:      mediaID.String,
		DedupKey:     dedupKey,
	}
	task.CancelRequested = cancelFlag.Valid && cancelFlag.Int64 != 0
	task.CreatedAt = parseTimestamp(createdRaw)
	task.UpdatedAt = parseTimestamp(updatedRaw)
	return task, nil
}

func parseTimestamp(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts
	}
	return time.Time{}
}
