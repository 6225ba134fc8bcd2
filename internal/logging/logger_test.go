package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"readout/internal/services"
)

func TestConsoleHandlerFormatsComponentAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	NewComponentLogger(logger, "queue").Info("task enqueued", Int64(FieldTaskID, 7), String("mode", "summary"))

	line := buf.String()
	if !strings.Contains(line, "INFO queue: task enqueued") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "task_id=7") || !strings.Contains(line, "mode=summary") {
		t.Fatalf("expected attrs in line: %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newConsoleHandler(&buf, new(slog.LevelVar)))
	logger.Info("failed", String("reason", "no such host"))
	if !strings.Contains(buf.String(), `reason="no such host"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestWithContextAddsTaskFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newConsoleHandler(&buf, new(slog.LevelVar)))

	ctx := services.WithTaskID(context.Background(), 42)
	ctx = services.WithStage(ctx, "extract")
	WithContext(ctx, logger).Info("stage started")

	line := buf.String()
	if !strings.Contains(line, "task_id=42") || !strings.Contains(line, "stage=extract") {
		t.Fatalf("expected context fields in line: %q", line)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	logger.Error("should not panic", Error(nil))
}
