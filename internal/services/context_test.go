package services_test

import (
	"context"
	"testing"

	"readout/internal/services"
)

func TestTaskIDRoundTrip(t *testing.T) {
	ctx := services.WithTaskID(context.Background(), 42)
	id, ok := services.TaskIDFromContext(ctx)
	if !ok || id != 42 {
		t.Fatalf("TaskIDFromContext = %d, %v", id, ok)
	}
	if _, ok := services.TaskIDFromContext(context.Background()); ok {
		t.Fatal("empty context should carry no task id")
	}
}

func TestStageRoundTrip(t *testing.T) {
	ctx := services.WithStage(context.Background(), "extract")
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "extract" {
		t.Fatalf("StageFromContext = %q, %v", stage, ok)
	}
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := services.WithRequestID(context.Background(), "req-7")
	if id, ok := services.RequestIDFromContext(ctx); !ok || id != "req-7" {
		t.Fatalf("RequestIDFromContext = %q, %v", id, ok)
	}
}
