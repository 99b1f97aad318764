package services_test

import (
	"context"
	"testing"
	"time"

	"streamguide/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithShowID(ctx, 42)
	ctx = services.WithStage(ctx, "presence")
	ctx = services.WithRunID(ctx, "run-123")

	if id, ok := services.ShowIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("unexpected show id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "presence" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if rid, ok := services.RunIDFromContext(ctx); !ok || rid != "run-123" {
		t.Fatalf("unexpected run id: %v %v", rid, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := services.WithStage(context.Background(), "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
}

func TestSleepWithContextHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := services.SleepWithContext(ctx, time.Minute); err == nil {
		t.Fatal("expected cancellation error")
	}
	if time.Since(start) > time.Second {
		t.Fatal("expected sleep to return immediately")
	}
	if err := services.SleepWithContext(context.Background(), 0); err != nil {
		t.Fatalf("zero sleep: %v", err)
	}
}
