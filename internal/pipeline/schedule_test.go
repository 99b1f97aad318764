package pipeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"streamguide/internal/logging"
	"streamguide/internal/pipeline"
	"streamguide/internal/services"
)

func TestNewSchedulerRejectsInvalidCron(t *testing.T) {
	runner := pipeline.NewRunner("", nil, nil, logging.NewNop(), nil)
	if _, err := pipeline.NewScheduler(runner, pipeline.ModeDaily, "every morning", logging.NewNop()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestSchedulerNext(t *testing.T) {
	runner := pipeline.NewRunner("", nil, nil, logging.NewNop(), nil)
	sched, err := pipeline.NewScheduler(runner, pipeline.ModeDaily, "0 6 * * *", logging.NewNop())
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	from := time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)
	want := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	if got := sched.Next(from); !got.Equal(want) {
		t.Fatalf("Next = %v, want %v", got, want)
	}
}

func TestSchedulerRunStopsWithContext(t *testing.T) {
	runner := pipeline.NewRunner("", nil, nil, logging.NewNop(), nil)
	sched, err := pipeline.NewScheduler(runner, pipeline.ModeDaily, "@yearly", logging.NewNop())
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
