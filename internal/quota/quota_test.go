package quota_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"streamguide/internal/quota"
	"streamguide/internal/services"
	"streamguide/internal/testsupport"
)

func TestCheckEvaluatesEveryWindow(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	tracker := quota.NewTracker(store, nil, nil)
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.Local)
	ctx := context.Background()

	// Earlier this month, outside today's window.
	tracker.SetClock(testsupport.FixedClock(now.AddDate(0, 0, -3)))
	for i := 0; i < 4; i++ {
		if err := tracker.LogCall(ctx, "watchmode", "title", nil, true); err != nil {
			t.Fatalf("LogCall: %v", err)
		}
	}
	tracker.SetClock(testsupport.FixedClock(now))
	for i := 0; i < 2; i++ {
		if err := tracker.LogCall(ctx, "watchmode", "title", nil, true); err != nil {
			t.Fatalf("LogCall: %v", err)
		}
	}
	if err := tracker.LogCall(ctx, "watchmode", "search", nil, false); err != nil {
		t.Fatalf("LogCall failure: %v", err)
	}

	budget, err := tracker.Check(ctx, "watchmode", []quota.Window{quota.Daily(3), quota.Monthly(10)})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(budget.Windows) != 2 {
		t.Fatalf("expected 2 windows, got %+v", budget.Windows)
	}
	if budget.Windows[0].Used != 2 || budget.Windows[0].Remaining != 1 {
		t.Fatalf("daily usage = %+v", budget.Windows[0])
	}
	if budget.Windows[1].Used != 6 || budget.Windows[1].Remaining != 4 {
		t.Fatalf("monthly usage = %+v", budget.Windows[1])
	}
	if budget.Remaining != 1 || budget.Exhausted() {
		t.Fatalf("budget = %+v", budget)
	}
	if budget.String() != "daily 2/3, monthly 6/10" {
		t.Fatalf("String() = %q", budget.String())
	}

	if err := tracker.LogCall(ctx, "watchmode", "title", nil, true); err != nil {
		t.Fatalf("LogCall: %v", err)
	}
	budget, err = tracker.Check(ctx, "watchmode", []quota.Window{quota.Daily(3), quota.Monthly(10)})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !budget.Exhausted() {
		t.Fatalf("expected exhausted budget, got %+v", budget)
	}
}

func TestCheckWithoutWindowsIsUnlimited(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	tracker := quota.NewTracker(store, nil, nil)
	budget, err := tracker.Check(context.Background(), "tmdb", nil)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if budget.Remaining != quota.Unlimited || budget.Exhausted() {
		t.Fatalf("budget = %+v", budget)
	}
}

func TestRecordCallUsesContextShowID(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	tracker := quota.NewTracker(store, nil, nil)
	ctx := services.WithShowID(context.Background(), 42)

	tracker.RecordCall(ctx, "motn", "shows", 200, nil)
	tracker.RecordCall(ctx, "motn", "shows", 404, errors.New("not found"))
	tracker.RecordCall(ctx, "motn", "shows", 429, errors.New("rate limited"))
	tracker.RecordCall(ctx, "motn", "shows", 0, errors.New("dial tcp: refused"))

	n, err := tracker.CountCalls(context.Background(), "motn", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("CountCalls: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 successful calls, got %d", n)
	}
}

func TestSucceeded(t *testing.T) {
	cases := []struct {
		status int
		err    error
		want   bool
	}{
		{200, nil, true},
		{404, errors.New("missing"), true},
		{429, errors.New("slow down"), false},
		{500, errors.New("boom"), false},
		{503, errors.New("unavailable"), false},
		{0, errors.New("timeout"), false},
	}
	for _, tc := range cases {
		if got := quota.Succeeded(tc.status, tc.err); got != tc.want {
			t.Fatalf("Succeeded(%d, %v) = %v, want %v", tc.status, tc.err, got, tc.want)
		}
	}
}
