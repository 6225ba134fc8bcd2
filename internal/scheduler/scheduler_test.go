package scheduler_test

import (
	"context"
	"testing"
	"time"

	"readout/internal/scheduler"
)

func newTrigger(t *testing.T, times []string, run func(context.Context)) *scheduler.Trigger {
	t.Helper()
	if run == nil {
		run = func(context.Context) {}
	}
	trigger, err := scheduler.New(times, run, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return trigger
}

func TestNextFire(t *testing.T) {
	trigger := newTrigger(t, []string{"18:00", "06:00"}, nil)

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before first", day.Add(5 * time.Hour), day.Add(6 * time.Hour)},
		{"between fires", day.Add(12 * time.Hour), day.Add(18 * time.Hour)},
		{"after last wraps to tomorrow", day.Add(20 * time.Hour), day.Add(30 * time.Hour)},
		{"exactly at a fire time picks the next", day.Add(6 * time.Hour), day.Add(18 * time.Hour)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := trigger.NextFire(tc.now); !got.Equal(tc.want) {
				t.Fatalf("NextFire(%v) = %v, want %v", tc.now, got, tc.want)
			}
		})
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	if _, err := scheduler.New(nil, func(context.Context) {}, nil); err == nil {
		t.Fatal("expected error for empty fire times")
	}
	if _, err := scheduler.New([]string{"25:00"}, func(context.Context) {}, nil); err == nil {
		t.Fatal("expected error for invalid fire time")
	}
	if _, err := scheduler.New([]string{"06:00"}, nil, nil); err == nil {
		t.Fatal("expected error for missing callback")
	}
}

func TestForceRunFiresImmediately(t *testing.T) {
	fired := make(chan struct{}, 1)
	trigger := newTrigger(t, []string{"06:00"}, func(context.Context) {
		select {
		case fired <- struct{}{}:
		default:
		}
	})

	if err := trigger.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer trigger.Stop()

	trigger.ForceRun()
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("forced run did not fire")
	}
}

func TestStartTwiceFails(t *testing.T) {
	trigger := newTrigger(t, []string{"06:00"}, nil)
	if err := trigger.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer trigger.Stop()
	if err := trigger.Start(context.Background()); err == nil {
		t.Fatal("expected second Start to fail")
	}
}
