// Package scheduler fires a callback at fixed wall-clock times each day,
// with an out-of-band trigger for immediate runs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"readout/internal/config"
	"readout/internal/logging"
)

type fireTime struct {
	hour   int
	minute int
}

// Trigger runs a callback at configured times of day. ForceRun fires it
// immediately without disturbing the schedule.
type Trigger struct {
	times  []fireTime
	run    func(context.Context)
	logger *slog.Logger
	now    func() time.Time
	force  chan struct{}

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option customizes a Trigger.
type Option func(*Trigger)

// WithNow overrides the clock.
func WithNow(now func() time.Time) Option {
	return func(t *Trigger) { t.now = now }
}

// New builds a Trigger from "HH:MM" fire times.
func New(fetchTimes []string, run func(context.Context), logger *slog.Logger, opts ...Option) (*Trigger, error) {
	if len(fetchTimes) == 0 {
		return nil, errors.New("scheduler requires at least one fire time")
	}
	if run == nil {
		return nil, errors.New("scheduler requires a callback")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	times := make([]fireTime, 0, len(fetchTimes))
	for _, value := range fetchTimes {
		hour, minute, err := config.ParseClockTime(value)
		if err != nil {
			return nil, fmt.Errorf("parse fire time %q: %w", value, err)
		}
		times = append(times, fireTime{hour: hour, minute: minute})
	}
	sort.Slice(times, func(i, j int) bool {
		if times[i].hour != times[j].hour {
			return times[i].hour < times[j].hour
		}
		return times[i].minute < times[j].minute
	})

	return &Trigger{
		times:  times,
		run:    run,
		logger: logger.With(logging.String(logging.FieldComponent, "scheduler")),
		now:    time.Now,
		force:  make(chan struct{}, 1),
	}, nil
}

// Start begins the timer loop.
func (t *Trigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return errors.New("scheduler already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.running = true
	t.wg.Add(1)
	t.mu.Unlock()

	go t.loop(runCtx)
	return nil
}

// Stop terminates the timer loop and waits for completion.
func (t *Trigger) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	cancel := t.cancel
	t.running = false
	t.cancel = nil
	t.mu.Unlock()

	cancel()
	t.wg.Wait()
}

// ForceRun requests an immediate out-of-band firing. Non-blocking; a request
// while one is already queued is coalesced.
func (t *Trigger) ForceRun() {
	select {
	case t.force <- struct{}{}:
	default:
	}
}

func (t *Trigger) loop(ctx context.Context) {
	defer t.wg.Done()
	for {
		next := t.NextFire(t.now())
		timer := time.NewTimer(next.Sub(t.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			t.logger.Info("scheduled run", logging.String("fired_at", next.Format("15:04")))
			t.run(ctx)
		case <-t.force:
			timer.Stop()
			t.logger.Info("forced run")
			t.run(ctx)
		}
	}
}

// NextFire returns the next configured fire instant strictly after now.
func (t *Trigger) NextFire(now time.Time) time.Time {
	for _, ft := range t.times {
		candidate := time.Date(now.Year(), now.Month(), now.Day(), ft.hour, ft.minute, 0, 0, now.Location())
		if candidate.After(now) {
			return candidate
		}
	}
	first := t.times[0]
	tomorrow := now.AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), first.hour, first.minute, 0, 0, now.Location())
}
