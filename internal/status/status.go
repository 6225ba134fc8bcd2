// Package status derives queue counts and recent-error summaries for
// external consumption.
package status

import (
	"context"
	"sync"
	"time"

	"readout/internal/queue"
)

// errorCapacity bounds the recent-error ring.
const errorCapacity = 20

// ErrorEntry is one classified failure surfaced to clients.
type ErrorEntry struct {
	Time    time.Time `json:"time"`
	TaskID  int64     `json:"task_id"`
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
}

// Snapshot is a point-in-time view of the queue.
type Snapshot struct {
	Queue      queue.Stats   `json:"queue"`
	Tasks      []*queue.Task `json:"tasks"`
	Errors     []ErrorEntry  `json:"errors"`
	LastUpdate time.Time     `json:"lastUpdate"`
}

// Aggregator accumulates recent errors and stamps queue activity. It is safe
// for concurrent use by workers and the API server.
type Aggregator struct {
	store *queue.Store

	mu         sync.Mutex
	errors     []ErrorEntry
	lastUpdate time.Time
	now        func() time.Time
}

// NewAggregator builds an aggregator over the task store.
func NewAggregator(store *queue.Store) *Aggregator {
	return &Aggregator{store: store, now: time.Now}
}

// RecordError appends a classified failure to the bounded recent-error list,
// newest first.
func (a *Aggregator) RecordError(taskID int64, kind, message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	entry := ErrorEntry{Time: a.now().UTC(), TaskID: taskID, Kind: kind, Message: message}
	a.errors = append([]ErrorEntry{entry}, a.errors...)
	if len(a.errors) > errorCapacity {
		a.errors = a.errors[:errorCapacity]
	}
	a.lastUpdate = entry.Time
}

// Touch stamps queue activity without recording an error.
func (a *Aggregator) Touch() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastUpdate = a.now().UTC()
}

// Snapshot reads current counts and tasks from the store and combines them
// with the recent-error list. An empty queue yields zero counts, not an
// error.
func (a *Aggregator) Snapshot(ctx context.Context) (*Snapshot, error) {
	stats, err := a.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	tasks, err := a.store.List(ctx)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	snapshot := &Snapshot{
		Queue:      stats,
		Tasks:      tasks,
		Errors:     make([]ErrorEntry, len(a.errors)),
		LastUpdate: a.lastUpdate,
	}
	copy(snapshot.Errors, a.errors)
	return snapshot, nil
}
