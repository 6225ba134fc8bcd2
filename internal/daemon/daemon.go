package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gofrs/flock"

	"readout/internal/config"
	"readout/internal/feeds"
	"readout/internal/logging"
	"readout/internal/media"
	"readout/internal/queue"
	"readout/internal/scheduler"
	"readout/internal/sources"
	"readout/internal/status"
	"readout/internal/workflow"
)

// Components carries the services the daemon coordinates.
type Components struct {
	Store    *queue.Store
	Sources  *sources.Store
	Media    *media.Store
	Workflow *workflow.Manager
	Scanner  *feeds.Scanner
	Trigger  *scheduler.Trigger
	Status   *status.Aggregator
}

// Daemon owns the process lifecycle: lock, recovery, workers, scheduler, API.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	comps  Components

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon from initialized components.
func New(cfg *config.Config, comps Components, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || comps.Store == nil || comps.Workflow == nil || comps.Status == nil {
		return nil, errors.New("daemon requires config, queue store, workflow manager, and status aggregator")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockFilePath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logger.With(logging.String(logging.FieldComponent, "daemon")),
		comps:    comps,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the singleton lock, requeues tasks interrupted by a previous
// shutdown, and launches the workers, the scan trigger, and the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", d.lockPath, err)
	}
	if !ok {
		return fmt.Errorf("another readout daemon holds %s", d.lockPath)
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	recovered, err := d.comps.Store.RecoverInterrupted(runCtx)
	if err != nil {
		d.releaseLock()
		cancel()
		return fmt.Errorf("recover interrupted tasks: %w", err)
	}
	if recovered > 0 {
		d.logger.Info("requeued interrupted tasks", logging.Int64("count", recovered))
	}

	if err := d.comps.Workflow.Start(runCtx); err != nil {
		d.releaseLock()
		cancel()
		return fmt.Errorf("start workflow: %w", err)
	}
	if d.comps.Trigger != nil {
		if err := d.comps.Trigger.Start(runCtx); err != nil {
			d.comps.Workflow.Stop()
			d.releaseLock()
			cancel()
			return fmt.Errorf("start scheduler: %w", err)
		}
	}
	if err := d.api.start(runCtx); err != nil {
		if d.comps.Trigger != nil {
			d.comps.Trigger.Stop()
		}
		d.comps.Workflow.Stop()
		d.releaseLock()
		cancel()
		return err
	}

	d.running.Store(true)
	d.logger.Info("daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts the services down in reverse order and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	if d.comps.Trigger != nil {
		d.comps.Trigger.Stop()
	}
	d.comps.Workflow.Stop()
	d.releaseLock()
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close stops the daemon and closes the queue store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.comps.Store.Close()
}

// Addr returns the API listen address, empty until Start.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

func (d *Daemon) releaseLock() {
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("release daemon lock failed", logging.Error(err))
	}
}
