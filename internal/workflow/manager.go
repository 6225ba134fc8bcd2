package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"readout/internal/config"
	"readout/internal/extract"
	"readout/internal/logging"
	"readout/internal/media"
	"readout/internal/queue"
	"readout/internal/synth"
)

// Extractor turns a task origin into an extracted document.
type Extractor interface {
	Extract(ctx context.Context, origin queue.Origin) (*extract.Document, error)
}

// Transformer produces derived text from an extracted document.
type Transformer interface {
	Summarize(ctx context.Context, text string) (string, error)
	PodcastScript(ctx context.Context, text string) (string, error)
	Title(ctx context.Context, text string) (string, error)
}

// EngineResolver looks up a synthesis engine by id.
type EngineResolver interface {
	Get(name string) (synth.Engine, error)
}

// Packager lays out output files and records finished media.
type Packager interface {
	AudioPath(id string) (string, error)
	Finalize(ctx context.Context, req media.Request) (*media.Item, error)
}

// Reporter receives task failures and completion timestamps.
type Reporter interface {
	RecordError(taskID int64, kind, message string)
	Touch()
}

// Deps bundles the stage implementations the manager drives.
type Deps struct {
	Extractor   Extractor
	Transformer Transformer
	Engines     EngineResolver
	Packager    Packager
	Reporter    Reporter
}

// Manager coordinates the worker pool over the queue store.
type Manager struct {
	cfg    *config.Config
	store  *queue.Store
	deps   Deps
	logger *slog.Logger

	workers      int
	pollInterval time.Duration
	errorRetry   time.Duration
	stageTimeout time.Duration
	retryBase    time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option overrides manager timing, used by tests.
type Option func(*Manager)

// WithPollInterval overrides the idle queue poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(m *Manager) { m.pollInterval = d }
}

// WithRetryBase overrides the base delay for stage retries.
func WithRetryBase(d time.Duration) Option {
	return func(m *Manager) { m.retryBase = d }
}

// NewManager constructs a workflow manager. All Deps fields except Reporter
// are required.
func NewManager(cfg *config.Config, store *queue.Store, deps Deps, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		cfg:          cfg,
		store:        store,
		deps:         deps,
		logger:       logger.With(logging.String(logging.FieldComponent, "workflow")),
		workers:      cfg.Workflow.Workers,
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		errorRetry:   time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		stageTimeout: time.Duration(cfg.Workflow.StageTimeout) * time.Second,
		retryBase:    time.Duration(cfg.Workflow.RetryBaseDelay) * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start launches the worker pool. It returns an error when the manager is
// already running or misconfigured.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("workflow already running")
	}
	if m.deps.Extractor == nil || m.deps.Transformer == nil || m.deps.Engines == nil || m.deps.Packager == nil {
		return errors.New("workflow stages not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	m.wg.Add(m.workers)
	for i := 0; i < m.workers; i++ {
		go m.runWorker(runCtx, i)
	}
	m.logger.Info("workflow started", logging.Int("workers", m.workers))
	return nil
}

// Stop terminates background processing and waits for in-flight tasks.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.logger.Info("workflow stopped")
}

func (m *Manager) runWorker(ctx context.Context, index int) {
	defer m.wg.Done()
	logger := m.logger.With(logging.Int("worker", index))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		task, err := m.store.ClaimNext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("claim next task failed", logging.Error(err))
			if !m.sleep(ctx, m.errorRetry) {
				return
			}
			continue
		}
		if task == nil {
			if !m.sleep(ctx, m.pollInterval) {
				return
			}
			continue
		}

		m.process(ctx, logger, task)
	}
}

// sleep waits for d or until ctx is cancelled. It reports whether the worker
// should keep running.
func (m *Manager) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
