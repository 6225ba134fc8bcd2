package workflow_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"readout/internal/config"
	"readout/internal/extract"
	"readout/internal/logging"
	"readout/internal/media"
	"readout/internal/queue"
	"readout/internal/services"
	"readout/internal/status"
	"readout/internal/synth"
	"readout/internal/testsupport"
	"readout/internal/workflow"
)

type fakeExtractor struct {
	mu          sync.Mutex
	calls       int
	transient   int
	err         error
	failOrigins map[string]error
	doc         extract.Document
	hook        func()
}

func (f *fakeExtractor) Extract(ctx context.Context, origin queue.Origin) (*extract.Document, error) {
	f.mu.Lock()
	f.calls++
	calls := f.calls
	originErr := f.failOrigins[origin.Value]
	f.mu.Unlock()
	if f.hook != nil {
		f.hook()
	}
	if originErr != nil {
		return nil, originErr
	}
	if f.err != nil {
		return nil, f.err
	}
	if calls <= f.transient {
		return nil, services.Wrap(services.ErrTransient, "extract", "fetch", origin.Value, errors.New("connection reset"))
	}
	doc := f.doc
	return &doc, nil
}

func (f *fakeExtractor) failOrigin(value string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOrigins == nil {
		f.failOrigins = make(map[string]error)
	}
	f.failOrigins[value] = err
}

func (f *fakeExtractor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeTransformer struct{}

func (fakeTransformer) Summarize(ctx context.Context, text string) (string, error) {
	return "A concise summary of the piece.", nil
}

func (fakeTransformer) PodcastScript(ctx context.Context, text string) (string, error) {
	return "speaker1: Welcome to the show.\nspeaker2: Glad to be here.", nil
}

func (fakeTransformer) Title(ctx context.Context, text string) (string, error) {
	return "Generated Title", nil
}

type fakeEngine struct {
	mu       sync.Mutex
	inputs   [][]synth.Segment
	failures int
	err      error
}

func (f *fakeEngine) Name() string { return "http" }

func (f *fakeEngine) Synthesize(ctx context.Context, segments []synth.Segment, outputPath string, progress synth.ProgressFunc) error {
	f.mu.Lock()
	f.inputs = append(f.inputs, segments)
	calls := len(f.inputs)
	f.mu.Unlock()

	// Leave a partial file behind on failure so cleanup is observable.
	if err := os.WriteFile(outputPath, []byte("audio"), 0o644); err != nil {
		return err
	}
	if f.err != nil && calls > f.failures {
		return f.err
	}
	if calls <= f.failures {
		return services.Wrap(services.ErrTransient, "synthesize", "request", "chunk", errors.New("boom"))
	}
	if progress != nil {
		progress(len(segments), len(segments))
	}
	return nil
}

func (f *fakeEngine) lastInput() []synth.Segment {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.inputs) == 0 {
		return nil
	}
	return f.inputs[len(f.inputs)-1]
}

type harness struct {
	cfg       *config.Config
	store     *queue.Store
	extractor *fakeExtractor
	engine    *fakeEngine
	mediaSt   *media.Store
	reporter  *status.Aggregator
	manager   *workflow.Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(1))
	store := testsupport.MustOpenStore(t, cfg)

	extractor := &fakeExtractor{doc: extract.Document{
		Title:    "Deep Sea Mining",
		Domain:   "example.com",
		Text:     "The ocean floor holds metals that battery makers want.",
		Markdown: "The ocean floor holds metals that battery makers want.",
	}}
	engine := &fakeEngine{}
	mediaStore := media.NewStore(store.DB())
	packager := media.NewPackager(mediaStore, cfg.Paths.OutputDir, logging.NewNop())
	reporter := status.NewAggregator(store)

	mgr := workflow.NewManager(cfg, store, workflow.Deps{
		Extractor:   extractor,
		Transformer: fakeTransformer{},
		Engines:     synth.NewRegistry(engine),
		Packager:    packager,
		Reporter:    reporter,
	}, logging.NewNop(),
		workflow.WithPollInterval(10*time.Millisecond),
		workflow.WithRetryBase(5*time.Millisecond))

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)

	return &harness{
		cfg:       cfg,
		store:     store,
		extractor: extractor,
		engine:    engine,
		mediaSt:   mediaStore,
		reporter:  reporter,
		manager:   mgr,
	}
}

func waitForTerminal(t *testing.T, store *queue.Store, id int64) *queue.Task {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		task, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if task.Status == queue.StatusCompleted || task.Status == queue.StatusFailed {
			return task
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("task never reached a terminal status")
	return nil
}

func TestFullModeCompletesTask(t *testing.T) {
	h := newHarness(t)
	task := testsupport.NewTask(t, h.store, "https://example.com/mining", queue.ModeFull)

	done := waitForTerminal(t, h.store, task.ID)
	if done.Status != queue.StatusCompleted {
		t.Fatalf("status = %s (%s: %s)", done.Status, done.ErrorKind, done.ErrorMessage)
	}
	if done.Progress != 100 {
		t.Fatalf("progress = %d, want 100", done.Progress)
	}
	if done.Title != "Deep Sea Mining" {
		t.Fatalf("title = %q", done.Title)
	}
	if done.MediaID == "" {
		t.Fatal("media id not recorded")
	}

	item, err := h.mediaSt.GetByID(context.Background(), "", done.MediaID)
	if err != nil {
		t.Fatalf("media record missing: %v", err)
	}
	if item.ContentType != media.TypeArticle {
		t.Fatalf("content type = %s", item.ContentType)
	}
	if _, err := os.Stat(item.AudioFile); err != nil {
		t.Fatalf("audio file missing: %v", err)
	}
	if _, err := os.Stat(item.MarkdownFile); err != nil {
		t.Fatalf("sidecar missing: %v", err)
	}

	spoken := h.engine.lastInput()
	if len(spoken) == 0 || !strings.Contains(spoken[0].Text, "Deep Sea Mining") {
		t.Fatalf("spoken text missing lead-in: %#v", spoken)
	}
}

func TestSummaryModeSpeaksTheSummary(t *testing.T) {
	h := newHarness(t)
	task := testsupport.NewTask(t, h.store, "https://example.com/mining", queue.ModeSummary)

	done := waitForTerminal(t, h.store, task.ID)
	if done.Status != queue.StatusCompleted {
		t.Fatalf("status = %s (%s: %s)", done.Status, done.ErrorKind, done.ErrorMessage)
	}

	item, err := h.mediaSt.GetByID(context.Background(), media.TypeArticle, done.MediaID)
	if err != nil {
		t.Fatalf("media record missing: %v", err)
	}
	if item.ShortText != "A concise summary of the piece." {
		t.Fatalf("short text = %q", item.ShortText)
	}

	var spokenAll strings.Builder
	for _, seg := range h.engine.lastInput() {
		spokenAll.WriteString(seg.Text)
	}
	if !strings.Contains(spokenAll.String(), "A concise summary") {
		t.Fatalf("engine did not receive the summary: %q", spokenAll.String())
	}
	if strings.Contains(spokenAll.String(), "ocean floor") {
		t.Fatal("engine received the full text instead of the summary")
	}
}

func TestPodcastModeAlternatesVoices(t *testing.T) {
	h := newHarness(t)
	task, err := h.store.Enqueue(context.Background(),
		queue.URLOrigin("https://example.com/mining"), queue.ModePodcast, "http")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	done := waitForTerminal(t, h.store, task.ID)
	if done.Status != queue.StatusCompleted {
		t.Fatalf("status = %s (%s: %s)", done.Status, done.ErrorKind, done.ErrorMessage)
	}

	segs := h.engine.lastInput()
	if len(segs) != 2 || segs[0].Voice != synth.VoicePrimary || segs[1].Voice != synth.VoiceAlternate {
		t.Fatalf("unexpected segments: %#v", segs)
	}

	if _, err := h.mediaSt.GetByID(context.Background(), media.TypePodcast, done.MediaID); err != nil {
		t.Fatalf("podcast media record missing: %v", err)
	}
}

func TestPermanentExtractionFailureDoesNotRetry(t *testing.T) {
	h := newHarness(t)
	h.extractor.err = services.Wrap(services.ErrExtraction, "extract", "fetch", "https://example.com/gone", errors.New("status 404"))
	task := testsupport.NewTask(t, h.store, "https://example.com/gone", queue.ModeFull)

	done := waitForTerminal(t, h.store, task.ID)
	if done.Status != queue.StatusFailed {
		t.Fatalf("status = %s, want failed", done.Status)
	}
	if done.ErrorKind != "ExtractionError" {
		t.Fatalf("error kind = %q", done.ErrorKind)
	}
	if got := h.extractor.callCount(); got != 1 {
		t.Fatalf("extract attempts = %d, want 1", got)
	}

	snap, err := h.reporter.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Errors) != 1 || snap.Errors[0].Kind != "ExtractionError" {
		t.Fatalf("unexpected error log: %#v", snap.Errors)
	}
}

func TestOneFailureDoesNotDisturbNeighbors(t *testing.T) {
	h := newHarness(t)
	h.extractor.failOrigin("https://example.com/broken",
		services.Wrap(services.ErrExtraction, "extract", "fetch", "https://example.com/broken", errors.New("status 404")))

	first := testsupport.NewTask(t, h.store, "https://example.com/alpha", queue.ModeFull)
	second := testsupport.NewTask(t, h.store, "https://example.com/broken", queue.ModeFull)
	third := testsupport.NewTask(t, h.store, "https://example.com/gamma", queue.ModeFull)

	if got := waitForTerminal(t, h.store, first.ID); got.Status != queue.StatusCompleted {
		t.Fatalf("first status = %s (%s: %s)", got.Status, got.ErrorKind, got.ErrorMessage)
	}
	failed := waitForTerminal(t, h.store, second.ID)
	if failed.Status != queue.StatusFailed || failed.ErrorKind != "ExtractionError" {
		t.Fatalf("second status = %s (%s)", failed.Status, failed.ErrorKind)
	}
	if got := waitForTerminal(t, h.store, third.ID); got.Status != queue.StatusCompleted {
		t.Fatalf("third status = %s (%s: %s)", got.Status, got.ErrorKind, got.ErrorMessage)
	}

	stats, err := h.store.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Completed != 2 || stats.Failed != 1 || stats.Pending != 0 || stats.Processing != 0 {
		t.Fatalf("stats = %+v, want 2 completed and 1 failed", stats)
	}
}

func TestTransientExtractionFailureRetries(t *testing.T) {
	h := newHarness(t)
	h.extractor.transient = 2
	task := testsupport.NewTask(t, h.store, "https://example.com/flaky", queue.ModeFull)

	done := waitForTerminal(t, h.store, task.ID)
	if done.Status != queue.StatusCompleted {
		t.Fatalf("status = %s (%s: %s)", done.Status, done.ErrorKind, done.ErrorMessage)
	}
	if got := h.extractor.callCount(); got != 3 {
		t.Fatalf("extract attempts = %d, want 3", got)
	}
}

func TestSynthesisFailureRemovesPartialOutput(t *testing.T) {
	h := newHarness(t)
	h.engine.err = services.Wrap(services.ErrSynthesis, "synthesize", "request", "chunk", errors.New("bad voice"))
	task := testsupport.NewTask(t, h.store, "https://example.com/mining", queue.ModeFull)

	done := waitForTerminal(t, h.store, task.ID)
	if done.Status != queue.StatusFailed {
		t.Fatalf("status = %s, want failed", done.Status)
	}
	if done.ErrorKind != "SynthesisError" {
		t.Fatalf("error kind = %q", done.ErrorKind)
	}

	// The engine wrote a partial file before failing; the pipeline removes it.
	mediaID := media.IDFor("https://example.com/mining|" + string(queue.ModeFull))
	audioPath := filepath.Join(h.cfg.Paths.OutputDir, time.Now().Format("20060102"), mediaID+".mp3")
	if _, err := os.Stat(audioPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("partial audio should be removed: %v", err)
	}

	items, err := h.mediaSt.List(context.Background(), "", 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("no media record expected, got %#v", items)
	}
}

func TestCancelRequestStopsBetweenStages(t *testing.T) {
	h := newHarness(t)
	var once sync.Once
	taskID := make(chan int64, 1)
	h.extractor.hook = func() {
		once.Do(func() {
			id := <-taskID
			if err := h.store.RequestCancel(context.Background(), id); err != nil {
				t.Errorf("RequestCancel: %v", err)
			}
		})
	}
	task := testsupport.NewTask(t, h.store, "https://example.com/mining", queue.ModeFull)
	taskID <- task.ID

	done := waitForTerminal(t, h.store, task.ID)
	if done.Status != queue.StatusFailed {
		t.Fatalf("status = %s, want failed", done.Status)
	}
	if done.ErrorKind != "Cancelled" {
		t.Fatalf("error kind = %q, want Cancelled", done.ErrorKind)
	}
	if len(h.engine.lastInput()) != 0 {
		t.Fatal("synthesis must not run after a cancel request")
	}
}
