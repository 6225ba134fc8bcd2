package workflow

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"readout/internal/extract"
	"readout/internal/logging"
	"readout/internal/media"
	"readout/internal/queue"
	"readout/internal/services"
	"readout/internal/synth"
)

// Stage-local retry budgets. Only retryable error classes consume them.
const (
	extractRetries   = 2
	transformRetries = 2
	synthRetries     = 1
)

const synthProgressEnd = 95

// pipelineState tracks per-task side effects so a failed or cancelled run can
// remove its partial outputs.
type pipelineState struct {
	cancelRequested bool
	outputs         []string
}

func (s *pipelineState) addOutput(path string) {
	s.outputs = append(s.outputs, path)
}

func (s *pipelineState) cleanup(logger *slog.Logger) {
	for _, path := range s.outputs {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("remove partial output failed", logging.String("file", path), logging.Error(err))
		}
	}
	s.outputs = nil
}

func (m *Manager) process(ctx context.Context, logger *slog.Logger, task *queue.Task) {
	logger = logger.With(logging.Int64(logging.FieldTaskID, task.ID))
	logger.Info("task claimed",
		logging.String("mode", string(task.Mode)),
		logging.String(logging.FieldEngine, task.Engine))
	start := time.Now()

	state := &pipelineState{}
	mediaID, err := m.runPipeline(ctx, logger, task, state)
	if err == nil {
		if m.deps.Reporter != nil {
			m.deps.Reporter.Touch()
		}
		logger.Info("task completed",
			logging.String("media_id", mediaID),
			logging.Duration("elapsed", time.Since(start)))
		return
	}

	state.cleanup(logger)

	// A shutdown leaves the task in processing; startup recovery returns it
	// to pending. A user cancel request still records the terminal state.
	if ctx.Err() != nil && !state.cancelRequested {
		logger.Info("task interrupted by shutdown")
		return
	}

	kind := services.Kind(err)
	message := services.Message(err)
	cancelled := errors.Is(err, services.ErrCancelled) || errors.Is(err, context.Canceled)
	if cancelled {
		logger.Info("task cancelled", logging.String("detail", message))
	} else {
		logger.Error("task failed",
			logging.String("error_kind", kind),
			logging.Error(err))
	}

	failCtx, cancelFail := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelFail()
	if ferr := m.store.Fail(failCtx, task.ID, kind, message); ferr != nil {
		logger.Error("record task failure failed", logging.Error(ferr))
	}
	if m.deps.Reporter != nil && !cancelled {
		m.deps.Reporter.RecordError(task.ID, kind, message)
	}
}

func (m *Manager) runPipeline(ctx context.Context, logger *slog.Logger, task *queue.Task, state *pipelineState) (string, error) {
	engine, err := m.deps.Engines.Get(task.Engine)
	if err != nil {
		return "", err
	}

	withTransform := task.Mode == queue.ModeSummary || task.Mode == queue.ModePodcast
	extractDone, transformDone, synthStart := 20, 40, 40
	if !withTransform {
		extractDone, synthStart = 25, 25
	}

	m.setProgress(ctx, logger, task.ID, "extract", 5)
	var doc *extract.Document
	err = m.runStage(ctx, logger, task, state, "extract", extractRetries, func(sc context.Context) error {
		d, err := m.deps.Extractor.Extract(sc, task.Origin)
		if err != nil {
			return err
		}
		doc = d
		return nil
	})
	if err != nil {
		return "", err
	}
	m.setProgress(ctx, logger, task.ID, "extract", extractDone)
	if err := m.checkCancel(ctx, task, state); err != nil {
		return "", err
	}

	title := strings.TrimSpace(doc.Title)
	if title == "" {
		generated, terr := m.deps.Transformer.Title(ctx, doc.Text)
		if terr != nil {
			logger.Warn("title generation failed", logging.Error(terr))
		} else {
			title = generated
		}
	}
	if title != "" {
		if serr := m.store.SetTitle(ctx, task.ID, title); serr != nil {
			logger.Warn("record title failed", logging.Error(serr))
		}
	}

	var segments []synth.Segment
	var shortText string
	switch task.Mode {
	case queue.ModeSummary:
		err = m.runStage(ctx, logger, task, state, "transform", transformRetries, func(sc context.Context) error {
			summary, err := m.deps.Transformer.Summarize(sc, doc.Text)
			if err != nil {
				return err
			}
			shortText = summary
			return nil
		})
		if err != nil {
			return "", err
		}
		spokenDoc := *doc
		spokenDoc.Text = shortText
		segments = synth.SegmentsFromText(spokenDoc.SpokenText(), m.cfg.TTS.ChunkChars)
	case queue.ModePodcast:
		var script string
		err = m.runStage(ctx, logger, task, state, "transform", transformRetries, func(sc context.Context) error {
			s, err := m.deps.Transformer.PodcastScript(sc, doc.Text)
			if err != nil {
				return err
			}
			script = s
			return nil
		})
		if err != nil {
			return "", err
		}
		segments = synth.SegmentsFromScript(script)
	default:
		segments = synth.SegmentsFromText(doc.SpokenText(), m.cfg.TTS.ChunkChars)
	}
	if withTransform {
		m.setProgress(ctx, logger, task.ID, "transform", transformDone)
		if err := m.checkCancel(ctx, task, state); err != nil {
			return "", err
		}
	}
	if len(segments) == 0 {
		return "", services.Wrap(services.ErrTransform, "transform", "prepare speech", "no speakable text", nil)
	}

	mediaID := media.IDFor(task.Origin.Normalized() + "|" + string(task.Mode))
	audioPath, err := m.deps.Packager.AudioPath(mediaID)
	if err != nil {
		return "", err
	}
	state.addOutput(audioPath)

	synthProgress := func(done, total int) {
		if total <= 0 {
			return
		}
		p := synthStart + (synthProgressEnd-synthStart)*done/total
		m.setProgress(ctx, logger, task.ID, "synthesize", p)
	}
	err = m.runStage(ctx, logger, task, state, "synthesize", synthRetries, func(sc context.Context) error {
		return engine.Synthesize(sc, segments, audioPath, synthProgress)
	})
	if err != nil {
		return "", err
	}
	if err := m.checkCancel(ctx, task, state); err != nil {
		return "", err
	}

	m.setProgress(ctx, logger, task.ID, "package", synthProgressEnd)
	state.addOutput(strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".md")

	sourceURL := ""
	if task.Origin.Kind == queue.OriginURL {
		sourceURL = task.Origin.Value
	}
	item, err := m.deps.Packager.Finalize(ctx, media.Request{
		ID:          mediaID,
		ContentType: contentTypeFor(task),
		Title:       title,
		SourceURL:   sourceURL,
		AudioPath:   audioPath,
		Markdown:    doc.Markdown,
		FullText:    doc.Text,
		ShortText:   shortText,
		Published:   doc.Published,
	})
	if err != nil {
		return "", err
	}

	if err := m.store.Complete(ctx, task.ID, item.ID); err != nil {
		return "", err
	}
	// The finished outputs belong to the media item now.
	state.outputs = nil
	return item.ID, nil
}

// runStage executes fn under the stage timeout, retrying retryable failures
// up to the stage's budget with exponential backoff.
func (m *Manager) runStage(ctx context.Context, logger *slog.Logger, task *queue.Task, state *pipelineState, stage string, retries int, fn func(context.Context) error) error {
	log := logger.With(logging.String(logging.FieldStage, stage))
	for attempt := 0; ; attempt++ {
		stageCtx := ctx
		cancel := context.CancelFunc(func() {})
		if m.stageTimeout > 0 {
			stageCtx, cancel = context.WithTimeout(ctx, m.stageTimeout)
		}
		err := fn(stageCtx)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || attempt >= retries || !services.IsRetryable(err) {
			return err
		}
		delay := m.retryBase << attempt
		log.Warn("stage attempt failed",
			logging.Int("attempt", attempt+1),
			logging.Duration("retry_in", delay),
			logging.Error(err))
		if !m.sleep(ctx, delay) {
			return err
		}
		if cerr := m.checkCancel(ctx, task, state); cerr != nil {
			return cerr
		}
	}
}

func (m *Manager) checkCancel(ctx context.Context, task *queue.Task, state *pipelineState) error {
	cancelled, err := m.store.CancelRequested(ctx, task.ID)
	if err != nil {
		return err
	}
	if cancelled {
		state.cancelRequested = true
		return services.Wrap(services.ErrCancelled, "workflow", "check cancel", "cancelled by request", nil)
	}
	return nil
}

func (m *Manager) setProgress(ctx context.Context, logger *slog.Logger, id int64, stage string, progress int) {
	if err := m.store.UpdateProgress(ctx, id, stage, progress); err != nil {
		logger.Debug("update progress failed",
			logging.String(logging.FieldStage, stage),
			logging.Error(err))
	}
}

func contentTypeFor(task *queue.Task) media.ContentType {
	switch {
	case task.Mode == queue.ModePodcast:
		return media.TypePodcast
	case task.Origin.Kind == queue.OriginText:
		return media.TypeText
	default:
		return media.TypeArticle
	}
}
