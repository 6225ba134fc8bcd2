package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"readout/internal/config"
	"readout/internal/daemon"
	"readout/internal/extract"
	"readout/internal/feeds"
	"readout/internal/logging"
	"readout/internal/media"
	"readout/internal/queue"
	"readout/internal/scheduler"
	"readout/internal/sources"
	"readout/internal/status"
	"readout/internal/synth"
	"readout/internal/transform"
	"readout/internal/workflow"
)

// bootstrap wires the full service graph from configuration.
func bootstrap(cfg *config.Config, logger *slog.Logger) (*daemon.Daemon, error) {
	store, err := queue.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open queue store: %w", err)
	}

	mediaStore := media.NewStore(store.DB())
	sourceStore := sources.NewStore(store.DB())
	aggregator := status.NewAggregator(store)
	packager := media.NewPackager(mediaStore, cfg.Paths.OutputDir, logger)

	extractor := extract.New(logger)
	transformer := transform.NewTransformer(transform.NewClient(cfg.LLM))
	engines := synth.FromConfig(cfg)

	manager := workflow.NewManager(cfg, store, workflow.Deps{
		Extractor:   extractor,
		Transformer: transformer,
		Engines:     engines,
		Packager:    packager,
		Reporter:    aggregator,
	}, logger)

	scanner := feeds.NewScanner(store.DB(), sourceStore, logger,
		feeds.WithSeenRetention(time.Duration(cfg.Scheduler.SeenLinkRetentionDays)*24*time.Hour))

	// Discovery stays decoupled from conversion: scans only feed the
	// candidate list, clients decide what becomes a task.
	scanLogger := logger.With(logging.String(logging.FieldComponent, "scan"))
	runScan := func(ctx context.Context) {
		added, err := scanner.Scan(ctx)
		if err != nil {
			scanLogger.Error("feed scan failed", logging.Error(err))
			return
		}
		scanLogger.Info("feed scan finished", logging.Int("new_articles", len(added)))
	}
	trigger, err := scheduler.New(cfg.Scheduler.FetchTimes, runScan, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("build scheduler: %w", err)
	}

	d, err := daemon.New(cfg, daemon.Components{
		Store:    store,
		Sources:  sourceStore,
		Media:    mediaStore,
		Workflow: manager,
		Scanner:  scanner,
		Trigger:  trigger,
		Status:   aggregator,
	}, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	return d, nil
}
