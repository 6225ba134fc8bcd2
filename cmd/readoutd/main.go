package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"readout/internal/config"
	"readout/internal/logging"
)

func main() {
	var configPath string
	var writeSample bool
	flag.StringVar(&configPath, "config", "", "configuration file path")
	flag.BoolVar(&writeSample, "init-config", false, "write a sample config and exit")
	flag.Parse()

	if writeSample {
		target := configPath
		if target == "" {
			resolved, err := config.DefaultConfigPath()
			if err != nil {
				log.Fatalf("resolve config path: %v", err)
			}
			target = resolved
		}
		if err := config.WriteSample(target); err != nil {
			log.Fatalf("write sample config: %v", err)
		}
		fmt.Println("wrote", target)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, resolved, loaded, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	if loaded {
		logger.Info("config loaded", logging.String("path", resolved))
	} else {
		logger.Info("config file absent, using defaults", logging.String("path", resolved))
	}

	d, err := bootstrap(cfg, logger)
	if err != nil {
		logger.Error("bootstrap failed", logging.Error(err))
		os.Exit(1)
	}
	defer func() {
		if err := d.Close(); err != nil {
			logger.Warn("close daemon", logging.Error(err))
		}
	}()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start failed", logging.Error(err))
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("shutting down")
	d.Stop()
}
