package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"feedflow/config"
	"feedflow/internal/channel"
	"feedflow/internal/feeds"
	"feedflow/internal/metrics"
	"feedflow/logger"
	"feedflow/processor"
	"feedflow/reader/replay"
	"feedflow/writer"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	feedsPath := flag.String("feeds", "config/feeds.yml", "Path to feed catalog file")

	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Feedflow.Name,
		"version": cfg.Feedflow.Version,
	}).Info("starting feedflow")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Logging.DashboardName != "" {
		logger.InitCloudWatch(os.Getenv("AWS_REGION"), "", cfg.Logging.DashboardName)
	}

	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, 30*time.Second)
	}

	metrics.Configure(cfg.Metrics)
	metrics.Init(cfg.Metrics.Listen)

	catalog, err := config.LoadFeedCatalog(*feedsPath)
	if err != nil {
		log.WithError(err).Error("failed to load feed catalog")
		os.Exit(1)
	}
	registry, err := feeds.NewRegistry(catalog)
	if err != nil {
		log.WithError(err).Error("failed to build feed registry")
		os.Exit(1)
	}
	log.WithFields(logger.Fields{"feeds": registry.Len()}).Info("feed registry loaded")

	channels := channel.NewChannels(
		cfg.Channels.UpdateBuffer,
		cfg.Channels.PackedBuffer,
	)

	metrics.StartChannelSizeMetrics(ctx, channels, 30*time.Second)

	replayReader := replay.NewReader(cfg, channels)

	packer, err := processor.NewPacker(cfg, channels, registry)
	if err != nil {
		log.WithError(err).Error("failed to create packer")
		os.Exit(1)
	}

	streamWriter := writer.NewStreamWriter(cfg, channels.Packed)
	if err := streamWriter.WriteCatalog(registry); err != nil {
		log.WithError(err).Error("failed to write feed catalog")
		os.Exit(1)
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := streamWriter.Start(ctx); err != nil {
			log.WithError(err).Warn("stream writer failed to start")
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := packer.Start(ctx); err != nil {
			log.WithError(err).Warn("packer failed to start")
		}
	}()

	if cfg.Replay.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := replayReader.Start(ctx); err != nil {
				log.WithError(err).Warn("replay reader failed to start")
			}
		}()
	} else {
		log.WithComponent("main").Info("replay disabled; no update source started")
	}

	time.Sleep(2 * time.Second)
	log.Info("all components started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")

	log.Info("starting graceful shutdown")
	cancel()

	if cfg.Replay.Enabled {
		log.Info("stopping replay reader")
		replayReader.Stop()
	}

	log.Info("stopping packer")
	packer.Stop()

	// Closing the channels ends the stream writer's worker once the
	// packer's final flush has been drained.
	channels.Close()

	log.Info("stopping stream writer")
	streamWriter.Stop()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("graceful shutdown completed")
	case <-time.After(30 * time.Second):
		log.Warn("graceful shutdown timeout exceeded")
	}

	log.Info("feedflow stopped")
}
