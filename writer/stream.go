package writer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	appconfig "feedflow/config"
	"feedflow/internal/feeds"
	"feedflow/internal/metrics"
	"feedflow/logger"
	"feedflow/models"
)

// StreamWriter consumes packed envelopes and emits them as a JSON-lines
// stream, each line a stream response wrapping one envelope. Output goes
// to stdout or to a size-rotated file depending on configuration.
//
// The write worker runs until the packed channel is closed, so envelopes
// flushed during shutdown are still emitted; Stop only waits for that
// drain and closes the output.
type StreamWriter struct {
	cfg        *appconfig.Config
	packedChan <-chan models.PriceUpdate
	out        io.Writer
	closer     io.Closer
	ctx        context.Context
	wg         *sync.WaitGroup
	mu         sync.RWMutex
	running    bool
	log        *logger.Log

	// Metrics
	envelopesWritten int64
	bytesWritten     int64
	errorsCount      int64
}

// NewStreamWriter wires the emitter output. An output of "stdout" (or
// empty) streams to standard output; any other value is treated as a
// file path managed by lumberjack rotation.
func NewStreamWriter(cfg *appconfig.Config, packedChan <-chan models.PriceUpdate) *StreamWriter {
	w := &StreamWriter{
		cfg:        cfg,
		packedChan: packedChan,
		wg:         &sync.WaitGroup{},
		log:        logger.GetLogger(),
	}

	switch cfg.Emitter.Output {
	case "", "stdout":
		w.out = os.Stdout
	default:
		rotated := &lumberjack.Logger{
			Filename:   cfg.Emitter.Output,
			MaxSize:    cfg.Emitter.MaxSizeMB,
			MaxBackups: cfg.Emitter.MaxBackups,
			MaxAge:     cfg.Emitter.MaxAge,
			Compress:   true,
		}
		w.out = rotated
		w.closer = rotated
	}

	return w
}

func (w *StreamWriter) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("stream writer already running")
	}
	w.running = true
	w.ctx = ctx
	w.mu.Unlock()

	log := w.log.WithComponent("stream_writer").WithFields(logger.Fields{"operation": "start"})
	log.WithFields(logger.Fields{"output": w.cfg.Emitter.Output}).Info("starting stream writer")

	w.wg.Add(1)
	go w.writeWorker()

	go w.metricsReporter(ctx)

	log.Info("stream writer started successfully")
	return nil
}

func (w *StreamWriter) Stop() {
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.log.WithComponent("stream_writer").Info("stopping stream writer")
	w.wg.Wait()

	if w.closer != nil {
		if err := w.closer.Close(); err != nil {
			w.log.WithComponent("stream_writer").WithError(err).Warn("failed to close emitter output")
		}
	}

	w.log.WithComponent("stream_writer").Info("stream writer stopped")
}

func (w *StreamWriter) writeWorker() {
	defer w.wg.Done()

	log := w.log.WithComponent("stream_writer").WithFields(logger.Fields{"worker": "stream_writer"})
	log.Info("starting stream write worker")

	for envelope := range w.packedChan {
		w.writeEnvelope(log, envelope)
	}
	log.Info("packed channel closed, worker stopping")
}

// WriteCatalog emits the metadata view of every registered feed, one
// JSON line per feed in identifier order. Call before Start so catalog
// lines precede the update stream.
func (w *StreamWriter) WriteCatalog(registry *feeds.Registry) error {
	log := w.log.WithComponent("stream_writer").WithFields(logger.Fields{"operation": "write_catalog"})

	for _, feed := range registry.All() {
		md, ok := registry.Metadata(feed.ID)
		if !ok {
			continue
		}
		line, err := json.Marshal(md)
		if err != nil {
			return fmt.Errorf("failed to marshal feed metadata: %w", err)
		}
		line = append(line, '\n')
		if _, err := w.out.Write(line); err != nil {
			return fmt.Errorf("failed to write feed metadata: %w", err)
		}
	}

	log.WithFields(logger.Fields{"feeds": registry.Len()}).Info("feed catalog written")
	return nil
}

func (w *StreamWriter) writeEnvelope(log *logger.Entry, envelope models.PriceUpdate) {
	start := time.Now()

	line, err := json.Marshal(models.StreamResponse{Data: envelope})
	if err != nil {
		w.mu.Lock()
		w.errorsCount++
		w.mu.Unlock()
		metrics.IncrementPackError("emitter")
		log.WithError(err).Error("failed to marshal stream response")
		return
	}
	line = append(line, '\n')

	n, err := w.out.Write(line)
	if err != nil {
		w.mu.Lock()
		w.errorsCount++
		w.mu.Unlock()
		metrics.IncrementPackError("emitter")
		log.WithError(err).Error("failed to write stream response")
		return
	}

	w.mu.Lock()
	w.envelopesWritten++
	w.bytesWritten += int64(n)
	w.mu.Unlock()

	logger.IncrementEmitterWrite(n)

	logger.LogPerformanceEntry(log, "stream_writer", "write_envelope", time.Since(start), logger.Fields{
		"bytes":          n,
		"binary_entries": len(envelope.Binary.Data),
		"parsed_entries": len(envelope.Parsed),
	})
}

func (w *StreamWriter) metricsReporter(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.reportMetrics()
		}
	}
}

func (w *StreamWriter) reportMetrics() {
	w.mu.RLock()
	envelopesWritten := w.envelopesWritten
	bytesWritten := w.bytesWritten
	errorsCount := w.errorsCount
	w.mu.RUnlock()

	w.log.LogMetric("stream_writer", "envelopes_written", envelopesWritten, "counter", logger.Fields{})
	w.log.LogMetric("stream_writer", "bytes_written", bytesWritten, "counter", logger.Fields{})
	w.log.LogMetric("stream_writer", "errors_count", errorsCount, "counter", logger.Fields{})

	w.log.WithComponent("stream_writer").WithFields(logger.Fields{
		"envelopes_written":  envelopesWritten,
		"bytes_written":      bytesWritten,
		"errors_count":       errorsCount,
		"packed_channel_len": len(w.packedChan),
		"packed_channel_cap": cap(w.packedChan),
	}).Info("stream writer metrics")
}

// Stats reports emitter counters.
func (w *StreamWriter) Stats() (envelopes, bytes, errors int64) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.envelopesWritten, w.bytesWritten, w.errorsCount
}
