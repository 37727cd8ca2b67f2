package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	appconfig "feedflow/config"
	"feedflow/internal/channel"
	"feedflow/internal/feeds"
	"feedflow/internal/metrics"
	"feedflow/logger"
	"feedflow/models"
)

// Packer drains domain updates from the pipeline, batches them and
// packs each batch into a wire envelope carrying the binary blobs in
// the configured encoding, plus the parsed view when enabled. Each
// update's identifier is resolved against the feed registry; unknown
// feeds are packed anyway but logged and counted.
type Packer struct {
	config   *appconfig.Config
	channels *channel.Channels
	registry *feeds.Registry
	encoding models.EncodingType
	ctx      context.Context
	wg       *sync.WaitGroup
	mu       sync.RWMutex
	running  bool
	log      *logger.Log

	// Batching
	batch     []models.PriceFeedUpdate
	batchID   string
	lastFlush time.Time

	// Metrics
	updatesProcessed int64
	batchesPacked    int64
	errorsCount      int64
	decodeFailures   int64
	unknownFeeds     int64
}

func NewPacker(cfg *appconfig.Config, channels *channel.Channels, registry *feeds.Registry) (*Packer, error) {
	encoding, err := models.ParseEncodingType(cfg.Packer.Encoding)
	if err != nil {
		return nil, fmt.Errorf("invalid packer encoding: %w", err)
	}
	return &Packer{
		config:    cfg,
		channels:  channels,
		registry:  registry,
		encoding:  encoding,
		wg:        &sync.WaitGroup{},
		log:       logger.GetLogger(),
		batch:     make([]models.PriceFeedUpdate, 0, cfg.Packer.BatchSize),
		batchID:   uuid.New().String(),
		lastFlush: time.Now(),
	}, nil
}

func (p *Packer) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("packer already running")
	}
	p.running = true
	p.ctx = ctx
	p.mu.Unlock()

	log := p.log.WithComponent("packer").WithFields(logger.Fields{"operation": "start"})
	log.Info("starting packer")

	numWorkers := p.config.Packer.MaxWorkers
	if numWorkers < 1 {
		numWorkers = 1
	}

	log.WithFields(logger.Fields{
		"workers":  numWorkers,
		"encoding": p.encoding.String(),
		"parsed":   p.config.Packer.Parsed,
	}).Info("starting packer workers")

	for i := 0; i < numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	p.wg.Add(1)
	go p.batchFlusher()

	go p.metricsReporter(ctx)

	log.Info("packer started successfully")
	return nil
}

func (p *Packer) Stop() {
	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	p.log.WithComponent("packer").Info("stopping packer")

	p.mu.Lock()
	p.flushBatch()
	p.mu.Unlock()

	p.wg.Wait()
	p.log.WithComponent("packer").Info("packer stopped")
}

func (p *Packer) worker(workerID int) {
	defer p.wg.Done()

	log := p.log.WithComponent("packer").WithFields(logger.Fields{
		"worker_id": workerID,
		"worker":    "packer",
	})

	log.Info("starting packer worker")

	for {
		select {
		case <-p.ctx.Done():
			log.Info("worker stopped due to context cancellation")
			return
		case update, ok := <-p.channels.Updates:
			if !ok {
				log.Info("update channel closed, worker stopping")
				return
			}

			start := time.Now()
			symbol := p.resolveFeed(log, update)
			p.addToBatch(update)
			duration := time.Since(start)

			logger.LogPerformanceEntry(log, "packer", "add_to_batch", duration, logger.Fields{
				"worker_id": workerID,
				"feed_id":   update.ID.Hex(),
				"symbol":    symbol,
			})
		}
	}
}

// resolveFeed maps the update's identifier to its catalog symbol.
// Updates for feeds outside the catalog still flow through the pipeline;
// they are only logged and counted.
func (p *Packer) resolveFeed(log *logger.Entry, update models.PriceFeedUpdate) string {
	if p.registry == nil {
		return ""
	}
	feed, ok := p.registry.Lookup(update.ID)
	if !ok {
		p.mu.Lock()
		p.unknownFeeds++
		p.mu.Unlock()
		log.WithFields(logger.Fields{"feed_id": update.ID.Hex()}).Warn("update for feed not in catalog")
		return ""
	}
	return feed.Symbol
}

func (p *Packer) addToBatch(update models.PriceFeedUpdate) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.batch = append(p.batch, update)
	p.updatesProcessed++

	if len(p.batch) >= p.config.Packer.BatchSize {
		p.flushBatch()
	}
}

func (p *Packer) batchFlusher() {
	defer p.wg.Done()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.flushTimedOutBatch()
		}
	}
}

func (p *Packer) flushTimedOutBatch() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if time.Since(p.lastFlush) >= p.config.Packer.BatchTimeout {
		p.flushBatch()
	}
}

// flushBatch packs the pending updates into an envelope and hands it to
// the packed channel. Callers must hold p.mu.
func (p *Packer) flushBatch() {
	if len(p.batch) == 0 {
		p.lastFlush = time.Now()
		return
	}

	envelope := models.NewPriceUpdate(p.batch, p.encoding, p.config.Packer.Parsed)
	recordCount := len(p.batch)

	log := p.log.WithComponent("packer").WithFields(logger.Fields{
		"batch_id":     p.batchID,
		"encoding":     p.encoding.String(),
		"record_count": recordCount,
		"operation":    "flush_batch",
	})

	log.Info("flushing batch")

	if p.config.Packer.Verify {
		p.verifyEnvelope(log, envelope)
	}

	if p.channels.SendPacked(p.ctx, envelope) {
		p.batchesPacked++
		p.batch = p.batch[:0]
		p.batchID = uuid.New().String()
		p.lastFlush = time.Now()

		logger.IncrementEnvelopePacked(recordCount)
		if metrics.IsFeatureEnabled(metrics.FeaturePacker) {
			metrics.IncrementEnvelopesPacked(p.encoding.String())
		}

		log.Info("batch packed successfully")
		logger.LogDataFlowEntry(log, "packer", "packed_channel", recordCount, "envelope")
		return
	}

	p.errorsCount++
	metrics.IncrementPackError("packer")
	log.Warn("packed channel is full, envelope not sent")
}

// verifyEnvelope re-decodes the binary payload of a freshly packed
// envelope and records any entries that degraded to empty blobs.
func (p *Packer) verifyEnvelope(log *logger.Entry, envelope models.PriceUpdate) {
	_, failed := envelope.Binary.DecodeData()
	if len(failed) == 0 {
		return
	}

	p.decodeFailures += int64(len(failed))
	for range failed {
		logger.IncrementDecodeFailure()
	}
	metrics.IncrementDecodeFailures(len(failed))

	log.WithFields(logger.Fields{
		"failed_indexes": failed,
		"failed_count":   len(failed),
	}).Warn("binary entries degraded to empty blobs")
}

func (p *Packer) metricsReporter(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.reportMetrics()
		}
	}
}

func (p *Packer) reportMetrics() {
	p.mu.RLock()
	updatesProcessed := p.updatesProcessed
	batchesPacked := p.batchesPacked
	errorsCount := p.errorsCount
	decodeFailures := p.decodeFailures
	unknownFeeds := p.unknownFeeds
	pendingUpdates := len(p.batch)
	p.mu.RUnlock()

	errorRate := float64(0)
	if batchesPacked+errorsCount > 0 {
		errorRate = float64(errorsCount) / float64(batchesPacked+errorsCount)
	}

	avgUpdatesPerBatch := float64(0)
	if batchesPacked > 0 {
		avgUpdatesPerBatch = float64(updatesProcessed) / float64(batchesPacked)
	}
	updateLen := len(p.channels.Updates)
	updateCap := cap(p.channels.Updates)
	packedLen := len(p.channels.Packed)
	packedCap := cap(p.channels.Packed)

	log := p.log.WithComponent("packer")
	p.log.LogMetric("packer", "updates_processed", updatesProcessed, "counter", logger.Fields{})
	p.log.LogMetric("packer", "batches_packed", batchesPacked, "counter", logger.Fields{})
	p.log.LogMetric("packer", "errors_count", errorsCount, "counter", logger.Fields{})
	p.log.LogMetric("packer", "decode_failures", decodeFailures, "counter", logger.Fields{})
	p.log.LogMetric("packer", "unknown_feeds", unknownFeeds, "counter", logger.Fields{})
	p.log.LogMetric("packer", "error_rate", errorRate, "gauge", logger.Fields{})
	p.log.LogMetric("packer", "pending_updates", pendingUpdates, "gauge", logger.Fields{})
	p.log.LogMetric("packer", "avg_updates_per_batch", avgUpdatesPerBatch, "gauge", logger.Fields{})

	log.WithFields(logger.Fields{
		"updates_processed":     updatesProcessed,
		"batches_packed":        batchesPacked,
		"errors_count":          errorsCount,
		"decode_failures":       decodeFailures,
		"unknown_feeds":         unknownFeeds,
		"error_rate":            errorRate,
		"pending_updates":       pendingUpdates,
		"avg_updates_per_batch": avgUpdatesPerBatch,
		"update_channel_len":    updateLen,
		"update_channel_cap":    updateCap,
		"packed_channel_len":    packedLen,
		"packed_channel_cap":    packedCap,
	}).Info("packer metrics")
}

// Stats reports packing counters.
func (p *Packer) Stats() (updatesProcessed, batchesPacked, errorsCount, unknownFeeds int64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.updatesProcessed, p.batchesPacked, p.errorsCount, p.unknownFeeds
}
