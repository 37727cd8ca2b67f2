// Package replay feeds recorded price feed updates into the pipeline.
// Records are JSON lines captured from a live deployment; the reader
// paces them with a rate limiter so downstream stages see a realistic
// update cadence instead of a burst.
package replay

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"golang.org/x/time/rate"

	"feedflow/config"
	"feedflow/internal/channel"
	"feedflow/logger"
	"feedflow/models"
)

// recordedUpdate is the on-disk shape of one captured update. Optional
// fields are pointers so absence survives the round trip; update_data is
// base64 regardless of the encoding the envelope will later use.
type recordedUpdate struct {
	ID              string                `json:"id"`
	Price           models.Price          `json:"price"`
	EmaPrice        models.Price          `json:"ema_price"`
	Slot            *models.Slot          `json:"slot"`
	ReceivedAt      *models.UnixTimestamp `json:"received_at"`
	PrevPublishTime *models.UnixTimestamp `json:"prev_publish_time"`
	UpdateData      string                `json:"update_data"`
}

// Reader replays a capture file into the update channel.
type Reader struct {
	config   *config.Config
	channels *channel.Channels
	ctx      context.Context
	wg       *sync.WaitGroup
	mu       sync.RWMutex
	running  bool
	log      *logger.Log
	limiter  *rate.Limiter

	// Metrics
	updatesRead    int64
	updatesDropped int64
	parseErrors    int64
	passes         int64
}

func NewReader(cfg *config.Config, channels *channel.Channels) *Reader {
	rps := cfg.Replay.RatePerSecond
	if rps <= 0 {
		rps = 10
	}
	burst := cfg.Replay.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Reader{
		config:   cfg,
		channels: channels,
		wg:       &sync.WaitGroup{},
		log:      logger.GetLogger(),
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (r *Reader) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("replay reader already running")
	}
	r.running = true
	r.ctx = ctx
	r.mu.Unlock()

	cfg := r.config.Replay
	log := r.log.WithComponent("replay_reader").WithFields(logger.Fields{"operation": "start"})
	if !cfg.Enabled {
		log.Warn("replay reader is disabled")
		return fmt.Errorf("replay reader is disabled")
	}
	if _, err := os.Stat(cfg.Path); err != nil {
		return fmt.Errorf("replay file not readable: %w", err)
	}

	log.WithFields(logger.Fields{
		"path":            cfg.Path,
		"rate_per_second": cfg.RatePerSecond,
		"loop":            cfg.Loop,
	}).Info("starting replay reader")

	r.wg.Add(1)
	go r.replayWorker()

	log.Info("replay reader started successfully")
	return nil
}

func (r *Reader) Stop() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()

	r.log.WithComponent("replay_reader").Info("stopping replay reader")
	r.wg.Wait()
	r.log.WithComponent("replay_reader").Info("replay reader stopped")
}

func (r *Reader) replayWorker() {
	defer r.wg.Done()

	log := r.log.WithComponent("replay_reader").WithFields(logger.Fields{
		"path": r.config.Replay.Path,
	})

	for {
		if err := r.replayFile(log); err != nil {
			log.WithError(err).Error("replay pass failed")
			return
		}

		r.mu.Lock()
		r.passes++
		r.mu.Unlock()

		if !r.config.Replay.Loop {
			log.Info("replay finished, loop disabled")
			return
		}

		select {
		case <-r.ctx.Done():
			return
		default:
		}
	}
}

// replayFile streams one full pass over the capture file. Lines that
// fail to parse are skipped and counted, never fatal.
func (r *Reader) replayFile(log *logger.Entry) error {
	file, err := os.Open(r.config.Replay.Path)
	if err != nil {
		return fmt.Errorf("failed to open replay file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		update, err := r.parseLine(line)
		if err != nil {
			r.mu.Lock()
			r.parseErrors++
			r.mu.Unlock()
			log.WithError(err).WithFields(logger.Fields{"line": lineNo}).Warn("skipping malformed replay record")
			continue
		}

		if err := r.limiter.Wait(r.ctx); err != nil {
			return nil
		}

		if r.channels.SendUpdate(r.ctx, update) {
			r.mu.Lock()
			r.updatesRead++
			r.mu.Unlock()
			logger.IncrementUpdateRead(len(line))
			continue
		}
		if r.ctx.Err() != nil {
			return nil
		}
		r.mu.Lock()
		r.updatesDropped++
		r.mu.Unlock()
		log.WithFields(logger.Fields{"line": lineNo}).Warn("update channel is full, record dropped")
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to scan replay file: %w", err)
	}
	return nil
}

func (r *Reader) parseLine(line []byte) (models.PriceFeedUpdate, error) {
	var record recordedUpdate
	if err := json.Unmarshal(line, &record); err != nil {
		return models.PriceFeedUpdate{}, fmt.Errorf("failed to unmarshal record: %w", err)
	}

	id, err := models.ParseIdentifier(record.ID)
	if err != nil {
		return models.PriceFeedUpdate{}, fmt.Errorf("invalid feed identifier %q: %w", record.ID, err)
	}

	update := models.PriceFeedUpdate{
		ID:              id,
		Price:           record.Price,
		EmaPrice:        record.EmaPrice,
		Slot:            record.Slot,
		ReceivedAt:      record.ReceivedAt,
		PrevPublishTime: record.PrevPublishTime,
	}

	if record.UpdateData != "" {
		data, err := base64.StdEncoding.DecodeString(record.UpdateData)
		if err != nil {
			return models.PriceFeedUpdate{}, fmt.Errorf("invalid update_data: %w", err)
		}
		update.UpdateData = data
	}

	return update, nil
}

// Stats reports replay progress counters.
func (r *Reader) Stats() (updatesRead, updatesDropped, parseErrors, passes int64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.updatesRead, r.updatesDropped, r.parseErrors, r.passes
}
