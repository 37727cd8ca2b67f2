package channel

import (
	"context"
	"sync"

	"feedflow/logger"
	"feedflow/models"
)

type ChannelStats struct {
	UpdatesSent    int64
	PackedSent     int64
	UpdatesDropped int64
	PackedDropped  int64
}

// Channels carries the pipeline flow: domain updates in, packed wire
// envelopes out. Sends never block; messages that would block are
// dropped and counted.
type Channels struct {
	Updates chan models.PriceFeedUpdate
	Packed  chan models.PriceUpdate

	stats      ChannelStats
	statsMutex sync.RWMutex
	log        *logger.Log
}

func NewChannels(updateBufferSize, packedBufferSize int) *Channels {
	log := logger.GetLogger()
	c := &Channels{
		Updates: make(chan models.PriceFeedUpdate, updateBufferSize),
		Packed:  make(chan models.PriceUpdate, packedBufferSize),
		log:     log,
	}

	log.WithComponent("channels").WithFields(logger.Fields{
		"update_buffer_size": updateBufferSize,
		"packed_buffer_size": packedBufferSize,
	}).Info("pipeline channels initialized")

	return c
}

func (c *Channels) Close() {
	close(c.Updates)
	close(c.Packed)
	c.log.WithComponent("channels").Info("pipeline channels closed")
}

func (c *Channels) IncrementUpdatesSent() {
	c.statsMutex.Lock()
	c.stats.UpdatesSent++
	c.statsMutex.Unlock()
}

func (c *Channels) IncrementPackedSent() {
	c.statsMutex.Lock()
	c.stats.PackedSent++
	c.statsMutex.Unlock()
}

func (c *Channels) IncrementUpdatesDropped() {
	c.statsMutex.Lock()
	c.stats.UpdatesDropped++
	c.statsMutex.Unlock()
}

func (c *Channels) IncrementPackedDropped() {
	c.statsMutex.Lock()
	c.stats.PackedDropped++
	c.statsMutex.Unlock()
}

// SendUpdate attempts a non-blocking send. Buffer space wins over a
// cancelled context so shutdown flushes still land; a full buffer with a
// live context counts as a drop.
func (c *Channels) SendUpdate(ctx context.Context, update models.PriceFeedUpdate) bool {
	select {
	case c.Updates <- update:
		c.IncrementUpdatesSent()
		return true
	default:
		if ctx.Err() != nil {
			return false
		}
		c.IncrementUpdatesDropped()
		return false
	}
}

// SendPacked attempts a non-blocking send, with the same buffer-first
// rule as SendUpdate.
func (c *Channels) SendPacked(ctx context.Context, envelope models.PriceUpdate) bool {
	select {
	case c.Packed <- envelope:
		c.IncrementPackedSent()
		return true
	default:
		if ctx.Err() != nil {
			return false
		}
		c.IncrementPackedDropped()
		return false
	}
}

func (c *Channels) GetStats() ChannelStats {
	c.statsMutex.RLock()
	defer c.statsMutex.RUnlock()
	return c.stats
}
