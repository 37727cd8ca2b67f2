package metrics

import (
	"context"
	"time"

	"feedflow/internal/channel"
	"feedflow/logger"
)

// StartChannelSizeMetrics emits occupancy metrics for the update and
// packed channel buffers. Metrics are logged every `interval` until the
// context is cancelled. When interval <= 0, a one-second cadence is used.
func StartChannelSizeMetrics(ctx context.Context, channels *channel.Channels, interval time.Duration) {
	if !IsFeatureEnabled(FeatureChannelSize) {
		return
	}
	if channels == nil {
		return
	}
	if interval <= 0 {
		interval = time.Second
	}

	log := logger.GetLogger()
	ticker := time.NewTicker(interval)
	component := "channel_buffers"

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				EmitMetric(log, component, "update_buffer_length", len(channels.Updates), "gauge", logger.Fields{
					"buffer":   "updates",
					"capacity": cap(channels.Updates),
				})
				EmitMetric(log, component, "packed_buffer_length", len(channels.Packed), "gauge", logger.Fields{
					"buffer":   "packed",
					"capacity": cap(channels.Packed),
				})
			}
		}
	}()
}
