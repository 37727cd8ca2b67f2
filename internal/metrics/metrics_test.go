package metrics

import (
	"context"
	"testing"
	"time"

	"feedflow/config"
	"feedflow/internal/channel"
)

func TestConfigureFeatures(t *testing.T) {
	Configure(config.MetricsConfig{ChannelSize: false, Packer: true})
	if IsFeatureEnabled(FeatureChannelSize) {
		t.Fatalf("channel size should be disabled")
	}
	if !IsFeatureEnabled(FeaturePacker) {
		t.Fatalf("packer should be enabled")
	}
	Configure(config.MetricsConfig{ChannelSize: true, Packer: true})
}

func TestInitIsIdempotent(t *testing.T) {
	Init("")
	Init("")
	// Counters must be safe to use after Init.
	IncrementEnvelopesPacked("hex")
	IncrementPackError("packer")
	IncrementDecodeFailures(2)
	IncrementDecodeFailures(0)
}

func TestStartChannelSizeMetrics(t *testing.T) {
	Configure(config.MetricsConfig{ChannelSize: true, Packer: true})
	c := channel.NewChannels(1, 1)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	StartChannelSizeMetrics(ctx, c, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	cancel()
}
