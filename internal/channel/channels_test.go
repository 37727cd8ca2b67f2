package channel

import (
	"context"
	"testing"

	"feedflow/models"
)

func TestNewChannels(t *testing.T) {
	c := NewChannels(1, 1)
	if c.Updates == nil || c.Packed == nil {
		t.Fatalf("expected non-nil channels")
	}
	c.Close()
}

func TestSendUpdateDropsWhenFull(t *testing.T) {
	c := NewChannels(1, 1)
	defer c.Close()
	ctx := context.Background()

	if !c.SendUpdate(ctx, models.PriceFeedUpdate{}) {
		t.Fatalf("first send should succeed")
	}
	if c.SendUpdate(ctx, models.PriceFeedUpdate{}) {
		t.Fatalf("second send should drop")
	}

	stats := c.GetStats()
	if stats.UpdatesSent != 1 || stats.UpdatesDropped != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestSendUpdateAfterCancel(t *testing.T) {
	c := NewChannels(1, 1)
	defer c.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Buffer space available: the send still lands.
	if !c.SendUpdate(ctx, models.PriceFeedUpdate{}) {
		t.Fatalf("send with free buffer should succeed after cancel")
	}
	// Buffer full: rejected without counting a drop.
	if c.SendUpdate(ctx, models.PriceFeedUpdate{}) {
		t.Fatalf("send with full buffer should fail after cancel")
	}

	stats := c.GetStats()
	if stats.UpdatesSent != 1 || stats.UpdatesDropped != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestSendPackedDropsWhenFull(t *testing.T) {
	c := NewChannels(1, 1)
	defer c.Close()
	ctx := context.Background()

	if !c.SendPacked(ctx, models.PriceUpdate{}) {
		t.Fatalf("first send should succeed")
	}
	if c.SendPacked(ctx, models.PriceUpdate{}) {
		t.Fatalf("second send should drop")
	}

	stats := c.GetStats()
	if stats.PackedSent != 1 || stats.PackedDropped != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
