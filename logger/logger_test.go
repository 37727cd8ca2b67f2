package logger

import (
	"sync/atomic"
	"testing"
)

func TestWithComponent(t *testing.T) {
	log := Logger()
	entry := log.WithComponent("test")
	if v, ok := entry.Entry.Data["component"]; !ok || v != "test" {
		t.Fatalf("component field missing: %v", entry.Entry.Data)
	}
}

func TestConfigureInvalidLevel(t *testing.T) {
	// Ensure environment variables do not override the provided level
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("invalid", "json", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestWarnCountsByComponent(t *testing.T) {
	before := atomic.LoadInt64(&warnsPacker)
	log := Logger()
	log.SetOutput(nullWriter{})
	log.WithComponent("packer").Warn("boom")
	if after := atomic.LoadInt64(&warnsPacker); after != before+1 {
		t.Fatalf("packer warn not counted: %d -> %d", before, after)
	}
}

type nullWriter struct{}

func (nullWriter) Write(p []byte) (int, error) { return len(p), nil }
