package writer

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	appconfig "feedflow/config"
	"feedflow/internal/feeds"
	"feedflow/models"
)

const testFeedID = "e62df6c8b4a85fe1a67db44dc12de5db330f7ac66b72dc658afedf0f4a415b43"

func emitterConfig(output string) *appconfig.Config {
	return &appconfig.Config{
		Emitter: appconfig.EmitterConfig{
			Output:     output,
			MaxSizeMB:  10,
			MaxBackups: 1,
			MaxAge:     1,
		},
	}
}

func packedEnvelope(t *testing.T) models.PriceUpdate {
	t.Helper()
	id, err := models.ParseIdentifier(testFeedID)
	if err != nil {
		t.Fatalf("parse identifier: %v", err)
	}
	update := models.PriceFeedUpdate{
		ID:         id,
		Price:      models.Price{Price: 2938185678, Conf: 1056266, Expo: -8, PublishTime: 1690576641},
		EmaPrice:   models.Price{Price: 2931590700, Conf: 1042200, Expo: -8, PublishTime: 1690576641},
		UpdateData: []byte{0x50, 0x4e, 0x41, 0x55},
	}
	return models.NewPriceUpdate([]models.PriceFeedUpdate{update}, models.EncodingBase64, true)
}

func TestStreamWriterWritesEnvelopes(t *testing.T) {
	output := filepath.Join(t.TempDir(), "stream.jsonl")
	packed := make(chan models.PriceUpdate, 4)

	w := NewStreamWriter(emitterConfig(output), packed)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	packed <- packedEnvelope(t)
	close(packed)
	w.Stop()

	file, err := os.Open(output)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		t.Fatalf("expected at least one emitted line")
	}

	var resp models.StreamResponse
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal stream response: %v", err)
	}
	if resp.Data.Binary.Encoding != models.EncodingBase64 {
		t.Fatalf("unexpected encoding: %v", resp.Data.Binary.Encoding)
	}
	if len(resp.Data.Binary.Data) != 1 || resp.Data.Binary.Data[0] != "UE5BVQ==" {
		t.Fatalf("unexpected binary data: %v", resp.Data.Binary.Data)
	}
	if len(resp.Data.Parsed) != 1 || resp.Data.Parsed[0].Price.Price != 2938185678 {
		t.Fatalf("unexpected parsed data: %+v", resp.Data.Parsed)
	}

	envelopes, bytesWritten, errors := w.Stats()
	if envelopes != 1 || bytesWritten == 0 || errors != 0 {
		t.Fatalf("unexpected stats: envelopes=%d bytes=%d errors=%d", envelopes, bytesWritten, errors)
	}
}

func TestStreamWriterDrainsOnShutdown(t *testing.T) {
	output := filepath.Join(t.TempDir(), "stream.jsonl")
	packed := make(chan models.PriceUpdate, 4)

	w := NewStreamWriter(emitterConfig(output), packed)
	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Cancel first, as a real shutdown does; buffered envelopes must
	// still be written before the worker exits on channel close.
	cancel()
	for i := 0; i < 3; i++ {
		packed <- packedEnvelope(t)
	}
	close(packed)
	w.Stop()

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	if lines != 3 {
		t.Fatalf("expected 3 emitted lines, got %d", lines)
	}
}

func TestStreamWriterWritesCatalog(t *testing.T) {
	output := filepath.Join(t.TempDir(), "stream.jsonl")
	packed := make(chan models.PriceUpdate)

	registry, err := feeds.NewRegistry(&appconfig.FeedCatalog{Feeds: []appconfig.FeedEntry{
		{ID: testFeedID, Symbol: "BTC/USD", AssetType: "crypto", Attributes: map[string]string{"quote_currency": "USD"}},
	}})
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}

	w := NewStreamWriter(emitterConfig(output), packed)
	if err := w.WriteCatalog(registry); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	w.Stop()

	file, err := os.Open(output)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		t.Fatalf("expected a catalog line")
	}

	var md models.PriceFeedMetadata
	if err := json.Unmarshal(scanner.Bytes(), &md); err != nil {
		t.Fatalf("unmarshal catalog line: %v", err)
	}
	if md.ID.Hex() != testFeedID {
		t.Fatalf("unexpected id: %s", md.ID.Hex())
	}
	if md.Attributes["symbol"] != "BTC/USD" || md.Attributes["quote_currency"] != "USD" {
		t.Fatalf("unexpected attributes: %v", md.Attributes)
	}
}

func TestStreamWriterDoubleStart(t *testing.T) {
	packed := make(chan models.PriceUpdate)
	w := NewStreamWriter(emitterConfig("stdout"), packed)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := w.Start(ctx); err == nil {
		t.Fatalf("expected error on second start")
	}
	close(packed)
	w.Stop()
}