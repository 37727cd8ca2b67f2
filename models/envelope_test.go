package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestEncodingTypeDispatch(t *testing.T) {
	data := []byte{0xde, 0xad, 0xbe, 0xef}

	if got := EncodingHex.Encode(data); got != "deadbeef" {
		t.Fatalf("hex encode: %s", got)
	}
	if got := EncodingBase64.Encode(data); got != "3q2+7w==" {
		t.Fatalf("base64 encode: %s", got)
	}

	for _, enc := range []EncodingType{EncodingHex, EncodingBase64} {
		raw, err := enc.Decode(enc.Encode(data))
		if err != nil {
			t.Fatalf("%s decode: %v", enc, err)
		}
		if !bytes.Equal(raw, data) {
			t.Fatalf("%s round trip mismatch: %x", enc, raw)
		}
	}
}

func TestEncodingTypeJSON(t *testing.T) {
	for _, c := range []struct {
		enc  EncodingType
		text string
	}{
		{EncodingHex, `"hex"`},
		{EncodingBase64, `"base64"`},
	} {
		data, err := json.Marshal(c.enc)
		if err != nil {
			t.Fatalf("marshal %s: %v", c.enc, err)
		}
		if string(data) != c.text {
			t.Fatalf("marshal %s: got %s, want %s", c.enc, data, c.text)
		}
		var out EncodingType
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if out != c.enc {
			t.Fatalf("unmarshal %s: got %v", data, out)
		}
	}

	var bad EncodingType
	if err := json.Unmarshal([]byte(`"utf7"`), &bad); err == nil {
		t.Fatalf("expected error for unknown encoding")
	}
}

func TestNewPriceUpdateDecoupledLists(t *testing.T) {
	withData := sampleUpdate(t, true)
	withoutData := sampleUpdate(t, false)
	updates := []PriceFeedUpdate{withData, withoutData}

	envelope := NewPriceUpdate(updates, EncodingHex, true)
	if len(envelope.Binary.Data) != 1 {
		t.Fatalf("binary list length %d, want 1", len(envelope.Binary.Data))
	}
	if len(envelope.Parsed) != 2 {
		t.Fatalf("parsed list length %d, want 2", len(envelope.Parsed))
	}
	if envelope.Binary.Data[0] != EncodingHex.Encode(withData.UpdateData) {
		t.Fatalf("binary entry %q", envelope.Binary.Data[0])
	}

	binaryOnly := NewPriceUpdate(updates, EncodingBase64, false)
	if binaryOnly.Parsed != nil {
		t.Fatalf("parsed list present when not requested")
	}
	if binaryOnly.Binary.Encoding != EncodingBase64 {
		t.Fatalf("encoding tag not recorded")
	}
}

func TestPriceFeedsMissingParsed(t *testing.T) {
	envelope := NewPriceUpdate([]PriceFeedUpdate{sampleUpdate(t, true)}, EncodingHex, false)
	_, err := envelope.PriceFeeds()
	if !errors.Is(err, ErrMissingParsedData) {
		t.Fatalf("got %v, want ErrMissingParsedData", err)
	}
}

func TestPriceFeedsLossyReconstruction(t *testing.T) {
	original := sampleUpdate(t, true)
	envelope := NewPriceUpdate([]PriceFeedUpdate{original}, EncodingHex, true)

	result, err := envelope.PriceFeeds()
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if len(result.PriceFeeds) != 1 {
		t.Fatalf("feed count %d, want 1", len(result.PriceFeeds))
	}

	feed := result.PriceFeeds[0]
	if feed.UpdateData != nil {
		t.Fatalf("update data must be absent after reconstruction")
	}
	if feed.ID != original.ID || feed.Price != original.Price || feed.EmaPrice != original.EmaPrice {
		t.Fatalf("identity or prices not copied verbatim")
	}
	if feed.Slot == nil || *feed.Slot != *original.Slot {
		t.Fatalf("slot not copied")
	}
	if feed.ReceivedAt == nil || *feed.ReceivedAt != *original.ReceivedAt {
		t.Fatalf("received at not copied from proof availability time")
	}
	if feed.PrevPublishTime == nil || *feed.PrevPublishTime != *original.PrevPublishTime {
		t.Fatalf("prev publish time not copied")
	}

	if len(result.UpdateData) != 1 || !bytes.Equal(result.UpdateData[0], original.UpdateData) {
		t.Fatalf("binary blobs not decoded: %x", result.UpdateData)
	}
}

func TestDecodeDataDegradesToEmpty(t *testing.T) {
	envelope := PriceUpdate{
		Binary: BinaryPriceUpdate{
			Encoding: EncodingHex,
			Data:     []string{"deadbeef", "not-hex", "00ff"},
		},
		Parsed: []ParsedPriceUpdate{},
	}

	blobs, failed := envelope.Binary.DecodeData()
	if len(blobs) != 3 {
		t.Fatalf("blob count %d, want 3", len(blobs))
	}
	if len(failed) != 1 || failed[0] != 1 {
		t.Fatalf("failed indexes %v, want [1]", failed)
	}
	if blobs[1] == nil || len(blobs[1]) != 0 {
		t.Fatalf("failed entry should decode to an empty blob, got %v", blobs[1])
	}
	if !bytes.Equal(blobs[0], []byte{0xde, 0xad, 0xbe, 0xef}) || !bytes.Equal(blobs[2], []byte{0x00, 0xff}) {
		t.Fatalf("healthy entries corrupted: %x %x", blobs[0], blobs[2])
	}

	// The conversion itself stays non-fatal.
	result, err := envelope.PriceFeeds()
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if len(result.UpdateData) != 3 {
		t.Fatalf("update data count %d, want 3", len(result.UpdateData))
	}
}

func TestPriceUpdateJSONShape(t *testing.T) {
	envelope := NewPriceUpdate([]PriceFeedUpdate{sampleUpdate(t, true)}, EncodingBase64, true)
	data, err := json.Marshal(StreamResponse{Data: envelope})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	if !strings.HasPrefix(s, `{"data":{"binary":{"encoding":"base64","data":[`) {
		t.Fatalf("unexpected wire shape: %s", s)
	}
	if !strings.Contains(s, `"parsed":[{"id":"`+sampleHex+`"`) {
		t.Fatalf("parsed record missing: %s", s)
	}
	if !strings.Contains(s, `"proof_available_time"`) {
		t.Fatalf("v2 metadata missing: %s", s)
	}

	var out StreamResponse
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Data.Binary.Encoding != EncodingBase64 || len(out.Data.Parsed) != 1 {
		t.Fatalf("wire round trip mismatch: %+v", out.Data)
	}
}
