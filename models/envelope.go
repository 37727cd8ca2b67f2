package models

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

// EncodingType selects how raw update bytes travel inside an envelope.
// The set is closed: only hex and base64 exist, and the tag recorded in
// the envelope is the one used to decode its data, never inferred from
// content.
type EncodingType int

const (
	EncodingHex EncodingType = iota
	EncodingBase64
)

// ParseEncodingType maps the textual tag to its variant.
func ParseEncodingType(s string) (EncodingType, error) {
	switch s {
	case "hex":
		return EncodingHex, nil
	case "base64":
		return EncodingBase64, nil
	default:
		return EncodingHex, fmt.Errorf("unknown encoding %q", s)
	}
}

func (e EncodingType) String() string {
	switch e {
	case EncodingBase64:
		return "base64"
	default:
		return "hex"
	}
}

// Encode renders data under this encoding.
func (e EncodingType) Encode(data []byte) string {
	switch e {
	case EncodingBase64:
		return base64.StdEncoding.EncodeToString(data)
	default:
		return hex.EncodeToString(data)
	}
}

// Decode reverses Encode.
func (e EncodingType) Decode(text string) ([]byte, error) {
	switch e {
	case EncodingBase64:
		return base64.StdEncoding.DecodeString(text)
	default:
		return hex.DecodeString(text)
	}
}

func (e EncodingType) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.String())
}

func (e *EncodingType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseEncodingType(s)
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// BinaryPriceUpdate carries raw update byte strings under one encoding tag.
type BinaryPriceUpdate struct {
	Encoding EncodingType `json:"encoding"`
	Data     []string     `json:"data"`
}

// RpcPriceFeedMetadataV2 is the metadata block of a parsed envelope record.
type RpcPriceFeedMetadataV2 struct {
	Slot               *Slot          `json:"slot"`
	ProofAvailableTime *UnixTimestamp `json:"proof_available_time"`
	PrevPublishTime    *UnixTimestamp `json:"prev_publish_time"`
}

// ParsedPriceUpdate is the parsed view of one update inside an envelope.
type ParsedPriceUpdate struct {
	ID       Identifier             `json:"id"`
	Price    Price                  `json:"price"`
	EmaPrice Price                  `json:"ema_price"`
	Metadata RpcPriceFeedMetadataV2 `json:"metadata"`
}

// NewParsedPriceUpdate builds the parsed view of a domain update.
func NewParsedPriceUpdate(update PriceFeedUpdate) ParsedPriceUpdate {
	return ParsedPriceUpdate{
		ID:       update.ID,
		Price:    update.Price,
		EmaPrice: update.EmaPrice,
		Metadata: RpcPriceFeedMetadataV2{
			Slot:               update.Slot,
			ProofAvailableTime: update.ReceivedAt,
			PrevPublishTime:    update.PrevPublishTime,
		},
	}
}

// PriceUpdate is the wire envelope: binary update data plus an optional
// parsed view of the same update set. The two lists are populated
// independently and their lengths need not match.
type PriceUpdate struct {
	Binary BinaryPriceUpdate   `json:"binary"`
	Parsed []ParsedPriceUpdate `json:"parsed,omitempty"`
}

// StreamResponse wraps an envelope for streaming consumers.
type StreamResponse struct {
	Data PriceUpdate `json:"data"`
}

// NewPriceUpdate packs domain updates into an envelope. Updates without
// captured bytes contribute nothing to the binary list, so it may be
// shorter than the parsed one. With withParsed false the envelope is
// binary only.
func NewPriceUpdate(updates []PriceFeedUpdate, encoding EncodingType, withParsed bool) PriceUpdate {
	data := make([]string, 0, len(updates))
	for _, update := range updates {
		if update.UpdateData == nil {
			continue
		}
		data = append(data, encoding.Encode(update.UpdateData))
	}

	envelope := PriceUpdate{
		Binary: BinaryPriceUpdate{Encoding: encoding, Data: data},
	}

	if withParsed {
		parsed := make([]ParsedPriceUpdate, 0, len(updates))
		for _, update := range updates {
			parsed = append(parsed, NewParsedPriceUpdate(update))
		}
		envelope.Parsed = parsed
	}

	return envelope
}

// PriceFeedsWithUpdateData pairs reconstructed domain updates with the
// decoded binary blobs of the same envelope. The lists are not
// re-correlated here; matching by position or identifier is up to the
// caller.
type PriceFeedsWithUpdateData struct {
	PriceFeeds []PriceFeedUpdate
	UpdateData [][]byte
}

// ErrMissingParsedData is returned when an envelope without a parsed list
// is converted to domain updates. Price and identifier cannot be
// reconstructed from the binary bytes alone.
var ErrMissingParsedData = errors.New("no parsed price updates available")

// PriceFeeds reconstructs domain updates from the envelope's parsed list.
// UpdateData on every reconstructed update is nil: the parsed form does
// not carry the original bytes, and the loss is deliberate. The binary
// list is decoded independently; entries that fail to decode become empty
// blobs rather than failing the batch.
func (p PriceUpdate) PriceFeeds() (PriceFeedsWithUpdateData, error) {
	if p.Parsed == nil {
		return PriceFeedsWithUpdateData{}, ErrMissingParsedData
	}

	feeds := make([]PriceFeedUpdate, 0, len(p.Parsed))
	for _, parsed := range p.Parsed {
		feeds = append(feeds, PriceFeedUpdate{
			ID:              parsed.ID,
			Price:           parsed.Price,
			EmaPrice:        parsed.EmaPrice,
			Slot:            parsed.Metadata.Slot,
			ReceivedAt:      parsed.Metadata.ProofAvailableTime,
			PrevPublishTime: parsed.Metadata.PrevPublishTime,
		})
	}

	blobs, _ := p.Binary.DecodeData()

	return PriceFeedsWithUpdateData{
		PriceFeeds: feeds,
		UpdateData: blobs,
	}, nil
}

// DecodeData decodes every binary entry under the envelope's encoding
// tag. A failed entry becomes an empty blob and its index is reported, so
// callers needing strict validation can reject degraded batches.
func (b BinaryPriceUpdate) DecodeData() ([][]byte, []int) {
	blobs := make([][]byte, len(b.Data))
	var failed []int
	for i, entry := range b.Data {
		raw, err := b.Encoding.Decode(entry)
		if err != nil {
			blobs[i] = []byte{}
			failed = append(failed, i)
			continue
		}
		blobs[i] = raw
	}
	return blobs, failed
}
