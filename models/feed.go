package models

import "encoding/base64"

// Slot is a pythnet slot number.
type Slot = uint64

// UnixTimestamp is seconds since the Unix epoch. Signed so durations can
// be computed by plain subtraction.
type UnixTimestamp = int64

// EmitterChainPythnet is the wormhole chain id of the network price
// updates originate from.
const EmitterChainPythnet uint16 = 26

// PriceFeedUpdate is the canonical in-process representation of one price
// feed update. Optional fields are nil when the producer did not observe
// them; UpdateData carries the original signed update bytes when the
// producer captured them.
type PriceFeedUpdate struct {
	ID              Identifier
	Price           Price
	EmaPrice        Price
	Slot            *Slot
	ReceivedAt      *UnixTimestamp
	UpdateData      []byte
	PrevPublishTime *UnixTimestamp
}

// RpcPriceFeedMetadata is the verbose metadata block of a client view.
type RpcPriceFeedMetadata struct {
	Slot                    *Slot          `json:"slot"`
	EmitterChain            uint16         `json:"emitter_chain"`
	PriceServiceReceiveTime *UnixTimestamp `json:"price_service_receive_time"`
	PrevPublishTime         *UnixTimestamp `json:"prev_publish_time"`
}

// RpcPriceFeed is the client-facing shape of one price feed update.
// Metadata is present only when the view was built verbose; VAA is the
// update bytes as base64 and is present only when binary output was
// requested and the update actually carried bytes.
type RpcPriceFeed struct {
	ID       Identifier            `json:"id"`
	Price    Price                 `json:"price"`
	EmaPrice Price                 `json:"ema_price"`
	Metadata *RpcPriceFeedMetadata `json:"metadata,omitempty"`
	VAA      *string               `json:"vaa,omitempty"`
}

// NewRpcPriceFeed projects a domain update into the client-facing shape.
// The numeric payload is copied verbatim. An update without UpdateData
// yields no vaa even when binary is requested; that is a legitimate
// state, not an error.
func NewRpcPriceFeed(update PriceFeedUpdate, verbose bool, binary bool) RpcPriceFeed {
	feed := RpcPriceFeed{
		ID:       update.ID,
		Price:    update.Price,
		EmaPrice: update.EmaPrice,
	}

	if verbose {
		feed.Metadata = &RpcPriceFeedMetadata{
			Slot:                    update.Slot,
			EmitterChain:            EmitterChainPythnet,
			PriceServiceReceiveTime: update.ReceivedAt,
			PrevPublishTime:         update.PrevPublishTime,
		}
	}

	if binary && update.UpdateData != nil {
		vaa := base64.StdEncoding.EncodeToString(update.UpdateData)
		feed.VAA = &vaa
	}

	return feed
}
