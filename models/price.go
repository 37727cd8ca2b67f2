package models

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"

	"github.com/shopspring/decimal"
)

// Price is a fixed-point price with a confidence interval. The real value
// is Price * 10^Expo; Conf is the uncertainty bound in the same units.
// Fields are taken verbatim from the upstream aggregator and never
// recomputed here.
type Price struct {
	Price       int64
	Conf        uint64
	Expo        int32
	PublishTime UnixTimestamp
}

// rpcPrice is the wire form. price and conf travel as decimal strings so
// values beyond the safe integer range of JSON consumers survive the
// round trip; expo and publish_time fit natively.
type rpcPrice struct {
	Price       string        `json:"price"`
	Conf        string        `json:"conf"`
	Expo        int32         `json:"expo"`
	PublishTime UnixTimestamp `json:"publish_time"`
}

func (p Price) MarshalJSON() ([]byte, error) {
	return json.Marshal(rpcPrice{
		Price:       strconv.FormatInt(p.Price, 10),
		Conf:        strconv.FormatUint(p.Conf, 10),
		Expo:        p.Expo,
		PublishTime: p.PublishTime,
	})
}

func (p *Price) UnmarshalJSON(data []byte) error {
	var wire rpcPrice
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	price, err := strconv.ParseInt(wire.Price, 10, 64)
	if err != nil {
		return fmt.Errorf("parse price %q: %w", wire.Price, err)
	}
	conf, err := strconv.ParseUint(wire.Conf, 10, 64)
	if err != nil {
		return fmt.Errorf("parse conf %q: %w", wire.Conf, err)
	}

	p.Price = price
	p.Conf = conf
	p.Expo = wire.Expo
	p.PublishTime = wire.PublishTime
	return nil
}

// Decimal returns the real value Price * 10^Expo.
func (p Price) Decimal() decimal.Decimal {
	return decimal.New(p.Price, p.Expo)
}

// ConfDecimal returns the confidence interval scaled by the exponent.
func (p Price) ConfDecimal() decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(p.Conf), p.Expo)
}
