package models

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func TestPriceJSONUsesStrings(t *testing.T) {
	p := Price{Price: 123456789, Conf: 5000, Expo: -8, PublishTime: 1700000000}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, `"price":"123456789"`) {
		t.Fatalf("price not a decimal string: %s", s)
	}
	if !strings.Contains(s, `"conf":"5000"`) {
		t.Fatalf("conf not a decimal string: %s", s)
	}
	if !strings.Contains(s, `"expo":-8`) {
		t.Fatalf("expo not a native integer: %s", s)
	}
	if !strings.Contains(s, `"publish_time":1700000000`) {
		t.Fatalf("publish_time not a native integer: %s", s)
	}
}

func TestPriceRoundTripBounds(t *testing.T) {
	cases := []Price{
		{Price: math.MaxInt64, Conf: math.MaxUint64, Expo: -8, PublishTime: 1700000000},
		{Price: math.MinInt64, Conf: 0, Expo: 12, PublishTime: -1},
		{Price: 0, Conf: 1, Expo: 0, PublishTime: 0},
		{Price: -987654321012345678, Conf: 987654321012345678, Expo: -18, PublishTime: 1700000001},
	}
	for _, in := range cases {
		data, err := json.Marshal(in)
		if err != nil {
			t.Fatalf("marshal %+v: %v", in, err)
		}
		var out Price
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if in != out {
			t.Fatalf("round trip mismatch: %+v != %+v", in, out)
		}
	}
}

func TestPriceUnmarshalRejectsBadNumbers(t *testing.T) {
	inputs := []string{
		`{"price":"abc","conf":"1","expo":0,"publish_time":0}`,
		`{"price":"1","conf":"-1","expo":0,"publish_time":0}`,
		`{"price":"9223372036854775808","conf":"1","expo":0,"publish_time":0}`,
	}
	for _, in := range inputs {
		var p Price
		if err := json.Unmarshal([]byte(in), &p); err == nil {
			t.Fatalf("expected error for %s", in)
		}
	}
}

func TestPriceDecimal(t *testing.T) {
	p := Price{Price: 6891568728123, Conf: 1500000000, Expo: -8, PublishTime: 1700000000}
	if got := p.Decimal().String(); got != "68915.68728123" {
		t.Fatalf("decimal value %s, want 68915.68728123", got)
	}
	if got := p.ConfDecimal().String(); got != "15" {
		t.Fatalf("conf decimal %s, want 15", got)
	}

	big := Price{Price: 1, Conf: math.MaxUint64, Expo: 0}
	if got := big.ConfDecimal().String(); got != "18446744073709551615" {
		t.Fatalf("max conf decimal %s", got)
	}
}
