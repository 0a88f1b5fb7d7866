// Package candle defines the shared market-data primitives consumed by
// every layer of the pipeline: candles, timeframes, and the venue
// enumeration the spec's two exchanges are drawn from.
package candle

import "fmt"

// Exchange identifies one of the two perpetual-futures venues the
// pipeline compares. Per SPEC_FULL.md one is "retail-leaning" and the
// other "whale-leaning"; the Config carries which is which.
type Exchange string

const (
	ExchangeBinance Exchange = "binance"
	ExchangeBybit   Exchange = "bybit"
)

// Timeframe is one of the closed set the pipeline operates over.
type Timeframe string

const (
	TF30m Timeframe = "30m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
	TF1d  Timeframe = "1d"
)

// AllTimeframes lists the closed timeframe set in ascending order.
var AllTimeframes = []Timeframe{TF30m, TF1h, TF4h, TF1d}

// Valid reports whether tf is one of the closed set.
func (tf Timeframe) Valid() bool {
	switch tf {
	case TF30m, TF1h, TF4h, TF1d:
		return true
	default:
		return false
	}
}

// Candle is one OHLC bar. Timestamp is the candle OPEN, in ms UTC; the
// candle covers [Timestamp, Timestamp+intervalMs) and is closed once
// now >= Timestamp+intervalMs.
type Candle struct {
	Timestamp int64 // ms UTC, candle open
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Key uniquely identifies a candle as required by the data model.
type Key struct {
	Exchange  Exchange
	Symbol    string
	Interval  Timeframe
	Timestamp int64
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s:%d", k.Exchange, k.Symbol, k.Interval, k.Timestamp)
}

// OIPoint is one open-interest observation aligned to a candle timestamp.
type OIPoint struct {
	Timestamp int64
	OpenInterestUSD float64
}

// FundingPoint is one funding-rate observation.
type FundingPoint struct {
	Timestamp int64
	Rate      float64 // per-8h funding rate, fraction (e.g. 0.0001 = 0.01%)
}

// TakerVolumePoint is per-candle aggressor volume, §6.1.
type TakerVolumePoint struct {
	Timestamp int64
	BuyUSD    float64
	SellUSD   float64
}
