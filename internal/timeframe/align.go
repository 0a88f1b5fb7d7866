// Package timeframe implements interval arithmetic and the no-lookahead
// rule the entire pipeline's correctness depends on (§4.1).
package timeframe

import (
	"github.com/perpintel/engine/internal/candle"
	"github.com/perpintel/engine/internal/xerr"
)

// IntervalMs returns the millisecond duration of interval, or an
// UnknownInterval error for anything outside the closed set.
func IntervalMs(interval candle.Timeframe) (int64, error) {
	switch interval {
	case candle.TF30m:
		return 30 * 60 * 1000, nil
	case candle.TF1h:
		return 60 * 60 * 1000, nil
	case candle.TF4h:
		return 4 * 60 * 60 * 1000, nil
	case candle.TF1d:
		return 24 * 60 * 60 * 1000, nil
	default:
		return 0, xerr.New(xerr.ValidationFailure, "unknown interval", "interval", string(interval))
	}
}

// AlignStartToBoundary floors t to the interval boundary in UTC.
func AlignStartToBoundary(interval candle.Timeframe, t int64) (int64, error) {
	ms, err := IntervalMs(interval)
	if err != nil {
		return 0, err
	}
	return (t / ms) * ms, nil
}

// AlignEndToLastClosed returns the end-of-last-closed-candle for
// interval strictly <= asOfMs. If asOfMs falls exactly on a candle-open
// boundary B, the previous candle [B-intervalMs, B) has just closed, so
// the result is B itself.
func AlignEndToLastClosed(interval candle.Timeframe, asOfMs int64) (int64, error) {
	ms, err := IntervalMs(interval)
	if err != nil {
		return 0, err
	}
	if asOfMs%ms == 0 {
		return asOfMs, nil
	}
	return (asOfMs / ms) * ms, nil
}

// MinRequiredCandles is the minimum candle count a feature computation
// needs before it may emit a reliable verdict for the interval. The
// window sizes here match §4.2 (CVD window 50, structure swing ±k, 24
// period momentum/OI lookback).
func MinRequiredCandles(interval candle.Timeframe) int {
	return 50
}

// ValidateSeries enforces §4.1's series-validity rule: every candle
// closes at or before endMs, timestamps strictly increase, and no gap
// exceeds one interval. Returns (partial bool, err error); partial is
// true when a gap was found but the series is otherwise usable.
func ValidateSeries(candles []candle.Candle, interval candle.Timeframe, endMs int64) (partial bool, err error) {
	ms, ierr := IntervalMs(interval)
	if ierr != nil {
		return false, ierr
	}
	var prevTs int64 = -1
	for i, c := range candles {
		if c.Timestamp+ms > endMs {
			return false, xerr.New(xerr.Lookahead, "candle closes after as-of cutoff",
				"timestamp", c.Timestamp, "interval", string(interval), "endMs", endMs)
		}
		if i > 0 {
			if c.Timestamp <= prevTs {
				return false, xerr.New(xerr.ValidationFailure, "candle timestamps not strictly increasing",
					"prev", prevTs, "curr", c.Timestamp)
			}
			if c.Timestamp-prevTs > ms {
				partial = true
			}
		}
		prevTs = c.Timestamp
	}
	return partial, nil
}

// RequireMinimum raises InsufficientData if fewer than the required
// minimum candles are available strictly before endMs.
func RequireMinimum(candles []candle.Candle, interval candle.Timeframe, endMs int64) error {
	min := MinRequiredCandles(interval)
	count := 0
	for _, c := range candles {
		if c.Timestamp < endMs {
			count++
		}
	}
	if count < min {
		return xerr.New(xerr.InsufficientData, "fewer candles than required minimum",
			"interval", string(interval), "have", count, "need", min)
	}
	return nil
}
