// Package outcome implements OutcomeLabeler (§4.9): scoring a past
// MarketState against the prices that actually followed it.
package outcome

import (
	"github.com/perpintel/engine/internal/candle"
	"github.com/perpintel/engine/internal/enums"
)

// Horizon names the three labeling windows (§4.9).
type Horizon string

const (
	Scalping Horizon = "scalping"
	Micro    Horizon = "micro"
	Macro    Horizon = "macro"
)

// HorizonMinutes is the [min,max] elapsed-minutes window per horizon;
// callers pick a concrete horizon length within this range.
var HorizonMinutes = map[Horizon][2]int{
	Scalping: {10, 60},
	Micro:    {120, 480},
	Macro:    {1440, 7200},
}

// Inputs bundles the state-under-evaluation and the future prices
// observed over its horizon.
type Inputs struct {
	Bias           enums.Bias
	StateTimestamp int64
	HorizonElapsed bool // whether the full horizon has elapsed as of replay time
	FuturePrices   []candle.Candle // ascending, within the horizon window
	ReferencePrice float64         // price at StateTimestamp
	MovePctThreshold float64       // config-driven, default 0.5
}

// Result is the labeling output (§4.9, §3 LabeledState fields).
type Result struct {
	Label   enums.OutcomeLabel
	MFEPct  float64
	MAEPct  float64
	MovePct float64
}

// Label implements the deterministic labeling function: given the
// same Inputs it always returns the same Result (§8 invariant 8).
func Label(in Inputs) Result {
	if !in.HorizonElapsed || len(in.FuturePrices) == 0 || in.ReferencePrice == 0 {
		return Result{Label: enums.OutcomePending}
	}

	threshold := in.MovePctThreshold
	if threshold == 0 {
		threshold = 0.5
	}

	mfe, mae, finalMovePct := excursions(in.ReferencePrice, in.FuturePrices, in.Bias)

	if in.Bias == enums.Wait {
		if absF(finalMovePct) >= threshold {
			return Result{Label: enums.OutcomeReversal, MFEPct: mfe, MAEPct: mae, MovePct: finalMovePct}
		}
		return Result{Label: enums.OutcomeContinuation, MFEPct: mfe, MAEPct: mae, MovePct: finalMovePct}
	}

	switch {
	case finalMovePct >= threshold:
		return Result{Label: enums.OutcomeContinuation, MFEPct: mfe, MAEPct: mae, MovePct: finalMovePct}
	case finalMovePct <= -threshold:
		return Result{Label: enums.OutcomeReversal, MFEPct: mfe, MAEPct: mae, MovePct: finalMovePct}
	default:
		return Result{Label: enums.OutcomeNoise, MFEPct: mfe, MAEPct: mae, MovePct: finalMovePct}
	}
}

// excursions computes MFE/MAE and the final directional move, all
// expressed as a signed percentage relative to the state's bias
// direction (positive = favorable). For WAIT, "favorable" has no
// direction, so the raw (unsigned-direction) move is used.
func excursions(reference float64, prices []candle.Candle, bias enums.Bias) (mfe, mae, finalMove float64) {
	sign := 1.0
	if bias == enums.Short {
		sign = -1.0
	}
	maxFav, maxAdv := 0.0, 0.0
	for _, c := range prices {
		movePct := (c.Close - reference) / reference * 100 * sign
		if movePct > maxFav {
			maxFav = movePct
		}
		if movePct < maxAdv {
			maxAdv = movePct
		}
	}
	last := prices[len(prices)-1]
	finalMove = (last.Close - reference) / reference * 100 * sign
	return maxFav, maxAdv, finalMove
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
