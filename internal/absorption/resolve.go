package absorption

import "github.com/perpintel/engine/internal/enums"

// ResolveInputs is everything Resolve needs to evaluate one unresolved
// event on the current cycle. Series-derived booleans are computed by
// the caller (the pipeline, which already has candle/OI series and
// structure state) rather than recomputed here.
type ResolveInputs struct {
	Event Event

	CandlesSinceDetection int
	DataGapFraction       float64 // fraction of expected candles missing in the window
	CurrentPrice          float64
	PriceMovedPctFromDetection float64

	SweptLevelAndRejected bool // wicked through the level, closed back inside
	BrokeOppositeStructure bool // BoS against the absorption direction
	OIUnwindRatio         float64 // (oiPeak-oiNow)/(oiPeak-oiStart), only meaningful if oi rose first

	PriceHeldLevel   bool // never closed meaningfully beyond the level
	OIRisingSustained bool
	CVDContinuedSameDirection bool
}

// Outcome is the result of one resolution attempt: either the event
// stays DETECTING (unchanged), is extended, or reaches a terminal
// state.
type Outcome struct {
	Event   Event
	Changed bool
}

// Resolve implements Phase 2 (§4.7). Callers should persist Event when
// Changed is true.
func Resolve(in ResolveInputs, expectedCandles int) Outcome {
	ev := in.Event
	ev.CandlesSinceDetection = in.CandlesSinceDetection

	window := WindowFor(ev.Timeframe)
	if window == 0 {
		window = expectedCandles
	}

	if in.CandlesSinceDetection < window {
		return Outcome{Event: ev, Changed: false}
	}

	if in.DataGapFraction > 0.2 {
		if ev.ExtensionsUsed == 0 {
			ev.ExtensionsUsed = 1
			return Outcome{Event: ev, Changed: true}
		}
		ev.Status = enums.AbsorptionNone
		ev.Resolution = enums.ResolutionExpired
		return Outcome{Event: ev, Changed: true}
	}

	trapHits := 0
	if in.SweptLevelAndRejected {
		trapHits++
	}
	if in.BrokeOppositeStructure {
		trapHits++
	}
	if in.OIUnwindRatio >= 1.0 {
		trapHits++
	}

	continuationHits := 0
	if in.PriceHeldLevel {
		continuationHits++
	}
	if in.OIRisingSustained {
		continuationHits++
	}
	if in.CVDContinuedSameDirection {
		continuationHits++
	}

	trapQualifies := trapHits >= 2
	continuationQualifies := continuationHits >= 2 && correctLocation(ev)

	switch {
	case trapQualifies:
		// TRAP wins ties with accumulation/distribution (§4.7).
		ev.Status = enums.AbsorptionResolved
		ev.Resolution = enums.ResolutionTrap
		ev.BiasImplication = trapBiasImplication(ev)
		ev.ConfidenceBonus = bonusFor(in.PriceMovedPctFromDetection)
		return Outcome{Event: ev, Changed: true}
	case continuationQualifies:
		ev.Status = enums.AbsorptionResolved
		if ev.CVDDirection == "buying" {
			ev.Resolution = enums.ResolutionAccumulation
			ev.BiasImplication = enums.Long
		} else {
			ev.Resolution = enums.ResolutionDistribution
			ev.BiasImplication = enums.Short
		}
		ev.ConfidenceBonus = bonusFor(in.PriceMovedPctFromDetection)
		return Outcome{Event: ev, Changed: true}
	}

	if in.CandlesSinceDetection > 2*window {
		ev.Status = enums.AbsorptionNone
		ev.Resolution = enums.ResolutionExpired
		return Outcome{Event: ev, Changed: true}
	}

	return Outcome{Event: ev, Changed: true}
}

func correctLocation(ev Event) bool {
	if ev.CVDDirection == "buying" {
		return ev.Location == "resistance"
	}
	return ev.Location == "support"
}

// trapBiasImplication: a trapped buying-side absorption at resistance
// implies a SHORT continuation; a trapped selling-side absorption at
// support implies LONG.
func trapBiasImplication(ev Event) enums.Bias {
	if ev.CVDDirection == "buying" {
		return enums.Short
	}
	return enums.Long
}

func bonusFor(priceMovedPct float64) float64 {
	if priceMovedPct < 0 {
		priceMovedPct = -priceMovedPct
	}
	if priceMovedPct > 2.0 {
		return 1
	}
	return 2
}

// Invalidate marks a DETECTING event INVALIDATED because an opposite
// detection occurred for the same (symbol, timeframe) before
// resolution (§4.7 state machine).
func Invalidate(ev Event) Event {
	ev.Status = enums.AbsorptionNone
	ev.Resolution = enums.ResolutionInvalidated
	return ev
}
