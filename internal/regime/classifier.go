// Package regime implements the predictive market classification of
// §4.5: a priority-ordered condition matrix over OI/price divergence,
// funding extremity, CVD slope, and structure state.
package regime

import (
	"github.com/perpintel/engine/internal/enums"
	"github.com/perpintel/engine/internal/feature"
)

// Inputs is the reduced set of per-timeframe signals the classifier
// reads; callers typically build this from a feature.Bundle.
type Inputs struct {
	TrendDirection feature.TrendDirection
	OIDivergence   feature.OIDivergence
	FundingZScore  float64
	FundingZExtreme float64
	CVDSlope       float64
	CVDStrong      bool
	BrokeOfStructure bool
}

// Result is the classifier's output (§4.5).
type Result struct {
	Regime     enums.Regime
	Confidence float64
	Reasoning  string
}

type rule struct {
	regime enums.Regime
	match  func(in Inputs) bool
	reason string
}

// table is the declared priority order: first matching rule wins. A
// regime earlier in the list always takes precedence over one later,
// even if both predicates would otherwise match the same inputs.
var table = []rule{
	{
		regime: enums.RegimeDistribution,
		reason: "price up on falling OI with crowded-long funding and fading CVD",
		match: func(in Inputs) bool {
			return in.TrendDirection == feature.TrendUp &&
				in.OIDivergence == feature.OIBearishDivergence &&
				in.FundingZScore >= in.zExtremeOrDefault() &&
				in.CVDSlope < 0
		},
	},
	{
		regime: enums.RegimeAccumulation,
		reason: "price down on rising OI with crowded-short funding and firming CVD",
		match: func(in Inputs) bool {
			return in.TrendDirection == feature.TrendDown &&
				in.OIDivergence == feature.OIBullishDivergence &&
				in.FundingZScore <= -in.zExtremeOrDefault() &&
				in.CVDSlope > 0
		},
	},
	{
		regime: enums.RegimeLongTrap,
		reason: "price rising while OI falls and CVD turns negative: trapped longs",
		match: func(in Inputs) bool {
			return in.TrendDirection == feature.TrendUp &&
				in.OIDivergence == feature.OIBearishDivergence &&
				in.CVDSlope < 0
		},
	},
	{
		regime: enums.RegimeShortTrap,
		reason: "price falling while OI rises and CVD turns positive: trapped shorts",
		match: func(in Inputs) bool {
			return in.TrendDirection == feature.TrendDown &&
				in.OIDivergence == feature.OIBullishDivergence &&
				in.CVDSlope > 0
		},
	},
	{
		regime: enums.RegimeShortCovering,
		reason: "price rising on falling OI without crowded-long funding: short covering",
		match: func(in Inputs) bool {
			return in.TrendDirection == feature.TrendUp &&
				in.OIDivergence == feature.OIBearishDivergence &&
				in.FundingZScore < in.zExtremeOrDefault()
		},
	},
	{
		regime: enums.RegimeHealthyBull,
		reason: "price and OI aligned upward with non-negative CVD",
		match: func(in Inputs) bool {
			return in.TrendDirection == feature.TrendUp &&
				in.OIDivergence == feature.OIAligned &&
				in.CVDSlope >= 0
		},
	},
	{
		regime: enums.RegimeHealthyBear,
		reason: "price and OI aligned downward with non-positive CVD",
		match: func(in Inputs) bool {
			return in.TrendDirection == feature.TrendDown &&
				in.OIDivergence == feature.OIAligned &&
				in.CVDSlope <= 0
		},
	},
	{
		regime: enums.RegimeChop,
		reason: "no break of structure, weak CVD, no directional trend",
		match: func(in Inputs) bool {
			return !in.BrokeOfStructure && !in.CVDStrong && in.TrendDirection == feature.TrendSideways
		},
	},
}

func (in Inputs) zExtremeOrDefault() float64 {
	if in.FundingZExtreme > 0 {
		return in.FundingZExtreme
	}
	return 2.0
}

// Classify walks the priority-ordered table and returns the first
// matching regime, or unclear if nothing matches.
func Classify(in Inputs) Result {
	for _, r := range table {
		if r.match(in) {
			return Result{Regime: r.regime, Confidence: confidenceFor(in), Reasoning: r.reason}
		}
	}
	return Result{Regime: enums.RegimeUnclear, Confidence: 0.3, Reasoning: "no condition in the priority table matched"}
}

// confidenceFor starts at 0.5 and adds 0.2 for strong CVD, 0.2 for
// extreme funding (|z| at or above the threshold) and 0.1 for a break
// of structure, capped at 1; the direction of the matched regime is not
// consulted. A crude but monotone proxy since the table itself is
// boolean.
func confidenceFor(in Inputs) float64 {
	c := 0.5
	if in.CVDStrong {
		c += 0.2
	}
	if absF(in.FundingZScore) >= in.zExtremeOrDefault() {
		c += 0.2
	}
	if in.BrokeOfStructure {
		c += 0.1
	}
	if c > 1 {
		c = 1
	}
	return c
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
