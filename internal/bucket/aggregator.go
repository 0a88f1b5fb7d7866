// Package bucket groups per-timeframe verdicts into the three
// hierarchical buckets (Macro/Micro/Scalping) per §4.4, using the
// open-question decision recorded in SPEC_FULL.md §5.1.
package bucket

import (
	"github.com/perpintel/engine/internal/config"
	"github.com/perpintel/engine/internal/enums"
	"github.com/perpintel/engine/internal/signal"
)

// Name identifies a hierarchical bucket role.
type Name string

const (
	Macro    Name = "macro"
	Micro    Name = "micro"
	Scalping Name = "scalping"
)

// Membership is the closed bucket->timeframe map (§3).
var Membership = map[Name][]string{
	Macro:    {"4h", "1d"},
	Micro:    {"1h", "4h"},
	Scalping: {"30m", "1h"},
}

// Verdict is a bucket's aggregated outcome (§3 BucketVerdict).
type Verdict struct {
	Bucket                  Name
	Bias                    enums.Bias
	Confidence              float64
	ContributingTimeframes  []string
	LongScore               float64
	ShortScore              float64
}

// Aggregate combines the constituent timeframes' verdicts into one
// bucket verdict via the weighted vote of §4.4: conflicting scores
// within conflictRatio of each other produce bucket WAIT.
func Aggregate(name Name, byTF map[string]signal.TimeframeVerdict, cfg config.Config) Verdict {
	members := Membership[name]
	weights := timeframeWeights(members, cfg)

	var longScore, shortScore float64
	contributing := make([]string, 0, len(members))
	for _, tf := range members {
		tv, ok := byTF[tf]
		if !ok {
			continue
		}
		contributing = append(contributing, tf)
		w := weights[tf]
		switch tv.Bias {
		case enums.Long:
			longScore += w * tv.Confidence
		case enums.Short:
			shortScore += w * tv.Confidence
		}
	}

	bias := enums.Wait
	confidence := 0.0
	maxScore := longScore
	if shortScore > maxScore {
		maxScore = shortScore
	}
	minScore := longScore
	if shortScore < minScore {
		minScore = shortScore
	}

	ratio := 0.0
	if maxScore > 0 {
		ratio = minScore / maxScore
	}

	if maxScore > 0 && ratio <= cfg.Penalties.ConflictRatio {
		if longScore > shortScore {
			bias, confidence = enums.Long, longScore
		} else if shortScore > longScore {
			bias, confidence = enums.Short, shortScore
		}
	}

	return Verdict{
		Bucket:                 name,
		Bias:                   bias,
		Confidence:             confidence,
		ContributingTimeframes: contributing,
		LongScore:              longScore,
		ShortScore:             shortScore,
	}
}

// timeframeWeights returns the configured per-timeframe weight for the
// given members, defaulting to an equal split when Config doesn't
// specify (§4.4 "weighted by config's per-timeframe weight").
func timeframeWeights(members []string, cfg config.Config) map[string]float64 {
	out := make(map[string]float64, len(members))
	if len(cfg.Weights.Timeframes) > 0 {
		total := 0.0
		for _, tf := range members {
			total += cfg.Weights.Timeframes[tf]
		}
		if total > 0 {
			for _, tf := range members {
				out[tf] = cfg.Weights.Timeframes[tf] / total
			}
			return out
		}
	}
	equal := 1.0 / float64(len(members))
	for _, tf := range members {
		out[tf] = equal
	}
	return out
}
