package signal

import "github.com/perpintel/engine/internal/enums"

// TimeframeVerdict is the weighted combination of all signal verdicts
// for one timeframe, the unit BucketAggregator consumes.
type TimeframeVerdict struct {
	Timeframe        string
	Bias             enums.Bias
	Confidence       float64
	Verdicts         []Verdict
	EffectiveWeights map[string]float64
}

// Combine applies the weighted vote of LONG vs SHORT confidence across
// a timeframe's gated signal verdicts, producing the single per-
// timeframe bias+confidence BucketAggregator operates on.
func Combine(timeframe string, verdicts []Verdict) TimeframeVerdict {
	weights := EffectiveWeights(verdicts)

	var longScore, shortScore float64
	for _, v := range verdicts {
		w := weights[v.Name]
		switch v.Bias {
		case enums.Long:
			longScore += w * v.Confidence
		case enums.Short:
			shortScore += w * v.Confidence
		}
	}

	bias := enums.Wait
	conf := 0.0
	switch {
	case longScore > shortScore:
		bias, conf = enums.Long, longScore
	case shortScore > longScore:
		bias, conf = enums.Short, shortScore
	}

	return TimeframeVerdict{
		Timeframe:        timeframe,
		Bias:             bias,
		Confidence:       conf,
		Verdicts:         verdicts,
		EffectiveWeights: weights,
	}
}
