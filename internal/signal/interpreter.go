// Package signal maps per-timeframe feature bundles to individual
// SignalVerdicts and applies the reliability gates of §4.3 before
// they are weighted and combined into one per-timeframe verdict.
package signal

import (
	"fmt"
	"math"

	"github.com/perpintel/engine/internal/config"
	"github.com/perpintel/engine/internal/enums"
	"github.com/perpintel/engine/internal/feature"
)

// Verdict is one signal family's contribution for a single timeframe
// (§3 SignalVerdict).
type Verdict struct {
	Name       string
	Bias       enums.Bias
	Confidence float64 // [0,10]
	Weight     float64 // raw config weight, before gating/renormalization
	Reliable   bool
	Reasoning  string
}

// cvdResolutionFor maps timeframe -> expected taker-volume resolution
// used by the CVD reliability gate (§4.3).
var cvdResolutionFor = map[string]string{
	"30m": "m30",
	"1h":  "h1",
	"4h":  "h4",
	"1d":  "h24",
}

// Context bundles everything Interpret needs beyond the feature bundle:
// the regime and divergence results that also act as signal families
// (§4.3 required signal names include exchange_divergence and
// market_regime), plus staleness/liquidity inputs.
type Context struct {
	Timeframe        string
	Bundle           feature.Bundle
	Cfg              config.Config
	RegimeLabel      enums.Regime
	RegimeConfidence float64
	DivergenceBias   enums.Bias
	DivergenceConf   float64
	DivergenceReason string
	DataAgeMs        int64
	IntervalMs       int64
}

// Interpret produces one Verdict per configured signal family and
// applies per-signal reliability gates. The raw Weight on each verdict
// is the config weight; callers renormalize across non-gated signals
// (§4.3 "Component-effective-weight").
func Interpret(ctx Context) []Verdict {
	out := make([]Verdict, 0, len(ctx.Cfg.Weights.Signals))
	for name, w := range ctx.Cfg.Weights.Signals {
		v := interpretOne(name, w, ctx)
		out = append(out, v)
	}
	return out
}

func interpretOne(name string, weight float64, ctx Context) Verdict {
	switch name {
	case "technical":
		return technicalSignal(weight, ctx)
	case "structure":
		return structureSignal(weight, ctx)
	case "cvd":
		return cvdSignal(weight, ctx)
	case "vwap":
		return vwapSignal(weight, ctx)
	case "funding":
		return fundingSignal(weight, ctx)
	case "market_regime":
		return regimeSignal(weight, ctx)
	case "exchange_divergence":
		return divergenceSignal(weight, ctx)
	case "volume_profile":
		return volumeProfileSignal(weight, ctx)
	default:
		return Verdict{Name: name, Bias: enums.Wait, Weight: 0, Reliable: false, Reasoning: "unknown signal family"}
	}
}

func applyStaleness(v Verdict, ctx Context, th config.Thresholds) Verdict {
	staleMult := ctx.Cfg.Gates.StalenessMultiplier
	if ctx.IntervalMs <= 0 {
		return v
	}
	age := ctx.DataAgeMs
	if age > int64(staleMult*2)*ctx.IntervalMs {
		v.Weight = 0
		v.Reliable = false
		v.Reasoning += " (stale: weight gated to 0)"
		return v
	}
	if age > int64(staleMult)*ctx.IntervalMs {
		v.Confidence *= (1 - ctx.Cfg.Penalties.StalenessPenaltyFactor) // 0.8x at default 0.2
		v.Reasoning += " (stale: confidence reduced)"
	}
	return v
}

func technicalSignal(weight float64, ctx Context) Verdict {
	t := ctx.Bundle.Trend
	bias := enums.Wait
	conf := 0.0
	switch t.Direction {
	case feature.TrendUp:
		bias = enums.Long
		conf = clamp10(math.Abs(t.Strength) * 6)
	case feature.TrendDown:
		bias = enums.Short
		conf = clamp10(math.Abs(t.Strength) * 6)
	}
	v := Verdict{
		Name: "technical", Bias: bias, Confidence: conf, Weight: weight, Reliable: true,
		Reasoning: fmt.Sprintf("trend=%s strength=%.2f ema20/50=%s", t.Direction, t.Strength, t.EMACrossover),
	}
	th := ctx.Cfg.Thresholds[ctx.Timeframe]
	return applyStaleness(v, ctx, th)
}

func structureSignal(weight float64, ctx Context) Verdict {
	s := ctx.Bundle.Structure
	bias := enums.Wait
	conf := 0.0
	if s.BrokeOfStructure {
		if s.BoSDirection == "up" {
			bias = enums.Long
		} else if s.BoSDirection == "down" {
			bias = enums.Short
		}
		conf = 7
	}
	v := Verdict{
		Name: "structure", Bias: bias, Confidence: conf, Weight: weight, Reliable: true,
		Reasoning: fmt.Sprintf("BoS=%v direction=%s support=%.4f resistance=%.4f", s.BrokeOfStructure, s.BoSDirection, s.Support, s.Resistance),
	}
	return applyStaleness(v, ctx, ctx.Cfg.Thresholds[ctx.Timeframe])
}

func cvdSignal(weight float64, ctx Context) Verdict {
	cvd := ctx.Bundle.CVD
	th := ctx.Cfg.Thresholds[ctx.Timeframe]
	minReliable := th.CVD.MinReliablePct
	if minReliable == 0 {
		minReliable = 0.8
	}
	expectedMin := int(math.Ceil(minReliable * float64(cvd.ExpectedCandles)))
	resolutionOK := cvdResolutionFor[ctx.Timeframe] != ""
	reliable := cvd.ActualCandles >= expectedMin && resolutionOK && cvd.ConsecutiveZeroVolume <= 3

	if !reliable {
		return Verdict{
			Name: "cvd", Bias: enums.Wait, Confidence: 0, Weight: 0, Reliable: false,
			Reasoning: fmt.Sprintf("cvd unreliable: have %d/%d candles, zero-run=%d", cvd.ActualCandles, cvd.ExpectedCandles, cvd.ConsecutiveZeroVolume),
		}
	}

	bias := enums.Wait
	conf := 0.0
	if cvd.Strong {
		if cvd.SlopeLast10 > 0 {
			bias = enums.Long
		} else {
			bias = enums.Short
		}
		conf = clamp10(math.Abs(cvd.SlopeLast10)/nonZero(cvd.NoiseFloor)*3 + 4)
	}
	v := Verdict{
		Name: "cvd", Bias: bias, Confidence: conf, Weight: weight, Reliable: true,
		Reasoning: fmt.Sprintf("cvd slope=%.4f noiseFloor=%.4f strong=%v", cvd.SlopeLast10, cvd.NoiseFloor, cvd.Strong),
	}
	return applyStaleness(v, ctx, th)
}

func vwapSignal(weight float64, ctx Context) Verdict {
	vw := ctx.Bundle.VWAP
	closePrice := vw.Value // approximation: use VWAP's own level as reference is circular; use trend EMA20 as proxy "price"
	price := ctx.Bundle.Trend.EMA20
	bias := enums.Wait
	conf := 0.0
	switch {
	case price > vw.OuterUpper:
		bias, conf = enums.Short, 6 // extended above outer band: mean-revert short lean
	case price > vw.InnerUpper:
		bias, conf = enums.Long, 4
	case price < vw.OuterLower:
		bias, conf = enums.Long, 6
	case price < vw.InnerLower:
		bias, conf = enums.Short, 4
	}
	v := Verdict{
		Name: "vwap", Bias: bias, Confidence: conf, Weight: weight, Reliable: true,
		Reasoning: fmt.Sprintf("vwap=%.4f price=%.4f bands=[%.4f,%.4f]", closePrice, price, vw.InnerLower, vw.InnerUpper),
	}
	return applyStaleness(v, ctx, ctx.Cfg.Thresholds[ctx.Timeframe])
}

func fundingSignal(weight float64, ctx Context) Verdict {
	f := ctx.Bundle.Funding
	zExtreme := ctx.Cfg.Gates.FundingZExtreme
	if math.Abs(f.ZScore) < zExtreme {
		return Verdict{
			Name: "funding", Bias: enums.Wait, Confidence: 0, Weight: weight, Reliable: true,
			Reasoning: fmt.Sprintf("funding z=%.2f below extreme threshold %.2f: neutral", f.ZScore, zExtreme),
		}
	}
	// Extreme positive funding (longs paying shorts) implies crowded
	// longs and a mean-reversion SHORT lean, and vice versa.
	bias := enums.Short
	if f.ZScore < 0 {
		bias = enums.Long
	}
	conf := clamp10(math.Abs(f.ZScore) * 2)
	v := Verdict{
		Name: "funding", Bias: bias, Confidence: conf, Weight: weight, Reliable: true,
		Reasoning: fmt.Sprintf("funding z=%.2f extreme (>= %.2f): crowding reversal lean", f.ZScore, zExtreme),
	}
	return applyStaleness(v, ctx, ctx.Cfg.Thresholds[ctx.Timeframe])
}

func regimeSignal(weight float64, ctx Context) Verdict {
	bias := regimeToBias(ctx.RegimeLabel)
	v := Verdict{
		Name: "market_regime", Bias: bias, Confidence: clamp10(ctx.RegimeConfidence * 10), Weight: weight, Reliable: true,
		Reasoning: fmt.Sprintf("regime=%s", ctx.RegimeLabel),
	}
	return v
}

func regimeToBias(r enums.Regime) enums.Bias {
	switch r {
	case enums.RegimeAccumulation, enums.RegimeHealthyBull, enums.RegimeShortTrap:
		return enums.Long
	case enums.RegimeDistribution, enums.RegimeHealthyBear, enums.RegimeLongTrap:
		return enums.Short
	default:
		return enums.Wait
	}
}

func divergenceSignal(weight float64, ctx Context) Verdict {
	return Verdict{
		Name: "exchange_divergence", Bias: ctx.DivergenceBias, Confidence: clamp10(ctx.DivergenceConf),
		Weight: weight, Reliable: true, Reasoning: ctx.DivergenceReason,
	}
}

func volumeProfileSignal(weight float64, ctx Context) Verdict {
	vp := ctx.Bundle.VolumeProfile
	price := ctx.Bundle.Trend.EMA20
	bias := enums.Wait
	conf := 0.0
	if vp.VAH > vp.VAL {
		switch {
		case price > vp.VAH:
			bias, conf = enums.Short, 5
		case price < vp.VAL:
			bias, conf = enums.Long, 5
		}
	}
	return Verdict{
		Name: "volume_profile", Bias: bias, Confidence: conf, Weight: weight, Reliable: true,
		Reasoning: fmt.Sprintf("poc=%.4f vah=%.4f val=%.4f price=%.4f", vp.POC, vp.VAH, vp.VAL, price),
	}
}

func clamp10(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

func nonZero(v float64) float64 {
	if v == 0 {
		return 1e-9
	}
	return v
}

// EffectiveWeights renormalizes raw config weights across signals that
// survived gating (Weight > 0 or Reliable with WAIT-neutral funding),
// so the effective weights always sum to 1 +/- 1e-6 (§4.3, §8
// invariant 2).
func EffectiveWeights(verdicts []Verdict) map[string]float64 {
	total := 0.0
	for _, v := range verdicts {
		if v.Weight > 0 {
			total += v.Weight
		}
	}
	out := make(map[string]float64, len(verdicts))
	if total <= 0 {
		return out
	}
	for _, v := range verdicts {
		if v.Weight > 0 {
			out[v.Name] = v.Weight / total
		} else {
			out[v.Name] = 0
		}
	}
	return out
}
