// Package decision implements the three-layer hierarchical permission
// contract of §4.4: macro permission/anchoring, setup veto, execution
// trigger, conflict penalty, alignment bonus, dual confidence, regime
// clamp, and stance/risk-mode mapping.
package decision

import (
	"github.com/perpintel/engine/internal/bucket"
	"github.com/perpintel/engine/internal/config"
	"github.com/perpintel/engine/internal/enums"
)

// Inputs bundles everything the hierarchical contract needs beyond the
// three bucket verdicts.
type Inputs struct {
	Buckets          map[bucket.Name]bucket.Verdict
	Regime           enums.Regime
	Cfg              config.Config
	GateOffCount     int // signals zero-weighted this cycle, for noTradeConfidence
	AbsorptionBonus  float64 // 0 unless a RESOLVED absorption event applies this cycle
}

// Final is the assembled hierarchical decision (§3 MarketState.final).
type Final struct {
	Bias                enums.Bias
	Confidence          float64
	DirectionConfidence float64
	NoTradeConfidence   float64
	TradeStance         enums.TradeStance
	RiskMode            enums.RiskMode
	PrimaryRegime       enums.Regime
	MacroAnchored       bool
	Warnings            []string
}

// Decide runs the ten-step contract of §4.4 in order.
func Decide(in Inputs) Final {
	var warnings []string
	macro := in.Buckets[bucket.Macro]
	micro := in.Buckets[bucket.Micro]
	scalping := in.Buckets[bucket.Scalping]
	gates := in.Cfg.Gates

	// Step 1: macro permission gate.
	allowed := enums.Wait
	if macro.Bias != enums.Wait && macro.Confidence >= gates.MacroPermission {
		allowed = macro.Bias
	}

	// Step 2: macro anchoring.
	macroAnchored := false
	bias := allowed
	if allowed == enums.Wait {
		bias = enums.Wait
	} else if macro.Confidence >= gates.MacroAnchor {
		macroAnchored = true
		if (micro.Bias != enums.Wait && micro.Bias != allowed) || (scalping.Bias != enums.Wait && scalping.Bias != allowed) {
			warnings = append(warnings, "Macro anchored — lower TF opposing")
		}
	}

	// Step 3: setup alignment (Micro must agree or be neutral).
	if allowed != enums.Wait && micro.Bias != enums.Wait && micro.Bias != allowed && micro.Confidence >= gates.SetupVeto {
		bias = enums.Wait
		warnings = append(warnings, "Setup veto — Micro opposes Macro above threshold")
	}

	// Step 4: execution trigger — scalping affects confidence only,
	// never direction; nothing to do here structurally (handled in
	// the score combination below).

	longScore := macro.LongScore + micro.LongScore + scalping.LongScore
	shortScore := macro.ShortScore + micro.ShortScore + scalping.ShortScore

	confidence := 0.0
	if bias == enums.Long {
		confidence = longScore
	} else if bias == enums.Short {
		confidence = shortScore
	}

	// Step 5: conflict penalty.
	maxScore, minScore := longScore, shortScore
	if shortScore > maxScore {
		maxScore, minScore = shortScore, longScore
	}
	ratio := 0.0
	if maxScore > 0 {
		ratio = minScore / maxScore
	}
	if ratio > in.Cfg.Penalties.ConflictRatio {
		confidence *= 1 - ratio*in.Cfg.Penalties.ConflictPenaltyFactor
		warnings = append(warnings, "Conflict penalty applied")
	}

	// Step 6: alignment bonus.
	allAligned := bias != enums.Wait && macro.Bias == bias && micro.Bias == bias && scalping.Bias == bias
	if allAligned {
		confidence += in.Cfg.Penalties.AlignmentBonus
	}
	if confidence > 10 {
		confidence = 10
	}
	if confidence < 0 {
		confidence = 0
	}

	// Absorption bonus applied additively, still capped at 10 (§4.7,
	// §8 invariant 4 is checked by callers comparing with/without it).
	confidence += in.AbsorptionBonus
	if confidence > 10 {
		confidence = 10
	}

	// Step 7: dual confidence.
	directionConfidence := confidence
	noTradeConfidence := noTradeConfidenceOf(bias, longScore, shortScore, in.GateOffCount, len(in.Cfg.Weights.Signals), in.Regime)

	// Step 8: regime clamp.
	tradeStance := stanceFromBias(bias)
	if in.Regime == enums.RegimeChop || in.Regime == enums.RegimeUnclear {
		tradeStance = enums.AvoidTrading
		if confidence > 4 {
			confidence = 4
		}
	}

	// Step 9: regime->stance table overrides, applied after the
	// bias-driven default mapping.
	tradeStance = applyRegimeStanceTable(in.Regime, bias, tradeStance)

	// Step 10: risk mode.
	riskMode := enums.RiskNormal
	if allAligned && confidence >= 8 {
		riskMode = enums.RiskAggressive
	} else if ratio > in.Cfg.Penalties.ConflictRatio {
		riskMode = enums.RiskDefensive
	}

	return Final{
		Bias:                bias,
		Confidence:          confidence,
		DirectionConfidence: directionConfidence,
		NoTradeConfidence:   noTradeConfidence,
		TradeStance:         tradeStance,
		RiskMode:            riskMode,
		PrimaryRegime:       in.Regime,
		MacroAnchored:       macroAnchored,
		Warnings:            warnings,
	}
}

func stanceFromBias(bias enums.Bias) enums.TradeStance {
	switch bias {
	case enums.Long:
		return enums.LookForLongs
	case enums.Short:
		return enums.LookForShorts
	default:
		return enums.AvoidTrading
	}
}

// applyRegimeStanceTable implements the regime -> stance overrides
// named in §4.4. Ambiguous "AVOID|SHORT" / "AVOID|LONG" entries defer
// to AVOID_TRADING unless the hierarchical bias already agrees with
// the implied direction.
func applyRegimeStanceTable(regime enums.Regime, bias enums.Bias, current enums.TradeStance) enums.TradeStance {
	switch regime {
	case enums.RegimeDistribution:
		return enums.LookForShorts
	case enums.RegimeAccumulation:
		return enums.LookForLongs
	case enums.RegimeLongTrap:
		if bias == enums.Short {
			return enums.LookForShorts
		}
		return enums.AvoidTrading
	case enums.RegimeShortTrap:
		if bias == enums.Long {
			return enums.LookForLongs
		}
		return enums.AvoidTrading
	case enums.RegimeHealthyBull:
		return enums.LookForLongs
	case enums.RegimeHealthyBear:
		return enums.LookForShorts
	case enums.RegimeShortCovering:
		return enums.AvoidTrading
	case enums.RegimeChop, enums.RegimeUnclear:
		return enums.AvoidTrading
	default:
		return current
	}
}

func noTradeConfidenceOf(bias enums.Bias, longScore, shortScore float64, gateOffCount, signalCount int, regime enums.Regime) float64 {
	waitShare := 0.0
	total := longScore + shortScore
	if bias == enums.Wait {
		waitShare = 1.0
	} else if total > 0 {
		waitShare = 1 - (max(longScore, shortScore) / total)
	}
	chop := 0.0
	if regime == enums.RegimeChop || regime == enums.RegimeUnclear {
		chop = 1.0
	}
	gateOff := 0.0
	if signalCount > 0 {
		gateOff = float64(gateOffCount) / float64(signalCount)
	}
	score := (waitShare*4 + chop*3 + gateOff*3)
	if score > 10 {
		score = 10
	}
	return score
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
