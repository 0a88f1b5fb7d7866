package config

import (
	"math"

	"github.com/perpintel/engine/internal/xerr"
)

const weightSumTolerance = 1e-6

// Validate enforces the structural rules of §6.3: signal weights sum
// to 1.0 within tolerance, all required signals are present, and
// weights lie in [0,1]. Never compares floats with equality (§9).
func Validate(c Config) error {
	if len(c.Weights.Signals) == 0 {
		return xerr.New(xerr.ValidationFailure, "weights.signals must not be empty")
	}
	required := map[string]bool{}
	for _, s := range RequiredSignals {
		required[s] = true
	}
	sum := 0.0
	for name, w := range c.Weights.Signals {
		if w < 0 || w > 1 {
			return xerr.New(xerr.ValidationFailure, "signal weight out of [0,1]", "signal", name, "weight", w)
		}
		sum += w
		delete(required, name)
	}
	if len(required) > 0 {
		missing := make([]string, 0, len(required))
		for s := range required {
			missing = append(missing, s)
		}
		return xerr.New(xerr.ValidationFailure, "missing required signal weights", "missing", missing)
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		return xerr.New(xerr.ValidationFailure, "signal weights must sum to 1.0 +/- 1e-6", "sum", sum)
	}
	if c.Penalties.ConflictRatio <= 0 || c.Penalties.ConflictRatio >= 1 {
		return xerr.New(xerr.ValidationFailure, "conflictRatio must be in (0,1)", "value", c.Penalties.ConflictRatio)
	}
	return nil
}

// ValidateDelta enforces the bounded-delta rule of §5/§6.3: a proposed
// config's change from the active one must not exceed Bounds.MaxDelta
// per parameter group.
func ValidateDelta(active, proposed Config) error {
	bounds := active.Bounds.MaxDelta

	for name, w := range proposed.Weights.Signals {
		if old, ok := active.Weights.Signals[name]; ok {
			if math.Abs(w-old) > bounds.Weights+weightSumTolerance {
				return xerr.New(xerr.ValidationFailure, "weight delta exceeds bound",
					"signal", name, "delta", math.Abs(w-old), "bound", bounds.Weights)
			}
		}
	}

	for tf, th := range proposed.Thresholds {
		old, ok := active.Thresholds[tf]
		if !ok {
			continue
		}
		deltas := []float64{
			math.Abs(th.NoisePct - old.NoisePct),
			math.Abs(th.StrongPct - old.StrongPct),
			math.Abs(th.OIQuietPct - old.OIQuietPct),
			math.Abs(th.OIAggressivePct - old.OIAggressivePct),
		}
		for _, d := range deltas {
			if d > bounds.Thresholds+weightSumTolerance {
				return xerr.New(xerr.ValidationFailure, "threshold delta exceeds bound", "timeframe", tf, "delta", d, "bound", bounds.Thresholds)
			}
		}
	}

	gateDeltas := map[string]float64{
		"macroPermission":     math.Abs(proposed.Gates.MacroPermission - active.Gates.MacroPermission),
		"macroAnchor":         math.Abs(proposed.Gates.MacroAnchor - active.Gates.MacroAnchor),
		"setupVeto":           math.Abs(proposed.Gates.SetupVeto - active.Gates.SetupVeto),
		"stalenessMultiplier": math.Abs(proposed.Gates.StalenessMultiplier - active.Gates.StalenessMultiplier),
		"fundingZExtreme":     math.Abs(proposed.Gates.FundingZExtreme - active.Gates.FundingZExtreme),
	}
	for name, d := range gateDeltas {
		if d > bounds.Gates+weightSumTolerance {
			return xerr.New(xerr.ValidationFailure, "gate delta exceeds bound", "gate", name, "delta", d, "bound", bounds.Gates)
		}
	}

	penaltyDeltas := map[string]float64{
		"conflictRatio":          math.Abs(proposed.Penalties.ConflictRatio - active.Penalties.ConflictRatio),
		"conflictPenaltyFactor":  math.Abs(proposed.Penalties.ConflictPenaltyFactor - active.Penalties.ConflictPenaltyFactor),
		"alignmentBonus":         math.Abs(proposed.Penalties.AlignmentBonus - active.Penalties.AlignmentBonus),
		"stalenessPenaltyFactor": math.Abs(proposed.Penalties.StalenessPenaltyFactor - active.Penalties.StalenessPenaltyFactor),
	}
	for name, d := range penaltyDeltas {
		if d > bounds.Penalties+weightSumTolerance {
			return xerr.New(xerr.ValidationFailure, "penalty delta exceeds bound", "penalty", name, "delta", d, "bound", bounds.Penalties)
		}
	}

	return nil
}
