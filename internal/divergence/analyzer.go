// Package divergence implements ExchangeDivergenceAnalyzer (§4.6):
// comparing the two exchanges' OI-change, CVD, funding, and volume to
// classify one of nine cross-exchange scenarios.
package divergence

import (
	"fmt"
	"math"

	"github.com/perpintel/engine/internal/config"
	"github.com/perpintel/engine/internal/enums"
)

// ExchangeSnapshot is one exchange's inputs for a single comparison.
type ExchangeSnapshot struct {
	Exchange       string
	OIChangePct    float64
	CVDSlope       float64
	FundingZScore  float64
	VolumeUSD      float64
}

// Result is the analyzer's output (§4.6 "{scenario, bias, confidence,
// warnings[]}").
type Result struct {
	Scenario   enums.DivergenceScenario
	Bias       enums.Bias
	Confidence float64
	Warnings   []string
	Reasoning  string
}

// Analyze compares a retail-leaning and whale-leaning exchange
// snapshot per the fixed Config labeling (§4.6) and applies the
// activation floor on |OI-delta|.
func Analyze(retail, whale ExchangeSnapshot, cfg config.Config) Result {
	delta := whale.OIChangePct - retail.OIChangePct
	absDelta := math.Abs(delta)

	if absDelta < cfg.Divergence.UnclearBelow {
		return Result{
			Scenario:  enums.ScenarioUnclear,
			Bias:      enums.Wait,
			Reasoning: fmt.Sprintf("|OI delta|=%.3f%% below unclear floor %.3f%%", absDelta, cfg.Divergence.UnclearBelow),
		}
	}
	if absDelta < cfg.Divergence.MinDelta {
		return Result{
			Scenario:  enums.ScenarioBinanceNoise,
			Bias:      enums.Wait,
			Confidence: 0.3,
			Reasoning: fmt.Sprintf("|OI delta|=%.3f%% below activation floor %.3f%%: noise", absDelta, cfg.Divergence.MinDelta),
		}
	}

	var warnings []string
	whaleDistributing := whale.OIChangePct < 0 && whale.CVDSlope < 0
	whaleAccumulating := whale.OIChangePct > 0 && whale.CVDSlope > 0
	retailChasing := retail.OIChangePct > 0 && retail.CVDSlope > 0
	retailCapitulating := retail.OIChangePct < 0 && retail.CVDSlope < 0

	switch {
	case whaleDistributing && retailChasing:
		return Result{Scenario: enums.ScenarioWhaleDistribution, Bias: enums.Short, Confidence: confidenceFor(absDelta, cfg),
			Reasoning: "whale OI/CVD falling while retail chases: distribution into retail demand"}
	case whaleAccumulating && retailCapitulating:
		return Result{Scenario: enums.ScenarioWhaleAccumulation, Bias: enums.Long, Confidence: confidenceFor(absDelta, cfg),
			Reasoning: "whale OI/CVD rising while retail capitulates: accumulation from retail supply"}
	case retailChasing && whale.OIChangePct <= 0:
		return Result{Scenario: enums.ScenarioRetailFOMORally, Bias: enums.Short, Confidence: confidenceFor(absDelta, cfg) * 0.8,
			Warnings: append(warnings, "retail-led rally without whale participation"),
			Reasoning: "retail OI/CVD rising without whale confirmation: unsustained rally"}
	case retail.FundingZScore <= -cfg.Gates.FundingZExtreme && whale.OIChangePct > 0:
		return Result{Scenario: enums.ScenarioShortSqueezeSetup, Bias: enums.Long, Confidence: confidenceFor(absDelta, cfg),
			Reasoning: "retail funding deeply negative while whale OI builds: squeeze setup"}
	case whale.OIChangePct > 0 && retail.OIChangePct > 0 && whale.CVDSlope > 0 && retail.CVDSlope > 0:
		return Result{Scenario: enums.ScenarioSynchronizedBull, Bias: enums.Long, Confidence: confidenceFor(absDelta, cfg),
			Reasoning: "both exchanges building OI and CVD upward in sync"}
	case whale.OIChangePct < 0 && retail.OIChangePct < 0 && whale.CVDSlope < 0 && retail.CVDSlope < 0:
		return Result{Scenario: enums.ScenarioSynchronizedBear, Bias: enums.Short, Confidence: confidenceFor(absDelta, cfg),
			Reasoning: "both exchanges unwinding OI and CVD downward in sync"}
	case whale.VolumeUSD > retail.VolumeUSD*1.5:
		return Result{Scenario: enums.ScenarioBybitLeading, Bias: biasFromSlope(whale.CVDSlope), Confidence: confidenceFor(absDelta, cfg) * 0.7,
			Reasoning: "whale-leaning exchange carries disproportionate volume share"}
	default:
		return Result{Scenario: enums.ScenarioUnclear, Bias: enums.Wait, Confidence: 0.3,
			Reasoning: "no divergence scenario predicate matched"}
	}
}

func biasFromSlope(slope float64) enums.Bias {
	if slope > 0 {
		return enums.Long
	}
	if slope < 0 {
		return enums.Short
	}
	return enums.Wait
}

func confidenceFor(absDelta float64, cfg config.Config) float64 {
	span := cfg.Divergence.MinDelta * 3
	if span <= 0 {
		span = 3
	}
	c := absDelta / span
	if c > 1 {
		c = 1
	}
	if c < 0.3 {
		c = 0.3
	}
	return c
}
