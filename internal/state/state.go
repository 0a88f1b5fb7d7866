// Package state defines the fixed-schema Market State Object (§3, §9)
// and MarketStateAssembler, the pure function that composes every
// other component's output into one immutable record.
package state

import (
	"github.com/perpintel/engine/internal/absorption"
	"github.com/perpintel/engine/internal/bucket"
	"github.com/perpintel/engine/internal/decision"
	"github.com/perpintel/engine/internal/divergence"
	"github.com/perpintel/engine/internal/enums"
	"github.com/perpintel/engine/internal/regime"
	"github.com/perpintel/engine/internal/signal"
)

// SchemaVersion is bumped whenever the MarketState shape changes in an
// incompatible way.
const SchemaVersion = 1

// Final mirrors decision.Final in the assembled state (kept as its own
// type so the JSON/YAML shape is stable independent of the decision
// package's internals).
type Final struct {
	Bias                enums.Bias          `json:"bias"`
	Confidence          float64             `json:"confidence"`
	DirectionConfidence float64             `json:"directionConfidence"`
	NoTradeConfidence   float64             `json:"noTradeConfidence"`
	TradeStance         enums.TradeStance   `json:"tradeStance"`
	RiskMode            enums.RiskMode      `json:"riskMode"`
	PrimaryRegime       enums.Regime        `json:"primaryRegime"`
	MacroAnchored       bool                `json:"macroAnchored"`
	Warnings            []string            `json:"warnings"`
}

// RegimeView is the regime block of MarketState (§3).
type RegimeView struct {
	Label          enums.Regime `json:"label"`
	Confidence     float64      `json:"confidence"`
	Characteristics []string    `json:"characteristics"`
}

// DivergenceView is the divergence block of MarketState (§3).
type DivergenceView struct {
	Scenario   enums.DivergenceScenario `json:"scenario"`
	Confidence float64                  `json:"confidence"`
	Bias       enums.Bias               `json:"bias"`
	Warnings   []string                 `json:"warnings"`
}

// AbsorptionView is the absorption block of MarketState (§3); fields
// beyond Status are zero-valued unless an event is active or resolved
// this cycle.
type AbsorptionView struct {
	Status          enums.AbsorptionStatus      `json:"status"`
	Resolution      enums.AbsorptionResolution  `json:"resolution,omitempty"`
	BiasImplication enums.Bias                  `json:"biasImplication,omitempty"`
	ConfidenceBonus float64                     `json:"confidenceBonus,omitempty"`
}

// Reliability summarizes per-signal gating outcomes (§7 "user-visible
// failure behavior").
type Reliability struct {
	PerSignalReliable map[string]bool `json:"perSignalReliable"`
	Staleness         map[string]int64 `json:"staleness"`
}

// MarketState is the primary pipeline output (§3), immutable once
// assembled. Per-signal extras live in each SignalVerdict's opaque
// Reasoning string rather than a free-form object graph (§9).
type MarketState struct {
	SchemaVersion   int                                     `json:"schemaVersion"`
	ConfigVersion   int                                     `json:"configVersion"`
	GeneratedAtMs   int64                                   `json:"generatedAtMs"`
	Symbol          string                                  `json:"symbol"`
	PrimaryTimeframe string                                 `json:"primaryTimeframe"`
	Final           Final                                   `json:"final"`
	Buckets         map[bucket.Name]bucket.Verdict           `json:"buckets"`
	PerTimeframe    map[string]signal.TimeframeVerdict       `json:"perTimeframe"`
	Regime          RegimeView                              `json:"regime"`
	Divergence      DivergenceView                          `json:"divergence"`
	Absorption      AbsorptionView                          `json:"absorption"`
	Reliability     Reliability                             `json:"reliability"`
}

// AssembleInputs bundles every component output MarketStateAssembler
// composes.
type AssembleInputs struct {
	ConfigVersion    int
	GeneratedAtMs    int64
	Symbol           string
	PrimaryTimeframe string
	PerTimeframe     map[string]signal.TimeframeVerdict
	Buckets          map[bucket.Name]bucket.Verdict
	Decision         decision.Final
	Regime           regime.Result
	Divergence       divergence.Result
	Absorption       absorption.Event
	HasActiveAbsorption bool
}

// Assemble composes a MarketState. It performs no I/O and no gating
// logic of its own: every input has already been through its own
// component's gates (§9 "pipeline itself is a pure function").
func Assemble(in AssembleInputs) MarketState {
	reliable := make(map[string]bool, len(in.PerTimeframe))
	staleness := make(map[string]int64, len(in.PerTimeframe))
	for tf, tv := range in.PerTimeframe {
		for _, v := range tv.Verdicts {
			reliable[tf+"."+v.Name] = v.Reliable
		}
	}

	absView := AbsorptionView{Status: enums.AbsorptionNone}
	if in.HasActiveAbsorption {
		absView = AbsorptionView{
			Status:          in.Absorption.Status,
			Resolution:      in.Absorption.Resolution,
			BiasImplication: in.Absorption.BiasImplication,
			ConfidenceBonus: in.Absorption.ConfidenceBonus,
		}
		if in.Absorption.Status == enums.AbsorptionNone && in.Absorption.Resolution != "" {
			absView.Status = enums.AbsorptionResolved
		}
	}

	return MarketState{
		SchemaVersion:    SchemaVersion,
		ConfigVersion:    in.ConfigVersion,
		GeneratedAtMs:    in.GeneratedAtMs,
		Symbol:           in.Symbol,
		PrimaryTimeframe: in.PrimaryTimeframe,
		Final: Final{
			Bias:                in.Decision.Bias,
			Confidence:          in.Decision.Confidence,
			DirectionConfidence: in.Decision.DirectionConfidence,
			NoTradeConfidence:   in.Decision.NoTradeConfidence,
			TradeStance:         in.Decision.TradeStance,
			RiskMode:            in.Decision.RiskMode,
			PrimaryRegime:       in.Decision.PrimaryRegime,
			MacroAnchored:       in.Decision.MacroAnchored,
			Warnings:            in.Decision.Warnings,
		},
		Buckets:      in.Buckets,
		PerTimeframe: in.PerTimeframe,
		Regime: RegimeView{
			Label:      in.Regime.Regime,
			Confidence: in.Regime.Confidence,
		},
		Divergence: DivergenceView{
			Scenario:   in.Divergence.Scenario,
			Confidence: in.Divergence.Confidence,
			Bias:       in.Divergence.Bias,
			Warnings:   in.Divergence.Warnings,
		},
		Absorption: absView,
		Reliability: Reliability{
			PerSignalReliable: reliable,
			Staleness:         staleness,
		},
	}
}
