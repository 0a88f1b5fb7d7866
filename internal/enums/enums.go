// Package enums defines the small sum types shared across every layer
// of the pipeline (bias, stance, risk mode, regime, scenario, status),
// kept in one leaf package so no two mid-layer packages need to import
// each other just to share a type (§9: "Nested dynamic object graphs"
// redesign note — fixed schema with sum types instead of a free-form
// object graph).
package enums

// Bias is the directional verdict a signal, bucket, or the final
// decision carries.
type Bias string

const (
	Long  Bias = "LONG"
	Short Bias = "SHORT"
	Wait  Bias = "WAIT"
)

// TradeStance is the bias-to-behavior mapping refined by regime (§4.4).
type TradeStance string

const (
	LookForLongs  TradeStance = "LOOK_FOR_LONGS"
	LookForShorts TradeStance = "LOOK_FOR_SHORTS"
	AvoidTrading  TradeStance = "AVOID_TRADING"
)

// RiskMode reflects how aggressively a trade stance should be sized.
type RiskMode string

const (
	RiskNormal     RiskMode = "NORMAL"
	RiskDefensive  RiskMode = "DEFENSIVE"
	RiskAggressive RiskMode = "AGGRESSIVE"
)

// Regime is the predictive market classification of §4.5.
type Regime string

const (
	RegimeDistribution   Regime = "distribution"
	RegimeAccumulation   Regime = "accumulation"
	RegimeLongTrap       Regime = "long_trap"
	RegimeShortTrap      Regime = "short_trap"
	RegimeHealthyBull    Regime = "healthy_bull"
	RegimeHealthyBear    Regime = "healthy_bear"
	RegimeShortCovering  Regime = "short_covering"
	RegimeChop           Regime = "chop"
	RegimeUnclear        Regime = "unclear"
)

// DivergenceScenario is one of the nine exchange-divergence outcomes
// of §4.6.
type DivergenceScenario string

const (
	ScenarioWhaleDistribution  DivergenceScenario = "whale_distribution"
	ScenarioWhaleAccumulation  DivergenceScenario = "whale_accumulation"
	ScenarioRetailFOMORally    DivergenceScenario = "retail_fomo_rally"
	ScenarioShortSqueezeSetup  DivergenceScenario = "short_squeeze_setup"
	ScenarioSynchronizedBull   DivergenceScenario = "synchronized_bullish"
	ScenarioSynchronizedBear   DivergenceScenario = "synchronized_bearish"
	ScenarioBinanceNoise       DivergenceScenario = "binance_noise"
	ScenarioBybitLeading       DivergenceScenario = "bybit_leading"
	ScenarioUnclear            DivergenceScenario = "unclear"
)

// AbsorptionStatus is the two-phase absorption state machine status.
type AbsorptionStatus string

const (
	AbsorptionNone      AbsorptionStatus = "NONE"
	AbsorptionDetecting AbsorptionStatus = "DETECTING"
	AbsorptionResolved  AbsorptionStatus = "RESOLVED"
)

// AbsorptionResolution is the terminal classification of a resolved
// or expired absorption event.
type AbsorptionResolution string

const (
	ResolutionTrap         AbsorptionResolution = "TRAP"
	ResolutionAccumulation AbsorptionResolution = "ACCUMULATION"
	ResolutionDistribution AbsorptionResolution = "DISTRIBUTION"
	ResolutionExpired      AbsorptionResolution = "EXPIRED"
	ResolutionInvalidated  AbsorptionResolution = "INVALIDATED"
)

// OutcomeLabel is the replay labeling outcome (§4.9).
type OutcomeLabel string

const (
	OutcomeContinuation OutcomeLabel = "CONTINUATION"
	OutcomeReversal     OutcomeLabel = "REVERSAL"
	OutcomeNoise        OutcomeLabel = "NOISE"
	OutcomePending       OutcomeLabel = "PENDING"
)

// BatchStatus is the replay batch lifecycle state (§4.8).
type BatchStatus string

const (
	BatchPending   BatchStatus = "PENDING"
	BatchRunning   BatchStatus = "RUNNING"
	BatchPaused    BatchStatus = "PAUSED"
	BatchCompleted BatchStatus = "COMPLETED"
	BatchFailed    BatchStatus = "FAILED"
)
