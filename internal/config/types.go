// Package config implements the immutable, versioned Config contract
// (§6.3) behind ConfigStore's optimistic-concurrency writes and
// bounded-delta validation (§5, §8 invariant 5 & round-trip law 7).
package config

import "time"

// Thresholds holds the per-timeframe numeric thresholds of §6.3.
type Thresholds struct {
	NoisePct        float64 `yaml:"noisePct"`
	StrongPct       float64 `yaml:"strongPct"`
	OIQuietPct      float64 `yaml:"oiQuietPct"`
	OIAggressivePct float64 `yaml:"oiAggressivePct"`
	CVD             CVDThresholds `yaml:"cvd"`
}

// CVDThresholds is the nested cvd.* block of §6.3.
type CVDThresholds struct {
	WindowCandles   int     `yaml:"windowCandles"`
	MinReliablePct  float64 `yaml:"minReliablePct"`
	SlopeWindow     int     `yaml:"slopeWindow"`
}

// Gates holds the gate thresholds of §6.3.
type Gates struct {
	MacroPermission     float64 `yaml:"macroPermission"`
	MacroAnchor         float64 `yaml:"macroAnchor"`
	SetupVeto           float64 `yaml:"setupVeto"`
	StalenessMultiplier float64 `yaml:"stalenessMultiplier"`
	FundingZExtreme     float64 `yaml:"fundingZExtreme"`
}

// Penalties holds the penalty/bonus factors of §6.3.
type Penalties struct {
	ConflictRatio          float64 `yaml:"conflictRatio"`
	ConflictPenaltyFactor  float64 `yaml:"conflictPenaltyFactor"`
	AlignmentBonus         float64 `yaml:"alignmentBonus"`
	StalenessPenaltyFactor float64 `yaml:"stalenessPenaltyFactor"`
}

// Bounds.MaxDelta caps how much a proposed config write may move each
// parameter group relative to the active version (§6.3, §5).
type Bounds struct {
	MaxDelta MaxDelta `yaml:"maxDelta"`
}

type MaxDelta struct {
	Weights    float64 `yaml:"weights"`
	Thresholds float64 `yaml:"thresholds"`
	Gates      float64 `yaml:"gates"`
	Penalties  float64 `yaml:"penalties"`
}

// Weights holds the data-driven signal weight map (§9 open question 3:
// the signal list and count are never hard-coded) plus the optional
// per-timeframe weighting BucketAggregator uses to combine constituent
// timeframes within a bucket (§4.4: "weighted by config's per-timeframe
// weight"). When none of a bucket's member timeframes has a positive
// weight the members split equally; otherwise a member absent from the
// map gets weight 0.
type Weights struct {
	Signals    map[string]float64 `yaml:"signals"`
	Timeframes map[string]float64 `yaml:"timeframes,omitempty"`
}

// Divergence holds the exchange-divergence activation thresholds (§4.6).
type Divergence struct {
	MinDelta    float64 `yaml:"minDelta"`
	UnclearBelow float64 `yaml:"unclearBelow"`
	RetailLeaning string `yaml:"retailLeaning"`
	WhaleLeaning  string `yaml:"whaleLeaning"`
}

// Outcome holds the OutcomeLabeler thresholds (§4.9).
type Outcome struct {
	MovePct float64 `yaml:"movePct"`
}

// Config is the full versioned, immutable parameter set (§3, §6.3).
type Config struct {
	Version    int                            `yaml:"version" json:"version"`
	Weights    Weights                        `yaml:"weights" json:"weights"`
	Thresholds map[string]Thresholds          `yaml:"thresholds" json:"thresholds"`
	Gates      Gates                          `yaml:"gates" json:"gates"`
	Penalties  Penalties                      `yaml:"penalties" json:"penalties"`
	Bounds     Bounds                         `yaml:"bounds" json:"bounds"`
	Divergence Divergence                     `yaml:"divergence" json:"divergence"`
	Outcome    Outcome                        `yaml:"outcome" json:"outcome"`
	CreatedAt  time.Time                      `yaml:"createdAt" json:"createdAt"`
	CreatedBy  string                         `yaml:"createdBy" json:"createdBy"`
	Notes      string                         `yaml:"notes" json:"notes"`
}

// RequiredSignals are the seven signals §4.3 names as required; the
// weight map may also carry optional extras (e.g. volume_profile).
var RequiredSignals = []string{
	"exchange_divergence", "market_regime", "structure",
	"technical", "cvd", "vwap", "funding",
}

// Clone returns a deep-enough copy for safe mutation by callers
// (ConfigStore readers must never observe mid-run mutation, §3).
func (c Config) Clone() Config {
	clone := c
	clone.Weights.Signals = map[string]float64{}
	for k, v := range c.Weights.Signals {
		clone.Weights.Signals[k] = v
	}
	if c.Weights.Timeframes != nil {
		clone.Weights.Timeframes = map[string]float64{}
		for k, v := range c.Weights.Timeframes {
			clone.Weights.Timeframes[k] = v
		}
	}
	clone.Thresholds = map[string]Thresholds{}
	for k, v := range c.Thresholds {
		clone.Thresholds[k] = v
	}
	return clone
}

// Default returns a structurally valid starting configuration with the
// defaults named throughout §4 and §6.3.
func Default() Config {
	signals := map[string]float64{
		"exchange_divergence": 0.15,
		"market_regime":       0.15,
		"structure":           0.15,
		"technical":           0.20,
		"cvd":                 0.15,
		"vwap":                0.10,
		"funding":              0.10,
	}
	thresholds := map[string]Thresholds{}
	for _, tf := range []string{"30m", "1h", "4h", "1d"} {
		thresholds[tf] = Thresholds{
			NoisePct:        0.1,
			StrongPct:       0.5,
			OIQuietPct:      1.0,
			OIAggressivePct: 3.0,
			CVD: CVDThresholds{
				WindowCandles:  50,
				MinReliablePct: 0.8,
				SlopeWindow:    10,
			},
		}
	}
	return Config{
		Version: 1,
		Weights: Weights{Signals: signals},
		Thresholds: thresholds,
		Gates: Gates{
			MacroPermission:     6,
			MacroAnchor:         6,
			SetupVeto:           6,
			StalenessMultiplier: 2,
			FundingZExtreme:     2,
		},
		Penalties: Penalties{
			ConflictRatio:          0.7,
			ConflictPenaltyFactor:  0.5,
			AlignmentBonus:         1,
			StalenessPenaltyFactor: 0.2,
		},
		Bounds: Bounds{MaxDelta: MaxDelta{Weights: 0.25, Thresholds: 0.15, Gates: 0.10, Penalties: 0.15}},
		Divergence: Divergence{
			MinDelta:      1.0,
			UnclearBelow:  0.5,
			RetailLeaning: "binance",
			WhaleLeaning:  "bybit",
		},
		Outcome:   Outcome{MovePct: 0.5},
		CreatedAt: time.Time{},
		CreatedBy: "system",
		Notes:     "default configuration",
	}
}
