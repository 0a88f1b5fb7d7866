package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/perpintel/engine/internal/config"
	"github.com/perpintel/engine/internal/enums"
	"github.com/perpintel/engine/internal/feature"
)

func baseContext() Context {
	cfg := config.Default()
	return Context{
		Timeframe:  "1h",
		Cfg:        cfg,
		IntervalMs: 3600000,
		Bundle: feature.Bundle{
			CVD: feature.CVD{ActualCandles: 30, ExpectedCandles: 48},
		},
	}
}

func TestCVDSignal_GatesUnreliableWhenInsufficientCandles(t *testing.T) {
	ctx := baseContext()
	v := cvdSignal(ctx.Cfg.Weights.Signals["cvd"], ctx)
	assert.False(t, v.Reliable)
	assert.Equal(t, 0.0, v.Weight)
}

func TestFundingSignal_NeutralBelowExtreme(t *testing.T) {
	ctx := baseContext()
	ctx.Bundle.Funding = feature.Funding{ZScore: 0.5}
	v := fundingSignal(ctx.Cfg.Weights.Signals["funding"], ctx)
	assert.Equal(t, enums.Wait, v.Bias)
}

func TestEffectiveWeights_RenormalizeAfterGating(t *testing.T) {
	verdicts := []Verdict{
		{Name: "a", Weight: 0.5},
		{Name: "b", Weight: 0.5},
		{Name: "c", Weight: 0}, // gated off
	}
	w := EffectiveWeights(verdicts)
	assert.InDelta(t, 1.0, w["a"]+w["b"]+w["c"], 1e-9)
	assert.Equal(t, 0.0, w["c"])
}

func TestCombine_ProducesWaitOnTie(t *testing.T) {
	verdicts := []Verdict{
		{Name: "a", Weight: 0.5, Bias: enums.Long, Confidence: 5},
		{Name: "b", Weight: 0.5, Bias: enums.Short, Confidence: 5},
	}
	tv := Combine("1h", verdicts)
	assert.Equal(t, enums.Wait, tv.Bias)
}
