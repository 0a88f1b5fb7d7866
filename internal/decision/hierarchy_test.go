package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/perpintel/engine/internal/bucket"
	"github.com/perpintel/engine/internal/config"
	"github.com/perpintel/engine/internal/enums"
)

func TestDecide_MacroVetoesUnconfirmedMicro(t *testing.T) {
	cfg := config.Default()
	in := Inputs{
		Regime: enums.RegimeHealthyBull,
		Cfg:    cfg,
		Buckets: map[bucket.Name]bucket.Verdict{
			bucket.Macro:    {Bias: enums.Wait, LongScore: 3, ShortScore: 3},
			bucket.Micro:    {Bias: enums.Long, Confidence: 7, LongScore: 7},
			bucket.Scalping: {Bias: enums.Long, Confidence: 7, LongScore: 7},
		},
	}
	f := Decide(in)
	assert.Equal(t, enums.Wait, f.Bias)
}

func TestDecide_AllAlignedGetsBonusAndAggressiveRisk(t *testing.T) {
	cfg := config.Default()
	in := Inputs{
		Regime: enums.RegimeHealthyBull,
		Cfg:    cfg,
		Buckets: map[bucket.Name]bucket.Verdict{
			bucket.Macro:    {Bias: enums.Long, Confidence: 9, LongScore: 9},
			bucket.Micro:    {Bias: enums.Long, Confidence: 9, LongScore: 9},
			bucket.Scalping: {Bias: enums.Long, Confidence: 9, LongScore: 9},
		},
	}
	f := Decide(in)
	assert.Equal(t, enums.Long, f.Bias)
	assert.Equal(t, enums.LookForLongs, f.TradeStance)
	assert.Equal(t, enums.RiskAggressive, f.RiskMode)
}

func TestDecide_ChopClampsConfidenceAndStance(t *testing.T) {
	cfg := config.Default()
	in := Inputs{
		Regime: enums.RegimeChop,
		Cfg:    cfg,
		Buckets: map[bucket.Name]bucket.Verdict{
			bucket.Macro:    {Bias: enums.Long, Confidence: 9, LongScore: 9},
			bucket.Micro:    {Bias: enums.Long, Confidence: 9, LongScore: 9},
			bucket.Scalping: {Bias: enums.Long, Confidence: 9, LongScore: 9},
		},
	}
	f := Decide(in)
	assert.Equal(t, enums.AvoidTrading, f.TradeStance)
	assert.LessOrEqual(t, f.Confidence, 4.0)
}

func TestDecide_SetupVetoForcesWait(t *testing.T) {
	cfg := config.Default()
	in := Inputs{
		Regime: enums.RegimeHealthyBull,
		Cfg:    cfg,
		Buckets: map[bucket.Name]bucket.Verdict{
			bucket.Macro:    {Bias: enums.Long, Confidence: 9, LongScore: 9},
			bucket.Micro:    {Bias: enums.Short, Confidence: 9, ShortScore: 9},
			bucket.Scalping: {Bias: enums.Wait},
		},
	}
	f := Decide(in)
	assert.Equal(t, enums.Wait, f.Bias)
}
