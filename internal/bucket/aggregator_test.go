package bucket

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/perpintel/engine/internal/config"
	"github.com/perpintel/engine/internal/enums"
	"github.com/perpintel/engine/internal/signal"
)

func TestAggregate_MacroMembershipIs4hAnd1d(t *testing.T) {
	assert.Equal(t, []string{"4h", "1d"}, Membership[Macro])
	assert.Equal(t, []string{"1h", "4h"}, Membership[Micro])
	assert.Equal(t, []string{"30m", "1h"}, Membership[Scalping])
}

func TestAggregate_DirectionalWhenDominant(t *testing.T) {
	cfg := config.Default()
	byTF := map[string]signal.TimeframeVerdict{
		"4h": {Bias: enums.Long, Confidence: 8},
		"1d": {Bias: enums.Long, Confidence: 7},
	}
	v := Aggregate(Macro, byTF, cfg)
	assert.Equal(t, enums.Long, v.Bias)
	assert.ElementsMatch(t, []string{"4h", "1d"}, v.ContributingTimeframes)
}

func TestAggregate_ConflictWithinRatioProducesWait(t *testing.T) {
	cfg := config.Default()
	cfg.Penalties.ConflictRatio = 0.7
	byTF := map[string]signal.TimeframeVerdict{
		"4h": {Bias: enums.Long, Confidence: 6},
		"1d": {Bias: enums.Short, Confidence: 5.5},
	}
	v := Aggregate(Macro, byTF, cfg)
	assert.Equal(t, enums.Wait, v.Bias)
}

func TestAggregate_MissingMemberSkipped(t *testing.T) {
	cfg := config.Default()
	byTF := map[string]signal.TimeframeVerdict{
		"4h": {Bias: enums.Short, Confidence: 5},
	}
	v := Aggregate(Macro, byTF, cfg)
	assert.Equal(t, []string{"4h"}, v.ContributingTimeframes)
	assert.Equal(t, enums.Short, v.Bias)
}
