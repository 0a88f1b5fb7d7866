package regime

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/perpintel/engine/internal/enums"
	"github.com/perpintel/engine/internal/feature"
)

func TestClassify_Distribution(t *testing.T) {
	in := Inputs{
		TrendDirection: feature.TrendUp,
		OIDivergence:   feature.OIBearishDivergence,
		FundingZScore:  2.5,
		CVDSlope:       -0.1,
	}
	r := Classify(in)
	assert.Equal(t, enums.RegimeDistribution, r.Regime)
}

func TestClassify_LongTrapNotDistribution(t *testing.T) {
	in := Inputs{
		TrendDirection: feature.TrendUp,
		OIDivergence:   feature.OIBearishDivergence,
		FundingZScore:  0.2,
		CVDSlope:       -0.1,
	}
	r := Classify(in)
	assert.Equal(t, enums.RegimeLongTrap, r.Regime)
}

func TestClassify_ChopWhenNothingMatches(t *testing.T) {
	in := Inputs{
		TrendDirection:   feature.TrendSideways,
		OIDivergence:     feature.OIAligned,
		BrokeOfStructure: false,
		CVDStrong:        false,
	}
	r := Classify(in)
	assert.Equal(t, enums.RegimeChop, r.Regime)
}

func TestClassify_HealthyBull(t *testing.T) {
	in := Inputs{
		TrendDirection: feature.TrendUp,
		OIDivergence:   feature.OIAligned,
		CVDSlope:       0.1,
	}
	r := Classify(in)
	assert.Equal(t, enums.RegimeHealthyBull, r.Regime)
}
