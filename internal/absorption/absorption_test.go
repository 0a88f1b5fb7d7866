package absorption

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perpintel/engine/internal/enums"
)

func TestDetect_BuyingAbsorptionAtResistance(t *testing.T) {
	in := DetectInputs{
		Symbol: "BTCUSDT", Timeframe: "1h", TimestampMs: 1000,
		CVDSlopeNorm: 0.2, CVDNoiseFloor: 0.05,
		PriceChangePct: -0.001,
		CurrentPrice:   87000,
		SwingHigh:      87100,
		SwingLow:       85000,
		NoisePct:       0.002,
	}
	ev, ok := Detect(in)
	require.True(t, ok)
	assert.Equal(t, "buying", ev.CVDDirection)
	assert.Equal(t, "resistance", ev.Location)
	assert.Equal(t, enums.AbsorptionDetecting, ev.Status)
}

func TestDetect_NoDetectionWhenNotNearLevel(t *testing.T) {
	in := DetectInputs{
		CVDSlopeNorm: 0.2, CVDNoiseFloor: 0.05,
		PriceChangePct: -0.001,
		CurrentPrice:   80000,
		SwingHigh:      87100,
		SwingLow:       75000,
		NoisePct:       0.002,
	}
	_, ok := Detect(in)
	assert.False(t, ok)
}

func TestResolve_TrapScenario(t *testing.T) {
	ev := Event{Symbol: "BTCUSDT", Timeframe: "1h", CVDDirection: "buying", Location: "resistance", DetectionPrice: 87000}
	in := ResolveInputs{
		Event:                  ev,
		CandlesSinceDetection:  4,
		CurrentPrice:           86400,
		PriceMovedPctFromDetection: -0.69,
		SweptLevelAndRejected:  true,
		BrokeOppositeStructure: true,
		OIUnwindRatio:          1.3,
	}
	out := Resolve(in, 4)
	require.True(t, out.Changed)
	assert.Equal(t, enums.AbsorptionResolved, out.Event.Status)
	assert.Equal(t, enums.ResolutionTrap, out.Event.Resolution)
	assert.Equal(t, enums.Short, out.Event.BiasImplication)
	assert.Equal(t, 2.0, out.Event.ConfidenceBonus)
}

func TestResolve_ReducedBonusWhenPriceAlreadyMoved(t *testing.T) {
	ev := Event{Symbol: "BTCUSDT", Timeframe: "1h", CVDDirection: "buying", Location: "resistance"}
	in := ResolveInputs{
		Event: ev, CandlesSinceDetection: 4, PriceMovedPctFromDetection: 2.5,
		SweptLevelAndRejected: true, BrokeOppositeStructure: true,
	}
	out := Resolve(in, 4)
	assert.Equal(t, 1.0, out.Event.ConfidenceBonus)
}

func TestResolve_SkipsBeforeWindowElapsed(t *testing.T) {
	ev := Event{Timeframe: "1h"}
	out := Resolve(ResolveInputs{Event: ev, CandlesSinceDetection: 1}, 4)
	assert.False(t, out.Changed)
}

func TestMemoryStore_DuplicateOpenInsertIsNoOp(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	ev := Event{Symbol: "BTCUSDT", Timeframe: "1h", CVDDirection: "buying", Status: enums.AbsorptionDetecting}
	require.NoError(t, m.Insert(ctx, ev))
	require.NoError(t, m.Insert(ctx, ev))

	unresolved, err := m.Unresolved(ctx)
	require.NoError(t, err)
	assert.Len(t, unresolved, 1)
}
