package outcome

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/perpintel/engine/internal/candle"
	"github.com/perpintel/engine/internal/enums"
)

func TestLabel_PendingWhenHorizonNotElapsed(t *testing.T) {
	r := Label(Inputs{Bias: enums.Long, HorizonElapsed: false})
	assert.Equal(t, enums.OutcomePending, r.Label)
}

func TestLabel_ContinuationForLongMovingUp(t *testing.T) {
	r := Label(Inputs{
		Bias: enums.Long, HorizonElapsed: true, ReferencePrice: 100,
		FuturePrices: []candle.Candle{{Close: 100.6}, {Close: 101}},
	})
	assert.Equal(t, enums.OutcomeContinuation, r.Label)
}

func TestLabel_ReversalForLongMovingDown(t *testing.T) {
	r := Label(Inputs{
		Bias: enums.Long, HorizonElapsed: true, ReferencePrice: 100,
		FuturePrices: []candle.Candle{{Close: 99}, {Close: 98.5}},
	})
	assert.Equal(t, enums.OutcomeReversal, r.Label)
}

func TestLabel_WaitNoiseMeansCorrectWait(t *testing.T) {
	r := Label(Inputs{
		Bias: enums.Wait, HorizonElapsed: true, ReferencePrice: 100,
		FuturePrices: []candle.Candle{{Close: 100.1}, {Close: 99.9}},
	})
	assert.Equal(t, enums.OutcomeContinuation, r.Label)
}

func TestLabel_WaitReversalOnSustainedMove(t *testing.T) {
	r := Label(Inputs{
		Bias: enums.Wait, HorizonElapsed: true, ReferencePrice: 100,
		FuturePrices: []candle.Candle{{Close: 102}},
	})
	assert.Equal(t, enums.OutcomeReversal, r.Label)
}

func TestLabel_Deterministic(t *testing.T) {
	in := Inputs{
		Bias: enums.Long, HorizonElapsed: true, ReferencePrice: 100,
		FuturePrices: []candle.Candle{{Close: 101}, {Close: 99}, {Close: 100.8}},
	}
	a := Label(in)
	b := Label(in)
	assert.Equal(t, a, b)
}
