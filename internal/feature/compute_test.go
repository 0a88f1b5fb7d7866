package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/perpintel/engine/internal/candle"
)

func buildTrendingCandles(n int, start, step float64) []candle.Candle {
	out := make([]candle.Candle, n)
	price := start
	ts := int64(0)
	for i := 0; i < n; i++ {
		out[i] = candle.Candle{
			Timestamp: ts,
			Open:      price,
			High:      price + 1,
			Low:       price - 1,
			Close:     price,
			Volume:    100,
		}
		price += step
		ts += 3600000
	}
	return out
}

func TestComputeTrend_UpDetected(t *testing.T) {
	candles := buildTrendingCandles(60, 100, 2)
	trend := computeTrend(candles)
	assert.Equal(t, TrendUp, trend.Direction)
	assert.Greater(t, trend.EMA20, 0.0)
}

func TestComputeCVD_GateInputs(t *testing.T) {
	taker := make([]candle.TakerVolumePoint, 48)
	for i := range taker {
		taker[i] = candle.TakerVolumePoint{Timestamp: int64(i), BuyUSD: 60, SellUSD: 40}
	}
	cvd := computeCVD(taker, 1800000)
	assert.Equal(t, 48, cvd.ActualCandles)
	assert.InDelta(t, 0.2, cvd.Series[len(cvd.Series)-1], 1e-9)
}

func TestComputeVolumeProfile_POCWithinRange(t *testing.T) {
	candles := buildTrendingCandles(30, 50, 0.5)
	vp := computeVolumeProfile(candles)
	assert.GreaterOrEqual(t, vp.POC, 0.0)
	assert.GreaterOrEqual(t, vp.VAH, vp.VAL)
}

func TestComputeFunding_ExtremeClassification(t *testing.T) {
	fr := []candle.FundingPoint{
		{Timestamp: 0, Rate: 0.0001},
		{Timestamp: 1, Rate: 0.0001},
		{Timestamp: 2, Rate: 0.0001},
		{Timestamp: 3, Rate: 0.0001},
		{Timestamp: 4, Rate: 0.0001},
		{Timestamp: 5, Rate: 0.0001},
		{Timestamp: 6, Rate: 0.0001},
		{Timestamp: 7, Rate: 0.0001},
		{Timestamp: 8, Rate: 0.0050}, // spike: z = sqrt(8) ~ 2.83 against the population stddev
	}
	f := computeFunding(fr, 2.0)
	assert.Equal(t, FundingExtreme, f.Extremity)
}

func TestComputeStructure_DetectsBreakOfStructure(t *testing.T) {
	candles := buildTrendingCandles(20, 100, 1)
	candles[10].High = 130 // local peak: the prior swing high
	// Force a sharp breakout beyond prior swing high.
	candles = append(candles, candle.Candle{Timestamp: 999999, Open: 200, High: 205, Low: 199, Close: 204, Volume: 50})
	s := computeStructure(candles)
	assert.True(t, s.BrokeOfStructure)
	assert.Equal(t, "up", s.BoSDirection)
}
