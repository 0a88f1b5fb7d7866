package timeframe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perpintel/engine/internal/candle"
)

func TestAlignEndToLastClosed_ExactBoundary(t *testing.T) {
	// S5 / boundary behavior 9: 4h interval, as-of exactly on a boundary.
	asOf := time.Date(2025, 12, 15, 12, 0, 0, 0, time.UTC).UnixMilli()
	got, err := AlignEndToLastClosed(candle.TF4h, asOf)
	require.NoError(t, err)
	assert.Equal(t, asOf, got)
}

func TestAlignEndToLastClosed_MidInterval(t *testing.T) {
	asOf := time.Date(2025, 12, 15, 14, 47, 0, 0, time.UTC).UnixMilli()
	want := time.Date(2025, 12, 15, 12, 0, 0, 0, time.UTC).UnixMilli()
	got, err := AlignEndToLastClosed(candle.TF4h, asOf)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestIntervalMs_UnknownInterval(t *testing.T) {
	_, err := IntervalMs("15m")
	require.Error(t, err)
}

func TestValidateSeries_RejectsLookahead(t *testing.T) {
	ms, _ := IntervalMs(candle.TF4h)
	end := time.Date(2025, 12, 15, 12, 0, 0, 0, time.UTC).UnixMilli()
	candles := []candle.Candle{
		{Timestamp: end - ms}, // closes exactly at end: allowed
		{Timestamp: end},      // would close at end+ms: lookahead
	}
	_, err := ValidateSeries(candles, candle.TF4h, end)
	require.Error(t, err)
}

func TestValidateSeries_DetectsGapAsPartial(t *testing.T) {
	ms, _ := IntervalMs(candle.TF1h)
	end := time.Now().UnixMilli()
	base := end - 10*ms
	candles := []candle.Candle{
		{Timestamp: base},
		{Timestamp: base + ms},
		{Timestamp: base + 3*ms}, // gap
	}
	partial, err := ValidateSeries(candles, candle.TF1h, end)
	require.NoError(t, err)
	assert.True(t, partial)
}

func TestRequireMinimum_InsufficientData(t *testing.T) {
	end := time.Now().UnixMilli()
	err := RequireMinimum(nil, candle.TF1h, end)
	require.Error(t, err)
}
