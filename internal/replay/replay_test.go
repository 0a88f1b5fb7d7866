package replay

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perpintel/engine/internal/candle"
	"github.com/perpintel/engine/internal/enums"
	"github.com/perpintel/engine/internal/outcome"
	"github.com/perpintel/engine/internal/state"
	"github.com/perpintel/engine/internal/xerr"
)

func TestGenerateTimestamps_AlignsAndCapsAt200(t *testing.T) {
	req := Request{
		Symbol:    "BTCUSDT",
		StartTime: 90,
		EndTime:   1_000_000_000,
		StepSize:  candle.TF1h,
	}
	ts, err := GenerateTimestamps(req)
	require.NoError(t, err)
	assert.Len(t, ts, maxSamplesCap)
	for i := 1; i < len(ts); i++ {
		assert.Greater(t, ts[i], ts[i-1])
	}
}

func TestGenerateTimestamps_RejectsInvertedRange(t *testing.T) {
	_, err := GenerateTimestamps(Request{StartTime: 100, EndTime: 50, StepSize: candle.TF1h})
	assert.Error(t, err)
}

func TestRunBatch_CompletesAndSavesEachSample(t *testing.T) {
	req := Request{Symbol: "BTCUSDT", StartTime: 0, EndTime: int64(3) * 60 * 60 * 1000, StepSize: candle.TF1h}
	b, err := NewBatch("batch-1", req, 1)
	require.NoError(t, err)

	store := NewMemory()
	calls := 0
	orch := NewOrchestrator(func(ctx context.Context, asOfMs int64) (state.MarketState, error) {
		calls++
		return state.MarketState{Symbol: req.Symbol, GeneratedAtMs: asOfMs}, nil
	}, store)

	require.NoError(t, orch.RunBatch(context.Background(), b))
	assert.Equal(t, enums.BatchCompleted, b.Status)
	assert.Equal(t, len(b.Timestamps), calls)
	assert.Len(t, store.All("batch-1"), len(b.Timestamps))
}

func TestRunBatch_PauseStopsBetweenSamples(t *testing.T) {
	req := Request{Symbol: "ETHUSDT", StartTime: 0, EndTime: int64(5) * 60 * 60 * 1000, StepSize: candle.TF1h}
	b, err := NewBatch("batch-2", req, 1)
	require.NoError(t, err)

	store := NewMemory()
	seen := 0
	orch := NewOrchestrator(func(ctx context.Context, asOfMs int64) (state.MarketState, error) {
		seen++
		if seen == 2 {
			b.Pause()
		}
		return state.MarketState{Symbol: req.Symbol}, nil
	}, store)

	require.NoError(t, orch.RunBatch(context.Background(), b))
	assert.Equal(t, enums.BatchPaused, b.Status)
	assert.Less(t, b.NextIndex, len(b.Timestamps))

	b.Resume()
	require.NoError(t, orch.RunBatch(context.Background(), b))
	assert.Equal(t, enums.BatchCompleted, b.Status)
}

func TestRunBatch_AbortsAfterFiveConsecutiveFatalFailures(t *testing.T) {
	req := Request{Symbol: "BTCUSDT", StartTime: 0, EndTime: int64(10) * 60 * 60 * 1000, StepSize: candle.TF1h}
	b, err := NewBatch("batch-3", req, 1)
	require.NoError(t, err)

	store := NewMemory()
	orch := NewOrchestrator(func(ctx context.Context, asOfMs int64) (state.MarketState, error) {
		return state.MarketState{}, xerr.New(xerr.Fatal, "boom")
	}, store)

	require.NoError(t, orch.RunBatch(context.Background(), b))
	assert.Equal(t, enums.BatchFailed, b.Status)
	assert.Equal(t, fatalStreakLimit, b.ConsecutiveFatal)
	assert.Len(t, b.Failures, fatalStreakLimit)
}

func TestRunBatch_InsufficientDataDoesNotAbortAndResetsStreak(t *testing.T) {
	req := Request{Symbol: "BTCUSDT", StartTime: 0, EndTime: int64(3) * 60 * 60 * 1000, StepSize: candle.TF1h}
	b, err := NewBatch("batch-4", req, 1)
	require.NoError(t, err)

	store := NewMemory()
	orch := NewOrchestrator(func(ctx context.Context, asOfMs int64) (state.MarketState, error) {
		return state.MarketState{}, xerr.New(xerr.InsufficientData, "no candles yet")
	}, store)

	require.NoError(t, orch.RunBatch(context.Background(), b))
	assert.Equal(t, enums.BatchCompleted, b.Status)
	assert.Equal(t, 0, b.ConsecutiveFatal)
	assert.Len(t, b.Failures, len(b.Timestamps))
}

func TestRunBatch_SkipsAlreadyPersistedSamples(t *testing.T) {
	req := Request{Symbol: "BTCUSDT", StartTime: 0, EndTime: int64(2) * 60 * 60 * 1000, StepSize: candle.TF1h}
	b, err := NewBatch("batch-5", req, 1)
	require.NoError(t, err)

	store := NewMemory()
	require.NoError(t, store.Save(context.Background(), Record{BatchID: b.ID, AsOfMs: b.Timestamps[0], Symbol: req.Symbol, ConfigVersion: 1}))

	calls := 0
	orch := NewOrchestrator(func(ctx context.Context, asOfMs int64) (state.MarketState, error) {
		calls++
		return state.MarketState{Symbol: req.Symbol}, nil
	}, store)

	require.NoError(t, orch.RunBatch(context.Background(), b))
	assert.Equal(t, len(b.Timestamps)-1, calls)
}

func TestRunBatch_PropagatesStoreErrors(t *testing.T) {
	req := Request{Symbol: "BTCUSDT", StartTime: 0, EndTime: int64(1) * 60 * 60 * 1000, StepSize: candle.TF1h}
	b, err := NewBatch("batch-6", req, 1)
	require.NoError(t, err)

	orch := NewOrchestrator(func(ctx context.Context, asOfMs int64) (state.MarketState, error) {
		return state.MarketState{}, nil
	}, brokenStore{})

	err = orch.RunBatch(context.Background(), b)
	assert.Error(t, err)
}

type brokenStore struct{}

func (brokenStore) Exists(context.Context, string, int64, int) (bool, error) { return false, nil }
func (brokenStore) Save(context.Context, Record) error                       { return errors.New("disk full") }

func TestBuildScoreboard_ComputesDecileAndRegimeWinRates(t *testing.T) {
	samples := []LabeledSample{
		{
			State:   state.MarketState{Final: state.Final{Confidence: 8.5, PrimaryRegime: enums.RegimeHealthyBull}},
			Outcome: outcome.Result{Label: enums.OutcomeContinuation},
		},
		{
			State:   state.MarketState{Final: state.Final{Confidence: 8.1, PrimaryRegime: enums.RegimeHealthyBull}},
			Outcome: outcome.Result{Label: enums.OutcomeReversal},
		},
		{
			State:   state.MarketState{Final: state.Final{Confidence: 2.0, PrimaryRegime: enums.RegimeChop}},
			Outcome: outcome.Result{Label: enums.OutcomePending},
		},
	}

	sb := BuildScoreboard(samples)
	assert.Equal(t, 2, sb.TotalSamples)
	assert.Equal(t, 2, sb.Deciles[8].Count)
	assert.Equal(t, 1, sb.Deciles[8].Hits)
	assert.InDelta(t, 0.5, sb.Deciles[8].WinRate(), 0.0001)

	bull := sb.ByRegime[enums.RegimeHealthyBull]
	require.NotNil(t, bull)
	assert.Equal(t, 2, bull.Count)
	assert.Equal(t, 1, bull.Hits)
}
