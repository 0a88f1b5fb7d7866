package main

import (
	"context"
	"time"

	"github.com/perpintel/engine/internal/absorption"
	"github.com/perpintel/engine/internal/cache"
	"github.com/perpintel/engine/internal/candle"
	"github.com/perpintel/engine/internal/config"
	"github.com/perpintel/engine/internal/metrics"
	"github.com/perpintel/engine/internal/pipeline"
	"github.com/perpintel/engine/internal/provider"
	"github.com/perpintel/engine/internal/state"
)

// runnerDeps bundles the stores every pipeline.Run invocation shares
// across CLI and server entrypoints alike, so both build their
// PipelineRunner closure the same way.
type runnerDeps struct {
	Provider        provider.DataProvider
	ConfigStore     *config.Store
	AbsorptionStore absorption.Store
	Metrics         *metrics.Registry
}

func newDemoProvider(symbol string, bars int, nowMs int64) *provider.Memory {
	mem := provider.NewMemory()
	provider.SeedDemo(mem, symbol, bars, nowMs)
	return mem
}

// buildRunner closes over runnerDeps and returns the function shape
// httpapi.PipelineRunner and the replay/CLI callers both need:
// (ctx, symbol, timeframe, asOfMs) -> MarketState.
func (d runnerDeps) buildRunner() func(ctx context.Context, symbol string, tf candle.Timeframe, asOfMs int64) (state.MarketState, error) {
	return func(ctx context.Context, symbol string, tf candle.Timeframe, asOfMs int64) (state.MarketState, error) {
		cfg := d.ConfigStore.Active()
		now := asOfMs
		if now == 0 {
			now = time.Now().UTC().UnixMilli()
		}

		var timer *metrics.CycleTimer
		if d.Metrics != nil {
			timer = d.Metrics.StartCycle(symbol)
		}
		ms, err := pipeline.Run(ctx, pipeline.Inputs{
			Symbol:            symbol,
			PrimaryTimeframe:  tf,
			PrimaryExchange:   candle.ExchangeBinance,
			SecondaryExchange: candle.ExchangeBybit,
			Provider:          d.Provider,
			Cfg:               cfg,
			AsOfMs:            now,
			NowMs:             now,
			AbsorptionStore:   d.AbsorptionStore,
		})
		if timer != nil {
			result := "ok"
			if err != nil {
				result = "error"
			}
			timer.Stop(result)
		}
		return ms, err
	}
}

func defaultDeps(symbol string, demoBars int, nowMs int64) (runnerDeps, error) {
	cfgStore, err := config.NewStore(config.Default())
	if err != nil {
		return runnerDeps{}, err
	}
	reg := metrics.NewRegistry()
	mem := newDemoProvider(symbol, demoBars, nowMs)
	cached := provider.NewCached(mem, cache.NewMemory(), reg, "memory")
	return runnerDeps{
		Provider:        cached,
		ConfigStore:     cfgStore,
		AbsorptionStore: absorption.NewMemory(),
		Metrics:         reg,
	}, nil
}
