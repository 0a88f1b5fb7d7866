package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perpintel/engine/internal/absorption"
	"github.com/perpintel/engine/internal/candle"
	"github.com/perpintel/engine/internal/config"
	"github.com/perpintel/engine/internal/provider"
)

func seedMemory(mem *provider.Memory, ex candle.Exchange, symbol string) {
	for _, tf := range candle.AllTimeframes {
		var ms int64
		switch tf {
		case candle.TF30m:
			ms = 30 * 60 * 1000
		case candle.TF1h:
			ms = 60 * 60 * 1000
		case candle.TF4h:
			ms = 4 * 60 * 60 * 1000
		case candle.TF1d:
			ms = 24 * 60 * 60 * 1000
		}
		var candles []candle.Candle
		var oi []candle.OIPoint
		var funding []candle.FundingPoint
		var taker []candle.TakerVolumePoint
		price := 100.0
		for i := 0; i < 60; i++ {
			ts := int64(i) * ms
			price += 0.1
			candles = append(candles, candle.Candle{Timestamp: ts, Open: price, High: price + 1, Low: price - 1, Close: price, Volume: 1000})
			oi = append(oi, candle.OIPoint{Timestamp: ts, OpenInterestUSD: 1_000_000 + float64(i)*1000})
			funding = append(funding, candle.FundingPoint{Timestamp: ts, Rate: 0.0001})
			taker = append(taker, candle.TakerVolumePoint{Timestamp: ts, BuyUSD: 600, SellUSD: 400})
		}
		mem.PutCandles(ex, symbol, tf, candles)
		mem.PutOI(ex, symbol, tf, oi)
		mem.PutFunding(ex, symbol, tf, funding)
		mem.PutTaker(ex, symbol, tf, taker)
	}
}

func TestRun_ProducesMarketStateWithoutLookahead(t *testing.T) {
	mem := provider.NewMemory()
	seedMemory(mem, candle.ExchangeBinance, "BTCUSDT")
	seedMemory(mem, candle.ExchangeBybit, "BTCUSDT")

	cfg := config.Default()
	asOf := int64(59) * 24 * 60 * 60 * 1000

	ms, err := Run(context.Background(), Inputs{
		Symbol:           "BTCUSDT",
		PrimaryTimeframe: candle.TF1h,
		Provider:         mem,
		Cfg:              cfg,
		AsOfMs:           asOf,
		AbsorptionStore:  absorption.NewMemory(),
		NowMs:            asOf,
	})
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", ms.Symbol)
	assert.NotEmpty(t, ms.PerTimeframe)
	assert.Contains(t, []string{"LONG", "SHORT", "WAIT"}, string(ms.Final.Bias))
}

func TestRun_DeterministicForSameInputs(t *testing.T) {
	mem := provider.NewMemory()
	seedMemory(mem, candle.ExchangeBinance, "ETHUSDT")
	seedMemory(mem, candle.ExchangeBybit, "ETHUSDT")
	cfg := config.Default()
	asOf := int64(40) * 24 * 60 * 60 * 1000

	in := Inputs{Symbol: "ETHUSDT", PrimaryTimeframe: candle.TF1h, Provider: mem, Cfg: cfg, AsOfMs: asOf, NowMs: asOf}
	a, err := Run(context.Background(), in)
	require.NoError(t, err)
	b, err := Run(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, a.Final, b.Final)
}
