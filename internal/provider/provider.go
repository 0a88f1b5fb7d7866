// Package provider defines the DataProvider interface the core
// depends on (§6.1) and a rate-limited, circuit-broken implementation
// wrapper that any concrete venue client can be built behind.
package provider

import (
	"context"

	"github.com/perpintel/engine/internal/candle"
)

// Query bundles the parameters every DataProvider operation shares.
type Query struct {
	Exchange  candle.Exchange
	Symbol    string
	Interval  candle.Timeframe
	Limit     int
	StartTime *int64 // ms UTC, optional
	EndTime   *int64 // ms UTC, optional — series must not exceed this
}

// DataProvider is the external collaborator the pipeline fetches
// market data through. Implementations: a live API client, a
// historical-candle store used by ReplayOrchestrator, or a
// deterministic mock for tests.
type DataProvider interface {
	GetPriceHistory(ctx context.Context, q Query) ([]candle.Candle, error)
	GetOIHistory(ctx context.Context, q Query) ([]candle.OIPoint, error)
	GetFundingHistory(ctx context.Context, q Query) ([]candle.FundingPoint, error)
	GetTakerBuySellVolume(ctx context.Context, q Query) ([]candle.TakerVolumePoint, error)
}
