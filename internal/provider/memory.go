package provider

import (
	"context"
	"sort"

	"github.com/perpintel/engine/internal/candle"
	"github.com/perpintel/engine/internal/timeframe"
)

// Memory is a deterministic, in-memory DataProvider backing both unit
// tests and ReplayOrchestrator's historical-candle store (§2: "live API
// client, historical-candle store" are the two named implementations).
type Memory struct {
	Candles map[candle.Exchange]map[string]map[candle.Timeframe][]candle.Candle
	OI      map[candle.Exchange]map[string]map[candle.Timeframe][]candle.OIPoint
	Funding map[candle.Exchange]map[string]map[candle.Timeframe][]candle.FundingPoint
	Taker   map[candle.Exchange]map[string]map[candle.Timeframe][]candle.TakerVolumePoint
}

// NewMemory creates an empty store; callers populate it with Put*.
func NewMemory() *Memory {
	return &Memory{
		Candles: map[candle.Exchange]map[string]map[candle.Timeframe][]candle.Candle{},
		OI:      map[candle.Exchange]map[string]map[candle.Timeframe][]candle.OIPoint{},
		Funding: map[candle.Exchange]map[string]map[candle.Timeframe][]candle.FundingPoint{},
		Taker:   map[candle.Exchange]map[string]map[candle.Timeframe][]candle.TakerVolumePoint{},
	}
}

func (m *Memory) PutCandles(ex candle.Exchange, symbol string, tf candle.Timeframe, cs []candle.Candle) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].Timestamp < cs[j].Timestamp })
	ensure3Candle(m.Candles, ex, symbol)[tf] = cs
}

func (m *Memory) PutOI(ex candle.Exchange, symbol string, tf candle.Timeframe, pts []candle.OIPoint) {
	sort.Slice(pts, func(i, j int) bool { return pts[i].Timestamp < pts[j].Timestamp })
	ensure3OI(m.OI, ex, symbol)[tf] = pts
}

func (m *Memory) PutFunding(ex candle.Exchange, symbol string, tf candle.Timeframe, pts []candle.FundingPoint) {
	sort.Slice(pts, func(i, j int) bool { return pts[i].Timestamp < pts[j].Timestamp })
	ensure3Funding(m.Funding, ex, symbol)[tf] = pts
}

func (m *Memory) PutTaker(ex candle.Exchange, symbol string, tf candle.Timeframe, pts []candle.TakerVolumePoint) {
	sort.Slice(pts, func(i, j int) bool { return pts[i].Timestamp < pts[j].Timestamp })
	ensure3Taker(m.Taker, ex, symbol)[tf] = pts
}

func (m *Memory) GetPriceHistory(_ context.Context, q Query) ([]candle.Candle, error) {
	out := filterCandles(m.Candles[q.Exchange][q.Symbol][q.Interval], q)
	return out, nil
}

func (m *Memory) GetOIHistory(_ context.Context, q Query) ([]candle.OIPoint, error) {
	src := m.OI[q.Exchange][q.Symbol][q.Interval]
	out := make([]candle.OIPoint, 0, len(src))
	for _, p := range src {
		if q.EndTime != nil && p.Timestamp > *q.EndTime {
			continue
		}
		if q.StartTime != nil && p.Timestamp < *q.StartTime {
			continue
		}
		out = append(out, p)
	}
	out = capOI(out, q.Limit)
	return out, nil
}

func (m *Memory) GetFundingHistory(_ context.Context, q Query) ([]candle.FundingPoint, error) {
	src := m.Funding[q.Exchange][q.Symbol][q.Interval]
	out := make([]candle.FundingPoint, 0, len(src))
	for _, p := range src {
		if q.EndTime != nil && p.Timestamp > *q.EndTime {
			continue
		}
		if q.StartTime != nil && p.Timestamp < *q.StartTime {
			continue
		}
		out = append(out, p)
	}
	out = capFunding(out, q.Limit)
	return out, nil
}

func (m *Memory) GetTakerBuySellVolume(_ context.Context, q Query) ([]candle.TakerVolumePoint, error) {
	src := m.Taker[q.Exchange][q.Symbol][q.Interval]
	out := make([]candle.TakerVolumePoint, 0, len(src))
	for _, p := range src {
		if q.EndTime != nil && p.Timestamp > *q.EndTime {
			continue
		}
		if q.StartTime != nil && p.Timestamp < *q.StartTime {
			continue
		}
		out = append(out, p)
	}
	out = capTaker(out, q.Limit)
	return out, nil
}

func filterCandles(src []candle.Candle, q Query) []candle.Candle {
	intervalMs, _ := timeframe.IntervalMs(q.Interval)
	out := make([]candle.Candle, 0, len(src))
	for _, c := range src {
		if q.EndTime != nil && c.Timestamp+intervalMs > *q.EndTime {
			continue
		}
		if q.StartTime != nil && c.Timestamp < *q.StartTime {
			continue
		}
		out = append(out, c)
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[len(out)-q.Limit:]
	}
	return out
}

func capOI(pts []candle.OIPoint, limit int) []candle.OIPoint {
	if limit > 0 && len(pts) > limit {
		return pts[len(pts)-limit:]
	}
	return pts
}

func capFunding(pts []candle.FundingPoint, limit int) []candle.FundingPoint {
	if limit > 0 && len(pts) > limit {
		return pts[len(pts)-limit:]
	}
	return pts
}

func capTaker(pts []candle.TakerVolumePoint, limit int) []candle.TakerVolumePoint {
	if limit > 0 && len(pts) > limit {
		return pts[len(pts)-limit:]
	}
	return pts
}

func ensure3Candle(m map[candle.Exchange]map[string]map[candle.Timeframe][]candle.Candle, ex candle.Exchange, symbol string) map[candle.Timeframe][]candle.Candle {
	if m[ex] == nil {
		m[ex] = map[string]map[candle.Timeframe][]candle.Candle{}
	}
	if m[ex][symbol] == nil {
		m[ex][symbol] = map[candle.Timeframe][]candle.Candle{}
	}
	return m[ex][symbol]
}

func ensure3OI(m map[candle.Exchange]map[string]map[candle.Timeframe][]candle.OIPoint, ex candle.Exchange, symbol string) map[candle.Timeframe][]candle.OIPoint {
	if m[ex] == nil {
		m[ex] = map[string]map[candle.Timeframe][]candle.OIPoint{}
	}
	if m[ex][symbol] == nil {
		m[ex][symbol] = map[candle.Timeframe][]candle.OIPoint{}
	}
	return m[ex][symbol]
}

func ensure3Funding(m map[candle.Exchange]map[string]map[candle.Timeframe][]candle.FundingPoint, ex candle.Exchange, symbol string) map[candle.Timeframe][]candle.FundingPoint {
	if m[ex] == nil {
		m[ex] = map[string]map[candle.Timeframe][]candle.FundingPoint{}
	}
	if m[ex][symbol] == nil {
		m[ex][symbol] = map[candle.Timeframe][]candle.FundingPoint{}
	}
	return m[ex][symbol]
}

func ensure3Taker(m map[candle.Exchange]map[string]map[candle.Timeframe][]candle.TakerVolumePoint, ex candle.Exchange, symbol string) map[candle.Timeframe][]candle.TakerVolumePoint {
	if m[ex] == nil {
		m[ex] = map[string]map[candle.Timeframe][]candle.TakerVolumePoint{}
	}
	if m[ex][symbol] == nil {
		m[ex][symbol] = map[candle.Timeframe][]candle.TakerVolumePoint{}
	}
	return m[ex][symbol]
}
