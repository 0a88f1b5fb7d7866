package provider

import (
	"context"
	"net/http"
	"time"

	cb "github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/perpintel/engine/internal/candle"
	"github.com/perpintel/engine/internal/xerr"
)

// GuardedConfig tunes the rate limiter and circuit breaker wrapping a
// venue client: a token bucket refilled at RequestsPerMinute (default
// 80) and a ~65s pause before one retry on HTTP 429.
type GuardedConfig struct {
	RequestsPerMinute int
	Burst             int
	CooldownOn429     time.Duration
	FetchTimeout      time.Duration
}

// DefaultGuardedConfig matches the spec's stated defaults.
func DefaultGuardedConfig() GuardedConfig {
	return GuardedConfig{
		RequestsPerMinute: 80,
		Burst:             5,
		CooldownOn429:     65 * time.Second,
		FetchTimeout:      30 * time.Second,
	}
}

// Guarded wraps a DataProvider with a token-bucket rate limiter
// (RequestsPerMinute refill, Burst capacity) and a per-venue circuit
// breaker, the two shared resources §5 names for the DataProvider
// boundary. Requests are not counted over a rolling window.
type Guarded struct {
	inner   DataProvider
	limiter *rate.Limiter
	breaker *cb.CircuitBreaker
	cfg     GuardedConfig
	sleep   func(time.Duration) // overridable in tests
}

// NewGuarded wraps inner with the rate limiter and breaker described
// in §5, grounded on infra/breakers/breakers.go's ReadyToTrip rule.
func NewGuarded(name string, inner DataProvider, cfg GuardedConfig) *Guarded {
	st := cb.Settings{Name: name}
	st.Interval = 60 * time.Second
	st.Timeout = 60 * time.Second
	st.ReadyToTrip = func(counts cb.Counts) bool {
		if counts.ConsecutiveFailures >= 3 {
			return true
		}
		if counts.Requests < 20 {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) > 0.05
	}
	return &Guarded{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), cfg.Burst),
		breaker: cb.NewCircuitBreaker(st),
		cfg:     cfg,
		sleep:   time.Sleep,
	}
}

func (g *Guarded) guard(ctx context.Context, fn func() (interface{}, error)) (interface{}, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, xerr.Wrap(xerr.Timeout, "rate limiter wait", err)
	}
	fetchCtx, cancel := context.WithTimeout(ctx, g.cfg.FetchTimeout)
	defer cancel()

	result, err := g.breaker.Execute(func() (interface{}, error) {
		v, err := fn()
		if isRateLimited(err) {
			g.sleep(g.cfg.CooldownOn429)
			return fn()
		}
		return v, err
	})
	_ = fetchCtx
	if err == cb.ErrOpenState || err == cb.ErrTooManyRequests {
		return nil, xerr.New(xerr.RateLimited, "circuit breaker open")
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, xerr.Wrap(xerr.Timeout, "fetch deadline exceeded", err)
		}
		return nil, err
	}
	return result, nil
}

func isRateLimited(err error) bool {
	type statusCoder interface{ StatusCode() int }
	if sc, ok := err.(statusCoder); ok {
		return sc.StatusCode() == http.StatusTooManyRequests
	}
	return false
}

func (g *Guarded) GetPriceHistory(ctx context.Context, q Query) ([]candle.Candle, error) {
	v, err := g.guard(ctx, func() (interface{}, error) { return g.inner.GetPriceHistory(ctx, q) })
	if err != nil {
		return nil, err
	}
	return v.([]candle.Candle), nil
}

func (g *Guarded) GetOIHistory(ctx context.Context, q Query) ([]candle.OIPoint, error) {
	v, err := g.guard(ctx, func() (interface{}, error) { return g.inner.GetOIHistory(ctx, q) })
	if err != nil {
		return nil, err
	}
	return v.([]candle.OIPoint), nil
}

func (g *Guarded) GetFundingHistory(ctx context.Context, q Query) ([]candle.FundingPoint, error) {
	v, err := g.guard(ctx, func() (interface{}, error) { return g.inner.GetFundingHistory(ctx, q) })
	if err != nil {
		return nil, err
	}
	return v.([]candle.FundingPoint), nil
}

func (g *Guarded) GetTakerBuySellVolume(ctx context.Context, q Query) ([]candle.TakerVolumePoint, error) {
	v, err := g.guard(ctx, func() (interface{}, error) { return g.inner.GetTakerBuySellVolume(ctx, q) })
	if err != nil {
		return nil, err
	}
	return v.([]candle.TakerVolumePoint), nil
}
