// Package pipeline composes every component into the single pure
// function `(Config, Snapshot, Clock) -> MarketState` called for by
// §9: data fetches fan out concurrently per (exchange, timeframe),
// then feature->signal->bucket->decision assembly proceeds serially
// once all fetches join (§5).
package pipeline

import (
	"context"
	"sync"

	"github.com/perpintel/engine/internal/absorption"
	"github.com/perpintel/engine/internal/bucket"
	"github.com/perpintel/engine/internal/candle"
	"github.com/perpintel/engine/internal/config"
	"github.com/perpintel/engine/internal/decision"
	"github.com/perpintel/engine/internal/divergence"
	"github.com/perpintel/engine/internal/enums"
	"github.com/perpintel/engine/internal/feature"
	"github.com/perpintel/engine/internal/provider"
	"github.com/perpintel/engine/internal/regime"
	"github.com/perpintel/engine/internal/signal"
	"github.com/perpintel/engine/internal/state"
	"github.com/perpintel/engine/internal/timeframe"
	"github.com/perpintel/engine/internal/xerr"
)

// Inputs is everything one pipeline run needs. Provider and
// AbsorptionStore are the only injected side-effecting dependencies;
// everything else flows through as plain data (§9 "dependency-injected
// stores passed to the pipeline").
type Inputs struct {
	Symbol            string
	PrimaryTimeframe  candle.Timeframe
	PrimaryExchange   candle.Exchange
	SecondaryExchange candle.Exchange
	Provider          provider.DataProvider
	Cfg               config.Config
	AsOfMs            int64
	AbsorptionStore   absorption.Store
	NowMs             int64 // GeneratedAtMs stamp; distinct from AsOfMs for live vs replay
}

type fetchResult struct {
	exchange  candle.Exchange
	timeframe candle.Timeframe
	candles   []candle.Candle
	oi        []candle.OIPoint
	funding   []candle.FundingPoint
	taker     []candle.TakerVolumePoint
	err       error
}

// Run executes one full pipeline cycle and returns the assembled
// MarketState. It never panics on missing/degraded data: every
// failure mode funnels into a warning and, where unavoidable, a WAIT
// bias (§7 "absence of data never yields a silently fabricated bias").
func Run(ctx context.Context, in Inputs) (state.MarketState, error) {
	if in.PrimaryExchange == "" {
		in.PrimaryExchange = candle.ExchangeBinance
	}
	if in.SecondaryExchange == "" {
		in.SecondaryExchange = candle.ExchangeBybit
	}
	if in.PrimaryTimeframe == "" {
		in.PrimaryTimeframe = candle.TF1h
	}

	results := fanOutFetch(ctx, in)

	byExchangeTF := make(map[candle.Exchange]map[candle.Timeframe]fetchResult)
	for _, r := range results {
		if byExchangeTF[r.exchange] == nil {
			byExchangeTF[r.exchange] = make(map[candle.Timeframe]fetchResult)
		}
		byExchangeTF[r.exchange][r.timeframe] = r
	}

	var warnings []string
	bundles := make(map[candle.Timeframe]feature.Bundle, len(candle.AllTimeframes))
	byTF := make(map[string]signal.TimeframeVerdict, len(candle.AllTimeframes))

	// Primary-exchange feature computation per timeframe, gated by
	// no-lookahead validation and minimum-history requirements (§4.1,
	// §8 invariant 1).
	for _, tf := range candle.AllTimeframes {
		r, ok := byExchangeTF[in.PrimaryExchange][tf]
		if !ok || r.err != nil {
			warnings = append(warnings, "missing data for "+string(tf))
			continue
		}
		endMs, err := timeframe.AlignEndToLastClosed(tf, in.AsOfMs)
		if err != nil {
			warnings = append(warnings, "unknown interval "+string(tf))
			continue
		}
		if _, err := timeframe.ValidateSeries(r.candles, tf, endMs); err != nil {
			if xerr.Is(err, xerr.Lookahead) {
				return state.MarketState{}, err
			}
			warnings = append(warnings, "partial series for "+string(tf))
		}
		if err := timeframe.RequireMinimum(r.candles, tf, endMs); err != nil {
			warnings = append(warnings, "insufficient data for "+string(tf))
			continue
		}

		bundle := feature.Compute(feature.Inputs{
			Interval:        tf,
			Candles:         r.candles,
			OI:              r.oi,
			Funding:         r.funding,
			Taker:           r.taker,
			AsOfMs:          endMs,
			FundingZExtreme: in.Cfg.Gates.FundingZExtreme,
		})
		bundles[tf] = bundle
	}

	regimeResult := classifyPrimaryRegime(bundles, in)
	divergenceResult := analyzeDivergence(byExchangeTF, in)

	for _, tf := range candle.AllTimeframes {
		bundle, ok := bundles[tf]
		if !ok {
			byTF[string(tf)] = signal.TimeframeVerdict{Timeframe: string(tf), Bias: enums.Wait}
			continue
		}
		intervalMs, _ := timeframe.IntervalMs(tf)
		sigCtx := signal.Context{
			Timeframe:        string(tf),
			Bundle:           bundle,
			Cfg:              in.Cfg,
			RegimeLabel:      regimeResult.Regime,
			RegimeConfidence: regimeResult.Confidence,
			DivergenceBias:   divergenceResult.Bias,
			DivergenceConf:   divergenceResult.Confidence,
			DivergenceReason: divergenceResult.Reasoning,
			DataAgeMs:        bundle.LastCandleAge,
			IntervalMs:       intervalMs,
		}
		verdicts := signal.Interpret(sigCtx)
		byTF[string(tf)] = signal.Combine(string(tf), verdicts)
	}

	buckets := map[bucket.Name]bucket.Verdict{
		bucket.Macro:    bucket.Aggregate(bucket.Macro, byTF, in.Cfg),
		bucket.Micro:    bucket.Aggregate(bucket.Micro, byTF, in.Cfg),
		bucket.Scalping: bucket.Aggregate(bucket.Scalping, byTF, in.Cfg),
	}

	absEvent, hasActive, absorptionWarning := runAbsorption(ctx, in, bundles)
	if absorptionWarning != "" {
		warnings = append(warnings, absorptionWarning)
	}

	gateOff := 0
	for _, tv := range byTF {
		for _, v := range tv.Verdicts {
			if v.Weight == 0 {
				gateOff++
			}
		}
	}

	bonus := 0.0
	if hasActive && absEvent.Status == enums.AbsorptionResolved {
		bonus = absEvent.ConfidenceBonus
	}

	decisionOut := decision.Decide(decision.Inputs{
		Buckets:         buckets,
		Regime:          regimeResult.Regime,
		Cfg:             in.Cfg,
		GateOffCount:    gateOff,
		AbsorptionBonus: bonus,
	})
	decisionOut.Warnings = append(decisionOut.Warnings, warnings...)

	ms := state.Assemble(state.AssembleInputs{
		ConfigVersion:       in.Cfg.Version,
		GeneratedAtMs:       in.NowMs,
		Symbol:              in.Symbol,
		PrimaryTimeframe:    string(in.PrimaryTimeframe),
		PerTimeframe:        byTF,
		Buckets:             buckets,
		Decision:            decisionOut,
		Regime:              regimeResult,
		Divergence:          divergenceResult,
		Absorption:          absEvent,
		HasActiveAbsorption: hasActive,
	})
	return ms, nil
}

// fanOutFetch fetches price/OI/funding/taker series for every
// (exchange, timeframe) pair concurrently, joining before any feature
// computation begins (§5 "parallel at fan-out points... then serial").
func fanOutFetch(ctx context.Context, in Inputs) []fetchResult {
	exchanges := []candle.Exchange{in.PrimaryExchange, in.SecondaryExchange}
	var wg sync.WaitGroup
	var mu sync.Mutex
	out := make([]fetchResult, 0, len(exchanges)*len(candle.AllTimeframes))

	for _, ex := range exchanges {
		for _, tf := range candle.AllTimeframes {
			wg.Add(1)
			go func(ex candle.Exchange, tf candle.Timeframe) {
				defer wg.Done()
				r := fetchOne(ctx, in, ex, tf)
				mu.Lock()
				out = append(out, r)
				mu.Unlock()
			}(ex, tf)
		}
	}
	wg.Wait()
	return out
}

func fetchOne(ctx context.Context, in Inputs, ex candle.Exchange, tf candle.Timeframe) fetchResult {
	r := fetchResult{exchange: ex, timeframe: tf}
	endMs, err := timeframe.AlignEndToLastClosed(tf, in.AsOfMs)
	if err != nil {
		r.err = err
		return r
	}
	q := provider.Query{Exchange: ex, Symbol: in.Symbol, Interval: tf, Limit: 200, EndTime: &endMs}

	r.candles, err = in.Provider.GetPriceHistory(ctx, q)
	if err != nil {
		r.err = err
		return r
	}
	r.oi, _ = in.Provider.GetOIHistory(ctx, q)
	r.funding, _ = in.Provider.GetFundingHistory(ctx, q)
	r.taker, _ = in.Provider.GetTakerBuySellVolume(ctx, q)
	return r
}

func classifyPrimaryRegime(bundles map[candle.Timeframe]feature.Bundle, in Inputs) regime.Result {
	b, ok := bundles[in.PrimaryTimeframe]
	if !ok {
		return regime.Result{Regime: enums.RegimeUnclear}
	}
	return regime.Classify(regime.Inputs{
		TrendDirection:   b.Trend.Direction,
		OIDivergence:     b.OI.Divergence,
		FundingZScore:    b.Funding.ZScore,
		FundingZExtreme:  in.Cfg.Gates.FundingZExtreme,
		CVDSlope:         b.CVD.SlopeLast10,
		CVDStrong:        b.CVD.Strong,
		BrokeOfStructure: b.Structure.BrokeOfStructure,
	})
}

func analyzeDivergence(byExchangeTF map[candle.Exchange]map[candle.Timeframe]fetchResult, in Inputs) divergence.Result {
	primary := byExchangeTF[in.PrimaryExchange][in.PrimaryTimeframe]
	secondary := byExchangeTF[in.SecondaryExchange][in.PrimaryTimeframe]

	return divergence.Analyze(
		divergence.ExchangeSnapshot{Exchange: string(in.PrimaryExchange), OIChangePct: oiChangePct(primary.oi), VolumeUSD: takerVolume(primary.taker)},
		divergence.ExchangeSnapshot{Exchange: string(in.SecondaryExchange), OIChangePct: oiChangePct(secondary.oi), VolumeUSD: takerVolume(secondary.taker)},
		in.Cfg,
	)
}

func oiChangePct(points []candle.OIPoint) float64 {
	if len(points) < 2 {
		return 0
	}
	first, last := points[0].OpenInterestUSD, points[len(points)-1].OpenInterestUSD
	if first == 0 {
		return 0
	}
	return (last - first) / first * 100
}

func takerVolume(points []candle.TakerVolumePoint) float64 {
	total := 0.0
	for _, p := range points {
		total += p.BuyUSD + p.SellUSD
	}
	return total
}

// runAbsorption runs one cycle of the two-phase absorption state
// machine: Phase 1 detects on the primary timeframe; Phase 2 resolves
// every unresolved event open for this symbol, across whatever
// timeframe each was detected on (§4.7 "every cycle, for every
// unresolved event").
func runAbsorption(ctx context.Context, in Inputs, bundles map[candle.Timeframe]feature.Bundle) (absorption.Event, bool, string) {
	if in.AbsorptionStore == nil {
		return absorption.Event{}, false, ""
	}

	warning := ""
	if b, ok := bundles[in.PrimaryTimeframe]; ok {
		th := in.Cfg.Thresholds[string(in.PrimaryTimeframe)]
		det, detected := absorption.Detect(absorption.DetectInputs{
			Symbol:         in.Symbol,
			Timeframe:      string(in.PrimaryTimeframe),
			TimestampMs:    in.AsOfMs,
			CVDSlopeNorm:   b.CVD.SlopeLast10,
			CVDNoiseFloor:  b.CVD.NoiseFloor,
			PriceChangePct: b.Momentum.Change24Pct / 24,
			CurrentPrice:   b.VWAP.Value,
			SwingHigh:      b.Structure.Resistance,
			SwingLow:       b.Structure.Support,
			NoisePct:       th.NoisePct,
		})
		if detected {
			if err := in.AbsorptionStore.Insert(ctx, det); err != nil {
				return absorption.Event{}, false, "absorption store insert failed"
			}
			warning = "absorption detection opened, confidence unaffected this cycle"
		}
	}

	unresolved, err := in.AbsorptionStore.Unresolved(ctx)
	if err != nil {
		return absorption.Event{}, false, warning
	}

	var resolved absorption.Event
	hasResolved := false
	for _, ev := range unresolved {
		if ev.Symbol != in.Symbol {
			continue
		}
		out := resolveOne(ctx, in, ev, bundles)
		if out.Changed {
			if out.Event.Status != enums.AbsorptionDetecting && out.Event.ResolvedAtMs == nil {
				resolvedAt := in.AsOfMs
				out.Event.ResolvedAtMs = &resolvedAt
			}
			_ = in.AbsorptionStore.Update(ctx, out.Event)
		}
		if out.Event.Status == enums.AbsorptionResolved {
			resolved = out.Event
			hasResolved = true
		}
	}
	return resolved, hasResolved, warning
}

// resolveOne fetches the price/OI series strictly between one event's
// detection and now (§4.7 Phase 2) and derives every resolution
// predicate from it, rather than leaving ResolveInputs at its zero
// value.
func resolveOne(ctx context.Context, in Inputs, ev absorption.Event, bundles map[candle.Timeframe]feature.Bundle) absorption.Outcome {
	tf := candle.Timeframe(ev.Timeframe)
	window := absorption.WindowFor(ev.Timeframe)

	intervalMs, err := timeframe.IntervalMs(tf)
	if err != nil || intervalMs <= 0 {
		return absorption.Outcome{Event: ev, Changed: false}
	}
	endMs, err := timeframe.AlignEndToLastClosed(tf, in.AsOfMs)
	if err != nil || endMs <= ev.DetectedAtMs {
		return absorption.Outcome{Event: ev, Changed: false}
	}

	start := ev.DetectedAtMs
	q := provider.Query{Exchange: in.PrimaryExchange, Symbol: ev.Symbol, Interval: tf, Limit: 500, StartTime: &start, EndTime: &endMs}
	candles, _ := in.Provider.GetPriceHistory(ctx, q)
	oi, _ := in.Provider.GetOIHistory(ctx, q)

	expected := int((endMs - start) / intervalMs)
	candlesSince := len(candles)
	gapFraction := 0.0
	if expected > 0 && candlesSince < expected {
		gapFraction = float64(expected-candlesSince) / float64(expected)
	}

	currentPrice := ev.DetectionPrice
	if len(candles) > 0 {
		currentPrice = candles[len(candles)-1].Close
	}
	priceMovedPct := 0.0
	if ev.DetectionPrice != 0 {
		priceMovedPct = (currentPrice - ev.DetectionPrice) / ev.DetectionPrice * 100
	}

	oiUnwind, oiRising := oiUnwindRatioAndRising(oi)
	bundle := bundles[tf]

	return absorption.Resolve(absorption.ResolveInputs{
		Event:                      ev,
		CandlesSinceDetection:      candlesSince,
		DataGapFraction:            gapFraction,
		CurrentPrice:               currentPrice,
		PriceMovedPctFromDetection: priceMovedPct,
		SweptLevelAndRejected:      sweptLevelAndRejected(ev, candles),
		BrokeOppositeStructure:     bundle.Structure.BrokeOfStructure && oppositeStructureBreak(ev, bundle.Structure.BoSDirection),
		OIUnwindRatio:              oiUnwind,
		PriceHeldLevel:             priceHeldLevel(ev, currentPrice),
		OIRisingSustained:          oiRising,
		CVDContinuedSameDirection:  cvdContinuedSameDirection(ev, bundle.CVD.SlopeLast10),
	}, window)
}

// sweptLevelAndRejected reports whether the price wicked through the
// detection level and closed back inside it by the end of the window.
func sweptLevelAndRejected(ev absorption.Event, candles []candle.Candle) bool {
	if ev.LocationPrice == 0 || len(candles) == 0 {
		return false
	}
	swept := false
	for _, c := range candles {
		switch ev.CVDDirection {
		case "buying":
			if c.High >= ev.LocationPrice {
				swept = true
			}
		case "selling":
			if c.Low <= ev.LocationPrice {
				swept = true
			}
		}
	}
	if !swept {
		return false
	}
	final := candles[len(candles)-1].Close
	if ev.CVDDirection == "buying" {
		return final < ev.LocationPrice
	}
	return final > ev.LocationPrice
}

// priceHeldLevel reports whether price broke through the detection
// level in the CVD's own direction and has stayed there — the
// continuation (accumulation/distribution) counterpart to a sweep.
func priceHeldLevel(ev absorption.Event, currentPrice float64) bool {
	if ev.LocationPrice == 0 {
		return false
	}
	if ev.CVDDirection == "buying" {
		return currentPrice > ev.LocationPrice
	}
	return currentPrice < ev.LocationPrice
}

// oiUnwindRatioAndRising derives (oiPeak-oiNow)/(oiPeak-oiStart) —
// only meaningful once OI has risen from its starting value — plus
// whether OI is still rising and has not meaningfully unwound.
func oiUnwindRatioAndRising(oi []candle.OIPoint) (ratio float64, rising bool) {
	if len(oi) < 2 {
		return 0, false
	}
	start := oi[0].OpenInterestUSD
	now := oi[len(oi)-1].OpenInterestUSD
	peak := start
	for _, p := range oi {
		if p.OpenInterestUSD > peak {
			peak = p.OpenInterestUSD
		}
	}
	if peak > start {
		ratio = (peak - now) / (peak - start)
	}
	rising = now > start && ratio < 0.3
	return ratio, rising
}

// oppositeStructureBreak reports whether a detected break-of-structure
// runs counter to the absorption's CVD direction (a trap signal).
func oppositeStructureBreak(ev absorption.Event, bosDirection string) bool {
	if ev.CVDDirection == "buying" {
		return bosDirection == "down"
	}
	return bosDirection == "up"
}

// cvdContinuedSameDirection reports whether the current CVD slope
// still points the same way it did at detection.
func cvdContinuedSameDirection(ev absorption.Event, slopeLast10 float64) bool {
	if ev.CVDDirection == "buying" {
		return slopeLast10 > 0
	}
	return slopeLast10 < 0
}
