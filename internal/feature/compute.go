package feature

import (
	"math"

	"github.com/perpintel/engine/internal/candle"
	"github.com/perpintel/engine/internal/timeframe"
)

// Inputs bundles everything Compute needs for one timeframe, all
// already validated against an as-of cutoff by the caller.
type Inputs struct {
	Interval candle.Timeframe
	Candles  []candle.Candle // oldest -> newest, closed only
	OI       []candle.OIPoint
	Funding  []candle.FundingPoint
	Taker    []candle.TakerVolumePoint
	AsOfMs   int64
	// FundingZExtreme is the config-driven gate threshold (§4.3).
	FundingZExtreme float64
}

const (
	swingWindow    = 3  // ±k window for local extrema
	cvdWindow      = 50 // §3: fixed window
	cvdSlopeWindow = 10
	structurePct   = 0.003 // near S/R = 0.3%, shared with absorption
)

// Compute implements the FeatureComputer primitives of §4.2.
func Compute(in Inputs) Bundle {
	var b Bundle
	b.Trend = computeTrend(in.Candles)
	b.Momentum = computeMomentum(in.Candles)
	b.Volatility = computeVolatility(in.Candles)
	b.CVD = computeCVD(in.Taker, intervalMsOf(in.Interval))
	b.OI = computeOI(in.OI, in.Candles)
	b.Funding = computeFunding(in.Funding, in.FundingZExtreme)
	b.Structure = computeStructure(in.Candles)
	b.VolumeProfile = computeVolumeProfile(in.Candles)
	b.VWAP = computeVWAP(in.Candles)
	if len(in.Candles) > 0 {
		ms := intervalMsOf(in.Interval)
		last := in.Candles[len(in.Candles)-1]
		b.LastCandleAge = in.AsOfMs - (last.Timestamp + ms)
	}
	return b
}

func intervalMsOf(tf candle.Timeframe) int64 {
	ms, err := timeframe.IntervalMs(tf)
	if err != nil {
		return 0
	}
	return ms
}

// --- Trend ---

func computeTrend(candles []candle.Candle) Trend {
	if len(candles) == 0 {
		return Trend{Direction: TrendSideways}
	}
	closes := closesOf(candles)
	ema20 := ema(closes, 20)
	ema50 := ema(closes, 50)

	n := len(closes)
	window := n
	if window > 20 {
		window = 20
	}
	slope, stddev := slopeAndStddev(closes[n-window:])

	strength := 0.0
	if stddev > 1e-12 {
		strength = slope / stddev
	}

	dir := TrendSideways
	switch {
	case strength > 0.15:
		dir = TrendUp
	case strength < -0.15:
		dir = TrendDown
	}

	cross := "none"
	if ema20 > ema50 {
		cross = "bullish"
	} else if ema20 < ema50 {
		cross = "bearish"
	}

	return Trend{
		Direction:    dir,
		Strength:     strength,
		EMA20:        ema20,
		EMA50:        ema50,
		EMACrossover: cross,
	}
}

// --- Momentum ---

func computeMomentum(candles []candle.Candle) Momentum {
	const period = 24
	n := len(candles)
	if n < period+1 {
		return Momentum{}
	}
	start := candles[n-period-1].Close
	end := candles[n-1].Close
	if start == 0 {
		return Momentum{}
	}
	return Momentum{Change24Pct: (end - start) / start * 100}
}

// --- Volatility ---

func computeVolatility(candles []candle.Candle) Volatility {
	if len(candles) < 2 {
		return Volatility{}
	}
	closes := closesOf(candles)
	logReturns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] <= 0 || closes[i] <= 0 {
			continue
		}
		logReturns = append(logReturns, math.Log(closes[i]/closes[i-1]))
	}
	_, sd := meanStddev(logReturns)
	// Annualize assuming ~365*24 hourly-equivalent periods; the same
	// fixed factor is applied whatever the candle interval.
	periodsPerYear := 365.0 * 24.0
	annualized := sd * math.Sqrt(periodsPerYear)

	peak := closes[0]
	maxDD := 0.0
	for _, c := range closes {
		if c > peak {
			peak = c
		}
		if peak > 0 {
			dd := (peak - c) / peak * 100
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return Volatility{RealizedVolAnnualized: annualized, MaxDrawdownPct: maxDD}
}

// --- CVD ---

func computeCVD(taker []candle.TakerVolumePoint, intervalMs int64) CVD {
	window := taker
	if len(window) > cvdWindow {
		window = window[len(window)-cvdWindow:]
	}
	series := make([]float64, 0, len(window))
	zeroRun, maxZeroRun := 0, 0
	for _, p := range window {
		total := p.BuyUSD + p.SellUSD
		if total <= 0 {
			series = append(series, 0)
			zeroRun++
			if zeroRun > maxZeroRun {
				maxZeroRun = zeroRun
			}
			continue
		}
		zeroRun = 0
		series = append(series, (p.BuyUSD-p.SellUSD)/total)
	}

	_, sd := meanStddev(series)
	noiseFloor := sd * 1.5

	slopeWin := series
	if len(slopeWin) > cvdSlopeWindow {
		slopeWin = slopeWin[len(slopeWin)-cvdSlopeWindow:]
	}
	slope, _ := slopeAndStddev(slopeWin)

	return CVD{
		Series:                series,
		SlopeLast10:           slope,
		NoiseFloor:            noiseFloor,
		Strong:                math.Abs(slope) > noiseFloor,
		ActualCandles:         len(taker),
		ExpectedCandles:       cvdWindow,
		ConsecutiveZeroVolume: maxZeroRun,
	}
}

// --- OI ---

func computeOI(oi []candle.OIPoint, candles []candle.Candle) OI {
	const period = 24
	if len(oi) < period+1 {
		return OI{}
	}
	n := len(oi)
	start := oi[n-period-1].OpenInterestUSD
	end := oi[n-1].OpenInterestUSD
	changePct := 0.0
	if start != 0 {
		changePct = (end - start) / start * 100
	}

	priceUp := false
	if len(candles) >= period+1 {
		m := len(candles)
		priceUp = candles[m-1].Close > candles[m-period-1].Close
	}
	oiUp := changePct > 0

	div := OIAligned
	switch {
	case priceUp && !oiUp:
		div = OIBearishDivergence
	case !priceUp && oiUp:
		div = OIBullishDivergence
	}

	return OI{Change24Pct: changePct, Divergence: div, Latest: end}
}

// --- Funding ---

func computeFunding(fr []candle.FundingPoint, zExtreme float64) Funding {
	if len(fr) == 0 {
		return Funding{}
	}
	rates := make([]float64, len(fr))
	for i, p := range fr {
		rates[i] = p.Rate
	}
	mean, sd := meanStddev(rates)
	current := rates[len(rates)-1]
	z := 0.0
	if sd > 1e-12 {
		z = (current - mean) / sd
	}
	extremity := FundingNormal
	if math.Abs(z) >= zExtreme {
		extremity = FundingExtreme
	}
	return Funding{Current: current, ZScore: z, Extremity: extremity}
}

// --- Structure ---

func computeStructure(candles []candle.Candle) Structure {
	var s Structure
	n := len(candles)
	if n < 2*swingWindow+1 {
		return s
	}

	var lastHigh, lastLow Swing
	for i := swingWindow; i < n-swingWindow; i++ {
		if isSwingHigh(candles, i) {
			lastHigh = Swing{Timestamp: candles[i].Timestamp, Price: candles[i].High}
		}
		if isSwingLow(candles, i) {
			lastLow = Swing{Timestamp: candles[i].Timestamp, Price: candles[i].Low}
		}
	}
	s.LastSwingHigh = lastHigh
	s.LastSwingLow = lastLow
	s.Support = lastLow.Price
	s.Resistance = lastHigh.Price

	last := candles[n-1]
	switch {
	case lastHigh.Price > 0 && last.Close > lastHigh.Price:
		s.BrokeOfStructure = true
		s.BoSDirection = "up"
	case lastLow.Price > 0 && last.Close < lastLow.Price:
		s.BrokeOfStructure = true
		s.BoSDirection = "down"
	default:
		s.BoSDirection = "none"
	}
	return s
}

func isSwingHigh(candles []candle.Candle, i int) bool {
	for k := i - swingWindow; k <= i+swingWindow; k++ {
		if k == i {
			continue
		}
		if candles[k].High >= candles[i].High {
			return false
		}
	}
	return true
}

func isSwingLow(candles []candle.Candle, i int) bool {
	for k := i - swingWindow; k <= i+swingWindow; k++ {
		if k == i {
			continue
		}
		if candles[k].Low <= candles[i].Low {
			return false
		}
	}
	return true
}

// --- Volume profile (POC/VAH/VAL, 70%-of-volume rule) ---

func computeVolumeProfile(candles []candle.Candle) VolumeProfile {
	if len(candles) == 0 {
		return VolumeProfile{}
	}
	type bucket struct {
		price  float64
		volume float64
	}
	lo, hi := candles[0].Low, candles[0].High
	for _, c := range candles {
		if c.Low < lo {
			lo = c.Low
		}
		if c.High > hi {
			hi = c.High
		}
	}
	if hi <= lo {
		return VolumeProfile{POC: candles[len(candles)-1].Close}
	}
	const bins = 24
	binSize := (hi - lo) / bins
	volumes := make([]float64, bins)
	for _, c := range candles {
		mid := (c.High + c.Low) / 2
		idx := int((mid - lo) / binSize)
		if idx < 0 {
			idx = 0
		}
		if idx >= bins {
			idx = bins - 1
		}
		volumes[idx] += c.Volume
	}

	pocIdx := 0
	total := 0.0
	for i, v := range volumes {
		total += v
		if v > volumes[pocIdx] {
			pocIdx = i
		}
	}
	if total <= 0 {
		return VolumeProfile{POC: lo + binSize*(float64(pocIdx)+0.5)}
	}

	// Expand outward from POC until >=70% of total volume is captured.
	lowIdx, highIdx := pocIdx, pocIdx
	captured := volumes[pocIdx]
	for captured/total < 0.70 && (lowIdx > 0 || highIdx < bins-1) {
		expandLow := lowIdx > 0
		expandHigh := highIdx < bins-1
		var volLow, volHigh float64
		if expandLow {
			volLow = volumes[lowIdx-1]
		}
		if expandHigh {
			volHigh = volumes[highIdx+1]
		}
		switch {
		case expandLow && (!expandHigh || volLow >= volHigh):
			lowIdx--
			captured += volumes[lowIdx]
		case expandHigh:
			highIdx++
			captured += volumes[highIdx]
		default:
			expandLow, expandHigh = false, false
		}
		if !expandLow && !expandHigh {
			break
		}
	}

	return VolumeProfile{
		POC: lo + binSize*(float64(pocIdx)+0.5),
		VAH: lo + binSize*(float64(highIdx)+1),
		VAL: lo + binSize*float64(lowIdx),
	}
}

// --- VWAP (session-daily from 00:00 UTC) ---

func computeVWAP(candles []candle.Candle) VWAP {
	if len(candles) == 0 {
		return VWAP{}
	}
	last := candles[len(candles)-1]
	dayStartMs := (last.Timestamp / 86400000) * 86400000

	var pvSum, vSum float64
	for _, c := range candles {
		if c.Timestamp < dayStartMs {
			continue
		}
		typical := (c.High + c.Low + c.Close) / 3
		pvSum += typical * c.Volume
		vSum += c.Volume
	}
	vwap := last.Close
	if vSum > 0 {
		vwap = pvSum / vSum
	}
	return VWAP{
		Value:      vwap,
		InnerUpper: vwap * 1.01,
		InnerLower: vwap * 0.99,
		OuterUpper: vwap * 1.02,
		OuterLower: vwap * 0.98,
	}
}

// --- shared math helpers ---

func closesOf(candles []candle.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

func ema(values []float64, period int) float64 {
	if len(values) == 0 {
		return 0
	}
	if len(values) < period {
		period = len(values)
	}
	k := 2.0 / (float64(period) + 1.0)
	e := values[0]
	for _, v := range values[1:] {
		e = v*k + e*(1-k)
	}
	return e
}

func meanStddev(values []float64) (mean, stddev float64) {
	n := len(values)
	if n == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(n)
	var sqSum float64
	for _, v := range values {
		d := v - mean
		sqSum += d * d
	}
	stddev = math.Sqrt(sqSum / float64(n))
	return mean, stddev
}

// slopeAndStddev computes the least-squares slope of values against
// their index, plus the stddev of the values, for normalized-strength
// and CVD-noise-floor calculations.
func slopeAndStddev(values []float64) (slope, stddev float64) {
	n := len(values)
	if n < 2 {
		return 0, 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range values {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom != 0 {
		slope = (fn*sumXY - sumX*sumY) / denom
	}
	_, stddev = meanStddev(values)
	return slope, stddev
}
