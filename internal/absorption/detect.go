package absorption

import (
	"math"

	"github.com/perpintel/engine/internal/enums"
)

const nearPct = 0.003

// DetectInputs is the per-cycle snapshot needed to evaluate Phase 1
// detection for one (symbol, timeframe) pair (§4.7).
type DetectInputs struct {
	Symbol        string
	Timeframe     string
	TimestampMs   int64
	CVDSlopeNorm  float64
	CVDNoiseFloor float64
	PriceChangePct float64 // per-candle price change, in the same units as NoisePct
	CurrentPrice  float64
	SwingHigh     float64
	SwingLow      float64
	NoisePct      float64 // threshold[tf].noisePct
}

// Detect evaluates the three Phase-1 conditions and, if all hold,
// returns a new DETECTING event. Detection never modifies bias or
// confidence directly — callers attach only a warning.
func Detect(in DetectInputs) (Event, bool) {
	if math.Abs(in.CVDSlopeNorm) <= in.CVDNoiseFloor {
		return Event{}, false
	}

	direction := "buying"
	if in.CVDSlopeNorm < 0 {
		direction = "selling"
	}

	flat := math.Abs(in.PriceChangePct) < in.NoisePct
	opposite := (direction == "buying" && in.PriceChangePct < 0) || (direction == "selling" && in.PriceChangePct > 0)
	if !flat && !opposite {
		return Event{}, false
	}

	location, levelPrice, ok := classifyLocation(direction, in)
	if !ok {
		return Event{}, false
	}

	return Event{
		Symbol:         in.Symbol,
		Timeframe:      in.Timeframe,
		CVDDirection:   direction,
		Status:         enums.AbsorptionDetecting,
		Location:       location,
		LocationPrice:  levelPrice,
		DetectedAtMs:   in.TimestampMs,
		DetectionPrice: in.CurrentPrice,
	}, true
}

func classifyLocation(direction string, in DetectInputs) (string, float64, bool) {
	switch direction {
	case "buying":
		if in.SwingHigh > 0 && near(in.CurrentPrice, in.SwingHigh) {
			return "resistance", in.SwingHigh, true
		}
	case "selling":
		if in.SwingLow > 0 && near(in.CurrentPrice, in.SwingLow) {
			return "support", in.SwingLow, true
		}
	}
	return "", 0, false
}

func near(price, level float64) bool {
	if level == 0 {
		return false
	}
	return math.Abs(price-level)/level <= nearPct
}
