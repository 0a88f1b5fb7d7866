// Package absorption implements AbsorptionEngine (§4.7): a two-phase
// detect/resolve state machine over CVD-vs-price divergence at swing
// support/resistance.
package absorption

import "github.com/perpintel/engine/internal/enums"

// Event is one absorption lifecycle record (§3 AbsorptionEvent, §6.4
// absorption_events).
type Event struct {
	ID                     string
	Symbol                 string
	Timeframe              string
	CVDDirection           string // "buying" or "selling"
	Status                 enums.AbsorptionStatus
	Location               string // "support" or "resistance"
	LocationPrice          float64
	DetectedAtMs           int64
	DetectionPrice         float64
	CandlesSinceDetection  int
	ExtensionsUsed         int
	Resolution             enums.AbsorptionResolution
	BiasImplication        enums.Bias
	ConfidenceBonus        float64
	ResolvedAtMs           *int64
}

// resolutionWindow is N[tf]: the minimum candles elapsed before
// resolution is attempted (§4.7).
var resolutionWindow = map[string]int{
	"30m": 6,
	"1h":  4,
	"4h":  3,
	"1d":  2,
}

// WindowFor returns N[tf], or 0 if the timeframe is unrecognized.
func WindowFor(tf string) int {
	return resolutionWindow[tf]
}
