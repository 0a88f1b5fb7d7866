package replay

import (
	"sort"

	"github.com/perpintel/engine/internal/enums"
	"github.com/perpintel/engine/internal/outcome"
	"github.com/perpintel/engine/internal/state"
)

// LabeledSample pairs one replayed MarketState with the outcome it was
// later scored against.
type LabeledSample struct {
	State   state.MarketState
	Outcome outcome.Result
}

// DecileBucket summarizes every sample whose Final.Confidence fell in
// a confidence decile.
type DecileBucket struct {
	Low, High float64
	Count     int
	Hits      int
}

// WinRate is Hits/Count, or 0 for an empty bucket.
func (d DecileBucket) WinRate() float64 {
	if d.Count == 0 {
		return 0
	}
	return float64(d.Hits) / float64(d.Count)
}

// RegimeSlice summarizes samples grouped by the primary regime active
// when the state was emitted.
type RegimeSlice struct {
	Regime enums.Regime
	Count  int
	Hits   int
}

func (r RegimeSlice) WinRate() float64 {
	if r.Count == 0 {
		return 0
	}
	return float64(r.Hits) / float64(r.Count)
}

// Scoreboard is the replay batch analysis result: confidence-decile
// calibration plus per-regime attribution, supplementing the bare
// outcome label stream with a rollup a reviewer can read directly.
type Scoreboard struct {
	TotalSamples int
	Deciles      [10]DecileBucket
	ByRegime     map[enums.Regime]*RegimeSlice
}

// isHit reports whether a sample's outcome validates its state's bias.
// A directional bias hits on CONTINUATION; WAIT hits on CONTINUATION
// too (§4.9 "correct WAIT" reuses the continuation label).
func isHit(label enums.OutcomeLabel) bool {
	return label == enums.OutcomeContinuation
}

// BuildScoreboard computes decile calibration and regime attribution
// over a batch's labeled samples. Samples still PENDING are excluded.
func BuildScoreboard(samples []LabeledSample) Scoreboard {
	sb := Scoreboard{ByRegime: make(map[enums.Regime]*RegimeSlice)}

	var deciles [10]DecileBucket
	for i := range deciles {
		deciles[i] = DecileBucket{Low: float64(i), High: float64(i + 1)}
	}

	for _, s := range samples {
		if s.Outcome.Label == enums.OutcomePending {
			continue
		}
		sb.TotalSamples++

		idx := decileIndex(s.State.Final.Confidence)
		deciles[idx].Count++
		if isHit(s.Outcome.Label) {
			deciles[idx].Hits++
		}

		regime := s.State.Final.PrimaryRegime
		slice, ok := sb.ByRegime[regime]
		if !ok {
			slice = &RegimeSlice{Regime: regime}
			sb.ByRegime[regime] = slice
		}
		slice.Count++
		if isHit(s.Outcome.Label) {
			slice.Hits++
		}
	}

	sb.Deciles = deciles
	return sb
}

func decileIndex(confidence float64) int {
	idx := int(confidence) // confidence ranges 0-10 (§4.4 scoring)
	if idx < 0 {
		idx = 0
	}
	if idx > 9 {
		idx = 9
	}
	return idx
}

// RegimesSorted returns ByRegime's entries sorted by regime name, for
// stable API/CLI output.
func (s Scoreboard) RegimesSorted() []RegimeSlice {
	out := make([]RegimeSlice, 0, len(s.ByRegime))
	for _, v := range s.ByRegime {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Regime < out[j].Regime })
	return out
}
