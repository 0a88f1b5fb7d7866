// Package replay implements ReplayOrchestrator (§4.8): running the
// pipeline over a deterministic list of past as-of timestamps with a
// cooperative pause/resume batch lifecycle.
package replay

import (
	"github.com/perpintel/engine/internal/candle"
	"github.com/perpintel/engine/internal/enums"
	"github.com/perpintel/engine/internal/outcome"
	"github.com/perpintel/engine/internal/timeframe"
	"github.com/perpintel/engine/internal/xerr"
)

// maxSamplesCap is the hard ceiling on a batch's sample count (§4.8).
const maxSamplesCap = 200

// Request is the batch protocol input (§4.8).
type Request struct {
	Symbol             string
	StartTime          int64
	EndTime             int64
	StepSize           candle.Timeframe // one of {30m,1h,4h}
	MaxSamples         int
	Horizons           []outcome.Horizon
	SkipDuplicateCheck bool
}

// SampleFailure records one per-sample failure without aborting the
// batch, except for the Fatal-streak rule (§4.8).
type SampleFailure struct {
	Timestamp int64
	Kind      xerr.Kind
	Message   string
}

// Batch is the mutable lifecycle record for one replay run (§4.8,
// §6.2 /replay/* surface).
type Batch struct {
	ID               string
	Request          Request
	Status           enums.BatchStatus
	Timestamps       []int64
	NextIndex        int
	ConfigVersion    int
	Failures         []SampleFailure
	ConsecutiveFatal int
	PauseRequested   bool
}

// GenerateTimestamps produces the deterministic, strictly increasing,
// step-aligned as-of timestamps for a batch request, capped at
// maxSamplesCap (§4.8).
func GenerateTimestamps(req Request) ([]int64, error) {
	stepMs, err := timeframe.IntervalMs(req.StepSize)
	if err != nil {
		return nil, err
	}
	if req.StepSize == candle.TF1d {
		return nil, xerr.New(xerr.ValidationFailure, "stepSize must be one of 30m, 1h, 4h", "stepSize", string(req.StepSize))
	}
	if req.EndTime < req.StartTime {
		return nil, xerr.New(xerr.ValidationFailure, "endTime precedes startTime", "start", req.StartTime, "end", req.EndTime)
	}

	limit := req.MaxSamples
	if limit <= 0 || limit > maxSamplesCap {
		limit = maxSamplesCap
	}

	start := (req.StartTime / stepMs) * stepMs
	if start < req.StartTime {
		start += stepMs
	}

	var out []int64
	for ts := start; ts <= req.EndTime && len(out) < limit; ts += stepMs {
		out = append(out, ts)
	}
	return out, nil
}

// NewBatch builds a PENDING batch with its timestamp list precomputed.
func NewBatch(id string, req Request, configVersion int) (*Batch, error) {
	ts, err := GenerateTimestamps(req)
	if err != nil {
		return nil, err
	}
	return &Batch{
		ID:            id,
		Request:       req,
		Status:        enums.BatchPending,
		Timestamps:    ts,
		ConfigVersion: configVersion,
	}, nil
}

// Pause cooperatively requests the runner stop between samples.
func (b *Batch) Pause() {
	b.PauseRequested = true
}

// Resume clears the pause flag; the next Run call continues from
// NextIndex.
func (b *Batch) Resume() {
	b.PauseRequested = false
	if b.Status == enums.BatchPaused {
		b.Status = enums.BatchRunning
	}
}
