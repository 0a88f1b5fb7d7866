package replay

import (
	"context"

	"github.com/perpintel/engine/internal/enums"
	"github.com/perpintel/engine/internal/state"
	"github.com/perpintel/engine/internal/xerr"
)

const fatalStreakLimit = 5

// PipelineFunc runs one pipeline cycle at the given as-of timestamp.
// The orchestrator is deliberately decoupled from package pipeline's
// concrete Inputs type so it can be driven by a fake in tests.
type PipelineFunc func(ctx context.Context, asOfMs int64) (state.MarketState, error)

// Store persists replay state records and answers the dedup check
// (§5 "unique (batch_id, asOfTimestamp)").
type Store interface {
	Exists(ctx context.Context, symbol string, asOfMs int64, configVersion int) (bool, error)
	Save(ctx context.Context, rec Record) error
}

// ResultsStore is the optional extension both Memory and Postgres
// implement, letting /replay/results and /replay/scoreboard read back
// a batch's non-failed states without caring which Store backs it.
type ResultsStore interface {
	Results(ctx context.Context, batchID string) ([]state.MarketState, error)
}

// Record is one persisted replay_states row (§6.4).
type Record struct {
	BatchID       string
	AsOfMs        int64
	Symbol        string
	ConfigVersion int
	State         state.MarketState
	Failed        bool
	FailureReason string
}

// Orchestrator runs batches against an injected PipelineFunc and
// Store. It holds no per-run mutable state of its own (§9 "pipeline
// itself is a pure function"; the orchestrator is the only stateful
// layer, and that state lives entirely in the Batch and Store).
type Orchestrator struct {
	Run   PipelineFunc
	Store Store
}

// NewOrchestrator wires a PipelineFunc and Store into a ready
// orchestrator.
func NewOrchestrator(run PipelineFunc, store Store) *Orchestrator {
	return &Orchestrator{Run: run, Store: store}
}

// RunBatch advances b from its current NextIndex until it completes,
// pauses, or fails. Pause/abort is honored between samples (§5).
func (o *Orchestrator) RunBatch(ctx context.Context, b *Batch) error {
	if b.Status == enums.BatchPending {
		b.Status = enums.BatchRunning
	}

	for b.NextIndex < len(b.Timestamps) {
		if b.PauseRequested {
			b.Status = enums.BatchPaused
			return nil
		}
		select {
		case <-ctx.Done():
			b.Status = enums.BatchFailed
			return ctx.Err()
		default:
		}

		asOf := b.Timestamps[b.NextIndex]

		if !b.Request.SkipDuplicateCheck {
			exists, err := o.Store.Exists(ctx, b.Request.Symbol, asOf, b.ConfigVersion)
			if err != nil {
				return err
			}
			if exists {
				b.NextIndex++
				continue
			}
		}

		ms, err := o.Run(ctx, asOf)
		if err != nil {
			kind := xerr.Fatal
			if xe, ok := err.(*xerr.Error); ok {
				kind = xe.Kind
			}
			b.Failures = append(b.Failures, SampleFailure{Timestamp: asOf, Kind: kind, Message: err.Error()})

			saveErr := o.Store.Save(ctx, Record{BatchID: b.ID, AsOfMs: asOf, Symbol: b.Request.Symbol, ConfigVersion: b.ConfigVersion, Failed: true, FailureReason: err.Error()})
			if saveErr != nil {
				return saveErr
			}

			if kind == xerr.Fatal {
				b.ConsecutiveFatal++
				if b.ConsecutiveFatal >= fatalStreakLimit {
					b.Status = enums.BatchFailed
					return nil
				}
			} else {
				b.ConsecutiveFatal = 0
			}
			b.NextIndex++
			continue
		}

		b.ConsecutiveFatal = 0
		if err := o.Store.Save(ctx, Record{BatchID: b.ID, AsOfMs: asOf, Symbol: b.Request.Symbol, ConfigVersion: b.ConfigVersion, State: ms}); err != nil {
			return err
		}
		b.NextIndex++
	}

	b.Status = enums.BatchCompleted
	return nil
}
