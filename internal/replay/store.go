package replay

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/perpintel/engine/internal/state"
)

// Memory is an in-memory Store keyed on (symbol, asOfTimestamp,
// configVersion), the triple Exists checks; the replay_states table
// that Postgres writes is unique on (batch_id, as_of_ms) instead.
type Memory struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewMemory builds an empty in-memory replay Store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]Record)}
}

func memKey(symbol string, asOfMs int64, configVersion int) string {
	return symbol + "|" + strconv.FormatInt(asOfMs, 10) + "|" + strconv.Itoa(configVersion)
}

func (m *Memory) Exists(_ context.Context, symbol string, asOfMs int64, configVersion int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[memKey(symbol, asOfMs, configVersion)]
	return ok, nil
}

func (m *Memory) Save(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[memKey(rec.Symbol, rec.AsOfMs, rec.ConfigVersion)] = rec
	return nil
}

// All returns every saved record for a batch, in insertion order is not
// guaranteed; callers needing ordering should sort by AsOfMs.
func (m *Memory) All(batchID string) []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Record
	for _, r := range m.records {
		if r.BatchID == batchID {
			out = append(out, r)
		}
	}
	return out
}

// Results implements the same non-failed, as-of-ordered state list
// Postgres.Results returns, so httpapi can treat either Store
// implementation identically for /replay/results and /replay/scoreboard.
func (m *Memory) Results(_ context.Context, batchID string) ([]state.MarketState, error) {
	recs := m.All(batchID)
	sort.Slice(recs, func(i, j int) bool { return recs[i].AsOfMs < recs[j].AsOfMs })
	out := make([]state.MarketState, 0, len(recs))
	for _, r := range recs {
		if r.Failed {
			continue
		}
		out = append(out, r.State)
	}
	return out, nil
}
