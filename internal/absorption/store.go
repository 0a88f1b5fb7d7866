package absorption

import (
	"context"
	"sync"

	"github.com/perpintel/engine/internal/enums"
	"github.com/perpintel/engine/internal/xerr"
)

// Store persists absorption events, enforcing a unique-open constraint
// on (symbol, timeframe, cvdDirection) while unresolved (§5, §6.4).
type Store interface {
	Open(ctx context.Context, symbol, timeframe, direction string) (*Event, error)
	Insert(ctx context.Context, ev Event) error
	Update(ctx context.Context, ev Event) error
	Unresolved(ctx context.Context) ([]Event, error)
}

// Memory is an in-process Store for tests and single-node demo mode.
type Memory struct {
	mu     sync.Mutex
	nextID int
	events map[string]Event // keyed by ID
}

// NewMemory constructs an empty in-memory absorption store.
func NewMemory() *Memory {
	return &Memory{events: make(map[string]Event)}
}

func openKey(symbol, timeframe, direction string) string {
	return symbol + "|" + timeframe + "|" + direction
}

// Open returns the currently unresolved event for the triple, if any.
func (m *Memory) Open(ctx context.Context, symbol, timeframe, direction string) (*Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ev := range m.events {
		if ev.Symbol == symbol && ev.Timeframe == timeframe && ev.CVDDirection == direction && ev.Status == enums.AbsorptionDetecting {
			out := ev
			return &out, nil
		}
	}
	return nil, nil
}

// Insert adds a new DETECTING event. A duplicate open insert for the
// same triple is a benign no-op (§5).
func (m *Memory) Insert(ctx context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.events {
		if existing.Symbol == ev.Symbol && existing.Timeframe == ev.Timeframe && existing.CVDDirection == ev.CVDDirection && existing.Status == enums.AbsorptionDetecting {
			return nil
		}
	}
	m.nextID++
	ev.ID = idFor(m.nextID)
	m.events[ev.ID] = ev
	return nil
}

// Update persists a resolved/expired/invalidated transition.
func (m *Memory) Update(ctx context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[ev.ID]; !ok {
		return xerr.New(xerr.Fatal, "absorption event not found", "id", ev.ID)
	}
	m.events[ev.ID] = ev
	return nil
}

// Unresolved returns every event still in DETECTING status.
func (m *Memory) Unresolved(ctx context.Context) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, 0)
	for _, ev := range m.events {
		if ev.Status == enums.AbsorptionDetecting {
			out = append(out, ev)
		}
	}
	return out, nil
}

func idFor(n int) string {
	const digits = "0123456789abcdef"
	if n == 0 {
		return "0"
	}
	var buf [16]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = digits[n%16]
		n /= 16
	}
	return "ae" + string(buf[i:])
}
