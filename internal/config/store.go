package config

import (
	"sync"

	"github.com/perpintel/engine/internal/xerr"
)

const maxHistoryDepth = 200

// HistoryRecord is one append-only entry in the config history ring,
// grounded on the teacher's regime-change-history tracking pattern
// (internal/regime/detector.go's changeHistory).
type HistoryRecord struct {
	Config Config
	Reason string
}

// Store holds the single active Config version in memory and serves
// it to readers who take a reference at pipeline entry, per §5's
// "ConfigStore: single active version in memory; readers take a
// reference at pipeline entry" and §3's "readers ... never observe
// mid-run mutation". Updates use optimistic concurrency: a compare-
// and-swap guarded by one mutex (§5 "Locking discipline").
type Store struct {
	mu      sync.Mutex
	active  Config
	history []HistoryRecord
}

// NewStore creates a ConfigStore seeded with the given initial config,
// which must pass Validate.
func NewStore(initial Config) (*Store, error) {
	if err := Validate(initial); err != nil {
		return nil, err
	}
	return &Store{
		active:  initial,
		history: []HistoryRecord{{Config: initial, Reason: "initial"}},
	}, nil
}

// Active returns an immutable snapshot of the currently active config.
// Pipeline callers must take this reference once at entry and never
// re-read mid-run.
func (s *Store) Active() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active.Clone()
}

// Update performs an optimistic-concurrency write: proposed is
// accepted iff basedOnVersion equals the current active version,
// otherwise VersionConflict is returned with the current version
// attached to Context (§5, §7).
func (s *Store) Update(basedOnVersion int, proposed Config, reason string) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if basedOnVersion != s.active.Version {
		return Config{}, xerr.New(xerr.VersionConflict, "config write against stale version",
			"basedOnVersion", basedOnVersion, "currentVersion", s.active.Version)
	}
	if err := Validate(proposed); err != nil {
		return Config{}, err
	}
	if err := ValidateDelta(s.active, proposed); err != nil {
		return Config{}, err
	}

	proposed.Version = s.active.Version + 1
	s.active = proposed
	s.history = append(s.history, HistoryRecord{Config: proposed, Reason: reason})
	if len(s.history) > maxHistoryDepth {
		s.history = s.history[len(s.history)-maxHistoryDepth:]
	}
	return s.active.Clone(), nil
}

// History returns the append-only version history, oldest first.
func (s *Store) History() []HistoryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]HistoryRecord, len(s.history))
	copy(out, s.history)
	return out
}

// LoadVersion returns the byte-identical config for a prior version
// (§8 invariant 5: config immutability). Returns InsufficientData if
// the version fell out of the bounded history ring.
func (s *Store) LoadVersion(version int) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.history {
		if h.Config.Version == version {
			return h.Config.Clone(), nil
		}
	}
	return Config{}, xerr.New(xerr.InsufficientData, "config version not retained in history", "version", version)
}

// Rollback reactivates a prior version as a new version at the head of
// history (rollback never rewrites old history entries — it appends).
func (s *Store) Rollback(version int) (Config, error) {
	target, err := s.LoadVersion(version)
	if err != nil {
		return Config{}, err
	}
	s.mu.Lock()
	current := s.active.Version
	s.mu.Unlock()

	target.Version = current
	return s.Update(current, target, "rollback")
}

// Export returns the active config for round-tripping through
// Import (§8 round-trip law 7).
func (s *Store) Export() Config {
	return s.Active()
}

// Import validates payload as a proposed config without applying it,
// returning the same object when it is identical to the active config
// (zero-change round trip, §8 law 7).
func (s *Store) Import(payload Config) (proposed Config, changed bool, err error) {
	active := s.Active()
	if err := Validate(payload); err != nil {
		return Config{}, false, err
	}
	changed = !sameParameters(active, payload)
	return payload, changed, nil
}

func sameParameters(a, b Config) bool {
	if len(a.Weights.Signals) != len(b.Weights.Signals) {
		return false
	}
	for k, v := range a.Weights.Signals {
		if bv, ok := b.Weights.Signals[k]; !ok || bv != v {
			return false
		}
	}
	if len(a.Weights.Timeframes) != len(b.Weights.Timeframes) || len(a.Thresholds) != len(b.Thresholds) {
		return false
	}
	for k, v := range a.Weights.Timeframes {
		if bv, ok := b.Weights.Timeframes[k]; !ok || bv != v {
			return false
		}
	}
	for k, v := range a.Thresholds {
		if bv, ok := b.Thresholds[k]; !ok || bv != v {
			return false
		}
	}
	if a.Gates != b.Gates || a.Penalties != b.Penalties || a.Bounds != b.Bounds ||
		a.Divergence != b.Divergence || a.Outcome != b.Outcome {
		return false
	}
	return true
}
