package replay

import (
	"sync"

	"github.com/perpintel/engine/internal/xerr"
)

// BatchRegistry holds in-memory Batch objects by ID so the HTTP layer
// can look up status/pause/resume for a batch across requests. The
// durable record of what ran lives in Store; this registry is only
// the live lifecycle handle (§6.2 /replay/status, /pause, /resume).
type BatchRegistry struct {
	mu      sync.Mutex
	batches map[string]*Batch
}

// NewBatchRegistry builds an empty registry.
func NewBatchRegistry() *BatchRegistry {
	return &BatchRegistry{batches: make(map[string]*Batch)}
}

// Put registers b under its own ID.
func (r *BatchRegistry) Put(b *Batch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches[b.ID] = b
}

// Get returns the batch for id, or an InsufficientData error if unknown.
func (r *BatchRegistry) Get(id string) (*Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.batches[id]
	if !ok {
		return nil, xerr.New(xerr.InsufficientData, "unknown batch", "id", id)
	}
	return b, nil
}

// Delete removes a batch from the registry.
func (r *BatchRegistry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.batches, id)
}
