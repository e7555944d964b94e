// Package router selects which distributed worker should run a task,
// generalized from the teacher's engine-selection router ("which SQL
// engine can answer this query") to "which worker address can serve
// this task's capability requirements". Selection stays rule-based and
// deterministic: no cost estimation, no load-based scoring beyond a
// fixed priority tiebreaker, the same constraint the teacher's router
// documents for engine selection.
package router

import (
	"sort"
	"sync"

	"github.com/canonica-labs/distframe/internal/capabilities"
	enginerrors "github.com/canonica-labs/distframe/internal/errors"
)

// Worker is one registered distributed worker: an address internal/
// distworker.Dial can connect to, the capability set it advertises, and
// whether it's currently considered healthy.
type Worker struct {
	// Addr is the gRPC address (host:port) internal/distworker dials.
	Addr string

	// Capabilities are the resource classes this worker can serve.
	Capabilities capabilities.Set

	// Available is false while the worker is known-unhealthy (failed a
	// health probe, evicted after repeated dispatch failures).
	Available bool

	// Priority breaks ties among equally-capable workers; lower wins,
	// matching the teacher's router's engine-priority convention.
	Priority int
}

// HasAll reports whether w advertises every capability in required.
func (w *Worker) HasAll(required capabilities.Set) bool {
	return w.Capabilities.HasAll(required)
}

// WorkerRegistry tracks every distributed worker the engine knows
// about and selects eligible addresses by capability. It is used by
// internal/status; distworker.DialPool takes its addresses from config.
type WorkerRegistry struct {
	mu      sync.RWMutex
	workers map[string]*Worker
}

// NewWorkerRegistry creates an empty registry.
func NewWorkerRegistry() *WorkerRegistry {
	return &WorkerRegistry{workers: make(map[string]*Worker)}
}

// Register adds or replaces a worker entry.
func (r *WorkerRegistry) Register(w *Worker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workers[w.Addr] = w
}

// SetAvailability updates a worker's health flag, called when a worker
// fails a dispatch or a health probe (and, to clear it, when it
// recovers).
func (r *WorkerRegistry) SetAvailability(addr string, available bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.workers[addr]; ok {
		w.Available = available
	}
}

// Eligible returns every available worker's address whose capability
// set satisfies required, ordered by ascending priority. Returns
// ErrWorkerUnavailable if none qualify, carrying the registry's size as
// PoolSize so the error explains itself.
func (r *WorkerRegistry) Eligible(required capabilities.Set) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var candidates []*Worker
	for _, w := range r.workers {
		if !w.Available || !w.HasAll(required) {
			continue
		}
		candidates = append(candidates, w)
	}
	if len(candidates) == 0 {
		return nil, enginerrors.NewWorkerUnavailable(len(r.workers))
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Priority < candidates[j].Priority })

	addrs := make([]string, len(candidates))
	for i, c := range candidates {
		addrs[i] = c.Addr
	}
	return addrs, nil
}

// All returns every registered worker address, available or not, for
// diagnostics (enginectl status).
func (r *WorkerRegistry) All() []*Worker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Worker, 0, len(r.workers))
	for _, w := range r.workers {
		out = append(out, w)
	}
	return out
}
