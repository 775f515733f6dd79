package engine

import (
	"sync"

	"temporalos-be/internal/metrics"
)

// Registry holds one Machine per session.
type Registry struct {
	deps Deps
	opts Options

	mu       sync.Mutex
	machines map[string]*Machine
}

func NewRegistry(deps Deps, opts Options) *Registry {
	return &Registry{deps: deps, opts: opts, machines: make(map[string]*Machine)}
}

// Start returns the session's engine, creating it on first use.
func (r *Registry) Start(sessionID string) (*Machine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.machines[sessionID]; ok {
		return m, false
	}
	m := New(sessionID, r.deps, r.opts)
	r.machines[sessionID] = m
	metrics.ActiveEngines.Set(float64(len(r.machines)))
	return m, true
}

func (r *Registry) Get(sessionID string) (*Machine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.machines[sessionID]
	return m, ok
}

// Remove closes and forgets the session's engine.
func (r *Registry) Remove(sessionID string) bool {
	r.mu.Lock()
	m, ok := r.machines[sessionID]
	delete(r.machines, sessionID)
	metrics.ActiveEngines.Set(float64(len(r.machines)))
	r.mu.Unlock()

	if ok {
		m.Close()
	}
	return ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.machines)
}

// Close shuts every engine down.
func (r *Registry) Close() {
	r.mu.Lock()
	all := r.machines
	r.machines = make(map[string]*Machine)
	metrics.ActiveEngines.Set(0)
	r.mu.Unlock()

	for _, m := range all {
		m.Close()
	}
}
