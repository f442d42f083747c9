package server

import (
	"context"
	"sort"
	"sync"
	"time"

	"crucible/internal/storage"
)

// ActiveRun is one execution currently in flight.
type ActiveRun struct {
	ID        string          `json:"id"`
	Kind      storage.RunKind `json:"kind"`
	StartedAt time.Time       `json:"started_at"`

	cancel context.CancelFunc
}

// RunManager tracks in-flight executions so they can be listed,
// canceled, and interrupted at shutdown.
type RunManager struct {
	mu   sync.RWMutex
	runs map[string]*ActiveRun
}

// NewRunManager creates an empty RunManager.
func NewRunManager() *RunManager {
	return &RunManager{
		runs: make(map[string]*ActiveRun),
	}
}

// Track registers an execution under id. The cancel func fires when the
// run is canceled or the server shuts down.
func (m *RunManager) Track(id string, kind storage.RunKind, cancel context.CancelFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[id] = &ActiveRun{
		ID:        id,
		Kind:      kind,
		StartedAt: time.Now().UTC(),
		cancel:    cancel,
	}
}

// Remove drops id from the registry without canceling it. Callers do
// this when the run settles.
func (m *RunManager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.runs, id)
}

// Cancel interrupts the run with the given id and reports whether it was
// in flight. The entry stays registered until the run settles.
func (m *RunManager) Cancel(id string) bool {
	m.mu.RLock()
	ar, ok := m.runs[id]
	m.mu.RUnlock()
	if ok {
		ar.cancel()
	}
	return ok
}

// List returns in-flight runs, oldest first.
func (m *RunManager) List() []ActiveRun {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ActiveRun, 0, len(m.runs))
	for _, ar := range m.runs {
		out = append(out, *ar)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// Count returns how many runs are in flight.
func (m *RunManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.runs)
}

// CancelAll interrupts everything in flight. Used at shutdown.
func (m *RunManager) CancelAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, ar := range m.runs {
		ar.cancel()
		delete(m.runs, id)
	}
}
