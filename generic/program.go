/*
program.go - Program registration and lookup

PURPOSE:
  Provides a registry where the program packages announce the programs they
  run. The API uses it to list programs and the payment ledger uses it to
  refuse payments against a program nobody runs.

HOW IT WORKS:
  1. Program packages define their Program implementations
  2. The server registers them at startup (kollel programs come from config)
  3. Lookups go through the registry by ProgramID

USAGE:
  registry := generic.NewRegistry()
  registry.Register(incentiveEngine.Program())
  p, ok := registry.Lookup("kollel")
*/
package generic

import (
	"sort"
	"sync"
)

// Tracks group programs by how they pay.
const (
	TrackHandler = "handler" // daily bonuses
	TrackKollel  = "kollel"  // pro-rated monthly salary
)

// Program identifies an attendance program.
type Program interface {
	ProgramID() ProgramID
	ProgramTrack() string
	ProgramName() string
}

// =============================================================================
// PROGRAM REGISTRY
// =============================================================================

type Registry struct {
	mu       sync.RWMutex
	programs map[ProgramID]Program
}

func NewRegistry() *Registry {
	return &Registry{programs: make(map[ProgramID]Program)}
}

// Register adds or replaces a program.
func (r *Registry) Register(p Program) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.programs[p.ProgramID()] = p
}

// Lookup finds a registered program by ID.
func (r *Registry) Lookup(id ProgramID) (Program, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.programs[id]
	return p, ok
}

// List returns all registered programs ordered by ID.
func (r *Registry) List() []Program {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Program, 0, len(r.programs))
	for _, p := range r.programs {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ProgramID() < result[j].ProgramID() })
	return result
}

// ListByTrack returns programs for a specific track.
func (r *Registry) ListByTrack(track string) []Program {
	var result []Program
	for _, p := range r.List() {
		if p.ProgramTrack() == track {
			result = append(result, p)
		}
	}
	return result
}
