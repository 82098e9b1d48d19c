/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package registry holds the in-memory station catalog served by the relay.
package registry

import (
	"sync"

	"github.com/friendsincode/skald_relay/internal/models"
)

// Registry is a replace-all snapshot of stations keyed by id. Load swaps the
// whole map under the write lock, so readers observe either the old set or
// the new set, never a mix.
type Registry struct {
	mu       sync.RWMutex
	stations map[string]models.Station
	order    []string // load order, for stable listings
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{stations: make(map[string]models.Station)}
}

// Load replaces the entire station set atomically.
func (r *Registry) Load(stations []models.Station) {
	next := make(map[string]models.Station, len(stations))
	order := make([]string, 0, len(stations))
	for _, s := range stations {
		if _, dup := next[s.ID]; dup {
			continue
		}
		next[s.ID] = s
		order = append(order, s.ID)
	}

	r.mu.Lock()
	r.stations = next
	r.order = order
	r.mu.Unlock()
}

// Get looks up a station by id.
func (r *Registry) Get(id string) (models.Station, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stations[id]
	return s, ok
}

// List returns a snapshot of all stations in load order.
func (r *Registry) List() []models.Station {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Station, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.stations[id])
	}
	return out
}

// Count returns the number of stations in the current snapshot.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.stations)
}
