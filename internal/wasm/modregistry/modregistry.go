// Copyright 2024 The Modhost Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package modregistry implements the Mod Registry: the id-keyed collection
// of loaded guest handles, including the collision-disambiguation policy
// (suffix with "_<n>" for the smallest free n >= 1 and log a warning, rather
// than rejecting the load
// or silently overwriting the existing mod).
package modregistry

import (
	"fmt"
	"sync"

	"github.com/wasm-modhost/modhost/internal/log"
	"github.com/wasm-modhost/modhost/internal/wasm/guest"
)

// Registry is the id -> *guest.Handle map every Manager operation walks.
// Guarded by a mutex only for map structure changes (Insert/Remove/Get);
// callers iterating to invoke guest calls (update/draw passes) must copy
// the handle slice out first so the lock is never held across a guest
// invocation.
type Registry struct {
	mu      sync.Mutex
	order   []string
	entries map[string]*guest.Handle
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*guest.Handle)}
}

// Insert adds handle under wantID, disambiguating on collision by appending
// "_<n>" for the smallest n >= 1 that's free, and returns the id it was
// actually stored under. A collision is logged as a warning, never an
// error: id collisions are an operational fact of loading third-party mods,
// not a fatal condition.
func (r *Registry) Insert(wantID string, handle *guest.Handle, logger log.Logger) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := wantID
	if _, exists := r.entries[id]; exists {
		n := 1
		for {
			candidate := fmt.Sprintf("%s_%d", wantID, n)
			if _, exists := r.entries[candidate]; !exists {
				id = candidate
				break
			}
			n++
		}
		logger.WithFields(log.Fields{"requested_id": wantID, "assigned_id": id}).
			Warn("mod id collision, disambiguating")
	}

	r.entries[id] = handle
	r.order = append(r.order, id)
	return id
}

// Remove deletes id from the registry, returning the removed handle and
// whether it was present.
func (r *Registry) Remove(id string) (*guest.Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	handle, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	delete(r.entries, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return handle, true
}

// Get returns the handle registered under id, if any.
func (r *Registry) Get(id string) (*guest.Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.entries[id]
	return h, ok
}

// Snapshot returns the currently registered (id, handle) pairs in insertion
// order. Callers use this to iterate without holding the registry lock
// across each guest call.
func (r *Registry) Snapshot() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, Entry{ID: id, Handle: r.entries[id]})
	}
	return out
}

// Entry pairs a registry id with its handle, as returned by Snapshot.
type Entry struct {
	ID     string
	Handle *guest.Handle
}

// Count reports how many mods are currently loaded.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
