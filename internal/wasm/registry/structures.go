// Copyright 2024 The Modhost Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package registry implements the Callback Registry: an identifier-keyed
// store of guest-registered opaque "structures", scoped by mod id. Every
// structure is the one concrete shape a guest can register (id, type,
// data); no host-side behavior attaches to it.
package registry

import (
	"strings"
	"sync"

	"github.com/wasm-modhost/modhost/internal/errs"
	"github.com/wasm-modhost/modhost/internal/log"
)

// Structure is one guest-registered entity.
type Structure struct {
	ID       string
	TypeName string
	Data     string
}

// CallbackRegistry maps structure_id -> Structure with unique keys. By
// convention guests prefix ids with "<mod_id>:" so Cleanup can scope removal
// to a single unloading mod.
type CallbackRegistry struct {
	mu         sync.Mutex
	structures map[string]Structure
}

// New returns an empty CallbackRegistry.
func New() *CallbackRegistry {
	return &CallbackRegistry{structures: make(map[string]Structure)}
}

// Register inserts a new structure. It fails with ErrRegistryConflict if the
// id already exists — registration is never a silent overwrite.
func (r *CallbackRegistry) Register(s Structure) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.structures[s.ID]; exists {
		return errs.ErrRegistryConflict
	}
	r.structures[s.ID] = s
	return nil
}

// Unregister removes a structure by id. It fails with ErrNotFound if absent.
func (r *CallbackRegistry) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.structures[id]; !exists {
		return errs.ErrNotFound
	}
	delete(r.structures, id)
	return nil
}

// Get returns the structure registered under id, if any.
func (r *CallbackRegistry) Get(id string) (Structure, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.structures[id]
	return s, ok
}

// ListByType returns every structure whose TypeName matches, in no defined
// order. Host-only convenience — no guest import exposes it, it's for
// host-side inspection/tests only.
func (r *CallbackRegistry) ListByType(typeName string) []Structure {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Structure
	for _, s := range r.structures {
		if s.TypeName == typeName {
			out = append(out, s)
		}
	}
	return out
}

// Len reports how many structures are currently registered.
func (r *CallbackRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.structures)
}

// Cleanup removes every structure whose id begins with "<modID>:", atomically
// from the caller's perspective (held under the same lock as the scan), and
// logs the total removed.
func (r *CallbackRegistry) Cleanup(modID string, logger log.Logger) {
	prefix := modID + ":"

	r.mu.Lock()
	var removed []string
	for id := range r.structures {
		if strings.HasPrefix(id, prefix) {
			removed = append(removed, id)
		}
	}
	for _, id := range removed {
		delete(r.structures, id)
	}
	r.mu.Unlock()

	if len(removed) > 0 {
		log.Span(logger, "cleanup").WithField("mod_id", modID).Infof("%d structures automatically unloaded", len(removed))
	}
}
