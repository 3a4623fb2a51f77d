// Copyright 2024 The Modhost Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package guest

import (
	"context"
	"fmt"

	"github.com/wasm-modhost/modhost/internal/errs"
)

// resourceUnset marks a Handle that has not yet completed Construct.
const resourceUnset = int32(-1)

// Handle is the single concrete guest-handle type every loaded mod is
// represented by: a homogeneously-invokable guest handle, no trait-object
// polymorphism. It owns the Binding exclusively; nothing else may call into
// the same Binding concurrently, matching the single-threaded cooperative
// scheduling model the Manager drives.
type Handle struct {
	binding  Binding
	info     Info
	resource int32 // bound borrow of the guest root resource; resourceUnset until Construct.
	shutdown bool  // true once Shutdown has returned, successfully or not.
}

// New wraps binding in a Handle with the zero-value Info until CallInfo
// succeeds.
func New(binding Binding) *Handle {
	return &Handle{binding: binding, resource: resourceUnset}
}

// Info returns the most recently populated identity record.
func (h *Handle) Info() Info { return h.info }

// CallInfo invokes the guest's exported info function and assigns the five
// fields in order. It is idempotent and may be re-called.
func (h *Handle) CallInfo(ctx context.Context) error {
	fields, err := h.binding.Info(ctx)
	if err != nil {
		return fmt.Errorf("call info: %w: %v", errs.ErrContract, err)
	}

	h.info = Info{
		ID:          fields[0],
		Name:        fields[1],
		Version:     fields[2],
		Author:      fields[3],
		Description: fields[4],
	}
	return nil
}

// Construct creates the guest's root resource and binds a borrow of it for
// the handle's entire remaining lifetime. This happens during load, before
// any mod's init is called, so that the Manager's later, separate pass over
// every loaded mod only needs to invoke the init method itself.
func (h *Handle) Construct(ctx context.Context) error {
	resource, err := h.binding.Construct(ctx)
	if err != nil {
		return fmt.Errorf("construct: %w: %v", errs.ErrCall, err)
	}
	h.resource = resource
	return nil
}

// Init calls the guest's init method with the bound resource. The caller
// clones a fresh Context per guest before calling this, so no guest can
// observe another guest's mutations to it.
func (h *Handle) Init(ctx context.Context, _ Context) error {
	if h.resource == resourceUnset {
		return fmt.Errorf("init before construct: %w", errs.ErrCall)
	}
	if err := h.binding.CallInit(ctx, h.resource); err != nil {
		return fmt.Errorf("init: %w: %v", errs.ErrCall, err)
	}
	return nil
}

// Update calls the guest's update method with the bound resource and the
// frame delta time. Returns ErrCall if Construct has not completed.
func (h *Handle) Update(ctx context.Context, deltaTime float32) error {
	if h.resource == resourceUnset {
		return fmt.Errorf("update before construct: %w", errs.ErrCall)
	}
	if err := h.binding.CallUpdate(ctx, h.resource, deltaTime); err != nil {
		return fmt.Errorf("update: %w: %v", errs.ErrCall, err)
	}
	return nil
}

// Draw calls the guest's draw method with the bound resource.
func (h *Handle) Draw(ctx context.Context) error {
	if h.resource == resourceUnset {
		return fmt.Errorf("draw before construct: %w", errs.ErrCall)
	}
	if err := h.binding.CallDraw(ctx, h.resource); err != nil {
		return fmt.Errorf("draw: %w: %v", errs.ErrCall, err)
	}
	return nil
}

// Shutdown calls the guest's shutdown method, then closes the Binding
// regardless of whether the call itself succeeded. After this returns the
// Handle must not be invoked again; Shutdown itself is safe to call more
// than once (the second call is a no-op returning nil).
func (h *Handle) Shutdown(ctx context.Context) error {
	if h.shutdown {
		return nil
	}
	h.shutdown = true

	var callErr error
	if h.resource != resourceUnset {
		if err := h.binding.CallShutdown(ctx, h.resource); err != nil {
			callErr = fmt.Errorf("shutdown: %w: %v", errs.ErrCall, err)
		}
	}

	if err := h.binding.Close(ctx); err != nil && callErr == nil {
		callErr = fmt.Errorf("close: %w: %v", errs.ErrCall, err)
	}
	return callErr
}
