// Copyright 2024 The Modhost Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package abi

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wasm-modhost/modhost/internal/wasm/guest"
)

// exported function names resolved once per instance: the component-model
// mangled names wit-bindgen-go would emit for a `main` resource's
// constructor and methods.
const (
	fnInfo        = "info"
	fnConstructor = "[constructor]main"
	fnInit        = "[method]main.init"
	fnUpdate      = "[method]main.update"
	fnDraw        = "[method]main.draw"
	fnShutdown    = "[method]main.shutdown"
)

// Binding is the wazero-backed implementation of guest.Binding: one
// compiled module instantiated into its own store, with the six guest
// exports resolved once at construction time and cached alongside the
// instance rather than looked up by name on every call.
type Binding struct {
	runtime  wazero.Runtime
	instance api.Module

	info        api.Function
	constructor api.Function
	init        api.Function
	update      api.Function
	draw        api.Function
	shutdown    api.Function
}

var _ guest.Binding = (*Binding)(nil)

// Compile decodes and validates code as a component, without instantiating
// it. The loader wraps a failure here in errs.ErrDecode: the bytes simply
// aren't a valid component, distinct from a valid component whose imports
// can't be satisfied or whose instantiation traps.
func Compile(ctx context.Context, runtime wazero.Runtime, code []byte) (wazero.CompiledModule, error) {
	compiled, err := runtime.CompileModule(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	return compiled, nil
}

// Instantiate instantiates an already-compiled module against runtime,
// which must already have every Host API Surface module registered (see
// hostapi). It resolves and caches the six guest exports, failing with a
// descriptive error if any are missing — the loader wraps any failure here
// in errs.ErrInstantiate.
func Instantiate(ctx context.Context, runtime wazero.Runtime, compiled wazero.CompiledModule, moduleName string) (*Binding, error) {
	cfg := wazero.NewModuleConfig().WithName(moduleName)
	instance, err := runtime.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		return nil, fmt.Errorf("instantiate: %w", err)
	}

	b := &Binding{runtime: runtime, instance: instance}
	exports := map[string]*api.Function{
		fnInfo:        &b.info,
		fnConstructor: &b.constructor,
		fnInit:        &b.init,
		fnUpdate:      &b.update,
		fnDraw:        &b.draw,
		fnShutdown:    &b.shutdown,
	}
	for name, slot := range exports {
		fn := instance.ExportedFunction(name)
		if fn == nil {
			_ = instance.Close(ctx)
			return nil, fmt.Errorf("guest does not export %q", name)
		}
		*slot = fn
	}
	return b, nil
}

// Info calls the guest's info export. info returns a list<string>, which the
// canonical ABI lowers through an indirect return: the host allocates an
// 8-byte return area via the guest's own cabi_realloc, passes its address as
// info's sole argument, and after the call reads back the (list_ptr,
// list_len) header the guest wrote there.
func (b *Binding) Info(ctx context.Context) ([5]string, error) {
	var out [5]string

	retAreaPtr, err := AllocRetArea(ctx, b.instance)
	if err != nil {
		return out, fmt.Errorf("info: %w", err)
	}

	if _, err := b.info.Call(ctx, api.EncodeU32(retAreaPtr)); err != nil {
		return out, fmt.Errorf("info: %w", err)
	}

	fields, err := ReadStringList(b.instance, retAreaPtr)
	if err != nil {
		return out, fmt.Errorf("info: %w", err)
	}
	if len(fields) != 5 {
		return out, fmt.Errorf("info: expected 5 strings, got %d", len(fields))
	}
	copy(out[:], fields)
	return out, nil
}

// Construct calls the resource constructor, returning the owned handle as a
// plain i32 — the canonical ABI representation of a resource is an opaque
// table index, never a raw pointer into guest memory.
func (b *Binding) Construct(ctx context.Context) (int32, error) {
	res, err := b.constructor.Call(ctx)
	if err != nil {
		return 0, fmt.Errorf("construct: %w", err)
	}
	if len(res) != 1 {
		return 0, fmt.Errorf("construct: expected 1 return value, got %d", len(res))
	}
	return api.DecodeI32(res[0]), nil
}

func (b *Binding) CallInit(ctx context.Context, resource int32) error {
	_, err := b.init.Call(ctx, api.EncodeI32(resource))
	return err
}

func (b *Binding) CallUpdate(ctx context.Context, resource int32, deltaTime float32) error {
	_, err := b.update.Call(ctx, api.EncodeI32(resource), api.EncodeF32(deltaTime))
	return err
}

func (b *Binding) CallDraw(ctx context.Context, resource int32) error {
	_, err := b.draw.Call(ctx, api.EncodeI32(resource))
	return err
}

func (b *Binding) CallShutdown(ctx context.Context, resource int32) error {
	_, err := b.shutdown.Call(ctx, api.EncodeI32(resource))
	return err
}

// Close releases the instance. Closing the instance drops the resource
// table backing any outstanding handle: the resource's lifetime is tied to
// the store, and dies with it.
func (b *Binding) Close(ctx context.Context) error {
	return b.instance.Close(ctx)
}
