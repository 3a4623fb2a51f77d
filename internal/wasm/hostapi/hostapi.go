// Copyright 2024 The Modhost Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package hostapi registers the Host API Surface as wazero host modules:
// the functions a guest imports to draw, read input, log, and
// register/unregister structures. One host module is built per import
// namespace, resolving shared state by closure rather than by global
// lookup.
package hostapi

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wasm-modhost/modhost/internal/log"
	"github.com/wasm-modhost/modhost/internal/metrics"
	"github.com/wasm-modhost/modhost/internal/wasm/abi"
	"github.com/wasm-modhost/modhost/internal/wasm/registry"
	"github.com/wasm-modhost/modhost/internal/wasm/storages"
)

// Fatal latches the first utils/fatal request a guest makes.
// Host functions must never abort a guest call outright, so this records
// the request instead; the Manager checks it once each update or draw call
// returns and force-unloads the mod.
type Fatal struct {
	reason string
	set    bool
}

// Requested reports whether the guest has called utils/fatal since the
// latch was created or last Reset, and with what message.
func (f *Fatal) Requested() (string, bool) { return f.reason, f.set }

// Reset clears the latch.
func (f *Fatal) Reset() { f.reason, f.set = "", false }

func (f *Fatal) set_(reason string) {
	if !f.set {
		f.reason, f.set = reason, true
	}
}

// Deps bundles the shared state every Host API Surface function closes
// over. Storages and Registry are shared by reference across every mod's
// host module instance (one CallbackRegistry and one Storages per Manager);
// Fatal and ModID are unique per guest.
type Deps struct {
	ModID     string
	Storages  *storages.Storages
	Registry  *registry.CallbackRegistry
	Logger    log.Logger
	Metrics   *metrics.Metrics
	Fatal     *Fatal
}

// Register builds and instantiates the graphics, input, utils, and
// structures host modules into runtime. It must be called before the guest
// module is instantiated against the same runtime, matching
// wazero's requirement that host modules resolve a guest's imports at
// instantiation time.
func Register(ctx context.Context, runtime wazero.Runtime, deps Deps) error {
	if err := registerGraphics(ctx, runtime, deps); err != nil {
		return fmt.Errorf("register graphics: %w", err)
	}
	if err := registerInput(ctx, runtime, deps); err != nil {
		return fmt.Errorf("register input: %w", err)
	}
	if err := registerUtils(ctx, runtime, deps); err != nil {
		return fmt.Errorf("register utils: %w", err)
	}
	if err := registerStructures(ctx, runtime, deps); err != nil {
		return fmt.Errorf("register structures: %w", err)
	}
	return nil
}

func registerGraphics(ctx context.Context, runtime wazero.Runtime, deps Deps) error {
	b := runtime.NewHostModuleBuilder("graphics")

	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			r := storages.Rect{
				X: api.DecodeF32(stack[0]),
				Y: api.DecodeF32(stack[1]),
				W: api.DecodeF32(stack[2]),
				H: api.DecodeF32(stack[3]),
			}
			deps.Storages.AddTexture(r)
		}),
			[]api.ValueType{api.ValueTypeF32, api.ValueTypeF32, api.ValueTypeF32, api.ValueTypeF32},
			[]api.ValueType{},
		).
		WithParameterNames("x", "y", "w", "h").
		Export("draw-rect")

	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			deps.Storages.SetColor(saturate(
				api.DecodeF32(stack[0]), api.DecodeF32(stack[1]),
				api.DecodeF32(stack[2]), api.DecodeF32(stack[3]),
			))
		}),
			[]api.ValueType{api.ValueTypeF32, api.ValueTypeF32, api.ValueTypeF32, api.ValueTypeF32},
			[]api.ValueType{},
		).
		WithParameterNames("r", "g", "b", "a").
		Export("color")

	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			deps.Storages.SetColor(storages.RGBA{
				R: uint8(api.DecodeU32(stack[0])),
				G: uint8(api.DecodeU32(stack[1])),
				B: uint8(api.DecodeU32(stack[2])),
				A: uint8(api.DecodeU32(stack[3])),
			})
		}),
			[]api.ValueType{api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32},
			[]api.ValueType{},
		).
		WithParameterNames("r", "g", "b", "a").
		Export("color_rgba")

	// draw-debug tags a synthetic 1x1 rect at the origin, colored by the
	// pre-call texture count, so a guest can sanity-check its draw calls are
	// landing without needing real asset pipelines. It tags only that rect
	// and leaves the frame's current color untouched, so it never bleeds
	// into a draw-rect call that follows it.
	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, _ []uint64) {
			count := deps.Storages.TextureCount()
			deps.Storages.AddTaggedTexture(storages.Rect{X: 0, Y: 0, W: 1, H: 1}, storages.RGBA{A: uint8(min(count, 255))})
		}),
			[]api.ValueType{},
			[]api.ValueType{},
		).
		Export("draw-debug")

	_, err := b.Instantiate(ctx)
	return err
}

func registerInput(ctx context.Context, runtime wazero.Runtime, deps Deps) error {
	b := runtime.NewHostModuleBuilder("input")

	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			ws := deps.Storages.GetWindowSize()
			stack[0] = api.EncodeF32(ws.W)
			stack[1] = api.EncodeF32(ws.H)
		}),
			[]api.ValueType{},
			[]api.ValueType{api.ValueTypeF32, api.ValueTypeF32},
		).
		Export("get-window-size")

	_, err := b.Instantiate(ctx)
	return err
}

func registerUtils(ctx context.Context, runtime wazero.Runtime, deps Deps) error {
	b := runtime.NewHostModuleBuilder("utils")

	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, mod api.Module, stack []uint64) {
			msg, err := abi.ReadStringArg(mod, stack, 0)
			if err != nil {
				deps.Logger.Warnf("utils/log: %v", err)
				return
			}
			log.Span(deps.Logger, "guest").WithField("mod_id", deps.ModID).Info(msg)
		}),
			[]api.ValueType{api.ValueTypeI32, api.ValueTypeI32},
			[]api.ValueType{},
		).
		WithParameterNames("ptr", "len").
		Export("log")

	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, mod api.Module, stack []uint64) {
			msg, err := abi.ReadStringArg(mod, stack, 0)
			if err != nil {
				msg = "<unreadable fatal message>"
			}
			deps.Fatal.set_(msg)
			if deps.Metrics != nil {
				deps.Metrics.GuestCallFailed()
			}
		}),
			[]api.ValueType{api.ValueTypeI32, api.ValueTypeI32},
			[]api.ValueType{},
		).
		WithParameterNames("ptr", "len").
		Export("fatal")

	_, err := b.Instantiate(ctx)
	return err
}

func registerStructures(ctx context.Context, runtime wazero.Runtime, deps Deps) error {
	b := runtime.NewHostModuleBuilder("structures")

	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, mod api.Module, stack []uint64) {
			id, errID := abi.ReadStringArg(mod, stack, 0)
			typeName, errType := abi.ReadStringArg(mod, stack, 2)
			data, errData := abi.ReadStringArg(mod, stack, 4)
			if errID != nil || errType != nil || errData != nil {
				stack[0] = api.EncodeI32(0)
				return
			}

			err := deps.Registry.Register(registry.Structure{ID: id, TypeName: typeName, Data: data})
			if err != nil {
				stack[0] = api.EncodeI32(0)
				return
			}
			stack[0] = api.EncodeI32(1)
		}),
			[]api.ValueType{api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32},
			[]api.ValueType{api.ValueTypeI32},
		).
		WithParameterNames("id_ptr", "id_len", "type_ptr", "type_len", "data_ptr", "data_len").
		Export("register-structure")

	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, mod api.Module, stack []uint64) {
			id, err := abi.ReadStringArg(mod, stack, 0)
			if err != nil {
				stack[0] = api.EncodeI32(0)
				return
			}
			if err := deps.Registry.Unregister(id); err != nil {
				stack[0] = api.EncodeI32(0)
				return
			}
			stack[0] = api.EncodeI32(1)
		}),
			[]api.ValueType{api.ValueTypeI32, api.ValueTypeI32},
			[]api.ValueType{api.ValueTypeI32},
		).
		WithParameterNames("id_ptr", "id_len").
		Export("unregister-structure")

	_, err := b.Instantiate(ctx)
	return err
}

// saturate maps four 0..1 floats (clamping out-of-range input rather than
// trapping: host imports are never allowed to fail a guest call on bad
// input) onto 8-bit channels.
func saturate(r, g, b, a float32) storages.RGBA {
	return storages.RGBA{R: clamp255(r), G: clamp255(g), B: clamp255(b), A: clamp255(a)}
}

func clamp255(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v * 255)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
