// Copyright 2024 The Modhost Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package loader implements the Guest Loader: the procedure that turns a
// path on disk into a running, constructed guest handle. Each stage reads
// bytes, decodes, and surfaces a distinct error kind, with a configurable
// file extension rather than a single fixed one.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/tetratelabs/wazero"

	"github.com/wasm-modhost/modhost/internal/errs"
	"github.com/wasm-modhost/modhost/internal/log"
	"github.com/wasm-modhost/modhost/internal/metrics"
	"github.com/wasm-modhost/modhost/internal/wasm/abi"
	"github.com/wasm-modhost/modhost/internal/wasm/guest"
	"github.com/wasm-modhost/modhost/internal/wasm/hostapi"
	"github.com/wasm-modhost/modhost/internal/wasm/registry"
	"github.com/wasm-modhost/modhost/internal/wasm/storages"
)

// DefaultExtension is the file extension a Loader looks for when walking a
// mods directory.
const DefaultExtension = ".wasm"

// Deps bundles the state every loaded guest's host imports are bound
// against, shared across every mod a single Loader instantiates.
type Deps struct {
	Storages *storages.Storages
	Registry *registry.CallbackRegistry
	Logger   log.Logger
	Metrics  *metrics.Metrics
}

// Loader compiles and instantiates guest components found on disk.
type Loader struct {
	deps           Deps
	extension      string
	memoryMinPages uint32
	memoryMaxPages uint32 // 0 means unbounded
}

// New returns a Loader using DefaultExtension until WithExtension overrides
// it, with no memory ceiling until WithMemoryLimits sets one.
func New(deps Deps) *Loader {
	return &Loader{deps: deps, extension: DefaultExtension}
}

// WithExtension overrides the file extension Discover matches.
func (l *Loader) WithExtension(ext string) *Loader {
	l.extension = ext
	return l
}

// WithMemoryLimits sets the per-guest linear memory ceiling every
// subsequent Load applies to its runtime. minPages is only stored; the
// Loader does not read it again, and wazero has no host-side
// knob to force a module's own minimum higher, so only maxPages is
// actually enforced, via RuntimeConfig.WithMemoryLimitPages.
func (l *Loader) WithMemoryLimits(minPages, maxPages uint32) *Loader {
	l.memoryMinPages, l.memoryMaxPages = minPages, maxPages
	return l
}

// Discover lists every file under dir whose extension matches the
// configured component extension, sorted by file name.
func (l *Loader) Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("discover: %w: %v", errs.ErrRead, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != l.extension {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return paths, nil
}

// Loaded is the result of successfully loading one guest: its bound handle,
// the identity it reported, and the fatal-request latch the Manager checks
// after every subsequent call.
type Loaded struct {
	Handle *guest.Handle
	Info   guest.Info
	Fatal  *hostapi.Fatal
	close  func(context.Context) error
}

// Close releases the guest's wazero runtime. The Manager calls this from
// unload, after the handle's own Shutdown has already run.
func (l *Loaded) Close(ctx context.Context) error {
	return l.close(ctx)
}

// Load runs the load procedure up to and including constructing the
// guest's root resource: read bytes, compile, link the Host API Surface,
// instantiate, resolve the guest ABI, call info, construct. It does not
// call init — that is a separate pass Manager.CallInit makes over every
// loaded mod. Each stage here is wrapped in its own error kind; the
// returned id is the one reported by the guest's own info, or the file
// name without its extension when info reports an empty id
// (disambiguation against already-loaded mods is the Manager's job, since
// only it can see the whole Mod Registry).
func (l *Loader) Load(ctx context.Context, path string) (*Loaded, error) {
	// traceID exists purely for correlating the log lines one load emits;
	// it is never used as a registry key (the Mod Registry is keyed by the
	// guest's own reported id, with host-side disambiguation on collision).
	traceID := uuid.NewString()
	spanLogger := log.Span(l.deps.Logger, "loader").WithField("trace_id", traceID)
	spanLogger.WithField("path", path).Debug("loading component")

	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %v", path, errs.ErrRead, err)
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if l.memoryMaxPages != 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(l.memoryMaxPages)
	}
	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	closeRuntime := func(ctx context.Context) error { return runtime.Close(ctx) }

	compiled, err := abi.Compile(ctx, runtime, code)
	if err != nil {
		_ = closeRuntime(ctx)
		return nil, fmt.Errorf("decode %s: %w: %v", path, errs.ErrDecode, err)
	}

	provisionalID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	fatal := &hostapi.Fatal{}
	if err := hostapi.Register(ctx, runtime, hostapi.Deps{
		ModID:    provisionalID,
		Storages: l.deps.Storages,
		Registry: l.deps.Registry,
		Logger:   l.deps.Logger,
		Metrics:  l.deps.Metrics,
		Fatal:    fatal,
	}); err != nil {
		_ = closeRuntime(ctx)
		return nil, fmt.Errorf("link host imports for %s: %w: %v", path, errs.ErrInstantiate, err)
	}

	binding, err := abi.Instantiate(ctx, runtime, compiled, provisionalID)
	if err != nil {
		_ = closeRuntime(ctx)
		return nil, fmt.Errorf("instantiate %s: %w: %v", path, errs.ErrInstantiate, err)
	}

	handle := guest.New(binding)
	if err := handle.CallInfo(ctx); err != nil {
		_ = closeRuntime(ctx)
		return nil, fmt.Errorf("info %s: %w", path, err)
	}

	if err := handle.Construct(ctx); err != nil {
		_ = closeRuntime(ctx)
		return nil, fmt.Errorf("construct %s: %w", path, err)
	}

	info := handle.Info()
	if info.ID == "" {
		info.ID = provisionalID
	}

	spanLogger.WithField("reported_id", info.ID).Debug("component constructed")
	return &Loaded{Handle: handle, Info: info, Fatal: fatal, close: closeRuntime}, nil
}
