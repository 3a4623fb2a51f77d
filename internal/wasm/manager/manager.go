// Copyright 2024 The Modhost Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package manager implements the Mod Manager orchestrator: the single
// entry point that sequences discovery, loading, per-frame init/update/draw,
// and unloading across every mod, and owns the Storages and Callback
// Registry every mod's Host API Surface calls are bound against. A single
// top-level type sequences load -> init -> update/draw, logging and
// counting failures via an injected Logger/Metrics pair rather than a
// global.
package manager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wasm-modhost/modhost/internal/errs"
	"github.com/wasm-modhost/modhost/internal/log"
	"github.com/wasm-modhost/modhost/internal/metrics"
	"github.com/wasm-modhost/modhost/internal/wasm/guest"
	"github.com/wasm-modhost/modhost/internal/wasm/hostapi"
	"github.com/wasm-modhost/modhost/internal/wasm/loader"
	"github.com/wasm-modhost/modhost/internal/wasm/modregistry"
	"github.com/wasm-modhost/modhost/internal/wasm/registry"
	"github.com/wasm-modhost/modhost/internal/wasm/storages"
)

// loaded tracks, per registry id, the pieces Manager needs to unload a mod
// later: the *guest.Handle the Registry already exposes, plus the loader's
// runtime-closer and fatal-request latch that don't belong in the public
// Registry type.
type loaded struct {
	source string // the path the mod was loaded from, for ReloadMod
	fatal  *hostapi.Fatal
	close  func(context.Context) error
}

// Manager is the top-level orchestrator. It is not safe for concurrent use
// by multiple goroutines calling its frame methods simultaneously: a single
// cooperative scheduling loop is expected to drive update/draw, the same as
// any other single-threaded game loop.
//
// A Manager is built with New, configured with a chain of With* calls, then
// finalized with Init, which surfaces any configuration error the With*
// chain deferred rather than panicking mid-chain.
type Manager struct {
	configErr error

	modsDir            string
	gameVersion        string
	apiVersion         string
	logger             log.Logger
	metrics            *metrics.Metrics
	componentExtension string
	memoryMinPages     uint32
	memoryMaxPages     uint32 // 0 means unbounded
	maxInstances       uint32 // 0 means unbounded

	storages *storages.Storages
	registry *registry.CallbackRegistry
	mods     *modregistry.Registry
	loader   *loader.Loader
	gameCtx  guest.Context

	loadedMeta map[string]loaded
}

// New constructs a Manager with conservative defaults (16 minimum memory
// pages, no maximum, no instance cap), awaiting With* configuration and
// Init.
func New() *Manager {
	return &Manager{
		modsDir:        "./mods",
		logger:         log.New(),
		memoryMinPages: 16,
	}
}

// WithModsDir sets the directory LoadAllMods discovers components in.
func (m *Manager) WithModsDir(dir string) *Manager {
	if dir == "" {
		m.configErr = fmt.Errorf("mods dir must not be empty: %w", errs.ErrInvalidConfig)
		return m
	}
	m.modsDir = dir
	return m
}

// WithGameVersion sets the game_version field every mod's init Context
// carries.
func (m *Manager) WithGameVersion(v string) *Manager {
	m.gameVersion = v
	return m
}

// WithAPIVersion sets the api_version field every mod's init Context
// carries.
func (m *Manager) WithAPIVersion(v string) *Manager {
	m.apiVersion = v
	return m
}

// WithLogger overrides the default logger every Manager/Loader log line
// goes through.
func (m *Manager) WithLogger(logger log.Logger) *Manager {
	if logger == nil {
		m.configErr = fmt.Errorf("logger must not be nil: %w", errs.ErrInvalidConfig)
		return m
	}
	m.logger = logger
	return m
}

// WithMetrics attaches a Prometheus-backed Metrics instance. Omitting this
// leaves every counter/histogram a no-op.
func (m *Manager) WithMetrics(met *metrics.Metrics) *Manager {
	m.metrics = met
	return m
}

// WithComponentExtension overrides the file extension LoadAllMods discovers
// (default loader.DefaultExtension).
func (m *Manager) WithComponentExtension(ext string) *Manager {
	m.componentExtension = ext
	return m
}

// WithMemoryLimits configures the linear memory bounds (in 64KiB wasm
// pages) every subsequently loaded guest's runtime enforces. minPages
// records the floor a guest is expected to declare; maxPages, if nonzero,
// is enforced on the host side via wazero's RuntimeConfig, rejecting a
// guest that grows its memory past it instead of leaving it unbounded.
func (m *Manager) WithMemoryLimits(minPages, maxPages uint32) *Manager {
	if minPages == 0 {
		m.configErr = fmt.Errorf("minimum memory pages must be > 0: %w", errs.ErrInvalidConfig)
		return m
	}
	if maxPages != 0 && maxPages < minPages {
		m.configErr = fmt.Errorf("maximum memory pages below minimum: %w", errs.ErrInvalidConfig)
		return m
	}
	m.memoryMinPages, m.memoryMaxPages = minPages, maxPages
	return m
}

// WithMaxInstances caps how many mods may be loaded simultaneously; a load
// attempted while at the cap fails with ErrInvalidConfig instead of
// growing the registry without bound.
func (m *Manager) WithMaxInstances(n uint32) *Manager {
	if n == 0 {
		m.configErr = fmt.Errorf("max instances must be > 0: %w", errs.ErrInvalidConfig)
		return m
	}
	m.maxInstances = n
	return m
}

// Init finalizes configuration, surfacing any error a With* call deferred,
// and builds the Storages/Callback Registry/Mod Registry/Loader every
// other method relies on.
func (m *Manager) Init() (*Manager, error) {
	if m.configErr != nil {
		return nil, m.configErr
	}

	m.storages = storages.New()
	m.registry = registry.New()
	m.mods = modregistry.New()
	m.loadedMeta = make(map[string]loaded)
	m.gameCtx = guest.Context{GameVersion: m.gameVersion, APIVersion: m.apiVersion}

	ld := loader.New(loader.Deps{
		Storages: m.storages,
		Registry: m.registry,
		Logger:   m.logger,
		Metrics:  m.metrics,
	}).WithMemoryLimits(m.memoryMinPages, m.memoryMaxPages)
	if m.componentExtension != "" {
		ld = ld.WithExtension(m.componentExtension)
	}
	m.loader = ld

	return m, nil
}

// Storages exposes the shared drawing buffers for the renderer to drain and
// clear once a frame's update+draw pass completes.
func (m *Manager) Storages() *storages.Storages { return m.storages }

// CallbackRegistry exposes the shared structure registry for host-side
// inspection (ListByType) or tests.
func (m *Manager) CallbackRegistry() *registry.CallbackRegistry { return m.registry }

// Count reports how many mods are currently loaded.
func (m *Manager) Count() int { return m.mods.Count() }

// ModInfo pairs a registry id with the identity its guest reported.
type ModInfo struct {
	ID   string
	Info guest.Info
}

// ListMods returns the id and reported Info for every currently loaded mod,
// in registry order.
func (m *Manager) ListMods() []ModInfo {
	snapshot := m.mods.Snapshot()
	out := make([]ModInfo, 0, len(snapshot))
	for _, entry := range snapshot {
		out = append(out, ModInfo{ID: entry.ID, Info: entry.Handle.Info()})
	}
	return out
}

// LoadAllMods resolves the configured mods dir relative to the running
// executable's directory unless it's already absolute, discovers every
// component matching the configured extension, and loads each in turn. A
// missing directory is not an error: it's logged as a warning and treated
// as zero mods. Unlike update/draw passes, a single load failure here
// aborts the whole batch; partial-failure tolerance is reserved for the
// per-frame passes.
func (m *Manager) LoadAllMods(ctx context.Context) error {
	resolved := resolveModsDir(m.modsDir)

	if _, err := os.Stat(resolved); errors.Is(err, os.ErrNotExist) {
		m.logger.WithField("dir", resolved).Warn("mods directory does not exist, loading zero mods")
		return nil
	}

	start := time.Now()
	paths, err := m.loader.Discover(resolved)
	if err != nil {
		return err
	}

	for _, path := range paths {
		if err := m.loadOne(ctx, path); err != nil {
			if m.metrics != nil {
				m.metrics.LoadFailed()
			}
			return fmt.Errorf("load all mods: %w", err)
		}
	}

	m.logger.WithFields(log.Fields{"count": len(paths), "elapsed": time.Since(start).String()}).
		Info("load_all_mods complete")
	return nil
}

// resolveModsDir joins dir onto the running executable's directory unless
// dir is already absolute.
func resolveModsDir(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	exe, err := os.Executable()
	if err != nil {
		return dir
	}
	return filepath.Join(filepath.Dir(exe), dir)
}

// LoadMod loads a single component from path and registers it, returning
// the id it was assigned (after collision disambiguation).
func (m *Manager) LoadMod(ctx context.Context, path string) (string, error) {
	return m.loadOneReturningID(ctx, path)
}

func (m *Manager) loadOne(ctx context.Context, path string) error {
	_, err := m.loadOneReturningID(ctx, path)
	return err
}

func (m *Manager) loadOneReturningID(ctx context.Context, path string) (string, error) {
	if m.maxInstances != 0 && uint32(m.mods.Count()) >= m.maxInstances {
		return "", fmt.Errorf("load %s: at max instances (%d): %w", path, m.maxInstances, errs.ErrInvalidConfig)
	}

	result, err := m.loader.Load(ctx, path)
	if err != nil {
		return "", err
	}

	id := m.mods.Insert(result.Info.ID, result.Handle, m.logger)
	m.loadedMeta[id] = loaded{source: path, fatal: result.Fatal, close: result.Close}

	if m.metrics != nil {
		m.metrics.ModLoaded()
	}
	m.logger.WithFields(log.Fields{"mod_id": id, "name": result.Info.Name, "version": result.Info.Version}).
		Info("mod loaded")
	return id, nil
}

// CallInit calls init on every currently loaded mod, including any a
// previous CallInit already initialized, passing each a fresh copy of the
// Manager's game Context: init sees a by-value copy, never a shared
// reference another mod's init could have mutated.
func (m *Manager) CallInit(ctx context.Context) {
	for _, entry := range m.mods.Snapshot() {
		gctx := m.gameCtx // copy
		if err := entry.Handle.Init(ctx, gctx); err != nil {
			m.logger.WithField("mod_id", entry.ID).Warnf("init failed: %v", err)
			if m.metrics != nil {
				m.metrics.GuestCallFailed()
			}
		}
	}
}

// UpdateAllMods calls update on every loaded mod with the given frame delta
// time. A mod whose update call fails (for example, traps) is logged and
// the pass moves on to the next mod; the failing mod stays loaded and is
// called again by later passes. Only an explicit utils/fatal request
// triggers an unload, handled after the call returns.
func (m *Manager) UpdateAllMods(ctx context.Context, deltaTime float32) {
	start := time.Now()
	for _, entry := range m.mods.Snapshot() {
		err := entry.Handle.Update(ctx, deltaTime)
		m.afterCall(ctx, entry.ID, "update", err)
	}
	if m.metrics != nil {
		m.metrics.ObservePass("update", time.Since(start).Seconds())
	}
}

// CallDraw calls draw on every loaded mod, in registry order. The host API
// surface's graphics/* imports accumulate into Storages as a side effect;
// callers drain and clear Storages once every mod's draw has run.
func (m *Manager) CallDraw(ctx context.Context) {
	start := time.Now()
	for _, entry := range m.mods.Snapshot() {
		err := entry.Handle.Draw(ctx)
		m.afterCall(ctx, entry.ID, "draw", err)
	}
	if m.metrics != nil {
		m.metrics.ObservePass("draw", time.Since(start).Seconds())
	}
}

// afterCall logs/counts a guest call's error, if any, then checks whether
// the guest latched a utils/fatal request during the call and force-unloads
// it if so.
func (m *Manager) afterCall(ctx context.Context, id, pass string, err error) {
	if err != nil {
		m.logger.WithField("mod_id", id).Warnf("%s failed: %v", pass, err)
		if m.metrics != nil {
			m.metrics.GuestCallFailed()
		}
	}

	meta, ok := m.loadedMeta[id]
	if !ok || meta.fatal == nil {
		return
	}
	if reason, requested := meta.fatal.Requested(); requested {
		m.logger.WithField("mod_id", id).Errorf("mod requested fatal shutdown: %s", reason)
		if err := m.UnloadMod(ctx, id); err != nil {
			m.logger.WithField("mod_id", id).Warnf("unload after fatal failed: %v", err)
		}
	}
}

// UnloadMod shuts down and removes a single mod: calls its shutdown export,
// closes its runtime, removes it from the Mod Registry, and cleans up every
// structure it registered, scoped to that mod's id.
func (m *Manager) UnloadMod(ctx context.Context, id string) error {
	handle, ok := m.mods.Remove(id)
	if !ok {
		return fmt.Errorf("unload %s: %w", id, errs.ErrNotFound)
	}

	shutdownErr := handle.Shutdown(ctx)

	if meta, ok := m.loadedMeta[id]; ok {
		if meta.close != nil {
			_ = meta.close(ctx)
		}
		delete(m.loadedMeta, id)
	}

	m.registry.Cleanup(id, m.logger)

	if m.metrics != nil {
		m.metrics.ModUnloaded()
	}
	m.logger.WithField("mod_id", id).Info("mod unloaded")
	return shutdownErr
}

// UnloadAllMods unloads every currently loaded mod. Errors are collected and
// logged individually; the aggregate is returned so callers can detect that
// at least one unload was unclean, without losing the others.
func (m *Manager) UnloadAllMods(ctx context.Context) error {
	var unloadErrs []error
	for _, entry := range m.mods.Snapshot() {
		if err := m.UnloadMod(ctx, entry.ID); err != nil {
			m.logger.WithField("mod_id", entry.ID).Warnf("unload failed: %v", err)
			unloadErrs = append(unloadErrs, err)
		}
	}
	return errors.Join(unloadErrs...)
}

// ReloadMod unloads id and loads it again from the same source path,
// calling init on the fresh instance. Sugar over unload+load+init, useful
// for iterating on a single mod without restarting the whole host.
func (m *Manager) ReloadMod(ctx context.Context, id string) (string, error) {
	meta, ok := m.loadedMeta[id]
	if !ok {
		return "", fmt.Errorf("reload %s: %w", id, errs.ErrNotFound)
	}
	source := meta.source

	if err := m.UnloadMod(ctx, id); err != nil {
		return "", fmt.Errorf("reload %s: %w", id, err)
	}

	newID, err := m.loadOneReturningID(ctx, source)
	if err != nil {
		return "", fmt.Errorf("reload %s: %w", id, err)
	}

	if entry, ok := m.mods.Get(newID); ok {
		gctx := m.gameCtx
		if err := entry.Init(ctx, gctx); err != nil {
			m.logger.WithField("mod_id", newID).Warnf("init failed after reload: %v", err)
		}
	}
	return newID, nil
}
