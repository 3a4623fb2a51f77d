// Copyright 2024 The Modhost Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package manager

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasm-modhost/modhost/internal/errs"
	"github.com/wasm-modhost/modhost/internal/log"
	"github.com/wasm-modhost/modhost/internal/metrics"
)

func newTestManager(t *testing.T, dir string) *Manager {
	t.Helper()
	m, err := New().WithModsDir(dir).WithLogger(log.New()).WithMetrics(metrics.New(nil)).Init()
	require.NoError(t, err)
	return m
}

func TestLoadAllModsOnMissingDirIsNotAnError(t *testing.T) {
	m := newTestManager(t, filepath.Join(t.TempDir(), "nope"))
	err := m.LoadAllMods(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, m.Count())
}

func TestLoadAllModsOnEmptyDirIsZeroMods(t *testing.T) {
	m := newTestManager(t, t.TempDir())
	err := m.LoadAllMods(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, m.Count())
}

func TestUnloadUnknownModIsNotFound(t *testing.T) {
	m := newTestManager(t, t.TempDir())
	err := m.UnloadMod(context.Background(), "nonexistent")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestReloadUnknownModIsNotFound(t *testing.T) {
	m := newTestManager(t, t.TempDir())
	_, err := m.ReloadMod(context.Background(), "nonexistent")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUnloadAllModsOnEmptyManagerIsNoOp(t *testing.T) {
	m := newTestManager(t, t.TempDir())
	require.NoError(t, m.UnloadAllMods(context.Background()))
}

func TestListModsOnEmptyManagerIsEmpty(t *testing.T) {
	m := newTestManager(t, t.TempDir())
	require.Empty(t, m.ListMods())
}

func TestWithModsDirEmptyIsInvalidConfig(t *testing.T) {
	_, err := New().WithModsDir("").Init()
	require.ErrorIs(t, err, errs.ErrInvalidConfig)
}

func TestWithLoggerNilIsInvalidConfig(t *testing.T) {
	_, err := New().WithLogger(nil).Init()
	require.ErrorIs(t, err, errs.ErrInvalidConfig)
}

func TestWithMemoryLimitsZeroMinIsInvalidConfig(t *testing.T) {
	_, err := New().WithMemoryLimits(0, 100).Init()
	require.ErrorIs(t, err, errs.ErrInvalidConfig)
}

func TestWithMemoryLimitsMaxBelowMinIsInvalidConfig(t *testing.T) {
	_, err := New().WithMemoryLimits(32, 16).Init()
	require.ErrorIs(t, err, errs.ErrInvalidConfig)
}

func TestWithMemoryLimitsValidRangePasses(t *testing.T) {
	_, err := New().WithModsDir(t.TempDir()).WithMemoryLimits(16, 256).Init()
	require.NoError(t, err)
}

func TestWithMaxInstancesZeroIsInvalidConfig(t *testing.T) {
	_, err := New().WithMaxInstances(0).Init()
	require.ErrorIs(t, err, errs.ErrInvalidConfig)
}

func TestConfigErrSurvivesSubsequentWithCalls(t *testing.T) {
	_, err := New().WithModsDir("").WithGameVersion("1.0").WithAPIVersion("1.0").Init()
	require.ErrorIs(t, err, errs.ErrInvalidConfig)
}

func TestResolveModsDirLeavesAbsolutePathsUntouched(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "mods")
	if got := resolveModsDir(abs); got != abs {
		t.Fatalf("expected absolute path to pass through unchanged, got %q", got)
	}
}

func TestStoragesAndCallbackRegistryAreExposed(t *testing.T) {
	m := newTestManager(t, t.TempDir())
	require.NotNil(t, m.Storages())
	require.NotNil(t, m.CallbackRegistry())
}
