// Copyright 2024 The Modhost Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package registry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasm-modhost/modhost/internal/errs"
	"github.com/wasm-modhost/modhost/internal/log"
)

func TestRegisterConflict(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Structure{ID: "demo:a", TypeName: "marker"}))
	require.ErrorIs(t, r.Register(Structure{ID: "demo:a", TypeName: "marker"}), errs.ErrRegistryConflict)
}

func TestRegisterUnregisterRoundTrip(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Structure{ID: "demo:a", TypeName: "marker", Data: "x"}))
	require.NoError(t, r.Unregister("demo:a"))
	require.Equal(t, 0, r.Len())

	require.ErrorIs(t, r.Unregister("demo:a"), errs.ErrNotFound)
}

func TestCleanupScopesByModIDPrefix(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Structure{ID: "X:a", TypeName: "t"}))
	require.NoError(t, r.Register(Structure{ID: "X:b", TypeName: "t"}))
	require.NoError(t, r.Register(Structure{ID: "Y:a", TypeName: "t"}))

	r.Cleanup("X", log.New())

	require.Equal(t, 1, r.Len())
	_, ok := r.Get("Y:a")
	require.True(t, ok)
	_, ok = r.Get("X:a")
	require.False(t, ok)
}

func TestListByType(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Structure{ID: "a", TypeName: "enemy"}))
	require.NoError(t, r.Register(Structure{ID: "b", TypeName: "enemy"}))
	require.NoError(t, r.Register(Structure{ID: "c", TypeName: "item"}))

	enemies := r.ListByType("enemy")
	require.Len(t, enemies, 2)
}
