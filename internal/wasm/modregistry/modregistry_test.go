// Copyright 2024 The Modhost Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package modregistry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasm-modhost/modhost/internal/log"
	"github.com/wasm-modhost/modhost/internal/wasm/guest"
)

func TestInsertDisambiguatesOnCollision(t *testing.T) {
	r := New()
	logger := log.New()

	h1 := guest.New(nil)
	h2 := guest.New(nil)

	id1 := r.Insert("dup", h1, logger)
	id2 := r.Insert("dup", h2, logger)

	require.Equal(t, "dup", id1)
	require.Equal(t, "dup_1", id2)
	require.Equal(t, 2, r.Count())

	got1, ok := r.Get(id1)
	require.True(t, ok)
	require.Same(t, h1, got1)

	got2, ok := r.Get(id2)
	require.True(t, ok)
	require.Same(t, h2, got2)
}

func TestInsertDisambiguatesThroughMultipleCollisions(t *testing.T) {
	r := New()
	logger := log.New()

	ids := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		ids = append(ids, r.Insert("dup", guest.New(nil), logger))
	}

	require.Equal(t, []string{"dup", "dup_1", "dup_2"}, ids)
}

func TestRemoveAndCount(t *testing.T) {
	r := New()
	logger := log.New()

	id := r.Insert("demo", guest.New(nil), logger)
	require.Equal(t, 1, r.Count())

	_, ok := r.Remove(id)
	require.True(t, ok)
	require.Equal(t, 0, r.Count())

	_, ok = r.Remove(id)
	require.False(t, ok)
}

func TestSnapshotPreservesInsertionOrder(t *testing.T) {
	r := New()
	logger := log.New()

	r.Insert("a", guest.New(nil), logger)
	r.Insert("b", guest.New(nil), logger)
	r.Insert("c", guest.New(nil), logger)

	snap := r.Snapshot()
	require.Len(t, snap, 3)
	require.Equal(t, []string{"a", "b", "c"}, []string{snap[0].ID, snap[1].ID, snap[2].ID})
}
