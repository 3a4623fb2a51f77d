// Copyright 2024 The Modhost Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/wasm-modhost/modhost/internal/errs"
	"github.com/wasm-modhost/modhost/internal/log"
	"github.com/wasm-modhost/modhost/internal/wasm/registry"
	"github.com/wasm-modhost/modhost/internal/wasm/storages"
)

func testDeps() Deps {
	return Deps{
		Storages: storages.New(),
		Registry: registry.New(),
		Logger:   log.New(),
	}
}

func TestDiscoverFiltersByExtension(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.wasm", "b.wasm", "c.txt", "readme.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	l := New(testDeps())
	paths, err := l.Discover(dir)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 .wasm files, got %d: %v", len(paths), paths)
	}
}

func TestDiscoverMissingDirIsReadError(t *testing.T) {
	l := New(testDeps())
	_, err := l.Discover(filepath.Join(t.TempDir(), "does-not-exist"))
	if !errors.Is(err, errs.ErrRead) {
		t.Fatalf("expected ErrRead, got %v", err)
	}
}

func TestDiscoverHonorsCustomExtension(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "mod.component"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "mod.wasm"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := New(testDeps()).WithExtension(".component")
	paths, err := l.Discover(dir)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(paths) != 1 || filepath.Ext(paths[0]) != ".component" {
		t.Fatalf("expected exactly the .component file, got %v", paths)
	}
}

func TestLoadMissingFileIsReadError(t *testing.T) {
	l := New(testDeps())
	_, err := l.Load(context.Background(), filepath.Join(t.TempDir(), "missing.wasm"))
	if !errors.Is(err, errs.ErrRead) {
		t.Fatalf("expected ErrRead, got %v", err)
	}
}

func TestLoadInvalidBytesIsDecodeError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "garbage.wasm")
	if err := os.WriteFile(path, []byte("not a real component"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := New(testDeps())
	_, err := l.Load(context.Background(), path)
	if !errors.Is(err, errs.ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}
