// Copyright 2024 The Modhost Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package errs defines the sentinel error kinds every fallible operation in
// the host returns, so callers can errors.Is against a stable kind instead of
// string-matching messages.
package errs

import "errors"

var (
	// ErrRead means a guest component file could not be read off disk.
	ErrRead = errors.New("read error")
	// ErrDecode means the bytes read were not a valid component.
	ErrDecode = errors.New("decode error")
	// ErrInstantiate means the linker could not satisfy imports, or
	// instantiation trapped.
	ErrInstantiate = errors.New("instantiate error")
	// ErrContract means the guest's info export did not return a 5-string
	// list, or a required export was absent.
	ErrContract = errors.New("contract error")
	// ErrCall means a guest method call trapped or returned an unexpected
	// value shape.
	ErrCall = errors.New("call error")
	// ErrRegistryConflict means a callback-structure id already exists.
	ErrRegistryConflict = errors.New("registry conflict")
	// ErrNotFound means a lookup by id (mod or structure) found nothing.
	ErrNotFound = errors.New("not found")
	// ErrInvalidConfig means a Manager/Loader With* option was invalid.
	ErrInvalidConfig = errors.New("invalid config")
)
