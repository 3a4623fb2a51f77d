// Copyright 2024 The Modhost Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package guest implements the guest lifecycle & resource binding protocol:
// a GuestHandle owns one instantiated component's store, its resolved guest
// ABI (info/constructor/init/update/draw/shutdown), and a bound borrow of the
// guest's root resource held across the handle's entire lifetime.
package guest

import "context"

// Info is the immutable identity record produced once by calling the
// guest's exported info function. Zero value is every field empty.
type Info struct {
	ID          string
	Name        string
	Version     string
	Author      string
	Description string
}

// Context is the host->guest environment passed to init. It is copied by
// value into every init call: no guest can observe another guest's
// mutations because there is only ever a fresh copy.
type Context struct {
	GameVersion string
	APIVersion  string
}

// Binding is the low-level, ABI-shaped view of one instantiated guest
// component: six resolved guest exports plus a close. Splitting this out
// from Handle lets the lifecycle/invariant logic in handle.go be exercised
// with a fake Binding in tests, without needing a real component binary.
type Binding interface {
	// Info calls the guest's exported "info" function, expecting exactly
	// five strings back.
	Info(ctx context.Context) ([5]string, error)
	// Construct calls "[constructor]main", returning an owned resource
	// handle (an opaque i32 index into the guest's resource table).
	Construct(ctx context.Context) (int32, error)
	// CallInit calls "[method]main.init" with a borrow of resource.
	CallInit(ctx context.Context, resource int32) error
	// CallUpdate calls "[method]main.update" with a borrow of resource and
	// the frame delta time.
	CallUpdate(ctx context.Context, resource int32, deltaTime float32) error
	// CallDraw calls "[method]main.draw" with a borrow of resource.
	CallDraw(ctx context.Context, resource int32) error
	// CallShutdown calls "[method]main.shutdown" with a borrow of resource.
	// After this returns (success or failure) the Binding must not be
	// invoked again.
	CallShutdown(ctx context.Context, resource int32) error
	// Close releases the store and the instance, which in turn releases
	// the guest's owned resource. Dropping the borrow the Handle held is
	// implicit in closing the store that owns it.
	Close(ctx context.Context) error
}
