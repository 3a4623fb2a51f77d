// Copyright 2024 The Modhost Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package guest

import (
	"context"
	"errors"
	"testing"

	"github.com/wasm-modhost/modhost/internal/errs"
)

// fakeBinding is a Binding that records calls and lets tests inject
// failures at any stage, standing in for a compiled component binary.
type fakeBinding struct {
	info        [5]string
	infoErr     error
	constructErr error
	initErr     error
	updateErr   error
	drawErr     error
	shutdownErr error
	closeErr    error

	constructed bool
	initCalled  bool
	updateCalls int
	drawCalls   int
	shutdownCalls int
	closeCalls  int
}

func (f *fakeBinding) Info(context.Context) ([5]string, error) { return f.info, f.infoErr }

func (f *fakeBinding) Construct(context.Context) (int32, error) {
	f.constructed = true
	return 42, f.constructErr
}

func (f *fakeBinding) CallInit(context.Context, int32) error {
	f.initCalled = true
	return f.initErr
}

func (f *fakeBinding) CallUpdate(context.Context, int32, float32) error {
	f.updateCalls++
	return f.updateErr
}

func (f *fakeBinding) CallDraw(context.Context, int32) error {
	f.drawCalls++
	return f.drawErr
}

func (f *fakeBinding) CallShutdown(context.Context, int32) error {
	f.shutdownCalls++
	return f.shutdownErr
}

func (f *fakeBinding) Close(context.Context) error {
	f.closeCalls++
	return f.closeErr
}

func TestCallInfoPopulatesFieldsInOrder(t *testing.T) {
	fb := &fakeBinding{info: [5]string{"demo", "Demo", "0.1", "alice", "d"}}
	h := New(fb)

	if err := h.CallInfo(context.Background()); err != nil {
		t.Fatalf("CallInfo: %v", err)
	}

	got := h.Info()
	want := Info{ID: "demo", Name: "Demo", Version: "0.1", Author: "alice", Description: "d"}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestCallInfoWrapsContractError(t *testing.T) {
	fb := &fakeBinding{infoErr: errors.New("boom")}
	h := New(fb)

	err := h.CallInfo(context.Background())
	if !errors.Is(err, errs.ErrContract) {
		t.Fatalf("expected ErrContract, got %v", err)
	}
}

func TestUpdateBeforeConstructFails(t *testing.T) {
	h := New(&fakeBinding{})
	err := h.Update(context.Background(), 0.016)
	if !errors.Is(err, errs.ErrCall) {
		t.Fatalf("expected ErrCall, got %v", err)
	}
}

func TestConstructThenInitThenUpdateDraw(t *testing.T) {
	fb := &fakeBinding{}
	h := New(fb)

	if err := h.Construct(context.Background()); err != nil {
		t.Fatalf("Construct: %v", err)
	}
	if err := h.Init(context.Background(), Context{GameVersion: "1.0"}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := h.Update(context.Background(), 0.016); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := h.Draw(context.Background()); err != nil {
		t.Fatalf("Draw: %v", err)
	}

	if !fb.constructed || !fb.initCalled || fb.updateCalls != 1 || fb.drawCalls != 1 {
		t.Fatalf("unexpected call counts: %+v", fb)
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	fb := &fakeBinding{}
	h := New(fb)
	_ = h.Construct(context.Background())

	if err := h.Shutdown(context.Background()); err != nil {
		t.Fatalf("first shutdown: %v", err)
	}
	if err := h.Shutdown(context.Background()); err != nil {
		t.Fatalf("second shutdown should be a no-op, got: %v", err)
	}

	if fb.shutdownCalls != 1 || fb.closeCalls != 1 {
		t.Fatalf("expected exactly one underlying shutdown+close, got shutdown=%d close=%d", fb.shutdownCalls, fb.closeCalls)
	}
}

func TestShutdownAlwaysClosesEvenOnCallError(t *testing.T) {
	fb := &fakeBinding{shutdownErr: errors.New("trap")}
	h := New(fb)
	_ = h.Construct(context.Background())

	err := h.Shutdown(context.Background())
	if err == nil {
		t.Fatal("expected an error from shutdown")
	}
	if fb.closeCalls != 1 {
		t.Fatalf("expected Close to run despite shutdown error, got %d calls", fb.closeCalls)
	}
}
