// Copyright 2024 The Modhost Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package hostapi

import "testing"

func TestSaturateClampsOutOfRangeFloats(t *testing.T) {
	got := saturate(-1, 0, 0.5, 2)
	want := struct{ R, G, B, A uint8 }{0, 0, 127, 255}
	if got.R != want.R || got.G != want.G || got.B != want.B || got.A != want.A {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestFatalLatchesOnce(t *testing.T) {
	f := &Fatal{}
	if _, requested := f.Requested(); requested {
		t.Fatal("expected no fatal request initially")
	}

	f.set_("boom")
	reason, requested := f.Requested()
	if !requested || reason != "boom" {
		t.Fatalf("expected latched fatal request, got reason=%q requested=%v", reason, requested)
	}

	f.Reset()
	if _, requested := f.Requested(); requested {
		t.Fatal("expected Reset to clear the latch")
	}
}

func TestClamp255Bounds(t *testing.T) {
	cases := map[float32]uint8{
		-5:   0,
		0:    0,
		0.5:  127,
		1:    255,
		1000: 255,
	}
	for in, want := range cases {
		if got := clamp255(in); got != want {
			t.Fatalf("clamp255(%v) = %d, want %d", in, got, want)
		}
	}
}
