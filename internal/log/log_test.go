// Copyright 2024 The Modhost Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestSpanAddsField(t *testing.T) {
	var buf bytes.Buffer
	l := New()
	l.SetOutput(&buf)

	spanned := Span(l, "loader")
	spanned.Info("loaded")

	if !strings.Contains(buf.String(), "span=loader") {
		t.Fatalf("expected output to contain span=loader, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "loaded") {
		t.Fatalf("expected output to contain the message, got %q", buf.String())
	}
}

func TestWithFieldsIndependent(t *testing.T) {
	var buf bytes.Buffer
	l := New()
	l.SetOutput(&buf)

	l.WithFields(Fields{"mod_id": "demo"}).Warn("trouble")

	out := buf.String()
	if !strings.Contains(out, "mod_id=demo") {
		t.Fatalf("expected mod_id=demo in output, got %q", out)
	}
}
