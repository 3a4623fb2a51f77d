// Copyright 2024 The Modhost Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package storages holds the per-frame scratch buffers the Host API Surface
// writes into on a guest's behalf, and that the renderer drains once a pass
// completes: an ordered texture buffer, the current draw color, and the
// current window size, all guarded behind one mutex.
package storages

import "sync"

// Rect is an axis-aligned rectangle in the coordinate space a guest draws in.
type Rect struct {
	X, Y, W, H float32
}

// RGBA is a color with 8-bit channels, the wire shape every drawing host
// import ultimately normalizes to (graphics/color saturates f32 0..1 into
// this; graphics/color_rgba takes it directly).
type RGBA struct {
	R, G, B, A uint8
}

// Texture is one accumulated draw-rect call: the rectangle and the color
// current at the time it was appended.
type Texture struct {
	Rect  Rect
	Color RGBA
}

// WindowSize is the renderer's current viewport, refreshed before each
// update/draw pass and preserved across Clear.
type WindowSize struct {
	W, H float32
}

// Storages is the single-owner, mutex-guarded set of per-frame buffers
// shared by reference with every Host API Surface closure. The mutex is held
// only for the duration of one buffer mutation; it must never be held across
// a guest invocation — every exported method here locks, mutates, and
// unlocks before returning.
type Storages struct {
	mu         sync.Mutex
	textures   []Texture
	color      RGBA
	windowSize WindowSize
}

// New returns empty Storages with a transparent current color.
func New() *Storages {
	return &Storages{}
}

// AddTexture appends a rectangle tagged with the current color, in the
// caller's program order.
func (s *Storages) AddTexture(r Rect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.textures = append(s.textures, Texture{Rect: r, Color: s.color})
}

// SetColor sets the current color directly (last-writer-wins within a frame).
func (s *Storages) SetColor(c RGBA) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.color = c
}

// AddTaggedTexture appends a rectangle colored with c, leaving the current
// color untouched so a subsequent AddTexture still inherits whatever color
// was current before this call.
func (s *Storages) AddTaggedTexture(r Rect, c RGBA) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.textures = append(s.textures, Texture{Rect: r, Color: c})
}

// SetWindowSize records the renderer's viewport ahead of an update/draw pass.
func (s *Storages) SetWindowSize(w WindowSize) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windowSize = w
}

// GetWindowSize returns the last value set by SetWindowSize.
func (s *Storages) GetWindowSize() WindowSize {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.windowSize
}

// TextureCount reports how many rects are currently buffered, used by
// graphics/draw-debug to tag its synthetic rect with the pre-append length.
func (s *Storages) TextureCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.textures)
}

// DrainTextures returns a copy of the accumulated textures in insertion
// order. It does not clear the buffer; the renderer is expected to call
// Clear once it has consumed the result.
func (s *Storages) DrainTextures() []Texture {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Texture, len(s.textures))
	copy(out, s.textures)
	return out
}

// Clear resets textures to empty and color to transparent. WindowSize is
// preserved across clears.
func (s *Storages) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.textures = s.textures[:0]
	s.color = RGBA{}
}
