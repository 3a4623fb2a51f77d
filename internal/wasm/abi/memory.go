// Copyright 2024 The Modhost Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package abi implements the canonical-ABI-lite marshaling the Host API
// Surface and the guest ABI need on top of tetratelabs/wazero's core-module
// primitives: wazero decodes core WebAssembly only, so component-model
// vocabulary (typed imports/exports, resource handles, strings, lists) is
// layered here as pre-resolved function handles plus small pointer/length
// marshaling helpers for the aggregate types that don't fit in a core wasm
// scalar.
package abi

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/tetratelabs/wazero/api"
)

// readString reads a canonical-ABI-lowered `string` argument: a (ptr, len)
// pair of i32 core values pointing at UTF-8 bytes in the guest's memory.
func readString(mod api.Module, ptr, length uint32) (string, error) {
	if length == 0 {
		return "", nil
	}
	buf, ok := mod.Memory().Read(ptr, length)
	if !ok {
		return "", fmt.Errorf("abi: string read out of bounds (ptr=%d len=%d)", ptr, length)
	}
	return string(buf), nil
}

// ReadStringArg is the GoModuleFunc-facing helper: given the stack position
// of a lowered string argument (two consecutive i32 slots), returns the
// decoded string.
func ReadStringArg(mod api.Module, stack []uint64, at int) (string, error) {
	ptr := api.DecodeU32(stack[at])
	length := api.DecodeU32(stack[at+1])
	return readString(mod, ptr, length)
}

// retAreaSize is the allocation the host requests from the guest's
// cabi_realloc for info's result: a (list_ptr, list_len) pair.
const retAreaSize = 8

// allocator resolves a guest's exported allocator, used only for reading
// info's list<string> result out-pointer. Guests that don't export
// cabi_realloc can't satisfy the info ABI and fail with ErrContract at the
// call site.
func allocator(mod api.Module) api.Function {
	return mod.ExportedFunction("cabi_realloc")
}

// AllocRetArea calls the guest's cabi_realloc(0, 0, align, size) to get a
// scratch buffer the host can pass as an out-pointer to info.
func AllocRetArea(ctx context.Context, mod api.Module) (uint32, error) {
	realloc := allocator(mod)
	if realloc == nil {
		return 0, fmt.Errorf("abi: guest does not export cabi_realloc")
	}
	res, err := realloc.Call(ctx, 0, 0, 4, retAreaSize)
	if err != nil {
		return 0, fmt.Errorf("abi: cabi_realloc: %w", err)
	}
	return api.DecodeU32(res[0]), nil
}

// ReadStringList reads a canonical-ABI `list<string>` whose (list_ptr,
// list_len) header was written by the guest at retAreaPtr: list_ptr points
// to list_len consecutive (str_ptr, str_len) pairs.
func ReadStringList(mod api.Module, retAreaPtr uint32) ([]string, error) {
	header, ok := mod.Memory().Read(retAreaPtr, retAreaSize)
	if !ok {
		return nil, fmt.Errorf("abi: list header out of bounds (ptr=%d)", retAreaPtr)
	}
	listPtr := binary.LittleEndian.Uint32(header[0:4])
	listLen := binary.LittleEndian.Uint32(header[4:8])

	out := make([]string, 0, listLen)
	for i := uint32(0); i < listLen; i++ {
		pair, ok := mod.Memory().Read(listPtr+i*8, 8)
		if !ok {
			return nil, fmt.Errorf("abi: list element %d out of bounds", i)
		}
		strPtr := binary.LittleEndian.Uint32(pair[0:4])
		strLen := binary.LittleEndian.Uint32(pair[4:8])
		s, err := readString(mod, strPtr, strLen)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
