// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package talc

import (
	"fmt"
	"unsafe"

	"github.com/tetratelabs/wazero/api"
)

// wasmPageSize is the WebAssembly linear memory page size, fixed by the
// spec at 64KiB.
const wasmPageSize = 65536

// WasmGrowSource is the component table's "extend-WASM" default Source: a
// guest module's linear memory, addressed through api.Memory, doubles as
// the managed heap. On OOM it grows the memory by whole pages and extends
// the engine's one heap to match. This is also the natural bridge for a
// host function exported to the guest (e.g. "malloc"/"free"): the guest
// calls it with a size, the host function calls Engine.Malloc against an
// Engine built over the guest's own memory, and returns an offset back
// into that same linear memory.
type WasmGrowSource struct {
	mem       api.Memory
	growPages uint32

	heap Span
}

// NewWasmGrowSource returns a WasmGrowSource over mem, requesting at
// least minGrowPages additional pages (rounded up from whatever a given
// allocation needs) on each OOM.
func NewWasmGrowSource(mem api.Memory, minGrowPages uint32) *WasmGrowSource {
	return &WasmGrowSource{mem: mem, growPages: minGrowPages}
}

// memSpan returns the Span covering mem's current linear memory, derived
// from the byte slice api.Memory.Read exposes as a direct view (not a
// copy) over the guest's memory.
func (s *WasmGrowSource) memSpan() (Span, error) {
	size := s.mem.Size()
	b, ok := s.mem.Read(0, size)
	if !ok {
		return Span{}, fmt.Errorf("talc: could not view wasm memory of size %d", size)
	}
	if size == 0 {
		return Span{}, nil
	}
	base := uintptr(unsafe.Pointer(&b[0]))
	return Span{Base: base, Acme: base + uintptr(size)}, nil
}

// HandleOOM grows mem by enough whole pages to cover layout (or
// growPages, whichever is larger) and extends the engine's heap over the
// new, larger linear memory. The first call claims the heap instead,
// since no prior Claim has registered one.
func (s *WasmGrowSource) HandleOOM(e *Engine, layout Layout) error {
	need := uint32(roundUp(layout.Size+layout.Align, wasmPageSize) / wasmPageSize)
	if need < s.growPages {
		need = s.growPages
	}
	if need == 0 {
		need = 1
	}

	if _, ok := s.mem.Grow(need); !ok {
		return fmt.Errorf("talc: wasm memory.grow(%d) failed", need)
	}

	span, err := s.memSpan()
	if err != nil {
		return err
	}

	if s.heap.Valid() && s.heap.Size() > 0 {
		newHeap, err := e.Extend(s.heap, span)
		if err != nil {
			return err
		}
		s.heap = newHeap
		return nil
	}

	claimed, err := e.Claim(span)
	if err != nil {
		return err
	}
	s.heap = claimed
	return nil
}
