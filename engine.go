// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The storage space management.

package talc

import "unsafe"

// Source is the external-interface contract engines use to recover from
// a failed allocation. When HandleOOM is called, the Engine has failed to
// find a fit and has released no state. The implementation may call
// Claim or Extend on the engine any number of times and return nil to
// signal the allocation should be retried, or an error to surface OOM to
// the original caller. If it returns nil but the subsequent retry still
// fails, it is called again; implementations are responsible for
// avoiding livelock by tracking their own progress.
type Source interface {
	HandleOOM(e *Engine, layout Layout) error
}

// Engine is the allocator: a set of bins, their availability bitmap, and
// the list of heaps currently claimed from a Source. It holds no lock and
// assumes exclusive access to its own state, mirroring the teacher's
// Allocator type (falloc.go), which likewise assumes its Filer is not
// touched concurrently by anything else.
type Engine struct {
	bins     Bins
	heaps    []Span
	source   Source
	counters engineCounters
}

// NewEngine returns an Engine with no claimed heaps, using source to
// recover from OOM.
func NewEngine(source Source) *Engine {
	return &Engine{source: source}
}

// Malloc returns a pointer to size bytes aligned to align, per §4.4's
// allocation algorithm. align must be a power of two; 0 is treated as 1.
func (e *Engine) Malloc(size, align uintptr) (uintptr, error) {
	if align == 0 {
		align = 1
	}
	if align < wordSize {
		align = wordSize
	}

	req := roundUp(size, wordSize)
	if req < size { // rounding wrapped past the top of the address space
		return 0, &ErrOOM{Layout: Layout{Size: size, Align: align}}
	}
	if req < wordSize {
		req = wordSize
	}

	var alignSlack uintptr
	if align > wordSize {
		alignSlack = align - wordSize
	}

	layout := Layout{Size: size, Align: align}

	// needed is the whole-chunk size that guarantees room for a pre-tag,
	// an alignment-shifted reserved word, and req bytes of payload, per
	// step 1's eff computation generalized to the whole chunk rather
	// than just the post-reserved-word remainder.
	needed := roundUp(2*wordSize+req+alignSlack, chunkAlignment)
	if needed < req { // address-space overflow
		return 0, &ErrOOM{Layout: layout}
	}
	if needed < minChunkSize {
		needed = minChunkSize
	}

	for {
		base, size, ok := e.bins.popFit(allocClass(needed), needed)
		if !ok {
			if err := e.source.HandleOOM(e, layout); err != nil {
				return 0, &ErrOOM{Layout: layout}
			}
			continue
		}
		p := e.place(base, size, req, align)
		allocSize, _, _, _ := preTag(getReservedWord(p))
		e.counters.onAlloc(allocSize)
		return p, nil
	}
}

// place carves an allocated chunk of at least req usable bytes, aligned
// to align, out of a free chunk of base/size already popped from its
// bin, per §4.4 steps 5-9. It returns the user pointer.
func (e *Engine) place(base, size, req, align uintptr) uintptr {
	_, _, lowBound, prevFree := preTag(base)

	p := roundUp(base+2*wordSize, align)

	// The allocated chunk needs two header words below p: a pre-tag at
	// allocBase and the reserved word at p-W. The prefix must stop short
	// of both, or writeAllocChunkTags/setReservedWord below clobber each
	// other's word.
	prefixLen := (p - 2*wordSize) - base
	allocBase := base
	allocLowBound := lowBound
	allocPrevFree := prevFree
	if prefixLen >= minChunkSize {
		writeFreeChunkTags(base, prefixLen, lowBound, prevFree)
		e.bins.insert(base, prefixLen)
		allocBase = base + prefixLen
		allocLowBound = false
		allocPrevFree = true
	}

	payloadEnd := p + req
	suffixStart := roundUp(payloadEnd, wordSize)
	chunkAcme := base + size
	allocSize := chunkAcme - allocBase
	if suffixLen := chunkAcme - suffixStart; suffixLen >= minChunkSize {
		writeFreeChunkTags(suffixStart, suffixLen, false, false)
		e.bins.insert(suffixStart, suffixLen)
		allocSize = suffixStart - allocBase
	}

	writeAllocChunkTags(allocBase, allocSize, allocLowBound, allocPrevFree)
	setReservedWord(p, allocBase)
	return p
}

// Free releases a chunk previously returned by Malloc, Grow, or Shrink,
// coalescing with free neighbors per §4.4's deallocation algorithm. An
// invalid ptr is undefined behavior; debug builds assert tag consistency.
func (e *Engine) Free(ptr uintptr) {
	base := getReservedWord(ptr)
	size, allocated, lowBound, prevFree := preTag(base)
	if debugAssertions && !allocated {
		panic(&ErrCorrupt{Reason: "free of a chunk not marked allocated", Offset: base})
	}
	e.counters.onFree(size)
	e.coalesceAndFree(base, size, lowBound, prevFree)
}

// coalesceAndFree merges base/size with any free neighbors and links the
// result into its bin. All merging decisions use only pre-tag flags; no
// bin search is performed to find a neighbor, only to unlink one once its
// presence is known.
func (e *Engine) coalesceAndFree(base, size uintptr, lowBound, prevFree bool) {
	nextBase := nextChunkBase(base, size)
	if nextSize, nextAllocated, _, _ := preTag(nextBase); !nextAllocated {
		assertTagConsistent(nextBase, nextSize)
		e.bins.unlink(nextBase, classOf(nextSize))
		size += nextSize
	}

	if prevFree {
		prevBase := prevChunkBase(base)
		prevSize, _, prevLowBound, prevPrevFree := preTag(prevBase)
		assertTagConsistent(prevBase, prevSize)
		e.bins.unlink(prevBase, classOf(prevSize))
		base = prevBase
		size += prevSize
		lowBound = prevLowBound
		prevFree = prevPrevFree
	}

	writeFreeChunkTags(base, size, lowBound, prevFree)
	e.bins.insert(base, size)
}

// GrowInPlace attempts to extend an allocation in place, per §4.4's
// grow-in-place algorithm: it succeeds only if the chunk immediately
// above ptr's chunk is free and, combined, large enough for newSize. It
// never moves the payload and never fails partially: either the chunk
// grows or nothing changes.
func (e *Engine) GrowInPlace(ptr uintptr, old Layout, newSize uintptr) error {
	if buildNoGrowInPlace {
		return &ErrNotPossible{Layout: old, NewSize: newSize}
	}

	base := getReservedWord(ptr)
	size, _, lowBound, prevFree := preTag(base)

	req := roundUp(newSize, wordSize)
	if req < wordSize {
		req = wordSize
	}
	needed := (ptr - base) + req

	nextBase := nextChunkBase(base, size)
	nextSize, nextAllocated, _, _ := preTag(nextBase)
	if nextAllocated || size+nextSize < needed {
		return &ErrNotPossible{Layout: old, NewSize: newSize}
	}

	e.bins.unlink(nextBase, classOf(nextSize))
	combined := size + nextSize

	suffixStart := roundUp(base+needed, wordSize)
	chunkAcme := base + combined
	allocSize := combined
	if suffixLen := chunkAcme - suffixStart; suffixLen >= minChunkSize {
		writeFreeChunkTags(suffixStart, suffixLen, false, false)
		e.bins.insert(suffixStart, suffixLen)
		allocSize = suffixStart - base
	}

	writeAllocChunkTags(base, allocSize, lowBound, prevFree)
	e.counters.onResize(size, allocSize)
	return nil
}

// Grow returns a pointer to newLayout.Size bytes containing old's
// payload, attempting GrowInPlace first and falling back to
// malloc+copy+free, per §4.4.
func (e *Engine) Grow(ptr uintptr, old, newLayout Layout) (uintptr, error) {
	if err := e.GrowInPlace(ptr, old, newLayout.Size); err == nil {
		return ptr, nil
	}

	np, err := e.Malloc(newLayout.Size, newLayout.Align)
	if err != nil {
		return 0, err
	}
	copyBytes(np, ptr, old.Size)
	e.Free(ptr)
	return np, nil
}

// Shrink returns a pointer to newLayout.Size bytes containing the
// leading bytes of old's payload. It is always in place and never fails,
// per §4.4: either a residual at the top of the chunk is split off and
// freed, or the chunk is left exactly as it was.
func (e *Engine) Shrink(ptr uintptr, old, newLayout Layout) uintptr {
	if buildNoShrinkInPlace {
		return ptr
	}

	base := getReservedWord(ptr)
	size, _, lowBound, prevFree := preTag(base)

	req := roundUp(newLayout.Size, wordSize)
	if req < wordSize {
		req = wordSize
	}

	residualStart := roundUp(ptr+req, wordSize)
	chunkAcme := base + size
	residualSize := chunkAcme - residualStart
	if residualSize < minChunkSize {
		return ptr
	}

	newSize := residualStart - base
	writeAllocChunkTags(base, newSize, lowBound, prevFree)
	e.coalesceAndFree(residualStart, residualSize, false, false)
	e.counters.onResize(size, newSize)
	return ptr
}

// copyBytes copies n bytes from src to dst, both raw addresses into
// borrowed heap memory. It is the only non-O(1) step Grow ever performs.
func copyBytes(dst, src, n uintptr) {
	for n >= wordSize {
		storeWord(dst, loadWord(src))
		dst += wordSize
		src += wordSize
		n -= wordSize
	}
	for i := uintptr(0); i < n; i++ {
		*(*byte)(unsafe.Pointer(dst + i)) = *(*byte)(unsafe.Pointer(src + i))
	}
}
