// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package talc

// lowSentinelSize is the size of the permanent, always-allocated,
// LB-flagged chunk occupying the bottom word of every heap.
const lowSentinelSize = wordSize

// highSentinelSize is the size of the permanent, always-allocated chunk
// occupying the top of every heap. It carries no payload and is never
// split or merged away, so it need be no larger than the minimum chunk.
const highSentinelSize = minChunkSize

// minHeapSize is the smallest span Claim will accept: a low sentinel, a
// high sentinel, and nothing else. See SPEC_FULL.md §3 for why this is
// 5W rather than the 4W a literal reading of spec.md's HeapMgmt.claim
// would suggest.
const minHeapSize = lowSentinelSize + highSentinelSize

// Claim registers span as a new heap, rounding its edges inward to word
// alignment, writing a low sentinel at the base and a high sentinel at
// the top, and inserting one interior free chunk covering the
// remainder (absent if there is none). A remainder too small to stand
// alone as a chunk is left out of the claim. It returns the effective,
// word-aligned span actually claimed.
func (e *Engine) Claim(span Span) (Span, error) {
	base := roundUp(span.Base, wordSize)
	acme := roundDown(span.Acme, wordSize)
	if !span.Valid() || acme < base || acme-base < minHeapSize {
		return Span{}, &ErrInvalidSpan{Span: span}
	}
	if rem := acme - base - minHeapSize; rem > 0 && rem < minChunkSize {
		acme -= rem
	}

	eff := Span{Base: base, Acme: acme}
	e.installSentinels(eff)
	e.heaps = append(e.heaps, eff)
	return eff, nil
}

// installSentinels writes the low and high sentinel chunks of a freshly
// claimed (or freshly extended) span and, if there is room between them,
// one interior free chunk covering it.
func (e *Engine) installSentinels(eff Span) {
	lowBase := eff.Base
	highBase := eff.Acme - highSentinelSize

	setPreTag(lowBase, lowSentinelSize, true, true, false)

	interiorBase := lowBase + lowSentinelSize
	interiorSize := highBase - interiorBase
	if interiorSize > 0 {
		writeFreeChunkTags(interiorBase, interiorSize, false, false)
		e.bins.insert(interiorBase, interiorSize)
		setPreTag(highBase, highSentinelSize, true, false, true)
	} else {
		setPreTag(highBase, highSentinelSize, true, false, false)
	}
}

// heapIndex returns the index of the heap descriptor whose effective
// span is exactly old, or -1 if none matches.
func (e *Engine) heapIndex(old Span) int {
	for i, h := range e.heaps {
		if h == old {
			return i
		}
	}
	return -1
}

// Extend grows a claimed heap from old to new, which must strictly
// contain old. For each side that grew, the boundary sentinel is
// removed, the new bytes are absorbed into the adjacent interior chunk
// (coalescing with it if free), and the sentinel is reinstalled at the
// new edge.
func (e *Engine) Extend(old, new Span) (Span, error) {
	i := e.heapIndex(old)
	if i < 0 {
		return Span{}, &ErrUnknownHeap{Span: old}
	}
	if !new.Valid() || !new.StrictlyContains(old) {
		return Span{}, &ErrBadExtent{Old: old, New: new}
	}

	base := roundDown(new.Base, wordSize)
	acme := roundUp(new.Acme, wordSize)

	if base < old.Base {
		e.growLow(old.Base, base)
	}
	if acme > old.Acme {
		e.growHigh(old.Acme, acme)
	}

	eff := Span{Base: base, Acme: acme}
	e.heaps[i] = eff
	return eff, nil
}

// growLow absorbs [newBase, oldBase) below the existing low sentinel,
// replacing the sentinel with one at newBase and either extending the
// chunk that used to sit directly above the sentinel (if free) or
// inserting a fresh free chunk covering exactly the new bytes.
func (e *Engine) growLow(oldBase, newBase uintptr) {
	firstBase := oldBase + lowSentinelSize
	firstSize, firstAllocated, _, _ := preTag(firstBase)

	setPreTag(newBase, lowSentinelSize, true, true, false)
	addedBase := newBase + lowSentinelSize
	// The reclaimed region spans from just above the new sentinel to
	// the first interior chunk's old base, which also reclaims the old
	// sentinel's own lowSentinelSize bytes.
	addedSize := firstBase - addedBase

	if !firstAllocated {
		e.bins.unlink(firstBase, classOf(firstSize))
		writeFreeChunkTags(addedBase, addedSize+firstSize, false, false)
		e.bins.insert(addedBase, addedSize+firstSize)
	} else {
		writeFreeChunkTags(addedBase, addedSize, false, false)
		e.bins.insert(addedBase, addedSize)
	}
}

// growHigh absorbs [oldAcme, newAcme) above the existing high sentinel,
// replacing the sentinel with one at the new top and either extending
// the chunk that used to sit directly below the sentinel (if free) or
// inserting a fresh free chunk covering exactly the new bytes.
func (e *Engine) growHigh(oldAcme, newAcme uintptr) {
	oldHighBase := oldAcme - highSentinelSize
	newHighBase := newAcme - highSentinelSize
	addedSize := newHighBase - oldHighBase

	_, _, _, prevFree := preTag(oldHighBase)
	if prevFree {
		prevBase := prevChunkBase(oldHighBase)
		prevSize, _, prevLowBound, prevPrevFree := preTag(prevBase)
		e.bins.unlink(prevBase, classOf(prevSize))
		writeFreeChunkTags(prevBase, prevSize+addedSize, prevLowBound, prevPrevFree)
		e.bins.insert(prevBase, prevSize+addedSize)
		setPreTag(newHighBase, highSentinelSize, true, false, true)
	} else {
		writeFreeChunkTags(oldHighBase, addedSize, false, prevFree)
		e.bins.insert(oldHighBase, addedSize)
		setPreTag(newHighBase, highSentinelSize, true, false, true)
	}
}

// Truncate shrinks a claimed heap from old to new, which must be
// contained in old. For each side that shrunk, any allocated chunk
// crossing the new edge stops the shrink at the nearest safe boundary;
// the returned effective span reports what was actually achieved. No
// error is raised for a partial truncate, per §7.
func (e *Engine) Truncate(old, new Span) (Span, error) {
	i := e.heapIndex(old)
	if i < 0 {
		return Span{}, &ErrUnknownHeap{Span: old}
	}
	if !new.Valid() || !old.Contains(new) {
		return Span{}, &ErrBadExtent{Old: old, New: new}
	}

	eff := old
	if new.Base > old.Base {
		eff.Base = e.shrinkLow(eff, new.Base)
	}
	if new.Acme < eff.Acme {
		eff.Acme = e.shrinkHigh(eff, new.Acme)
	}

	if new.Empty() && eff.Size() == minHeapSize {
		// Nothing but the two sentinels remains and the caller asked
		// for full removal: every byte was safely reclaimed, so the
		// heap descriptor is dropped entirely, per §4.5.
		e.heaps = append(e.heaps[:i], e.heaps[i+1:]...)
		return Span{}, nil
	}

	e.heaps[i] = eff
	return eff, nil
}

// shrinkLow attempts to move the low edge up to target, stopping at the
// nearest chunk boundary that does not cross an allocated chunk. It
// returns the base actually achieved.
func (e *Engine) shrinkLow(eff Span, target uintptr) uintptr {
	target = roundDown(target, wordSize)
	if target < eff.Base {
		target = eff.Base
	}

	cur := eff.Base + lowSentinelSize
	cutTo := cur

	for cur < target {
		size, allocated, _, _ := preTag(cur)
		if allocated {
			break
		}
		next := cur + size
		if next <= target {
			e.bins.unlink(cur, classOf(size))
			cur = next
			cutTo = cur
			continue
		}
		// Free chunk straddles target: keep the tail, cut the head.
		e.bins.unlink(cur, classOf(size))
		tail := next - target
		if tail >= minChunkSize {
			writeFreeChunkTags(target, tail, false, false)
			e.bins.insert(target, tail)
			cutTo = target
		} else {
			cutTo = next
		}
		break
	}

	if cutTo == eff.Base+lowSentinelSize {
		return eff.Base
	}

	newBase := cutTo - lowSentinelSize
	setPreTag(newBase, lowSentinelSize, true, true, false)
	// The chunk now sitting directly above the relocated sentinel had
	// its PF bit set relative to whatever used to be below it; that is
	// always cut away or replaced by the (allocated) sentinel, so PF
	// must be false regardless of which branch above produced cutTo.
	setPrevFreeFlag(cutTo, false)
	return newBase
}

// shrinkHigh attempts to move the high edge down to target, stopping at
// the nearest chunk boundary that does not cross an allocated chunk. It
// returns the acme actually achieved.
func (e *Engine) shrinkHigh(eff Span, target uintptr) uintptr {
	target = roundUp(target, wordSize)
	if target > eff.Acme {
		target = eff.Acme
	}

	oldHighBase := eff.Acme - highSentinelSize
	cur := eff.Base + lowSentinelSize

	for cur < oldHighBase {
		size, allocated, _, prevFree := preTag(cur)
		next := cur + size

		if next <= target {
			cur = next
			continue
		}

		if cur >= target {
			if allocated {
				return eff.Acme
			}
			e.bins.unlink(cur, classOf(size))
			return e.placeHighSentinel(cur, prevFree)
		}

		// cur < target < next: this chunk straddles target.
		if allocated {
			return e.placeHighSentinel(next, false)
		}
		e.bins.unlink(cur, classOf(size))
		head := target - cur
		if head >= minChunkSize {
			writeFreeChunkTags(cur, head, false, false)
			e.bins.insert(cur, head)
			return e.placeHighSentinel(target, true)
		}
		return e.placeHighSentinel(cur, prevFree)
	}

	return eff.Acme
}

// placeHighSentinel writes the high sentinel so its top lands at
// newHighBase+highSentinelSize and returns that acme. belowFree reports
// whether the chunk now sitting directly beneath the sentinel is free,
// which becomes the sentinel's own PF bit.
func (e *Engine) placeHighSentinel(newHighBase uintptr, belowFree bool) uintptr {
	setPreTag(newHighBase, highSentinelSize, true, false, belowFree)
	return newHighBase + highSentinelSize
}
