// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Bins holds the per-class free lists and the availability bitmap that
// lets Engine skip empty classes in O(1). It plays the role the teacher's
// flt type (flt.go) plays for lldb's Allocator: flt.go keeps one on-disk
// head per size slot and a get/put lookup table; Bins keeps one in-memory
// head per class and a bitmap instead of a lookup table, because classOf
// (sizeclass.go) computes the slot directly rather than through a stored
// table.
package talc

import "math/bits"

const bitmapWords = (numClasses + 63) / 64

// Bins is the set of segregated free lists, one per size class, plus a
// bitmap summarizing which are non-empty. The zero value is a valid,
// empty Bins.
type Bins struct {
	heads  [numClasses]uintptr // chunk base of the list head, 0 if empty
	bitmap [bitmapWords]uint64
}

func (b *Bins) bitSet(c int)   { b.bitmap[c/64] |= 1 << uint(c%64) }
func (b *Bins) bitClear(c int) { b.bitmap[c/64] &^= 1 << uint(c%64) }
func (b *Bins) bitTest(c int) bool {
	return b.bitmap[c/64]&(1<<uint(c%64)) != 0
}

// insert links a free chunk at the head of its size class's list. O(1):
// the class is computed from the chunk's own size, and insertion is
// always at the head, so no list walk is needed.
func (b *Bins) insert(base, size uintptr) {
	c := classOf(size)
	head := b.heads[c]
	setLinkPrev(base, 0)
	setLinkNext(base, head)
	if head != 0 {
		setLinkPrev(head, base)
	}
	b.heads[c] = base
	b.bitSet(c)
}

// unlink splices a free chunk out of its list given the class it was
// inserted under. O(1): the chunk's own link words name its neighbors
// directly, so no class recomputation or list walk is required.
func (b *Bins) unlink(base uintptr, c int) {
	prev := getLinkPrev(base)
	next := getLinkNext(base)
	switch {
	case prev == 0 && next == 0:
		b.heads[c] = 0
		b.bitClear(c)
	case prev == 0:
		setLinkPrev(next, 0)
		b.heads[c] = next
	case next == 0:
		setLinkNext(prev, 0)
	default:
		setLinkNext(prev, next)
		setLinkPrev(next, prev)
	}
}

// popHead removes and returns the head of class c's list, or 0 if the
// class is empty. The caller is responsible for having checked the
// bitmap, or for tolerating a 0 result.
func (b *Bins) popHead(c int) uintptr {
	head := b.heads[c]
	if head == 0 {
		return 0
	}
	b.unlink(head, c)
	return head
}

// scanBound caps the within-class walk popFit performs on the last
// class: every other class's members are, by classOf's construction, all
// strict supersets of that class's floor, so the head always fits and no
// scan is needed. The last class is the one overflow bucket holding every
// size too large for its own band, so a chunk at its head may still be
// smaller than what's requested; popFit scans a bounded number of its
// members rather than walking the whole list, per §4.3's find_fit.
const scanBound = 32

// popFit finds and unlinks a free chunk of at least needed bytes,
// starting the class search at minClass.
func (b *Bins) popFit(minClass int, needed uintptr) (base, size uintptr, ok bool) {
	class, head, found := b.findFit(minClass)
	if !found {
		return 0, 0, false
	}
	if class != numClasses-1 {
		size, _, _, _ = preTag(head)
		// classOf is the only thing that makes every non-last class a
		// guaranteed fit; this is a defensive check against that
		// invariant, not a path this should ever actually take. If it
		// ever does, fall back to the same bounded scan the overflow
		// class uses instead of handing out an undersized chunk.
		if size >= needed {
			b.unlink(head, class)
			return head, size, true
		}
		return b.scanClass(class, head, needed)
	}

	return b.scanClass(class, head, needed)
}

// scanClass walks up to scanBound members of class starting at head,
// unlinking and returning the first one at least needed bytes, or
// reporting a miss.
func (b *Bins) scanClass(class int, head, needed uintptr) (base, size uintptr, ok bool) {
	node := head
	for i := 0; i < scanBound && node != 0; i++ {
		nodeSize, _, _, _ := preTag(node)
		if nodeSize >= needed {
			b.unlink(node, class)
			return node, nodeSize, true
		}
		node = getLinkNext(node)
	}
	return 0, 0, false
}

func (b *Bins) findFit(c int) (class int, base uintptr, ok bool) {
	word := c / 64
	bit := uint(c % 64)
	for word < bitmapWords {
		w := b.bitmap[word] >> bit
		if w != 0 {
			idx := word*64 + int(bit) + bits.TrailingZeros64(w)
			return idx, b.heads[idx], true
		}
		word++
		bit = 0
	}
	return 0, 0, false
}
