// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package talc

import "unsafe"

// Per-chunk flags packed into the low bits of the pre-tag's size word.
// chunkAlignment guarantees at least 3 zero low bits in every chunk size,
// so all three fit.
const (
	flagAllocated uintptr = 1 << 0 // A: payload is owned by a caller
	flagLowBound  uintptr = 1 << 1 // LB: low-boundary sentinel, no "previous" neighbor
	flagPrevFree  uintptr = 1 << 2 // PF: the chunk immediately below this one is free

	flagMask uintptr = flagAllocated | flagLowBound | flagPrevFree
)

// loadWord and storeWord are the only two primitives that touch heap bytes
// directly; every other function in this file is built from them. They
// exist so the "volatile view into borrowed bytes" described in §9 has one
// place where the unsafe.Pointer conversion happens.
func loadWord(addr uintptr) uintptr {
	return *(*uintptr)(unsafe.Pointer(addr))
}

func storeWord(addr uintptr, v uintptr) {
	*(*uintptr)(unsafe.Pointer(addr)) = v
}

// preTag reads the (size, allocated, lowBound, prevFree) quadruple from a
// chunk's base. prevFree is the PF bit: whether the chunk immediately
// below this one is free, the flag §4.1 says free's coalesce step must
// consult before it may read a previous neighbor's post-tag.
func preTag(base uintptr) (size uintptr, allocated, lowBound, prevFree bool) {
	w := loadWord(base)
	return w &^ flagMask, w&flagAllocated != 0, w&flagLowBound != 0, w&flagPrevFree != 0
}

// setPreTag writes the pre-tag word at a chunk's base in full.
func setPreTag(base, size uintptr, allocated, lowBound, prevFree bool) {
	w := size
	if allocated {
		w |= flagAllocated
	}
	if lowBound {
		w |= flagLowBound
	}
	if prevFree {
		w |= flagPrevFree
	}
	storeWord(base, w)
}

// setPrevFreeFlag flips only the PF bit of an existing pre-tag, leaving
// size and the other flags untouched. This is the read-modify-write that
// notifies a neighbor, sitting above a chunk whose free/allocated status
// just changed, that its own "previous is free" bit must follow suit.
func setPrevFreeFlag(base uintptr, free bool) {
	w := loadWord(base)
	if free {
		w |= flagPrevFree
	} else {
		w &^= flagPrevFree
	}
	storeWord(base, w)
}

// postTagAddr returns the address of the post-tag word of a free chunk of
// the given base and size: the last word of the chunk.
func postTagAddr(base, size uintptr) uintptr {
	return base + size - wordSize
}

// setPostTag writes a free chunk's post-tag, which mirrors its size so a
// higher-address neighbor can later recover this chunk's base in O(1).
func setPostTag(base, size uintptr) {
	storeWord(postTagAddr(base, size), size)
}

// nextChunkBase computes the base of the chunk immediately above this one.
func nextChunkBase(base, size uintptr) uintptr {
	return base + size
}

// prevChunkSize reads the post-tag immediately below base, which is valid
// only when the caller already knows, via this chunk's own PF bit, that a
// previous chunk exists and is free.
func prevChunkSize(base uintptr) uintptr {
	return loadWord(base - wordSize)
}

// prevChunkBase computes the base of the free chunk immediately below this
// one. Preconditions as prevChunkSize.
func prevChunkBase(base uintptr) uintptr {
	return base - prevChunkSize(base)
}

// Free-chunk link words sit at fixed payload offsets: one word for the
// doubly linked list's "prev" pointer, one for "next". A zero value
// terminates the list in that direction, mirroring the teacher's
// Filer-offset free lists (falloc.go's link/unlink) where handle 0 means
// "no block".
func linkPrevAddr(base uintptr) uintptr { return base + wordSize }
func linkNextAddr(base uintptr) uintptr { return base + 2*wordSize }

func getLinkPrev(base uintptr) uintptr { return loadWord(linkPrevAddr(base)) }
func getLinkNext(base uintptr) uintptr { return loadWord(linkNextAddr(base)) }

func setLinkPrev(base, v uintptr) { storeWord(linkPrevAddr(base), v) }
func setLinkNext(base, v uintptr) { storeWord(linkNextAddr(base), v) }

// reservedWordAddr is the metadata word immediately preceding an allocated
// chunk's user pointer. It records the chunk's base so Free can recover it
// in O(1) regardless of alignment slack between the chunk base and the
// returned pointer.
func reservedWordAddr(userPtr uintptr) uintptr {
	return userPtr - wordSize
}

func setReservedWord(userPtr, chunkBase uintptr) {
	storeWord(reservedWordAddr(userPtr), chunkBase)
}

func getReservedWord(userPtr uintptr) uintptr {
	return loadWord(reservedWordAddr(userPtr))
}

// writeFreeChunkTags writes both tags of a standalone free chunk and
// notifies its upper neighbor, via the PF bit, that its previous chunk is
// now free. It does not touch bin linkage; callers insert into a Bins
// afterward.
func writeFreeChunkTags(base, size uintptr, lowBound, prevFree bool) {
	setPreTag(base, size, false, lowBound, prevFree)
	setPostTag(base, size)
	setPrevFreeFlag(nextChunkBase(base, size), true)
}

// writeAllocChunkTags writes the pre-tag of a chunk about to be handed to
// a caller and notifies its upper neighbor that its previous chunk is no
// longer free. Allocated chunks carry no post-tag; the bytes where one
// would have been become payload.
func writeAllocChunkTags(base, size uintptr, lowBound, prevFree bool) {
	setPreTag(base, size, true, lowBound, prevFree)
	setPrevFreeFlag(nextChunkBase(base, size), false)
}
