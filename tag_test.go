// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package talc

import (
	"runtime"
	"testing"
	"unsafe"
)

// testBuf returns a zeroed, word-aligned buffer of n bytes and its base
// address. The caller must runtime.KeepAlive(buf) for as long as base is
// dereferenced, since these tests poke raw addresses behind the GC's back.
func testBuf(n int) (buf []byte, base uintptr) {
	buf = make([]byte, n+int(wordSize))
	base = roundUp(uintptr(unsafe.Pointer(&buf[0])), wordSize)
	return buf, base
}

func TestPreTagRoundTrip(t *testing.T) {
	buf, base := testBuf(64)
	defer runtime.KeepAlive(buf)

	setPreTag(base, 32, true, false, true)
	size, allocated, lowBound, prevFree := preTag(base)
	if size != 32 || !allocated || lowBound || !prevFree {
		t.Fatalf("preTag = (%d, %v, %v, %v), want (32, true, false, true)", size, allocated, lowBound, prevFree)
	}

	setPreTag(base, 40, false, true, false)
	size, allocated, lowBound, prevFree = preTag(base)
	if size != 40 || allocated || !lowBound || prevFree {
		t.Fatalf("preTag = (%d, %v, %v, %v), want (40, false, true, false)", size, allocated, lowBound, prevFree)
	}
}

func TestSetPrevFreeFlagLeavesSizeAndOtherFlagsAlone(t *testing.T) {
	buf, base := testBuf(64)
	defer runtime.KeepAlive(buf)

	setPreTag(base, 48, true, true, false)
	setPrevFreeFlag(base, true)
	size, allocated, lowBound, prevFree := preTag(base)
	if size != 48 || !allocated || !lowBound || !prevFree {
		t.Fatalf("preTag after setPrevFreeFlag(true) = (%d, %v, %v, %v)", size, allocated, lowBound, prevFree)
	}

	setPrevFreeFlag(base, false)
	_, _, _, prevFree = preTag(base)
	if prevFree {
		t.Fatal("expected PF cleared")
	}
}

func TestPostTagMirrorsSize(t *testing.T) {
	buf, base := testBuf(64)
	defer runtime.KeepAlive(buf)

	const size = 32
	setPostTag(base, size)
	if got := loadWord(postTagAddr(base, size)); got != size {
		t.Fatalf("post-tag = %d, want %d", got, size)
	}
}

func TestWriteFreeChunkTagsSetsNeighborPF(t *testing.T) {
	buf, base := testBuf(96)
	defer runtime.KeepAlive(buf)

	const size = 32
	next := nextChunkBase(base, size)
	setPreTag(next, 32, true, false, false)

	writeFreeChunkTags(base, size, true, false)

	gotSize, allocated, lowBound, prevFree := preTag(base)
	if gotSize != size || allocated || !lowBound || prevFree {
		t.Fatalf("own pre-tag = (%d, %v, %v, %v)", gotSize, allocated, lowBound, prevFree)
	}
	if got := loadWord(postTagAddr(base, size)); got != size {
		t.Fatalf("post-tag = %d, want %d", got, size)
	}
	_, _, _, nextPrevFree := preTag(next)
	if !nextPrevFree {
		t.Fatal("expected neighbor's PF bit to be set after writeFreeChunkTags")
	}
}

func TestWriteAllocChunkTagsClearsNeighborPF(t *testing.T) {
	buf, base := testBuf(96)
	defer runtime.KeepAlive(buf)

	const size = 32
	next := nextChunkBase(base, size)
	setPreTag(next, 32, true, false, true)

	writeAllocChunkTags(base, size, false, false)

	_, allocated, _, _ := preTag(base)
	if !allocated {
		t.Fatal("expected chunk to be marked allocated")
	}
	_, _, _, nextPrevFree := preTag(next)
	if nextPrevFree {
		t.Fatal("expected neighbor's PF bit to be cleared after writeAllocChunkTags")
	}
}

func TestPrevChunkBaseRecoversNeighbor(t *testing.T) {
	buf, base := testBuf(96)
	defer runtime.KeepAlive(buf)

	const prevSize = 40
	writeFreeChunkTags(base, prevSize, true, false)
	next := nextChunkBase(base, prevSize)
	setPreTag(next, 32, true, false, true)

	if got := prevChunkBase(next); got != base {
		t.Fatalf("prevChunkBase = %#x, want %#x", got, base)
	}
}

func TestLinkWords(t *testing.T) {
	buf, base := testBuf(64)
	defer runtime.KeepAlive(buf)

	setLinkPrev(base, 0x1000)
	setLinkNext(base, 0x2000)
	if got := getLinkPrev(base); got != 0x1000 {
		t.Fatalf("getLinkPrev = %#x", got)
	}
	if got := getLinkNext(base); got != 0x2000 {
		t.Fatalf("getLinkNext = %#x", got)
	}
}

func TestReservedWordRoundTrip(t *testing.T) {
	buf, base := testBuf(64)
	defer runtime.KeepAlive(buf)

	userPtr := base + 2*wordSize
	setReservedWord(userPtr, base)
	if got := getReservedWord(userPtr); got != base {
		t.Fatalf("getReservedWord = %#x, want %#x", got, base)
	}
}
