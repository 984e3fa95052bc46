// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package talc

import (
	"fmt"
	"unsafe"

	"github.com/cznic/mathutil"
)

// wordSize (W) is the natural word size of the target: the unit every
// chunk size, alignment, and tag write is a multiple of. It is computed
// from uintptr rather than hardcoded so the same source serves 32-bit and
// 64-bit targets, the only two §1 scopes as viable.
const wordSize = unsafe.Sizeof(uintptr(0))

// minChunkWords is the minimum chunk size in words: a pre-tag, a prev
// link, a next link, and a post-tag. See SPEC_FULL.md §3 for why this is
// 4 words rather than the 3 a literal reading of the free-chunk layout
// would suggest.
const minChunkWords = 4

// minChunkSize is the smallest interval of bytes that can stand alone as a
// chunk, free or allocated.
const minChunkSize = minChunkWords * wordSize

// Layout describes a requested or held allocation: a byte size and a
// power-of-two alignment in [1, 2^29], per §6.
type Layout struct {
	Size  uintptr
	Align uintptr
}

func (l Layout) String() string {
	return fmt.Sprintf("Layout{size=%d, align=%d}", l.Size, l.Align)
}

// Span is an ordered pair (Base, Acme) of byte addresses with Base <= Acme.
// It never describes a wrap-around region; Acme-Base is its size.
type Span struct {
	Base uintptr
	Acme uintptr
}

// Size returns the number of bytes the span covers.
func (s Span) Size() uintptr { return s.Acme - s.Base }

// Valid reports whether the span is well formed (Base <= Acme).
func (s Span) Valid() bool { return s.Base <= s.Acme }

// Empty reports whether the span covers zero bytes.
func (s Span) Empty() bool { return s.Base == s.Acme }

// Contains reports whether s fully contains other.
func (s Span) Contains(other Span) bool {
	return s.Base <= other.Base && other.Acme <= s.Acme
}

// StrictlyContains reports whether s contains other and is strictly
// larger on at least one side, i.e. other grew to become s.
func (s Span) StrictlyContains(other Span) bool {
	return s.Contains(other) && s != other
}

// ExtendTo returns the span extended outward, if necessary, to include
// addr; it never shrinks.
func (s Span) ExtendTo(addr uintptr) Span {
	base := int64(s.Base)
	acme := int64(s.Acme)
	return Span{
		Base: uintptr(mathutil.MinInt64(base, int64(addr))),
		Acme: uintptr(mathutil.MaxInt64(acme, int64(addr))),
	}
}

// Below returns the intersection of s with (-inf, limit).
func (s Span) Below(limit uintptr) Span {
	acme := uintptr(mathutil.MinInt64(int64(s.Acme), int64(limit)))
	base := uintptr(mathutil.MinInt64(int64(s.Base), int64(acme)))
	return Span{Base: base, Acme: acme}
}

// Above returns the intersection of s with [limit, +inf).
func (s Span) Above(limit uintptr) Span {
	base := uintptr(mathutil.MaxInt64(int64(s.Base), int64(limit)))
	acme := uintptr(mathutil.MaxInt64(int64(s.Acme), int64(base)))
	return Span{Base: base, Acme: acme}
}

// Difference computes s \ other, the set-difference of the two spans,
// which may split s into a low remainder and a high remainder when other
// is a strict interior sub-span of s. Either or both results may be empty.
func (s Span) Difference(other Span) (low, high Span) {
	if !s.Valid() || !other.Valid() {
		return Span{}, Span{}
	}
	low = s.normalize(s.Base, uintptr(mathutil.MinInt64(int64(s.Acme), int64(other.Base))))
	high = s.normalize(uintptr(mathutil.MaxInt64(int64(s.Base), int64(other.Acme))), s.Acme)
	return low, high
}

// normalize returns [lo, hi) as a span, or the empty span when lo > hi,
// which is the case when other lies entirely outside s on that side.
func (s Span) normalize(lo, hi uintptr) Span {
	if lo > hi {
		return Span{}
	}
	return Span{Base: lo, Acme: hi}
}

func (s Span) String() string {
	return fmt.Sprintf("[%#x, %#x)", s.Base, s.Acme)
}

// roundUp rounds n up to the nearest multiple of mult, mult a power of two.
func roundUp(n, mult uintptr) uintptr {
	return (n + mult - 1) &^ (mult - 1)
}

// roundDown rounds n down to the nearest multiple of mult, mult a power of two.
func roundDown(n, mult uintptr) uintptr {
	return n &^ (mult - 1)
}

func isPowerOfTwo(n uintptr) bool {
	return n != 0 && n&(n-1) == 0
}
