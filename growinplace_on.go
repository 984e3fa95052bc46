// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build alloc_no_grow_in_place

package talc

// buildNoGrowInPlace disables the adjacent-chunk extension entirely, per
// §6's disable-grow-in-place knob: Grow always takes the malloc+copy+free
// path, trading throughput for a smaller compiled GrowInPlace.
const buildNoGrowInPlace = true
