// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !alloc_no_grow_in_place

package talc

// buildNoGrowInPlace is false by default: GrowInPlace attempts the
// adjacent-chunk extension described in §4.4 before Grow falls back to
// malloc+copy+free.
const buildNoGrowInPlace = false
