// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !alloc_no_shrink_in_place

package talc

// buildNoShrinkInPlace is false by default: Shrink splits and frees a
// residual at the top of the chunk when one is available.
const buildNoShrinkInPlace = false
