// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build alloc_no_shrink_in_place

package talc

// buildNoShrinkInPlace makes Shrink a pure no-op, per §6's
// disable-realloc-in-place knob.
const buildNoShrinkInPlace = true
