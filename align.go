// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !alloc_cacheline_align

package talc

// chunkAlignment is the alignment every chunk's size and base is rounded
// up to. The pre-tag packs three flag bits (A, LB, PF) into size's low
// bits, which needs three guaranteed-zero bits; word alignment alone only
// guarantees that on 64-bit targets (W=8). Fixing the granularity at 8
// regardless of W is the same trick dlmalloc uses (its MALLOC_ALIGNMENT
// floor is 8 even on 32-bit hosts): on 64-bit this is exactly word size,
// on 32-bit it is 2W, which is still a multiple of W so §3's "multiples
// of W" invariant holds either way. alloc_cacheline_align overrides this
// for callers building a multi-threaded wrapper that wants to avoid false
// sharing (see align_cacheline.go).
const chunkAlignment = 8
