// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build alloc_cacheline_align

package talc

// chunkAlignment is 64 under §6's "cache-line-align" compile-time knob:
// Malloc rounds the chunk size it requests from the bins up to a multiple
// of 64 bytes. Chunk bases, split points and returned pointers are not
// rounded to it; they stay word-aligned (or aligned to the requested
// alignment), so chunks do not start on cache-line boundaries.
const chunkAlignment uintptr = 64
