// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package talc implements a freestanding dynamic memory allocator engine.
//
// The engine manages one or more disjoint byte regions ("heaps") supplied by
// the caller, servicing allocation, deallocation, and in-place resize
// requests described by (size, alignment) pairs. It is built around
// boundary-tagged chunks, size-class segregated free lists with a bitmap
// summary, and split/coalesce on the hot path.
//
// The engine borrows the bytes of every claimed heap; it never allocates
// backing memory itself. Growing the managed set of heaps on
// out-of-memory is delegated to a Source, an external policy the caller
// supplies (see ErrorSource, ClaimOnceSource, SystemGrowSource and
// WasmGrowSource for ready-to-use implementations).
//
// The engine is single-threaded and holds no internal lock. Concurrent use
// from multiple goroutines requires an external mutex; every exported method
// here assumes exclusive access for its duration.
package talc
