// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package talc

import "fmt"

// ErrOOM is returned by Malloc and Grow when the engine could not find or
// make room for a fit and the Source declined or exhausted its recovery.
//
// A zero-size-eligible request that overflows the address space after
// rounding also surfaces as ErrOOM without ever consulting the bitmap, per
// the numeric policy in §4.4.
type ErrOOM struct {
	Layout Layout
}

func (e *ErrOOM) Error() string {
	return fmt.Sprintf("talc: out of memory for size=%d align=%d", e.Layout.Size, e.Layout.Align)
}

// ErrNotPossible is returned by GrowInPlace when the chunk immediately
// following the allocation is not free, or is free but too small, to
// satisfy the requested growth. It is not a failure: callers are expected
// to fall back to Grow or decline to grow at all.
type ErrNotPossible struct {
	Layout Layout
	NewSize uintptr
}

func (e *ErrNotPossible) Error() string {
	return fmt.Sprintf("talc: cannot grow in place from %d to %d bytes", e.Layout.Size, e.NewSize)
}

// ErrInvalidSpan is returned by Claim when the supplied span, after
// rounding its edges inward to word alignment, is smaller than the minimum
// viable heap. Per §7, callers that want OOM-recovery semantics around a
// too-small Claim should route it through a Source so the retry protocol
// applies uniformly.
type ErrInvalidSpan struct {
	Span Span
}

func (e *ErrInvalidSpan) Error() string {
	return fmt.Sprintf("talc: span %s is smaller than the minimum viable heap", e.Span)
}

// ErrUnknownHeap is returned by Extend and Truncate when old_span does not
// match any heap the engine currently manages.
type ErrUnknownHeap struct {
	Span Span
}

func (e *ErrUnknownHeap) Error() string {
	return fmt.Sprintf("talc: %s is not a claimed heap", e.Span)
}

// ErrBadExtent is returned by Extend when new_span does not strictly
// contain old_span, or by Truncate when new_span is not contained in
// old_span.
type ErrBadExtent struct {
	Old, New Span
}

func (e *ErrBadExtent) Error() string {
	return fmt.Sprintf("talc: %s is not a valid re-extent of %s", e.New, e.Old)
}

// ErrCorrupt is raised by debug-build assertions (see debug.go) when a
// boundary tag fails an opportunistic consistency check: a post-tag
// disagreeing with its pre-tag, a free chunk missing its allocated
// neighbor's flag, or similar. Production builds never construct one on
// the hot path; they are reserved for Verify and the debug assertions
// named in §7.
type ErrCorrupt struct {
	Reason string
	Offset uintptr
}

func (e *ErrCorrupt) Error() string {
	return fmt.Sprintf("talc: corrupt heap at %#x: %s", e.Offset, e.Reason)
}
