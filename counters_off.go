// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !alloc_counters

package talc

// engineCounters is the zero-cost form of the enable-counters knob (§6):
// an empty struct whose methods the compiler inlines away to nothing.
type engineCounters struct{}

func (c *engineCounters) onAlloc(n uintptr)           {}
func (c *engineCounters) onFree(n uintptr)            {}
func (c *engineCounters) onResize(oldN, newN uintptr) {}
func (c *engineCounters) liveAllocs() int64           { return 0 }
func (c *engineCounters) liveBytes() int64            { return 0 }
func (c *engineCounters) peakBytes() int64            { return 0 }
