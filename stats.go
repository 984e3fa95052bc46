// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package talc

// Stats is the statistics overlay named by §6's enable-counters knob,
// grounded on the teacher's own AllocStats (falloc.go): counts and byte
// totals an Allocator can optionally report. LiveAllocs, LiveBytes, and
// PeakBytes read zero unless built with -tags alloc_counters; they are
// otherwise a genuine compile-time no-op (counters_off.go), not merely
// an unused field.
type Stats struct {
	LiveAllocs            int64
	LiveBytes             int64
	PeakBytes             int64
	TotalHeapBytes        int64
	FragmentationEstimate float64 // 1 - LiveBytes/TotalHeapBytes, 0 if no heaps
}

// Stats reports the engine's current live-allocation counters and a
// fragmentation estimate derived from the heaps claimed so far.
func (e *Engine) Stats() Stats {
	var total int64
	for _, h := range e.heaps {
		total += int64(h.Size())
	}

	s := Stats{
		LiveAllocs:     e.counters.liveAllocs(),
		LiveBytes:      e.counters.liveBytes(),
		PeakBytes:      e.counters.peakBytes(),
		TotalHeapBytes: total,
	}
	if total > 0 {
		s.FragmentationEstimate = 1 - float64(s.LiveBytes)/float64(total)
	}
	return s
}
