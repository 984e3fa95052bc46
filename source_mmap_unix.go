// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build unix

package talc

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// SystemGrowSource is §4.6's *System-grow*: it requests anonymous pages
// from the host OS on each OOM and either extends the most recently
// claimed heap, if the new mapping lands contiguously above it, or
// claims the mapping as a new heap. Mirrors the teacher's pattern of
// wrapping a raw OS resource (SimpleFileFiler wraps *os.File; this wraps
// an anonymous mapping instead of a file).
type SystemGrowSource struct {
	pageBytes uintptr
	minGrow   uintptr

	mappings []Span
}

// NewSystemGrowSource returns a SystemGrowSource that requests at least
// minGrowBytes, rounded up to whole pages, on each OOM.
func NewSystemGrowSource(minGrowBytes uintptr) *SystemGrowSource {
	return &SystemGrowSource{
		pageBytes: uintptr(unix.Getpagesize()),
		minGrow:   minGrowBytes,
	}
}

// HandleOOM maps fresh pages sized to cover layout (or minGrow, whichever
// is larger) and either extends the last mapping it made, if this one is
// contiguous with it, or claims it as a new heap.
func (s *SystemGrowSource) HandleOOM(e *Engine, layout Layout) error {
	want := layout.Size + layout.Align
	if want < s.minGrow {
		want = s.minGrow
	}
	n := roundUp(want, s.pageBytes)

	b, err := unix.Mmap(-1, 0, int(n), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return err
	}

	base := uintptr(unsafe.Pointer(&b[0]))
	mapped := Span{Base: base, Acme: base + n}

	if len(s.mappings) > 0 {
		last := s.mappings[len(s.mappings)-1]
		if last.Acme == mapped.Base {
			newSpan, err := e.Extend(last, Span{Base: last.Base, Acme: mapped.Acme})
			if err == nil {
				s.mappings[len(s.mappings)-1] = newSpan
				return nil
			}
		}
	}

	claimed, err := e.Claim(mapped)
	if err != nil {
		unix.Munmap(b)
		return err
	}
	s.mappings = append(s.mappings, claimed)
	return nil
}
