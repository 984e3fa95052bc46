// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package talc

// VerifyStats accumulates what Verify counted while it walked every
// claimed heap. Grounded on the teacher's AllocStats (falloc.go), which
// Allocator.Verify fills in as it walks the atom chain; Engine.Verify
// plays the same role over the boundary-tag chain instead of atoms.
type VerifyStats struct {
	Heaps        int
	FreeChunks   int
	AllocChunks  int
	FreeBytes    int64
	AllocBytes   int64
	BinnedChunks int
}

// Verify walks every chunk of every claimed heap in address order,
// cross-checking pre-tags against post-tags, PF-bit bookkeeping against
// the neighbor's actual allocation state, that no two free chunks are
// adjacent, and every free chunk's list membership, the same sequential-scan shape as the teacher's
// Allocator.Verify (falloc.go). log receives each inconsistency found;
// if log is nil, or whenever it returns false, Verify stops at the first
// one and returns it as an *ErrCorrupt. Otherwise it keeps going and
// returns nil once the whole structure has been walked, with stats
// filled in regardless of how it returns.
func (e *Engine) Verify(log func(error) bool) (stats VerifyStats, err error) {
	if log == nil {
		log = func(error) bool { return false }
	}

	binned := make(map[uintptr]bool)
	for c := 0; c < numClasses; c++ {
		for node := e.bins.heads[c]; node != 0; node = getLinkNext(node) {
			binned[node] = true
		}
	}

	stats.Heaps = len(e.heaps)

	report := func(offset uintptr, reason string) error {
		ce := &ErrCorrupt{Reason: reason, Offset: offset}
		if !log(ce) {
			return ce
		}
		return nil
	}

	for _, h := range e.heaps {
		cur := h.Base
		prevFreeExpected := false

		for cur < h.Acme {
			size, allocated, lowBound, prevFree := preTag(cur)
			if size == 0 || cur+size > h.Acme {
				if err = report(cur, "chunk size is zero or overruns the heap"); err != nil {
					return stats, err
				}
				break
			}
			if lowBound != (cur == h.Base) {
				if err = report(cur, "LB flag disagrees with chunk's position"); err != nil {
					return stats, err
				}
			}
			if prevFree != prevFreeExpected {
				if err = report(cur, "PF flag disagrees with previous chunk's actual state"); err != nil {
					return stats, err
				}
			}
			if !allocated && prevFreeExpected {
				if err = report(cur, "two adjacent chunks are both free"); err != nil {
					return stats, err
				}
			}

			isSentinel := cur == h.Base || cur+size == h.Acme
			if !allocated {
				if isSentinel {
					if err = report(cur, "sentinel chunk is marked free"); err != nil {
						return stats, err
					}
				}
				gotSize, gotLow := postTagSize(cur, size)
				if gotSize != size || gotLow != lowBound {
					if err = report(cur, "post-tag disagrees with pre-tag"); err != nil {
						return stats, err
					}
				}
				if !binned[cur] {
					if err = report(cur, "free chunk is not linked into any bin"); err != nil {
						return stats, err
					}
				} else {
					stats.BinnedChunks++
				}
				stats.FreeChunks++
				stats.FreeBytes += int64(size)
			} else {
				stats.AllocChunks++
				stats.AllocBytes += int64(size)
			}

			prevFreeExpected = !allocated
			cur += size
		}
	}

	return stats, nil
}

// postTagSize reads a free chunk's post-tag, assumed to mirror size and
// lowBound, and reports what it actually found.
func postTagSize(base, size uintptr) (gotSize uintptr, lowBound bool) {
	w := loadWord(postTagAddr(base, size))
	return w &^ flagMask, w&flagLowBound != 0
}
