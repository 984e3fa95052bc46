// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package talc

import "errors"

// errSourceExhausted is returned by ErrorSource on every call and by
// ClaimOnceSource once its one grant is spent.
var errSourceExhausted = errors.New("talc: source exhausted")

// ErrorSource is the simplest Source (§4.6's *Error*): it never recovers,
// always returning an error so the caller's OOM surfaces immediately.
// Useful for engines over a heap the caller sized once and will not grow.
type ErrorSource struct{}

// HandleOOM implements Source by always declining.
func (ErrorSource) HandleOOM(e *Engine, layout Layout) error {
	return errSourceExhausted
}

// ClaimOnceSource is §4.6's *Claim-once*: it wraps a single Span the
// caller already owns (typically backed by a Go slice the caller
// allocated) and claims it exactly once. Every subsequent call declines,
// mirroring the teacher's SimpleFileFiler, which wraps one *os.File and
// offers no further growth path once opened.
type ClaimOnceSource struct {
	Span  Span
	spent bool
}

// NewClaimOnceSource returns a ClaimOnceSource over span.
func NewClaimOnceSource(span Span) *ClaimOnceSource {
	return &ClaimOnceSource{Span: span}
}

// HandleOOM claims Span on its first call and declines on every later one.
func (s *ClaimOnceSource) HandleOOM(e *Engine, layout Layout) error {
	if s.spent {
		return errSourceExhausted
	}
	s.spent = true
	if _, err := e.Claim(s.Span); err != nil {
		return err
	}
	return nil
}
