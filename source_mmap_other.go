// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !unix

package talc

import "errors"

// SystemGrowSource is unavailable on non-unix hosts: there is no portable
// anonymous-mapping primitive to ground it on here, so it declines every
// call rather than silently doing nothing useful.
type SystemGrowSource struct{}

// NewSystemGrowSource returns a SystemGrowSource stub. On this platform it
// always declines; build with a unix target to get real page growth.
func NewSystemGrowSource(minGrowBytes uintptr) *SystemGrowSource {
	return &SystemGrowSource{}
}

// HandleOOM always fails on this platform.
func (s *SystemGrowSource) HandleOOM(e *Engine, layout Layout) error {
	return errors.New("talc: SystemGrowSource requires a unix target")
}
