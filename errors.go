// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remset

import (
	"errors"
	"fmt"
)

// Sentinel errors, in the shape of the standard library's own io.EOF:
// callers compare with errors.Is rather than inspecting message text.
var (
	// ErrAborted is returned by RebuildRemSet when the mark controller
	// reports the concurrent cycle aborted mid-rebuild.
	ErrAborted = errors.New("remset: rebuild aborted")

	// ErrNotAtSafepoint is returned by RefineConcurrently when
	// Config.Debug is set and it is called while a collection pause is
	// in progress — the concurrent entry point's precondition is the
	// mirror image of a safepoint, hence the name.
	ErrNotAtSafepoint = errors.New("remset: not at a safepoint")
)

// invariantViolation reports a violation of one of the I1-I5/P1-P7
// invariants documented in spec §3/§8. Per §7, this is only fatal in
// debug builds (Config.Debug); release builds are expected to proceed,
// so callers must only invoke this under a debug() guard.
//
// This mirrors the teacher's own runtime assertion idiom
// (mgcgen.go's repeated `throw("why")` after a consistency check),
// generalized to a returned error (or, through assertf, a recoverable
// panic) instead of crashing the process,
// since this package is a library embedded in a larger process rather
// than the process itself.
func invariantViolation(format string, args ...any) error {
	return fmt.Errorf("remset: invariant violation: %w", fmt.Errorf(format, args...))
}

func assertf(cond bool, format string, args ...any) {
	if !cond {
		panic(invariantViolation(format, args...))
	}
}
