// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remset

import "sync/atomic"

// atomicClaimInt64 atomically adds delta to *counter and returns the
// value it held before the add — i.e. the block of [old, old+delta)
// just claimed by this call. This is the single primitive behind every
// claim-a-block-of-work scheme in this package (PerRegionRS's claim
// iterator, SimpleRegionManager's chunked parallel iteration), the same
// role runtime/internal/atomic.Xadd plays for mheap.go's span claiming
// and mgcwork.go's work-buffer indices.
func atomicClaimInt64(counter *int64, delta int64) int64 {
	return atomic.AddInt64(counter, delta) - delta
}
