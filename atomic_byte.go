// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remset

import "sync/atomic"

// atomicByte is the public-API equivalent of runtime/internal/atomic's
// Uint8: an atomically accessed single-byte value. sync/atomic does not
// expose a byte-wide type, so this packs the byte into the low 8 bits of
// an atomic.Uint32 rather than reaching for unsafe pointer arithmetic —
// see DESIGN.md for why this is preferred to vendoring the runtime's
// internal package.
type atomicByte struct {
	v atomic.Uint32
}

func (b *atomicByte) load() byte {
	return byte(b.v.Load())
}

func (b *atomicByte) store(val byte) {
	b.v.Store(uint32(val))
}

func (b *atomicByte) cas(old, new byte) bool {
	return b.v.CompareAndSwap(uint32(old), uint32(new))
}

// storeLoadFence issues a full store-load fence (spec §4.1 step 6): the
// card's CLEAN store must be globally visible before the subsequent
// reads of the card's object contents. sync/atomic's
// loads and stores are already sequentially consistent with each other,
// so the fence here is a defensive, explicit round trip through a
// shared atomic variable rather than a genuine hardware barrier
// instruction — Go's memory model gives no standalone fence primitive
// the way C++'s atomic_thread_fence does.
var fenceSeq atomic.Uint64

func storeLoadFence() {
	fenceSeq.Add(1)
	_ = fenceSeq.Load()
}
