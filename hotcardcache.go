// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remset

import "sync"

// HotCardCache is a bounded buffer of frequently redirtied cards (spec
// §3). Very hot cards get their refinement deferred to a single pass at
// pause start instead of being re-refined on every dirty, amortizing
// the cost. Grounded on mgcwork.go's fixed-capacity buffer claiming
// (putfull/getfull), generalized from a work-stealing pool to a
// capacity-bounded ring.
type HotCardCache struct {
	mu       sync.Mutex
	cap      int
	buf      []CardIdx
	filled   int
	next     int
	useCache bool
}

// NewHotCardCache returns a cache with the given capacity. Capacity 0
// disables buffering outright: every Insert call reports the card it
// was given as already "evicted", so the caller refines it immediately.
func NewHotCardCache(capacity int) *HotCardCache {
	cap2 := capacity
	if cap2 < 0 {
		cap2 = 0
	}
	return &HotCardCache{
		cap:      cap2,
		buf:      make([]CardIdx, cap2),
		useCache: cap2 > 0,
	}
}

// Enabled reports whether the cache is currently in use. Refiner skips
// the cache entirely when this is false (spec §4.1 step 4).
func (h *HotCardCache) Enabled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.useCache && h.cap > 0
}

// SetUseCache toggles the cache on or off, e.g. to drain it for a
// verification pass (spec §4.7's supplemented disable-for-verify
// toggle — see SPEC_FULL.md §4).
func (h *HotCardCache) SetUseCache(v bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.useCache = v && h.cap > 0
}

// Insert offers card c to the cache. If there is headroom, c is
// retained and ok is false (the "returns null" case in spec §3:
// nothing for the caller to do right now). Otherwise an evicted card
// (possibly c itself, if capacity is 0 or the buffer happens to evict
// what it was just given) is returned with ok true, meaning the caller
// should refine that card now.
func (h *HotCardCache) Insert(c CardIdx) (evicted CardIdx, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cap <= 0 {
		return c, true
	}
	if h.filled < h.cap {
		h.buf[h.filled] = c
		h.filled++
		return 0, false
	}
	idx := h.next
	evicted = h.buf[idx]
	h.buf[idx] = c
	h.next = (h.next + 1) % h.cap
	return evicted, true
}

// Drain empties the cache, returning every card currently held, and
// leaves it empty. Used when disabling the cache for verification.
func (h *HotCardCache) Drain() []CardIdx {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]CardIdx, h.filled)
	copy(out, h.buf[:h.filled])
	h.filled = 0
	h.next = 0
	return out
}
