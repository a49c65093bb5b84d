// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remset

import (
	"sync"
	"sync/atomic"
)

// PerRegionRS is the remembered set of a single region: the set of
// incoming card indices whose covered memory contains references into
// this region, plus the parallel-scan claiming state Scanner needs to
// cooperatively drain it exactly once per pause (spec §3).
//
// Adds (from refiners) and the safepoint-time scan (from Scanner) never
// overlap in time (spec §5), so a single mutex guarding the member set
// is sufficient; the claim/complete bits below are the only state
// genuinely touched from multiple goroutines at once during a pause,
// and those are plain atomics, the same role mgcwork.go's claim
// counters and mheap.go's span-claiming bit play for their respective
// work-stealing schemes.
type PerRegionRS struct {
	mu    sync.Mutex
	cards map[CardIdx]struct{}
	order []CardIdx

	claimed  atomic.Bool  // "claimed": owned by some worker for this pass (claim_iter)
	complete atomic.Bool  // "complete": fully scanned this pass
	claimPos atomic.Int64 // next unclaimed block offset into the snapshot
}

// NewPerRegionRS returns an empty remembered set.
func NewPerRegionRS() *PerRegionRS {
	return &PerRegionRS{cards: make(map[CardIdx]struct{})}
}

// Add idempotently inserts card idx into the set.
func (rs *PerRegionRS) Add(idx CardIdx) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if _, ok := rs.cards[idx]; ok {
		return
	}
	rs.cards[idx] = struct{}{}
	rs.order = append(rs.order, idx)
}

// Len reports the number of distinct cards currently in the set.
func (rs *PerRegionRS) Len() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.order)
}

// Contains reports whether idx is currently in the set.
func (rs *PerRegionRS) Contains(idx CardIdx) bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	_, ok := rs.cards[idx]
	return ok
}

// Snapshot returns the set's members in a stable order, safe to read
// concurrently with scanning-only access once the set has quiesced at a
// safepoint (spec §5). Only Scanner is expected to call this, after all
// refiners for the pause have finished running.
func (rs *PerRegionRS) Snapshot() []CardIdx {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	out := make([]CardIdx, len(rs.order))
	copy(out, rs.order)
	return out
}

// ResetForNewPass clears the claim/complete bits and claim cursor ahead
// of a new pause's scan, without touching the card membership itself.
func (rs *PerRegionRS) ResetForNewPass() {
	rs.claimed.Store(false)
	rs.complete.Store(false)
	rs.claimPos.Store(0)
}

// ClaimIter attempts to become the sole phase-A claimant for this
// region's RS (spec §4.3 phase A). It is a single CAS from unclaimed to
// claimed (spec §5); it reports whether this call won.
func (rs *PerRegionRS) ClaimIter() bool {
	return rs.claimed.CompareAndSwap(false, true)
}

// IterIsComplete reports whether the region's RS has already been
// fully scanned this pass (invariant: once complete, no further
// scanning occurs in the current pause).
func (rs *PerRegionRS) IterIsComplete() bool {
	return rs.complete.Load()
}

// SetIterComplete marks the region's RS as fully scanned for this pass.
func (rs *PerRegionRS) SetIterComplete() {
	rs.complete.Store(true)
}

// IterClaimedNext hands out the next block of up to blockSize card
// positions (indices into Snapshot's slice) to the caller, via a single
// atomic add — the block-claiming scheme of spec §4.3: "a per-RS atomic
// iter_claimed_next(block_size) returns monotonically increasing claim
// offsets". It never blocks and never returns the same offset twice.
func (rs *PerRegionRS) IterClaimedNext(blockSize int) int64 {
	if blockSize < 1 {
		blockSize = 1
	}
	return rs.claimPos.Add(int64(blockSize)) - int64(blockSize)
}

// Scrub removes entries whose source region is dead (regionOf(c) not
// in liveRegions) or whose card is known to be free of live references
// (card not in liveCards), per spec §4.5.
func (rs *PerRegionRS) Scrub(regionOf func(CardIdx) RegionID, liveRegions func(RegionID) bool, liveCards func(CardIdx) bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	kept := rs.order[:0:0]
	for _, c := range rs.order {
		if !liveRegions(regionOf(c)) {
			delete(rs.cards, c)
			continue
		}
		if liveCards != nil && !liveCards(c) {
			delete(rs.cards, c)
			continue
		}
		kept = append(kept, c)
	}
	rs.order = kept
}
