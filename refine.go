// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remset

import "sync/atomic"

// Refiner turns dirty cards into remembered-set entries. It has two
// entry points with distinct synchronization arguments (spec §4.1,
// §4.2), grounded on g1RemSet.cpp's refine_card_concurrently and
// refine_card_during_gc.
type Refiner struct {
	cfg       *Config
	cardTable *CardTable
	regions   RegionManager
	hotCache  *HotCardCache
	sharedDCQ *DirtyCardQueueSet
	scanner   HeapScanner

	concRefineCards    atomic.Uint64
	inPauseRefineCards atomic.Uint64
}

// NewRefiner builds a Refiner. sharedDCQ is the main DirtyCardQueueSet:
// its SharedEnqueue is used by the redirty path (invariant I5).
func NewRefiner(cfg *Config, ct *CardTable, rm RegionManager, hot *HotCardCache, sharedDCQ *DirtyCardQueueSet, scanner HeapScanner) *Refiner {
	return &Refiner{cfg: cfg, cardTable: ct, regions: rm, hotCache: hot, sharedDCQ: sharedDCQ, scanner: scanner}
}

// ConcRefineCards reports how many cards this Refiner has actually
// scanned via RefineConcurrently, per Design Notes' open question: a
// CLEAN-on-entry early-out is a no-op and must not be counted.
func (f *Refiner) ConcRefineCards() uint64 { return f.concRefineCards.Load() }

// InPauseRefineCards reports how many cards RefineInPause has scanned,
// tracked separately from ConcRefineCards since the two regimes (spec
// §9) are not meant to be conflated into one total.
func (f *Refiner) InPauseRefineCards() uint64 { return f.inPauseRefineCards.Load() }

// RefineConcurrently is the concurrent refinement entry point (spec
// §4.1). Precondition: not inside a collection pause.
func (f *Refiner) RefineConcurrently(c CardIdx, worker int) {
	if f.cardTable.ValueAt(c) != CardDirty {
		// Another refiner got it, or it was never dirty (invariant P7:
		// idempotence — a second call without an intervening dirtying
		// returns here).
		return
	}

	start := f.cardTable.AddrFor(c)
	r := f.regions.RegionContaining(start)
	if r == nil || !r.IsOldOrHumongous() {
		// Young/free cards are filtered; the region-type read is racy
		// but correct in the common case (spec §4.1 step 3).
		return
	}

	card := c
	if f.hotCache.Enabled() {
		evicted, hadEviction := f.hotCache.Insert(card)
		if !hadEviction {
			return // cached, retained lazily; nothing to do now.
		}
		if evicted != card {
			card = evicted
			start = f.cardTable.AddrFor(card)
			r = f.regions.RegionContaining(start)
			if r == nil || !r.IsOldOrHumongous() {
				return
			}
		}
	}

	scanLimit := r.Top()
	if scanLimit <= start {
		return // stale: region has been freed/recycled since c was logged.
	}

	f.cardTable.AtomicClean(card)
	storeLoadFence() // sequences clean-before-read-contents and read-top-after-read-type (spec §4.1 step 6).

	end := start + CardSizeBytes
	hi := end
	if scanLimit < hi {
		hi = scanLimit
	}

	cl := &concRefineVisitor{regions: f.regions}
	outcome := f.scanner.ScanRange(start, hi, func(slot, target uintptr) {
		cl.onReference(card, r, slot, target)
	})

	if outcome == ScanUnparsable {
		// We already cleaned the card; losing the dirty state would
		// drop an update, so redirty and re-enqueue exactly once
		// (invariant I5).
		if f.cardTable.ValueAt(card) != CardDirty {
			f.cardTable.MarkDirty(card)
			f.sharedDCQ.SharedEnqueue(card)
		}
		return
	}
	f.concRefineCards.Add(1)
}

// RefineInPause is the in-pause refinement entry point (spec §4.2).
// Precondition: at a safepoint; worker must identify a GC worker. It
// reports whether the card contains references into the CSet, so the
// caller can route it to the into-CSet queue.
func (f *Refiner) RefineInPause(c CardIdx, worker int) bool {
	if f.cardTable.ValueAt(c) != CardDirty {
		return false
	}

	start := f.cardTable.AddrFor(c)
	r := f.regions.RegionContaining(start)
	if r == nil || !r.IsOldOrHumongous() {
		return false
	}
	if r.InCollectionSet() {
		// Invariant I2: a CSet region's own RS is never updated during
		// a pause; its live content is about to be evacuated.
		return false
	}

	scanLimit := r.ScanTop()
	if scanLimit <= start {
		return false
	}

	f.cardTable.AtomicClean(c)

	end := start + CardSizeBytes
	hi := end
	if scanLimit < hi {
		hi = scanLimit
	}

	cl := &updateOrPushVisitor{regions: f.regions}
	outcome := f.scanner.ScanRange(start, hi, func(slot, target uintptr) {
		cl.onReference(c, r, slot, target)
	})

	// Within a safepoint the card must be parseable once trimmed to
	// scan_top; no redirty path is needed here (spec §4.2).
	if f.cfg.debug() {
		assertf(outcome == ScanComplete, "card %d unparsable during in-pause refinement", c)
	}
	f.inPauseRefineCards.Add(1)
	return cl.hasRefsIntoCSet
}

// concRefineVisitor is the concurrent-refinement oop closure: it only
// ever inserts into a target region's RS (spec §4.1 step 7).
type concRefineVisitor struct {
	regions RegionManager
}

func (v *concRefineVisitor) onReference(srcCard CardIdx, srcRegion *Region, _, target uintptr) {
	tr := v.regions.RegionContaining(target)
	if tr == nil || !tr.IsOldOrHumongous() {
		return
	}
	if tr.ID() == srcRegion.ID() {
		return // a self-region reference needs no RS entry.
	}
	tr.RS().Add(srcCard)
}

// updateOrPushVisitor is the in-pause "update-or-push" oop closure
// (spec §4.2): it behaves like concRefineVisitor, except that a
// reference into the CSet is never added to the (about-to-be-evacuated)
// target's RS and instead just sets hasRefsIntoCSet.
type updateOrPushVisitor struct {
	regions         RegionManager
	hasRefsIntoCSet bool
}

func (v *updateOrPushVisitor) onReference(srcCard CardIdx, srcRegion *Region, _, target uintptr) {
	tr := v.regions.RegionContaining(target)
	if tr == nil {
		return
	}
	if tr.InCollectionSet() {
		v.hasRefsIntoCSet = true
		return
	}
	if !tr.IsOldOrHumongous() {
		return
	}
	if tr.ID() == srcRegion.ID() {
		return
	}
	tr.RS().Add(srcCard)
}
