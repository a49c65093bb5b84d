// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remset

import "testing"

const oneMB = uintptr(1) << 20

// TestRefineConcurrentlySimpleCrossRegionWrite is spec §8 scenario 1.
func TestRefineConcurrentlySimpleCrossRegionWrite(t *testing.T) {
	ct := NewCardTable(0, 4096)
	rm := NewSimpleRegionManager(0, oneMB, 2)
	a, b := rm.Region(0), rm.Region(1)
	a.SetType(RegionOld)
	a.SetTop(a.End())
	b.SetType(RegionOld)
	b.SetTop(b.End())

	scanner := NewSimpleHeapScanner()
	scanner.AddObject(0x200, 0x10)
	scanner.AddReference(0x208, oneMB+0x300)

	card := ct.IndexFor(0x200)
	if card != 1 {
		t.Fatalf("card covering 0x200 = %d, want 1", card)
	}
	ct.MarkDirty(card)

	dcq := NewDirtyCardQueueSet()
	refiner := NewRefiner(DefaultConfig(), ct, rm, NewHotCardCache(0), dcq, scanner)
	refiner.RefineConcurrently(card, 0)

	if ct.IsDirty(card) {
		t.Fatalf("card %d still dirty after refinement", card)
	}
	if !b.RS().Contains(card) {
		t.Fatalf("region B's RS does not contain card %d", card)
	}
	if got := refiner.ConcRefineCards(); got != 1 {
		t.Fatalf("ConcRefineCards() = %d, want 1", got)
	}
}

// TestRefineConcurrentlyStaleCardOnFreedRegion is spec §8 scenario 2.
func TestRefineConcurrentlyStaleCardOnFreedRegion(t *testing.T) {
	ct := NewCardTable(0, 4096)
	rm := NewSimpleRegionManager(0, oneMB, 1)
	rm.Region(0).SetType(RegionFree)

	card := ct.IndexFor(0x500)
	ct.MarkDirty(card)

	refiner := NewRefiner(DefaultConfig(), ct, rm, NewHotCardCache(0), NewDirtyCardQueueSet(), NewSimpleHeapScanner())
	refiner.RefineConcurrently(card, 0)

	if !ct.IsDirty(card) {
		t.Fatalf("card on freed region was cleaned, want it left DIRTY")
	}
}

// TestRefineConcurrentlyIdempotent is spec §8 P7.
func TestRefineConcurrentlyIdempotent(t *testing.T) {
	ct := NewCardTable(0, 4096)
	rm := NewSimpleRegionManager(0, oneMB, 2)
	a, b := rm.Region(0), rm.Region(1)
	a.SetType(RegionOld)
	a.SetTop(a.End())
	b.SetType(RegionOld)
	b.SetTop(b.End())

	scanner := NewSimpleHeapScanner()
	scanner.AddObject(0x200, 0x10)
	scanner.AddReference(0x208, oneMB+0x300)

	card := ct.IndexFor(0x200)
	ct.MarkDirty(card)

	refiner := NewRefiner(DefaultConfig(), ct, rm, NewHotCardCache(0), NewDirtyCardQueueSet(), scanner)
	refiner.RefineConcurrently(card, 0)
	refiner.RefineConcurrently(card, 0) // no intervening dirtying: must be a no-op.

	if b.RS().Len() != 1 {
		t.Fatalf("B's RS has %d entries after repeated refinement, want 1", b.RS().Len())
	}
}

// TestRefineInPauseSkipsCSetSourceRegion is invariant I2.
func TestRefineInPauseSkipsCSetSourceRegion(t *testing.T) {
	ct := NewCardTable(0, 4096)
	rm := NewSimpleRegionManager(0, oneMB, 2)
	src, target := rm.Region(0), rm.Region(1)
	src.SetType(RegionOld)
	src.SetScanTop(src.End())
	src.SetInCollectionSet(true)
	target.SetType(RegionOld)
	target.SetScanTop(target.End())

	scanner := NewSimpleHeapScanner()
	scanner.AddObject(0x200, 0x10)
	scanner.AddReference(0x208, oneMB+0x300)

	card := ct.IndexFor(0x200)
	ct.MarkDirty(card)

	refiner := NewRefiner(DefaultConfig(), ct, rm, NewHotCardCache(0), NewDirtyCardQueueSet(), scanner)
	hasRefs := refiner.RefineInPause(card, 0)

	if hasRefs {
		t.Fatalf("RefineInPause reported references from a CSet source region")
	}
	if !ct.IsDirty(card) {
		t.Fatalf("card belonging to a CSet region was cleaned; I2 forbids touching it")
	}
}

// TestRefineInPauseRoutesCSetReferences covers §4.2's update-or-push
// variant: a reference into the CSet is reported via the return value
// and never added to the target's (about-to-be-evacuated) RS.
func TestRefineInPauseRoutesCSetReferences(t *testing.T) {
	ct := NewCardTable(0, 4096)
	rm := NewSimpleRegionManager(0, oneMB, 2)
	src, cset := rm.Region(0), rm.Region(1)
	src.SetType(RegionOld)
	src.SetScanTop(src.End())
	cset.SetType(RegionOld)
	cset.SetScanTop(cset.End())
	cset.SetInCollectionSet(true)

	scanner := NewSimpleHeapScanner()
	scanner.AddObject(0x200, 0x10)
	scanner.AddReference(0x208, oneMB+0x300)

	card := ct.IndexFor(0x200)
	ct.MarkDirty(card)

	refiner := NewRefiner(DefaultConfig(), ct, rm, NewHotCardCache(0), NewDirtyCardQueueSet(), scanner)
	hasRefs := refiner.RefineInPause(card, 0)

	if !hasRefs {
		t.Fatalf("RefineInPause did not report a reference into the CSet")
	}
	if cset.RS().Contains(card) {
		t.Fatalf("CSet region's RS was updated; its live content is about to be evacuated")
	}
	if ct.IsDirty(card) {
		t.Fatalf("card left DIRTY after in-pause refinement")
	}
}

// TestRefineConcurrentlyUnparsableRedirties is invariant I5.
func TestRefineConcurrentlyUnparsableRedirties(t *testing.T) {
	ct := NewCardTable(0, 4096)
	rm := NewSimpleRegionManager(0, oneMB, 1)
	r := rm.Region(0)
	r.SetType(RegionOld)
	r.SetTop(r.End())

	scanner := NewSimpleHeapScanner()
	scanner.AddObject(0x200, 0x10)
	scanner.MarkUnparsable(0x200)

	card := ct.IndexFor(0x200)
	ct.MarkDirty(card)

	dcq := NewDirtyCardQueueSet()
	refiner := NewRefiner(DefaultConfig(), ct, rm, NewHotCardCache(0), dcq, scanner)
	refiner.RefineConcurrently(card, 0)

	if !ct.IsDirty(card) {
		t.Fatalf("unparsable card was not redirtied")
	}
	if dcq.CompletedBuffersNum() != 1 {
		t.Fatalf("unparsable card was not re-enqueued, CompletedBuffersNum = %d", dcq.CompletedBuffersNum())
	}
}
