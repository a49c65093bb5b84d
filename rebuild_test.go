// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remset

import "testing"

// TestRebuildHumongousSpanningTwoRegions is spec §8 scenario 6.
func TestRebuildHumongousSpanningTwoRegions(t *testing.T) {
	const regionSize = 4096
	rm := NewSimpleRegionManager(0, regionSize, 3)
	h0, h1, target := rm.Region(0), rm.Region(1), rm.Region(2)
	h0.SetType(RegionHumongous)
	h1.SetType(RegionHumongousCont)
	target.SetType(RegionOld)

	objSize := uintptr(2 * regionSize)
	ct := NewCardTable(0, 3*regionSize/CardSizeBytes)

	heap := NewSimpleHeapScanner()
	heap.AddObject(h0.Bottom(), objSize)
	heap.AddReference(h0.Bottom()+regionSize+0x10, target.Bottom()+0x100)

	bitmap := NewSimpleMarkBitmap(0, 3*regionSize)
	bitmap.Mark(h0.Bottom())

	mc := NewSimpleMarkController()
	mc.SetTAMS(h0.ID(), h0.Bottom())
	mc.SetTARS(h0.ID(), h0.Bottom()+objSize)
	mc.SetTAMS(h1.ID(), h1.Bottom())
	mc.SetTARS(h1.ID(), h1.End())

	rb := NewRebuilder(DefaultConfig(), ct, rm, bitmap, heap, mc)
	rb.PrepareForRebuild()

	if err := rb.RebuildRemSet(0, 1); err != nil {
		t.Fatalf("RebuildRemSet() = %v, want nil", err)
	}

	sourceCard := ct.IndexFor(h0.Bottom())
	if !target.RS().Contains(sourceCard) {
		t.Fatalf("target region's RS does not contain H0's starting card")
	}
	if target.RS().Len() != 1 {
		t.Fatalf("target region's RS has %d entries, want exactly 1 (no double scan via H1)", target.RS().Len())
	}
}

// TestRebuildOldRegionMarkedBytesCrossCheck is spec §8 P5.
func TestRebuildOldRegionMarkedBytesCrossCheck(t *testing.T) {
	const regionSize = 4096
	rm := NewSimpleRegionManager(0, regionSize, 2)
	r, target := rm.Region(0), rm.Region(1)
	r.SetType(RegionOld)
	target.SetType(RegionOld)

	ct := NewCardTable(0, 2*regionSize/CardSizeBytes)

	heap := NewSimpleHeapScanner()
	heap.AddObject(r.Bottom()+0x10, 0x20)          // below TAMS, marked: live, card 0.
	heap.AddObject(r.Bottom()+0x40, 0x10)          // below TAMS, unmarked: dead, must be skipped.
	heap.AddObject(r.Bottom()+CardSizeBytes+0x10, 0x20) // at/above TAMS: live via SATB, card 1.
	heap.AddReference(r.Bottom()+0x18, target.Bottom()+0x10)
	heap.AddReference(r.Bottom()+CardSizeBytes+0x18, target.Bottom()+0x20)

	bitmap := NewSimpleMarkBitmap(0, 2*regionSize)
	bitmap.Mark(r.Bottom() + 0x10)

	tams := r.Bottom() + CardSizeBytes
	tars := tams + 0x40
	mc := NewSimpleMarkController()
	mc.SetTAMS(r.ID(), tams)
	mc.SetTARS(r.ID(), tars)

	r.SetNextMarkedBytes(0x20) // only the one marked object below TAMS.

	cfg := DefaultConfig()
	cfg.Debug = true
	rb := NewRebuilder(cfg, ct, rm, bitmap, heap, mc)
	rb.PrepareForRebuild()

	if err := rb.RebuildRemSet(0, 1); err != nil {
		t.Fatalf("RebuildRemSet() = %v, want nil (marked-bytes cross-check should pass)", err)
	}

	if target.RS().Len() != 2 {
		t.Fatalf("target RS has %d entries, want 2 (one per live object's reference)", target.RS().Len())
	}
}

// TestRebuildYieldsPerChunk checks that the mark controller's yield
// hook is exercised when the region spans more than one rebuild chunk.
func TestRebuildYieldsPerChunk(t *testing.T) {
	const regionSize = 4096
	rm := NewSimpleRegionManager(0, regionSize, 1)
	r := rm.Region(0)
	r.SetType(RegionOld)
	ct := NewCardTable(0, regionSize/CardSizeBytes)
	heap := NewSimpleHeapScanner()
	bitmap := NewSimpleMarkBitmap(0, regionSize)

	mc := NewSimpleMarkController()
	mc.SetTAMS(r.ID(), r.Bottom())
	mc.SetTARS(r.ID(), r.End())

	cfg := DefaultConfig()
	cfg.RebuildChunkWords = 1 // force a yield on every tiny step.
	rb := NewRebuilder(cfg, ct, rm, bitmap, heap, mc)
	rb.PrepareForRebuild()

	heap.AddObject(r.Bottom()+0x60, 0x10)

	if err := rb.RebuildRemSet(0, 1); err != nil {
		t.Fatalf("RebuildRemSet() = %v, want nil", err)
	}
	if mc.YieldCount() == 0 {
		t.Fatalf("DoYieldCheck was never called despite a multi-chunk region")
	}
}

// TestRebuildStopsOnAbort ensures an aborted marking cycle halts the
// gang task promptly rather than finishing every region.
func TestRebuildStopsOnAbort(t *testing.T) {
	const regionSize = 4096
	rm := NewSimpleRegionManager(0, regionSize, 2)
	for _, id := range []RegionID{0, 1} {
		rm.Region(id).SetType(RegionOld)
	}
	ct := NewCardTable(0, 2*regionSize/CardSizeBytes)
	heap := NewSimpleHeapScanner()
	bitmap := NewSimpleMarkBitmap(0, 2*regionSize)

	mc := NewSimpleMarkController()
	mc.SetAborted(true)

	rb := NewRebuilder(DefaultConfig(), ct, rm, bitmap, heap, mc)
	rb.PrepareForRebuild()

	if err := rb.RebuildRemSet(0, 1); err != ErrAborted {
		t.Fatalf("RebuildRemSet() = %v, want ErrAborted", err)
	}
}
