// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remset

import "testing"

func TestCardTableStateMachine(t *testing.T) {
	ct := NewCardTable(0, 16)

	if got := ct.ValueAt(0); got != CardClean {
		t.Fatalf("new card table entry = %v, want CardClean", got)
	}

	ct.MarkDirty(3)
	if !ct.IsDirty(3) {
		t.Fatalf("card 3 not dirty after MarkDirty")
	}

	ct.AtomicClean(3)
	if ct.IsDirty(3) {
		t.Fatalf("card 3 still dirty after AtomicClean")
	}

	ct.MarkYoung(5)
	if got := ct.ValueAt(5); got != CardYoung {
		t.Fatalf("card 5 = %v, want CardYoung", got)
	}

	if !ct.AtomicSetClaimed(3) {
		t.Fatalf("AtomicSetClaimed on CLEAN card should succeed")
	}
	if ct.AtomicSetClaimed(3) {
		t.Fatalf("second AtomicSetClaimed on already-CLAIMED card should fail")
	}
}

func TestCardTableAddrIndexRoundTrip(t *testing.T) {
	ct := NewCardTable(0x1000, 64)
	idx := CardIdx(7)
	addr := ct.AddrFor(idx)
	if got := ct.IndexFor(addr); got != idx {
		t.Fatalf("IndexFor(AddrFor(%d)) = %d, want %d", idx, got, idx)
	}
	if addr != 0x1000+7*CardSizeBytes {
		t.Fatalf("AddrFor(7) = %#x, want %#x", addr, 0x1000+7*CardSizeBytes)
	}
}

func TestCardTableResetAllClean(t *testing.T) {
	ct := NewCardTable(0, 8)
	for i := CardIdx(0); i < 8; i++ {
		ct.MarkDirty(i)
	}
	ct.NoteDirtyRegion(RegionID(1))
	ct.NoteDirtyRegion(RegionID(2))

	ct.ResetAllClean()

	for i := CardIdx(0); i < 8; i++ {
		if ct.ValueAt(i) != CardClean {
			t.Fatalf("card %d = %v after ResetAllClean, want CardClean", i, ct.ValueAt(i))
		}
	}
	if dirty := ct.TakeDirtyRegions(); len(dirty) != 0 {
		t.Fatalf("TakeDirtyRegions after ResetAllClean = %v, want empty", dirty)
	}
}

func TestCardTableTakeDirtyRegions(t *testing.T) {
	ct := NewCardTable(0, 8)
	ct.NoteDirtyRegion(RegionID(1))
	ct.NoteDirtyRegion(RegionID(1))
	ct.NoteDirtyRegion(RegionID(2))

	got := ct.TakeDirtyRegions()
	if len(got) != 2 {
		t.Fatalf("TakeDirtyRegions() = %v, want 2 distinct regions", got)
	}
	if more := ct.TakeDirtyRegions(); len(more) != 0 {
		t.Fatalf("TakeDirtyRegions() after drain = %v, want empty", more)
	}
}
