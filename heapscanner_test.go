// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remset

import "testing"

func TestSimpleHeapScannerScanRange(t *testing.T) {
	s := NewSimpleHeapScanner()
	s.AddObject(0x100, 0x20)
	s.AddReference(0x108, 0xdead)
	s.AddReference(0x300, 0xbeef) // outside every registered object; AddReference drops it.

	var got []uintptr
	outcome := s.ScanRange(0x100, 0x120, func(slot, target uintptr) { got = append(got, target) })
	if outcome != ScanComplete {
		t.Fatalf("ScanRange outcome = %v, want ScanComplete", outcome)
	}
	if len(got) != 1 || got[0] != 0xdead {
		t.Fatalf("ScanRange visited %v, want [0xdead]", got)
	}
}

func TestSimpleHeapScannerUnparsable(t *testing.T) {
	s := NewSimpleHeapScanner()
	s.AddObject(0x100, 0x20)
	s.MarkUnparsable(0x110)

	if outcome := s.ScanRange(0x100, 0x120, func(uintptr, uintptr) {}); outcome != ScanUnparsable {
		t.Fatalf("ScanRange outcome = %v, want ScanUnparsable", outcome)
	}

	s.ClearUnparsable(0x110)
	if outcome := s.ScanRange(0x100, 0x120, func(uintptr, uintptr) {}); outcome != ScanComplete {
		t.Fatalf("ScanRange outcome after clearing = %v, want ScanComplete", outcome)
	}
}

func TestSimpleHeapScannerNextObjectStart(t *testing.T) {
	s := NewSimpleHeapScanner()
	s.AddObject(0x100, 0x10)
	s.AddObject(0x200, 0x10)

	start, ok := s.NextObjectStart(0x110, 0x300)
	if !ok || start != 0x200 {
		t.Fatalf("NextObjectStart(0x110, 0x300) = (%#x, %v), want (0x200, true)", start, ok)
	}
	if _, ok := s.NextObjectStart(0x210, 0x300); ok {
		t.Fatalf("NextObjectStart(0x210, 0x300) found an object, want none")
	}
}

func TestSimpleHeapScannerScanObjectClipped(t *testing.T) {
	s := NewSimpleHeapScanner()
	s.AddObject(0x100, 0x30)
	s.AddReference(0x108, 1)
	s.AddReference(0x120, 2)

	var got []uintptr
	size := s.ScanObjectClipped(0x100, 0x100, 0x110, func(slot, target uintptr) { got = append(got, target) })
	if size != 0x30 {
		t.Fatalf("ScanObjectClipped size = %#x, want 0x30", size)
	}
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("clipped scan visited %v, want [1]", got)
	}
}
