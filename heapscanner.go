// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remset

import (
	"sort"
	"sync"
)

// heapRef is one outgoing reference slot belonging to a heapObject.
type heapRef struct {
	slot, target uintptr
}

type heapObject struct {
	size uintptr
	refs []heapRef
}

// SimpleHeapScanner is a reference HeapScanner backed by an in-memory
// object index, suitable for tests and for embedding collectors small
// enough not to need a generated object map. Objects and their
// outgoing references are registered explicitly via AddObject /
// AddReference rather than discovered by walking real heap memory.
type SimpleHeapScanner struct {
	mu      sync.RWMutex
	objects map[uintptr]*heapObject
	starts  []uintptr // kept sorted

	// unparsable marks addresses whose object registration is
	// intentionally incomplete, simulating the "partially initialized
	// object" case ScanRange must report as ScanUnparsable (spec §4.1
	// step 8).
	unparsable map[uintptr]bool
}

// NewSimpleHeapScanner returns a scanner with no registered objects.
func NewSimpleHeapScanner() *SimpleHeapScanner {
	return &SimpleHeapScanner{
		objects:    make(map[uintptr]*heapObject),
		unparsable: make(map[uintptr]bool),
	}
}

// AddObject registers an object of the given size starting at start.
func (s *SimpleHeapScanner) AddObject(start, size uintptr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[start]; !ok {
		i := sort.Search(len(s.starts), func(i int) bool { return s.starts[i] >= start })
		s.starts = append(s.starts, 0)
		copy(s.starts[i+1:], s.starts[i:])
		s.starts[i] = start
	}
	s.objects[start] = &heapObject{size: size}
}

// AddReference records an outgoing reference at slot (which must fall
// within some registered object's extent) pointing to target.
func (s *SimpleHeapScanner) AddReference(slot, target uintptr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj := s.objectForLocked(slot)
	if obj == nil {
		return
	}
	obj.refs = append(obj.refs, heapRef{slot: slot, target: target})
}

// MarkUnparsable flags addr so that a scan range containing it reports
// ScanUnparsable, simulating a card whose tail object has not finished
// being published yet.
func (s *SimpleHeapScanner) MarkUnparsable(addr uintptr) {
	s.mu.Lock()
	s.unparsable[addr] = true
	s.mu.Unlock()
}

// ClearUnparsable removes a previously set MarkUnparsable flag, e.g.
// once the object's construction is simulated as having completed.
func (s *SimpleHeapScanner) ClearUnparsable(addr uintptr) {
	s.mu.Lock()
	delete(s.unparsable, addr)
	s.mu.Unlock()
}

func (s *SimpleHeapScanner) objectForLocked(addr uintptr) *heapObject {
	i := sort.Search(len(s.starts), func(i int) bool { return s.starts[i] > addr }) - 1
	if i < 0 {
		return nil
	}
	start := s.starts[i]
	obj := s.objects[start]
	if addr >= start && addr < start+obj.size {
		return obj
	}
	return nil
}

// ScanRange implements HeapScanner.
func (s *SimpleHeapScanner) ScanRange(start, end uintptr, visit func(slot, target uintptr)) ScanOutcome {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for addr := range s.unparsable {
		if addr >= start && addr < end {
			s.visitRangeLocked(start, end, visit)
			return ScanUnparsable
		}
	}
	s.visitRangeLocked(start, end, visit)
	return ScanComplete
}

func (s *SimpleHeapScanner) visitRangeLocked(start, end uintptr, visit func(slot, target uintptr)) {
	i := sort.Search(len(s.starts), func(i int) bool { return s.starts[i] >= start })
	// An object starting just before start may still extend into the range.
	if i > 0 {
		i--
	}
	for ; i < len(s.starts); i++ {
		objStart := s.starts[i]
		if objStart >= end {
			return
		}
		obj := s.objects[objStart]
		for _, ref := range obj.refs {
			if ref.slot >= start && ref.slot < end {
				visit(ref.slot, ref.target)
			}
		}
	}
}

// NextObjectStart implements HeapScanner.
func (s *SimpleHeapScanner) NextObjectStart(addr, limit uintptr) (uintptr, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := sort.Search(len(s.starts), func(i int) bool { return s.starts[i] >= addr })
	if i >= len(s.starts) || s.starts[i] >= limit {
		return 0, false
	}
	return s.starts[i], true
}

// ScanObjectClipped implements HeapScanner.
func (s *SimpleHeapScanner) ScanObjectClipped(objStart, clipLo, clipHi uintptr, visit func(slot, target uintptr)) uintptr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[objStart]
	if !ok {
		return 0
	}
	for _, ref := range obj.refs {
		if ref.slot >= clipLo && ref.slot < clipHi {
			visit(ref.slot, ref.target)
		}
	}
	return obj.size
}
