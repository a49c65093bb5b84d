// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remset

import "sync/atomic"

// RegionID identifies a region. -1 is never a valid id and is used as a
// sentinel meaning "no region" (e.g. RemSet's card-to-region lookup for
// an address outside every region).
type RegionID int32

// RegionType classifies a Region (spec §3).
type RegionType uint8

const (
	RegionFree RegionType = iota
	RegionYoung
	RegionOld
	RegionHumongous
	RegionHumongousCont
)

// Region is a contiguous heap range. Type and Top may change
// concurrently with refinement (region recycling, allocation); every
// field the RS engine reads racily is backed by an atomic, mirroring
// how mheap.go/mspan.go let a span's state and allocation frontier be
// read without a lock while the allocator keeps mutating them.
type Region struct {
	id     RegionID
	bottom uintptr
	end    uintptr

	typ     atomic.Uint32
	top     atomic.Uint64
	scanTop atomic.Uint64
	inCSet  atomic.Bool

	humongousStart RegionID // for HUMONGOUS_CONT: id of the starting region; the region's own id otherwise

	nextMarkedBytes atomic.Uint64 // recorded by the mark phase; cross-checked by Rebuilder (P5)

	rs *PerRegionRS
}

// NewRegion constructs a region covering [bottom, end) with the given
// type. humongousStart should be id for an ordinary region or a
// HUMONGOUS region's own start, and the id of that start region for a
// HUMONGOUS_CONT continuation.
func NewRegion(id RegionID, bottom, end uintptr, typ RegionType, humongousStart RegionID) *Region {
	r := &Region{
		id:             id,
		bottom:         bottom,
		end:            end,
		humongousStart: humongousStart,
		rs:             NewPerRegionRS(),
	}
	r.typ.Store(uint32(typ))
	r.top.Store(uint64(bottom))
	r.scanTop.Store(uint64(bottom))
	return r
}

func (r *Region) ID() RegionID     { return r.id }
func (r *Region) Bottom() uintptr  { return r.bottom }
func (r *Region) End() uintptr     { return r.end }
func (r *Region) RS() *PerRegionRS { return r.rs }

// Type returns the region's current type. The read is racy by design
// (spec §3): a region may be concurrently recycled.
func (r *Region) Type() RegionType { return RegionType(r.typ.Load()) }

// SetType updates the region's type, e.g. when it is recycled.
func (r *Region) SetType(t RegionType) { r.typ.Store(uint32(t)) }

// Top returns the live allocation frontier.
func (r *Region) Top() uintptr { return uintptr(r.top.Load()) }

// SetTop advances the allocation frontier.
func (r *Region) SetTop(addr uintptr) { r.top.Store(uint64(addr)) }

// ScanTop returns the frontier safe to scan during a pause, excluding
// GC-thread-local allocation buffer tails (spec §4.2).
func (r *Region) ScanTop() uintptr { return uintptr(r.scanTop.Load()) }

// SetScanTop records the pause-safe scan frontier; called once per
// region at the start of a pause.
func (r *Region) SetScanTop(addr uintptr) { r.scanTop.Store(uint64(addr)) }

// InCollectionSet reports whether the region is currently part of the
// CSet being evacuated.
func (r *Region) InCollectionSet() bool { return r.inCSet.Load() }

// SetInCollectionSet marks or unmarks the region as part of the CSet.
func (r *Region) SetInCollectionSet(v bool) { r.inCSet.Store(v) }

// IsOldOrHumongous reports whether the region is a valid refinement
// target (invariant I1): only OLD and HUMONGOUS(_CONT) regions ever
// gain RS entries.
func (r *Region) IsOldOrHumongous() bool {
	switch r.Type() {
	case RegionOld, RegionHumongous, RegionHumongousCont:
		return true
	default:
		return false
	}
}

// HumongousStartRegion returns the id of the region holding the start
// of the humongous object this region belongs to (itself, for a
// HUMONGOUS region).
func (r *Region) HumongousStartRegion() RegionID { return r.humongousStart }

// NextMarkedBytes returns the live-byte count the mark phase recorded
// below TAMS for this region, used by Rebuilder's P5 cross-check.
func (r *Region) NextMarkedBytes() uint64 { return r.nextMarkedBytes.Load() }

// SetNextMarkedBytes is called by the mark phase (out of scope here)
// once marking for this region completes.
func (r *Region) SetNextMarkedBytes(v uint64) { r.nextMarkedBytes.Store(v) }

// RegionManager supplies region lookup and iteration (spec §6). The RS
// engine never allocates, frees, or recycles a region itself.
type RegionManager interface {
	// RegionContaining returns the region whose [bottom, end) contains
	// addr, or nil if addr is not in any live region (e.g. unmapped, or
	// a stale reference to a freed region never reused).
	RegionContaining(addr uintptr) *Region

	// IterateCollectionSetFrom calls fn for each region in the CSet,
	// starting at an offset derived from worker so that concurrent
	// callers with different worker ids make progress on different
	// regions first. fn returning true stops the iteration early.
	IterateCollectionSetFrom(worker int, fn func(*Region) bool)

	// IterateAll calls fn for every region in the heap, in index order.
	// fn returning true stops the iteration early.
	IterateAll(fn func(*Region) bool)

	// ParIterateChunked partitions all regions across n workers using
	// claim as the shared claim cursor; worker calls with the same
	// claim pointer and different worker ids never visit the same
	// region twice. fn returning true stops that worker's iteration.
	ParIterateChunked(worker, n int, claim *int64, fn func(*Region) bool)
}

// SimpleRegionManager is a straightforward slice-backed RegionManager,
// suitable both as a reference implementation and for tests. Region
// lookup is a direct index computation, mirroring how mheap.go derives
// a span from an address via the arena's linear layout rather than a
// search structure.
type SimpleRegionManager struct {
	heapStart  uintptr
	regionSize uintptr
	regions    []*Region
}

// NewSimpleRegionManager builds a manager over numRegions contiguous,
// equal-sized regions starting at heapStart, all initially FREE.
func NewSimpleRegionManager(heapStart uintptr, regionSize uintptr, numRegions int) *SimpleRegionManager {
	m := &SimpleRegionManager{heapStart: heapStart, regionSize: regionSize}
	m.regions = make([]*Region, numRegions)
	for i := range m.regions {
		bottom := heapStart + uintptr(i)*regionSize
		m.regions[i] = NewRegion(RegionID(i), bottom, bottom+regionSize, RegionFree, RegionID(i))
	}
	return m
}

// Region returns the region with the given id, or nil if out of range.
func (m *SimpleRegionManager) Region(id RegionID) *Region {
	if id < 0 || int(id) >= len(m.regions) {
		return nil
	}
	return m.regions[id]
}

// NumRegions reports the manager's region count.
func (m *SimpleRegionManager) NumRegions() int { return len(m.regions) }

func (m *SimpleRegionManager) RegionContaining(addr uintptr) *Region {
	if addr < m.heapStart {
		return nil
	}
	idx := int((addr - m.heapStart) / m.regionSize)
	if idx < 0 || idx >= len(m.regions) {
		return nil
	}
	return m.regions[idx]
}

func (m *SimpleRegionManager) IterateAll(fn func(*Region) bool) {
	for _, r := range m.regions {
		if fn(r) {
			return
		}
	}
}

func (m *SimpleRegionManager) IterateCollectionSetFrom(worker int, fn func(*Region) bool) {
	n := len(m.regions)
	if n == 0 {
		return
	}
	start := worker % n
	for i := 0; i < n; i++ {
		r := m.regions[(start+i)%n]
		if !r.InCollectionSet() {
			continue
		}
		if fn(r) {
			return
		}
	}
}

func (m *SimpleRegionManager) ParIterateChunked(worker, n int, claim *int64, fn func(*Region) bool) {
	if n < 1 {
		n = 1
	}
	total := int64(len(m.regions))
	for {
		idx := atomicClaimInt64(claim, 1)
		if idx >= total {
			return
		}
		if fn(m.regions[idx]) {
			return
		}
	}
}
