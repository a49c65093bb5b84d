// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remset

// wordBytes is the unit RebuildChunkWords is expressed in (spec §6's
// rebuild_chunk_size). Treated as a fixed 8 bytes rather than derived
// from unsafe.Sizeof, since this package never touches the host's
// actual object layout.
const wordBytes = uintptr(8)

// Rebuilder reconstructs every old/humongous region's RS from scratch
// after a concurrent marking cycle, by walking live objects and
// re-inserting a source card for each outgoing cross-region reference
// (spec §4.6), grounded on g1RemSet.cpp's G1RebuildRemSetTask /
// G1RebuildRemSetClosure, generalized per Design Notes §9: the task's
// region claimer becomes RegionManager.ParIterateChunked, and the
// suspendible-thread-set yield point becomes MarkController.DoYieldCheck.
type Rebuilder struct {
	cfg       *Config
	cardTable *CardTable
	regions   RegionManager
	bitmap    MarkBitmap
	scanner   HeapScanner
	mc        MarkController

	claim int64
}

// NewRebuilder builds a Rebuilder. mc is consulted fresh on every call
// into RebuildRemSet; the same Rebuilder can be reused across
// successive marking cycles.
func NewRebuilder(cfg *Config, ct *CardTable, rm RegionManager, bm MarkBitmap, scanner HeapScanner, mc MarkController) *Rebuilder {
	return &Rebuilder{cfg: cfg, cardTable: ct, regions: rm, bitmap: bm, scanner: scanner, mc: mc}
}

// PrepareForRebuild resets the shared region claim cursor ahead of a
// new rebuild pass. Call once before the worker gang starts.
func (rb *Rebuilder) PrepareForRebuild() {
	rb.claim = 0
}

// RebuildRemSet is one worker's share of the gang task (spec §4.6
// Parallelization): it claims regions via the shared cursor until none
// remain, rebuilding each. It returns ErrAborted the moment the mark
// controller reports the cycle aborted, and any invariant violation
// hit while Config.Debug is set.
func (rb *Rebuilder) RebuildRemSet(worker, totalWorkers int) error {
	var failure error
	rb.regions.ParIterateChunked(worker, totalWorkers, &rb.claim, func(r *Region) bool {
		if rb.mc.HasAborted() {
			failure = ErrAborted
			return true
		}
		if err := rb.rebuildRegion(r); err != nil {
			failure = err
			return true
		}
		return false
	})
	return failure
}

// rebuildRegion dispatches on region type per spec §4.6.
func (rb *Rebuilder) rebuildRegion(r *Region) error {
	switch r.Type() {
	case RegionHumongousCont:
		// Scanned once, as part of its HUMONGOUS start region.
		return nil
	case RegionHumongous:
		return rb.rebuildHumongous(r)
	case RegionOld:
		return rb.rebuildOld(r)
	default:
		// FREE/YOUNG regions never carry RS entries (invariant I1).
		return nil
	}
}

// rebuildHumongous handles a humongous object, which may span this
// region's own continuations (spec §4.6, scenario 6). It is live iff
// the bitmap marks its start, or it was allocated during marking
// (TARS > TAMS, guaranteed live by SATB); if live, it is scanned
// exactly once, over the full object extent, using this region's
// starting card as the source for every outgoing reference.
func (rb *Rebuilder) rebuildHumongous(r *Region) error {
	tars, ok := rb.mc.TopAtRebuildStart(r.ID())
	if !ok {
		return nil // eagerly reclaimed before rebuild reached it.
	}
	tams := rb.mc.NextTopAtMarkStart(r.ID())
	if !rb.bitmap.IsMarked(r.Bottom()) && tars <= tams {
		return nil // dead.
	}
	rb.scanObject(r, r.Bottom(), tars)
	return nil
}

// rebuildOld walks region r's live objects in [bottom, TARS), using the
// mark bitmap to skip dead objects below TAMS and treating everything
// from TAMS through TARS as live (spec §4.6). It yields to the mark
// controller roughly every RebuildChunkWords words, exactly as the
// per-chunk do_yield_check() call in the original.
//
// Simplification: rather than clipping each scanned object strictly to
// its chunk's address range, every object is scanned once in full when
// its start is reached; the yield cadence is tracked independently via
// a running byte counter. An object array whose tail would have
// straddled a chunk boundary is therefore scanned whole rather than
// resumed piecemeal — a deliberate simplification over the original's
// per-chunk clipping, harmless here since a single worker walks a
// region start-to-finish without handing it off mid-object.
func (rb *Rebuilder) rebuildOld(r *Region) error {
	tars, ok := rb.mc.TopAtRebuildStart(r.ID())
	if !ok {
		return nil
	}
	tams := rb.mc.NextTopAtMarkStart(r.ID())
	if tars < tams {
		tams = tars
	}

	chunkBytes := uintptr(rb.cfg.rebuildChunkWords()) * wordBytes
	if chunkBytes == 0 {
		chunkBytes = wordBytes
	}

	var markedBytes uint64
	var sinceYield uintptr

	yield := func() (bool, error) {
		sinceYield = 0
		rb.mc.DoYieldCheck()
		if rb.mc.HasAborted() {
			return true, ErrAborted
		}
		if _, ok := rb.mc.TopAtRebuildStart(r.ID()); !ok {
			return true, nil // eagerly reclaimed mid-rebuild.
		}
		return false, nil
	}

	addr := r.Bottom()
	for addr < tams {
		next := rb.bitmap.NextMarked(addr, tams)
		if next >= tams {
			addr = tams
			break
		}
		size := rb.scanObject(r, next, r.End())
		markedBytes += uint64(size)
		sinceYield += size
		addr = next + size
		if sinceYield >= chunkBytes {
			if stop, err := yield(); stop {
				return err
			}
		}
	}

	for addr < tars {
		objStart, ok := rb.scanner.NextObjectStart(addr, tars)
		if !ok {
			break
		}
		size := rb.scanObject(r, objStart, r.End())
		sinceYield += size
		addr = objStart + size
		if sinceYield >= chunkBytes {
			if stop, err := yield(); stop {
				return err
			}
		}
	}

	if rb.cfg.debug() && markedBytes != r.NextMarkedBytes() {
		return invariantViolation("rebuild P5 mismatch for region %d: accumulated %d marked bytes, region recorded %d", r.ID(), markedBytes, r.NextMarkedBytes())
	}
	return nil
}

// scanObject scans the object starting at objStart, clipped to
// [objStart, clipHi), inserting objStart's card into every distinct
// old/humongous target region's RS reached from it (spec §4.6's
// re-insertion). It returns the object's full size.
func (rb *Rebuilder) scanObject(r *Region, objStart, clipHi uintptr) uintptr {
	srcCard := rb.cardTable.IndexFor(objStart)
	return rb.scanner.ScanObjectClipped(objStart, objStart, clipHi, func(_, target uintptr) {
		tr := rb.regions.RegionContaining(target)
		if tr == nil || !tr.IsOldOrHumongous() {
			return
		}
		if tr.ID() == r.ID() {
			return
		}
		tr.RS().Add(srcCard)
	})
}
