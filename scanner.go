// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remset

// Scanner performs the two-pass parallel scan of CSet region RSes
// during the evacuation pause (spec §4.3), grounded on g1RemSet.cpp's
// ScanRSClosure/scanRS.
type Scanner struct {
	cfg       *Config
	cardTable *CardTable
	regions   RegionManager
	scanner   HeapScanner
}

// NewScanner builds a Scanner.
func NewScanner(cfg *Config, ct *CardTable, rm RegionManager, hs HeapScanner) *Scanner {
	return &Scanner{cfg: cfg, cardTable: ct, regions: rm, scanner: hs}
}

// ScanRS iterates the CSet twice (spec §4.3): phase A, where each
// region is claimed by exactly one worker which drains it, scans its
// strong code roots, and marks it complete; phase B, where every
// worker may drain any remaining unclaimed blocks of any region. It
// returns the number of cards this call actually scanned.
func (s *Scanner) ScanRS(worker int, evac EvacuationCloser, codeRoots CodeRootCloser) int {
	cardsDone := 0

	s.regions.IterateCollectionSetFrom(worker, func(r *Region) bool {
		if r.RS().IterIsComplete() {
			return false
		}
		if !r.RS().ClaimIter() {
			return false
		}
		cardsDone += s.drainBlocks(r, evac)
		if codeRoots != nil {
			codeRoots.ScanCodeRoots(r)
		}
		if evac != nil {
			evac.TrimQueuePartially()
		}
		r.RS().SetIterComplete()
		return false
	})

	s.regions.IterateCollectionSetFrom(worker, func(r *Region) bool {
		if r.RS().IterIsComplete() {
			return false
		}
		cardsDone += s.drainBlocks(r, evac)
		return false
	})

	return cardsDone
}

// drainBlocks claims and scans blocks of r's RS, pushing any live
// references found into evac (which may be nil for a scan that is only
// counting cards, e.g. in tests). In phase A the caller has already
// won ClaimIter, so this simply walks the snapshot once; in phase B
// every worker calls this repeatedly, each time claiming whatever block
// is next via IterClaimedNext, so the same worker may visit the same
// region more than once across calls while different workers never
// claim the same block twice (invariant P6).
func (s *Scanner) drainBlocks(r *Region, evac EvacuationCloser) int {
	cards := r.RS().Snapshot()
	if len(cards) == 0 {
		return 0
	}
	block := s.cfg.blockSize()
	done := 0
	for {
		offset := r.RS().IterClaimedNext(block)
		if offset >= int64(len(cards)) {
			return done
		}
		limit := offset + int64(block)
		if limit > int64(len(cards)) {
			limit = int64(len(cards))
		}
		for i := offset; i < limit; i++ {
			if s.scanCard(cards[i], r, evac) {
				done++
			}
		}
	}
}

// scanCard performs the per-card work of spec §4.3 steps 1-5. The
// EvacuationCloser passed through evac receives every live reference
// found; it may be nil, in which case the card is still claimed and
// scanned (for dedup bookkeeping) but discovered references are
// discarded.
func (s *Scanner) scanCard(card CardIdx, cset *Region, evac EvacuationCloser) bool {
	addr := s.cardTable.AddrFor(card)
	cardRegion := s.regions.RegionContaining(addr)
	if cardRegion == nil {
		return false
	}
	if cardRegion.InCollectionSet() {
		// It would be scanned by updateRS instead (spec §4.3 step 2).
		return false
	}
	if s.cardTable.IsDirty(card) {
		// Will be processed during updateRS/in-pause refinement
		// instead (spec §4.3 step 3).
		return false
	}
	if !s.cardTable.AtomicSetClaimed(card) {
		// Already CLAIMED by another worker scanning an intersecting
		// RS; benign race, skip (spec §4.3 step 4, invariant P6).
		return false
	}

	lo, hi := addr, addr+CardSizeBytes
	rlo, rhi := cardRegion.Bottom(), cardRegion.ScanTop()
	if lo < rlo {
		lo = rlo
	}
	if hi > rhi {
		hi = rhi
	}
	if lo >= hi {
		return true
	}

	if evac != nil {
		s.scanner.ScanRange(lo, hi, func(slot, target uintptr) {
			evac.PushLive(slot, target)
		})
	} else {
		s.scanner.ScanRange(lo, hi, func(uintptr, uintptr) {})
	}
	return true
}
