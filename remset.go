// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remset

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// RemSet is the RS engine's external façade (spec §6): the single type
// a host collector embeds, wiring together CardTable, RegionManager,
// HotCardCache, the two DirtyCardQueueSets, Refiner, Scanner, and
// Rebuilder behind the pause-lifecycle operations the collector calls
// directly.
type RemSet struct {
	cfg       *Config
	cardTable *CardTable
	regions   RegionManager
	hotCache  *HotCardCache

	mainDCQ     *DirtyCardQueueSet
	intoCSetDCQ *DirtyCardQueueSet

	refiner   *Refiner
	scanner   *Scanner
	rebuilder *Rebuilder
	summary   *RSSummary

	mu           sync.Mutex
	evacSlots    []EvacuationCloser // cset_rs_update_cl[worker] (spec §3)
	cardsScanned []int64            // cards_scanned[worker]

	updateOnce   sync.Once
	inPause      atomic.Bool
	scannedTotal atomic.Uint64
}

// NewRemSet wires the engine's components from its external
// collaborators (spec §6 "consumed interfaces"). hotCache, scanner, and
// bitmap are supplied by the host; mc may be nil if the caller never
// intends to run RebuildRemSet.
func NewRemSet(cfg *Config, ct *CardTable, rm RegionManager, hot *HotCardCache, scanner HeapScanner, bitmap MarkBitmap, mc MarkController) *RemSet {
	mainDCQ := NewDirtyCardQueueSet()
	intoCSet := NewDirtyCardQueueSet()
	refiner := NewRefiner(cfg, ct, rm, hot, mainDCQ, scanner)
	return &RemSet{
		cfg:         cfg,
		cardTable:   ct,
		regions:     rm,
		hotCache:    hot,
		mainDCQ:     mainDCQ,
		intoCSetDCQ: intoCSet,
		refiner:     refiner,
		scanner:     NewScanner(cfg, ct, rm, scanner),
		rebuilder:   NewRebuilder(cfg, ct, rm, bitmap, scanner, mc),
		summary:     NewRSSummary(),
	}
}

// PrepareForCollection is `prepare_for_oops_into_collection_set` (spec
// §4.4): it folds every per-thread mutator log passed in logs into the
// main queue set's completed-buffer list, sizes the per-worker
// scratchpads, resets every CSet region's RS iterator state for this
// pass, and marks the façade as now inside a pause.
//
// The reset matters across more than one pause touching the same
// Region: Scanner.ScanRS marks a region's RS complete once it has been
// fully drained (invariant P6), and that bit must not survive into a
// later pause where the region is in the CSet again (e.g. an
// evacuation-failure region kept alive and reselected, or a recycled
// region slot) — otherwise ScanRS would see it already complete and
// scan zero cards, silently dropping evacuation roots.
func (rs *RemSet) PrepareForCollection(logs ...*DirtyCardQueue) {
	rs.mainDCQ.ConcatenateLogs(logs...)

	n := rs.cfg.workers()
	rs.mu.Lock()
	rs.evacSlots = make([]EvacuationCloser, n)
	rs.cardsScanned = make([]int64, n)
	rs.mu.Unlock()

	rs.regions.IterateCollectionSetFrom(0, func(r *Region) bool {
		r.RS().ResetForNewPass()
		return false
	})

	rs.updateOnce = sync.Once{}
	rs.inPause.Store(true)
}

// OopsIntoCollectionSet is `oops_into_collection_set(worker,
// evac_closure, code_root_closure)` (spec §4.4): it stashes evac into
// this worker's scratchpad slot, drains the in-pause refinement queue,
// then scans the CSet RSes, clearing the slot before returning. It
// reports the number of cards this call scanned.
func (rs *RemSet) OopsIntoCollectionSet(worker int, evac EvacuationCloser, codeRoots CodeRootCloser) int {
	rs.mu.Lock()
	if worker >= 0 && worker < len(rs.evacSlots) {
		rs.evacSlots[worker] = evac
	}
	rs.mu.Unlock()

	rs.UpdateRS(worker)
	n := rs.scanner.ScanRS(worker, evac, codeRoots)

	rs.mu.Lock()
	if worker >= 0 && worker < len(rs.cardsScanned) {
		rs.cardsScanned[worker] += int64(n)
	}
	if worker >= 0 && worker < len(rs.evacSlots) {
		rs.evacSlots[worker] = nil
	}
	rs.mu.Unlock()

	rs.scannedTotal.Add(uint64(n))
	return n
}

// UpdateRS is `updateRS(worker)` (spec §4.4): it drains every completed
// buffer in the main queue set, applying refine_in_pause to each card
// and routing CSet-pointing cards to the into-CSet queue.
//
// Simplification: the original parallelizes this drain across workers
// by letting each claim whole completed buffers; DirtyCardQueueSet here
// only exposes an all-at-once drain, so exactly one caller per pause
// actually does the work (via updateOnce) and the rest are no-ops. The
// cards still get refined exactly once; only the parallelism is lost.
func (rs *RemSet) UpdateRS(worker int) {
	rs.updateOnce.Do(func() {
		rs.mainDCQ.IterateCompletedBuffers(func(c CardIdx) {
			if rs.refiner.RefineInPause(c, worker) {
				rs.intoCSetDCQ.SharedEnqueue(c)
			}
		})
	})
}

// CleanupAfterCollection is `cleanup_after` (spec §4.4): it sums every
// worker's card count, resets the card table to CLEAN (invariant P1),
// and, on evacuation failure, splices the into-CSet buffers into the
// main queue set so the next concurrent refinement cycle reprocesses
// them (scenario 5) — otherwise it just discards them, since their
// CSet targets were successfully evacuated and no longer need RS
// entries. It returns the total cards scanned this pause.
func (rs *RemSet) CleanupAfterCollection(evacuationFailed bool) int {
	rs.mu.Lock()
	var total int64
	for _, n := range rs.cardsScanned {
		total += n
	}
	rs.evacSlots = nil
	rs.cardsScanned = nil
	rs.mu.Unlock()

	for _, id := range rs.cardTable.TakeDirtyRegions() {
		_ = id // region-level fast-clean bookkeeping consumed; the table reset below covers it uniformly.
	}
	rs.cardTable.ResetAllClean()

	if evacuationFailed {
		rs.mainDCQ.MergeFrom(rs.intoCSetDCQ)
	} else {
		rs.intoCSetDCQ.Clear()
	}

	rs.inPause.Store(false)
	return int(total)
}

// RefineConcurrently is the façade's `refine_concurrently(card_idx,
// worker)` (spec §6). Precondition: not inside a collection pause; in
// debug builds this is asserted rather than silently tolerated.
func (rs *RemSet) RefineConcurrently(c CardIdx, worker int) error {
	rs.summary.NoteRefineAttempt(c)
	if rs.cfg.debug() && rs.inPause.Load() {
		return fmt.Errorf("remset: refine_concurrently(%d): %w", c, ErrNotAtSafepoint)
	}
	rs.refiner.RefineConcurrently(c, worker)
	return nil
}

func (rs *RemSet) regionOf(c CardIdx) RegionID {
	addr := rs.cardTable.AddrFor(c)
	if r := rs.regions.RegionContaining(addr); r != nil {
		return r.ID()
	}
	return -1
}

// Scrub is `scrub(region_bm, card_bm)` (spec §4.5): every
// non-humongous-continuation region's RS is scrubbed of entries whose
// source region liveRegions reports dead, or whose card liveCards
// reports free of live references.
func (rs *RemSet) Scrub(liveRegions func(RegionID) bool, liveCards func(CardIdx) bool) {
	rs.regions.IterateAll(func(r *Region) bool {
		if r.Type() != RegionHumongousCont {
			r.RS().Scrub(rs.regionOf, liveRegions, liveCards)
		}
		return false
	})
}

// ScrubParallel is `scrub_parallel(..., worker, n, claim)`: the chunked
// parallel variant of Scrub, sharing claim across all n workers for
// this pass exactly like Scanner and Rebuilder.
func (rs *RemSet) ScrubParallel(worker, n int, claim *int64, liveRegions func(RegionID) bool, liveCards func(CardIdx) bool) {
	rs.regions.ParIterateChunked(worker, n, claim, func(r *Region) bool {
		if r.Type() != RegionHumongousCont {
			r.RS().Scrub(rs.regionOf, liveRegions, liveCards)
		}
		return false
	})
}

// PrepareForRebuild resets the shared rebuild claim cursor. Call once
// before the rebuild worker gang starts; see RebuildRemSet.
func (rs *RemSet) PrepareForRebuild() {
	rs.rebuilder.PrepareForRebuild()
}

// RebuildRemSet is `rebuild_rem_set(mark_controller, workers,
// worker_id_offset)` (spec §4.6): one worker's share of the post-mark RS
// reconstruction gang task.
func (rs *RemSet) RebuildRemSet(worker, totalWorkers int) error {
	return rs.rebuilder.RebuildRemSet(worker, totalWorkers)
}

// PrepareForVerify is `prepare_for_verify` (spec §4.7): it disables the
// hot-card cache and immediately refines whatever it was holding, so a
// subsequent heap verification pass observes RS state that is not
// hiding behind the cache. Call ResumeAfterVerify to re-enable it.
func (rs *RemSet) PrepareForVerify() {
	rs.hotCache.SetUseCache(false)
	for _, c := range rs.hotCache.Drain() {
		rs.refiner.RefineConcurrently(c, 0)
	}
}

// ResumeAfterVerify re-enables the hot-card cache after a verification
// pass run under PrepareForVerify.
func (rs *RemSet) ResumeAfterVerify() {
	rs.hotCache.SetUseCache(true)
}

// PrintPeriodicSummary is `print_periodic_summary_info` (spec §4.7): it
// logs the delta in refined/scanned cards since the last call, plus the
// current card-repeat and RS-occupancy histograms (SPEC_FULL.md §4's
// supplemented summary detail). A no-op when Config.SummarizeRSStats is
// false.
func (rs *RemSet) PrintPeriodicSummary() {
	if !rs.cfg.SummarizeRSStats {
		return
	}
	dRefined, dScanned := rs.summary.snapshotDelta(rs.refiner.ConcRefineCards(), rs.scannedTotal.Load())
	rs.cfg.logger().Info("rs periodic summary",
		"refined_delta", dRefined,
		"scanned_delta", dScanned,
		"in_pause_refined_total", rs.refiner.InPauseRefineCards(),
		"card_repeats", rs.summary.CardRepeatHistogram(),
		"rs_occupancy", occupancyHistogram(rs.regions),
	)
}

// PrintSummary is `print_summary(period|cumulative)` in cumulative mode
// (spec §4.7/§6): it logs totals since the engine was constructed
// rather than a delta.
func (rs *RemSet) PrintSummary() {
	if !rs.cfg.SummarizeRSStats {
		return
	}
	rs.cfg.logger().Info("rs cumulative summary",
		"refined_total", rs.refiner.ConcRefineCards(),
		"scanned_total", rs.scannedTotal.Load(),
		"in_pause_refined_total", rs.refiner.InPauseRefineCards(),
		"card_repeats", rs.summary.CardRepeatHistogram(),
		"rs_occupancy", occupancyHistogram(rs.regions),
	)
}
