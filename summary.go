// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remset

import "sync"

// RSSummary accumulates the counters RemSet's summary hooks report
// (spec §4.7), grounded on mgcgen.go's printHeapCardInfo: a handful of
// running totals, printed as a delta since the previous snapshot for
// the periodic form and as-is for the cumulative form.
type RSSummary struct {
	mu           sync.Mutex
	cardAttempts map[CardIdx]uint64
	prevRefined  uint64
	prevScanned  uint64
}

// NewRSSummary returns a summary with no recorded attempts.
func NewRSSummary() *RSSummary {
	return &RSSummary{cardAttempts: make(map[CardIdx]uint64)}
}

// NoteRefineAttempt records one more refine_concurrently call for card
// c, regardless of whether that call actually scanned anything — the
// supplemented card-repeat histogram (SPEC_FULL.md §4) exists
// specifically to surface cards that keep getting re-dirtied, which by
// definition draw far more attempts than successful scans.
func (s *RSSummary) NoteRefineAttempt(c CardIdx) {
	s.mu.Lock()
	s.cardAttempts[c]++
	s.mu.Unlock()
}

// CardRepeatHistogram buckets every card seen by NoteRefineAttempt by
// how many attempts it has drawn since construction or the last Reset.
func (s *RSSummary) CardRepeatHistogram() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	hist := map[string]int{"1": 0, "2-3": 0, "4-7": 0, "8+": 0}
	for _, n := range s.cardAttempts {
		switch {
		case n == 1:
			hist["1"]++
		case n <= 3:
			hist["2-3"]++
		case n <= 7:
			hist["4-7"]++
		default:
			hist["8+"]++
		}
	}
	return hist
}

// Reset clears the card-repeat bookkeeping, e.g. at the start of a new
// marking cycle so stale cards don't inflate the histogram forever.
func (s *RSSummary) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cardAttempts = make(map[CardIdx]uint64)
	s.prevRefined = 0
	s.prevScanned = 0
}

// snapshotDelta returns (refined, scanned) minus the values recorded by
// the previous call, then stores the new totals for next time.
func (s *RSSummary) snapshotDelta(refined, scanned uint64) (dRefined, dScanned uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dRefined, dScanned = refined-s.prevRefined, scanned-s.prevScanned
	s.prevRefined, s.prevScanned = refined, scanned
	return
}

// occupancyHistogram buckets every region by its RS's current card
// count — the supplemented RS-occupancy histogram (SPEC_FULL.md §4).
func occupancyHistogram(rm RegionManager) map[string]int {
	hist := map[string]int{"0": 0, "1-4": 0, "5-16": 0, "17-64": 0, "65+": 0}
	rm.IterateAll(func(r *Region) bool {
		switch n := r.RS().Len(); {
		case n == 0:
			hist["0"]++
		case n <= 4:
			hist["1-4"]++
		case n <= 16:
			hist["5-16"]++
		case n <= 64:
			hist["17-64"]++
		default:
			hist["65+"]++
		}
		return false
	})
	return hist
}
