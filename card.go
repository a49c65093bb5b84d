// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remset

import "sync"

// CardSizeBytes is the size in bytes of the fixed, aligned heap range a
// single card covers (spec §3).
const CardSizeBytes = 512

// CardIdx identifies a card by its index into the card table.
type CardIdx int64

// CardState is the value held in a single card-table byte.
type CardState uint8

const (
	// CardClean means no barrier has dirtied the card since it was last
	// refined, or it has never been written to.
	CardClean CardState = iota
	// CardDirty means a write barrier recorded a store into the card's
	// range and it has not yet been refined.
	CardDirty
	// CardYoung marks a card covering memory in a young region; the
	// write barrier's fast path filters these before they ever reach a
	// queue, but the RS engine still has to tolerate observing the
	// value during a race.
	CardYoung
	// CardClaimed is the transient, scan-side mark used by Scanner to
	// deduplicate cards reachable from more than one CSet region's RS
	// (spec §4.3 step 4).
	CardClaimed
)

// CardTable is the byte-per-card store consumed from the heap region
// manager (spec §6, "out of scope (external collaborators)"). The RS
// engine only ever needs the operations below; ownership of the
// address<->index mapping belongs here, grounded the way mgcgen.go
// derives a card index from an arena-relative offset and
// runtime/internal/atomic's Uint8 type backs single-byte atomic access.
//
// sync/atomic has no exported byte-wide primitive, so each card's state
// is held in its own atomic.Uint32 rather than reaching for unsafe
// pointer arithmetic over a packed []byte the way the runtime itself
// does internally (see DESIGN.md).
type CardTable struct {
	heapStart uintptr
	cards     []atomicByte

	dirtyMu      sync.Mutex
	dirtyRegions map[RegionID]struct{}
}

// NewCardTable allocates a card table covering numCards cards starting
// at heapStart.
func NewCardTable(heapStart uintptr, numCards int) *CardTable {
	return &CardTable{
		heapStart:    heapStart,
		cards:        make([]atomicByte, numCards),
		dirtyRegions: make(map[RegionID]struct{}),
	}
}

// NumCards reports the table's capacity.
func (ct *CardTable) NumCards() int { return len(ct.cards) }

// ValueAt returns the current state of card idx.
func (ct *CardTable) ValueAt(idx CardIdx) CardState {
	return CardState(ct.cards[idx].load())
}

// IsDirty reports whether card idx is currently DIRTY.
func (ct *CardTable) IsDirty(idx CardIdx) bool {
	return ct.ValueAt(idx) == CardDirty
}

// AtomicClean unconditionally stores CLEAN into card idx (spec §4.1
// step 6 / §4.2). The store is a single atomic write; callers that need
// the accompanying full fence before reading object contents should
// call storeLoadFence immediately afterwards.
func (ct *CardTable) AtomicClean(idx CardIdx) {
	ct.cards[idx].store(byte(CardClean))
}

// MarkDirty unconditionally stores DIRTY into card idx. Used by the
// write barrier (out of scope here) and by the redirty-on-unparsable
// path (spec §4.1 step 8, invariant I5).
func (ct *CardTable) MarkDirty(idx CardIdx) {
	ct.cards[idx].store(byte(CardDirty))
}

// MarkYoung stores YOUNG into card idx.
func (ct *CardTable) MarkYoung(idx CardIdx) {
	ct.cards[idx].store(byte(CardYoung))
}

// AtomicSetClaimed attempts to transition card idx from CLEAN to
// CLAIMED. It reports whether this call won the race. A card that is
// not CLEAN (already CLAIMED by another worker, or raced back to DIRTY)
// fails the CAS and the caller should skip it. Because the transition
// is a single CAS, at most one worker wins any given card.
func (ct *CardTable) AtomicSetClaimed(idx CardIdx) bool {
	return ct.cards[idx].cas(byte(CardClean), byte(CardClaimed))
}

// ResetAllClean drives every card back to CLEAN (spec invariant P1,
// RemSet.CleanupAfterCollection). Every card is cleared, whether or not
// its region was noted via NoteDirtyRegion; the noted-region set is
// then discarded.
func (ct *CardTable) ResetAllClean() {
	for i := range ct.cards {
		ct.cards[i].store(byte(CardClean))
	}
	ct.dirtyMu.Lock()
	ct.dirtyRegions = make(map[RegionID]struct{})
	ct.dirtyMu.Unlock()
}

// NoteDirtyRegion records that region id had at least one card touched
// during the current pause or refinement cycle.
func (ct *CardTable) NoteDirtyRegion(id RegionID) {
	ct.dirtyMu.Lock()
	ct.dirtyRegions[id] = struct{}{}
	ct.dirtyMu.Unlock()
}

// TakeDirtyRegions drains and returns the set of regions noted via
// NoteDirtyRegion since the last call.
func (ct *CardTable) TakeDirtyRegions() []RegionID {
	ct.dirtyMu.Lock()
	defer ct.dirtyMu.Unlock()
	out := make([]RegionID, 0, len(ct.dirtyRegions))
	for id := range ct.dirtyRegions {
		out = append(out, id)
	}
	ct.dirtyRegions = make(map[RegionID]struct{})
	return out
}

// AddrFor returns the start address of the memory range card idx covers.
func (ct *CardTable) AddrFor(idx CardIdx) uintptr {
	return ct.heapStart + uintptr(idx)*CardSizeBytes
}

// IndexFor returns the index of the card covering addr.
func (ct *CardTable) IndexFor(addr uintptr) CardIdx {
	return CardIdx((addr - ct.heapStart) / CardSizeBytes)
}
