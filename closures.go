// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remset

// ScanOutcome is the explicit result of scanning a card's or chunk's
// memory for references, replacing the exception-like "could not parse"
// control flow a closure-based port would otherwise reach for (Design
// Notes §9).
type ScanOutcome int

const (
	// ScanComplete means every object in the requested range was
	// walked successfully.
	ScanComplete ScanOutcome = iota
	// ScanUnparsable means the range ended inside a partially
	// initialized object and could not be fully walked (spec §4.1
	// step 8, invariant I5).
	ScanUnparsable
)

// HeapScanner is the sole place object-layout knowledge lives; this
// package never parses an object itself (spec §1 Non-goals). It is
// supplied by the host collector and is the Go-shaped replacement for
// the callback-heavy oop-closure hierarchy the original walks
// (DirtyCardToOopClosure, G1ConcurrentRefineOopClosure,
// G1UpdateRSOrPushRefOopClosure, G1RebuildRemSetClosure): one small
// interface, implementations injected per worker, no virtual dispatch
// needed in the hot inner loop (Design Notes §9).
type HeapScanner interface {
	// ScanRange invokes visit(slot, target) once per outgoing reference
	// slot lying in [start, end), including slots of an object that
	// begins before start, and returns ScanUnparsable if the range covers
	// an object that could not be walked (e.g. its header has not been
	// published yet). Used by Refiner for both refinement paths and by
	// Scanner.
	ScanRange(start, end uintptr, visit func(slot, target uintptr)) ScanOutcome

	// NextObjectStart returns the address of the first object
	// beginning at or after addr and before limit. ok is false if
	// there is none — Rebuilder uses this together with MarkBitmap to
	// skip dead objects below TAMS without scanning their contents.
	NextObjectStart(addr, limit uintptr) (start uintptr, ok bool)

	// ScanObjectClipped scans exactly the object starting at objStart,
	// reporting only reference slots within [clipLo, clipHi) (object
	// arrays straddling a rebuild chunk boundary are clipped this way;
	// spec §4.6), and returns the object's total size in bytes.
	ScanObjectClipped(objStart, clipLo, clipHi uintptr, visit func(slot, target uintptr)) (size uintptr)
}

// EvacuationCloser receives references discovered while Scanner drains
// a CSet region's remembered set (spec §4.3), and the companion
// trim-the-copy-queue hook run after each region's strong code roots
// are scanned.
type EvacuationCloser interface {
	// PushLive records a live reference discovered at slot, pointing
	// to target, for the evacuation phase (out of scope here) to copy.
	PushLive(slot, target uintptr)

	// TrimQueuePartially lets the evacuation phase drain some of its
	// backlog between regions, bounding the live set Scanner can build
	// up (spec §4.3 step 5).
	TrimQueuePartially()
}

// CodeRootCloser scans the strong code roots attached to a region
// (nmethods that embed a direct reference into the region), run once
// per CSet region during Scanner's phase A (spec §4.3).
type CodeRootCloser interface {
	ScanCodeRoots(region *Region)
}
