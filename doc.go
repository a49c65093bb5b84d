// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package remset implements the remembered-set engine of a region-based
// garbage collector.
//
// A region-based heap is partitioned into fixed-size regions; during a
// collection pause only a chosen subset (the collection set, or CSet) is
// evacuated. To evacuate a region without scanning the entire heap, each
// region maintains a remembered set (RS) of incoming cross-region
// references. This package refines write-barrier-generated dirty cards
// into RS entries concurrently with application threads, scans the RSes
// of CSet regions during the stop-the-world evacuation pause, and
// rebuilds RSes after a concurrent marking cycle.
//
// The package deliberately knows nothing about object layout, the write
// barrier's fast path, the mark algorithm, or the evacuation policy.
// Those are supplied by the host collector through the CardTable type in
// card.go and the small set of interfaces in region.go, markbitmap.go,
// markcontroller.go and closures.go.
package remset
