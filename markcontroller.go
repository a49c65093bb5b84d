// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remset

import "sync"

// MarkController is the concurrent-mark collaborator Rebuilder consults
// (spec §6). Implemented by the mark phase, out of scope here.
type MarkController interface {
	// TopAtRebuildStart returns the region's TARS and whether it is
	// still defined. A region whose TARS became undefined (ok == false)
	// was eagerly reclaimed mid-rebuild and Rebuilder must stop
	// iterating it (spec §4.6).
	TopAtRebuildStart(region RegionID) (addr uintptr, ok bool)

	// NextTopAtMarkStart returns the region's TAMS: the allocation
	// frontier as of when marking began.
	NextTopAtMarkStart(region RegionID) uintptr

	// HasAborted reports whether the concurrent marking cycle was
	// aborted; Rebuilder stops promptly when this becomes true.
	HasAborted() bool

	// DoYieldCheck is called once per rebuild chunk so the controller
	// can cooperate with a pending safepoint (spec §5's suspendible
	// thread set, generalized per Design Notes §9).
	DoYieldCheck()
}

// SimpleMarkController is a reference MarkController backed by plain
// maps, suitable for tests and for collectors whose mark phase can push
// TAMS/TARS values directly rather than computing them on demand.
type SimpleMarkController struct {
	mu       sync.Mutex
	tams     map[RegionID]uintptr
	tars     map[RegionID]uintptr
	tarsSet  map[RegionID]bool
	aborted  bool
	yieldFn  func()
	yieldCnt int
}

// NewSimpleMarkController returns a controller with no recorded
// TAMS/TARS for any region; SetTAMS/SetTARS populate it as the mark and
// rebuild phases progress.
func NewSimpleMarkController() *SimpleMarkController {
	return &SimpleMarkController{
		tams:    make(map[RegionID]uintptr),
		tars:    make(map[RegionID]uintptr),
		tarsSet: make(map[RegionID]bool),
	}
}

// SetTAMS records a region's top-at-mark-start.
func (c *SimpleMarkController) SetTAMS(id RegionID, addr uintptr) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tams[id] = addr
}

// SetTARS records a region's top-at-rebuild-start. Call ClearTARS
// instead to simulate eager reclamation mid-rebuild.
func (c *SimpleMarkController) SetTARS(id RegionID, addr uintptr) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tars[id] = addr
	c.tarsSet[id] = true
}

// ClearTARS marks a region's TARS as undefined, simulating eager
// reclamation observed mid-rebuild (spec §4.6).
func (c *SimpleMarkController) ClearTARS(id RegionID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tars, id)
	c.tarsSet[id] = false
}

// SetAborted flips whether the cycle is reported as aborted.
func (c *SimpleMarkController) SetAborted(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aborted = v
}

// OnYield installs a callback invoked by every DoYieldCheck; tests use
// this to observe cooperation cadence.
func (c *SimpleMarkController) OnYield(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.yieldFn = fn
}

func (c *SimpleMarkController) TopAtRebuildStart(id RegionID) (uintptr, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.tarsSet[id] {
		return 0, false
	}
	return c.tars[id], true
}

func (c *SimpleMarkController) NextTopAtMarkStart(id RegionID) uintptr {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tams[id]
}

func (c *SimpleMarkController) HasAborted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aborted
}

func (c *SimpleMarkController) DoYieldCheck() {
	c.mu.Lock()
	c.yieldCnt++
	fn := c.yieldFn
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// YieldCount reports how many times DoYieldCheck has been called.
func (c *SimpleMarkController) YieldCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.yieldCnt
}
