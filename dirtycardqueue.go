// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remset

import "sync"

// DirtyCardQueue is a single thread's log of dirtied card pointers
// (spec §3). The write barrier (out of scope) appends to it; refinement
// drains it. Modeled on mgcwork.go's per-P workbuf: a small unsynchronized
// buffer that only ever needs a lock when it is handed off to the shared
// completed-buffer list.
type DirtyCardQueue struct {
	buf []CardIdx
}

// NewDirtyCardQueue returns an empty per-thread log.
func NewDirtyCardQueue() *DirtyCardQueue {
	return &DirtyCardQueue{}
}

// Enqueue appends c to this thread's log. Not safe for concurrent use
// by more than one goroutine — exactly like the per-thread log it
// models, which only that thread ever writes to directly.
func (q *DirtyCardQueue) Enqueue(c CardIdx) {
	q.buf = append(q.buf, c)
}

// Len reports the number of entries currently logged.
func (q *DirtyCardQueue) Len() int { return len(q.buf) }

// drain empties the queue, returning its contents.
func (q *DirtyCardQueue) drain() []CardIdx {
	out := q.buf
	q.buf = nil
	return out
}

// DirtyCardQueueSet is the shared completed-buffer list a
// DirtyCardQueueSet represents in spec §3: one set for mutator logs
// (the "main" set) and a second instance is used for the into-CSet set
// (spec §4.4).
type DirtyCardQueueSet struct {
	mu        sync.Mutex
	completed [][]CardIdx
}

// NewDirtyCardQueueSet returns an empty queue set.
func NewDirtyCardQueueSet() *DirtyCardQueueSet {
	return &DirtyCardQueueSet{}
}

// ConcatenateLogs drains every per-thread log in logs and appends each
// as a completed buffer, the way G1's DirtyCardQueueSet::concatenate_logs
// folds every JavaThread's live log into the completed-buffer list
// before a pause drains it (spec §4.4, RemSet.PrepareForCollection).
func (s *DirtyCardQueueSet) ConcatenateLogs(logs ...*DirtyCardQueue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range logs {
		if b := l.drain(); len(b) > 0 {
			s.completed = append(s.completed, b)
		}
	}
}

// IterateCompletedBuffers drains every completed buffer, calling fn
// once per logged card in buffer order, then clears the completed list.
func (s *DirtyCardQueueSet) IterateCompletedBuffers(fn func(CardIdx)) {
	s.mu.Lock()
	buffers := s.completed
	s.completed = nil
	s.mu.Unlock()
	for _, b := range buffers {
		for _, c := range b {
			fn(c)
		}
	}
}

// MergeFrom moves every completed buffer from other into s, leaving
// other empty. Used by RemSet.CleanupAfterCollection to splice the
// into-CSet queue into the main queue set on evacuation failure (spec
// §4.4, §7).
func (s *DirtyCardQueueSet) MergeFrom(other *DirtyCardQueueSet) {
	other.mu.Lock()
	buffers := other.completed
	other.completed = nil
	other.mu.Unlock()

	s.mu.Lock()
	s.completed = append(s.completed, buffers...)
	s.mu.Unlock()
}

// Clear discards every completed buffer without processing it.
func (s *DirtyCardQueueSet) Clear() {
	s.mu.Lock()
	s.completed = nil
	s.mu.Unlock()
}

// SharedEnqueue appends a single-card buffer directly to the completed
// list under the queue set's own lock — the "shared dirty-card queue
// lock" of spec §4.1 step 8 / invariant I5, the only lock-taking path
// in concurrent refinement.
func (s *DirtyCardQueueSet) SharedEnqueue(c CardIdx) {
	s.mu.Lock()
	s.completed = append(s.completed, []CardIdx{c})
	s.mu.Unlock()
}

// CompletedBuffersNum reports how many completed buffers are queued.
func (s *DirtyCardQueueSet) CompletedBuffersNum() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.completed)
}
