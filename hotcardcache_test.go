// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remset

import "testing"

// TestHotCardCacheEviction is spec §8 scenario 3: capacity 2, inserting
// cards 10, 20, 30 in sequence retains the first two and evicts card 10
// on the third insert.
func TestHotCardCacheEviction(t *testing.T) {
	h := NewHotCardCache(2)

	if _, ok := h.Insert(10); ok {
		t.Fatalf("first insert should have headroom, got an eviction")
	}
	if _, ok := h.Insert(20); ok {
		t.Fatalf("second insert should have headroom, got an eviction")
	}
	evicted, ok := h.Insert(30)
	if !ok || evicted != 10 {
		t.Fatalf("third insert = (%d, %v), want (10, true)", evicted, ok)
	}
}

func TestHotCardCacheZeroCapacityDisabled(t *testing.T) {
	h := NewHotCardCache(0)
	if h.Enabled() {
		t.Fatalf("zero-capacity cache reports Enabled")
	}
	evicted, ok := h.Insert(7)
	if !ok || evicted != 7 {
		t.Fatalf("Insert on disabled cache = (%d, %v), want (7, true)", evicted, ok)
	}
}

func TestHotCardCacheSetUseCacheAndDrain(t *testing.T) {
	h := NewHotCardCache(4)
	h.Insert(1)
	h.Insert(2)

	h.SetUseCache(false)
	if h.Enabled() {
		t.Fatalf("cache still Enabled after SetUseCache(false)")
	}

	drained := h.Drain()
	if len(drained) != 2 {
		t.Fatalf("Drain() = %v, want 2 entries", drained)
	}
	if more := h.Drain(); len(more) != 0 {
		t.Fatalf("second Drain() = %v, want empty", more)
	}
}
