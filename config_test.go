// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remset

import "testing"

func TestConfigDefaults(t *testing.T) {
	var cfg *Config
	if cfg.blockSize() != 1 {
		t.Fatalf("nil Config blockSize() = %d, want 1", cfg.blockSize())
	}
	if cfg.workers() != 1 {
		t.Fatalf("nil Config workers() = %d, want 1", cfg.workers())
	}
	if cfg.debug() {
		t.Fatalf("nil Config debug() = true, want false")
	}

	d := DefaultConfig()
	if d.blockSize() != d.RSScanBlockSize {
		t.Fatalf("blockSize() = %d, want %d", d.blockSize(), d.RSScanBlockSize)
	}
	if d.rebuildChunkWords() != d.RebuildChunkWords {
		t.Fatalf("rebuildChunkWords() = %d, want %d", d.rebuildChunkWords(), d.RebuildChunkWords)
	}
}

func TestConfigLoggerNeverNil(t *testing.T) {
	var cfg *Config
	if cfg.logger() == nil {
		t.Fatalf("nil Config logger() = nil")
	}
	cfg = &Config{}
	if cfg.logger() == nil {
		t.Fatalf("zero-value Config logger() = nil")
	}
}
