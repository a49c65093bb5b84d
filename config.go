// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remset

import (
	"io"
	"log/slog"
)

// Config holds the tunables exposed by the RS engine (spec §6). There is
// no persisted state and no CLI: a Config is a plain value, constructed
// once by the host collector and handed to New.
type Config struct {
	// RSScanBlockSize is the number of cards a single claim unit hands out
	// in Scanner.ScanRS. Larger values reduce contention on a region's
	// claim counter at the cost of coarser load balancing across workers.
	RSScanBlockSize int

	// RebuildChunkWords is the number of heap words processed per yield
	// point by Rebuilder. Smaller values yield more often and cooperate
	// better with requests to abort the marking cycle.
	RebuildChunkWords int

	// SummarizeRSStats enables the summaries RSSummary feeds. When
	// false, PrintPeriodicSummary and PrintSummary log nothing.
	SummarizeRSStats bool

	// HotCardCacheSize records the intended HotCardCache capacity. No
	// code in this package reads it: the capacity in effect is the one
	// passed to NewHotCardCache for the cache handed to NewRemSet (zero
	// there disables the cache, so every dirty card flows straight to
	// refinement).
	HotCardCacheSize int

	// ParallelGCThreads is the width of the pause-parallel worker pool.
	// RemSet.PrepareForCollection sizes its per-worker scratchpads from
	// it; Scanner and Rebuilder take their worker ids from the caller.
	ParallelGCThreads int

	// Debug enables the assertions in §7/§8 (invariants I1-I5, P1-P7).
	// Violations are reported instead of being silently tolerated: as a
	// panic from RefineInPause, and as a returned error from
	// RebuildRemSet and RemSet.RefineConcurrently. Release builds should
	// leave this false.
	Debug bool

	// Logger receives structured diagnostics. A nil Logger means no
	// logging; DefaultConfig sets it to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns the tunables a stand-alone collector would start
// with. Collectors embedding this package are expected to override at
// least ParallelGCThreads to match their worker pool.
func DefaultConfig() *Config {
	return &Config{
		RSScanBlockSize:   64,
		RebuildChunkWords: 4096,
		SummarizeRSStats:  true,
		HotCardCacheSize:  256,
		ParallelGCThreads: 1,
		Debug:             false,
		Logger:            slog.Default(),
	}
}

func (c *Config) logger() *slog.Logger {
	if c == nil || c.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c.Logger
}

func (c *Config) blockSize() int {
	if c == nil || c.RSScanBlockSize < 1 {
		return 1
	}
	return c.RSScanBlockSize
}

func (c *Config) rebuildChunkWords() int {
	if c == nil || c.RebuildChunkWords < 1 {
		return 4096
	}
	return c.RebuildChunkWords
}

func (c *Config) workers() int {
	if c == nil || c.ParallelGCThreads < 1 {
		return 1
	}
	return c.ParallelGCThreads
}

func (c *Config) debug() bool {
	return c != nil && c.Debug
}
