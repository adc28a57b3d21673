package search

import (
	"sync/atomic"
	"time"
)

// Stats is an immutable point-in-time view of a search's counters.
type Stats struct {
	NodesExpanded  int64         `json:"nodes_expanded"`
	BranchesPruned int64         `json:"branches_pruned"`
	SolutionsFound int64         `json:"solutions_found"`
	MaxDepth       int64         `json:"max_depth"`
	Elapsed        time.Duration `json:"elapsed_ns"`
}

// Counters is a thread-safe statistics accumulator shared across a
// search run. All record methods are safe to call concurrently from
// multiple workers; counters are monotonically non-decreasing within a
// run.
type Counters struct {
	expanded  atomic.Int64
	pruned    atomic.Int64
	solutions atomic.Int64
	maxDepth  atomic.Int64
	start     time.Time
}

// NewCounters creates a counters accumulator and starts its clock.
func NewCounters() *Counters {
	return &Counters{start: time.Now()}
}

// RecordExpand records one node expansion.
func (c *Counters) RecordExpand() {
	c.expanded.Add(1)
}

// TryRecordExpand records one node expansion unless it would exceed
// limit. The compare-and-swap loop keeps the cap exact even when
// several workers share the counters.
func (c *Counters) TryRecordExpand(limit int64) bool {
	for {
		cur := c.expanded.Load()
		if cur >= limit {
			return false
		}
		if c.expanded.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

// RecordPrune records one pruned branch.
func (c *Counters) RecordPrune() {
	c.pruned.Add(1)
}

// RecordSolution records one discovered solution.
func (c *Counters) RecordSolution() {
	c.solutions.Add(1)
}

// ObserveDepth raises the maximum observed depth if d exceeds it.
func (c *Counters) ObserveDepth(d int) {
	for {
		cur := c.maxDepth.Load()
		if int64(d) <= cur || c.maxDepth.CompareAndSwap(cur, int64(d)) {
			return
		}
	}
}

// Expanded returns the current node-expansion count.
func (c *Counters) Expanded() int64 {
	return c.expanded.Load()
}

// Pruned returns the current prune count.
func (c *Counters) Pruned() int64 {
	return c.pruned.Load()
}

// Solutions returns the current solution count.
func (c *Counters) Solutions() int64 {
	return c.solutions.Load()
}

// Snapshot returns a consistent point-in-time copy of the counters, not
// a live view.
func (c *Counters) Snapshot() Stats {
	return Stats{
		NodesExpanded:  c.expanded.Load(),
		BranchesPruned: c.pruned.Load(),
		SolutionsFound: c.solutions.Load(),
		MaxDepth:       c.maxDepth.Load(),
		Elapsed:        time.Since(c.start),
	}
}
