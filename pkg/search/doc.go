// Package search implements a generic backtracking search engine over a
// pluggable state contract.
//
// A problem is expressed as a root State; the engine enumerates all
// complete solutions reachable from it by depth-first traversal, either
// on the call stack (RecursiveSearch), on an explicit frontier
// (IterativeSearch), or fanned out across a fixed worker pool
// (ParallelSearch). The recursive and iterative engines visit nodes in
// the same order and produce identical solution sequences for the same
// input and configuration; the parallel dispatcher preserves the
// solution set and per-branch order while relaxing the global order.
//
// Engines update a thread-safe Counters accumulator and optionally emit
// expand/prune/solution events to a Hook on the hot path. Event sinks
// (structured logging, NATS publishing) live in pkg/events.
package search
