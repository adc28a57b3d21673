package search

import (
	"sync"
	"sync/atomic"
)

// run carries the mutable state of one engine pass. Both engines funnel
// every node through enter, which applies the node semantics in a fixed
// order (depth bound, dedupe, solution test, prune test, iteration
// budget, expansion) so the recursive and iterative traversals stay
// behaviorally identical. The depth bound is checked before the
// solution test so that no solution deeper than MaxDepth can ever be
// recorded.
//
// The shared* fields are only set by the parallel dispatcher; when nil,
// the run is a plain single-threaded pass.
type run struct {
	cfg      Config
	counters *Counters

	solutions []State
	truncated bool // a limit cut off at least one branch
	stopped   bool // local latch: unwind without visiting more nodes
	foundAll  bool // stopped because the solution quota was reached

	seen map[string]struct{} // dedupe, sequential

	sharedStop      *atomic.Bool  // cooperative stop across workers
	sharedSolutions *atomic.Int64 // global solution count across workers
	sharedSeen      *sync.Map     // dedupe across workers
}

func newRun(cfg Config, counters *Counters) *run {
	r := &run{cfg: cfg, counters: counters}
	if cfg.DedupeStates {
		r.seen = make(map[string]struct{})
	}
	return r
}

// done reports whether the pass should unwind. It latches the shared
// stop flag so the check stays cheap on the hot path.
func (r *run) done() bool {
	if r.stopped {
		return true
	}
	if r.sharedStop != nil && r.sharedStop.Load() {
		r.stopped = true
		return true
	}
	return false
}

// stop halts this pass and, when running under the dispatcher, signals
// sibling workers to stop at their next check-point.
func (r *run) stop() {
	r.stopped = true
	if r.sharedStop != nil {
		r.sharedStop.Store(true)
	}
}

func (r *run) emit(kind EventKind, s State, depth int) {
	if r.cfg.Hook == nil {
		return
	}
	r.cfg.Hook(Event{Kind: kind, State: s, Depth: depth, Stats: r.counters.Snapshot()})
}

func (r *run) prune(s State, depth int) {
	r.counters.RecordPrune()
	r.emit(EventPrune, s, depth)
}

// alreadySeen marks the key visited and reports whether it had been
// visited before.
func (r *run) alreadySeen(key string) bool {
	if r.sharedSeen != nil {
		_, loaded := r.sharedSeen.LoadOrStore(key, struct{}{})
		return loaded
	}
	if _, ok := r.seen[key]; ok {
		return true
	}
	r.seen[key] = struct{}{}
	return false
}

// recordSolution appends s and reports whether the solution quota was
// reached, in which case the pass stops.
func (r *run) recordSolution(s State, depth int) bool {
	r.counters.RecordSolution()
	r.solutions = append(r.solutions, s)
	r.emit(EventSolution, s, depth)

	limit := r.cfg.solutionLimit()
	if limit == 0 {
		return false
	}
	total := int64(len(r.solutions))
	if r.sharedSolutions != nil {
		total = r.sharedSolutions.Add(1)
	}
	if total >= int64(limit) {
		r.foundAll = true
		r.stop()
	}
	return r.stopped
}

// enter applies the per-node semantics and reports whether the node
// should be expanded. When it returns true the expansion counter has
// already been incremented and the caller must iterate Successors.
func (r *run) enter(s State) bool {
	depth := s.Depth()
	r.counters.ObserveDepth(depth)

	if r.cfg.MaxDepth > 0 && depth > r.cfg.MaxDepth {
		r.truncated = true
		r.prune(s, depth)
		return false
	}

	if r.cfg.DedupeStates {
		if k, ok := s.(Keyer); ok && r.alreadySeen(k.Key()) {
			r.prune(s, depth)
			return false
		}
	}

	if s.IsSolution() {
		if r.recordSolution(s, depth) {
			return false
		}
	}

	if isPrunable(s) {
		r.prune(s, depth)
		return false
	}

	if limit := int64(r.cfg.MaxIterations); limit > 0 {
		if !r.counters.TryRecordExpand(limit) {
			// Budget exhausted: the whole search unwinds; remaining
			// siblings of the in-progress node are abandoned, not
			// enumerated.
			r.truncated = true
			r.stop()
			return false
		}
	} else {
		r.counters.RecordExpand()
	}

	r.emit(EventExpand, s, depth)
	return true
}
