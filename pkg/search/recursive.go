package search

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	serrors "github.com/wehubfusion/Daedalus/pkg/errors"
)

// RecursiveSearch explores all states reachable from root depth-first,
// using the call stack as the frontier, and returns every solution in
// pre-order discovery order. Limit truncation is reported through
// Result.Completed, never as an error. Panics inside the State
// implementation propagate to the caller.
func RecursiveSearch(root State, cfg Config) (*Result, error) {
	return sequentialSearch(root, cfg, EngineRecursive)
}

// IterativeSearch behaves exactly like RecursiveSearch, producing the
// same solutions in the same order for the same input, but keeps
// the frontier on an explicit stack, so it is not limited by call stack
// depth.
func IterativeSearch(root State, cfg Config) (*Result, error) {
	return sequentialSearch(root, cfg, EngineIterative)
}

func sequentialSearch(root State, cfg Config, engine Engine) (*Result, error) {
	if root == nil {
		return nil, serrors.ErrNilRoot
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger := cfg.logger()
	logger.Debug("Starting search",
		zap.String("runID", runID),
		zap.String("engine", string(engine)),
		zap.Int("maxDepth", cfg.MaxDepth),
		zap.Int("maxIterations", cfg.MaxIterations))

	r := newRun(cfg, NewCounters())
	if engine == EngineIterative {
		r.dfsIterative(root)
	} else {
		r.dfsRecursive(root)
	}

	result := &Result{
		RunID:     runID,
		Solutions: r.solutions,
		Stats:     r.counters.Snapshot(),
		Completed: !r.truncated,
	}

	logger.Info("Search finished",
		zap.String("runID", runID),
		zap.String("engine", string(engine)),
		zap.Int("solutions", len(result.Solutions)),
		zap.Int64("nodesExpanded", result.Stats.NodesExpanded),
		zap.Int64("branchesPruned", result.Stats.BranchesPruned),
		zap.Bool("completed", result.Completed),
		zap.Duration("elapsed", result.Stats.Elapsed))

	return result, nil
}

// dfsRecursive visits s and, successor by successor, its whole subtree.
func (r *run) dfsRecursive(s State) {
	if r.done() {
		return
	}
	if !r.enter(s) {
		return
	}
	for _, next := range s.Successors() {
		r.dfsRecursive(next)
		if r.done() {
			return
		}
	}
}
