package search

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/wehubfusion/Daedalus/pkg/concurrency"
	serrors "github.com/wehubfusion/Daedalus/pkg/errors"
)

// subRootTask is one unit of work for the dispatcher's pool: an
// independent sub-tree identified by its position in fan-out order.
type subRootTask struct {
	index int
	state State
}

// ParallelSearch fans the search out across a fixed pool of workers.
//
// The dispatcher expands the root down to cfg.FanOutDepth layers itself
// to obtain disjoint sub-roots, then feeds them to the pool through a
// shared work queue so skewed branch sizes balance out. Every worker
// runs an independent sequential engine (cfg.Engine, uniform for the
// run) over its sub-root with a private frontier, the shared Counters,
// and a shared solution quota. Solutions are merged in fan-out order at
// the join, so without a quota the merged sequence equals the
// sequential result; with EarlyStop the partial results of losing
// workers are discarded.
//
// workers <= 0 selects the environment-configured default (hardware
// parallelism, see pkg/concurrency). A worker panic cancels the
// siblings, discards all partial results, and surfaces as a
// WORKER_FAILED error.
func ParallelSearch(ctx context.Context, root State, cfg Config, workers int) (*Result, error) {
	if root == nil {
		return nil, serrors.ErrNilRoot
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = concurrency.LoadConfig().SearchWorkers
	}

	runID := uuid.NewString()
	logger := cfg.logger()
	tracer := otel.Tracer("daedalus/search")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ctx, span := tracer.Start(ctx, "search.parallel",
		trace.WithAttributes(
			attribute.String("search.run_id", runID),
			attribute.String("search.engine", string(cfg.engine())),
			attribute.Int("search.workers", workers),
		))
	defer span.End()

	counters := NewCounters()
	var stopFlag atomic.Bool
	var solutionTotal atomic.Int64
	var sharedSeen *sync.Map
	if cfg.DedupeStates {
		sharedSeen = &sync.Map{}
	}

	// External cancellation translates into the cooperative stop flag
	// that workers check at every expansion boundary.
	go func() {
		<-ctx.Done()
		stopFlag.Store(true)
	}()

	pre := newRun(cfg, counters)
	pre.sharedStop = &stopFlag
	pre.sharedSolutions = &solutionTotal
	pre.sharedSeen = sharedSeen
	subRoots := pre.collectSubRoots(root, cfg.fanOutDepth())

	if pre.stopped || len(subRoots) == 0 {
		// The fan-out layers already finished the search: quota reached,
		// budget exhausted, or nothing left to explore.
		if err := ctx.Err(); err != nil && !pre.foundAll {
			return nil, err
		}
		return finishParallel(runID, pre.solutions, counters, !pre.truncated, span, logger), nil
	}

	span.SetAttributes(attribute.Int("search.sub_roots", len(subRoots)))
	logger.Debug("Dispatching sub-roots",
		zap.String("runID", runID),
		zap.Int("subRoots", len(subRoots)),
		zap.Int("workers", workers))

	taskChan := make(chan subRootTask, len(subRoots))
	for i, s := range subRoots {
		taskChan <- subRootTask{index: i, state: s}
	}
	close(taskChan)

	branchSolutions := make([][]State, len(subRoots))
	branchFoundAll := make([]bool, len(subRoots))
	var truncated atomic.Bool
	var mu sync.Mutex
	var workerErrs []error

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for task := range taskChan {
				if stopFlag.Load() {
					return
				}
				err := searchBranch(ctx, tracer, workerID, task, cfg, counters, &stopFlag, &solutionTotal, sharedSeen, branchSolutions, branchFoundAll, &truncated)
				if err != nil {
					mu.Lock()
					workerErrs = append(workerErrs, err)
					mu.Unlock()
					stopFlag.Store(true)
					cancel()
					span.RecordError(err)
					span.SetStatus(codes.Error, err.Error())
					logger.Error("Worker failed",
						zap.String("runID", runID),
						zap.Int("workerID", workerID),
						zap.Error(err))
					return
				}
			}
		}(w)
	}
	wg.Wait()

	if len(workerErrs) > 0 {
		// Partial results are of unknown provenance once a worker
		// failed; discard them rather than return them.
		return nil, workerErrs[0]
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	solutions := append([]State(nil), pre.solutions...)
	if cfg.EarlyStop && stopFlag.Load() {
		// Keep only the winning worker's branch; siblings stopped at
		// their next check-point and their partials are dropped.
		for i := range branchSolutions {
			if branchFoundAll[i] {
				solutions = append(solutions, branchSolutions[i]...)
				break
			}
		}
	} else {
		for i := range branchSolutions {
			solutions = append(solutions, branchSolutions[i]...)
		}
		if limit := cfg.solutionLimit(); limit > 0 && len(solutions) > limit {
			solutions = solutions[:limit]
		}
	}

	completed := !pre.truncated && !truncated.Load()
	return finishParallel(runID, solutions, counters, completed, span, logger), nil
}

// searchBranch runs one sequential engine pass over a sub-root,
// recovering panics from the State implementation into a coded worker
// failure.
func searchBranch(
	ctx context.Context,
	tracer trace.Tracer,
	workerID int,
	task subRootTask,
	cfg Config,
	counters *Counters,
	stopFlag *atomic.Bool,
	solutionTotal *atomic.Int64,
	sharedSeen *sync.Map,
	branchSolutions [][]State,
	branchFoundAll []bool,
	truncated *atomic.Bool,
) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = serrors.NewError("WORKER_FAILED",
				fmt.Sprintf("worker %d panicked on sub-root %d: %v", workerID, task.index, rec),
				serrors.ErrWorkerFailed)
		}
	}()

	_, branchSpan := tracer.Start(ctx, "search.branch",
		trace.WithAttributes(
			attribute.Int("worker.id", workerID),
			attribute.Int("branch.index", task.index),
		))
	defer branchSpan.End()

	r := newRun(cfg, counters)
	r.sharedStop = stopFlag
	r.sharedSolutions = solutionTotal
	r.sharedSeen = sharedSeen

	if cfg.engine() == EngineIterative {
		r.dfsIterative(task.state)
	} else {
		r.dfsRecursive(task.state)
	}

	// Each task index is assigned to exactly one worker, so the slice
	// slots need no locking.
	branchSolutions[task.index] = r.solutions
	branchFoundAll[task.index] = r.foundAll
	if r.truncated {
		truncated.Store(true)
	}
	branchSpan.SetAttributes(attribute.Int("branch.solutions", len(r.solutions)))
	return nil
}

// collectSubRoots applies the regular node semantics to the first
// layers of the tree and returns the states at the fan-out boundary in
// the order the sequential engine would first reach them.
func (r *run) collectSubRoots(s State, layers int) []State {
	if r.done() {
		return nil
	}
	if layers == 0 {
		return []State{s}
	}
	if !r.enter(s) {
		return nil
	}
	var out []State
	for _, next := range s.Successors() {
		out = append(out, r.collectSubRoots(next, layers-1)...)
		if r.done() {
			break
		}
	}
	return out
}

func finishParallel(runID string, solutions []State, counters *Counters, completed bool, span trace.Span, logger *zap.Logger) *Result {
	result := &Result{
		RunID:     runID,
		Solutions: solutions,
		Stats:     counters.Snapshot(),
		Completed: completed,
	}
	span.SetAttributes(
		attribute.Int("search.solutions", len(result.Solutions)),
		attribute.Bool("search.completed", result.Completed),
		attribute.Int64("search.nodes_expanded", result.Stats.NodesExpanded),
	)
	logger.Info("Parallel search finished",
		zap.String("runID", runID),
		zap.Int("solutions", len(result.Solutions)),
		zap.Int64("nodesExpanded", result.Stats.NodesExpanded),
		zap.Int64("branchesPruned", result.Stats.BranchesPruned),
		zap.Bool("completed", result.Completed),
		zap.Duration("elapsed", result.Stats.Elapsed))
	return result
}
