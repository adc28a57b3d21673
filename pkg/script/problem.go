package script

import (
	"encoding/json"
	"fmt"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	serrors "github.com/wehubfusion/Daedalus/pkg/errors"
	"github.com/wehubfusion/Daedalus/pkg/search"
)

// Problem is a search problem defined by a JavaScript program. The
// program must define successors(state) returning an array of successor
// values and isSolution(state) returning a boolean; it may define
// isPrunable(state) to enable branch pruning. State values must stay
// JSON-compatible, because they cross the Go/JavaScript boundary on
// every call.
type Problem struct {
	name     string
	pool     *runtimePool
	logger   *zap.Logger
	prunable bool
}

// NewProblem compiles the script and prepares the runtime pool.
func NewProblem(name, source string, cfg Config, logger *zap.Logger) (*Problem, error) {
	cfg = cfg.withDefaults()
	if name == "" {
		return nil, fmt.Errorf("problem name is required")
	}
	if source == "" {
		return nil, fmt.Errorf("script source is required")
	}
	if len(source) > cfg.MaxSourceSize {
		return nil, fmt.Errorf("script exceeds maximum size of %d bytes", cfg.MaxSourceSize)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	program, err := goja.Compile(name, source, true)
	if err != nil {
		return nil, fmt.Errorf("script compilation failed: %w", err)
	}

	pool, err := newRuntimePool(program, cfg.PoolSize)
	if err != nil {
		return nil, err
	}

	// Capability detection happens once; all runtimes run the same
	// program.
	rt, err := pool.acquire()
	if err != nil {
		pool.close()
		return nil, err
	}
	prunable := rt.isPrunable != nil
	pool.release(rt)

	logger.Debug("Compiled script problem",
		zap.String("problem", name),
		zap.Bool("prunable", prunable),
		zap.Int("sourceBytes", len(source)))

	return &Problem{name: name, pool: pool, logger: logger, prunable: prunable}, nil
}

// Name returns the problem name.
func (p *Problem) Name() string { return p.name }

// Root wraps an initial state value for the engine. The value must
// survive a JSON round trip.
func (p *Problem) Root(initial interface{}) (search.State, error) {
	if _, err := json.Marshal(initial); err != nil {
		return nil, fmt.Errorf("initial state is not JSON-compatible: %w", err)
	}
	state := jsState{problem: p, value: initial}
	if p.prunable {
		return prunableJSState{state}, nil
	}
	return state, nil
}

// Close releases the pooled runtimes.
func (p *Problem) Close() {
	p.pool.close()
}

// jsState adapts one script-level state value to the engine contract.
// Script failures have no error channel in the contract, so they
// surface as panics carrying a contract-violation error; the parallel
// dispatcher converts them into worker failures.
type jsState struct {
	problem *Problem
	value   interface{}
	depth   int
}

func (s jsState) Successors() []search.State {
	result := s.call(func(rt *pooledRuntime) (goja.Value, error) {
		return rt.successors(goja.Undefined(), rt.vm.ToValue(s.value))
	}, "successors")

	items, ok := result.([]interface{})
	if !ok {
		if result == nil {
			return nil
		}
		panic(serrors.NewError("CONTRACT_VIOLATION",
			fmt.Sprintf("successors must return an array, got %T", result),
			serrors.ErrContractViolation))
	}

	out := make([]search.State, len(items))
	for i, v := range items {
		child := jsState{problem: s.problem, value: v, depth: s.depth + 1}
		if s.problem.prunable {
			out[i] = prunableJSState{child}
		} else {
			out[i] = child
		}
	}
	return out
}

func (s jsState) IsSolution() bool {
	result := s.call(func(rt *pooledRuntime) (goja.Value, error) {
		return rt.isSolution(goja.Undefined(), rt.vm.ToValue(s.value))
	}, "isSolution")
	b, ok := result.(bool)
	return ok && b
}

func (s jsState) Depth() int { return s.depth }

// Key serializes the state value, enabling dedupe for script problems.
func (s jsState) Key() string {
	data, err := json.Marshal(s.value)
	if err != nil {
		panic(serrors.NewError("CONTRACT_VIOLATION",
			fmt.Sprintf("state value is not JSON-compatible: %v", err),
			serrors.ErrContractViolation))
	}
	return string(data)
}

func (s jsState) String() string {
	data, err := json.Marshal(s.value)
	if err != nil {
		return fmt.Sprintf("%v", s.value)
	}
	return string(data)
}

// call runs fn on a pooled runtime and exports the result.
func (s jsState) call(fn func(rt *pooledRuntime) (goja.Value, error), op string) interface{} {
	rt, err := s.problem.pool.acquire()
	if err != nil {
		panic(serrors.NewError("CONTRACT_VIOLATION",
			fmt.Sprintf("%s: %v", op, err), serrors.ErrContractViolation))
	}
	defer s.problem.pool.release(rt)

	v, err := fn(rt)
	if err != nil {
		panic(serrors.NewError("CONTRACT_VIOLATION",
			fmt.Sprintf("%s threw: %v", op, err), serrors.ErrContractViolation))
	}
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	return v.Export()
}

// prunableJSState adds the pruning capability when the script defines
// isPrunable.
type prunableJSState struct {
	jsState
}

func (s prunableJSState) IsPrunable() bool {
	result := s.call(func(rt *pooledRuntime) (goja.Value, error) {
		return rt.isPrunable(goja.Undefined(), rt.vm.ToValue(s.value))
	}, "isPrunable")
	b, ok := result.(bool)
	return ok && b
}
