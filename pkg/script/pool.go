package script

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dop251/goja"
)

// pooledRuntime is one JavaScript runtime with the problem functions
// already bound. A runtime is single-threaded; the pool hands it to one
// caller at a time.
type pooledRuntime struct {
	vm         *goja.Runtime
	successors goja.Callable
	isSolution goja.Callable
	isPrunable goja.Callable // nil when the script does not define it
}

// runtimePool keeps compiled runtimes for reuse across state
// evaluations. Acquire creates a fresh runtime when the pool is empty;
// Release drops the runtime when the pool is full.
type runtimePool struct {
	pool    chan *pooledRuntime
	program *goja.Program
	mu      sync.Mutex
	closed  bool

	created  atomic.Int64
	acquired atomic.Int64
}

func newRuntimePool(program *goja.Program, size int) (*runtimePool, error) {
	p := &runtimePool{
		pool:    make(chan *pooledRuntime, size),
		program: program,
	}
	// One eager runtime validates the script before any search starts.
	rt, err := p.createRuntime()
	if err != nil {
		return nil, err
	}
	p.pool <- rt
	return p, nil
}

func (p *runtimePool) acquire() (*pooledRuntime, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, fmt.Errorf("runtime pool is closed")
	}
	p.mu.Unlock()

	p.acquired.Add(1)
	select {
	case rt := <-p.pool:
		return rt, nil
	default:
		return p.createRuntime()
	}
}

func (p *runtimePool) release(rt *pooledRuntime) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return
	}
	select {
	case p.pool <- rt:
	default:
		// Pool full, let the runtime be collected.
	}
}

func (p *runtimePool) createRuntime() (*pooledRuntime, error) {
	vm := goja.New()
	if err := applySandbox(vm); err != nil {
		return nil, err
	}
	if _, err := vm.RunProgram(p.program); err != nil {
		return nil, fmt.Errorf("script evaluation failed: %w", err)
	}

	successors, err := requiredFunction(vm, "successors")
	if err != nil {
		return nil, err
	}
	isSolution, err := requiredFunction(vm, "isSolution")
	if err != nil {
		return nil, err
	}

	rt := &pooledRuntime{
		vm:         vm,
		successors: successors,
		isSolution: isSolution,
	}
	if fn, ok := goja.AssertFunction(vm.Get("isPrunable")); ok {
		rt.isPrunable = fn
	}

	p.created.Add(1)
	return rt, nil
}

func (p *runtimePool) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.pool)
	for range p.pool {
	}
}

func requiredFunction(vm *goja.Runtime, name string) (goja.Callable, error) {
	fn, ok := goja.AssertFunction(vm.Get(name))
	if !ok {
		return nil, fmt.Errorf("script must define a %s function", name)
	}
	return fn, nil
}
