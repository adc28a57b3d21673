package search

import (
	"fmt"

	"go.uber.org/zap"

	serrors "github.com/wehubfusion/Daedalus/pkg/errors"
)

// Engine selects which sequential algorithm explores a branch.
type Engine string

const (
	// EngineRecursive uses the call stack as the frontier.
	EngineRecursive Engine = "recursive"

	// EngineIterative uses an explicit frontier stack, avoiding call
	// stack depth ceilings.
	EngineIterative Engine = "iterative"
)

// Config holds the options recognized by all three search entry points.
// The zero value is a valid configuration: unbounded depth and
// iterations, all solutions, recursive engine.
type Config struct {
	// MaxDepth bounds how deep branches are explored; nodes deeper than
	// MaxDepth are pruned and the result is marked incomplete. 0 means
	// unbounded.
	MaxDepth int

	// MaxIterations is a global cap on node expansions. Hitting it ends
	// the search gracefully with a partial result (Completed=false),
	// never an error. 0 means unbounded.
	MaxIterations int

	// MaxSolutions stops the search once that many solutions were found;
	// the result is still marked completed. 0 means all solutions.
	MaxSolutions int

	// EarlyStop terminates the whole search at the first solution,
	// equivalent to MaxSolutions=1. During a parallel search the other
	// workers are signalled to stop and their partial results discarded.
	EarlyStop bool

	// DedupeStates skips re-expansion of states whose Key was already
	// seen. Requires states to implement the Keyer capability; states
	// without it are never deduplicated.
	DedupeStates bool

	// Engine selects the sequential algorithm used by ParallelSearch
	// workers. Ignored by RecursiveSearch and IterativeSearch. Defaults
	// to EngineRecursive.
	Engine Engine

	// FanOutDepth is how many layers below the root ParallelSearch
	// expands itself to obtain independent sub-roots for the worker
	// pool. Defaults to 1.
	FanOutDepth int

	// Hook, when set, receives every expand/prune/solution event.
	Hook Hook

	// Logger, when set, receives run-level log lines. Per-event logging
	// belongs in an events sink, not here.
	Logger *zap.Logger
}

// Validate checks the configuration for nonsensical values.
func (c Config) Validate() error {
	if c.MaxDepth < 0 {
		return serrors.NewError("INVALID_CONFIG", fmt.Sprintf("MaxDepth must be >= 0, got %d", c.MaxDepth), serrors.ErrInvalidConfig)
	}
	if c.MaxIterations < 0 {
		return serrors.NewError("INVALID_CONFIG", fmt.Sprintf("MaxIterations must be >= 0, got %d", c.MaxIterations), serrors.ErrInvalidConfig)
	}
	if c.MaxSolutions < 0 {
		return serrors.NewError("INVALID_CONFIG", fmt.Sprintf("MaxSolutions must be >= 0, got %d", c.MaxSolutions), serrors.ErrInvalidConfig)
	}
	if c.FanOutDepth < 0 {
		return serrors.NewError("INVALID_CONFIG", fmt.Sprintf("FanOutDepth must be >= 0, got %d", c.FanOutDepth), serrors.ErrInvalidConfig)
	}
	if c.Engine != "" && c.Engine != EngineRecursive && c.Engine != EngineIterative {
		return serrors.NewError("INVALID_CONFIG", fmt.Sprintf("unknown engine %q", c.Engine), serrors.ErrInvalidConfig)
	}
	return nil
}

// solutionLimit returns the effective solution quota: EarlyStop wins
// over MaxSolutions, 0 means no quota.
func (c Config) solutionLimit() int {
	if c.EarlyStop {
		return 1
	}
	return c.MaxSolutions
}

// engine returns the configured sequential engine, defaulted.
func (c Config) engine() Engine {
	if c.Engine == "" {
		return EngineRecursive
	}
	return c.Engine
}

// fanOutDepth returns the configured fan-out depth, defaulted.
func (c Config) fanOutDepth() int {
	if c.FanOutDepth == 0 {
		return 1
	}
	return c.FanOutDepth
}

// logger returns the configured logger or a no-op one.
func (c Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}
