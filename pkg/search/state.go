package search

// State is the capability contract a problem state must implement.
// A State represents a partial or complete assignment and must be
// immutable once constructed: extending a branch produces a new State,
// never mutates an existing one. Immutable states are safe to share
// across parallel workers without locks.
type State interface {
	// Successors produces the candidate states one choice deeper, in a
	// deterministic order. The sequence must be finite and the call must
	// terminate; each call may recompute it. Implementations should omit
	// successors they can cheaply determine to be invalid; that is the
	// primary performance lever of the whole engine.
	Successors() []State

	// IsSolution reports whether the state is a complete, valid
	// assignment.
	IsSolution() bool

	// Depth returns the number of choices made so far. Used for
	// max-depth limiting and counters.
	Depth() int
}

// Pruner is an optional capability: states implementing it can signal
// that their branch cannot contain a solution, letting the engine skip
// expansion without calling Successors. States without the capability
// are never pruned early.
type Pruner interface {
	IsPrunable() bool
}

// Keyer is an optional capability required for visited-state dedupe
// (Config.DedupeStates): two states with equal keys are treated as the
// same search node and only the first is expanded.
type Keyer interface {
	Key() string
}

// isPrunable applies the optional Pruner capability.
func isPrunable(s State) bool {
	p, ok := s.(Pruner)
	return ok && p.IsPrunable()
}
