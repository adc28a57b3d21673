package search

// EventKind identifies what happened at a search node.
type EventKind string

const (
	// EventExpand is emitted when a node is expanded.
	EventExpand EventKind = "expand"

	// EventPrune is emitted when a branch is pruned (dead branch, depth
	// bound, or duplicate state).
	EventPrune EventKind = "prune"

	// EventSolution is emitted when a solution is recorded.
	EventSolution EventKind = "solution"
)

// Event describes a single search step. The Stats field is a counters
// snapshot taken when the event fired.
type Event struct {
	Kind  EventKind
	State State
	Depth int
	Stats Stats
}

// Hook is an optional callback invoked synchronously on every expand,
// prune, and solution event. It runs on the hot path and must not block
// for long. During a parallel search it may be called concurrently from
// multiple workers; the consumer is responsible for its own
// synchronization.
type Hook func(Event)
