package search

import "fmt"

// Result is the outcome of a search pass. Solutions holds every state
// for which IsSolution was true, in discovery order; Completed=false
// signals that MaxDepth or MaxIterations truncated the search and the
// solution set is partial.
type Result struct {
	// RunID uniquely identifies this search pass.
	RunID string

	// Solutions in discovery order. For ParallelSearch the order across
	// sub-roots is the fan-out order; within a sub-root it matches the
	// sequential engine.
	Solutions []State

	// Stats is the final counters snapshot.
	Stats Stats

	// Completed is false when a limit truncated the search.
	Completed bool
}

// SolutionStrings renders the solutions for logs and persisted results,
// using fmt.Stringer when a state implements it.
func (r *Result) SolutionStrings() []string {
	out := make([]string, len(r.Solutions))
	for i, s := range r.Solutions {
		if str, ok := s.(fmt.Stringer); ok {
			out[i] = str.String()
			continue
		}
		out[i] = fmt.Sprintf("%v", s)
	}
	return out
}
