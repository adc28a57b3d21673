package search

// frame is one entry of the explicit frontier: a state plus a cursor
// into its successor sequence. The frontier always mirrors the chain of
// ancestors the recursive engine would hold on the call stack at the
// same logical point.
type frame struct {
	state   State
	succs   []State
	next    int
	entered bool
}

// dfsIterative is the explicit-frontier twin of dfsRecursive. Each node
// passes through enter exactly once; expandable nodes keep their
// successor slice and cursor on the frame so traversal resumes at the
// next untried successor after the subtree below it unwinds.
func (r *run) dfsIterative(root State) {
	frontier := make([]frame, 0, 32)
	frontier = append(frontier, frame{state: root})

	for len(frontier) > 0 {
		if r.done() {
			return
		}
		top := &frontier[len(frontier)-1]

		if !top.entered {
			top.entered = true
			if r.enter(top.state) {
				top.succs = top.state.Successors()
			}
		}

		if top.next < len(top.succs) {
			next := top.succs[top.next]
			top.next++
			frontier = append(frontier, frame{state: next})
			continue
		}

		frontier = frontier[:len(frontier)-1]
	}
}
