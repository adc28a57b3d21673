package search

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	serrors "github.com/wehubfusion/Daedalus/pkg/errors"
)

// treeState is a complete fixed-height tree whose nodes are identified
// by their choice path. Value semantics keep states immutable.
type treeState struct {
	path      string
	branch    int
	height    int
	goals     map[string]bool
	leafGoals bool
}

func newTree(branch, height int, goals ...string) treeState {
	g := make(map[string]bool, len(goals))
	for _, p := range goals {
		g[p] = true
	}
	return treeState{branch: branch, height: height, goals: g}
}

func (s treeState) Successors() []State {
	if len(s.path) >= s.height {
		return nil
	}
	out := make([]State, s.branch)
	for i := 0; i < s.branch; i++ {
		child := s
		child.path = s.path + string(rune('0'+i))
		out[i] = child
	}
	return out
}

func (s treeState) IsSolution() bool {
	if s.leafGoals && len(s.path) == s.height {
		return true
	}
	return s.goals[s.path]
}

func (s treeState) Depth() int { return len(s.path) }

func (s treeState) String() string { return s.path }

// prunableTree marks every node under deadPrefix as a dead branch.
type prunableTree struct {
	treeState
	deadPrefix string
}

func (s prunableTree) IsPrunable() bool {
	return s.deadPrefix != "" && strings.HasPrefix(s.path, s.deadPrefix)
}

func (s prunableTree) Successors() []State {
	succ := s.treeState.Successors()
	out := make([]State, len(succ))
	for i, c := range succ {
		out[i] = prunableTree{treeState: c.(treeState), deadPrefix: s.deadPrefix}
	}
	return out
}

// gridState walks a lattice from (0,0) to (size,size). Many paths reach
// the same cell, which makes it the dedupe test bed.
type gridState struct {
	row, col int
	size     int
}

func (s gridState) Successors() []State {
	var out []State
	if s.row < s.size {
		out = append(out, gridState{s.row + 1, s.col, s.size})
	}
	if s.col < s.size {
		out = append(out, gridState{s.row, s.col + 1, s.size})
	}
	return out
}

func (s gridState) IsSolution() bool { return s.row == s.size && s.col == s.size }
func (s gridState) Depth() int       { return s.row + s.col }
func (s gridState) Key() string      { return fmt.Sprintf("%d,%d", s.row, s.col) }
func (s gridState) String() string   { return s.Key() }

func mustSearch(t *testing.T, fn func(State, Config) (*Result, error), root State, cfg Config) *Result {
	t.Helper()
	res, err := fn(root, cfg)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	return res
}

func assertSameOutcome(t *testing.T, rec, it *Result) {
	t.Helper()
	recSols, itSols := rec.SolutionStrings(), it.SolutionStrings()
	if len(recSols) != len(itSols) {
		t.Fatalf("solution count mismatch: recursive %d, iterative %d", len(recSols), len(itSols))
	}
	for i := range recSols {
		if recSols[i] != itSols[i] {
			t.Fatalf("solution %d mismatch: recursive %q, iterative %q", i, recSols[i], itSols[i])
		}
	}
	if rec.Completed != it.Completed {
		t.Fatalf("completed mismatch: recursive %t, iterative %t", rec.Completed, it.Completed)
	}
	if rec.Stats.NodesExpanded != it.Stats.NodesExpanded {
		t.Fatalf("nodes expanded mismatch: recursive %d, iterative %d", rec.Stats.NodesExpanded, it.Stats.NodesExpanded)
	}
	if rec.Stats.BranchesPruned != it.Stats.BranchesPruned {
		t.Fatalf("branches pruned mismatch: recursive %d, iterative %d", rec.Stats.BranchesPruned, it.Stats.BranchesPruned)
	}
	if rec.Stats.SolutionsFound != it.Stats.SolutionsFound {
		t.Fatalf("solutions found mismatch: recursive %d, iterative %d", rec.Stats.SolutionsFound, it.Stats.SolutionsFound)
	}
	if rec.Stats.MaxDepth != it.Stats.MaxDepth {
		t.Fatalf("max depth mismatch: recursive %d, iterative %d", rec.Stats.MaxDepth, it.Stats.MaxDepth)
	}
}

func TestEngineEquivalence(t *testing.T) {
	cases := []struct {
		name string
		root State
		cfg  Config
	}{
		{
			name: "exhaustive",
			root: treeState{branch: 3, height: 4, leafGoals: true},
			cfg:  Config{},
		},
		{
			name: "depth bound",
			root: newTree(2, 6, "010", "010101", "111"),
			cfg:  Config{MaxDepth: 4},
		},
		{
			name: "iteration budget",
			root: treeState{branch: 2, height: 10, leafGoals: true},
			cfg:  Config{MaxIterations: 37},
		},
		{
			name: "solution quota",
			root: treeState{branch: 2, height: 5, leafGoals: true},
			cfg:  Config{MaxSolutions: 3},
		},
		{
			name: "early stop",
			root: newTree(2, 8, "11111111"),
			cfg:  Config{EarlyStop: true},
		},
		{
			name: "pruned branch",
			root: prunableTree{treeState: treeState{branch: 3, height: 4, leafGoals: true}, deadPrefix: "1"},
			cfg:  Config{},
		},
		{
			name: "dedupe",
			root: gridState{size: 3},
			cfg:  Config{DedupeStates: true},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := mustSearch(t, RecursiveSearch, tc.root, tc.cfg)
			it := mustSearch(t, IterativeSearch, tc.root, tc.cfg)
			assertSameOutcome(t, rec, it)
		})
	}
}

func TestExhaustiveSearchFindsAllLeaves(t *testing.T) {
	root := treeState{branch: 2, height: 4, leafGoals: true}
	res := mustSearch(t, RecursiveSearch, root, Config{})

	if len(res.Solutions) != 16 {
		t.Fatalf("expected 16 solutions, got %d", len(res.Solutions))
	}
	if !res.Completed {
		t.Fatal("expected completed result for exhaustive search")
	}
	// 2^5 - 1 nodes in a complete binary tree of height 4.
	if res.Stats.NodesExpanded != 31 {
		t.Fatalf("expected 31 nodes expanded, got %d", res.Stats.NodesExpanded)
	}
	sols := res.SolutionStrings()
	if sols[0] != "0000" || sols[15] != "1111" {
		t.Fatalf("expected lexicographic discovery order, got first %q last %q", sols[0], sols[15])
	}
}

func TestRootSolutionIsRecorded(t *testing.T) {
	root := newTree(2, 3, "", "01")
	res := mustSearch(t, IterativeSearch, root, Config{})

	sols := res.SolutionStrings()
	if len(sols) != 2 || sols[0] != "" || sols[1] != "01" {
		t.Fatalf("expected root solution first, got %v", sols)
	}
}

func TestMaxDepthBoundsSolutions(t *testing.T) {
	root := newTree(2, 6, "010", "010101", "111111")
	res := mustSearch(t, RecursiveSearch, root, Config{MaxDepth: 4})

	for _, s := range res.Solutions {
		if s.Depth() > 4 {
			t.Fatalf("solution %v deeper than the depth bound", s)
		}
	}
	if len(res.Solutions) != 1 || res.SolutionStrings()[0] != "010" {
		t.Fatalf("expected only the shallow solution, got %v", res.SolutionStrings())
	}
	if res.Completed {
		t.Fatal("expected incomplete result when the depth bound truncates branches")
	}
}

func TestMaxDepthAboveTreeHeightKeepsResultComplete(t *testing.T) {
	root := treeState{branch: 2, height: 3, leafGoals: true}
	res := mustSearch(t, RecursiveSearch, root, Config{MaxDepth: 10})

	if !res.Completed {
		t.Fatal("expected completed result when no branch reaches the bound")
	}
	if len(res.Solutions) != 8 {
		t.Fatalf("expected 8 solutions, got %d", len(res.Solutions))
	}
}

func TestIterationBudgetExhaustion(t *testing.T) {
	root := treeState{branch: 2, height: 10, leafGoals: true}
	res := mustSearch(t, RecursiveSearch, root, Config{MaxIterations: 5})

	if res.Stats.NodesExpanded != 5 {
		t.Fatalf("expected exactly 5 nodes expanded, got %d", res.Stats.NodesExpanded)
	}
	if res.Completed {
		t.Fatal("expected incomplete result when the iteration budget runs out")
	}
}

func TestMaxSolutionsStopsEarlyButCompletes(t *testing.T) {
	root := treeState{branch: 2, height: 5, leafGoals: true}
	res := mustSearch(t, IterativeSearch, root, Config{MaxSolutions: 3})

	sols := res.SolutionStrings()
	if len(sols) != 3 {
		t.Fatalf("expected 3 solutions, got %d", len(sols))
	}
	want := []string{"00000", "00001", "00010"}
	for i, w := range want {
		if sols[i] != w {
			t.Fatalf("expected solution %d to be %q, got %q", i, w, sols[i])
		}
	}
	if !res.Completed {
		t.Fatal("expected completed result when the solution quota is reached")
	}
}

func TestEarlyStopReturnsFirstSolutionOnly(t *testing.T) {
	root := newTree(2, 8, "11111111")
	res := mustSearch(t, RecursiveSearch, root, Config{EarlyStop: true})

	sols := res.SolutionStrings()
	if len(sols) != 1 || sols[0] != "11111111" {
		t.Fatalf("expected the single deep solution, got %v", sols)
	}
	if !res.Completed {
		t.Fatal("expected completed result for early stop")
	}
	if res.Stats.SolutionsFound != 1 {
		t.Fatalf("expected 1 solution counted, got %d", res.Stats.SolutionsFound)
	}
}

func TestPruningSkipsDeadBranches(t *testing.T) {
	full := treeState{branch: 2, height: 5, leafGoals: true}
	pruned := prunableTree{treeState: full, deadPrefix: "1"}

	base := mustSearch(t, RecursiveSearch, full, Config{})
	res := mustSearch(t, RecursiveSearch, pruned, Config{})

	for _, s := range res.SolutionStrings() {
		if strings.HasPrefix(s, "1") {
			t.Fatalf("solution %q comes from a pruned branch", s)
		}
	}
	if len(res.Solutions) != 16 {
		t.Fatalf("expected 16 solutions from the surviving half, got %d", len(res.Solutions))
	}
	if res.Stats.BranchesPruned != 1 {
		t.Fatalf("expected 1 branch pruned, got %d", res.Stats.BranchesPruned)
	}
	if res.Stats.NodesExpanded >= base.Stats.NodesExpanded {
		t.Fatalf("pruning did not reduce work: %d vs %d expansions", res.Stats.NodesExpanded, base.Stats.NodesExpanded)
	}
	if !res.Completed {
		t.Fatal("pruning must not mark the result incomplete")
	}
}

func TestDedupeCollapsesConvergentPaths(t *testing.T) {
	root := gridState{size: 4}

	without := mustSearch(t, RecursiveSearch, root, Config{})
	with := mustSearch(t, RecursiveSearch, root, Config{DedupeStates: true})

	// 70 lattice paths reach the goal cell; dedupe keeps the first.
	if len(without.Solutions) != 70 {
		t.Fatalf("expected 70 solutions without dedupe, got %d", len(without.Solutions))
	}
	if len(with.Solutions) != 1 {
		t.Fatalf("expected 1 solution with dedupe, got %d", len(with.Solutions))
	}
	// A 5x5 lattice has 25 distinct cells.
	if with.Stats.NodesExpanded != 25 {
		t.Fatalf("expected 25 nodes expanded with dedupe, got %d", with.Stats.NodesExpanded)
	}
	if with.Stats.NodesExpanded >= without.Stats.NodesExpanded {
		t.Fatal("dedupe did not reduce expansions")
	}
}

func TestHookReceivesEveryEvent(t *testing.T) {
	var expands, prunes, solutions int
	cfg := Config{
		Hook: func(e Event) {
			switch e.Kind {
			case EventExpand:
				expands++
			case EventPrune:
				prunes++
			case EventSolution:
				solutions++
			}
		},
	}
	root := prunableTree{treeState: treeState{branch: 2, height: 4, leafGoals: true}, deadPrefix: "0"}
	res := mustSearch(t, RecursiveSearch, root, cfg)

	if int64(expands) != res.Stats.NodesExpanded {
		t.Fatalf("expand events %d do not match counter %d", expands, res.Stats.NodesExpanded)
	}
	if int64(prunes) != res.Stats.BranchesPruned {
		t.Fatalf("prune events %d do not match counter %d", prunes, res.Stats.BranchesPruned)
	}
	if int64(solutions) != res.Stats.SolutionsFound {
		t.Fatalf("solution events %d do not match counter %d", solutions, res.Stats.SolutionsFound)
	}
}

func TestHookStatsAreMonotonic(t *testing.T) {
	var prev Stats
	cfg := Config{
		Hook: func(e Event) {
			if e.Stats.NodesExpanded < prev.NodesExpanded ||
				e.Stats.BranchesPruned < prev.BranchesPruned ||
				e.Stats.SolutionsFound < prev.SolutionsFound ||
				e.Stats.MaxDepth < prev.MaxDepth {
				t.Fatalf("counters regressed: %+v after %+v", e.Stats, prev)
			}
			prev = e.Stats
		},
	}
	root := prunableTree{treeState: treeState{branch: 3, height: 4, leafGoals: true}, deadPrefix: "2"}
	mustSearch(t, IterativeSearch, root, cfg)
}

func TestNilRootIsRejected(t *testing.T) {
	if _, err := RecursiveSearch(nil, Config{}); !errors.Is(err, serrors.ErrNilRoot) {
		t.Fatalf("expected nil-root error from recursive search, got %v", err)
	}
	if _, err := IterativeSearch(nil, Config{}); !errors.Is(err, serrors.ErrNilRoot) {
		t.Fatalf("expected nil-root error from iterative search, got %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	bad := []Config{
		{MaxDepth: -1},
		{MaxIterations: -5},
		{MaxSolutions: -2},
		{FanOutDepth: -1},
		{Engine: "quantum"},
	}
	for _, cfg := range bad {
		if _, err := RecursiveSearch(newTree(2, 2), cfg); !errors.Is(err, serrors.ErrInvalidConfig) {
			t.Fatalf("expected invalid-config error for %+v, got %v", cfg, err)
		}
	}
	if err := (Config{MaxDepth: 3, MaxIterations: 100, Engine: EngineIterative}).Validate(); err != nil {
		t.Fatalf("expected valid config to pass, got %v", err)
	}
}

func TestResultSolutionStrings(t *testing.T) {
	root := newTree(2, 3, "010", "110")
	res := mustSearch(t, RecursiveSearch, root, Config{})

	sols := res.SolutionStrings()
	if len(sols) != 2 || sols[0] != "010" || sols[1] != "110" {
		t.Fatalf("unexpected rendered solutions: %v", sols)
	}
}
