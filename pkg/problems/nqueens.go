package problems

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/wehubfusion/Daedalus/pkg/immutable"
	"github.com/wehubfusion/Daedalus/pkg/search"
)

// QueensParams configures the n-queens problem.
type QueensParams struct {
	// Size is the board dimension. Defaults to 8.
	Size int `json:"size"`
}

// QueensState places one queen per row on an n x n board. The column
// choices made so far live in a persistent list, so extending a branch
// shares structure with its parent instead of copying the whole
// placement.
type QueensState struct {
	size int
	cols immutable.List[int]
}

// NewQueens creates the empty board for an n x n instance.
func NewQueens(size int) (QueensState, error) {
	if size < 1 {
		return QueensState{}, fmt.Errorf("board size must be >= 1, got %d", size)
	}
	return QueensState{size: size}, nil
}

// QueensFactory builds an n-queens root state from JSON parameters.
func QueensFactory(params json.RawMessage) (search.State, error) {
	p := QueensParams{Size: 8}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, fmt.Errorf("invalid nqueens parameters: %w", err)
		}
		if p.Size == 0 {
			p.Size = 8
		}
	}
	return NewQueens(p.Size)
}

// Successors places a queen on every non-attacked column of the next
// row.
func (s QueensState) Successors() []search.State {
	row := s.cols.Len()
	if row >= s.size {
		return nil
	}
	var out []search.State
	for col := 0; col < s.size; col++ {
		if s.safe(row, col) {
			out = append(out, QueensState{size: s.size, cols: s.cols.Append(col)})
		}
	}
	return out
}

// IsSolution reports whether all rows hold a queen.
func (s QueensState) IsSolution() bool {
	return s.size > 0 && s.cols.Len() == s.size
}

// Depth returns the number of queens placed.
func (s QueensState) Depth() int {
	return s.cols.Len()
}

// Key identifies the placement for dedupe.
func (s QueensState) Key() string {
	return s.String()
}

// Columns returns the column of the queen in each filled row.
func (s QueensState) Columns() []int {
	return s.cols.Slice()
}

// safe checks column and diagonal attacks against the placed queens.
func (s QueensState) safe(row, col int) bool {
	ok := true
	s.cols.Range(func(r, c int) bool {
		diff := col - c
		if diff < 0 {
			diff = -diff
		}
		if c == col || diff == row-r {
			ok = false
			return false
		}
		return true
	})
	return ok
}

func (s QueensState) String() string {
	parts := make([]string, 0, s.cols.Len())
	s.cols.Range(func(_ int, c int) bool {
		parts = append(parts, strconv.Itoa(c))
		return true
	})
	return strings.Join(parts, ",")
}
