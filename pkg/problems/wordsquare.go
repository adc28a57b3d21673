package problems

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/wehubfusion/Daedalus/pkg/immutable"
	"github.com/wehubfusion/Daedalus/pkg/search"
)

// WordSquareParams configures the word-square problem.
type WordSquareParams struct {
	// Size is the square dimension; only dictionary words of exactly
	// this length participate.
	Size int `json:"size"`

	// Words is the dictionary. Case is folded before matching, so
	// "Area" and "AREA" are the same word.
	Words []string `json:"words"`
}

// wordDict is a sorted, case-folded dictionary fixed for the whole
// search, shared untouched by every state.
type wordDict struct {
	size  int
	words []string
}

func newWordDict(size int, words []string) (*wordDict, error) {
	if size < 1 {
		return nil, fmt.Errorf("square size must be >= 1, got %d", size)
	}
	folder := cases.Fold()
	seen := make(map[string]struct{}, len(words))
	kept := make([]string, 0, len(words))
	for _, w := range words {
		w = folder.String(strings.TrimSpace(w))
		if len(w) != size {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		kept = append(kept, w)
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("dictionary has no words of length %d", size)
	}
	sort.Strings(kept)
	return &wordDict{size: size, words: kept}, nil
}

// withPrefix returns the dictionary words starting with p, in sorted
// order.
func (d *wordDict) withPrefix(p string) []string {
	lo := sort.SearchStrings(d.words, p)
	hi := lo
	for hi < len(d.words) && strings.HasPrefix(d.words[hi], p) {
		hi++
	}
	return d.words[lo:hi]
}

// WordSquareState builds an n x n word square row by row. Placing row k
// only admits words whose first k letters match column k of the rows
// already placed, which keeps every partial square symmetric and makes
// the full square valid by construction.
type WordSquareState struct {
	dict *wordDict
	rows immutable.List[string]
}

// NewWordSquare creates the empty square over the given dictionary.
func NewWordSquare(size int, words []string) (WordSquareState, error) {
	dict, err := newWordDict(size, words)
	if err != nil {
		return WordSquareState{}, err
	}
	return WordSquareState{dict: dict}, nil
}

// WordSquareFactory builds a word-square root state from JSON
// parameters.
func WordSquareFactory(params json.RawMessage) (search.State, error) {
	var p WordSquareParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid wordsquare parameters: %w", err)
	}
	return NewWordSquare(p.Size, p.Words)
}

// Successors extends the square with every word matching the column
// constraint of the next row.
func (s WordSquareState) Successors() []search.State {
	k := s.rows.Len()
	if s.dict == nil || k >= s.dict.size {
		return nil
	}
	prefix := make([]byte, k)
	s.rows.Range(func(i int, row string) bool {
		prefix[i] = row[k]
		return true
	})
	candidates := s.dict.withPrefix(string(prefix))
	out := make([]search.State, len(candidates))
	for i, w := range candidates {
		out[i] = WordSquareState{dict: s.dict, rows: s.rows.Append(w)}
	}
	return out
}

// IsSolution reports whether all rows are filled.
func (s WordSquareState) IsSolution() bool {
	return s.dict != nil && s.rows.Len() == s.dict.size
}

// Depth returns the number of rows placed.
func (s WordSquareState) Depth() int {
	return s.rows.Len()
}

// Key identifies the partial square for dedupe.
func (s WordSquareState) Key() string {
	return s.String()
}

// Rows returns the words placed so far.
func (s WordSquareState) Rows() []string {
	return s.rows.Slice()
}

func (s WordSquareState) String() string {
	return strings.Join(s.rows.Slice(), "|")
}
