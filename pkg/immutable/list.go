package immutable

import "fmt"

const (
	listBits  = 5
	listWidth = 1 << listBits
	listMask  = listWidth - 1
)

// listNode is a node in the persistent vector trie. Interior nodes use
// children; leaf nodes use values. A node is never modified after it is
// published in a List.
type listNode[T any] struct {
	children [listWidth]*listNode[T]
	values   []T
}

// List is a persistent vector: a 32-way branching trie with a tail
// buffer holding the most recent elements. Append, Set, and Pop are
// effectively constant time; Get is O(log32 n). The zero value is an
// empty list and is ready to use.
type List[T any] struct {
	count int
	shift uint
	root  *listNode[T]
	tail  []T
}

// NewList returns a list containing the given items in order.
func NewList[T any](items ...T) List[T] {
	var l List[T]
	for _, item := range items {
		l = l.Append(item)
	}
	return l
}

// Len returns the number of elements in the list.
func (l List[T]) Len() int {
	return l.count
}

// tailoff returns the index of the first element stored in the tail.
func (l List[T]) tailoff() int {
	if l.count < listWidth {
		return 0
	}
	return ((l.count - 1) >> listBits) << listBits
}

// effectiveShift guards against zero-value lists whose shift field was
// never initialized; shift is only meaningful once a root exists.
func (l List[T]) effectiveShift() uint {
	if l.shift < listBits {
		return listBits
	}
	return l.shift
}

// arrayFor returns the backing array holding index i. Callers must not
// mutate the returned slice.
func (l List[T]) arrayFor(i int) []T {
	if i < 0 || i >= l.count {
		panic(fmt.Sprintf("immutable: list index %d out of range [0, %d)", i, l.count))
	}
	if i >= l.tailoff() {
		return l.tail
	}
	n := l.root
	for level := l.effectiveShift(); level > 0; level -= listBits {
		n = n.children[(i>>level)&listMask]
	}
	return n.values
}

// Get returns the element at index i. It panics if i is out of range.
func (l List[T]) Get(i int) T {
	return l.arrayFor(i)[i&listMask]
}

// Append returns a new list with v added at the end. The receiver is
// unchanged.
func (l List[T]) Append(v T) List[T] {
	// Room in the tail buffer.
	if l.count-l.tailoff() < listWidth {
		newTail := make([]T, len(l.tail)+1)
		copy(newTail, l.tail)
		newTail[len(l.tail)] = v
		return List[T]{count: l.count + 1, shift: l.effectiveShift(), root: l.root, tail: newTail}
	}

	// Tail is full: push it into the trie and start a fresh tail.
	tailNode := &listNode[T]{values: l.tail}
	shift := l.effectiveShift()
	var newRoot *listNode[T]
	newShift := shift

	if (l.count >> listBits) > (1 << shift) {
		// Root overflow: grow the trie by one level.
		newRoot = &listNode[T]{}
		newRoot.children[0] = l.root
		newRoot.children[1] = newListPath(shift, tailNode)
		newShift = shift + listBits
	} else {
		newRoot = pushListTail(l.count, shift, l.root, tailNode)
	}

	return List[T]{count: l.count + 1, shift: newShift, root: newRoot, tail: []T{v}}
}

// newListPath builds a chain of single-child nodes down to n.
func newListPath[T any](level uint, n *listNode[T]) *listNode[T] {
	if level == 0 {
		return n
	}
	nn := &listNode[T]{}
	nn.children[0] = newListPath(level-listBits, n)
	return nn
}

// pushListTail path-copies the trie, placing tailNode as the rightmost
// leaf. count is the list length before the element triggering the push.
func pushListTail[T any](count int, level uint, parent, tailNode *listNode[T]) *listNode[T] {
	subidx := ((count - 1) >> level) & listMask
	var nn listNode[T]
	if parent != nil {
		nn = *parent
	}
	if level == listBits {
		nn.children[subidx] = tailNode
	} else {
		child := nn.children[subidx]
		if child != nil {
			nn.children[subidx] = pushListTail(count, level-listBits, child, tailNode)
		} else {
			nn.children[subidx] = newListPath(level-listBits, tailNode)
		}
	}
	return &nn
}

// Set returns a new list with index i replaced by v. The receiver is
// unchanged. It panics if i is out of range.
func (l List[T]) Set(i int, v T) List[T] {
	if i < 0 || i >= l.count {
		panic(fmt.Sprintf("immutable: list index %d out of range [0, %d)", i, l.count))
	}
	if i >= l.tailoff() {
		newTail := make([]T, len(l.tail))
		copy(newTail, l.tail)
		newTail[i&listMask] = v
		return List[T]{count: l.count, shift: l.shift, root: l.root, tail: newTail}
	}
	return List[T]{
		count: l.count,
		shift: l.shift,
		root:  assocList(l.effectiveShift(), l.root, i, v),
		tail:  l.tail,
	}
}

func assocList[T any](level uint, n *listNode[T], i int, v T) *listNode[T] {
	nn := *n
	if level == 0 {
		values := make([]T, len(n.values))
		copy(values, n.values)
		values[i&listMask] = v
		nn.values = values
	} else {
		subidx := (i >> level) & listMask
		nn.children[subidx] = assocList(level-listBits, n.children[subidx], i, v)
	}
	return &nn
}

// Pop returns the last element and a new list without it. The receiver
// is unchanged. It panics on an empty list, mirroring Get semantics.
func (l List[T]) Pop() (T, List[T]) {
	if l.count == 0 {
		panic("immutable: Pop of empty list")
	}
	last := l.Get(l.count - 1)
	if l.count == 1 {
		return last, List[T]{}
	}
	if l.count-l.tailoff() > 1 {
		// Tail arrays are never mutated in place, so the shrunk slice
		// can safely share storage with the receiver's tail.
		return last, List[T]{count: l.count - 1, shift: l.shift, root: l.root, tail: l.tail[:len(l.tail)-1]}
	}

	// The tail holds a single element: promote the last trie leaf.
	newTail := l.arrayFor(l.count - 2)
	shift := l.effectiveShift()
	newRoot := popListTail(l.count, shift, l.root)
	newShift := shift
	if newRoot != nil && newShift > listBits && newRoot.children[1] == nil {
		newRoot = newRoot.children[0]
		newShift -= listBits
	}
	return last, List[T]{count: l.count - 1, shift: newShift, root: newRoot, tail: newTail}
}

// popListTail removes the rightmost leaf from the trie, returning nil
// when the subtree becomes empty.
func popListTail[T any](count int, level uint, n *listNode[T]) *listNode[T] {
	subidx := ((count - 2) >> level) & listMask
	switch {
	case level > listBits:
		child := popListTail(count, level-listBits, n.children[subidx])
		if child == nil && subidx == 0 {
			return nil
		}
		nn := *n
		nn.children[subidx] = child
		return &nn
	case subidx == 0:
		return nil
	default:
		nn := *n
		nn.children[subidx] = nil
		return &nn
	}
}

// Insert returns a new list with v inserted at index i; elements at
// indices >= i shift right by one. i == Len() appends. Insert rebuilds
// the list and is O(n); prefer Append on hot paths.
func (l List[T]) Insert(i int, v T) List[T] {
	if i < 0 || i > l.count {
		panic(fmt.Sprintf("immutable: insert index %d out of range [0, %d]", i, l.count))
	}
	if i == l.count {
		return l.Append(v)
	}
	var out List[T]
	for j := 0; j < i; j++ {
		out = out.Append(l.Get(j))
	}
	out = out.Append(v)
	for j := i; j < l.count; j++ {
		out = out.Append(l.Get(j))
	}
	return out
}

// Slice returns a freshly allocated slice with the list's elements in
// order.
func (l List[T]) Slice() []T {
	out := make([]T, 0, l.count)
	l.Range(func(_ int, v T) bool {
		out = append(out, v)
		return true
	})
	return out
}

// Range calls fn for each element in index order until fn returns false.
func (l List[T]) Range(fn func(i int, v T) bool) {
	for i := 0; i < l.count; {
		array := l.arrayFor(i)
		for _, v := range array {
			if !fn(i, v) {
				return
			}
			i++
		}
	}
}
