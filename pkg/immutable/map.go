package immutable

import (
	"hash/maphash"
	"math/bits"
)

const (
	mapBits  = 5
	mapWidth = 1 << mapBits
	mapMask  = mapWidth - 1
)

// mapSeed is shared by all maps so equal keys hash identically across
// container values within a process.
var mapSeed = maphash.MakeSeed()

// mapEntry is a single key/value pair.
type mapEntry[K comparable, V any] struct {
	key   K
	value V
}

// mapLeaf holds all entries sharing one full 64-bit hash. More than one
// entry only occurs on a full hash collision.
type mapLeaf[K comparable, V any] struct {
	hash    uint64
	entries []mapEntry[K, V]
}

// mapChild is either a subtree or a leaf, never both.
type mapChild[K comparable, V any] struct {
	node *mapNode[K, V]
	leaf *mapLeaf[K, V]
}

// mapNode is a bitmap-indexed node of the hash trie. The i-th bit of
// bitmap marks an occupied slot; children holds the occupied slots in
// bit order. Nodes are never modified after publication.
type mapNode[K comparable, V any] struct {
	bitmap   uint32
	children []mapChild[K, V]
}

func (n *mapNode[K, V]) index(bit uint32) int {
	return bits.OnesCount32(n.bitmap & (bit - 1))
}

// Map is a persistent hash map with structural sharing. Set and Delete
// return new maps and leave the receiver unchanged; lookups are
// O(log32 n). The zero value is an empty map and is ready to use.
type Map[K comparable, V any] struct {
	root  *mapNode[K, V]
	count int
}

// NewMap returns an empty map.
func NewMap[K comparable, V any]() Map[K, V] {
	return Map[K, V]{}
}

// Len returns the number of entries in the map.
func (m Map[K, V]) Len() int {
	return m.count
}

// Get returns the value stored under key and whether it was present.
func (m Map[K, V]) Get(key K) (V, bool) {
	var zero V
	if m.root == nil {
		return zero, false
	}
	hash := maphash.Comparable(mapSeed, key)
	n := m.root
	for shift := uint(0); ; shift += mapBits {
		bit := uint32(1) << ((hash >> shift) & mapMask)
		if n.bitmap&bit == 0 {
			return zero, false
		}
		child := n.children[n.index(bit)]
		if child.node != nil {
			n = child.node
			continue
		}
		if child.leaf.hash != hash {
			return zero, false
		}
		for _, e := range child.leaf.entries {
			if e.key == key {
				return e.value, true
			}
		}
		return zero, false
	}
}

// Set returns a new map with key bound to value. The receiver is
// unchanged.
func (m Map[K, V]) Set(key K, value V) Map[K, V] {
	hash := maphash.Comparable(mapSeed, key)
	leaf := &mapLeaf[K, V]{hash: hash, entries: []mapEntry[K, V]{{key: key, value: value}}}
	if m.root == nil {
		root := &mapNode[K, V]{}
		bit := uint32(1) << (hash & mapMask)
		root.bitmap = bit
		root.children = []mapChild[K, V]{{leaf: leaf}}
		return Map[K, V]{root: root, count: 1}
	}
	root, added := setInNode(m.root, 0, hash, key, value)
	count := m.count
	if added {
		count++
	}
	return Map[K, V]{root: root, count: count}
}

// setInNode path-copies the trie, returning the replacement node and
// whether a new key was added (false means an existing key was updated).
func setInNode[K comparable, V any](n *mapNode[K, V], shift uint, hash uint64, key K, value V) (*mapNode[K, V], bool) {
	bit := uint32(1) << ((hash >> shift) & mapMask)
	idx := n.index(bit)

	if n.bitmap&bit == 0 {
		// Empty slot: splice in a new leaf.
		children := make([]mapChild[K, V], len(n.children)+1)
		copy(children, n.children[:idx])
		children[idx] = mapChild[K, V]{leaf: &mapLeaf[K, V]{
			hash:    hash,
			entries: []mapEntry[K, V]{{key: key, value: value}},
		}}
		copy(children[idx+1:], n.children[idx:])
		return &mapNode[K, V]{bitmap: n.bitmap | bit, children: children}, true
	}

	child := n.children[idx]
	var newChild mapChild[K, V]
	var added bool

	if child.node != nil {
		sub, a := setInNode(child.node, shift+mapBits, hash, key, value)
		newChild, added = mapChild[K, V]{node: sub}, a
	} else if child.leaf.hash == hash {
		// Same full hash: replace in place or extend the collision set.
		entries := make([]mapEntry[K, V], len(child.leaf.entries))
		copy(entries, child.leaf.entries)
		added = true
		for i, e := range entries {
			if e.key == key {
				entries[i].value = value
				added = false
				break
			}
		}
		if added {
			entries = append(entries, mapEntry[K, V]{key: key, value: value})
		}
		newChild = mapChild[K, V]{leaf: &mapLeaf[K, V]{hash: hash, entries: entries}}
	} else {
		// Distinct hashes landed in one slot at this depth: push both
		// leaves one level down until their hash chunks diverge.
		newLeaf := &mapLeaf[K, V]{hash: hash, entries: []mapEntry[K, V]{{key: key, value: value}}}
		newChild = mapChild[K, V]{node: mergeLeaves(shift+mapBits, child.leaf, newLeaf)}
		added = true
	}

	children := make([]mapChild[K, V], len(n.children))
	copy(children, n.children)
	children[idx] = newChild
	return &mapNode[K, V]{bitmap: n.bitmap, children: children}, added
}

// mergeLeaves builds the minimal subtree distinguishing two leaves with
// different hashes. Hashes differ in at least one bit, so the recursion
// terminates before the 64-bit hash is exhausted.
func mergeLeaves[K comparable, V any](shift uint, a, b *mapLeaf[K, V]) *mapNode[K, V] {
	ai := uint32((a.hash >> shift) & mapMask)
	bi := uint32((b.hash >> shift) & mapMask)
	if ai == bi {
		return &mapNode[K, V]{
			bitmap:   1 << ai,
			children: []mapChild[K, V]{{node: mergeLeaves(shift+mapBits, a, b)}},
		}
	}
	n := &mapNode[K, V]{bitmap: (1 << ai) | (1 << bi)}
	if ai < bi {
		n.children = []mapChild[K, V]{{leaf: a}, {leaf: b}}
	} else {
		n.children = []mapChild[K, V]{{leaf: b}, {leaf: a}}
	}
	return n
}

// Delete returns a new map without key. The receiver is unchanged; the
// receiver is also returned unchanged when key is absent.
func (m Map[K, V]) Delete(key K) Map[K, V] {
	if m.root == nil {
		return m
	}
	hash := maphash.Comparable(mapSeed, key)
	root, removed := deleteInNode(m.root, 0, hash, key)
	if !removed {
		return m
	}
	return Map[K, V]{root: root, count: m.count - 1}
}

// deleteInNode path-copies the trie without key. A nil node with
// removed=true means the subtree became empty.
func deleteInNode[K comparable, V any](n *mapNode[K, V], shift uint, hash uint64, key K) (*mapNode[K, V], bool) {
	bit := uint32(1) << ((hash >> shift) & mapMask)
	if n.bitmap&bit == 0 {
		return n, false
	}
	idx := n.index(bit)
	child := n.children[idx]

	var newChild mapChild[K, V]
	removed := false
	empty := false

	if child.node != nil {
		sub, r := deleteInNode(child.node, shift+mapBits, hash, key)
		if !r {
			return n, false
		}
		removed = true
		if sub == nil {
			empty = true
		} else {
			newChild = mapChild[K, V]{node: sub}
		}
	} else {
		if child.leaf.hash != hash {
			return n, false
		}
		entries := child.leaf.entries
		keep := make([]mapEntry[K, V], 0, len(entries))
		for _, e := range entries {
			if e.key == key {
				removed = true
				continue
			}
			keep = append(keep, e)
		}
		if !removed {
			return n, false
		}
		if len(keep) == 0 {
			empty = true
		} else {
			newChild = mapChild[K, V]{leaf: &mapLeaf[K, V]{hash: hash, entries: keep}}
		}
	}

	if empty {
		if len(n.children) == 1 {
			return nil, true
		}
		children := make([]mapChild[K, V], len(n.children)-1)
		copy(children, n.children[:idx])
		copy(children[idx:], n.children[idx+1:])
		return &mapNode[K, V]{bitmap: n.bitmap &^ bit, children: children}, true
	}

	children := make([]mapChild[K, V], len(n.children))
	copy(children, n.children)
	children[idx] = newChild
	return &mapNode[K, V]{bitmap: n.bitmap, children: children}, removed
}

// Range calls fn for each entry until fn returns false. Iteration order
// is unspecified but stable for a given map value.
func (m Map[K, V]) Range(fn func(key K, value V) bool) {
	if m.root != nil {
		rangeNode(m.root, fn)
	}
}

func rangeNode[K comparable, V any](n *mapNode[K, V], fn func(key K, value V) bool) bool {
	for _, child := range n.children {
		if child.node != nil {
			if !rangeNode(child.node, fn) {
				return false
			}
			continue
		}
		for _, e := range child.leaf.entries {
			if !fn(e.key, e.value) {
				return false
			}
		}
	}
	return true
}
