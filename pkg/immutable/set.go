package immutable

// Set is a persistent set built on Map. Add and Remove return new sets
// and leave the receiver unchanged. The zero value is an empty set and
// is ready to use.
type Set[K comparable] struct {
	m Map[K, struct{}]
}

// NewSet returns a set containing the given keys.
func NewSet[K comparable](keys ...K) Set[K] {
	var s Set[K]
	for _, k := range keys {
		s = s.Add(k)
	}
	return s
}

// Len returns the number of keys in the set.
func (s Set[K]) Len() int {
	return s.m.Len()
}

// Contains reports whether key is in the set.
func (s Set[K]) Contains(key K) bool {
	_, ok := s.m.Get(key)
	return ok
}

// Add returns a new set including key.
func (s Set[K]) Add(key K) Set[K] {
	return Set[K]{m: s.m.Set(key, struct{}{})}
}

// Remove returns a new set without key.
func (s Set[K]) Remove(key K) Set[K] {
	return Set[K]{m: s.m.Delete(key)}
}

// Range calls fn for each key until fn returns false. Iteration order
// is unspecified.
func (s Set[K]) Range(fn func(key K) bool) {
	s.m.Range(func(k K, _ struct{}) bool {
		return fn(k)
	})
}

// Slice returns the set's keys in unspecified order.
func (s Set[K]) Slice() []K {
	out := make([]K, 0, s.Len())
	s.Range(func(k K) bool {
		out = append(out, k)
		return true
	})
	return out
}
