package fn

// Set is a generic set using type params.
type Set[T comparable] map[T]struct{}

// NewSet returns a new set with the given elements.
func NewSet[T comparable](elems ...T) Set[T] {
	s := make(Set[T])
	for _, e := range elems {
		s.Add(e)
	}
	return s
}

// Add adds an element to the set.
func (s Set[T]) Add(e T) {
	s[e] = struct{}{}
}

// Remove removes an element from the set.
func (s Set[T]) Remove(e T) {
	delete(s, e)
}

// Contains returns true if the set contains the element.
func (s Set[T]) Contains(e T) bool {
	_, ok := s[e]
	return ok
}

// Copy returns a shallow copy of the set.
func (s Set[T]) Copy() Set[T] {
	c := make(Set[T], len(s))
	for e := range s {
		c.Add(e)
	}
	return c
}

// ToSlice returns the set as a slice.
func (s Set[T]) ToSlice() []T {
	var out []T
	for e := range s {
		out = append(out, e)
	}
	return out
}
