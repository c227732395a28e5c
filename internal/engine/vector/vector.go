package vector

import (
	"fmt"
	"strings"
)

// Vector is an immutable sequence of elements.
// Operations return new Vector values; the original is never modified.
// This enables cheap snapshots and thread-safe concurrent read access.
type Vector[T any] struct {
	root  node[T]
	count int
}

// Empty returns an empty vector. It is equivalent to the zero value.
func Empty[T any]() Vector[T] {
	return Vector[T]{}
}

// Len returns the number of elements.
func (v Vector[T]) Len() int {
	return v.count
}

// IsEmpty returns true if the vector contains no elements.
func (v Vector[T]) IsEmpty() bool {
	return v.count == 0
}

// Height returns the level of the root node, or -1 for an empty vector.
func (v Vector[T]) Height() int {
	if v.root == nil {
		return -1
	}
	return int(v.root.level())
}

// Get returns the element at index i.
// Returns ErrIndexOutOfRange if i < 0 or i >= Len().
func (v Vector[T]) Get(i int) (T, error) {
	if i < 0 || i >= v.count {
		var zero T
		return zero, fmt.Errorf("%w: index %d, length %d", ErrIndexOutOfRange, i, v.count)
	}
	return get(v.root, i), nil
}

// Last returns the most recently pushed element.
// Returns ErrEmpty if the vector has no elements.
func (v Vector[T]) Last() (T, error) {
	if v.count == 0 {
		var zero T
		return zero, ErrEmpty
	}
	return v.root.last(), nil
}

// Push returns a new vector with x appended at the end.
func (v Vector[T]) Push(x T) Vector[T] {
	return Vector[T]{
		root:  insert(v.root, x, v.count),
		count: v.count + 1,
	}
}

// Pop returns a new vector without the last element, along with that element.
// Returns ErrEmpty if the vector has no elements.
func (v Vector[T]) Pop() (Vector[T], T, error) {
	if v.count == 0 {
		var zero T
		return v, zero, ErrEmpty
	}

	last := v.root.last()
	return Vector[T]{
		root:  remove(v.root, v.count-1),
		count: v.count - 1,
	}, last, nil
}

// Slice returns the elements as a newly allocated slice.
func (v Vector[T]) Slice() []T {
	out := make([]T, 0, v.count)
	for x := range v.Values() {
		out = append(out, x)
	}
	return out
}

// String returns the elements formatted as "[a b c]".
func (v Vector[T]) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, x := range v.All() {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprint(&sb, x)
	}
	sb.WriteByte(']')
	return sb.String()
}

// Same reports whether v and w are the same version: they have the same
// length and the same root node. Same implies Equal.
func (v Vector[T]) Same(w Vector[T]) bool {
	return v.count == w.count && v.root == w.root
}

// Equal reports whether a and b hold the same elements in the same order,
// comparing elements with eq.
func Equal[T any](a, b Vector[T], eq func(x, y T) bool) bool {
	if a.count != b.count {
		return false
	}
	if a.root == b.root {
		return true
	}

	ia, ib := a.Iter(), b.Iter()
	for ia.Next() && ib.Next() {
		if !eq(ia.Value(), ib.Value()) {
			return false
		}
	}
	return true
}

// EqualComparable is Equal using the == operator.
func EqualComparable[T comparable](a, b Vector[T]) bool {
	return Equal(a, b, func(x, y T) bool { return x == y })
}
