package vector

import "iter"

// Iterator walks the elements of a vector in index order.
// The vector is captured when the iterator is created; later pushes or pops
// on other handles do not affect it.
type Iterator[T any] struct {
	vec     Vector[T]
	stack   []node[T] // right subtrees still to visit
	started bool
	index   int
	value   T
}

// Iter returns an iterator positioned before the first element.
func (v Vector[T]) Iter() *Iterator[T] {
	return &Iterator[T]{
		vec:   v,
		stack: make([]node[T], 0, v.Height()+1),
		index: -1,
	}
}

// Next advances to the next element.
// Returns true if there is an element, false if iteration is complete.
func (it *Iterator[T]) Next() bool {
	if !it.started {
		it.started = true
		if it.vec.root == nil {
			return false
		}
		it.stack = append(it.stack, it.vec.root)
	}

	for len(it.stack) > 0 {
		n := it.stack[len(it.stack)-1]
		it.stack = it.stack[:len(it.stack)-1]

		// Descend along left children, remembering the right halves.
		for {
			b, ok := n.(*branch[T])
			if !ok {
				break
			}
			it.stack = append(it.stack, b.right)
			n = b.left
		}

		it.value = n.(*leaf[T]).value
		it.index++
		return true
	}
	return false
}

// Value returns the current element.
func (it *Iterator[T]) Value() T {
	return it.value
}

// Index returns the index of the current element, or -1 before the first call to Next.
func (it *Iterator[T]) Index() int {
	return it.index
}

// Reset rewinds the iterator to before the first element.
func (it *Iterator[T]) Reset() {
	var zero T
	it.stack = it.stack[:0]
	it.started = false
	it.index = -1
	it.value = zero
}

// All returns a sequence of index/element pairs in index order.
// The sequence may be ranged over any number of times.
func (v Vector[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		it := v.Iter()
		for it.Next() {
			if !yield(it.Index(), it.Value()) {
				return
			}
		}
	}
}

// Values returns a sequence of the elements in index order.
func (v Vector[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		it := v.Iter()
		for it.Next() {
			if !yield(it.Value()) {
				return
			}
		}
	}
}

// Backward returns a sequence of index/element pairs from the last element
// to the first.
func (v Vector[T]) Backward() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := v.count - 1; i >= 0; i-- {
			if !yield(i, get(v.root, i)) {
				return
			}
		}
	}
}
