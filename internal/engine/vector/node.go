package vector

// node is a trie node. It is either a *leaf or a *branch; nodes are never
// modified after construction and may be shared by any number of vectors.
type node[T any] interface {
	// level is the capacity exponent: the subtree covers 2^level positions.
	level() uint8
	// full reports whether every position covered by the subtree is occupied.
	full() bool
	// last returns the element at the highest occupied position.
	last() T
}

// leaf holds exactly one element.
type leaf[T any] struct {
	value T
}

func (*leaf[T]) level() uint8 { return 0 }
func (*leaf[T]) full() bool   { return true }
func (l *leaf[T]) last() T    { return l.value }

// branch covers 2^lvl positions. left covers the first half and is always
// full; right covers the second half and holds whatever remains.
type branch[T any] struct {
	lvl    uint8
	isFull bool // right is also full
	left   node[T]
	right  node[T]
}

func (b *branch[T]) level() uint8 { return b.lvl }
func (b *branch[T]) full() bool   { return b.isFull }
func (b *branch[T]) last() T      { return b.right.last() }

// newLeaf creates a leaf holding v.
func newLeaf[T any](v T) *leaf[T] {
	return &leaf[T]{value: v}
}

// newBranch creates a branch one level above left. It panics if left is not
// a full subtree or right does not fit under the branch.
func newBranch[T any](left, right node[T]) *branch[T] {
	if left == nil || right == nil {
		panic("vector: branch requires two children")
	}
	if !left.full() {
		panic("vector: left child of a branch must be full")
	}
	if right.level() > left.level() {
		panic("vector: right child taller than left child")
	}
	lvl := left.level() + 1
	return &branch[T]{
		lvl:    lvl,
		isFull: right.level() == left.level() && right.full(),
		left:   left,
		right:  right,
	}
}

// capacity returns the number of positions covered by n.
func capacity[T any](n node[T]) int {
	return 1 << n.level()
}

// get returns the element at index i within n.
// The caller guarantees 0 <= i < number of elements under n.
func get[T any](n node[T], i int) T {
	for {
		switch t := n.(type) {
		case *leaf[T]:
			return t.value
		case *branch[T]:
			half := capacity[T](t) / 2
			if i < half {
				n = t.left
			} else {
				n = t.right
				i -= half
			}
		default:
			panic("vector: lookup reached an empty subtree")
		}
	}
}

// insert returns a new subtree equal to n with v placed at position pos,
// which is always the first unoccupied position of n.
func insert[T any](n node[T], v T, pos int) node[T] {
	if n == nil {
		return newLeaf(v)
	}

	maxCount := capacity(n)
	if pos >= maxCount {
		// n is full: it becomes the left half of a taller node.
		return newBranch(n, insert[T](nil, v, pos-maxCount))
	}

	b := n.(*branch[T])
	return newBranch(b.left, insert(b.right, v, pos-maxCount/2))
}

// remove returns a new subtree equal to n without the element at pos, the
// last occupied position of n. It returns nil when n becomes empty.
func remove[T any](n node[T], pos int) node[T] {
	b, ok := n.(*branch[T])
	if !ok {
		return nil
	}

	half := capacity[T](b) / 2
	right := remove(b.right, pos-half)
	if right == nil {
		// The right half is gone; the full left half is the whole subtree.
		return b.left
	}
	return newBranch(b.left, right)
}
