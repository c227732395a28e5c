// Package vector provides an immutable, indexable sequence backed by a binary trie.
//
// A Vector is a handle made of a root node and an element count. Leaf nodes
// (level 0) hold a single element; a branch at level L covers 2^L positions
// and has two children at level L-1. The left child of every branch is always
// full, so growth and shrinkage only ever happen along the right spine.
//
// Key features:
//   - O(log n) indexed access, append and remove-last
//   - Operations return new vectors; originals are never modified
//   - New versions share every subtree they did not touch with the old one
//   - Safe for concurrent read access from any number of goroutines
//
// Basic usage:
//
//	var v vector.Vector[int]       // empty
//	v = v.Push(1).Push(2).Push(3)  // [1 2 3]
//	x, _ := v.Get(1)               // 2
//	w, last, _ := v.Pop()          // w = [1 2], last = 3; v is still [1 2 3]
//	for i, x := range v.All() {
//		fmt.Println(i, x)
//	}
//
// The zero value of Vector is an empty vector ready to use.
package vector
