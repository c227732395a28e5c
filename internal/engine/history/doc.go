// Package history records versions of a vector and provides undo/redo over them.
//
// Vectors are immutable, so a version is just a handle plus metadata. Undo and
// redo swap which handle is current; nothing is replayed and no element is
// copied. Every version that is still reachable from the undo or redo stacks
// shares structure with its neighbours.
//
// # Versions
//
// A Version carries a random ID, a label, a timestamp and a digest of the
// logical sequence:
//
//	h, _ := history.New[int](100) // keep at most 100 undo entries
//	v := h.Current().Vector
//	h.Commit(v.Push(1), "push 1")
//	h.Commit(h.Current().Vector.Push(2), "push 2")
//
// # Undo and Redo
//
//	prev, err := h.Undo() // prev.Vector is [1]
//	next, err := h.Redo() // next.Vector is [1 2]
//
// Committing after an undo discards the redo stack.
//
// # Grouping
//
// Commits made between BeginGroup and EndGroup collapse into a single undo
// step:
//
//	h.BeginGroup("bulk")
//	for _, x := range xs {
//	    h.Commit(h.Current().Vector.Push(x), "push")
//	}
//	h.EndGroup()
//
// # Lookup
//
// Recent versions can be fetched by ID with Lookup, or made current again with
// Checkout. The lookup index is bounded; versions that fall out of it can no
// longer be found by ID.
package history
