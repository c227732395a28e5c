package history

import (
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/arraytrie/internal/engine/vector"
)

// DefaultMaxEntries is used when a non-positive limit is requested.
const DefaultMaxEntries = 1000

// History manages undo/redo state for a vector.
type History[T any] struct {
	mu sync.Mutex

	current   Version[T]
	undoStack []Version[T]
	redoStack []Version[T]

	// Grouping state
	grouping   bool
	groupName  string
	groupStart *Version[T]

	index *lru.Cache[uuid.UUID, Version[T]]

	// Configuration
	maxEntries int
	encoder    vector.Encoder[T]
	now        func() time.Time
}

// Option configures a History.
type Option[T any] func(*History[T])

// WithEncoder sets the element encoder used to compute version digests.
func WithEncoder[T any](enc vector.Encoder[T]) Option[T] {
	return func(h *History[T]) {
		h.encoder = enc
	}
}

// WithClock sets the time source used to stamp versions.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(h *History[T]) {
		h.now = now
	}
}

// New creates a history whose current version is the empty vector.
func New[T any](maxEntries int, opts ...Option[T]) (*History[T], error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	h := &History[T]{
		maxEntries: maxEntries,
		encoder:    vector.FormatEncoder[T],
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}

	// Room for both stacks plus the current version.
	index, err := lru.New[uuid.UUID, Version[T]](2*maxEntries + 1)
	if err != nil {
		return nil, err
	}
	h.index = index

	h.current = h.newVersion(vector.Empty[T](), "initial")
	h.index.Add(h.current.ID, h.current)
	return h, nil
}

// newVersion stamps v as a new version.
func (h *History[T]) newVersion(v vector.Vector[T], label string) Version[T] {
	return Version[T]{
		ID:        uuid.New(),
		Label:     label,
		Timestamp: h.now(),
		Digest:    vector.Digest(v, h.encoder),
		Vector:    v,
	}
}

// Current returns the current version.
func (h *History[T]) Current() Version[T] {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Commit makes v the current version and returns it.
// The previous version moves onto the undo stack and the redo stack is cleared.
func (h *History[T]) Commit(v vector.Vector[T], label string) Version[T] {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.commitLocked(v, label)
}

// commitLocked commits without acquiring the lock.
func (h *History[T]) commitLocked(v vector.Vector[T], label string) Version[T] {
	ver := h.newVersion(v, label)
	h.index.Add(ver.ID, ver)

	if h.grouping {
		// Only the state before the group is kept for undo.
		if h.groupStart == nil {
			start := h.current
			h.groupStart = &start
		}
		h.current = ver
		return ver
	}

	h.undoStack = append(h.undoStack, h.current)
	h.current = ver

	// Clear redo stack
	h.redoStack = nil

	// Enforce max entries
	if len(h.undoStack) > h.maxEntries {
		excess := len(h.undoStack) - h.maxEntries
		h.undoStack = h.undoStack[excess:]
	}
	return ver
}

// Undo restores the previous version and returns it.
func (h *History[T]) Undo() (Version[T], error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.undoStack) == 0 {
		return h.current, ErrNothingToUndo
	}

	prev := h.undoStack[len(h.undoStack)-1]
	h.undoStack = h.undoStack[:len(h.undoStack)-1]
	h.redoStack = append(h.redoStack, h.current)
	h.current = prev
	return prev, nil
}

// Redo restores the most recently undone version and returns it.
func (h *History[T]) Redo() (Version[T], error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.redoStack) == 0 {
		return h.current, ErrNothingToRedo
	}

	next := h.redoStack[len(h.redoStack)-1]
	h.redoStack = h.redoStack[:len(h.redoStack)-1]
	h.undoStack = append(h.undoStack, h.current)
	h.current = next
	return next, nil
}

// Lookup returns a recently seen version by ID.
func (h *History[T]) Lookup(id uuid.UUID) (Version[T], bool) {
	return h.index.Get(id)
}

// Checkout commits the vector of a previously seen version as a new version.
// History is never rewritten; the checkout itself can be undone.
func (h *History[T]) Checkout(id uuid.UUID) (Version[T], error) {
	ver, ok := h.index.Get(id)
	if !ok {
		return Version[T]{}, ErrVersionNotFound
	}
	return h.Commit(ver.Vector, "checkout "+ver.Label), nil
}

// CanUndo returns true if undo is available.
func (h *History[T]) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undoStack) > 0
}

// CanRedo returns true if redo is available.
func (h *History[T]) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redoStack) > 0
}

// UndoCount returns the number of undo steps available.
func (h *History[T]) UndoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undoStack)
}

// RedoCount returns the number of redo steps available.
func (h *History[T]) RedoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redoStack)
}

// BeginGroup starts a commit group.
// Commits made while grouping are combined into a single undo step.
func (h *History[T]) BeginGroup(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.grouping {
		// Already grouping, ignore nested calls
		return
	}

	h.grouping = true
	h.groupName = name
	h.groupStart = nil
}

// EndGroup finishes a commit group.
// The group becomes one undo step whose version carries the group name.
func (h *History[T]) EndGroup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.grouping {
		return
	}
	h.grouping = false

	if h.groupStart == nil {
		return
	}

	final := h.current
	final.Label = h.groupName
	h.index.Add(final.ID, final)

	h.current = *h.groupStart
	h.groupStart = nil

	h.undoStack = append(h.undoStack, h.current)
	h.current = final
	h.redoStack = nil
	if len(h.undoStack) > h.maxEntries {
		excess := len(h.undoStack) - h.maxEntries
		h.undoStack = h.undoStack[excess:]
	}
}

// IsGrouping returns true if currently in a commit group.
func (h *History[T]) IsGrouping() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.grouping
}

// Clear drops all undo/redo entries, keeping the current version.
func (h *History[T]) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.undoStack = nil
	h.redoStack = nil
	h.grouping = false
	h.groupStart = nil
}

// UndoInfo returns metadata for the undo stack, oldest first.
func (h *History[T]) UndoInfo() []VersionInfo {
	h.mu.Lock()
	defer h.mu.Unlock()

	result := make([]VersionInfo, len(h.undoStack))
	for i, ver := range h.undoStack {
		result[i] = ver.Info()
	}
	return result
}

// RedoInfo returns metadata for the redo stack, oldest first.
func (h *History[T]) RedoInfo() []VersionInfo {
	h.mu.Lock()
	defer h.mu.Unlock()

	result := make([]VersionInfo, len(h.redoStack))
	for i, ver := range h.redoStack {
		result[i] = ver.Info()
	}
	return result
}

// MaxEntries returns the maximum number of undo entries.
func (h *History[T]) MaxEntries() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.maxEntries
}
