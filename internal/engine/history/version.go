package history

import (
	"time"

	"github.com/google/uuid"

	"github.com/dshills/arraytrie/internal/engine/vector"
)

// Version is one committed state of a vector.
type Version[T any] struct {
	ID        uuid.UUID
	Label     string
	Timestamp time.Time
	Digest    uint64
	Vector    vector.Vector[T]
}

// Info returns the version's metadata without the vector.
func (v Version[T]) Info() VersionInfo {
	return VersionInfo{
		ID:        v.ID,
		Label:     v.Label,
		Timestamp: v.Timestamp,
		Digest:    v.Digest,
		Len:       v.Vector.Len(),
	}
}

// VersionInfo describes a version.
type VersionInfo struct {
	ID        uuid.UUID
	Label     string
	Timestamp time.Time
	Digest    uint64
	Len       int
}
