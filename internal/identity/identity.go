// Package identity provides the identity map that keeps at most one live
// in-memory instance per stored row.
//
// The map never evicts and has no size bound: the catalogue is loaded lazily
// in pages and the working set is a single user's collection. Entries go away
// only through Clear, which the catalogue calls alongside a full-table delete.
//
// Map is not safe for concurrent use; the catalogue runs on a single logical
// caller.
package identity

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateIdentity is returned by Insert when the id is already mapped.
	ErrDuplicateIdentity = errors.New("duplicate identity")

	// ErrInvalidIdentity is returned by Insert for negative (unassigned) ids.
	ErrInvalidIdentity = errors.New("invalid identity")
)

// Map associates a row identifier with its single live instance.
type Map[V any] struct {
	entries map[int64]V
}

// New creates an empty identity map.
func New[V any]() *Map[V] {
	return &Map[V]{entries: make(map[int64]V)}
}

// TryGet returns the instance for id, if present. It has no side effects.
func (m *Map[V]) TryGet(id int64) (V, bool) {
	v, ok := m.entries[id]
	return v, ok
}

// Insert maps id to v. Callers on load paths must TryGet first.
func (m *Map[V]) Insert(id int64, v V) error {
	if id < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidIdentity, id)
	}
	if _, ok := m.entries[id]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateIdentity, id)
	}
	m.entries[id] = v
	return nil
}

// Clear drops every entry. The instances themselves are not touched; callers
// still holding one keep a detached, stale reference.
func (m *Map[V]) Clear() {
	clear(m.entries)
}

// Len returns the number of cached instances.
func (m *Map[V]) Len() int {
	return len(m.entries)
}
