// Copyright (c) 2024 berylllium
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package container holds generic storage primitives.
package container

// NewFreeList creates a FreeList with room for capacity elements before
// the first growth. The zero value is also ready to use.
func NewFreeList[T any](capacity int) *FreeList[T] {
	return &FreeList[T]{
		slots: make([]slot[T], 0, capacity),
	}
}

// FreeList is a growable arena handing out stable integer indices.
// Removing an element marks its slot for reuse without moving any other
// element, so an index stays valid until its own removal.
type FreeList[T any] struct {
	slots []slot[T]
	free  []int
	count int
}

type slot[T any] struct {
	value    T
	occupied bool
}

// Insert stores value and returns its index. Freed slots are reused
// before the backing storage grows.
func (l *FreeList[T]) Insert(value T) int {
	if n := len(l.free); n > 0 {
		idx := l.free[n-1]
		l.free = l.free[:n-1]
		l.slots[idx] = slot[T]{value: value, occupied: true}
		l.count++
		return idx
	}

	l.slots = append(l.slots, slot[T]{value: value, occupied: true})
	l.count++
	return len(l.slots) - 1
}

// Remove frees the slot at idx. It reports whether the slot held an
// element.
func (l *FreeList[T]) Remove(idx int) bool {
	if idx < 0 || idx >= len(l.slots) || !l.slots[idx].occupied {
		return false
	}

	var zero T
	l.slots[idx] = slot[T]{value: zero}
	l.free = append(l.free, idx)
	l.count--
	return true
}

// Get returns a pointer to the element at idx for in place mutation,
// or nil when the slot is free or out of range.
func (l *FreeList[T]) Get(idx int) *T {
	if idx < 0 || idx >= len(l.slots) || !l.slots[idx].occupied {
		return nil
	}
	return &l.slots[idx].value
}

// Len returns the number of live elements.
func (l *FreeList[T]) Len() int {
	return l.count
}

// Each calls fn for every live element in index order.
func (l *FreeList[T]) Each(fn func(idx int, value *T)) {
	for idx := range l.slots {
		if l.slots[idx].occupied {
			fn(idx, &l.slots[idx].value)
		}
	}
}
