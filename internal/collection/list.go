package collection

import (
	"fmt"
	"sync"
)

// List is the authoritative collection for one entity type. All mutations go
// through its methods; readers only ever get copies.
type List[T any] struct {
	mu    sync.RWMutex
	id    func(T) int64
	clone func(T) T
	items []T
}

func NewList[T any](schema Schema[T], items ...T) *List[T] {
	l := &List[T]{id: schema.ID, clone: schema.Clone}
	l.items = l.copyAll(items)
	return l
}

func (l *List[T]) copyAll(items []T) []T {
	out := make([]T, len(items))
	for i, it := range items {
		out[i] = l.copy(it)
	}
	return out
}

func (l *List[T]) copy(item T) T {
	if l.clone == nil {
		return item
	}
	return l.clone(item)
}

// Snapshot returns a deep copy of the collection in order.
func (l *List[T]) Snapshot() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.copyAll(l.items)
}

func (l *List[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

func (l *List[T]) At(pos int) (T, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var zero T
	if pos < 0 || pos >= len(l.items) {
		return zero, ErrOutOfRange
	}
	return l.copy(l.items[pos]), nil
}

// Find returns the entity with the given id and its position.
func (l *List[T]) Find(id int64) (T, int, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i, it := range l.items {
		if l.id(it) == id {
			return l.copy(it), i, true
		}
	}
	var zero T
	return zero, -1, false
}

func (l *List[T]) Append(item T) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.id(item)
	for _, it := range l.items {
		if l.id(it) == id {
			return fmt.Errorf("%w: %d", ErrDuplicateID, id)
		}
	}
	l.items = append(l.items, l.copy(item))
	return nil
}

// Replace swaps the entity at pos. The entity currently there must carry the
// same id as item.
func (l *List[T]) Replace(pos int, item T) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if pos < 0 || pos >= len(l.items) {
		return ErrOutOfRange
	}
	if l.id(l.items[pos]) != l.id(item) {
		return ErrStalePosition
	}
	l.items[pos] = l.copy(item)
	return nil
}

// RemoveAt deletes the entity at pos if it still carries id. The order of the
// remaining entities is preserved.
func (l *List[T]) RemoveAt(pos int, id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if pos < 0 || pos >= len(l.items) {
		return ErrOutOfRange
	}
	if l.id(l.items[pos]) != id {
		return ErrStalePosition
	}
	l.items = append(l.items[:pos:pos], l.items[pos+1:]...)
	return nil
}

func (l *List[T]) Reset(items []T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = l.copyAll(items)
}
