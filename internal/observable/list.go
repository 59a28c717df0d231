package observable

import (
	"fmt"
	"sync"

	"github.com/dshills/undokit/internal/history"
)

var _ history.Collection[int] = (*List[int])(nil)

// ListChangeKind distinguishes list notifications.
type ListChangeKind int

const (
	ListInserted ListChangeKind = iota
	ListRemoved
)

// ListChange describes one structural change of a List.
type ListChange[T any] struct {
	Kind  ListChangeKind
	Index int
	Item  T
}

// List is an ordered collection that reports insertions and removals.
type List[T any] struct {
	mu    sync.RWMutex
	items []T
	feed  Feed[ListChange[T]]
}

// NewList creates a list holding a copy of items.
func NewList[T any](items ...T) *List[T] {
	return &List[T]{items: append([]T(nil), items...)}
}

// Len returns the number of items.
func (l *List[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// At returns the item at index.
func (l *List[T]) At(index int) (T, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var zero T
	if index < 0 || index >= len(l.items) {
		return zero, fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, index, len(l.items))
	}
	return l.items[index], nil
}

// Items returns a copy of the items.
func (l *List[T]) Items() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]T(nil), l.items...)
}

// InsertAt inserts item before index; index == Len() appends.
func (l *List[T]) InsertAt(index int, item T) error {
	l.mu.Lock()
	if index < 0 || index > len(l.items) {
		n := len(l.items)
		l.mu.Unlock()
		return fmt.Errorf("%w: %d not in [0,%d]", ErrIndexOutOfRange, index, n)
	}
	var zero T
	l.items = append(l.items, zero)
	copy(l.items[index+1:], l.items[index:])
	l.items[index] = item
	l.mu.Unlock()

	l.feed.Publish(ListChange[T]{Kind: ListInserted, Index: index, Item: item})
	return nil
}

// Append adds item at the end.
func (l *List[T]) Append(item T) error {
	return l.InsertAt(l.Len(), item)
}

// RemoveAt removes and returns the item at index.
func (l *List[T]) RemoveAt(index int) (T, error) {
	l.mu.Lock()
	var zero T
	if index < 0 || index >= len(l.items) {
		n := len(l.items)
		l.mu.Unlock()
		return zero, fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, index, n)
	}
	item := l.items[index]
	copy(l.items[index:], l.items[index+1:])
	l.items[len(l.items)-1] = zero
	l.items = l.items[:len(l.items)-1]
	l.mu.Unlock()

	l.feed.Publish(ListChange[T]{Kind: ListRemoved, Index: index, Item: item})
	return item, nil
}

// Observe subscribes handler to structural changes.
func (l *List[T]) Observe(handler func(ListChange[T])) *Subscription {
	return l.feed.Subscribe(handler)
}
