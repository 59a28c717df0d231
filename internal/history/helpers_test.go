package history

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"time"
)

var errRejected = errors.New("rejected")

// fakeClock is a manually advanced clock.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// fakeObject is an in-memory ObservableTarget.
type fakeObject struct {
	values   map[string]any
	reject   map[string]error
	handlers map[int]func(PropertyChange)
	nextID   int

	// failOnSame makes redundant writes fail.
	failOnSame bool
	writes     int
}

func newFakeObject(values map[string]any) *fakeObject {
	if values == nil {
		values = make(map[string]any)
	}
	return &fakeObject{
		values:   values,
		reject:   make(map[string]error),
		handlers: make(map[int]func(PropertyChange)),
	}
}

func (o *fakeObject) GetProperty(name string) (any, error) {
	return o.values[name], nil
}

func (o *fakeObject) SetProperty(name string, value any) error {
	if err := o.reject[name]; err != nil {
		return err
	}
	o.writes++
	old := o.values[name]
	if reflect.DeepEqual(old, value) {
		if o.failOnSame {
			return fmt.Errorf("%s unchanged", name)
		}
		return nil
	}
	o.values[name] = value

	ids := make([]int, 0, len(o.handlers))
	for id := range o.handlers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if h, ok := o.handlers[id]; ok {
			h(PropertyChange{Property: name, Old: old, New: value})
		}
	}
	return nil
}

func (o *fakeObject) Observe(handler func(PropertyChange)) Subscription {
	id := o.nextID
	o.nextID++
	o.handlers[id] = handler
	return &fakeSubscription{obj: o, id: id}
}

type fakeSubscription struct {
	obj *fakeObject
	id  int
}

func (s *fakeSubscription) Cancel() {
	delete(s.obj.handlers, s.id)
}

// fakeList is a slice-backed Collection.
type fakeList[T any] struct {
	items     []T
	rejectAdd bool
}

func newFakeList[T any](items ...T) *fakeList[T] {
	return &fakeList[T]{items: append([]T(nil), items...)}
}

func (l *fakeList[T]) Len() int { return len(l.items) }

func (l *fakeList[T]) InsertAt(index int, item T) error {
	if l.rejectAdd {
		return errRejected
	}
	if index < 0 || index > len(l.items) {
		return fmt.Errorf("index %d out of range [0,%d]", index, len(l.items))
	}
	l.items = append(l.items, item)
	copy(l.items[index+1:], l.items[index:])
	l.items[index] = item
	return nil
}

func (l *fakeList[T]) RemoveAt(index int) (T, error) {
	var zero T
	if index < 0 || index >= len(l.items) {
		return zero, fmt.Errorf("index %d out of range [0,%d)", index, len(l.items))
	}
	item := l.items[index]
	l.items = append(l.items[:index], l.items[index+1:]...)
	return item, nil
}

// traceOp records Apply/Revert calls into a shared log.
type traceOp struct {
	meta
	name      string
	trace     *[]string
	applyErr  error
	revertErr error
}

func newTraceOp(name string, trace *[]string) *traceOp {
	return &traceOp{meta: newMeta(nil), name: name, trace: trace}
}

func (op *traceOp) Label() string { return op.name }

func (op *traceOp) Apply() error {
	if op.applyErr != nil {
		return op.applyErr
	}
	*op.trace = append(*op.trace, "apply "+op.name)
	return nil
}

func (op *traceOp) Revert() error {
	if op.revertErr != nil {
		return op.revertErr
	}
	*op.trace = append(*op.trace, "revert "+op.name)
	return nil
}

func (op *traceOp) CanMergeWith(Operation) bool { return false }

func (op *traceOp) MergeWith(Operation) Operation { return op }
