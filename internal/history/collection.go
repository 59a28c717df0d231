package history

import (
	"fmt"
)

// Collection is an ordered, index-addressable container.
type Collection[T any] interface {
	Len() int
	InsertAt(index int, item T) error
	RemoveAt(index int) (T, error)
}

// CollectionKind distinguishes insertions from removals.
type CollectionKind int

const (
	// CollectionInsert inserts an item at an index.
	CollectionInsert CollectionKind = iota
	// CollectionRemove removes the item at an index.
	CollectionRemove
)

// String returns the kind name.
func (k CollectionKind) String() string {
	switch k {
	case CollectionInsert:
		return "insert"
	case CollectionRemove:
		return "remove"
	default:
		return "unknown"
	}
}

type collectionStep[T any] struct {
	index int
	item  T
}

// CollectionOperation inserts into or removes from a Collection.
// Merged operations hold several steps of the same kind, applied in order.
type CollectionOperation[T any] struct {
	meta
	kind  CollectionKind
	coll  Collection[T]
	steps []collectionStep[T]
}

// NewInsertOperation creates an operation inserting item at index.
func NewInsertOperation[T any](c Collection[T], index int, item T, opts ...OperationOption) *CollectionOperation[T] {
	return &CollectionOperation[T]{
		meta:  newMeta(opts),
		kind:  CollectionInsert,
		coll:  c,
		steps: []collectionStep[T]{{index: index, item: item}},
	}
}

// NewAddOperation creates an operation appending item.
// The append position is the collection length at creation time.
func NewAddOperation[T any](c Collection[T], item T, opts ...OperationOption) *CollectionOperation[T] {
	return NewInsertOperation(c, c.Len(), item, opts...)
}

// NewRemoveAtOperation creates an operation removing the item at index.
// The removed item is captured on Apply so Revert can put it back.
func NewRemoveAtOperation[T any](c Collection[T], index int, opts ...OperationOption) *CollectionOperation[T] {
	return &CollectionOperation[T]{
		meta:  newMeta(opts),
		kind:  CollectionRemove,
		coll:  c,
		steps: []collectionStep[T]{{index: index}},
	}
}

// Kind returns whether the operation inserts or removes.
func (op *CollectionOperation[T]) Kind() CollectionKind { return op.kind }

// Collection returns the target collection.
func (op *CollectionOperation[T]) Collection() Collection[T] { return op.coll }

// Index returns the index of the first step.
func (op *CollectionOperation[T]) Index() int { return op.steps[0].index }

// Items returns the items inserted or removed, in step order.
// For removals the slice is only meaningful after Apply.
func (op *CollectionOperation[T]) Items() []T {
	items := make([]T, len(op.steps))
	for i, s := range op.steps {
		items[i] = s.item
	}
	return items
}

// Label returns the label, or a description of the change.
func (op *CollectionOperation[T]) Label() string {
	if op.label != "" {
		return op.label
	}
	verb := "Insert"
	if op.kind == CollectionRemove {
		verb = "Remove"
	}
	if len(op.steps) == 1 {
		return fmt.Sprintf("%s at %d", verb, op.steps[0].index)
	}
	return fmt.Sprintf("%s %d items", verb, len(op.steps))
}

// Apply runs every step in order. On failure the steps already done are
// undone before the error is returned.
func (op *CollectionOperation[T]) Apply() error {
	for i := range op.steps {
		if err := op.forward(i); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = op.backward(j)
			}
			return &StepError{Label: op.Label(), Phase: PhaseApply, Step: i, Err: err}
		}
	}
	return nil
}

// Revert undoes every step in reverse order. On failure the steps already
// undone are redone before the error is returned.
func (op *CollectionOperation[T]) Revert() error {
	for i := len(op.steps) - 1; i >= 0; i-- {
		if err := op.backward(i); err != nil {
			for j := i + 1; j < len(op.steps); j++ {
				_ = op.forward(j)
			}
			return &StepError{Label: op.Label(), Phase: PhaseRevert, Step: i, Err: err}
		}
	}
	return nil
}

func (op *CollectionOperation[T]) forward(i int) error {
	s := &op.steps[i]
	if op.kind == CollectionInsert {
		return op.coll.InsertAt(s.index, s.item)
	}
	item, err := op.coll.RemoveAt(s.index)
	if err != nil {
		return err
	}
	s.item = item
	return nil
}

func (op *CollectionOperation[T]) backward(i int) error {
	s := op.steps[i]
	if op.kind == CollectionInsert {
		_, err := op.coll.RemoveAt(s.index)
		return err
	}
	return op.coll.InsertAt(s.index, s.item)
}

// CanMergeWith reports whether other repeats this operation at the same
// index: inserts stacking up at one position, or removals at one position
// (forward delete). Operations created WithRunMerge also merge along a run.
func (op *CollectionOperation[T]) CanMergeWith(other Operation) bool {
	next, ok := other.(*CollectionOperation[T])
	if !ok || next == op || next.kind != op.kind || len(next.steps) != 1 {
		return false
	}
	if !sameTarget(op.coll, next.coll) || !op.accepts(&next.meta) {
		return false
	}
	last := op.steps[len(op.steps)-1].index
	idx := next.steps[0].index
	if idx == last {
		return true
	}
	if !op.runMerge || !next.runMerge {
		return false
	}
	if op.kind == CollectionInsert {
		return idx == last+1
	}
	return idx == last-1
}

// MergeWith returns an operation running this operation's steps then other's.
func (op *CollectionOperation[T]) MergeWith(other Operation) Operation {
	next := other.(*CollectionOperation[T])
	steps := make([]collectionStep[T], 0, len(op.steps)+len(next.steps))
	steps = append(steps, op.steps...)
	steps = append(steps, next.steps...)
	return &CollectionOperation[T]{
		meta:  op.meta.followedBy(&next.meta),
		kind:  op.kind,
		coll:  op.coll,
		steps: steps,
	}
}
