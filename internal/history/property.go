package history

import (
	"fmt"
)

// PropertyTarget is an object whose properties can be read and written by name.
type PropertyTarget interface {
	GetProperty(name string) (any, error)
	SetProperty(name string, value any) error
}

// Accessor is a get/set pair bound to one property slot.
type Accessor struct {
	Get func() (any, error)
	Set func(value any) error
}

// BindProperty resolves a named property of target into an Accessor.
func BindProperty(target PropertyTarget, name string) Accessor {
	return Accessor{
		Get: func() (any, error) { return target.GetProperty(name) },
		Set: func(value any) error { return target.SetProperty(name, value) },
	}
}

// PropertyOperation sets one property and restores the previous value on revert.
type PropertyOperation struct {
	meta
	target   any
	key      string
	access   Accessor
	oldValue any
	newValue any
}

// NewPropertyOperation creates an operation that sets target.name to newValue.
// The current value is read now and becomes the value restored by Revert.
func NewPropertyOperation(target PropertyTarget, name string, newValue any, opts ...OperationOption) (*PropertyOperation, error) {
	return NewAccessorOperation(target, name, BindProperty(target, name), newValue, opts...)
}

// NewAccessorOperation creates a property operation from an explicit accessor.
// identity and key decide which operations may merge with it: both must match.
func NewAccessorOperation(identity any, key string, access Accessor, newValue any, opts ...OperationOption) (*PropertyOperation, error) {
	if access.Get == nil || access.Set == nil {
		return nil, fmt.Errorf("property %q: incomplete accessor", key)
	}
	old, err := access.Get()
	if err != nil {
		return nil, fmt.Errorf("read property %q: %w", key, err)
	}
	return newPropertyOperation(identity, key, access, old, newValue, opts), nil
}

// NewPropertyChangeOperation creates a property operation for a change that
// has already happened: oldValue is what Revert restores.
func NewPropertyChangeOperation(target PropertyTarget, name string, oldValue, newValue any, opts ...OperationOption) *PropertyOperation {
	return newPropertyOperation(target, name, BindProperty(target, name), oldValue, newValue, opts)
}

func newPropertyOperation(identity any, key string, access Accessor, oldValue, newValue any, opts []OperationOption) *PropertyOperation {
	return &PropertyOperation{
		meta:     newMeta(opts),
		target:   identity,
		key:      key,
		access:   access,
		oldValue: oldValue,
		newValue: newValue,
	}
}

// Target returns the object the operation writes to.
func (op *PropertyOperation) Target() any { return op.target }

// Key returns the property name.
func (op *PropertyOperation) Key() string { return op.key }

// OldValue returns the value restored by Revert.
func (op *PropertyOperation) OldValue() any { return op.oldValue }

// NewValue returns the value written by Apply.
func (op *PropertyOperation) NewValue() any { return op.newValue }

// Label returns the label, or a description of the property write.
func (op *PropertyOperation) Label() string {
	if op.label != "" {
		return op.label
	}
	return fmt.Sprintf("Set %s", op.key)
}

// Apply writes the new value.
func (op *PropertyOperation) Apply() error {
	if err := op.access.Set(op.newValue); err != nil {
		return fmt.Errorf("set %s: %w", op.key, err)
	}
	return nil
}

// Revert writes the old value back.
func (op *PropertyOperation) Revert() error {
	if err := op.access.Set(op.oldValue); err != nil {
		return fmt.Errorf("restore %s: %w", op.key, err)
	}
	return nil
}

// CanMergeWith reports whether other writes the same slot within the merge span.
func (op *PropertyOperation) CanMergeWith(other Operation) bool {
	next, ok := other.(*PropertyOperation)
	if !ok || next == op {
		return false
	}
	if next.key != op.key || !sameTarget(op.target, next.target) {
		return false
	}
	return op.accepts(&next.meta)
}

// MergeWith folds other into a new operation keeping this operation's old
// value and other's new value. A merge that nets out to no change is kept.
func (op *PropertyOperation) MergeWith(other Operation) Operation {
	next := other.(*PropertyOperation)
	return &PropertyOperation{
		meta:     op.meta.followedBy(&next.meta),
		target:   op.target,
		key:      op.key,
		access:   op.access,
		oldValue: op.oldValue,
		newValue: next.newValue,
	}
}
