package observable

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/dshills/undokit/internal/history"
)

var _ history.ObservableTarget = (*Object)(nil)

// Validator checks a value before it is stored.
type Validator func(value any) error

// Object is a bag of named properties that reports every change.
type Object struct {
	mu         sync.RWMutex
	values     map[string]any
	validators map[string]Validator
	strict     bool
	feed       Feed[history.PropertyChange]
}

// Option configures an Object.
type Option func(*Object)

// WithStrictKeys makes SetProperty reject names not present at creation.
func WithStrictKeys() Option {
	return func(o *Object) {
		o.strict = true
	}
}

// WithValidator registers a validator for one property.
func WithValidator(name string, v Validator) Option {
	return func(o *Object) {
		o.validators[name] = v
	}
}

// New creates an object holding a copy of initial.
func New(initial map[string]any, opts ...Option) *Object {
	o := &Object{
		values:     make(map[string]any, len(initial)),
		validators: make(map[string]Validator),
	}
	for k, v := range initial {
		o.values[k] = v
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// GetProperty returns the value of name.
func (o *Object) GetProperty(name string) (any, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	v, ok := o.values[name]
	if !ok {
		if o.strict {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProperty, name)
		}
		return nil, nil
	}
	return v, nil
}

// SetProperty stores value and notifies subscribers after the store.
// Writing the current value again is a no-op and notifies nobody.
func (o *Object) SetProperty(name string, value any) error {
	o.mu.Lock()
	old, exists := o.values[name]
	if !exists && o.strict {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownProperty, name)
	}
	if v := o.validators[name]; v != nil {
		if err := v(value); err != nil {
			o.mu.Unlock()
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	if exists && reflect.DeepEqual(old, value) {
		o.mu.Unlock()
		return nil
	}
	o.values[name] = value
	o.mu.Unlock()

	o.feed.Publish(history.PropertyChange{Property: name, Old: old, New: value})
	return nil
}

// Validate registers or replaces the validator for name.
func (o *Object) Validate(name string, v Validator) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.validators[name] = v
}

// Observe subscribes handler to every property change.
func (o *Object) Observe(handler func(history.PropertyChange)) history.Subscription {
	return o.feed.Subscribe(handler)
}

// Subscribers returns the number of active subscriptions.
func (o *Object) Subscribers() int {
	return o.feed.Len()
}

// Keys returns the property names in sorted order.
func (o *Object) Keys() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	keys := make([]string, 0, len(o.values))
	for k := range o.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a copy of all properties.
func (o *Object) Snapshot() map[string]any {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make(map[string]any, len(o.values))
	for k, v := range o.values {
		out[k] = v
	}
	return out
}
