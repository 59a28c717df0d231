package history

import (
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/tidwall/match"
	"go.uber.org/zap"
)

// PropertyChange is a change notification raised by an observable target
// after a property was written.
type PropertyChange struct {
	Property string
	Old      any
	New      any
}

// Subscription is a handle to a change feed registration.
type Subscription interface {
	// Cancel stops delivery. Calling it more than once has no effect.
	Cancel()
}

// ObservableTarget is a PropertyTarget that reports its own changes.
type ObservableTarget interface {
	PropertyTarget
	Observe(handler func(PropertyChange)) Subscription
}

// ChangeWatcher turns change notifications of one property into operations
// executed on a Controller.
type ChangeWatcher struct {
	mu sync.Mutex

	controller   *Controller
	target       ObservableTarget
	property     string
	mergeEnabled bool

	sub      Subscription
	disposed bool
	lastErr  error

	// suppress counts writes made by this watcher's own operations.
	suppress atomic.Int32
}

// BindPropertyChanged watches property on target and records every change
// as a PropertyOperation on c. property may be a glob pattern ("*", "?")
// matching several property names.
//
// With mergeEnabled false every change gets its own undo entry regardless of
// timing. While a Recorder of c has a session open, changes join that
// session instead of the undo stack.
func (c *Controller) BindPropertyChanged(target ObservableTarget, property string, mergeEnabled bool) (*ChangeWatcher, error) {
	if target == nil {
		return nil, ErrNilTarget
	}
	if property == "" {
		return nil, ErrEmptyProperty
	}
	w := &ChangeWatcher{
		controller:   c,
		target:       target,
		property:     property,
		mergeEnabled: mergeEnabled,
	}
	w.sub = target.Observe(w.handle)
	return w, nil
}

func (w *ChangeWatcher) handle(ch PropertyChange) {
	// Writes made by the engine itself are not user edits.
	if w.suppress.Load() > 0 || w.controller.Applying() {
		return
	}

	w.mu.Lock()
	disposed := w.disposed
	w.mu.Unlock()
	if disposed {
		return
	}

	if !match.Match(ch.Property, w.property) {
		return
	}
	if reflect.DeepEqual(ch.Old, ch.New) {
		return
	}

	name := ch.Property
	access := Accessor{
		Get: func() (any, error) { return w.target.GetProperty(name) },
		Set: func(value any) error {
			w.suppress.Add(1)
			defer w.suppress.Add(-1)
			return w.target.SetProperty(name, value)
		},
	}

	opts := []OperationOption{
		WithMergeSpan(w.controller.MergeSpan()),
		WithTimestamp(w.controller.Now()),
	}
	if !w.mergeEnabled {
		opts = append(opts, WithoutMerge())
	}

	var exec Executor = w.controller
	if session := w.controller.activeSession(); session != nil {
		exec = session
	}

	op := newPropertyOperation(w.target, name, access, ch.Old, ch.New, opts)
	if err := exec.Execute(op); err != nil {
		w.mu.Lock()
		w.lastErr = err
		w.mu.Unlock()
		w.controller.log.Warn("watched change not recorded",
			zap.String("property", name), zap.Error(err))
	}
}

// Property returns the watched property name or pattern.
func (w *ChangeWatcher) Property() string {
	return w.property
}

// MergeEnabled reports whether synthesized operations may merge.
func (w *ChangeWatcher) MergeEnabled() bool {
	return w.mergeEnabled
}

// Err returns the last error from recording a change, if any.
func (w *ChangeWatcher) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

// Dispose stops watching. History already recorded is kept.
// Safe to call multiple times; only the first call has effect.
func (w *ChangeWatcher) Dispose() {
	w.mu.Lock()
	if w.disposed {
		w.mu.Unlock()
		return
	}
	w.disposed = true
	sub := w.sub
	w.mu.Unlock()

	if sub != nil {
		sub.Cancel()
	}
}

// Disposed returns true once Dispose has been called.
func (w *ChangeWatcher) Disposed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.disposed
}
