package history

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/undokit/internal/logging"
)

// DefaultMaxEntries bounds the undo stack when no limit is configured.
const DefaultMaxEntries = 1000

// Executor is anything operations can be routed through: the Controller
// itself or the proxy of an active recording session.
type Executor interface {
	// Execute applies op and records it.
	Execute(op Operation) error

	// MergeSpan is the merge window given to operations built for this executor.
	MergeSpan() time.Duration

	// Now is the timestamp given to operations built for this executor.
	Now() time.Time
}

var _ Executor = (*Controller)(nil)

// ChangeKind identifies what happened to the history.
type ChangeKind int

const (
	ChangeExecuted ChangeKind = iota
	ChangeMerged
	ChangeUndone
	ChangeRedone
	ChangeCommitted
	ChangeCleared
)

// String returns the change name.
func (k ChangeKind) String() string {
	switch k {
	case ChangeExecuted:
		return "executed"
	case ChangeMerged:
		return "merged"
	case ChangeUndone:
		return "undone"
	case ChangeRedone:
		return "redone"
	case ChangeCommitted:
		return "committed"
	case ChangeCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// ChangeEvent is delivered to OnChange listeners after the stacks changed.
type ChangeEvent struct {
	Kind    ChangeKind
	Op      OperationInfo // zero for ChangeCleared
	CanUndo bool
	CanRedo bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithDefaultSpan sets the merge span given to operations the controller
// builds, instead of the process-wide default.
func WithDefaultSpan(d time.Duration) Option {
	return func(c *Controller) {
		if d < 0 {
			d = 0
		}
		c.mergeSpan = d
	}
}

// WithMaxEntries bounds the undo stack; the oldest entries are dropped.
func WithMaxEntries(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithClock replaces time.Now for operations the controller builds.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// Controller manages the undo and redo stacks.
//
// The lock only guards stack bookkeeping; Apply and Revert run without it so
// that change notifications raised by a target can call back into the
// controller.
type Controller struct {
	mu sync.Mutex

	undoStack []Operation
	redoStack []Operation

	// Configuration
	maxEntries int
	mergeSpan  time.Duration
	now        func() time.Time
	log        *logging.Logger

	// applying counts Apply/Revert calls in flight; watchers ignore
	// notifications while it is non-zero.
	applying atomic.Int32

	// session is the open recording of this controller, if any.
	session Executor

	// sealed holds the IDs of entries under a checkpoint.
	sealed map[string]struct{}

	listeners    map[int]func(ChangeEvent)
	nextListener int
}

// NewController creates a controller.
// The merge span defaults to DefaultMergeSpan() at the time of the call.
func NewController(opts ...Option) *Controller {
	c := &Controller{
		maxEntries: DefaultMaxEntries,
		mergeSpan:  DefaultMergeSpan(),
		now:        time.Now,
		log:        logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.Named("history")
	return c
}

// Execute applies op and records it.
// If the top of the undo stack can merge with op, the two are folded into one
// entry; otherwise op is pushed. The redo stack is cleared either way.
// If op.Apply fails the stacks are left untouched.
func (c *Controller) Execute(op Operation) error {
	if op == nil {
		return ErrNilOperation
	}
	if err := c.run(op.Apply); err != nil {
		return err
	}

	c.mu.Lock()
	kind := ChangeExecuted
	entry := op
	if n := len(c.undoStack); n > 0 && !c.sealedLocked(c.undoStack[n-1]) && c.undoStack[n-1].CanMergeWith(op) {
		entry = c.undoStack[n-1].MergeWith(op)
		c.undoStack[n-1] = entry
		c.redoStack = nil
		kind = ChangeMerged
	} else {
		c.pushLocked(op)
	}
	ev := c.eventLocked(kind, entry)
	c.mu.Unlock()

	c.log.Debug(kind.String(), zap.String("op", entry.Label()), zap.String("id", entry.ID()))
	c.emit(ev)
	return nil
}

// commit pushes an already applied operation without merging.
func (c *Controller) commit(op Operation) {
	c.mu.Lock()
	c.pushLocked(op)
	ev := c.eventLocked(ChangeCommitted, op)
	c.mu.Unlock()

	c.log.Debug("committed", zap.String("op", op.Label()), zap.String("id", op.ID()))
	c.emit(ev)
}

// pushLocked adds an operation without acquiring the lock.
func (c *Controller) pushLocked(op Operation) {
	c.undoStack = append(c.undoStack, op)

	// Clear redo stack
	c.redoStack = nil

	// Enforce max entries
	if len(c.undoStack) > c.maxEntries {
		excess := len(c.undoStack) - c.maxEntries
		c.undoStack = append([]Operation(nil), c.undoStack[excess:]...)
	}
}

// Undo reverts the most recent operation and moves it to the redo stack.
// Returns ErrNothingToUndo if the undo stack is empty.
// If Revert fails the entry stays on the undo stack.
func (c *Controller) Undo() error {
	c.mu.Lock()
	if len(c.undoStack) == 0 {
		c.mu.Unlock()
		return ErrNothingToUndo
	}

	op := c.undoStack[len(c.undoStack)-1]
	c.undoStack = c.undoStack[:len(c.undoStack)-1]
	c.mu.Unlock()

	if err := c.run(op.Revert); err != nil {
		// Restore entry on failure
		c.mu.Lock()
		c.undoStack = append(c.undoStack, op)
		c.mu.Unlock()
		c.log.Warn("undo failed", zap.String("op", op.Label()), zap.Error(err))
		return fmt.Errorf("undo %s: %w", op.Label(), err)
	}

	c.mu.Lock()
	c.redoStack = append(c.redoStack, op)
	ev := c.eventLocked(ChangeUndone, op)
	c.mu.Unlock()

	c.log.Debug("undone", zap.String("op", op.Label()), zap.String("id", op.ID()))
	c.emit(ev)
	return nil
}

// Redo re-applies the most recently undone operation.
// Returns ErrNothingToRedo if the redo stack is empty.
// If Apply fails the entry stays on the redo stack.
func (c *Controller) Redo() error {
	c.mu.Lock()
	if len(c.redoStack) == 0 {
		c.mu.Unlock()
		return ErrNothingToRedo
	}

	op := c.redoStack[len(c.redoStack)-1]
	c.redoStack = c.redoStack[:len(c.redoStack)-1]
	c.mu.Unlock()

	if err := c.run(op.Apply); err != nil {
		c.mu.Lock()
		c.redoStack = append(c.redoStack, op)
		c.mu.Unlock()
		c.log.Warn("redo failed", zap.String("op", op.Label()), zap.Error(err))
		return fmt.Errorf("redo %s: %w", op.Label(), err)
	}

	c.mu.Lock()
	c.undoStack = append(c.undoStack, op)
	ev := c.eventLocked(ChangeRedone, op)
	c.mu.Unlock()

	c.log.Debug("redone", zap.String("op", op.Label()), zap.String("id", op.ID()))
	c.emit(ev)
	return nil
}

// attachSession makes s the open recording. Only one recording may be open
// per controller.
func (c *Controller) attachSession(s Executor) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		return false
	}
	c.session = s
	return true
}

func (c *Controller) detachSession(s Executor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == s {
		c.session = nil
	}
}

func (c *Controller) activeSession() Executor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// run calls fn with the applying counter raised.
func (c *Controller) run(fn func() error) error {
	c.applying.Add(1)
	defer c.applying.Add(-1)
	return fn()
}

// Applying reports whether the controller is inside Apply or Revert.
func (c *Controller) Applying() bool {
	return c.applying.Load() > 0
}

// CanUndo returns true if undo is available.
func (c *Controller) CanUndo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.undoStack) > 0
}

// CanRedo returns true if redo is available.
func (c *Controller) CanRedo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.redoStack) > 0
}

// UndoCount returns the number of undo entries.
func (c *Controller) UndoCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.undoStack)
}

// RedoCount returns the number of redo entries.
func (c *Controller) RedoCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.redoStack)
}

// Clear removes all undo/redo history. Targets are not touched.
func (c *Controller) Clear() {
	c.mu.Lock()
	c.undoStack = nil
	c.redoStack = nil
	c.sealed = nil
	ev := ChangeEvent{Kind: ChangeCleared}
	c.mu.Unlock()

	c.emit(ev)
}

// UndoInfo returns info about the undo entries, oldest first.
func (c *Controller) UndoInfo() []OperationInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return infoList(c.undoStack)
}

// RedoInfo returns info about the redo entries, oldest first.
func (c *Controller) RedoInfo() []OperationInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return infoList(c.redoStack)
}

func infoList(ops []Operation) []OperationInfo {
	result := make([]OperationInfo, len(ops))
	for i, op := range ops {
		result[i] = infoOf(op)
	}
	return result
}

// PeekUndo returns info about the next undo entry without removing it.
func (c *Controller) PeekUndo() (OperationInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.undoStack) == 0 {
		return OperationInfo{}, false
	}
	return infoOf(c.undoStack[len(c.undoStack)-1]), true
}

// PeekRedo returns info about the next redo entry without removing it.
func (c *Controller) PeekRedo() (OperationInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.redoStack) == 0 {
		return OperationInfo{}, false
	}
	return infoOf(c.redoStack[len(c.redoStack)-1]), true
}

// MergeSpan returns the merge span given to operations built by the controller.
func (c *Controller) MergeSpan() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mergeSpan
}

// SetMergeSpan changes the merge span for operations built from now on.
func (c *Controller) SetMergeSpan(d time.Duration) {
	if d < 0 {
		d = 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mergeSpan = d
}

// Now returns the controller clock's current time.
func (c *Controller) Now() time.Time {
	return c.now()
}

// SetMaxEntries changes the maximum number of undo entries.
// If the current stack is larger, oldest entries are removed.
func (c *Controller) SetMaxEntries(max int) {
	if max <= 0 {
		max = DefaultMaxEntries
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.maxEntries = max
	if len(c.undoStack) > max {
		excess := len(c.undoStack) - max
		c.undoStack = append([]Operation(nil), c.undoStack[excess:]...)
	}
}

// MaxEntries returns the maximum number of undo entries.
func (c *Controller) MaxEntries() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxEntries
}

// OnChange registers fn to be called after every stack change.
// The returned function removes the listener.
func (c *Controller) OnChange(fn func(ChangeEvent)) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.listeners == nil {
		c.listeners = make(map[int]func(ChangeEvent))
	}
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

func (c *Controller) eventLocked(kind ChangeKind, op Operation) ChangeEvent {
	return ChangeEvent{
		Kind:    kind,
		Op:      infoOf(op),
		CanUndo: len(c.undoStack) > 0,
		CanRedo: len(c.redoStack) > 0,
	}
}

// emit calls listeners in registration order.
func (c *Controller) emit(ev ChangeEvent) {
	c.mu.Lock()
	ids := make([]int, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(ChangeEvent), len(ids))
	for i, id := range ids {
		fns[i] = c.listeners[id]
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
