package history

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Recorder groups the operations of a recording session into a single undo
// entry of its Controller.
//
// During a session, operations are routed through the proxy returned by
// BeginRecording. They are applied immediately but kept out of the
// controller's stacks until EndRecording commits them.
type Recorder struct {
	mu         sync.Mutex
	controller *Controller
	session    *session
}

// NewRecorder creates a recorder committing to c.
func NewRecorder(c *Controller) *Recorder {
	return &Recorder{controller: c}
}

// session is the proxy handed out for one recording.
type session struct {
	recorder *Recorder
	pending  []Operation
	closed   bool
}

var _ Executor = (*session)(nil)

// Execute applies op and appends it to the pending list.
// A proxy whose session has ended returns ErrNotRecording.
func (s *session) Execute(op Operation) error {
	if op == nil {
		return ErrNilOperation
	}
	r := s.recorder

	r.mu.Lock()
	closed := s.closed
	r.mu.Unlock()
	if closed {
		return ErrNotRecording
	}

	if err := r.controller.run(op.Apply); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s.closed {
		// Ended while applying; the change happened, so undo it.
		_ = r.controller.run(op.Revert)
		return ErrNotRecording
	}
	s.pending = append(s.pending, op)
	return nil
}

// MergeSpan returns the controller's merge span.
func (s *session) MergeSpan() time.Duration {
	return s.recorder.controller.MergeSpan()
}

// Now returns the controller clock's current time.
func (s *session) Now() time.Time {
	return s.recorder.controller.Now()
}

// BeginRecording starts a session and returns its proxy.
// Returns ErrAlreadyRecording if a session is open, here or on another
// recorder of the same controller.
func (r *Recorder) BeginRecording() (Executor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil {
		return nil, ErrAlreadyRecording
	}
	s := &session{recorder: r}
	if !r.controller.attachSession(s) {
		return nil, ErrAlreadyRecording
	}
	r.session = s
	return s, nil
}

// Current returns the proxy of the open session, or nil when idle.
func (r *Recorder) Current() Executor {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return nil
	}
	return r.session
}

// IsRecording returns true while a session is open.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session != nil
}

// PendingCount returns the number of operations recorded so far.
func (r *Recorder) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return 0
	}
	return len(r.session.pending)
}

// close detaches the open session and returns its pending operations.
func (r *Recorder) close() ([]Operation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return nil, ErrNotRecording
	}
	s := r.session
	s.closed = true
	r.session = nil
	r.controller.detachSession(s)
	return s.pending, nil
}

// EndRecording closes the session and commits it to the controller as one
// CompositeOperation carrying label. An empty session commits nothing.
// The committed entry is neither re-applied nor merged with the previous
// top, and being a composite, later operations never merge into it.
func (r *Recorder) EndRecording(label string) error {
	pending, err := r.close()
	if err != nil {
		return err
	}

	if len(pending) == 0 {
		r.controller.log.Debug("recording empty", zap.String("label", label))
		return nil
	}
	r.controller.commit(NewCompositeOperation(label, pending...))
	return nil
}

// CancelRecording closes the session, reverting its operations in reverse
// order. Nothing is committed.
func (r *Recorder) CancelRecording() error {
	pending, err := r.close()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}
	// Revert as one unit so a failure re-applies what was already reverted.
	return r.controller.run(NewCompositeOperation("cancelled recording", pending...).Revert)
}

// Record runs fn inside a recording session.
// If fn returns an error, the session is cancelled and the error returned.
// Otherwise the session is ended normally.
func (r *Recorder) Record(label string, fn func(Executor) error) error {
	proxy, err := r.BeginRecording()
	if err != nil {
		return err
	}

	if err := fn(proxy); err != nil {
		if cerr := r.CancelRecording(); cerr != nil {
			r.controller.log.Warn("cancel recording failed", zap.String("label", label), zap.Error(cerr))
		}
		return err
	}

	return r.EndRecording(label)
}
