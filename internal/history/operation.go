package history

import (
	"reflect"
	"time"

	"github.com/google/uuid"
)

// Operation represents a single undoable mutation.
// Apply and Revert change the target only; stack placement belongs to the
// Controller.
type Operation interface {
	// ID returns a unique identifier assigned at creation.
	ID() string

	// Label returns a human-readable description.
	Label() string

	// Timestamp returns when the operation was created.
	Timestamp() time.Time

	// Apply performs the forward mutation.
	Apply() error

	// Revert performs the exact inverse of Apply.
	Revert() error

	// CanMergeWith reports whether other can be folded into this operation.
	CanMergeWith(other Operation) bool

	// MergeWith returns an operation equivalent to this one followed by other.
	// Only called when CanMergeWith(other) is true.
	MergeWith(other Operation) Operation
}

// OperationOption configures common operation attributes.
type OperationOption func(*meta)

// WithLabel sets the operation label.
func WithLabel(label string) OperationOption {
	return func(m *meta) {
		m.label = label
	}
}

// WithTimestamp overrides the creation time.
func WithTimestamp(t time.Time) OperationOption {
	return func(m *meta) {
		m.timestamp = t
	}
}

// WithMergeSpan sets the merge window for this operation.
func WithMergeSpan(d time.Duration) OperationOption {
	return func(m *meta) {
		if d < 0 {
			d = 0
		}
		m.mergeSpan = d
		m.spanSet = true
	}
}

// WithoutMerge makes the operation refuse every merge.
func WithoutMerge() OperationOption {
	return func(m *meta) {
		m.noMerge = true
	}
}

// WithRunMerge lets a collection operation also merge with the next
// position of a run: an insert right after the last inserted item, or a
// removal just before the last removed one (backspace). Both operations
// must carry it.
func WithRunMerge() OperationOption {
	return func(m *meta) {
		m.runMerge = true
	}
}

// meta holds the attributes shared by all operation kinds.
type meta struct {
	id        string
	label     string
	timestamp time.Time
	mergeSpan time.Duration
	spanSet   bool
	noMerge   bool
	runMerge  bool
}

func newMeta(opts []OperationOption) meta {
	var m meta
	for _, opt := range opts {
		opt(&m)
	}
	if m.id == "" {
		m.id = uuid.NewString()
	}
	if m.timestamp.IsZero() {
		m.timestamp = time.Now()
	}
	if !m.spanSet {
		m.mergeSpan = DefaultMergeSpan()
		m.spanSet = true
	}
	return m
}

// ID returns the operation identifier.
func (m *meta) ID() string { return m.id }

// Timestamp returns the creation time.
func (m *meta) Timestamp() time.Time { return m.timestamp }

// MergeSpan returns the merge window of the operation.
func (m *meta) MergeSpan() time.Duration { return m.mergeSpan }

// Mergeable reports whether the operation takes part in merging at all.
func (m *meta) Mergeable() bool { return !m.noMerge }

// accepts reports whether next, created after m, falls inside m's window.
func (m *meta) accepts(next *meta) bool {
	if m.noMerge || next.noMerge {
		return false
	}
	elapsed := next.timestamp.Sub(m.timestamp)
	return elapsed >= 0 && elapsed <= m.mergeSpan
}

// followedBy returns the meta of a merge result: identity and label of the
// first operation, timestamp of the second so that a run of edits keeps
// sliding the window forward.
func (m meta) followedBy(next *meta) meta {
	merged := m
	merged.timestamp = next.timestamp
	return merged
}

// sameTarget compares two shared targets by identity.
func sameTarget(a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

// OperationInfo provides read-only info about an operation.
// Used for displaying undo/redo history to users.
type OperationInfo struct {
	ID        string
	Label     string
	Timestamp time.Time
}

func infoOf(op Operation) OperationInfo {
	return OperationInfo{
		ID:        op.ID(),
		Label:     op.Label(),
		Timestamp: op.Timestamp(),
	}
}
