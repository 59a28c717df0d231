package history

import (
	"errors"
	"fmt"
)

// Common errors for history operations.
var (
	ErrNothingToUndo    = errors.New("nothing to undo")
	ErrNothingToRedo    = errors.New("nothing to redo")
	ErrNilOperation     = errors.New("nil operation")
	ErrAlreadyRecording = errors.New("recording already in progress")
	ErrNotRecording     = errors.New("no recording in progress")
	ErrNilTarget        = errors.New("nil target")
	ErrEmptyProperty    = errors.New("empty property name")
)

// Phase names the direction an operation was running in when it failed.
type Phase string

const (
	PhaseApply  Phase = "apply"
	PhaseRevert Phase = "revert"
)

// StepError reports the failing step of a multi-step operation.
type StepError struct {
	Label string
	Phase Phase
	Step  int
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s %q step %d: %v", e.Phase, e.Label, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
