package observable

import "errors"

// Common errors for observable targets.
var (
	ErrUnknownProperty = errors.New("unknown property")
	ErrIndexOutOfRange = errors.New("index out of range")
)
