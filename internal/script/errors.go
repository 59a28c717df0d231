package script

import "errors"

// ErrClosed is returned when running a script on a closed engine.
var ErrClosed = errors.New("script engine is closed")
