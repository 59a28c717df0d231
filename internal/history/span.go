package history

import (
	"sync/atomic"
	"time"
)

// DefaultSpan is the merge span used until SetDefaultMergeSpan is called.
const DefaultSpan = 500 * time.Millisecond

var defaultMergeSpan atomic.Int64

func init() {
	defaultMergeSpan.Store(int64(DefaultSpan))
}

// DefaultMergeSpan returns the process-wide default merge span.
func DefaultMergeSpan() time.Duration {
	return time.Duration(defaultMergeSpan.Load())
}

// SetDefaultMergeSpan changes the process-wide default merge span.
// Controllers and operations capture the value when they are created, so the
// change only affects objects created afterwards. Negative values become zero.
func SetDefaultMergeSpan(d time.Duration) {
	if d < 0 {
		d = 0
	}
	defaultMergeSpan.Store(int64(d))
}
