// Package config loads engine settings from TOML or YAML files and the
// environment, and can watch the file for live reload.
//
// File layout:
//
//	[history]
//	merge_span = "500ms"
//	max_entries = 1000
//
//	[logging]
//	level = "info"
package config

import (
	"fmt"
	"time"

	"github.com/dshills/undokit/internal/history"
	"github.com/dshills/undokit/internal/logging"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "UNDOKIT_"

// Settings holds the tunables of an undo engine.
type Settings struct {
	// MergeSpan is the window within which consecutive edits fold together.
	MergeSpan time.Duration

	// MaxEntries bounds the undo stack.
	MaxEntries int

	// LogLevel is one of debug, info, warn or error.
	LogLevel string
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		MergeSpan:  history.DefaultSpan,
		MaxEntries: history.DefaultMaxEntries,
		LogLevel:   "info",
	}
}

// Validate checks that every field holds a usable value.
func (s Settings) Validate() error {
	if s.MergeSpan < 0 {
		return fmt.Errorf("%w: merge_span %s is negative", ErrInvalidSetting, s.MergeSpan)
	}
	if s.MaxEntries <= 0 {
		return fmt.Errorf("%w: max_entries %d must be positive", ErrInvalidSetting, s.MaxEntries)
	}
	if _, err := logging.ParseLevel(s.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSetting, err)
	}
	return nil
}

// Apply makes MergeSpan the process-wide default merge span.
// Controllers and operations created afterwards pick it up; existing ones
// keep the span they captured.
func (s Settings) Apply() {
	history.SetDefaultMergeSpan(s.MergeSpan)
}

// ControllerOptions returns the controller options matching s.
func (s Settings) ControllerOptions(log *logging.Logger) []history.Option {
	return []history.Option{
		history.WithDefaultSpan(s.MergeSpan),
		history.WithMaxEntries(s.MaxEntries),
		history.WithLogger(log),
	}
}
