package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/dshills/undokit/internal/history"
	"github.com/dshills/undokit/internal/logging"
)

// DefaultDebounce coalesces the burst of events editors emit on save.
const DefaultDebounce = 100 * time.Millisecond

// Watch reloads the file at path whenever it is written or created and calls
// onChange with the result. Environment overrides with EnvPrefix are applied
// on every reload. Watching stops when ctx is done.
//
// The parent directory is watched rather than the file so that editors which
// replace the file on save keep working.
func Watch(ctx context.Context, path string, onChange func(Settings, error)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	go watchLoop(ctx, w, abs, onChange)
	return nil
}

// Follow watches path and pushes every valid reload into ctrl: the merge
// span and max entries of ctrl change, and the process-wide default span is
// updated through Settings.Apply. A reload that fails keeps the current
// settings and is logged.
func Follow(ctx context.Context, path string, ctrl *history.Controller, log *logging.Logger) error {
	return Watch(ctx, path, func(s Settings, err error) {
		if err != nil {
			log.Warn("config reload failed", zap.String("path", path), zap.Error(err))
			return
		}
		s.Apply()
		ctrl.SetMergeSpan(s.MergeSpan)
		ctrl.SetMaxEntries(s.MaxEntries)
		log.Info("config reloaded",
			zap.String("path", path),
			zap.Duration("merge_span", s.MergeSpan),
			zap.Int("max_entries", s.MaxEntries))
	})
}

func watchLoop(ctx context.Context, w *fsnotify.Watcher, path string, onChange func(Settings, error)) {
	defer w.Close()

	timer := time.NewTimer(DefaultDebounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				timer.Reset(DefaultDebounce)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			onChange(Settings{}, fmt.Errorf("watching %s: %w", path, err))

		case <-timer.C:
			s, err := Load(path)
			if err == nil {
				err = s.ApplyEnv(EnvPrefix)
			}
			onChange(s, err)
		}
	}
}
