// Package script runs Lua scripts against an undoable target.
//
// Scripts see a global table named undo:
//
//	undo.set("address.city", "Oslo")
//	undo.record("Rename", function()
//	    undo.set("first", "Grace")
//	    undo.set("last", "Hopper")
//	end)
//	undo.undo()
//	print(undo.get("first"), undo.can_redo())
//
// Only the base, table, string and math libraries are opened.
package script

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/dshills/undokit/internal/history"
	"github.com/dshills/undokit/internal/logging"
)

// DefaultTimeout bounds a single Run or RunFile call.
const DefaultTimeout = 5 * time.Second

// Engine owns a Lua state bound to one controller and one target.
//
// gopher-lua's LState is not goroutine-safe; the mutex serializes Run calls.
type Engine struct {
	L *lua.LState

	mu sync.Mutex

	controller *history.Controller
	recorder   *history.Recorder
	target     history.PropertyTarget

	log     *logging.Logger
	out     io.Writer
	timeout time.Duration

	closed bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithOutput sets where print writes. The default discards output.
func WithOutput(w io.Writer) Option {
	return func(e *Engine) {
		if w != nil {
			e.out = w
		}
	}
}

// WithTimeout bounds each Run call. Zero disables the limit.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.timeout = d
		}
	}
}

// WithRecorder shares an existing recorder with the script, so Go code and
// the script see the same recording session.
func WithRecorder(r *history.Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// New creates an engine whose scripts edit target through controller.
func New(controller *history.Controller, target history.PropertyTarget, opts ...Option) *Engine {
	e := &Engine{
		controller: controller,
		target:     target,
		log:        logging.Nop(),
		out:        io.Discard,
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.recorder == nil {
		e.recorder = history.NewRecorder(controller)
	}
	e.log = e.log.Named("script")

	e.L = lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(e.L)
	e.L.SetGlobal("print", e.L.NewFunction(e.print))
	newModule(e).register(e.L)
	return e
}

// openSafeLibraries opens only libraries without file or process access.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// The base library can still reach the file system.
	for _, name := range []string{"dofile", "loadfile"} {
		L.SetGlobal(name, lua.LNil)
	}
}

// Recorder returns the recorder scripts use for undo.record.
func (e *Engine) Recorder() *history.Recorder {
	return e.recorder
}

// Run executes src.
func (e *Engine) Run(src string) error {
	return e.do("chunk", func() error { return e.L.DoString(src) })
}

// RunFile executes the Lua file at path.
func (e *Engine) RunFile(path string) error {
	return e.do(path, func() error { return e.L.DoFile(path) })
}

func (e *Engine) do(name string, fn func() error) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}

	if e.timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()
		e.L.SetContext(ctx)
		defer e.L.RemoveContext()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
		if err != nil {
			e.log.Warn("script failed", zap.String("script", name), zap.Error(err))
		}
	}()

	if err := fn(); err != nil {
		return fmt.Errorf("run %s: %w", name, err)
	}
	return nil
}

// Close releases the Lua state. An open recording started by the script is
// cancelled.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	e.L.Close()

	if e.recorder.IsRecording() {
		return e.recorder.CancelRecording()
	}
	return nil
}

// print writes its arguments separated by tabs, like the stock Lua print.
func (e *Engine) print(L *lua.LState) int {
	n := L.GetTop()
	parts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	fmt.Fprintln(e.out, strings.Join(parts, "\t"))
	return 0
}
