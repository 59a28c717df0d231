package script

import (
	"errors"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/undokit/internal/history"
)

// module implements the undo API table.
type module struct {
	e *Engine
}

func newModule(e *Engine) *module {
	return &module{e: e}
}

// register installs the module as the global "undo".
func (m *module) register(L *lua.LState) {
	mod := L.NewTable()

	L.SetField(mod, "get", L.NewFunction(m.get))
	L.SetField(mod, "set", L.NewFunction(m.set))
	L.SetField(mod, "undo", L.NewFunction(m.undo))
	L.SetField(mod, "redo", L.NewFunction(m.redo))
	L.SetField(mod, "can_undo", L.NewFunction(m.canUndo))
	L.SetField(mod, "can_redo", L.NewFunction(m.canRedo))
	L.SetField(mod, "record", L.NewFunction(m.record))
	L.SetField(mod, "recording", L.NewFunction(m.recording))
	L.SetField(mod, "history", L.NewFunction(m.history))
	L.SetField(mod, "clear", L.NewFunction(m.clear))

	L.SetGlobal("undo", mod)
}

// executor routes edits through the open recording, if any.
func (m *module) executor() history.Executor {
	if e := m.e.recorder.Current(); e != nil {
		return e
	}
	return m.e.controller
}

// get(key) -> value
func (m *module) get(L *lua.LState) int {
	key := L.CheckString(1)

	v, err := m.e.target.GetProperty(key)
	if err != nil {
		L.RaiseError("get %s: %v", key, err)
		return 0
	}
	L.Push(toLua(L, v))
	return 1
}

// set(key, value)
// Records the change; a nil value deletes the key where the target supports it.
func (m *module) set(L *lua.LState) int {
	key := L.CheckString(1)
	value := toGo(L.Get(2))

	if err := history.ExecuteSetProperty(m.executor(), m.e.target, key, value); err != nil {
		L.RaiseError("set %s: %v", key, err)
	}
	return 0
}

// undo() -> bool
// Returns false when there is nothing to undo.
func (m *module) undo(L *lua.LState) int {
	return m.step(L, m.e.controller.Undo, history.ErrNothingToUndo)
}

// redo() -> bool
// Returns false when there is nothing to redo.
func (m *module) redo(L *lua.LState) int {
	return m.step(L, m.e.controller.Redo, history.ErrNothingToRedo)
}

func (m *module) step(L *lua.LState, fn func() error, empty error) int {
	err := fn()
	switch {
	case errors.Is(err, empty):
		L.Push(lua.LFalse)
	case err != nil:
		L.RaiseError("%v", err)
		return 0
	default:
		L.Push(lua.LTrue)
	}
	return 1
}

// can_undo() -> bool
func (m *module) canUndo(L *lua.LState) int {
	L.Push(lua.LBool(m.e.controller.CanUndo()))
	return 1
}

// can_redo() -> bool
func (m *module) canRedo(L *lua.LState) int {
	L.Push(lua.LBool(m.e.controller.CanRedo()))
	return 1
}

// record(label, fn)
// Runs fn inside a recording session so that its edits undo as one step.
// If fn raises, its edits are reverted and the error is re-raised.
func (m *module) record(L *lua.LState) int {
	label := L.CheckString(1)
	fn := L.CheckFunction(2)

	err := m.e.recorder.Record(label, func(history.Executor) error {
		L.Push(fn)
		return L.PCall(0, 0, nil)
	})
	if err != nil {
		L.RaiseError("record %s: %v", label, err)
	}
	return 0
}

// recording() -> bool
func (m *module) recording(L *lua.LState) int {
	L.Push(lua.LBool(m.e.recorder.IsRecording()))
	return 1
}

// history() -> {label, ...}
// Lists undo entries oldest first.
func (m *module) history(L *lua.LState) int {
	infos := m.e.controller.UndoInfo()
	t := L.CreateTable(len(infos), 0)
	for _, info := range infos {
		t.Append(lua.LString(info.Label))
	}
	L.Push(t)
	return 1
}

// clear()
func (m *module) clear(L *lua.LState) int {
	m.e.controller.Clear()
	return 0
}
