package script

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/undokit/internal/history"
	"github.com/dshills/undokit/internal/jsondoc"
	"github.com/dshills/undokit/internal/observable"
)

func newTestEngine(t *testing.T, target history.PropertyTarget, opts ...Option) (*Engine, *history.Controller) {
	t.Helper()
	c := history.NewController(history.WithDefaultSpan(time.Hour))
	e := New(c, target, opts...)
	t.Cleanup(func() { e.Close() })
	return e, c
}

func TestSetGetUndoRedo(t *testing.T) {
	obj := observable.New(map[string]any{"name": "Ada"})
	e, c := newTestEngine(t, obj)

	require.NoError(t, e.Run(`
		undo.set("name", "Grace")
		assert(undo.get("name") == "Grace")
		assert(undo.can_undo())
		assert(undo.undo() == true)
		assert(undo.get("name") == "Ada")
		assert(undo.undo() == false)
		assert(undo.redo() == true)
		assert(undo.redo() == false)
	`))

	v, _ := obj.GetProperty("name")
	assert.Equal(t, "Grace", v)
	assert.Equal(t, 1, c.UndoCount())
}

func TestNumbersAndTables(t *testing.T) {
	doc := jsondoc.New()
	e, _ := newTestEngine(t, doc)

	require.NoError(t, e.Run(`
		undo.set("count", 3)
		undo.set("ratio", 0.5)
		undo.set("tags", {"a", "b"})
		undo.set("meta", {owner = "ada"})
		local tags = undo.get("tags")
		assert(#tags == 2 and tags[2] == "b")
		assert(undo.get("meta").owner == "ada")
		assert(undo.get("count") + 1 == 4)
	`))

	assert.JSONEq(t, `{"count":3,"ratio":0.5,"tags":["a","b"],"meta":{"owner":"ada"}}`, doc.String())
}

func TestRecordGroupsEdits(t *testing.T) {
	obj := observable.New(map[string]any{"first": "Ada", "last": "Lovelace"})
	e, c := newTestEngine(t, obj)

	require.NoError(t, e.Run(`
		undo.record("Rename", function()
			assert(undo.recording())
			undo.set("first", "Grace")
			undo.set("last", "Hopper")
		end)
		assert(not undo.recording())
	`))

	require.Equal(t, 1, c.UndoCount())
	top, _ := c.PeekUndo()
	assert.Equal(t, "Rename", top.Label)

	require.NoError(t, e.Run(`undo.undo()`))
	assert.Equal(t, map[string]any{"first": "Ada", "last": "Lovelace"}, obj.Snapshot())
}

func TestRecordErrorCancels(t *testing.T) {
	obj := observable.New(map[string]any{"a": "x"})
	e, c := newTestEngine(t, obj)

	require.NoError(t, e.Run(`
		local ok, err = pcall(undo.record, "bad", function()
			undo.set("a", "y")
			error("boom")
		end)
		assert(not ok)
		assert(string.find(err, "boom"))
	`))

	v, _ := obj.GetProperty("a")
	assert.Equal(t, "x", v)
	assert.False(t, c.CanUndo())
	assert.False(t, e.Recorder().IsRecording())
}

func TestNestedRecordFails(t *testing.T) {
	e, _ := newTestEngine(t, jsondoc.New())

	err := e.Run(`
		undo.record("outer", function()
			undo.record("inner", function() end)
		end)
	`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), history.ErrAlreadyRecording.Error())
}

func TestSetErrorRaises(t *testing.T) {
	obj := observable.New(map[string]any{"a": 1}, observable.WithStrictKeys())
	e, c := newTestEngine(t, obj)

	err := e.Run(`undo.set("b", 2)`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown property")
	assert.False(t, c.CanUndo())
}

func TestHistoryAndClear(t *testing.T) {
	e, c := newTestEngine(t, jsondoc.New())
	var out bytes.Buffer
	e.out = &out

	require.NoError(t, e.Run(`
		undo.set("a", 1)
		undo.record("Both", function()
			undo.set("b", 1)
			undo.set("c", 1)
		end)
		for _, label in ipairs(undo.history()) do print(label) end
		undo.clear()
		print(undo.can_undo(), #undo.history())
	`))

	assert.Equal(t, "Set a\nBoth\nfalse\t0\n", out.String())
	assert.False(t, c.CanUndo())
}

func TestSandbox(t *testing.T) {
	e, _ := newTestEngine(t, jsondoc.New())

	require.NoError(t, e.Run(`
		assert(io == nil)
		assert(os == nil)
		assert(require == nil)
		assert(dofile == nil)
		assert(loadfile == nil)
		assert(string.upper("x") == "X")
		assert(math.max(1, 2) == 2)
	`))
}

func TestTimeout(t *testing.T) {
	e, _ := newTestEngine(t, jsondoc.New(), WithTimeout(50*time.Millisecond))

	err := e.Run(`while true do end`)
	require.Error(t, err)
}

func TestRunFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edit.lua")
	require.NoError(t, os.WriteFile(path, []byte(`undo.set("title", "hello")`), 0o644))

	doc := jsondoc.New()
	e, _ := newTestEngine(t, doc)

	require.NoError(t, e.RunFile(path))
	assert.JSONEq(t, `{"title":"hello"}`, doc.String())

	assert.Error(t, e.RunFile(filepath.Join(t.TempDir(), "missing.lua")))
}

func TestClose(t *testing.T) {
	obj := observable.New(map[string]any{"a": 1})
	c := history.NewController()
	rec := history.NewRecorder(c)
	e := New(c, obj, WithRecorder(rec))
	assert.Same(t, rec, e.Recorder())

	proxy, err := rec.BeginRecording()
	require.NoError(t, err)
	require.NoError(t, history.ExecuteSetProperty(proxy, obj, "a", 2))

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
	assert.False(t, rec.IsRecording())
	v, _ := obj.GetProperty("a")
	assert.Equal(t, 1, v)

	assert.ErrorIs(t, e.Run(`undo.set("a", 3)`), ErrClosed)
}
