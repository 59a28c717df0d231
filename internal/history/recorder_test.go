package history

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordingAtomicity(t *testing.T) {
	clock := newFakeClock()
	c := newTestController(clock)
	rec := NewRecorder(c)
	obj := newFakeObject(map[string]any{"name": "Ada", "age": 36})
	list := newFakeList("x")

	proxy, err := rec.BeginRecording()
	require.NoError(t, err)
	assert.True(t, rec.IsRecording())
	assert.Equal(t, proxy, rec.Current())

	require.NoError(t, ExecuteSetProperty(proxy, obj, "name", "Grace"))
	require.NoError(t, ExecuteAdd[string](proxy, list, "y"))
	require.NoError(t, ExecuteSetProperty(proxy, obj, "age", 45))
	require.NoError(t, ExecuteRemoveAt[string](proxy, list, 0))

	// Applied immediately, but not on the controller yet.
	assert.Equal(t, "Grace", obj.values["name"])
	assert.Equal(t, []string{"y"}, list.items)
	assert.False(t, c.CanUndo())
	assert.Equal(t, 4, rec.PendingCount())

	require.NoError(t, rec.EndRecording("Edit person"))
	assert.False(t, rec.IsRecording())
	assert.Nil(t, rec.Current())

	require.Equal(t, 1, c.UndoCount())
	top, _ := c.PeekUndo()
	assert.Equal(t, "Edit person", top.Label)

	require.NoError(t, c.Undo())
	assert.Equal(t, map[string]any{"name": "Ada", "age": 36}, obj.values)
	assert.Equal(t, []string{"x"}, list.items)

	require.NoError(t, c.Redo())
	assert.Equal(t, map[string]any{"name": "Grace", "age": 45}, obj.values)
	assert.Equal(t, []string{"y"}, list.items)
}

func TestRecordingOrder(t *testing.T) {
	c := NewController()
	rec := NewRecorder(c)
	var trace []string

	proxy, err := rec.BeginRecording()
	require.NoError(t, err)
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, proxy.Execute(newTraceOp(name, &trace)))
	}
	require.NoError(t, rec.EndRecording("abc"))

	// Commit does not re-apply.
	assert.Equal(t, []string{"apply a", "apply b", "apply c"}, trace)

	trace = nil
	require.NoError(t, c.Undo())
	require.NoError(t, c.Redo())
	assert.Equal(t, []string{
		"revert c", "revert b", "revert a",
		"apply a", "apply b", "apply c",
	}, trace)
}

func TestEmptyRecordingCommitsNothing(t *testing.T) {
	c := NewController()
	rec := NewRecorder(c)

	_, err := rec.BeginRecording()
	require.NoError(t, err)
	require.NoError(t, rec.EndRecording("nothing"))

	assert.False(t, c.CanUndo())
}

func TestSingleOperationRecording(t *testing.T) {
	c := NewController()
	rec := NewRecorder(c)
	obj := newFakeObject(map[string]any{"p": 1})

	proxy, err := rec.BeginRecording()
	require.NoError(t, err)
	require.NoError(t, ExecuteSetProperty(proxy, obj, "p", 2))
	require.NoError(t, rec.EndRecording("one"))

	require.Equal(t, 1, c.UndoCount())
	require.NoError(t, c.Undo())
	assert.Equal(t, 1, obj.values["p"])
}

func TestRecordingDoesNotMergeWithTop(t *testing.T) {
	clock := newFakeClock()
	c := newTestController(clock)
	rec := NewRecorder(c)
	obj := newFakeObject(map[string]any{"p": 0})

	require.NoError(t, c.ExecuteSetProperty(obj, "p", 1))

	proxy, err := rec.BeginRecording()
	require.NoError(t, err)
	require.NoError(t, ExecuteSetProperty(proxy, obj, "p", 2))
	require.NoError(t, rec.EndRecording("same slot"))

	assert.Equal(t, 2, c.UndoCount())

	// Nor does the next execute merge into the recorded entry's slot.
	require.NoError(t, c.ExecuteSetProperty(obj, "p", 3))
	require.NoError(t, c.Undo())
	assert.Equal(t, 2, obj.values["p"])
}

func TestRecordingClearsRedoOnce(t *testing.T) {
	clock := newFakeClock()
	c := newTestController(clock)
	rec := NewRecorder(c)
	obj := newFakeObject(map[string]any{"p": 0, "q": 0})

	require.NoError(t, c.ExecuteSetProperty(obj, "p", 1))
	require.NoError(t, c.Undo())
	require.True(t, c.CanRedo())

	proxy, err := rec.BeginRecording()
	require.NoError(t, err)
	require.NoError(t, ExecuteSetProperty(proxy, obj, "q", 1))
	require.NoError(t, ExecuteSetProperty(proxy, obj, "q", 2))

	// Redo survives while the session is open.
	assert.True(t, c.CanRedo())

	require.NoError(t, rec.EndRecording("q"))
	assert.False(t, c.CanRedo())
}

func TestBeginRecordingTwice(t *testing.T) {
	rec := NewRecorder(NewController())

	_, err := rec.BeginRecording()
	require.NoError(t, err)
	_, err = rec.BeginRecording()
	assert.ErrorIs(t, err, ErrAlreadyRecording)
}

func TestEndWithoutBegin(t *testing.T) {
	rec := NewRecorder(NewController())

	assert.ErrorIs(t, rec.EndRecording("x"), ErrNotRecording)
	assert.ErrorIs(t, rec.CancelRecording(), ErrNotRecording)
	assert.Equal(t, 0, rec.PendingCount())
}

func TestStaleProxy(t *testing.T) {
	c := NewController()
	rec := NewRecorder(c)
	obj := newFakeObject(map[string]any{"p": 0})

	proxy, err := rec.BeginRecording()
	require.NoError(t, err)
	require.NoError(t, rec.EndRecording("done"))

	err = ExecuteSetProperty(proxy, obj, "p", 1)
	assert.ErrorIs(t, err, ErrNotRecording)
	assert.Equal(t, 0, obj.values["p"])
	assert.ErrorIs(t, proxy.Execute(nil), ErrNilOperation)
}

func TestProxyApplyFailure(t *testing.T) {
	c := NewController()
	rec := NewRecorder(c)
	obj := newFakeObject(map[string]any{"p": 0})
	obj.reject["p"] = errRejected

	proxy, err := rec.BeginRecording()
	require.NoError(t, err)
	require.ErrorIs(t, ExecuteSetProperty(proxy, obj, "p", 1), errRejected)
	assert.Equal(t, 0, rec.PendingCount())
}

func TestProxyUsesControllerSpanAndClock(t *testing.T) {
	clock := newFakeClock()
	c := newTestController(clock, WithDefaultSpan(3*time.Second))
	rec := NewRecorder(c)

	proxy, err := rec.BeginRecording()
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, proxy.MergeSpan())
	assert.Equal(t, clock.Now(), proxy.Now())
}

func TestCancelRecording(t *testing.T) {
	c := NewController()
	rec := NewRecorder(c)
	obj := newFakeObject(map[string]any{"a": 1, "b": 1})

	proxy, err := rec.BeginRecording()
	require.NoError(t, err)
	require.NoError(t, ExecuteSetProperty(proxy, obj, "a", 2))
	require.NoError(t, ExecuteSetProperty(proxy, obj, "b", 2))

	require.NoError(t, rec.CancelRecording())
	assert.Equal(t, map[string]any{"a": 1, "b": 1}, obj.values)
	assert.False(t, c.CanUndo())
	assert.False(t, rec.IsRecording())
}

func TestRecord(t *testing.T) {
	c := NewController()
	rec := NewRecorder(c)
	obj := newFakeObject(map[string]any{"a": 1, "b": 1})

	err := rec.Record("both", func(e Executor) error {
		if err := ExecuteSetProperty(e, obj, "a", 2); err != nil {
			return err
		}
		return ExecuteSetProperty(e, obj, "b", 2)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, c.UndoCount())

	boom := errors.New("boom")
	err = rec.Record("fails", func(e Executor) error {
		if err := ExecuteSetProperty(e, obj, "a", 3); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 2, obj.values["a"])
	assert.Equal(t, 1, c.UndoCount())
	assert.False(t, rec.IsRecording())
}

func TestRecordWhileRecording(t *testing.T) {
	rec := NewRecorder(NewController())
	_, err := rec.BeginRecording()
	require.NoError(t, err)

	called := false
	err = rec.Record("nested", func(Executor) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrAlreadyRecording)
	assert.False(t, called)
}

func TestOneRecordingPerController(t *testing.T) {
	c := NewController()
	first, second := NewRecorder(c), NewRecorder(c)

	_, err := first.BeginRecording()
	require.NoError(t, err)
	_, err = second.BeginRecording()
	assert.ErrorIs(t, err, ErrAlreadyRecording)

	require.NoError(t, first.EndRecording("done"))
	_, err = second.BeginRecording()
	assert.NoError(t, err)
}
