// Package history provides an in-process undo/redo engine for arbitrary
// mutable objects.
//
// Mutations are captured as Operations that know how to apply and revert
// themselves. Key concepts:
//
// # Operations
//
// An Operation is a reversible unit of mutation:
//   - PropertyOperation: set a named property, remembering the old value
//   - CollectionOperation: insert into or remove from an ordered collection
//   - CompositeOperation: an ordered bundle that undoes as one step
//
// Every operation carries a creation timestamp and a merge span. Two
// compatible operations created within the span collapse into one undo step:
//
//	c := NewController(WithDefaultSpan(300 * time.Millisecond))
//	c.ExecuteSetProperty(obj, "age", 30)
//	c.ExecuteSetProperty(obj, "age", 100) // merged: one undo restores the first old value
//
// # Controller
//
// The Controller owns the undo and redo stacks:
//
//	c.Undo()
//	c.Redo()
//
// Executing a new operation always clears the redo stack.
//
// # Recording
//
// A Recorder groups several operations into one undo step:
//
//	rec := NewRecorder(c)
//	proxy, _ := rec.BeginRecording()
//	ExecuteSetProperty(proxy, obj, "name", "Ada")
//	ExecuteAdd(proxy, list, "item")
//	rec.EndRecording("Rename and add")
//
// # Watching
//
// BindPropertyChanged turns change notifications of an observable target
// into operations, so plain property writes become undoable:
//
//	w, err := c.BindPropertyChanged(obj, "age", true)
//	if err != nil {
//		return err
//	}
//	defer w.Dispose()
//
// The engine is synchronous. Callers that mutate from several goroutines must
// serialize access themselves.
package history
