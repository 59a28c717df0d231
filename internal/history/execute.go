package history

// Convenience entry points that build an operation from raw arguments and
// route it through an Executor, so they work both on a Controller and on the
// proxy of a recording session.

// ExecuteSetProperty sets target.name to value through e.
func ExecuteSetProperty(e Executor, target PropertyTarget, name string, value any, opts ...OperationOption) error {
	op, err := NewPropertyOperation(target, name, value, executorDefaults(e, opts)...)
	if err != nil {
		return err
	}
	return e.Execute(op)
}

// ExecuteAdd appends item to c through e.
func ExecuteAdd[T any](e Executor, c Collection[T], item T, opts ...OperationOption) error {
	return e.Execute(NewAddOperation(c, item, executorDefaults(e, opts)...))
}

// ExecuteInsertAt inserts item at index through e.
func ExecuteInsertAt[T any](e Executor, c Collection[T], index int, item T, opts ...OperationOption) error {
	return e.Execute(NewInsertOperation(c, index, item, executorDefaults(e, opts)...))
}

// ExecuteRemoveAt removes the item at index through e.
func ExecuteRemoveAt[T any](e Executor, c Collection[T], index int, opts ...OperationOption) error {
	return e.Execute(NewRemoveAtOperation(c, index, executorDefaults(e, opts)...))
}

// ExecuteSetProperty sets target.name to value.
func (c *Controller) ExecuteSetProperty(target PropertyTarget, name string, value any, opts ...OperationOption) error {
	return ExecuteSetProperty(c, target, name, value, opts...)
}

// executorDefaults puts the executor's span and clock ahead of the caller's
// options so the caller can still override them.
func executorDefaults(e Executor, opts []OperationOption) []OperationOption {
	out := make([]OperationOption, 0, len(opts)+2)
	out = append(out, WithMergeSpan(e.MergeSpan()), WithTimestamp(e.Now()))
	return append(out, opts...)
}
