package history

// Checkpoint marks a position in the undo history.
//
// Creating a checkpoint seals the entry on top of the undo stack: later
// operations never merge into it, so everything executed after the
// checkpoint stays above it and UndoToCheckpoint can peel it off.
type Checkpoint struct {
	depth int
	topID string
}

// Depth returns the undo depth the checkpoint was taken at.
func (cp Checkpoint) Depth() int { return cp.depth }

// CreateCheckpoint marks the current history position.
func (c *Controller) CreateCheckpoint() Checkpoint {
	c.mu.Lock()
	defer c.mu.Unlock()

	cp := Checkpoint{depth: len(c.undoStack)}
	if cp.depth > 0 {
		cp.topID = c.undoStack[cp.depth-1].ID()
		if c.sealed == nil {
			c.sealed = make(map[string]struct{})
		}
		c.sealed[cp.topID] = struct{}{}
	}
	return cp
}

// sealedLocked reports whether op sits under a checkpoint.
func (c *Controller) sealedLocked(op Operation) bool {
	_, ok := c.sealed[op.ID()]
	return ok
}

// UndoToCheckpoint undoes every operation executed since cp.
func (c *Controller) UndoToCheckpoint(cp Checkpoint) error {
	for c.UndoCount() > cp.depth {
		if err := c.Undo(); err != nil {
			return err
		}
	}
	return nil
}

// RedoToCheckpoint redoes operations until the history is back at cp.
// It stops early when the redo stack runs out, which happens once a new
// operation was executed after the undo.
func (c *Controller) RedoToCheckpoint(cp Checkpoint) error {
	for c.UndoCount() < cp.depth && c.CanRedo() {
		if err := c.Redo(); err != nil {
			return err
		}
	}
	return nil
}
