package history

import (
	"fmt"
)

// CompositeOperation groups multiple operations as one undo unit.
// Children apply in insertion order and revert in reverse order.
type CompositeOperation struct {
	meta
	children []Operation
}

// NewCompositeOperation creates a composite from the given children.
func NewCompositeOperation(label string, children ...Operation) *CompositeOperation {
	return &CompositeOperation{
		meta:     newMeta([]OperationOption{WithLabel(label), WithoutMerge()}),
		children: children,
	}
}

// Label returns the composite's label.
func (c *CompositeOperation) Label() string {
	if c.label != "" {
		return c.label
	}
	if len(c.children) == 1 {
		return c.children[0].Label()
	}
	return fmt.Sprintf("%d operations", len(c.children))
}

// Apply runs all children in order.
// If a child fails, the children already applied are reverted.
func (c *CompositeOperation) Apply() error {
	for i, child := range c.children {
		if err := child.Apply(); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = c.children[j].Revert()
			}
			return &StepError{Label: c.Label(), Phase: PhaseApply, Step: i, Err: err}
		}
	}
	return nil
}

// Revert reverses all children in reverse order.
// If a child fails, the children already reverted are applied again.
func (c *CompositeOperation) Revert() error {
	for i := len(c.children) - 1; i >= 0; i-- {
		if err := c.children[i].Revert(); err != nil {
			for j := i + 1; j < len(c.children); j++ {
				_ = c.children[j].Apply()
			}
			return &StepError{Label: c.Label(), Phase: PhaseRevert, Step: i, Err: err}
		}
	}
	return nil
}

// CanMergeWith always returns false: a composite is its own history slot.
func (c *CompositeOperation) CanMergeWith(Operation) bool {
	return false
}

// MergeWith is never called for composites and returns the receiver.
func (c *CompositeOperation) MergeWith(Operation) Operation {
	return c
}

// Add appends a child.
func (c *CompositeOperation) Add(op Operation) {
	c.children = append(c.children, op)
}

// Len returns the number of children.
func (c *CompositeOperation) Len() int {
	return len(c.children)
}

// IsEmpty returns true if the composite has no children.
func (c *CompositeOperation) IsEmpty() bool {
	return len(c.children) == 0
}

// Children returns a copy of the child list.
func (c *CompositeOperation) Children() []Operation {
	out := make([]Operation, len(c.children))
	copy(out, c.children)
	return out
}
