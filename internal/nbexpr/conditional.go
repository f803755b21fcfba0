package nbexpr

import (
	"context"
	"fmt"

	"github.com/nodebrain/nodebrain/internal/cellgraph"
	"github.com/nodebrain/nodebrain/internal/object"
	"github.com/nodebrain/nodebrain/internal/values"
)

var conditionalDesc = object.Register(&object.Descriptor{Name: "conditional", Kind: object.KindConditional})

// Conditional is a three-way if/then/else/unknown selector cell: its
// value follows whichever of ifTrue, ifFalse, ifUnknown the condition
// currently selects (spec.md §3/§4.5). Any of the three branches may be
// nil, in which case the cell's value is values.Unknown for that branch
// rather than a missing operand.
type Conditional struct {
	base                      cellgraph.Base
	cond                      cellgraph.Cell
	ifTrue, ifFalse, ifUnknown cellgraph.Cell
}

// NewConditional builds a conditional cell. ifFalse and ifUnknown may be
// nil.
func NewConditional(id string, cond, ifTrue, ifFalse, ifUnknown cellgraph.Cell) *Conditional {
	c := &Conditional{cond: cond, ifTrue: ifTrue, ifFalse: ifFalse, ifUnknown: ifUnknown}
	c.base.ID = id
	return c
}

func (c *Conditional) Base() *cellgraph.Base { return &c.base }
func (c *Conditional) Kind() object.Kind     { return conditionalDesc.Kind }

func (c *Conditional) Operands() []cellgraph.Cell {
	ops := []cellgraph.Cell{c.cond}
	for _, b := range []cellgraph.Cell{c.ifTrue, c.ifFalse, c.ifUnknown} {
		if b != nil {
			ops = append(ops, b)
		}
	}
	return ops
}

// Show renders the shortest syntactic form consistent with which
// branches differ (spec.md §4.5): "(c true X)" when only the true
// branch is given, "(c known X)" when the true and false branches
// coincide, "(c true X else Y)" when they differ, and "(c unknown Z)"
// when only the unknown branch is given. The full three-branch form is
// "(c true X else false Y else Z)".
func (c *Conditional) Show() string {
	cond := c.cond.Show()
	switch {
	case c.ifTrue != nil && c.ifFalse == nil && c.ifUnknown == nil:
		return fmt.Sprintf("(%s true %s)", cond, c.ifTrue.Show())
	case c.ifUnknown != nil && c.ifTrue == nil && c.ifFalse == nil:
		return fmt.Sprintf("(%s unknown %s)", cond, c.ifUnknown.Show())
	case c.ifTrue != nil && c.ifFalse != nil && c.ifUnknown == nil:
		if sameBranch(c.ifTrue, c.ifFalse) {
			return fmt.Sprintf("(%s known %s)", cond, c.ifTrue.Show())
		}
		return fmt.Sprintf("(%s true %s else %s)", cond, c.ifTrue.Show(), c.ifFalse.Show())
	case c.ifTrue != nil && c.ifFalse == nil && c.ifUnknown != nil:
		return fmt.Sprintf("(%s true %s else %s)", cond, c.ifTrue.Show(), c.ifUnknown.Show())
	case c.ifTrue == nil && c.ifFalse != nil && c.ifUnknown != nil:
		return fmt.Sprintf("(%s false %s else %s)", cond, c.ifFalse.Show(), c.ifUnknown.Show())
	default:
		s := "(" + cond
		if c.ifTrue != nil && c.ifFalse != nil && sameBranch(c.ifTrue, c.ifFalse) {
			s += " known " + c.ifTrue.Show()
		} else {
			if c.ifTrue != nil {
				s += " true " + c.ifTrue.Show()
			}
			if c.ifFalse != nil {
				s += " else false " + c.ifFalse.Show()
			}
		}
		if c.ifUnknown != nil {
			s += " else " + c.ifUnknown.Show()
		}
		return s + ")"
	}
}

func sameBranch(a, b cellgraph.Cell) bool { return a == b }

func (c *Conditional) Eval(ctx context.Context) values.Value {
	switch c.cond.Base().Value() {
	case values.True:
		if c.ifTrue != nil {
			return c.ifTrue.Base().Value()
		}
		return values.Unknown
	case values.False:
		if c.ifFalse != nil {
			return c.ifFalse.Base().Value()
		}
		return values.Unknown
	default:
		if c.ifUnknown != nil {
			return c.ifUnknown.Base().Value()
		}
		return values.Unknown
	}
}
