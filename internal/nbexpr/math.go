// Package nbexpr implements NodeBrain's expression cells: math,
// relational, boolean, conditional, list, call, and assertion cells
// (spec.md §4.5), each a cellgraph.Cell whose Eval recomputes from its
// operands under closed-world Unknown-propagation semantics.
package nbexpr

import (
	"context"

	"github.com/nodebrain/nodebrain/internal/cellgraph"
	"github.com/nodebrain/nodebrain/internal/object"
	"github.com/nodebrain/nodebrain/internal/values"
)

// Op is a math operator symbol.
type Op byte

const (
	OpAdd Op = '+'
	OpSub Op = '-'
	OpMul Op = '*'
	OpDiv Op = '/'
	OpMod Op = '%'
)

var mathDesc = object.Register(&object.Descriptor{Name: "math", Kind: object.KindMath, Attrs: object.AttrIsMath})

// Math is a binary arithmetic cell. Unknown propagates: if either operand
// is Unknown (or any non-Real special), the result is Unknown rather than
// a runtime error, matching the closed-world semantics of spec.md §4.4.
type Math struct {
	base     cellgraph.Base
	op       Op
	lhs, rhs cellgraph.Cell
	in       *values.Interner
}

// NewMath builds a Math cell computing lhs `op` rhs.
func NewMath(id string, op Op, lhs, rhs cellgraph.Cell, in *values.Interner) *Math {
	m := &Math{op: op, lhs: lhs, rhs: rhs, in: in}
	m.base.ID = id
	return m
}

func (m *Math) Base() *cellgraph.Base  { return &m.base }
func (m *Math) Kind() object.Kind      { return mathDesc.Kind }
func (m *Math) Operands() []cellgraph.Cell { return []cellgraph.Cell{m.lhs, m.rhs} }

func (m *Math) Show() string {
	return "(" + m.lhs.Show() + " " + string(m.op) + " " + m.rhs.Show() + ")"
}

func (m *Math) Eval(ctx context.Context) values.Value {
	l, lok := m.lhs.Base().Value().(*values.Real)
	r, rok := m.rhs.Base().Value().(*values.Real)
	if !lok || !rok {
		return values.Unknown
	}
	switch m.op {
	case OpAdd:
		return m.in.Real(l.Num + r.Num)
	case OpSub:
		return m.in.Real(l.Num - r.Num)
	case OpMul:
		return m.in.Real(l.Num * r.Num)
	case OpDiv:
		if r.Num == 0 {
			return values.Unknown
		}
		return m.in.Real(l.Num / r.Num)
	case OpMod:
		if r.Num == 0 {
			return values.Unknown
		}
		return m.in.Real(modFloat(l.Num, r.Num))
	default:
		return values.Unknown
	}
}

func modFloat(a, b float64) float64 {
	m := a - b*float64(int64(a/b))
	return m
}
