package nbexpr

import (
	"context"

	"github.com/nodebrain/nodebrain/internal/cellgraph"
	"github.com/nodebrain/nodebrain/internal/object"
	"github.com/nodebrain/nodebrain/internal/values"
)

// BoolOp is a boolean connective.
type BoolOp byte

const (
	BoolAnd BoolOp = '&'
	BoolOr  BoolOp = '|'
	BoolNot BoolOp = '!'
)

var booleanDesc = object.Register(&object.Descriptor{Name: "boolean", Kind: object.KindBoolean, Attrs: object.AttrIsBoolean})

// Boolean implements the closed-world and/or/not connectives of spec.md
// §4.4: False is dominant for AND, True is dominant for OR, and Unknown
// only surfaces when no dominant operand settles the result. Not reads
// only its first operand and ignores any others.
type Boolean struct {
	base     cellgraph.Base
	op       BoolOp
	operands []cellgraph.Cell
}

// NewBoolean builds an n-ary and/or cell, or (when op is BoolNot) a
// single-operand negation.
func NewBoolean(id string, op BoolOp, operands ...cellgraph.Cell) *Boolean {
	b := &Boolean{op: op, operands: operands}
	b.base.ID = id
	return b
}

func (b *Boolean) Base() *cellgraph.Base      { return &b.base }
func (b *Boolean) Kind() object.Kind          { return booleanDesc.Kind }
func (b *Boolean) Operands() []cellgraph.Cell { return b.operands }

func (b *Boolean) Show() string {
	if b.op == BoolNot {
		return "!" + b.operands[0].Show()
	}
	s := "("
	for i, op := range b.operands {
		if i > 0 {
			s += " " + string(b.op) + " "
		}
		s += op.Show()
	}
	return s + ")"
}

func (b *Boolean) Eval(ctx context.Context) values.Value {
	switch b.op {
	case BoolNot:
		v := b.operands[0].Base().Value()
		switch {
		case v == values.False:
			return values.True
		case v == values.True:
			return values.False
		default:
			return values.Unknown
		}
	case BoolAnd:
		sawUnknown := false
		for _, op := range b.operands {
			v := op.Base().Value()
			if v == values.False {
				return values.False
			}
			if !values.IsTrue(v) {
				sawUnknown = true
			}
		}
		if sawUnknown {
			return values.Unknown
		}
		return values.True
	case BoolOr:
		sawUnknown := false
		for _, op := range b.operands {
			v := op.Base().Value()
			if values.IsTrue(v) {
				return values.True
			}
			if v != values.False {
				sawUnknown = true
			}
		}
		if sawUnknown {
			return values.Unknown
		}
		return values.False
	default:
		return values.Unknown
	}
}
