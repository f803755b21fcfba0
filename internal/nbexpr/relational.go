package nbexpr

import (
	"context"
	"regexp"

	"github.com/nodebrain/nodebrain/internal/cellgraph"
	"github.com/nodebrain/nodebrain/internal/object"
	"github.com/nodebrain/nodebrain/internal/values"
)

// RelOp is a relational operator symbol.
type RelOp byte

const (
	RelEQ      RelOp = '='
	RelNE      RelOp = '#'
	RelLT      RelOp = '<'
	RelLE      RelOp = 'l'
	RelGT      RelOp = '>'
	RelGE      RelOp = 'g'
	RelMatches RelOp = '~'
)

var relationalDesc = object.Register(&object.Descriptor{Name: "relational", Kind: object.KindRelational, Attrs: object.AttrIsRelational})
var regexpRelationalDesc = object.Register(&object.Descriptor{Name: "relational-regexp", Kind: object.KindRelational, Attrs: object.AttrIsRelational | object.AttrIsRegexpRelation})

// Relational compares two operands, producing True, False, or Unknown.
// Only equality and inequality are defined across strings and reals
// alike; ordering comparisons and RelMatches require both operands to
// resolve to the expected concrete type or the result is Unknown.
type Relational struct {
	base     cellgraph.Base
	op       RelOp
	lhs, rhs cellgraph.Cell
	re       *regexp.Regexp // compiled once, only set for RelMatches
}

// NewRelational builds a comparison cell. For RelMatches, rhs must be a
// ConstCell wrapping a *values.String holding a valid regular expression;
// pattern is compiled eagerly so a malformed pattern fails at build time
// rather than on first evaluation.
func NewRelational(id string, op RelOp, lhs, rhs cellgraph.Cell) (*Relational, error) {
	r := &Relational{op: op, lhs: lhs, rhs: rhs}
	r.base.ID = id
	if op == RelMatches {
		s, ok := rhs.Base().Value().(*values.String)
		if !ok {
			return nil, &regexpOperandError{}
		}
		compiled, err := regexp.Compile(s.Text)
		if err != nil {
			return nil, err
		}
		r.re = compiled
	}
	return r, nil
}

type regexpOperandError struct{}

func (e *regexpOperandError) Error() string { return "relational: ~ operand must be a string literal" }

func (r *Relational) Base() *cellgraph.Base { return &r.base }

func (r *Relational) Kind() object.Kind {
	if r.op == RelMatches {
		return regexpRelationalDesc.Kind
	}
	return relationalDesc.Kind
}

func (r *Relational) Operands() []cellgraph.Cell { return []cellgraph.Cell{r.lhs, r.rhs} }

// AxonOperand and AxonValue implement cellgraph.AxonKeyed: an equality
// comparison against a constant ("x = k") depends on its left operand
// entirely through "does it currently equal k", the shape many
// "on(x=k)"-style rules share and that cellgraph.Engine fans out
// through one Axon instead of subscribing each comparison to x
// directly (spec.md §4.7/§8 S3). Any other relational cell (a
// different operator, or an equality against something other than a
// constant) isn't axon-eligible and reports no operand.
func (r *Relational) AxonOperand() cellgraph.Cell {
	if r.op != RelEQ {
		return nil
	}
	if _, ok := r.rhs.(*cellgraph.ConstCell); !ok {
		return nil
	}
	return r.lhs
}

func (r *Relational) AxonValue() values.Value { return r.rhs.Base().Value() }

func (r *Relational) Show() string {
	return "(" + r.lhs.Show() + " " + string(r.op) + " " + r.rhs.Show() + ")"
}

func (r *Relational) Eval(ctx context.Context) values.Value {
	lv, rv := r.lhs.Base().Value(), r.rhs.Base().Value()
	if values.IsUnknown(lv) || values.IsUnknown(rv) {
		return values.Unknown
	}

	switch r.op {
	case RelMatches:
		s, ok := lv.(*values.String)
		if !ok || r.re == nil {
			return values.Unknown
		}
		if r.re.MatchString(s.Text) {
			return values.True
		}
		return values.False
	case RelEQ:
		return boolValue(equalValues(lv, rv))
	case RelNE:
		return boolValue(!equalValues(lv, rv))
	default:
		return r.evalOrdered(lv, rv)
	}
}

func (r *Relational) evalOrdered(lv, rv values.Value) values.Value {
	l, lok := lv.(*values.Real)
	rr, rok := rv.(*values.Real)
	if !lok || !rok {
		return values.Unknown
	}
	var result bool
	switch r.op {
	case RelLT:
		result = l.Num < rr.Num
	case RelLE:
		result = l.Num <= rr.Num
	case RelGT:
		result = l.Num > rr.Num
	case RelGE:
		result = l.Num >= rr.Num
	default:
		return values.Unknown
	}
	return boolValue(result)
}

func equalValues(a, b values.Value) bool {
	if a == b {
		return true
	}
	as, aok := a.(*values.String)
	bs, bok := b.(*values.String)
	if aok && bok {
		return as.Text == bs.Text
	}
	ar, arok := a.(*values.Real)
	br, brok := b.(*values.Real)
	if arok && brok {
		return ar.Num == br.Num
	}
	return false
}

func boolValue(b bool) values.Value {
	if b {
		return values.True
	}
	return values.False
}
