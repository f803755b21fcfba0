package nbexpr

import (
	"context"

	"github.com/nodebrain/nodebrain/internal/cellgraph"
	"github.com/nodebrain/nodebrain/internal/object"
	"github.com/nodebrain/nodebrain/internal/values"
)

var assertionDesc = object.Register(&object.Descriptor{Name: "assertion", Kind: object.KindAssertion, Attrs: object.AttrIsAssertion})

// Assertion is a zero-operand leaf whose value is set from outside the
// graph — by a rule action's "assert" plan instruction or by
// AssertionAddTermValue — rather than computed from operands. It differs
// from ConstCell only in that its value is expected to change over the
// engine's lifetime; changes must go through Engine.Publish so
// subscribers react.
type Assertion struct {
	base cellgraph.Base
}

// NewAssertion creates an assertion cell starting at values.Unknown.
func NewAssertion(id string) *Assertion {
	return &Assertion{base: cellgraph.NewBase(id, values.Unknown)}
}

func (a *Assertion) Base() *cellgraph.Base      { return &a.base }
func (a *Assertion) Kind() object.Kind          { return assertionDesc.Kind }
func (a *Assertion) Operands() []cellgraph.Cell { return nil }
func (a *Assertion) Show() string {
	if v := a.base.Value(); v != nil {
		return v.Show()
	}
	return "?"
}
func (a *Assertion) Eval(ctx context.Context) values.Value { return a.base.Value() }
