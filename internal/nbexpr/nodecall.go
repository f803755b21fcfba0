package nbexpr

import (
	"context"

	"github.com/nodebrain/nodebrain/internal/cellgraph"
	"github.com/nodebrain/nodebrain/internal/object"
	"github.com/nodebrain/nodebrain/internal/values"
)

var nodeCallDesc = object.Register(&object.Descriptor{Name: "node-call", Kind: object.KindNodeCall})

// NodeEvaluator is the thin seam NodeCall dispatches through. A node
// skill registry (internal/skill) implements it; nbexpr only needs to
// know "call this named node with these argument values", not anything
// about how facets or method tables work.
type NodeEvaluator interface {
	EvaluateNode(ctx context.Context, node string, args []values.Value) (values.Value, error)
}

// NodeCall is an expression cell whose value comes from invoking a node
// skill's evaluate facet (spec.md §4.5's node-call cells, §4.10's facet
// dispatch). Unknown propagates from its arguments the same as Call.
type NodeCall struct {
	base     cellgraph.Base
	node     string
	operands []cellgraph.Cell
	eval     NodeEvaluator
}

// NewNodeCall builds a node-call cell dispatching to node via eval.
func NewNodeCall(id, node string, eval NodeEvaluator, operands ...cellgraph.Cell) *NodeCall {
	c := &NodeCall{node: node, operands: operands, eval: eval}
	c.base.ID = id
	return c
}

func (c *NodeCall) Base() *cellgraph.Base      { return &c.base }
func (c *NodeCall) Kind() object.Kind          { return nodeCallDesc.Kind }
func (c *NodeCall) Operands() []cellgraph.Cell { return c.operands }
func (c *NodeCall) Show() string               { return c.node + "(...)" }

func (c *NodeCall) Eval(ctx context.Context) values.Value {
	args := make([]values.Value, len(c.operands))
	for i, op := range c.operands {
		v := op.Base().Value()
		if values.IsUnknown(v) {
			return values.Unknown
		}
		args[i] = v
	}
	v, err := c.eval.EvaluateNode(ctx, c.node, args)
	if err != nil {
		return values.Unknown
	}
	return v
}
