// Package cellgraph is NodeBrain's reactive core: the Cell interface,
// hash-consed operand subscription, level-ordered wave propagation, and
// axon cells, per spec.md §4.7. Every reactive value in the engine — an
// expression, a term, a time condition, a node — is a Cell; Engine is the
// single piece of code that knows how to enable, disable, and propagate
// through the resulting DAG, so concrete cell kinds only need to say what
// they depend on (Operands) and how to recompute (Eval).
package cellgraph

import (
	"context"

	"github.com/nodebrain/nodebrain/internal/object"
	"github.com/nodebrain/nodebrain/internal/values"
)

// Level is a cell's position in the DAG's topological order: zero for
// leaves, one more than the highest of its operands' levels otherwise.
// Engine uses it to drain a propagation wave in dependency order so a
// cell never evaluates before an operand that changed in the same wave.
type Level uint32

// Cell is implemented by every reactive node in the subscription graph.
type Cell interface {
	// Base returns the embedded bookkeeping struct Engine operates on.
	Base() *Base
	// Kind reports the cell's built-in type tag.
	Kind() object.Kind
	// Operands lists the cells (or ConstCell leaves) this cell's Eval
	// reads. Engine subscribes to each of them on Enable and
	// unsubscribes on Disable; the list must be stable for the cell's
	// lifetime.
	Operands() []Cell
	// Eval recomputes the cell's value from its operands' current
	// values. It must be a pure function of those values plus the
	// cell's own fixed configuration (e.g. an operator or a constant).
	Eval(ctx context.Context) values.Value
	// Show renders the cell for the show/list command surface.
	Show() string
}

// Base is embedded by every concrete Cell implementation. It holds the
// fields Engine reads and mutates directly; concrete cells never touch
// these except through the accessor methods below.
type Base struct {
	ID          string
	level       Level
	value       values.Value
	subs        []Cell
	enableCount int
}

// NewBase returns a Base for a leaf cell (one with no operands) that
// starts out holding initial rather than nil, letting concrete leaf types
// defined outside this package (internal/nbexpr's Assertion, for example)
// seed a starting value without reaching into an unexported field.
func NewBase(id string, initial values.Value) Base {
	return Base{ID: id, value: initial}
}

// Level returns the cell's current topological level.
func (b *Base) Level() Level { return b.level }

// Value returns the cell's last-computed value, or nil before the first
// Enable.
func (b *Base) Value() values.Value { return b.value }

// Enabled reports whether the cell has at least one active subscriber (or
// was force-enabled, e.g. as a rule's triggering condition).
func (b *Base) Enabled() bool { return b.enableCount > 0 }

// Subscribers returns the cells currently subscribed to this one. The
// returned slice is owned by Base; callers must not mutate it.
func (b *Base) Subscribers() []Cell { return b.subs }

// ConstCell wraps a fixed values.Value as a zero-operand leaf, so every
// operand in the graph — whether a literal or a reactive subexpression —
// satisfies the same Cell interface. It corresponds to the "simple
// object" case of spec.md §4.3, where a cell's value pointer is itself.
type ConstCell struct {
	base Base
	kind object.Kind
}

// NewConst builds a leaf cell around v. It starts out enabled, since it
// has nothing to subscribe to; its value changes only when Engine.Publish
// sets it from outside the graph.
func NewConst(id string, v values.Value, kind object.Kind) *ConstCell {
	c := &ConstCell{kind: kind}
	c.base.ID = id
	c.base.value = v
	c.base.enableCount = 1
	return c
}

func (c *ConstCell) Base() *Base                          { return &c.base }
func (c *ConstCell) Kind() object.Kind                     { return c.kind }
func (c *ConstCell) Operands() []Cell                      { return nil }
func (c *ConstCell) Eval(ctx context.Context) values.Value { return c.base.value }
func (c *ConstCell) Show() string {
	if c.base.value == nil {
		return "?"
	}
	return c.base.value.Show()
}
