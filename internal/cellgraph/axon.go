package cellgraph

import (
	"context"

	"github.com/nodebrain/nodebrain/internal/object"
	"github.com/nodebrain/nodebrain/internal/values"
)

// Axon is the optimization cell of spec.md §4.7: when many relational
// cells compare the same left-hand operand against distinct constants
// ("x == 1", "x == 2", ... "x == N"), subscribing all N directly to x
// turns every change of x into an O(N) fan-out, almost all of it wasted
// since at most one comparison can be true. An Axon sits between x and
// those N cells, keyed by the constant each one is watching, and routes a
// change straight to the (at most two) subscribers whose comparison can
// change — the one watching the old value and the one watching the new
// value — in O(1).
type Axon struct {
	base     Base
	operand  Cell
	watchers map[values.Value]Cell
}

// NewAxon builds an axon over operand.
func NewAxon(id string, operand Cell) *Axon {
	return &Axon{
		base:     Base{ID: id},
		operand:  operand,
		watchers: map[values.Value]Cell{},
	}
}

func (a *Axon) Base() *Base      { return &a.base }
func (a *Axon) Kind() object.Kind { return object.KindRelational }
func (a *Axon) Operands() []Cell { return []Cell{a.operand} }

func (a *Axon) Eval(ctx context.Context) values.Value {
	return a.operand.Base().Value()
}

func (a *Axon) Show() string { return "axon:" + a.base.ID }

// Watch registers subscriber as interested in the axon's operand taking on
// exactly the value want. Only one subscriber may watch a given value at
// a time; a later Watch for the same value replaces the earlier one.
func (a *Axon) Watch(want values.Value, subscriber Cell) {
	a.watchers[want] = subscriber
}

// Unwatch removes a prior Watch registration for want.
func (a *Axon) Unwatch(want values.Value) {
	delete(a.watchers, want)
}

// route pushes the subscribers watching the axon's previous and new
// values onto q. Both must re-evaluate: the watcher of the new value
// needs to see its comparison become true, and the watcher of the old
// value (if different) needs to see its comparison fall back to false —
// without this, a relational cell that matched once would never be
// re-notified when the operand moves away from it (spec.md §4.7,
// testable property 4).
func (a *Axon) route(q *waveQueue, old, next values.Value) {
	if c, ok := a.watchers[old]; ok {
		q.push(c)
	}
	if next == old {
		return
	}
	if c, ok := a.watchers[next]; ok {
		q.push(c)
	}
}
