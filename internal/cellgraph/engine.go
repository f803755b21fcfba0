package cellgraph

import (
	"context"

	"github.com/nodebrain/nodebrain/internal/diag"
	"github.com/nodebrain/nodebrain/internal/object"
	"github.com/nodebrain/nodebrain/internal/values"
)

// tracedEval runs c.Eval under object.WithSpan's per-kind timing shim.
func tracedEval(ctx context.Context, c Cell) values.Value {
	var v values.Value
	object.WithSpan(ctx, c.Kind(), "eval", func(ctx context.Context) error {
		v = c.Eval(ctx)
		return nil
	})
	return v
}

// Engine owns the subscription graph: enabling and disabling cells,
// wave-ordered propagation after a publish, and the bookkeeping that
// keeps a propagation wave idempotent even across diamond-shaped
// dependencies. Engine is not safe for concurrent use — the reactive core
// is single-threaded by design (spec.md §5); a caller driving it from
// more than one goroutine is a programming error the reporter surfaces as
// a logic error rather than racing silently.
type Engine struct {
	reporter *diag.Reporter
	busy     bool

	// axons and axonFanout back the Axon fan-out optimization of
	// spec.md §4.7: axons holds the live Axon for each operand cell
	// that has crossed axonFanoutThreshold distinct equality watchers;
	// axonFanout counts watchers for operands that haven't crossed it
	// yet, so they keep subscribing directly until they do.
	axons      map[Cell]*Axon
	axonFanout map[Cell]int
}

// NewEngine creates an Engine reporting logic errors through r.
func NewEngine(r *diag.Reporter) *Engine {
	return &Engine{reporter: r}
}

// axonFanoutThreshold is the number of equality-relational watchers an
// operand must gain before they stop subscribing to it directly and
// fan out through an Axon instead. Below it, direct subscription is
// cheap enough that the extra indirection isn't worth it; spec.md §8 S3
// (1,000 on(x=k) rules, O(1) eval on a single assert) requires crossing
// it well before that scale.
const axonFanoutThreshold = 4

// AxonKeyed is implemented by a cell whose entire dependency on one
// operand reduces to "does this operand currently equal one fixed
// value" — an equality relational comparison against a constant.
// AxonOperand must return the same Cell for the life of the AxonKeyed
// cell, or nil if this particular instance isn't axon-eligible (e.g. a
// non-equality comparison, or equality against a non-constant).
type AxonKeyed interface {
	AxonOperand() Cell
	AxonValue() values.Value
}

func (e *Engine) enter() func() {
	if e.busy {
		e.reporter.Report(diag.CodeReentrantAlert, diag.ClassLogic, "engine re-entered while already propagating")
		panic(&diag.LogicError{Msg: "cellgraph: re-entrant propagation"})
	}
	e.busy = true
	return func() { e.busy = false }
}

// Enable subscribes c (recursively) to every cell in its Operands list,
// assigns its level, and computes its initial value. Calling Enable more
// than once on the same cell just increments its subscriber count; the
// graph underneath is only built on the first call.
func (e *Engine) Enable(ctx context.Context, c Cell) {
	b := c.Base()
	b.enableCount++
	if b.enableCount > 1 {
		return
	}

	ak, isAxonKeyed := c.(AxonKeyed)
	var axonOp Cell
	if isAxonKeyed {
		axonOp = ak.AxonOperand()
	}

	var level Level
	for _, op := range c.Operands() {
		e.Enable(ctx, op)
		if axonOp != nil && op == axonOp {
			if ax := e.routeThroughAxon(ctx, op, ak.AxonValue(), c); ax != nil {
				if ob := ax.Base().level + 1; ob > level {
					level = ob
				}
				continue
			}
		}
		subscribe(op, c)
		if ob := op.Base().level + 1; ob > level {
			level = ob
		}
	}
	b.level = level
	b.value = tracedEval(ctx, c)
}

// routeThroughAxon returns the Axon that should carry c's subscription
// to op instead of a direct one, creating it (and migrating op's
// existing direct AxonKeyed subscribers onto it) the moment op's
// equality-watcher count reaches axonFanoutThreshold. It returns nil
// while op stays under the threshold, telling the caller to subscribe c
// to op directly as usual.
func (e *Engine) routeThroughAxon(ctx context.Context, op Cell, want values.Value, c Cell) *Axon {
	if ax, ok := e.axons[op]; ok {
		ax.Watch(want, c)
		return ax
	}

	if e.axonFanout == nil {
		e.axonFanout = map[Cell]int{}
	}
	e.axonFanout[op]++
	if e.axonFanout[op] < axonFanoutThreshold {
		return nil
	}

	ax := NewAxon(op.Base().ID+":axon", op)
	if e.axons == nil {
		e.axons = map[Cell]*Axon{}
	}
	e.axons[op] = ax
	subscribe(op, ax)
	e.Enable(ctx, ax)
	e.migrateToAxon(op, ax)
	ax.Watch(want, c)
	return ax
}

// migrateToAxon moves op's existing direct AxonKeyed subscribers (the
// ones enabled before op's fan-out crossed axonFanoutThreshold) off
// op.subs and onto ax's watch table, and bumps their level to sit one
// above the axon that now routes to them so a propagation wave still
// evaluates the axon before its watchers.
func (e *Engine) migrateToAxon(op Cell, ax *Axon) {
	b := op.Base()
	kept := b.subs[:0]
	for _, s := range b.subs {
		if s == ax {
			kept = append(kept, s)
			continue
		}
		if ak, ok := s.(AxonKeyed); ok && ak.AxonOperand() == op {
			ax.Watch(ak.AxonValue(), s)
			s.Base().level = ax.Base().level + 1
			continue
		}
		kept = append(kept, s)
	}
	b.subs = kept
}

// Disable reverses Enable: decrements the subscriber count and, once it
// reaches zero, unsubscribes from every operand (recursively disabling
// them in turn) and replaces the cell's value with values.Disabled so a
// later read observes the lazy sentinel rather than a stale value.
func (e *Engine) Disable(ctx context.Context, c Cell) {
	b := c.Base()
	if b.enableCount == 0 {
		return
	}
	b.enableCount--
	if b.enableCount > 0 {
		return
	}

	ak, isAxonKeyed := c.(AxonKeyed)
	var axonOp Cell
	if isAxonKeyed {
		axonOp = ak.AxonOperand()
	}

	for _, op := range c.Operands() {
		if axonOp != nil && op == axonOp {
			if ax, ok := e.axons[op]; ok {
				ax.Unwatch(ak.AxonValue())
				e.Disable(ctx, ax)
				if ax.Base().enableCount == 0 {
					unsubscribe(op, ax)
					delete(e.axons, op)
					delete(e.axonFanout, op)
				}
				e.Disable(ctx, op)
				continue
			}
			if e.axonFanout[op] > 0 {
				e.axonFanout[op]--
			}
		}
		unsubscribe(op, c)
		e.Disable(ctx, op)
	}
	b.value = values.Disabled
}

func subscribe(publisher, subscriber Cell) {
	pb := publisher.Base()
	for _, s := range pb.subs {
		if s == subscriber {
			return
		}
	}
	pb.subs = append(pb.subs, subscriber)
}

func unsubscribe(publisher, subscriber Cell) {
	pb := publisher.Base()
	for i, s := range pb.subs {
		if s == subscriber {
			pb.subs = append(pb.subs[:i], pb.subs[i+1:]...)
			return
		}
	}
}

// Publish sets c's value directly (used for leaves driven from outside
// the graph: term assignments, assertions, skill-reported facts) and, if
// the value actually changed, propagates the change through the wave
// queue.
func (e *Engine) Publish(ctx context.Context, c Cell, v values.Value) {
	defer e.enter()()
	b := c.Base()
	if b.value == v {
		return
	}
	b.value = v
	e.propagate(ctx, c)
}

// Renotify force-propagates origin's current value to its subscribers
// even though the value itself didn't change at origin — used after a
// term reassignment or a rule-thread "weld", where the structural
// rewiring (not a value change at the leaf) is what subscribers need to
// see.
func (e *Engine) Renotify(ctx context.Context, origin Cell) {
	defer e.enter()()
	e.propagate(ctx, origin)
}

// propagate recomputes every cell reachable from origin's subscribers,
// draining the wave queue one level at a time so no cell evaluates before
// an operand that changed earlier in the same wave.
func (e *Engine) propagate(ctx context.Context, origin Cell) {
	q := newWaveQueue()
	seed(q, origin)

	for lvl := Level(0); lvl <= q.maxLevel; lvl++ {
		for _, c := range q.drainLevel(lvl) {
			b := c.Base()
			old := b.value
			next := tracedEval(ctx, c)
			if old == next {
				continue
			}
			b.value = next
			if ax, ok := c.(*Axon); ok {
				// An axon has no subscribers of its own in the normal
				// sense: its watchers are routed through its watch
				// table in O(1), toggling both the old and new match.
				ax.route(q, old, next)
				continue
			}
			seed(q, c)
		}
	}
}

// seed pushes c's subscribers onto the wave queue.
func seed(q *waveQueue, c Cell) {
	for _, s := range c.Base().subs {
		q.push(s)
	}
}

// waveQueue buckets pending cells by level and de-duplicates membership
// within a single propagation pass, matching spec.md §4.7's "idempotent
// priority-queue draining" requirement.
type waveQueue struct {
	levels   map[Level][]Cell
	queued   map[Cell]bool
	maxLevel Level
}

func newWaveQueue() *waveQueue {
	return &waveQueue{levels: map[Level][]Cell{}, queued: map[Cell]bool{}}
}

func (q *waveQueue) push(c Cell) {
	if q.queued[c] {
		return
	}
	q.queued[c] = true
	lvl := c.Base().level
	q.levels[lvl] = append(q.levels[lvl], c)
	if lvl > q.maxLevel {
		q.maxLevel = lvl
	}
}

func (q *waveQueue) drainLevel(lvl Level) []Cell {
	cells := q.levels[lvl]
	delete(q.levels, lvl)
	for _, c := range cells {
		delete(q.queued, c)
	}
	return cells
}
