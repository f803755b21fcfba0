package rule

import (
	"container/heap"
	"context"

	"github.com/nodebrain/nodebrain/internal/cellgraph"
	"github.com/nodebrain/nodebrain/internal/diag"
	"github.com/nodebrain/nodebrain/internal/object"
	"github.com/nodebrain/nodebrain/internal/values"
)

// Scheduler is the priority-ordered action queue and rule-thread runner.
// Like cellgraph.Engine, it is single-threaded by design: RunReady drains
// the queue cooperatively rather than dispatching rules onto goroutines.
type Scheduler struct {
	engine       *cellgraph.Engine
	reporter     *diag.Reporter
	queue        actionHeap
	seq          int
	pendingWakes []*Thread
}

// NewScheduler creates a Scheduler driving cells through engine.
func NewScheduler(engine *cellgraph.Engine, reporter *diag.Reporter) *Scheduler {
	s := &Scheduler{engine: engine, reporter: reporter}
	heap.Init(&s.queue)
	return s
}

// Attach wires r's trigger condition to the scheduler: each rising edge
// (Unknown/False -> True) enqueues r. Attach also performs the initial
// Engine.Enable of the gate cell so it starts observing trigger.
func (s *Scheduler) Attach(ctx context.Context, r *Rule, trigger cellgraph.Cell) {
	r.State = StateReady
	g := newTriggerGate(trigger, r, s)
	s.engine.Enable(ctx, g)
}

// Enqueue schedules r to run, ordered by Priority (higher first) and
// then by arrival order among equal priorities.
func (s *Scheduler) Enqueue(r *Rule) {
	if r.State == StateDeleted {
		return
	}
	r.State = StateScheduled
	s.seq++
	heap.Push(&s.queue, &scheduledRule{rule: r, priority: r.Priority, seq: s.seq})
}

// RunReady drains the action queue, running each scheduled rule's plan
// from a fresh Thread until it completes or suspends on a Wait
// instruction. It returns the number of rules run.
func (s *Scheduler) RunReady(ctx context.Context) int {
	ran := 0
	for s.queue.Len() > 0 || len(s.pendingWakes) > 0 {
		for s.queue.Len() > 0 {
			item := heap.Pop(&s.queue).(*scheduledRule)
			s.run(ctx, item.rule, &Thread{rule: item.rule, plan: item.rule.Plan, scheduler: s})
			ran++
		}
		wakes := s.pendingWakes
		s.pendingWakes = nil
		for _, th := range wakes {
			s.wake(ctx, th)
			ran++
		}
	}
	return ran
}

func (s *Scheduler) run(ctx context.Context, r *Rule, th *Thread) {
	r.State = StateProcessing
	done, err := th.Run(ctx)
	if err != nil {
		r.State = StateError
		s.reporter.Report(diag.CodeRuleError, diag.ClassError, "rule %q: %v", r.Name, err)
		return
	}
	if done {
		r.State = StateAsh
		return
	}
	// Suspended on a Wait instruction: arm its gate so the engine notices
	// when the awaited condition next becomes True.
	s.engine.Enable(ctx, th.gate)
}

// wake resumes a thread suspended on a Wait instruction, called by its
// waitGate when the awaited condition becomes True.
func (s *Scheduler) wake(ctx context.Context, th *Thread) {
	s.engine.Disable(ctx, th.gate)
	th.gate = nil
	th.pc++
	s.run(ctx, th.rule, th)
}

// scheduledRule is one entry in the priority action queue.
type scheduledRule struct {
	rule     *Rule
	priority int
	seq      int
	index    int
}

type actionHeap []*scheduledRule

func (h actionHeap) Len() int { return len(h) }
func (h actionHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h actionHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *actionHeap) Push(x any) {
	item := x.(*scheduledRule)
	item.index = len(*h)
	*h = append(*h, item)
}
func (h *actionHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// triggerGate is a side-effecting cell subscribed to a rule's trigger
// condition: on each rising edge it enqueues the rule, the way
// internal/timecond's Delay arms a timer as a side effect of noticing an
// edge in Eval.
type triggerGate struct {
	base      cellgraph.Base
	cond      cellgraph.Cell
	rule      *Rule
	scheduler *Scheduler
	wasTrue   bool
}

func newTriggerGate(cond cellgraph.Cell, r *Rule, s *Scheduler) *triggerGate {
	return &triggerGate{base: cellgraph.NewBase("trigger:"+r.Name, values.Unknown), cond: cond, rule: r, scheduler: s}
}

func (g *triggerGate) Base() *cellgraph.Base      { return &g.base }
func (g *triggerGate) Kind() object.Kind          { return object.KindRule }
func (g *triggerGate) Operands() []cellgraph.Cell { return []cellgraph.Cell{g.cond} }
func (g *triggerGate) Show() string               { return g.base.ID }

func (g *triggerGate) Eval(ctx context.Context) values.Value {
	v := g.cond.Base().Value()
	isTrue := values.IsTrue(v)
	switch {
	case isTrue && !g.wasTrue && g.rule.State == StateReady:
		g.scheduler.Enqueue(g.rule)
	case !isTrue && g.rule.State == StateAsh:
		// The trigger fell back to not-true: the rule leaves its "ash"
		// resting state and can fire again on the next rising edge.
		g.rule.State = StateReady
	}
	g.wasTrue = isTrue
	return v
}

// waitGate is the one-shot counterpart used by WaitInstr: it wakes its
// thread the first time cond becomes True, then the scheduler disables
// it.
type waitGate struct {
	base      cellgraph.Base
	cond      cellgraph.Cell
	th        *Thread
	scheduler *Scheduler
	woken     bool
}

func newWaitGate(cond cellgraph.Cell, th *Thread, s *Scheduler) *waitGate {
	return &waitGate{base: cellgraph.NewBase("wait:"+th.rule.Name, values.Unknown), cond: cond, th: th, scheduler: s}
}

func (g *waitGate) Base() *cellgraph.Base      { return &g.base }
func (g *waitGate) Kind() object.Kind          { return object.KindRule }
func (g *waitGate) Operands() []cellgraph.Cell { return []cellgraph.Cell{g.cond} }
func (g *waitGate) Show() string               { return g.base.ID }

// Eval only flags the thread as ready to resume; the actual resume runs
// later from Scheduler.RunReady, never nested inside the propagation wave
// that made cond True, so a rule action can itself publish/assign without
// re-entering the engine mid-wave.
func (g *waitGate) Eval(ctx context.Context) values.Value {
	v := g.cond.Base().Value()
	if values.IsTrue(v) && !g.woken {
		g.woken = true
		g.scheduler.pendingWakes = append(g.scheduler.pendingWakes, g.th)
	}
	return v
}
