package rule

import (
	"context"
	"errors"
	"testing"

	"github.com/nodebrain/nodebrain/internal/cellgraph"
	"github.com/nodebrain/nodebrain/internal/diag"
	"github.com/nodebrain/nodebrain/internal/nbexpr"
	"github.com/nodebrain/nodebrain/internal/term"
	"github.com/nodebrain/nodebrain/internal/values"
)

func TestTriggerFireRunsPlanToAsh(t *testing.T) {
	ctx := context.Background()
	e := cellgraph.NewEngine(diag.NewReporter(false, nil))
	g := term.NewGlossary(e)
	s := NewScheduler(e, diag.NewReporter(false, nil))

	trigger := nbexpr.NewAssertion("trig")
	e.Enable(ctx, trigger)

	r := &Rule{Name: "r1", Priority: 0, Plan: &Plan{Instructions: []Instruction{
		&AssertInstr{Glossary: g, Path: "out", Def: cellgraph.NewConst("c", values.True, trigger.Kind())},
	}}}
	s.Attach(ctx, r, trigger)

	e.Publish(ctx, trigger, values.True)
	if n := s.RunReady(ctx); n != 1 {
		t.Fatalf("expected 1 rule run, got %d", n)
	}
	if r.State != StateAsh {
		t.Fatalf("expected StateAsh, got %v", r.State)
	}
	out, ok := g.Locate("out")
	if !ok || out.Base().Value() != values.True {
		t.Fatalf("expected out assigned True, got %v %v", ok, out)
	}
}

func TestTriggerResetsToReadyOnFallingEdge(t *testing.T) {
	ctx := context.Background()
	e := cellgraph.NewEngine(diag.NewReporter(false, nil))
	g := term.NewGlossary(e)
	s := NewScheduler(e, diag.NewReporter(false, nil))

	trigger := nbexpr.NewAssertion("trig")
	e.Enable(ctx, trigger)

	r := &Rule{Name: "r1", Plan: &Plan{Instructions: []Instruction{
		&AssertInstr{Glossary: g, Path: "out", Def: cellgraph.NewConst("c", values.True, trigger.Kind())},
	}}}
	s.Attach(ctx, r, trigger)

	e.Publish(ctx, trigger, values.True)
	s.RunReady(ctx)
	if r.State != StateAsh {
		t.Fatalf("expected StateAsh after first fire, got %v", r.State)
	}

	e.Publish(ctx, trigger, values.False)
	if r.State != StateReady {
		t.Fatalf("expected StateReady after falling edge, got %v", r.State)
	}

	e.Publish(ctx, trigger, values.True)
	if n := s.RunReady(ctx); n != 1 {
		t.Fatalf("expected rule to fire again, got %d runs", n)
	}
}

func TestWaitSuspendsAndResumesOnConditionTrue(t *testing.T) {
	ctx := context.Background()
	e := cellgraph.NewEngine(diag.NewReporter(false, nil))
	g := term.NewGlossary(e)
	s := NewScheduler(e, diag.NewReporter(false, nil))

	trigger := nbexpr.NewAssertion("trig")
	e.Enable(ctx, trigger)
	gate := nbexpr.NewAssertion("gate")
	e.Enable(ctx, gate)

	r := &Rule{Name: "waiter", Plan: &Plan{Instructions: []Instruction{
		&WaitInstr{Cond: gate},
		&AssertInstr{Glossary: g, Path: "done", Def: cellgraph.NewConst("c", values.True, trigger.Kind())},
	}}}
	s.Attach(ctx, r, trigger)

	e.Publish(ctx, trigger, values.True)
	s.RunReady(ctx)
	if r.State != StateProcessing {
		t.Fatalf("expected StateProcessing while suspended on Wait, got %v", r.State)
	}
	if _, ok := g.Locate("done"); ok {
		t.Fatal("expected done not yet assigned before gate opens")
	}

	// waitGate.Eval runs inside this Publish's propagation wave; it must
	// only record the pending wake rather than resume the thread inline,
	// or AssertInstr's own Glossary.Assign call below would re-enter the
	// engine mid-wave and panic.
	e.Publish(ctx, gate, values.True)
	if n := s.RunReady(ctx); n != 1 {
		t.Fatalf("expected the pending wake to run once, got %d", n)
	}

	if r.State != StateAsh {
		t.Fatalf("expected StateAsh after resume drained the pending wake, got %v", r.State)
	}
	done, ok := g.Locate("done")
	if !ok || done.Base().Value() != values.True {
		t.Fatalf("expected done assigned True after resume, got %v %v", ok, done)
	}
}

func TestWaitAlreadyTrueDoesNotSuspend(t *testing.T) {
	ctx := context.Background()
	e := cellgraph.NewEngine(diag.NewReporter(false, nil))
	g := term.NewGlossary(e)
	s := NewScheduler(e, diag.NewReporter(false, nil))

	trigger := nbexpr.NewAssertion("trig")
	e.Enable(ctx, trigger)
	gate := cellgraph.NewConst("gate", values.True, trigger.Kind())

	r := &Rule{Name: "r1", Plan: &Plan{Instructions: []Instruction{
		&WaitInstr{Cond: gate},
		&AssertInstr{Glossary: g, Path: "done", Def: cellgraph.NewConst("c", values.True, trigger.Kind())},
	}}}
	s.Attach(ctx, r, trigger)

	e.Publish(ctx, trigger, values.True)
	s.RunReady(ctx)
	if r.State != StateAsh {
		t.Fatalf("expected rule to run straight through to Ash, got %v", r.State)
	}
}

func TestEnqueueOrdersByPriorityThenArrival(t *testing.T) {
	ctx := context.Background()
	e := cellgraph.NewEngine(diag.NewReporter(false, nil))
	s := NewScheduler(e, diag.NewReporter(false, nil))

	var ranOrder []string
	mkRule := func(name string, priority int) *Rule {
		return &Rule{Name: name, Priority: priority, State: StateReady, Plan: &Plan{Instructions: []Instruction{
			recordInstr{name: name, order: &ranOrder},
		}}}
	}

	low := mkRule("low", 0)
	high := mkRule("high", 10)
	mid := mkRule("mid", 5)

	s.Enqueue(low)
	s.Enqueue(high)
	s.Enqueue(mid)
	s.RunReady(ctx)

	want := []string{"high", "mid", "low"}
	if len(ranOrder) != len(want) {
		t.Fatalf("expected %v, got %v", want, ranOrder)
	}
	for i := range want {
		if ranOrder[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, ranOrder)
		}
	}
}

// recordInstr is a test-only Instruction that appends its name to order.
type recordInstr struct {
	name  string
	order *[]string
}

func (r recordInstr) Run(ctx context.Context, th *Thread) (StepResult, error) {
	*r.order = append(*r.order, r.name)
	return StepContinue, nil
}

func TestCallInstrRetriesUntilSuccess(t *testing.T) {
	attempts := 0
	eval := fakeEvaluator{fn: func(ctx context.Context, node string, args []values.Value) (values.Value, error) {
		attempts++
		if attempts < 3 {
			return values.Unknown, errors.New("transient")
		}
		return values.True, nil
	}}

	instr := &CallInstr{Eval: eval, Node: "n1", Retry: &RetryPolicy{MaxAttempts: 5, BackoffStrategy: BackoffConstant}}
	res, err := instr.Run(context.Background(), &Thread{})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if res != StepContinue {
		t.Fatalf("expected StepContinue, got %v", res)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestCallInstrNoRetryFailsImmediately(t *testing.T) {
	attempts := 0
	eval := fakeEvaluator{fn: func(ctx context.Context, node string, args []values.Value) (values.Value, error) {
		attempts++
		return values.Unknown, errors.New("boom")
	}}

	instr := &CallInstr{Eval: eval, Node: "n1"}
	if _, err := instr.Run(context.Background(), &Thread{}); err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Fatalf("expected exactly 1 attempt with no retry policy, got %d", attempts)
	}
}

type fakeEvaluator struct {
	fn func(ctx context.Context, node string, args []values.Value) (values.Value, error)
}

func (f fakeEvaluator) EvaluateNode(ctx context.Context, node string, args []values.Value) (values.Value, error) {
	return f.fn(ctx, node, args)
}

func TestRuleStateStrings(t *testing.T) {
	cases := map[State]string{
		StateReady:      "ready",
		StateScheduled:  "scheduled",
		StateProcessing: "processing",
		StateAsh:        "ash",
		StateError:      "error",
		StateDeleted:    "deleted",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Fatalf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
