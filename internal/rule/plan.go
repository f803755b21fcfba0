package rule

import (
	"context"
	"fmt"

	"github.com/nodebrain/nodebrain/internal/cellgraph"
	"github.com/nodebrain/nodebrain/internal/term"
	"github.com/nodebrain/nodebrain/internal/values"
)

// StepResult reports what an Instruction's Run did.
type StepResult int

const (
	// StepContinue: proceed to the thread's next instruction immediately.
	StepContinue StepResult = iota
	// StepSuspend: pause the thread here until something external wakes it.
	StepSuspend
)

// Instruction is one step of a compiled plan.
type Instruction interface {
	Run(ctx context.Context, th *Thread) (StepResult, error)
}

// Plan is a rule's compiled action: an ordered instruction stream.
type Plan struct {
	Instructions []Instruction
}

// Thread is one execution of a Plan. Scheduler creates a fresh Thread
// each time a rule's trigger fires and Runs it; if it suspends on a Wait
// instruction, the Thread is kept alive until the scheduler wakes it.
type Thread struct {
	rule      *Rule
	plan      *Plan
	pc        int
	gate      *waitGate
	scheduler *Scheduler
}

// Rule returns the rule this thread belongs to.
func (th *Thread) Rule() *Rule { return th.rule }

// Run executes instructions from the current program counter until the
// plan completes, an instruction suspends, or one errors.
func (th *Thread) Run(ctx context.Context) (done bool, err error) {
	for th.pc < len(th.plan.Instructions) {
		instr := th.plan.Instructions[th.pc]
		res, err := instr.Run(ctx, th)
		if err != nil {
			return false, err
		}
		if res == StepSuspend {
			return false, nil
		}
		th.pc++
	}
	return true, nil
}

// AssertInstr assigns Def to Path in Glossary, the way a rule action's
// "assert" clause publishes a fact.
type AssertInstr struct {
	Glossary *term.Glossary
	Path     string
	Def      cellgraph.Cell
}

func (a *AssertInstr) Run(ctx context.Context, th *Thread) (StepResult, error) {
	if err := a.Glossary.Assign(ctx, a.Path, a.Def); err != nil {
		return StepContinue, fmt.Errorf("assert %s: %w", a.Path, err)
	}
	return StepContinue, nil
}

// CallInstr invokes a node skill's facet through a NodeEvaluator,
// discarding the result — used for commands issued purely for effect
// ("call thermostat.setpoint(72)"). Retry, if set, governs reattempts on
// failure; a nil Retry behaves like NoRetryPolicy.
type CallInstr struct {
	Eval  Evaluator
	Node  string
	Args  []values.Value
	Retry *RetryPolicy
}

// Evaluator is the seam CallInstr dispatches through; internal/skill's
// Registry implements it.
type Evaluator interface {
	EvaluateNode(ctx context.Context, node string, args []values.Value) (values.Value, error)
}

func (c *CallInstr) Run(ctx context.Context, th *Thread) (StepResult, error) {
	retry := c.Retry
	if retry == nil {
		retry = NoRetryPolicy()
	}
	call := func() error {
		_, err := c.Eval.EvaluateNode(ctx, c.Node, c.Args)
		return err
	}
	if err := retry.Execute(ctx, call); err != nil {
		return StepContinue, fmt.Errorf("call %s: %w", c.Node, err)
	}
	return StepContinue, nil
}

// WaitInstr suspends the thread until Cond becomes values.True. Run
// returns StepContinue immediately if Cond is already True (so a rule
// re-triggered after its wait condition already settled doesn't stall).
type WaitInstr struct {
	Cond cellgraph.Cell
}

func (w *WaitInstr) Run(ctx context.Context, th *Thread) (StepResult, error) {
	if w.Cond.Base().Value() == values.True {
		return StepContinue, nil
	}
	th.gate = newWaitGate(w.Cond, th, th.scheduler)
	return StepSuspend, nil
}
