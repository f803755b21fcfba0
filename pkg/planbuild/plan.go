// Package planbuild is a fluent builder for assembling rule.Plan
// instruction streams and the rule.Rule that wraps them, mirroring the
// teacher's pkg/builder functional-options style (error-accumulating
// builder, MustBuild panics on the first configuration error rather than
// threading an error return through every call).
package planbuild

import (
	"fmt"

	"github.com/nodebrain/nodebrain/internal/cellgraph"
	"github.com/nodebrain/nodebrain/internal/rule"
	"github.com/nodebrain/nodebrain/internal/term"
	"github.com/nodebrain/nodebrain/internal/values"
)

// PlanBuilder accumulates a rule.Plan's instruction stream.
type PlanBuilder struct {
	instructions []rule.Instruction
	err          error
}

// NewPlan starts an empty plan.
func NewPlan() *PlanBuilder {
	return &PlanBuilder{}
}

// Build returns the assembled Plan, or the first error any step call
// recorded.
func (pb *PlanBuilder) Build() (*rule.Plan, error) {
	if pb.err != nil {
		return nil, pb.err
	}
	return &rule.Plan{Instructions: pb.instructions}, nil
}

// MustBuild is Build but panics on error, for callers assembling a plan
// from a fixed literal step sequence where a build error means a
// programming mistake, not bad input.
func (pb *PlanBuilder) MustBuild() *rule.Plan {
	p, err := pb.Build()
	if err != nil {
		panic(err)
	}
	return p
}

// Assert appends an AssertInstr binding path to def in glossary.
func (pb *PlanBuilder) Assert(glossary *term.Glossary, path string, def cellgraph.Cell) *PlanBuilder {
	if pb.err != nil {
		return pb
	}
	if path == "" {
		pb.err = fmt.Errorf("planbuild: assert step needs a non-empty path")
		return pb
	}
	pb.instructions = append(pb.instructions, &rule.AssertInstr{Glossary: glossary, Path: path, Def: def})
	return pb
}

// CallOption configures a Call step's CallInstr before it is appended.
type CallOption func(*rule.CallInstr)

// WithRetry attaches a retry policy to the call step, so a failed node
// dispatch reattempts per policy before the step's error halts the plan.
func WithRetry(policy *rule.RetryPolicy) CallOption {
	return func(c *rule.CallInstr) { c.Retry = policy }
}

// Call appends a CallInstr dispatching node through eval, applying opts.
func (pb *PlanBuilder) Call(eval rule.Evaluator, node string, args []values.Value, opts ...CallOption) *PlanBuilder {
	if pb.err != nil {
		return pb
	}
	if node == "" {
		pb.err = fmt.Errorf("planbuild: call step needs a non-empty node name")
		return pb
	}
	instr := &rule.CallInstr{Eval: eval, Node: node, Args: args}
	for _, opt := range opts {
		opt(instr)
	}
	pb.instructions = append(pb.instructions, instr)
	return pb
}

// Wait appends a WaitInstr suspending the thread until cond is True.
func (pb *PlanBuilder) Wait(cond cellgraph.Cell) *PlanBuilder {
	if pb.err != nil {
		return pb
	}
	if cond == nil {
		pb.err = fmt.Errorf("planbuild: wait step needs a non-nil condition cell")
		return pb
	}
	pb.instructions = append(pb.instructions, &rule.WaitInstr{Cond: cond})
	return pb
}
