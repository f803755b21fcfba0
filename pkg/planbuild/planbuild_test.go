package planbuild

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodebrain/nodebrain/internal/cellgraph"
	"github.com/nodebrain/nodebrain/internal/diag"
	"github.com/nodebrain/nodebrain/internal/nbexpr"
	"github.com/nodebrain/nodebrain/internal/rule"
	"github.com/nodebrain/nodebrain/internal/term"
	"github.com/nodebrain/nodebrain/internal/values"
)

func TestPlanBuilderAssembliesAssertAndWait(t *testing.T) {
	e := cellgraph.NewEngine(diag.NewReporter(false, nil))
	g := term.NewGlossary(e)
	gate := nbexpr.NewAssertion("gate")

	plan, err := NewPlan().
		Wait(gate).
		Assert(g, "done", cellgraph.NewConst("c", values.True, gate.Kind())).
		Build()

	require.NoError(t, err)
	require.Len(t, plan.Instructions, 2)
	assert.IsType(t, &rule.WaitInstr{}, plan.Instructions[0])
	assert.IsType(t, &rule.AssertInstr{}, plan.Instructions[1])
}

func TestPlanBuilderRejectsEmptyAssertPath(t *testing.T) {
	g := term.NewGlossary(cellgraph.NewEngine(diag.NewReporter(false, nil)))
	_, err := NewPlan().Assert(g, "", nil).Build()
	assert.Error(t, err)
}

func TestPlanBuilderCallAppliesRetryOption(t *testing.T) {
	plan, err := NewPlan().
		Call(fakeEvaluator{}, "node1", nil, WithRetry(rule.DefaultRetryPolicy())).
		Build()

	require.NoError(t, err)
	require.Len(t, plan.Instructions, 1)
	call, ok := plan.Instructions[0].(*rule.CallInstr)
	require.True(t, ok)
	assert.NotNil(t, call.Retry)
}

func TestRuleBuilderAttachesAndFires(t *testing.T) {
	ctx := context.Background()
	e := cellgraph.NewEngine(diag.NewReporter(false, nil))
	g := term.NewGlossary(e)
	s := rule.NewScheduler(e, diag.NewReporter(false, nil))

	trigger := nbexpr.NewAssertion("trig")
	e.Enable(ctx, trigger)

	plan := NewPlan().
		Assert(g, "out", cellgraph.NewConst("c", values.True, trigger.Kind())).
		MustBuild()

	r, err := NewRule("r1", WithPriority(5), TriggeredBy(trigger), WithPlan(plan)).Attach(ctx, s)
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID, "expected Build to assign a unique rule ID")

	e.Publish(ctx, trigger, values.True)
	s.RunReady(ctx)

	assert.Equal(t, rule.StateAsh, r.State)
	out, ok := g.Locate("out")
	require.True(t, ok)
	assert.Equal(t, values.True, out.Base().Value())
}

func TestRuleBuilderRejectsMissingTrigger(t *testing.T) {
	plan := NewPlan().MustBuild()
	_, _, err := NewRule("r1", WithPlan(plan)).Build()
	assert.Error(t, err)
}

type fakeEvaluator struct{}

func (fakeEvaluator) EvaluateNode(ctx context.Context, node string, args []values.Value) (values.Value, error) {
	return values.Unknown, nil
}
