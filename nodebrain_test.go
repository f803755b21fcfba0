package nodebrain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodebrain/nodebrain/internal/values"
)

func TestStartStopLifecycle(t *testing.T) {
	ctx := context.Background()
	e := New(nil)

	require.NoError(t, e.Start(ctx))
	assert.Error(t, e.Start(ctx), "expected double Start to fail")
	require.NoError(t, e.Stop(ctx))
	require.NoError(t, e.Stop(ctx), "Stop on an already-stopped engine is a no-op")
}

func TestCmdShowSurfaces(t *testing.T) {
	ctx := context.Background()
	e := New(nil)
	e.CellCreateString(ctx, "greeting", "hi")

	out, err := e.Cmd(ctx, "show cells")
	require.NoError(t, err)
	assert.Contains(t, out, "greeting")

	_, err = e.Cmd(ctx, "bogus command")
	assert.Error(t, err)
}

func TestCellCreateGetPublishDrop(t *testing.T) {
	ctx := context.Background()
	e := New(nil)

	e.CellCreateReal(ctx, "x", 3.5)
	n, ok := e.CellGetReal("x")
	require.True(t, ok)
	assert.Equal(t, 3.5, n)

	require.NoError(t, e.CellPublish(ctx, "x", e.Interner().Real(7)))
	n, ok = e.CellGetReal("x")
	require.True(t, ok)
	assert.Equal(t, 7.0, n)

	require.NoError(t, e.CellDrop(ctx, "x"))
	_, ok = e.CellGetReal("x")
	assert.False(t, ok)
}

func TestTermAssignAndLocate(t *testing.T) {
	ctx := context.Background()
	e := New(nil)

	cell := e.CellCreateString(ctx, "s1", "hello")
	require.NoError(t, e.TermAssign(ctx, "greeting", cell))

	term, ok := e.TermLocate("greeting")
	require.True(t, ok)
	s, ok := term.Base().Value().(*values.String)
	require.True(t, ok)
	assert.Equal(t, "hello", s.Text)
}

func TestAssertionAddTermValueRoundTrip(t *testing.T) {
	ctx := context.Background()
	e := New(nil)

	a, err := e.AssertionAddTermValue(ctx, "alarm.kitchen")
	require.NoError(t, err)
	assert.Equal(t, values.Unknown, a.Base().Value())

	require.NoError(t, e.CellPublish(ctx, "alarm.kitchen", values.True))
	term, ok := e.TermLocate("alarm.kitchen")
	require.True(t, ok)
	assert.Equal(t, values.True, term.Base().Value())
}

func TestListOpenInsertGet(t *testing.T) {
	e := New(nil)
	e.ListOpen("colors")
	require.NoError(t, e.ListInsert("colors", 0, values.True))
	v, err := e.ListGet("colors", 0)
	require.NoError(t, err)
	assert.Equal(t, values.True, v)
}

func TestAlertRevertsOmittedTransientTerm(t *testing.T) {
	ctx := context.Background()
	e := New(nil)

	_, err := e.Cmd(ctx, `alert N.t="first"`)
	require.NoError(t, err)
	term, ok := e.TermLocate("N.t")
	require.True(t, ok)
	s, ok := term.Base().Value().(*values.String)
	require.True(t, ok)
	assert.Equal(t, "first", s.Text)

	_, err = e.Cmd(ctx, `alert N.other="x"`)
	require.NoError(t, err)
	term, ok = e.TermLocate("N.t")
	require.True(t, ok)
	assert.Equal(t, values.Unknown, term.Base().Value())

	other, ok := e.TermLocate("N.other")
	require.True(t, ok)
	s, ok = other.Base().Value().(*values.String)
	require.True(t, ok)
	assert.Equal(t, "x", s.Text)
}

func TestAlertAcrossContextsDoesNotCrossRevert(t *testing.T) {
	ctx := context.Background()
	e := New(nil)

	_, err := e.Cmd(ctx, "alert N.t=1")
	require.NoError(t, err)
	_, err = e.Cmd(ctx, "alert M.t=2")
	require.NoError(t, err)

	nt, ok := e.TermLocate("N.t")
	require.True(t, ok)
	r, ok := nt.Base().Value().(*values.Real)
	require.True(t, ok, "N.t should be untouched by an alert in a different context")
	assert.Equal(t, 1.0, r.Num)
}

func TestSkillDeclareSetMethodAndNodeAlert(t *testing.T) {
	ctx := context.Background()
	e := New(nil)

	_, err := e.SkillDeclare("thermostat")
	require.NoError(t, err)

	alarmed := false
	err = e.SkillSetMethod("thermostat", "alarm", func(ctx context.Context, node string) error {
		alarmed = true
		return nil
	})
	require.NoError(t, err)

	err = e.SkillSetMethod("thermostat", "evaluate", func(ctx context.Context, node string, args []values.Value) (values.Value, error) {
		return values.True, nil
	})
	require.NoError(t, err)

	_, err = e.Skills().BindNode(ctx, "hall.thermostat", "thermostat", nil)
	require.NoError(t, err)

	require.NoError(t, e.NodeAlert(ctx, "hall.thermostat"))
	assert.True(t, alarmed)
}

func TestSkillSetMethodRejectsWrongSignature(t *testing.T) {
	e := New(nil)
	e.SkillDeclare("x")
	err := e.SkillSetMethod("x", "evaluate", func() {})
	assert.Error(t, err)
}
