package nbexpr

import (
	"context"
	"testing"

	"github.com/nodebrain/nodebrain/internal/cellgraph"
	"github.com/nodebrain/nodebrain/internal/diag"
	"github.com/nodebrain/nodebrain/internal/object"
	"github.com/nodebrain/nodebrain/internal/values"
)

func constReal(in *values.Interner, id string, n float64) *cellgraph.ConstCell {
	return cellgraph.NewConst(id, in.Real(n), object.KindReal)
}

func TestMathUnknownPropagation(t *testing.T) {
	ctx := context.Background()
	in := values.NewInterner(nil)
	unknown := cellgraph.NewConst("u", values.Unknown, object.KindUnknown)
	five := constReal(in, "five", 5)

	m := NewMath("m", OpAdd, unknown, five, in)
	e := cellgraph.NewEngine(diag.NewReporter(false, nil))
	e.Enable(ctx, m)

	if m.Base().Value() != values.Unknown {
		t.Fatalf("expected Unknown, got %v", m.Base().Value())
	}
}

func TestMathDivideByZero(t *testing.T) {
	ctx := context.Background()
	in := values.NewInterner(nil)
	a := constReal(in, "a", 10)
	zero := constReal(in, "zero", 0)
	m := NewMath("m", OpDiv, a, zero, in)

	e := cellgraph.NewEngine(diag.NewReporter(false, nil))
	e.Enable(ctx, m)

	if m.Base().Value() != values.Unknown {
		t.Fatalf("expected Unknown on divide by zero, got %v", m.Base().Value())
	}
}

func TestRelationalEquality(t *testing.T) {
	ctx := context.Background()
	in := values.NewInterner(nil)
	a := constReal(in, "a", 3)
	b := constReal(in, "b", 3)
	r, err := NewRelational("r", RelEQ, a, b)
	if err != nil {
		t.Fatal(err)
	}
	e := cellgraph.NewEngine(diag.NewReporter(false, nil))
	e.Enable(ctx, r)
	if r.Base().Value() != values.True {
		t.Fatalf("expected True, got %v", r.Base().Value())
	}
}

func TestBooleanAndFalseDominates(t *testing.T) {
	ctx := context.Background()
	f := cellgraph.NewConst("f", values.False, object.KindFalse)
	u := cellgraph.NewConst("u", values.Unknown, object.KindUnknown)
	b := NewBoolean("b", BoolAnd, f, u)

	e := cellgraph.NewEngine(diag.NewReporter(false, nil))
	e.Enable(ctx, b)
	if b.Base().Value() != values.False {
		t.Fatalf("expected False, got %v", b.Base().Value())
	}
}

func TestBooleanOrTrueDominates(t *testing.T) {
	ctx := context.Background()
	tr := cellgraph.NewConst("t", values.True, object.KindTrue)
	u := cellgraph.NewConst("u", values.Unknown, object.KindUnknown)
	b := NewBoolean("b", BoolOr, tr, u)

	e := cellgraph.NewEngine(diag.NewReporter(false, nil))
	e.Enable(ctx, b)
	if b.Base().Value() != values.True {
		t.Fatalf("expected True, got %v", b.Base().Value())
	}
}

func TestBooleanAndOrUnknownWithoutDominance(t *testing.T) {
	ctx := context.Background()
	tr := cellgraph.NewConst("t", values.True, object.KindTrue)
	u := cellgraph.NewConst("u", values.Unknown, object.KindUnknown)

	and := NewBoolean("and", BoolAnd, tr, u)
	or := NewBoolean("or", BoolOr, cellgraph.NewConst("f", values.False, object.KindFalse), u)

	e := cellgraph.NewEngine(diag.NewReporter(false, nil))
	e.Enable(ctx, and)
	e.Enable(ctx, or)

	if and.Base().Value() != values.Unknown {
		t.Fatalf("expected Unknown from AND(True, Unknown), got %v", and.Base().Value())
	}
	if or.Base().Value() != values.Unknown {
		t.Fatalf("expected Unknown from OR(False, Unknown), got %v", or.Base().Value())
	}
}

func TestConditionalFollowsBranch(t *testing.T) {
	ctx := context.Background()
	in := values.NewInterner(nil)
	cond := cellgraph.NewConst("c", values.True, object.KindTrue)
	then := constReal(in, "then", 1)
	els := constReal(in, "else", 2)

	c := NewConditional("cond", cond, then, els, nil)
	e := cellgraph.NewEngine(diag.NewReporter(false, nil))
	e.Enable(ctx, c)

	got, ok := c.Base().Value().(*values.Real)
	if !ok || got.Num != 1 {
		t.Fatalf("expected then-branch value 1, got %v", c.Base().Value())
	}
}

func TestConditionalFollowsUnknownBranch(t *testing.T) {
	ctx := context.Background()
	in := values.NewInterner(nil)
	cond := cellgraph.NewConst("c", values.Unknown, object.KindUnknown)
	then := constReal(in, "then", 1)
	els := constReal(in, "else", 2)
	unk := constReal(in, "unk", 3)

	c := NewConditional("cond", cond, then, els, unk)
	e := cellgraph.NewEngine(diag.NewReporter(false, nil))
	e.Enable(ctx, c)

	got, ok := c.Base().Value().(*values.Real)
	if !ok || got.Num != 3 {
		t.Fatalf("expected unknown-branch value 3, got %v", c.Base().Value())
	}
}

func TestConditionalShowShortestForm(t *testing.T) {
	in := values.NewInterner(nil)
	cond := cellgraph.NewConst("c", values.True, object.KindTrue)
	x := constReal(in, "x", 1)
	y := constReal(in, "y", 2)
	z := constReal(in, "z", 3)

	if got := NewConditional("n", cond, x, nil, nil).Show(); got != "(# true 1)" {
		t.Fatalf("expected true-only form, got %q", got)
	}
	if got := NewConditional("n", cond, nil, nil, z).Show(); got != "(# unknown 3)" {
		t.Fatalf("expected unknown-only form, got %q", got)
	}
	if got := NewConditional("n", cond, x, y, nil).Show(); got != "(# true 1 else 2)" {
		t.Fatalf("expected true/false form, got %q", got)
	}
	if got := NewConditional("n", cond, x, x, nil).Show(); got != "(# known 1)" {
		t.Fatalf("expected known form when true and false branches coincide, got %q", got)
	}
}

func TestCallRegistryAliasDeprecation(t *testing.T) {
	var messages []diag.Message
	r := diag.NewReporter(false, func(m diag.Message) { messages = append(messages, m) })
	reg := NewCallRegistry(r)
	reg.Register("max2", func(args []values.Value) (values.Value, error) {
		return args[0], nil
	})
	reg.Alias("maxof", "max2")

	fn, canonical, err := reg.Resolve("maxof")
	if err != nil || fn == nil {
		t.Fatalf("expected resolve to succeed, got %v", err)
	}
	if canonical != "max2" {
		t.Fatalf("expected canonical name max2, got %s", canonical)
	}
	if len(messages) != 1 || messages[0].Class != diag.ClassWarning {
		t.Fatalf("expected one deprecation warning, got %v", messages)
	}
}

func TestExprCellEvaluatesFormula(t *testing.T) {
	ctx := context.Background()
	in := values.NewInterner(nil)
	x := constReal(in, "x", 4)
	y := constReal(in, "y", 5)

	cell, err := NewExprCell("e", "x + y", []string{"x", "y"}, []cellgraph.Cell{x, y}, in)
	if err != nil {
		t.Fatal(err)
	}
	e := cellgraph.NewEngine(diag.NewReporter(false, nil))
	e.Enable(ctx, cell)

	got, ok := cell.Base().Value().(*values.Real)
	if !ok || got.Num != 9 {
		t.Fatalf("expected 9, got %v", cell.Base().Value())
	}
}

func TestJQCellExtractsField(t *testing.T) {
	ctx := context.Background()
	in := values.NewInterner(nil)
	src := cellgraph.NewConst("src", in.String(`{"name":"kitchen","temp":71}`), object.KindString)

	j, err := NewJQCell("j", ".temp", src, in)
	if err != nil {
		t.Fatal(err)
	}
	e := cellgraph.NewEngine(diag.NewReporter(false, nil))
	e.Enable(ctx, j)

	got, ok := j.Base().Value().(*values.Real)
	if !ok || got.Num != 71 {
		t.Fatalf("expected 71, got %v", j.Base().Value())
	}
}

func TestJQCellUnknownOnNonJSONInput(t *testing.T) {
	ctx := context.Background()
	in := values.NewInterner(nil)
	src := cellgraph.NewConst("src", in.Real(5), object.KindReal)

	j, err := NewJQCell("j", ".temp", src, in)
	if err != nil {
		t.Fatal(err)
	}
	e := cellgraph.NewEngine(diag.NewReporter(false, nil))
	e.Enable(ctx, j)

	if j.Base().Value() != values.Unknown {
		t.Fatalf("expected Unknown for a non-string operand, got %v", j.Base().Value())
	}
}

func TestListCellTogglesOnMemberChange(t *testing.T) {
	ctx := context.Background()
	in := values.NewInterner(nil)
	a := cellgraph.NewConst("a", in.Real(1), object.KindReal)
	b := cellgraph.NewConst("b", in.Real(2), object.KindReal)

	l := NewListCell("l", a, b)
	e := cellgraph.NewEngine(diag.NewReporter(false, nil))
	e.Enable(ctx, l)

	first := l.Base().Value()
	if first != values.True && first != values.False {
		t.Fatalf("expected initial value to be a toggle state, got %v", first)
	}

	e.Publish(ctx, a, in.Real(5))
	second := l.Base().Value()
	if second == first {
		t.Fatalf("expected member change to flip the toggle, got %v twice", first)
	}
}

func TestListCellUnknownWhenMemberUnknown(t *testing.T) {
	ctx := context.Background()
	in := values.NewInterner(nil)
	a := cellgraph.NewConst("a", values.Unknown, object.KindUnknown)
	b := cellgraph.NewConst("b", in.Real(2), object.KindReal)

	l := NewListCell("l", a, b)
	e := cellgraph.NewEngine(diag.NewReporter(false, nil))
	e.Enable(ctx, l)

	if l.Base().Value() != values.Unknown {
		t.Fatalf("expected Unknown when a member is Unknown, got %v", l.Base().Value())
	}
}

func TestListInsertAndGet(t *testing.T) {
	l := Open("widgets")
	l.Append(values.True)
	if err := l.Insert(0, values.False); err != nil {
		t.Fatal(err)
	}
	v, err := l.Get(0)
	if err != nil || v != values.False {
		t.Fatalf("expected False at index 0, got %v %v", v, err)
	}
	v, err = l.Get(1)
	if err != nil || v != values.True {
		t.Fatalf("expected True at index 1, got %v %v", v, err)
	}
}
