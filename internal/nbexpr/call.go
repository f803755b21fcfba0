package nbexpr

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/itchyny/gojq"

	"github.com/nodebrain/nodebrain/internal/cellgraph"
	"github.com/nodebrain/nodebrain/internal/object"
	"github.com/nodebrain/nodebrain/internal/values"
)

var callDesc = object.Register(&object.Descriptor{Name: "call", Kind: object.KindCall})

// Call invokes a CallRegistry function by name against its operands'
// current values, re-evaluating whenever any operand changes.
type Call struct {
	base     cellgraph.Base
	name     string
	operands []cellgraph.Cell
	reg      *CallRegistry
}

// NewCall builds a call cell dispatching through reg.
func NewCall(id, name string, reg *CallRegistry, operands ...cellgraph.Cell) *Call {
	c := &Call{name: name, operands: operands, reg: reg}
	c.base.ID = id
	return c
}

func (c *Call) Base() *cellgraph.Base      { return &c.base }
func (c *Call) Kind() object.Kind          { return callDesc.Kind }
func (c *Call) Operands() []cellgraph.Cell { return c.operands }

func (c *Call) Show() string {
	s := c.name + "("
	for i, op := range c.operands {
		if i > 0 {
			s += ", "
		}
		s += op.Show()
	}
	return s + ")"
}

func (c *Call) Eval(ctx context.Context) values.Value {
	fn, _, err := c.reg.Resolve(c.name)
	if err != nil {
		return values.Unknown
	}
	args := make([]values.Value, len(c.operands))
	for i, op := range c.operands {
		args[i] = op.Base().Value()
	}
	for _, a := range args {
		if values.IsUnknown(a) {
			return values.Unknown
		}
	}
	v, err := fn(args)
	if err != nil {
		return values.Unknown
	}
	return v
}

// ExprCell evaluates a general expr-lang/expr program against a fixed set
// of named operands, for rule conditions and term definitions too
// irregular to express as a fixed-arity math/relational/boolean cell
// (spec.md §4.5's "general expression" escape hatch). The program is
// compiled once at construction time.
type ExprCell struct {
	base    cellgraph.Base
	program *vm.Program
	names   []string
	cells   []cellgraph.Cell
	in      *values.Interner
}

// NewExprCell compiles source once, binding each name in names to the
// positionally-corresponding cell in cells.
func NewExprCell(id, source string, names []string, cells []cellgraph.Cell, in *values.Interner) (*ExprCell, error) {
	if len(names) != len(cells) {
		return nil, fmt.Errorf("nbexpr: NewExprCell: %d names but %d cells", len(names), len(cells))
	}
	env := map[string]any{}
	for _, n := range names {
		env[n] = 0.0
	}
	program, err := expr.Compile(source, expr.Env(env))
	if err != nil {
		return nil, fmt.Errorf("nbexpr: compile %q: %w", source, err)
	}
	e := &ExprCell{program: program, names: names, cells: cells, in: in}
	e.base.ID = id
	return e, nil
}

func (e *ExprCell) Base() *cellgraph.Base      { return &e.base }
func (e *ExprCell) Kind() object.Kind          { return callDesc.Kind }
func (e *ExprCell) Operands() []cellgraph.Cell { return e.cells }
func (e *ExprCell) Show() string               { return "expr:" + e.base.ID }

func (e *ExprCell) Eval(ctx context.Context) values.Value {
	env := make(map[string]any, len(e.names))
	for i, n := range e.names {
		v := e.cells[i].Base().Value()
		if values.IsUnknown(v) {
			return values.Unknown
		}
		switch t := v.(type) {
		case *values.Real:
			env[n] = t.Num
		case *values.String:
			env[n] = t.Text
		case *values.Special:
			env[n] = t.Show()
		default:
			env[n] = nil
		}
	}
	out, err := expr.Run(e.program, env)
	if err != nil {
		return values.Unknown
	}
	switch t := out.(type) {
	case float64:
		return e.in.Real(t)
	case int:
		return e.in.Real(float64(t))
	case bool:
		if t {
			return values.True
		}
		return values.False
	case string:
		return e.in.String(t)
	default:
		return values.Unknown
	}
}

// JQCell evaluates a compiled gojq filter against a single operand
// holding JSON text, the "jq" transform mode the teacher runs beside
// expr-lang/expr in its own transform builtin — here it's NodeBrain's
// general-expression escape hatch (spec.md §4.5) for data shaped as a
// JSON document rather than the flat named scalars ExprCell expects.
// The filter is parsed and compiled once at construction time.
type JQCell struct {
	base   cellgraph.Base
	code   *gojq.Code
	source cellgraph.Cell
	in     *values.Interner
}

// NewJQCell compiles filter once against source, a cell expected to
// hold a *values.String of JSON text (or, if it fails to parse as
// JSON, the raw text is passed through as the jq input value).
func NewJQCell(id, filter string, source cellgraph.Cell, in *values.Interner) (*JQCell, error) {
	query, err := gojq.Parse(filter)
	if err != nil {
		return nil, fmt.Errorf("nbexpr: parse jq filter %q: %w", filter, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("nbexpr: compile jq filter %q: %w", filter, err)
	}
	j := &JQCell{code: code, source: source, in: in}
	j.base.ID = id
	return j, nil
}

func (j *JQCell) Base() *cellgraph.Base      { return &j.base }
func (j *JQCell) Kind() object.Kind          { return callDesc.Kind }
func (j *JQCell) Operands() []cellgraph.Cell { return []cellgraph.Cell{j.source} }
func (j *JQCell) Show() string               { return "jq:" + j.base.ID }

func (j *JQCell) Eval(ctx context.Context) values.Value {
	sv, ok := j.source.Base().Value().(*values.String)
	if !ok {
		return values.Unknown
	}

	var data any
	if err := json.Unmarshal([]byte(sv.Text), &data); err != nil {
		data = sv.Text
	}

	iter := j.code.Run(data)
	out, ok := iter.Next()
	if !ok {
		return values.Unknown
	}
	if _, isErr := out.(error); isErr {
		return values.Unknown
	}

	switch t := out.(type) {
	case float64:
		return j.in.Real(t)
	case int:
		return j.in.Real(float64(t))
	case bool:
		if t {
			return values.True
		}
		return values.False
	case string:
		return j.in.String(t)
	case nil:
		return values.Unknown
	default:
		encoded, err := json.Marshal(t)
		if err != nil {
			return values.Unknown
		}
		return j.in.String(string(encoded))
	}
}
