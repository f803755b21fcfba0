package nodebrain

import (
	"context"
	"fmt"
	"strings"

	"github.com/nodebrain/nodebrain/internal/cellgraph"
	"github.com/nodebrain/nodebrain/internal/nbexpr"
	"github.com/nodebrain/nodebrain/internal/object"
	"github.com/nodebrain/nodebrain/internal/skill"
	"github.com/nodebrain/nodebrain/internal/term"
	"github.com/nodebrain/nodebrain/internal/values"
)

// TermLocate returns the term declared at path, if any.
func (e *Engine) TermLocate(path string) (*term.Term, bool) {
	return e.glossary.Locate(path)
}

// TermNew declares a fresh, unassigned term at path.
func (e *Engine) TermNew(ctx context.Context, path string) (*term.Term, error) {
	return e.glossary.New(ctx, path)
}

// TermAssign binds path to def, auto-declaring the term if needed.
func (e *Engine) TermAssign(ctx context.Context, path string, def cellgraph.Cell) error {
	return e.glossary.Assign(ctx, path, def)
}

func (e *Engine) registerCell(id string, c cellgraph.Cell) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cells[id] = c
}

func (e *Engine) lookupCell(id string) (cellgraph.Cell, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.cells[id]
	return c, ok
}

// CellCreateString creates and enables a named leaf cell holding s.
func (e *Engine) CellCreateString(ctx context.Context, id, s string) cellgraph.Cell {
	c := cellgraph.NewConst(id, e.interner.String(s), object.KindString)
	e.graph.Enable(ctx, c)
	e.registerCell(id, c)
	return c
}

// CellCreateReal creates and enables a named leaf cell holding n.
func (e *Engine) CellCreateReal(ctx context.Context, id string, n float64) cellgraph.Cell {
	c := cellgraph.NewConst(id, e.interner.Real(n), object.KindReal)
	e.graph.Enable(ctx, c)
	e.registerCell(id, c)
	return c
}

// CellGetType reports the Kind of the named cell.
func (e *Engine) CellGetType(id string) (object.Kind, bool) {
	c, ok := e.lookupCell(id)
	if !ok {
		return 0, false
	}
	return c.Kind(), true
}

// CellGetString reads the named cell's current value as a string. It
// fails if the cell's value is not a *values.String (e.g. Unknown, or a
// real).
func (e *Engine) CellGetString(id string) (string, bool) {
	c, ok := e.lookupCell(id)
	if !ok {
		return "", false
	}
	s, ok := c.Base().Value().(*values.String)
	if !ok {
		return "", false
	}
	return s.Text, true
}

// CellGetReal reads the named cell's current value as a real.
func (e *Engine) CellGetReal(id string) (float64, bool) {
	c, ok := e.lookupCell(id)
	if !ok {
		return 0, false
	}
	r, ok := c.Base().Value().(*values.Real)
	if !ok {
		return 0, false
	}
	return r.Num, true
}

// CellGetName reports the registry key a cell was created under. Since
// the registry is itself keyed by that name, this just confirms
// membership — it exists to round out the §4.11 Cell* surface for
// callers that only hold a cellgraph.Cell and want to recover its name.
func (e *Engine) CellGetName(id string) (string, bool) {
	if _, ok := e.lookupCell(id); !ok {
		return "", false
	}
	return id, true
}

// CellEnable increments the named cell's subscriber count, computing its
// initial value on the first call.
func (e *Engine) CellEnable(ctx context.Context, id string) error {
	c, ok := e.lookupCell(id)
	if !ok {
		return fmt.Errorf("nodebrain: cell %q not found", id)
	}
	e.graph.Enable(ctx, c)
	return nil
}

// CellDisable decrements the named cell's subscriber count, disabling it
// (and marking its value Disabled) once it reaches zero.
func (e *Engine) CellDisable(ctx context.Context, id string) error {
	c, ok := e.lookupCell(id)
	if !ok {
		return fmt.Errorf("nodebrain: cell %q not found", id)
	}
	e.graph.Disable(ctx, c)
	return nil
}

// CellCompute forces a one-off recomputation of the named cell from its
// operands' current values, bypassing the live graph's cached value —
// useful for an interactive "what would this evaluate to right now"
// query that shouldn't itself trigger propagation.
func (e *Engine) CellCompute(ctx context.Context, id string) (values.Value, error) {
	c, ok := e.lookupCell(id)
	if !ok {
		return nil, fmt.Errorf("nodebrain: cell %q not found", id)
	}
	return c.Eval(ctx), nil
}

// CellPublish sets the named cell's value and propagates the change
// through the graph if it actually differs from the cached value.
func (e *Engine) CellPublish(ctx context.Context, id string, v values.Value) error {
	c, ok := e.lookupCell(id)
	if !ok {
		return fmt.Errorf("nodebrain: cell %q not found", id)
	}
	e.graph.Publish(ctx, c, v)
	return nil
}

// CellDrop disables and forgets the named cell.
func (e *Engine) CellDrop(ctx context.Context, id string) error {
	c, ok := e.lookupCell(id)
	if !ok {
		return fmt.Errorf("nodebrain: cell %q not found", id)
	}
	e.graph.Disable(ctx, c)
	e.mu.Lock()
	delete(e.cells, id)
	e.mu.Unlock()
	return nil
}

// ListOpen opens (creating if absent) the named mutable value list.
func (e *Engine) ListOpen(name string) *nbexpr.List {
	return nbexpr.Open(name)
}

// ListGet reads the value at index in the named list.
func (e *Engine) ListGet(name string, index int) (values.Value, error) {
	l, ok := nbexpr.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("nodebrain: list %q not open", name)
	}
	return l.Get(index)
}

// ListInsert inserts v at index in the named list.
func (e *Engine) ListInsert(name string, index int, v values.Value) error {
	l, ok := nbexpr.Lookup(name)
	if !ok {
		return fmt.Errorf("nodebrain: list %q not open", name)
	}
	return l.Insert(index, v)
}

// AssertionAddTermValue declares an Assertion leaf cell and binds it to
// path in the glossary, the way a rule's "assert" action creates a fact
// under a fresh name. The assertion starts at values.Unknown; callers
// publish to it through CellPublish (using path as the cell ID) to give
// it a value.
func (e *Engine) AssertionAddTermValue(ctx context.Context, path string) (*nbexpr.Assertion, error) {
	a := nbexpr.NewAssertion(path)
	e.graph.Enable(ctx, a)
	e.registerCell(path, a)
	if err := e.glossary.Assign(ctx, path, a); err != nil {
		return nil, err
	}
	return a, nil
}

// alertContext derives the alert context a path belongs to: the dotted
// prefix before its last component, matching the "<node>. <subcommand>"
// context the command surface dispatches into (spec.md §6, §8 S5's "N."
// grouping of "N.t" and "N.other"). A path with no dot is its own
// context.
func alertContext(path string) string {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return path
	}
	return path[:i]
}

// Alert applies one round of term=value assignments the way the
// "alert" command does (spec.md §4.9/§6/§8 S5): unlike assert, an
// alert round marks every path it touches transient within its
// context, and reverts to Unknown any path the same context marked
// transient on a prior round but this round omits. assigns's paths
// must share a single alertContext, or callers should split them per
// context and call Alert once per group.
func (e *Engine) Alert(ctx context.Context, assigns map[string]values.Value) error {
	if len(assigns) == 0 {
		return nil
	}
	var alertCtx string
	paths := make([]string, 0, len(assigns))
	for path := range assigns {
		paths = append(paths, path)
		alertCtx = alertContext(path)
	}

	for _, path := range e.glossary.TransientPaths(alertCtx) {
		if _, ok := assigns[path]; ok {
			continue
		}
		c, ok := e.lookupCell(path)
		if !ok {
			continue
		}
		e.graph.Publish(ctx, c, values.Unknown)
	}

	for path, v := range assigns {
		c, ok := e.lookupCell(path)
		if !ok {
			var err error
			c, err = e.AssertionAddTermValue(ctx, path)
			if err != nil {
				return err
			}
		}
		e.graph.Publish(ctx, c, v)
	}

	e.glossary.SetTransient(alertCtx, paths)
	return nil
}

// NodeAlert reports an external event on a bound node: it invokes the
// node's skill Alarm facet and, if a cell was registered under the same
// name (AssertionAddTermValue or a node-call cell sharing the node's ID),
// re-notifies it so any rule waiting on it re-checks its trigger. This is
// the "node_alert" hook of spec.md §9's resolved open question: rather
// than an independent trigger source, it is an explicit post-assert walk
// of whatever is already subscribed to the node's cell.
func (e *Engine) NodeAlert(ctx context.Context, node string) error {
	n, ok := e.skills.NodeByName(node)
	if !ok {
		return fmt.Errorf("nodebrain: node %q not bound", node)
	}
	if err := n.Skill.Methods.Alarm(ctx, node); err != nil {
		return err
	}
	if c, ok := e.lookupCell(node); ok {
		e.graph.Renotify(ctx, c)
	}
	return nil
}

// SkillDeclare registers a new skill under name with null-stub facets.
func (e *Engine) SkillDeclare(name string) (*skill.Skill, error) {
	return e.skills.Declare(name)
}

// SkillSetMethod overrides one facet of a declared skill's method
// vector. facet names one of Methods' thirteen fields (lowercase, e.g.
// "evaluate", "bind", "alarm"); fn must have that facet's exact function
// signature or SkillSetMethod returns an error instead of silently
// leaving the null-stub in place.
func (e *Engine) SkillSetMethod(name, facet string, fn any) error {
	s, ok := e.skills.Get(name)
	if !ok {
		return fmt.Errorf("nodebrain: skill %q not declared", name)
	}
	switch facet {
	case "bind":
		f, ok := fn.(func(ctx context.Context, args []string) error)
		if !ok {
			return fmt.Errorf("nodebrain: facet %q: wrong function signature", facet)
		}
		s.Methods.Bind = f
	case "close":
		f, ok := fn.(func(ctx context.Context) error)
		if !ok {
			return fmt.Errorf("nodebrain: facet %q: wrong function signature", facet)
		}
		s.Methods.Close = f
	case "read":
		f, ok := fn.(func(ctx context.Context, node string) (values.Value, error))
		if !ok {
			return fmt.Errorf("nodebrain: facet %q: wrong function signature", facet)
		}
		s.Methods.Read = f
	case "write":
		f, ok := fn.(func(ctx context.Context, node string, args []string) error)
		if !ok {
			return fmt.Errorf("nodebrain: facet %q: wrong function signature", facet)
		}
		s.Methods.Write = f
	case "parse":
		f, ok := fn.(func(ctx context.Context, source string) (cellgraph.Cell, error))
		if !ok {
			return fmt.Errorf("nodebrain: facet %q: wrong function signature", facet)
		}
		s.Methods.Parse = f
	case "evaluate":
		f, ok := fn.(func(ctx context.Context, node string, args []values.Value) (values.Value, error))
		if !ok {
			return fmt.Errorf("nodebrain: facet %q: wrong function signature", facet)
		}
		s.Methods.Evaluate = f
	case "solve":
		f, ok := fn.(func(ctx context.Context, node string) error)
		if !ok {
			return fmt.Errorf("nodebrain: facet %q: wrong function signature", facet)
		}
		s.Methods.Solve = f
	case "enable":
		f, ok := fn.(func(ctx context.Context, node string) error)
		if !ok {
			return fmt.Errorf("nodebrain: facet %q: wrong function signature", facet)
		}
		s.Methods.Enable = f
	case "disable":
		f, ok := fn.(func(ctx context.Context, node string) error)
		if !ok {
			return fmt.Errorf("nodebrain: facet %q: wrong function signature", facet)
		}
		s.Methods.Disable = f
	case "alarm":
		f, ok := fn.(func(ctx context.Context, node string) error)
		if !ok {
			return fmt.Errorf("nodebrain: facet %q: wrong function signature", facet)
		}
		s.Methods.Alarm = f
	case "show":
		f, ok := fn.(func(ctx context.Context, node string) string)
		if !ok {
			return fmt.Errorf("nodebrain: facet %q: wrong function signature", facet)
		}
		s.Methods.Show = f
	case "status":
		f, ok := fn.(func(ctx context.Context, node string) string)
		if !ok {
			return fmt.Errorf("nodebrain: facet %q: wrong function signature", facet)
		}
		s.Methods.Status = f
	case "command":
		f, ok := fn.(func(ctx context.Context, node string, verb string, args []string) error)
		if !ok {
			return fmt.Errorf("nodebrain: facet %q: wrong function signature", facet)
		}
		s.Methods.Command = f
	default:
		return fmt.Errorf("nodebrain: unknown facet %q", facet)
	}
	return nil
}
