// Package term implements NodeBrain's term glossary: a dotted-path
// namespace of reassignable named cells (spec.md §4.6). A term forwards
// to whatever cell it is currently bound to; reassigning it disables the
// old binding, rewires to the new one, and re-propagates so anything
// subscribed to the term by name sees the new value immediately. Welding
// a term freezes its current binding permanently.
package term

import (
	"context"
	"fmt"
	"sync"

	"github.com/nodebrain/nodebrain/internal/cellgraph"
	"github.com/nodebrain/nodebrain/internal/object"
	"github.com/nodebrain/nodebrain/internal/values"
)

var termDesc = object.Register(&object.Descriptor{Name: "term", Kind: object.KindTerm})

// Term is a named, reassignable forwarding cell.
type Term struct {
	base   cellgraph.Base
	path   string
	def    cellgraph.Cell
	welded bool
}

// New creates an unassigned term at path. Its value is Unknown until
// Assign binds it to a definition.
func New(path string) *Term {
	return &Term{base: cellgraph.NewBase(path, values.Unknown), path: path}
}

func (t *Term) Base() *cellgraph.Base { return &t.base }
func (t *Term) Kind() object.Kind     { return termDesc.Kind }
func (t *Term) Path() string          { return t.path }
func (t *Term) Welded() bool          { return t.welded }

func (t *Term) Operands() []cellgraph.Cell {
	if t.def == nil {
		return nil
	}
	return []cellgraph.Cell{t.def}
}

func (t *Term) Eval(ctx context.Context) values.Value {
	if t.def == nil {
		return values.Unknown
	}
	return t.def.Base().Value()
}

func (t *Term) Show() string { return t.path }

func (t *Term) setDef(def cellgraph.Cell) { t.def = def }

// Glossary is the dotted-path namespace of terms, mirroring spec.md
// §4.6's term-assignment/welded-definition semantics.
type Glossary struct {
	mu     sync.RWMutex
	terms  map[string]*Term
	engine *cellgraph.Engine

	// transient tracks, per alert context (a node's dotted-path prefix),
	// the set of term paths the most recent alert round there set —
	// spec.md §4.9's transient terms, reverted to Unknown once a later
	// alert round in the same context omits them (§8 S5).
	transient map[string]map[string]bool
}

// NewGlossary creates an empty glossary driven by e.
func NewGlossary(e *cellgraph.Engine) *Glossary {
	return &Glossary{terms: map[string]*Term{}, engine: e}
}

// Locate returns the term at path, if it has been declared.
func (g *Glossary) Locate(path string) (*Term, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	t, ok := g.terms[path]
	return t, ok
}

// New declares a fresh, unassigned term at path. It is an error to
// declare the same path twice.
func (g *Glossary) New(ctx context.Context, path string) (*Term, error) {
	g.mu.Lock()
	if _, exists := g.terms[path]; exists {
		g.mu.Unlock()
		return nil, fmt.Errorf("term: %q already declared", path)
	}
	t := New(path)
	g.terms[path] = t
	g.mu.Unlock()

	g.engine.Enable(ctx, t)
	return t, nil
}

// Assign binds path to def, auto-declaring the term if it does not yet
// exist. Reassigning a welded term is rejected.
func (g *Glossary) Assign(ctx context.Context, path string, def cellgraph.Cell) error {
	g.mu.Lock()
	t, ok := g.terms[path]
	if !ok {
		t = New(path)
		g.terms[path] = t
		g.mu.Unlock()
		g.engine.Enable(ctx, t)
	} else {
		g.mu.Unlock()
	}

	if t.Welded() {
		return fmt.Errorf("term: %q is welded and cannot be reassigned", path)
	}

	// Drop every enable so the last Disable unwires t from its old
	// definition, then restore the same count; the first Enable wires t to
	// def and recomputes its level and value.
	n := 0
	for t.Base().Enabled() {
		g.engine.Disable(ctx, t)
		n++
	}
	if n == 0 {
		n = 1
	}
	t.setDef(def)
	for i := 0; i < n; i++ {
		g.engine.Enable(ctx, t)
	}
	g.engine.Renotify(ctx, t)
	return nil
}

// Weld freezes path's current binding; further Assign calls on it fail.
func (g *Glossary) Weld(path string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.terms[path]
	if !ok {
		return fmt.Errorf("term: %q not declared", path)
	}
	t.welded = true
	return nil
}

// TransientPaths returns the term paths the alert context ctxName set
// transient on its most recent round, if any.
func (g *Glossary) TransientPaths(ctxName string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	set := g.transient[ctxName]
	paths := make([]string, 0, len(set))
	for p := range set {
		paths = append(paths, p)
	}
	return paths
}

// SetTransient records paths as the alert context ctxName's current
// transient set, replacing whatever it recorded on the prior round.
func (g *Glossary) SetTransient(ctxName string, paths []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.transient == nil {
		g.transient = map[string]map[string]bool{}
	}
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[p] = true
	}
	g.transient[ctxName] = set
}

// List returns every declared term path, for the show command surface.
func (g *Glossary) List() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	paths := make([]string, 0, len(g.terms))
	for p := range g.terms {
		paths = append(paths, p)
	}
	return paths
}
