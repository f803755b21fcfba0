// Package skill implements NodeBrain's node/skill dispatch: a registry of
// named skills, each exposing the fixed 13-function facet vector spec.md
// §4.10 describes, and the nodes that bind a skill to a configured
// instance. Unlike internal/object's closed set of built-in cell kinds,
// a skill's facets are genuinely late-bound — declared, and often
// partially overridden, at run time — so this is the one place in the
// engine that keeps a literal method table instead of a Go interface.
package skill

import (
	"context"
	"fmt"
	"sync"

	"github.com/nodebrain/nodebrain/internal/cellgraph"
	"github.com/nodebrain/nodebrain/internal/diag"
	"github.com/nodebrain/nodebrain/internal/values"
)

// Methods is the node skill facet vector. Every field defaults to a
// null-stub implementation (see defaultMethods) that reports
// CodeSkillUnbound and returns a harmless zero value, so a skill that
// only implements a handful of facets behaves safely on the rest rather
// than nil-panicking when dispatched.
type Methods struct {
	Bind     func(ctx context.Context, args []string) error
	Close    func(ctx context.Context) error
	Read     func(ctx context.Context, node string) (values.Value, error)
	Write    func(ctx context.Context, node string, args []string) error
	Parse    func(ctx context.Context, source string) (cellgraph.Cell, error)
	Evaluate func(ctx context.Context, node string, args []values.Value) (values.Value, error)
	Solve    func(ctx context.Context, node string) error
	Enable   func(ctx context.Context, node string) error
	Disable  func(ctx context.Context, node string) error
	Alarm    func(ctx context.Context, node string) error
	Show     func(ctx context.Context, node string) string
	Status   func(ctx context.Context, node string) string
	Command  func(ctx context.Context, node string, verb string, args []string) error
}

func defaultMethods(name string, r *diag.Reporter) Methods {
	unbound := func(facet string) {
		if r != nil {
			r.Report(diag.CodeSkillUnbound, diag.ClassWarning, "skill %q: facet %q is not implemented", name, facet)
		}
	}
	return Methods{
		Bind:  func(ctx context.Context, args []string) error { unbound("bind"); return nil },
		Close: func(ctx context.Context) error { unbound("close"); return nil },
		Read: func(ctx context.Context, node string) (values.Value, error) {
			unbound("read")
			return values.Unknown, nil
		},
		Write: func(ctx context.Context, node string, args []string) error { unbound("write"); return nil },
		Parse: func(ctx context.Context, source string) (cellgraph.Cell, error) {
			unbound("parse")
			return nil, fmt.Errorf("skill: parse not implemented")
		},
		Evaluate: func(ctx context.Context, node string, args []values.Value) (values.Value, error) {
			unbound("evaluate")
			return values.Unknown, nil
		},
		Solve:   func(ctx context.Context, node string) error { unbound("solve"); return nil },
		Enable:  func(ctx context.Context, node string) error { unbound("enable"); return nil },
		Disable: func(ctx context.Context, node string) error { unbound("disable"); return nil },
		Alarm:   func(ctx context.Context, node string) error { unbound("alarm"); return nil },
		Show:    func(ctx context.Context, node string) string { unbound("show"); return "" },
		Status:  func(ctx context.Context, node string) string { unbound("status"); return "unknown" },
		Command: func(ctx context.Context, node, verb string, args []string) error {
			unbound("command")
			return nil
		},
	}
}

// Skill is a declared skill: a name and its facet vector.
type Skill struct {
	Name    string
	Methods Methods
}

// Node is a skill bound to a concrete node name and configuration.
type Node struct {
	Name  string
	Skill *Skill
	Args  []string
}

// Registry is the process-wide skill and node table.
type Registry struct {
	mu       sync.RWMutex
	skills   map[string]*Skill
	nodes    map[string]*Node
	reporter *diag.Reporter
}

// NewRegistry creates an empty registry reporting unbound facets through r.
func NewRegistry(r *diag.Reporter) *Registry {
	return &Registry{skills: map[string]*Skill{}, nodes: map[string]*Node{}, reporter: r}
}

// Declare registers a new skill under name with all-default (null-stub)
// facets and returns it so the caller can override specific facets by
// assigning fields of its Methods.
func (r *Registry) Declare(name string) (*Skill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.skills[name]; exists {
		return nil, fmt.Errorf("skill: %q already declared", name)
	}
	s := &Skill{Name: name, Methods: defaultMethods(name, r.reporter)}
	r.skills[name] = s
	return s, nil
}

// Get returns the named skill.
func (r *Registry) Get(name string) (*Skill, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.skills[name]
	return s, ok
}

// Has reports whether a skill is declared under name.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// List returns every declared skill name.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.skills))
	for n := range r.skills {
		names = append(names, n)
	}
	return names
}

// Unregister removes a skill and every node still bound to it.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.skills, name)
	for nodeName, n := range r.nodes {
		if n.Skill.Name == name {
			delete(r.nodes, nodeName)
		}
	}
}

// BindNode declares a node instance of skillName, bound under nodeName
// with args, and calls the skill's Bind facet.
func (r *Registry) BindNode(ctx context.Context, nodeName, skillName string, args []string) (*Node, error) {
	r.mu.Lock()
	s, ok := r.skills[skillName]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("skill: %q not declared", skillName)
	}
	if _, exists := r.nodes[nodeName]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("skill: node %q already bound", nodeName)
	}
	n := &Node{Name: nodeName, Skill: s, Args: args}
	r.nodes[nodeName] = n
	r.mu.Unlock()

	return n, s.Methods.Bind(ctx, args)
}

// NodeByName returns the node bound under name.
func (r *Registry) NodeByName(name string) (*Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[name]
	return n, ok
}

// EvaluateNode dispatches to the bound node's Evaluate facet. It
// satisfies internal/nbexpr's NodeEvaluator interface, letting NodeCall
// cells reach skill dispatch without nbexpr importing this package.
func (r *Registry) EvaluateNode(ctx context.Context, node string, args []values.Value) (values.Value, error) {
	n, ok := r.NodeByName(node)
	if !ok {
		return values.Unknown, fmt.Errorf("skill: node %q not bound", node)
	}
	return n.Skill.Methods.Evaluate(ctx, node, args)
}
