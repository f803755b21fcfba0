package nbexpr

import (
	"fmt"
	"sync"

	"github.com/nodebrain/nodebrain/internal/diag"
	"github.com/nodebrain/nodebrain/internal/values"
)

// CallFunc is a built-in function a Call cell may invoke.
type CallFunc func(args []values.Value) (values.Value, error)

// CallRegistry is the named-function table Call cells dispatch through.
// It also tracks legacy aliases: names the original engine accepted that
// this one resolves to their canonical replacement while emitting a
// deprecation diagnostic (spec.md §9, Open Question on legacy call-name
// handling), rather than silently supporting two names forever or
// breaking existing rule files outright.
type CallRegistry struct {
	mu       sync.RWMutex
	funcs    map[string]CallFunc
	aliases  map[string]string
	reporter *diag.Reporter
}

// NewCallRegistry creates an empty registry reporting deprecations through r.
func NewCallRegistry(r *diag.Reporter) *CallRegistry {
	return &CallRegistry{
		funcs:    map[string]CallFunc{},
		aliases:  map[string]string{},
		reporter: r,
	}
}

// Register installs fn under name.
func (c *CallRegistry) Register(name string, fn CallFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.funcs[name] = fn
}

// Alias declares oldName as a deprecated synonym for canonical. Resolving
// oldName still works but reports CodeDeprecatedAlias each time it is
// resolved.
func (c *CallRegistry) Alias(oldName, canonical string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aliases[oldName] = canonical
}

// Resolve looks up name, following at most one alias hop and reporting a
// deprecation warning when it does.
func (c *CallRegistry) Resolve(name string) (CallFunc, string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	canonical := name
	if target, ok := c.aliases[name]; ok {
		if c.reporter != nil {
			c.reporter.Report(diag.CodeDeprecatedAlias, diag.ClassWarning,
				"call function %q is deprecated, use %q", name, target)
		}
		canonical = target
	}
	fn, ok := c.funcs[canonical]
	if !ok {
		return nil, "", fmt.Errorf("call: unknown function %q", name)
	}
	return fn, canonical, nil
}

// Has reports whether name (directly or via alias) resolves to a
// registered function.
func (c *CallRegistry) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := name
	if target, ok := c.aliases[n]; ok {
		n = target
	}
	_, ok := c.funcs[n]
	return ok
}
