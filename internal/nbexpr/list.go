package nbexpr

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/nodebrain/nodebrain/internal/cellgraph"
	"github.com/nodebrain/nodebrain/internal/object"
	"github.com/nodebrain/nodebrain/internal/values"
)

var listCellDesc = object.Register(&object.Descriptor{Name: "list", Kind: object.KindList})

// ListCell is the reactive list expression cell of spec.md §3/§4.5: a
// sequence of member cells evaluated as one unit. Unlike List (the
// mutable value container below, backing the unrelated ListOpen/
// ListGet/ListInsert command surface), a ListCell never holds its
// members' values itself — it only announces that one of them changed.
// Its own value is Unknown whenever any member is Unknown, and
// otherwise toggles between True and False on every change (spec.md
// §4.2's "list semantics"), so a subscriber notices an internal member
// change even though the toggle carries no information about which
// member changed or what it became — the subscriber re-reads the
// members directly.
type ListCell struct {
	base    cellgraph.Base
	members []cellgraph.Cell
	toggle  bool
}

// NewListCell builds a list cell over members, in order.
func NewListCell(id string, members ...cellgraph.Cell) *ListCell {
	l := &ListCell{members: members}
	l.base.ID = id
	return l
}

func (l *ListCell) Base() *cellgraph.Base      { return &l.base }
func (l *ListCell) Kind() object.Kind          { return listCellDesc.Kind }
func (l *ListCell) Operands() []cellgraph.Cell { return l.members }

func (l *ListCell) Show() string {
	parts := make([]string, len(l.members))
	for i, m := range l.members {
		parts[i] = m.Show()
	}
	return "(" + strings.Join(parts, ",") + ")"
}

func (l *ListCell) Eval(ctx context.Context) values.Value {
	for _, m := range l.members {
		if values.IsUnknown(m.Base().Value()) {
			return values.Unknown
		}
	}
	l.toggle = !l.toggle
	if l.toggle {
		return values.True
	}
	return values.False
}

// List is NodeBrain's ordered collection type, backing the ListOpen/
// ListGet/ListInsert command surface of spec.md §4.11. Unlike expression
// cells, a list is not itself reactive: it is an ordinary mutable
// container of interned values that node skills and plan instructions
// read and write directly.
type List struct {
	mu    sync.Mutex
	name  string
	items []values.Value
}

var (
	registryMu sync.RWMutex
	registry   = map[string]*List{}
)

// Open returns the named list, creating an empty one if it does not yet
// exist (ListOpen is idempotent per spec.md §6).
func Open(name string) *List {
	registryMu.Lock()
	defer registryMu.Unlock()
	if l, ok := registry[name]; ok {
		return l
	}
	l := &List{name: name}
	registry[name] = l
	return l
}

// Lookup returns the named list if it has already been opened.
func Lookup(name string) (*List, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	l, ok := registry[name]
	return l, ok
}

// Name returns the list's name.
func (l *List) Name() string { return l.name }

// Len returns the number of elements currently in the list.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Get returns the element at index, or an error if out of range.
func (l *List) Get(index int) (values.Value, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index >= len(l.items) {
		return nil, fmt.Errorf("list %q: index %d out of range [0,%d)", l.name, index, len(l.items))
	}
	return l.items[index], nil
}

// Insert places v at index, shifting subsequent elements right. Inserting
// at len(items) appends.
func (l *List) Insert(index int, v values.Value) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index > len(l.items) {
		return fmt.Errorf("list %q: insert index %d out of range [0,%d]", l.name, index, len(l.items))
	}
	l.items = append(l.items, nil)
	copy(l.items[index+1:], l.items[index:])
	l.items[index] = v
	return nil
}

// Append adds v to the end of the list.
func (l *List) Append(v values.Value) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, v)
}

// Remove deletes the element at index.
func (l *List) Remove(index int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index >= len(l.items) {
		return fmt.Errorf("list %q: remove index %d out of range [0,%d)", l.name, index, len(l.items))
	}
	l.items = append(l.items[:index], l.items[index+1:]...)
	return nil
}

// Items returns a copy of the list's current contents.
func (l *List) Items() []values.Value {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]values.Value, len(l.items))
	copy(out, l.items)
	return out
}
