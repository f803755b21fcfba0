// Package object implements NodeBrain's object header and type descriptor:
// the common fields every heap object carries (type pointer, reference
// count, cached hash) and the registry of built-in Kinds the rest of the
// engine dispatches on. Per the design note in spec.md §9, built-in cell
// kinds are realized as a closed Go type switch / interface set rather
// than a literal function-pointer vtable; the open-ended extension point
// (user-declared node skills) keeps a true method table, in
// internal/skill, because that surface is genuinely late-bound.
package object

import "sync"

// Kind tags the closed set of built-in object and cell kinds.
type Kind uint8

const (
	KindString Kind = iota
	KindReal
	KindUnknown
	KindFalse
	KindTrue
	KindPlaceholder
	KindDisabled
	KindMath
	KindRelational
	KindBoolean
	KindConditional
	KindList
	KindCall
	KindAssertion
	KindTimeCondition
	KindNodeCall
	KindTerm
	KindNode
	KindRule
)

var kindNames = map[Kind]string{
	KindString:        "string",
	KindReal:          "real",
	KindUnknown:       "unknown",
	KindFalse:         "false",
	KindTrue:          "true",
	KindPlaceholder:   "placeholder",
	KindDisabled:      "disabled",
	KindMath:          "math",
	KindRelational:    "relational",
	KindBoolean:       "boolean",
	KindConditional:   "conditional",
	KindList:          "list",
	KindCall:          "call",
	KindAssertion:     "assertion",
	KindTimeCondition: "time-condition",
	KindNodeCall:      "node-call",
	KindTerm:          "term",
	KindNode:          "node",
	KindRule:          "rule",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown-kind"
}

// Attr is a bitmask of type-level attributes consulted by evaluation and
// scheduling code (boolean-set membership, welded terms, regexp relations,
// and so on).
type Attr uint32

const (
	AttrIsSpecial Attr = 1 << iota
	AttrNotTrue        // member of the closed-world "not true" set (False, Unknown, Placeholder, Disabled)
	AttrIsMath
	AttrIsRelational
	AttrIsRegexpRelation
	AttrIsBoolean
	AttrIsTime
	AttrIsDelay
	AttrWelded
	AttrIsAssertion
	AttrIsRule
)

// Descriptor is the immutable metadata attached to every object of a given
// Kind: its display name, its Kind tag, and its attribute bits.
type Descriptor struct {
	Name  string
	Kind  Kind
	Attrs Attr
}

// Has reports whether all bits of a are set.
func (d *Descriptor) Has(a Attr) bool {
	return d != nil && d.Attrs&a == a
}

// InTrueSet reports whether a value of this type belongs to the
// closed-world "true" set: not False, not Unknown, not Placeholder, not
// Disabled (spec.md §4.4, §8 invariant 5).
func (d *Descriptor) InTrueSet() bool {
	return d != nil && d.Attrs&AttrNotTrue == 0
}

var (
	registryMu  sync.RWMutex
	descriptors = map[Kind]*Descriptor{}
)

// Register installs d in the global descriptor registry, keyed by its
// Kind, and returns it for convenient assignment to a package-level var.
func Register(d *Descriptor) *Descriptor {
	registryMu.Lock()
	defer registryMu.Unlock()
	descriptors[d.Kind] = d
	return d
}

// Lookup returns the descriptor registered for k, or nil if none was.
func Lookup(k Kind) *Descriptor {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return descriptors[k]
}

// RefcountPermanent marks an object (the five specials, welded terms) as
// never subject to collection: Retain/Release become no-ops.
const RefcountPermanent = ^uint32(0)

// Header is the common prefix every heap object embeds: its descriptor,
// reference count, and a Hash slot. Nothing in this module sets or reads
// Hash; internal/hashcons computes chain hashes through Keyed.HashKey.
type Header struct {
	Type     *Descriptor
	Refcount uint32
	Hash     uint32
}

// Retain increments the reference count unless the object is permanent.
func (h *Header) Retain() {
	if h.Refcount != RefcountPermanent {
		h.Refcount++
	}
}

// Release decrements the reference count and reports whether it reached
// zero (the caller should then unlink and free the object). Permanent
// objects always report false.
func (h *Header) Release() bool {
	if h.Refcount == RefcountPermanent || h.Refcount == 0 {
		return false
	}
	h.Refcount--
	return h.Refcount == 0
}
