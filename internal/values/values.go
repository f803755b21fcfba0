// Package values implements NodeBrain's interned value cells: String and
// Real, hash-consed so structurally equal values always share one object
// (spec.md §4.4), plus the five special sentinels (Unknown, False, True,
// Placeholder, Disabled) that every reactive cell can publish instead of a
// value when its operands don't yet resolve to one.
package values

import (
	"math"
	"strconv"

	"github.com/nodebrain/nodebrain/internal/object"
)

// Value is the sealed set of things a cell's value pointer may target:
// an interned String or Real, or one of the five specials.
type Value interface {
	Show() string
	Descriptor() *object.Descriptor
	valueMarker()
}

var (
	stringDesc      = object.Register(&object.Descriptor{Name: "string", Kind: object.KindString})
	realDesc        = object.Register(&object.Descriptor{Name: "real", Kind: object.KindReal})
	unknownDesc     = object.Register(&object.Descriptor{Name: "?", Kind: object.KindUnknown, Attrs: object.AttrIsSpecial | object.AttrNotTrue})
	falseDesc       = object.Register(&object.Descriptor{Name: "!?", Kind: object.KindFalse, Attrs: object.AttrIsSpecial | object.AttrNotTrue})
	trueDesc        = object.Register(&object.Descriptor{Name: "#", Kind: object.KindTrue, Attrs: object.AttrIsSpecial})
	placeholderDesc = object.Register(&object.Descriptor{Name: "_", Kind: object.KindPlaceholder, Attrs: object.AttrIsSpecial | object.AttrNotTrue})
	disabledDesc    = object.Register(&object.Descriptor{Name: "!", Kind: object.KindDisabled, Attrs: object.AttrIsSpecial | object.AttrNotTrue})
)

// String is an interned text value.
type String struct {
	object.Header
	Text string
}

func (s *String) Show() string                  { return strconv.Quote(s.Text) }
func (s *String) Descriptor() *object.Descriptor { return s.Type }
func (s *String) valueMarker()                   {}

// HashKey implements hashcons.Keyed with 32-bit FNV-1a (xor each byte,
// then multiply by the FNV prime) over the text.
func (s *String) HashKey() uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s.Text); i++ {
		h ^= uint32(s.Text[i])
		h *= 16777619
	}
	return h
}

func (s *String) EqualKey(other any) bool {
	o, ok := other.(*String)
	return ok && o.Text == s.Text
}

// Real is an interned floating-point value.
type Real struct {
	object.Header
	Num float64
}

func (r *Real) Show() string                  { return strconv.FormatFloat(r.Num, 'g', -1, 64) }
func (r *Real) Descriptor() *object.Descriptor { return r.Type }
func (r *Real) valueMarker()                   {}

func (r *Real) HashKey() uint32 {
	bits := math.Float64bits(r.Num)
	return uint32(bits) ^ uint32(bits>>32)
}

func (r *Real) EqualKey(other any) bool {
	o, ok := other.(*Real)
	return ok && o.Num == r.Num
}

// Special is one of the five permanent sentinel values.
type Special struct {
	object.Header
	Glyph string
}

func (s *Special) Show() string                  { return s.Glyph }
func (s *Special) Descriptor() *object.Descriptor { return s.Type }
func (s *Special) valueMarker()                   {}

// The five specials, allocated once and shared by reference everywhere;
// their refcount is permanent so Retain/Release never collect them.
var (
	Unknown     = &Special{Header: object.Header{Type: unknownDesc, Refcount: object.RefcountPermanent}, Glyph: "?"}
	False       = &Special{Header: object.Header{Type: falseDesc, Refcount: object.RefcountPermanent}, Glyph: "!?"}
	True        = &Special{Header: object.Header{Type: trueDesc, Refcount: object.RefcountPermanent}, Glyph: "#"}
	Placeholder = &Special{Header: object.Header{Type: placeholderDesc, Refcount: object.RefcountPermanent}, Glyph: "_"}
	Disabled    = &Special{Header: object.Header{Type: disabledDesc, Refcount: object.RefcountPermanent}, Glyph: "!"}
)

// IsTrue reports whether v belongs to the closed-world true set (spec.md
// §8 invariant 5): neither False, Unknown, Placeholder, nor Disabled.
func IsTrue(v Value) bool {
	return v != nil && v.Descriptor().InTrueSet()
}

// IsUnknown reports whether v is exactly the Unknown sentinel.
func IsUnknown(v Value) bool { return v == Unknown }

// IsSpecial reports whether v is one of the five sentinels rather than an
// interned String or Real.
func IsSpecial(v Value) bool {
	return v != nil && v.Descriptor().Has(object.AttrIsSpecial)
}
