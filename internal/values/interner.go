package values

import (
	"github.com/nodebrain/nodebrain/internal/hashcons"
	"github.com/nodebrain/nodebrain/internal/object"
	"github.com/nodebrain/nodebrain/internal/objheap"
)

// Interner hash-cons's String and Real values, following the use-or-locate
// protocol of spec.md §4.3: probe the table, return the existing object on
// a hit, otherwise allocate, link, and return the new one. New objects are
// ordinary Go allocations; the objheap.Pool given to NewInterner is stored
// but not allocated from.
type Interner struct {
	strings *hashcons.Table
	reals   *hashcons.Table
	pool    *objheap.Pool
}

// NewInterner creates an Interner that stores pool (which may be nil).
func NewInterner(pool *objheap.Pool) *Interner {
	return &Interner{
		strings: hashcons.New(256),
		reals:   hashcons.New(64),
		pool:    pool,
	}
}

// String returns the interned String for s, allocating one on first use.
func (in *Interner) String(s string) *String {
	probe := &String{Text: s}
	if v, ok := in.strings.Locate(probe); ok {
		found := v.(*String)
		found.Retain()
		return found
	}
	obj := &String{
		Header: object.Header{Type: stringDesc, Refcount: 1},
		Text:   s,
	}
	in.strings.Insert(obj, obj)
	return obj
}

// Real returns the interned Real for n, allocating one on first use.
func (in *Interner) Real(n float64) *Real {
	probe := &Real{Num: n}
	if v, ok := in.reals.Locate(probe); ok {
		found := v.(*Real)
		found.Retain()
		return found
	}
	obj := &Real{
		Header: object.Header{Type: realDesc, Refcount: 1},
		Num:    n,
	}
	in.reals.Insert(obj, obj)
	return obj
}

// Release drops one reference to v and, if it reached zero, unlinks it
// from the intern table so a later identical value is re-allocated rather
// than resurrected.
func (in *Interner) Release(v Value) {
	switch t := v.(type) {
	case *String:
		if t.Header.Release() {
			in.strings.Remove(t)
		}
	case *Real:
		if t.Header.Release() {
			in.reals.Remove(t)
		}
	}
}

// Len reports live-entry counts, for the stats/show command surface.
func (in *Interner) Len() (strings, reals int) {
	return in.strings.Len(), in.reals.Len()
}
