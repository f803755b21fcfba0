// Package hashcons implements NodeBrain's hash-consing table: an
// open-chained hash table that guarantees structurally equal keys always
// map to the same stored object, growing by doubling whenever the load
// factor crosses 75% (spec.md §4.3). It backs internal/values' string and
// number interning; internal/nbexpr's expression cells are not interned
// through it.
package hashcons

const initialBuckets = 16
const growLoadFactor = 0.75

// Keyed is implemented by anything stored in a Table. HashKey must be
// stable for the lifetime of the entry; EqualKey compares structural
// equality against another Keyed of the same concrete type.
type Keyed interface {
	HashKey() uint32
	EqualKey(other any) bool
}

type entry struct {
	key   Keyed
	value any
	next  *entry
}

// Table is a singly-linked-chain hash table. It is not safe for concurrent
// use without external locking: the reactive core it serves is
// single-threaded by design (spec.md §5).
type Table struct {
	buckets []*entry
	mask    uint32
	count   int
}

// New creates a Table with at least minBuckets buckets (rounded up to a
// power of two, never fewer than 16). The first grow happens once an
// insert would take the entry count past 75% of the bucket count.
func New(minBuckets int) *Table {
	size := initialBuckets
	for size < minBuckets {
		size *= 2
	}
	return &Table{
		buckets: make([]*entry, size),
		mask:    uint32(size - 1),
	}
}

// Locate searches the chain for k's hash, returning the stored value on a
// structural match.
func (t *Table) Locate(k Keyed) (any, bool) {
	h := k.HashKey()
	for e := t.buckets[h&t.mask]; e != nil; e = e.next {
		if e.key.HashKey() == h && e.key.EqualKey(k) {
			return e.value, true
		}
	}
	return nil, false
}

// Insert links k/v into the table, growing first if the load factor would
// exceed growLoadFactor. Insert does not check for an existing equal key;
// callers follow the Locate-then-Insert protocol to avoid duplicates.
func (t *Table) Insert(k Keyed, v any) {
	if float64(t.count+1) > float64(len(t.buckets))*growLoadFactor {
		t.grow()
	}
	h := k.HashKey()
	idx := h & t.mask
	t.buckets[idx] = &entry{key: k, value: v, next: t.buckets[idx]}
	t.count++
}

// Remove unlinks the entry matching k, if present.
func (t *Table) Remove(k Keyed) {
	h := k.HashKey()
	idx := h & t.mask
	var prev *entry
	for e := t.buckets[idx]; e != nil; e = e.next {
		if e.key.HashKey() == h && e.key.EqualKey(k) {
			if prev == nil {
				t.buckets[idx] = e.next
			} else {
				prev.next = e.next
			}
			t.count--
			return
		}
		prev = e
	}
}

// Len reports the number of entries currently stored.
func (t *Table) Len() int { return t.count }

// Buckets reports the current bucket-array size, for diagnostics.
func (t *Table) Buckets() int { return len(t.buckets) }

func (t *Table) grow() {
	old := t.buckets
	next := make([]*entry, len(old)*2)
	newMask := uint32(len(next) - 1)

	for _, head := range old {
		for e := head; e != nil; {
			rest := e.next
			idx := e.key.HashKey() & newMask
			e.next = next[idx]
			next[idx] = e
			e = rest
		}
	}
	t.buckets = next
	t.mask = newMask
}
