// Package objheap is NodeBrain's fixed-size-class object pool. The original
// engine carves objects out of page-sized slabs and keeps a free list per
// size class instead of calling malloc/free per object; Pool reproduces
// that discipline over Go byte slices. No other package allocates from a
// Pool: internal/hashcons entries and internal/values' strings and reals
// are ordinary Go allocations, and values.Interner only stores the Pool it
// is given.
package objheap

import (
	"sync"
)

// PageSize is the slab size carved off the runtime heap on a class miss.
const PageSize = 128 * 1024

// MaxClassedSize is the largest allocation served from a size class; larger
// requests fall back to a direct make(), matching the original's "large
// object" path.
const MaxClassedSize = 4096

const classGranularity = 8
const numClasses = MaxClassedSize/classGranularity + 1

// Stats counts pool activity for the show/stats command surface.
type Stats struct {
	Allocs         uint64
	Frees          uint64
	PagesAllocated uint64
	LargeAllocs    uint64
}

// Pool is a slab allocator with one free list per 8-byte size class. It is
// not safe for concurrent use: the engine it backs is single-threaded by
// design (spec.md §5), so Pool carries no locking beyond protecting the
// rare case where diagnostics are read from another goroutine.
type Pool struct {
	classes [numClasses][][]byte
	cur     []byte

	mu    sync.Mutex // guards Stats only, for concurrent-read callers (show/stats)
	stats Stats
}

// New creates an empty pool.
func New() *Pool {
	return &Pool{}
}

func classIndex(n int) int {
	return (n - 1) / classGranularity
}

func roundUp(n int) int {
	return ((n + classGranularity - 1) / classGranularity) * classGranularity
}

// Alloc returns a zeroed buffer of at least n bytes. Buffers above
// MaxClassedSize are allocated directly and never pooled.
func (p *Pool) Alloc(n int) []byte {
	if n <= 0 {
		return nil
	}
	if n > MaxClassedSize {
		p.bump(&p.stats.LargeAllocs)
		return make([]byte, n)
	}

	class := classIndex(n)
	if free := p.classes[class]; len(free) > 0 {
		buf := free[len(free)-1]
		p.classes[class] = free[:len(free)-1]
		p.bump(&p.stats.Allocs)
		clear(buf)
		return buf[:n]
	}

	rounded := roundUp(n)
	if len(p.cur) < rounded {
		p.cur = p.allocPage()
	}
	buf := p.cur[:rounded:rounded]
	p.cur = p.cur[rounded:]
	p.bump(&p.stats.Allocs)
	return buf[:n]
}

// Free returns b to its size class's free list. Buffers larger than
// MaxClassedSize are dropped for the garbage collector to reclaim.
func (p *Pool) Free(b []byte) {
	n := cap(b)
	if n == 0 || n > MaxClassedSize {
		p.bump(&p.stats.Frees)
		return
	}
	class := classIndex(n)
	p.classes[class] = append(p.classes[class], b[:n])
	p.bump(&p.stats.Frees)
}

func (p *Pool) allocPage() []byte {
	p.mu.Lock()
	p.stats.PagesAllocated++
	p.mu.Unlock()
	return make([]byte, PageSize)
}

func (p *Pool) bump(counter *uint64) {
	p.mu.Lock()
	*counter++
	p.mu.Unlock()
}

// Stats returns a snapshot of allocation counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func clear(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
