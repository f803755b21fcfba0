package hashcons

import "testing"

type intKey int

func (k intKey) HashKey() uint32 { return uint32(k) }
func (k intKey) EqualKey(other any) bool {
	o, ok := other.(intKey)
	return ok && o == k
}

func TestLocateInsert(t *testing.T) {
	tb := New(4)
	if _, ok := tb.Locate(intKey(1)); ok {
		t.Fatal("unexpected hit on empty table")
	}
	tb.Insert(intKey(1), "one")
	v, ok := tb.Locate(intKey(1))
	if !ok || v != "one" {
		t.Fatalf("expected hit with value 'one', got %v %v", v, ok)
	}
}

func TestGrowPreservesEntries(t *testing.T) {
	tb := New(4)
	for i := 0; i < 100; i++ {
		tb.Insert(intKey(i), i*10)
	}
	if tb.Len() != 100 {
		t.Fatalf("expected 100 entries, got %d", tb.Len())
	}
	for i := 0; i < 100; i++ {
		v, ok := tb.Locate(intKey(i))
		if !ok || v != i*10 {
			t.Fatalf("lost entry %d after grow: %v %v", i, v, ok)
		}
	}
}

func TestRemove(t *testing.T) {
	tb := New(4)
	tb.Insert(intKey(5), "five")
	tb.Remove(intKey(5))
	if _, ok := tb.Locate(intKey(5)); ok {
		t.Fatal("entry still present after remove")
	}
	if tb.Len() != 0 {
		t.Fatalf("expected length 0, got %d", tb.Len())
	}
}

func TestGrowthTriggersAtLoadFactor(t *testing.T) {
	tb := New(4)
	startBuckets := tb.Buckets()
	for i := 0; i < startBuckets*3/4+1; i++ {
		tb.Insert(intKey(i), i)
	}
	if tb.Buckets() <= startBuckets {
		t.Fatalf("expected growth after crossing 75%% load factor, buckets still %d", tb.Buckets())
	}
}
