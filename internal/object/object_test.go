package object

import "testing"

func TestDescriptorTrueSet(t *testing.T) {
	falseDesc := &Descriptor{Name: "false", Kind: KindFalse, Attrs: AttrIsSpecial | AttrNotTrue}
	trueDesc := &Descriptor{Name: "true", Kind: KindTrue, Attrs: AttrIsSpecial}

	if falseDesc.InTrueSet() {
		t.Fatal("false descriptor should not be in the true set")
	}
	if !trueDesc.InTrueSet() {
		t.Fatal("true descriptor should be in the true set")
	}
}

func TestRefcountPermanentNeverReleases(t *testing.T) {
	h := &Header{Refcount: RefcountPermanent}
	h.Retain()
	if h.Refcount != RefcountPermanent {
		t.Fatalf("permanent refcount changed: %d", h.Refcount)
	}
	if h.Release() {
		t.Fatal("permanent object reported reaching zero")
	}
}

func TestRefcountLifecycle(t *testing.T) {
	h := &Header{Refcount: 1}
	h.Retain()
	if h.Refcount != 2 {
		t.Fatalf("expected refcount 2, got %d", h.Refcount)
	}
	if h.Release() {
		t.Fatal("should not have reached zero yet")
	}
	if !h.Release() {
		t.Fatal("expected reaching zero on second release")
	}
}

func TestRegisterLookup(t *testing.T) {
	d := Register(&Descriptor{Name: "string", Kind: KindString})
	if Lookup(KindString) != d {
		t.Fatal("lookup did not return registered descriptor")
	}
}
