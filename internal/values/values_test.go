package values

import (
	"testing"

	"github.com/nodebrain/nodebrain/internal/objheap"
)

func TestInternerDedupesEqualValues(t *testing.T) {
	in := NewInterner(objheap.New())
	a := in.String("hello")
	b := in.String("hello")
	if a != b {
		t.Fatal("equal strings were not interned to the same object")
	}

	x := in.Real(3.5)
	y := in.Real(3.5)
	if x != y {
		t.Fatal("equal reals were not interned to the same object")
	}
}

func TestInternerDistinguishesValues(t *testing.T) {
	in := NewInterner(objheap.New())
	if in.String("a") == in.String("b") {
		t.Fatal("distinct strings interned to the same object")
	}
}

func TestTrueSetMembership(t *testing.T) {
	if IsTrue(False) || IsTrue(Unknown) || IsTrue(Placeholder) || IsTrue(Disabled) {
		t.Fatal("special non-true values reported as true")
	}
	if !IsTrue(True) {
		t.Fatal("True reported as not in the true set")
	}
	in := NewInterner(objheap.New())
	if !IsTrue(in.Real(1)) {
		t.Fatal("an ordinary real should be in the true set")
	}
}

func TestIsUnknown(t *testing.T) {
	if !IsUnknown(Unknown) {
		t.Fatal("Unknown not reported as unknown")
	}
	if IsUnknown(False) {
		t.Fatal("False reported as unknown")
	}
}
