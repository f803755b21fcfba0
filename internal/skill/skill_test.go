package skill

import (
	"context"
	"testing"

	"github.com/nodebrain/nodebrain/internal/diag"
	"github.com/nodebrain/nodebrain/internal/values"
)

func TestDeclareAndBindNode(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(diag.NewReporter(false, nil))

	s, err := r.Declare("thermostat")
	if err != nil {
		t.Fatal(err)
	}
	s.Methods.Evaluate = func(ctx context.Context, node string, args []values.Value) (values.Value, error) {
		return values.True, nil
	}

	if _, err := r.BindNode(ctx, "hall.thermostat", "thermostat", []string{"addr=1"}); err != nil {
		t.Fatal(err)
	}

	v, err := r.EvaluateNode(ctx, "hall.thermostat", nil)
	if err != nil || v != values.True {
		t.Fatalf("expected True, got %v %v", v, err)
	}
}

func TestUnboundFacetReportsWarningAndReturnsUnknown(t *testing.T) {
	var messages []diag.Message
	r := NewRegistry(diag.NewReporter(false, func(m diag.Message) { messages = append(messages, m) }))

	if _, err := r.Declare("bare"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.BindNode(context.Background(), "n1", "bare", nil); err != nil {
		t.Fatal(err)
	}

	v, err := r.EvaluateNode(context.Background(), "n1", nil)
	if err != nil || v != values.Unknown {
		t.Fatalf("expected Unknown with no error, got %v %v", v, err)
	}
	if len(messages) == 0 {
		t.Fatal("expected at least one unbound-facet diagnostic")
	}
}

func TestDuplicateSkillDeclarationRejected(t *testing.T) {
	r := NewRegistry(diag.NewReporter(false, nil))
	if _, err := r.Declare("x"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Declare("x"); err == nil {
		t.Fatal("expected duplicate declaration to fail")
	}
}

func TestUnregisterRemovesBoundNodes(t *testing.T) {
	r := NewRegistry(diag.NewReporter(false, nil))
	r.Declare("x")
	r.BindNode(context.Background(), "n1", "x", nil)
	r.Unregister("x")

	if r.Has("x") {
		t.Fatal("expected skill to be unregistered")
	}
	if _, ok := r.NodeByName("n1"); ok {
		t.Fatal("expected bound node to be removed with its skill")
	}
}
