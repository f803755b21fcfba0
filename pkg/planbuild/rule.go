package planbuild

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nodebrain/nodebrain/internal/cellgraph"
	"github.com/nodebrain/nodebrain/internal/rule"
)

// RuleBuilder assembles a rule.Rule and the trigger cell it fires on.
type RuleBuilder struct {
	name     string
	priority int
	trigger  cellgraph.Cell
	plan     *rule.Plan
	err      error
}

// RuleOption configures a RuleBuilder.
type RuleOption func(*RuleBuilder) error

// NewRule starts a rule builder named name.
func NewRule(name string, opts ...RuleOption) *RuleBuilder {
	rb := &RuleBuilder{name: name}
	for _, opt := range opts {
		if err := opt(rb); err != nil {
			rb.err = err
			return rb
		}
	}
	return rb
}

// WithPriority sets the rule's action-queue priority (higher runs first
// among rules scheduled in the same wave).
func WithPriority(p int) RuleOption {
	return func(rb *RuleBuilder) error {
		rb.priority = p
		return nil
	}
}

// TriggeredBy sets the cell whose rising edge (not-true -> True) fires
// the rule.
func TriggeredBy(cond cellgraph.Cell) RuleOption {
	return func(rb *RuleBuilder) error {
		if cond == nil {
			return fmt.Errorf("planbuild: rule trigger cannot be nil")
		}
		rb.trigger = cond
		return nil
	}
}

// WithPlan sets the rule's compiled action plan.
func WithPlan(p *rule.Plan) RuleOption {
	return func(rb *RuleBuilder) error {
		if p == nil {
			return fmt.Errorf("planbuild: rule plan cannot be nil")
		}
		rb.plan = p
		return nil
	}
}

// Build returns the assembled Rule and its trigger cell, ready for
// Scheduler.Attach.
func (rb *RuleBuilder) Build() (*rule.Rule, cellgraph.Cell, error) {
	if rb.err != nil {
		return nil, nil, rb.err
	}
	if rb.name == "" {
		return nil, nil, fmt.Errorf("planbuild: rule must have a name")
	}
	if rb.trigger == nil {
		return nil, nil, fmt.Errorf("planbuild: rule %q has no trigger", rb.name)
	}
	if rb.plan == nil {
		return nil, nil, fmt.Errorf("planbuild: rule %q has no plan", rb.name)
	}
	return &rule.Rule{ID: uuid.New().String(), Name: rb.name, Priority: rb.priority, Plan: rb.plan}, rb.trigger, nil
}

// MustBuild is Build but panics on error.
func (rb *RuleBuilder) MustBuild() (*rule.Rule, cellgraph.Cell) {
	r, trigger, err := rb.Build()
	if err != nil {
		panic(err)
	}
	return r, trigger
}

// Attach builds the rule and registers it with scheduler in one step, the
// common case of declaring a rule that should start watching its trigger
// immediately.
func (rb *RuleBuilder) Attach(ctx context.Context, scheduler *rule.Scheduler) (*rule.Rule, error) {
	r, trigger, err := rb.Build()
	if err != nil {
		return nil, err
	}
	scheduler.Attach(ctx, r, trigger)
	return r, nil
}
