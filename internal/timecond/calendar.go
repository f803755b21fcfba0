package timecond

import (
	"context"
	"time"

	"github.com/nodebrain/nodebrain/internal/cellgraph"
	"github.com/nodebrain/nodebrain/internal/object"
	"github.com/nodebrain/nodebrain/internal/values"
)

var timeCondDesc = object.Register(&object.Descriptor{Name: "time-condition", Kind: object.KindTimeCondition, Attrs: object.AttrIsTime})

// Pulse is a time-condition cell: True for Duration starting at each
// occurrence of Procedure, False otherwise. It has no operands — its
// value is driven entirely by the timer queue — and re-arms itself after
// each fall, producing the lazy boolean time series spec.md §4.8
// describes.
type Pulse struct {
	base     cellgraph.Base
	proc     *Procedure
	duration time.Duration
	queue    *Queue
	engine   *cellgraph.Engine
}

// NewPulse builds a pulse cell. It does not start producing transitions
// until Arm is called (normally done once, at engine start, for every
// pulse condition referenced by an enabled rule).
func NewPulse(id string, proc *Procedure, duration time.Duration, queue *Queue, engine *cellgraph.Engine) *Pulse {
	return &Pulse{
		base:     cellgraph.NewBase(id, values.False),
		proc:     proc,
		duration: duration,
		queue:    queue,
		engine:   engine,
	}
}

func (p *Pulse) Base() *cellgraph.Base      { return &p.base }
func (p *Pulse) Kind() object.Kind          { return timeCondDesc.Kind }
func (p *Pulse) Operands() []cellgraph.Cell { return nil }
func (p *Pulse) Show() string               { return "pulse:" + p.proc.Spec() }
func (p *Pulse) Eval(ctx context.Context) values.Value { return p.base.Value() }

// Arm schedules the next rising edge after "from" and chains the falling
// edge and the following rising edge from within the timer callbacks, so
// the pulse keeps producing transitions for as long as the engine runs.
func (p *Pulse) Arm(ctx context.Context, from time.Time) {
	rise := p.proc.Next(from)
	p.queue.Schedule(rise, func(ctx context.Context, firedAt time.Time) {
		p.engine.Publish(ctx, p, values.True)
		fall := firedAt.Add(p.duration)
		p.queue.Schedule(fall, func(ctx context.Context, fellAt time.Time) {
			p.engine.Publish(ctx, p, values.False)
			p.Arm(ctx, fellAt)
		})
	})
}

// Delay is a boolean cell that turns True exactly Duration after its
// trigger operand turns True, and resets to False as soon as the trigger
// does, per spec.md §4.8's delay syntax ("within N seconds of").
type Delay struct {
	base     cellgraph.Base
	trigger  cellgraph.Cell
	duration time.Duration
	queue    *Queue
	engine   *cellgraph.Engine
	alarm    *Alarm
}

// NewDelay builds a delay cell over trigger.
func NewDelay(id string, trigger cellgraph.Cell, duration time.Duration, queue *Queue, engine *cellgraph.Engine) *Delay {
	return &Delay{
		base:     cellgraph.NewBase(id, values.False),
		trigger:  trigger,
		duration: duration,
		queue:    queue,
		engine:   engine,
	}
}

func (d *Delay) Base() *cellgraph.Base      { return &d.base }
func (d *Delay) Kind() object.Kind          { return timeCondDesc.Kind }
func (d *Delay) Operands() []cellgraph.Cell { return []cellgraph.Cell{d.trigger} }
func (d *Delay) Show() string               { return "delay:" + d.base.ID }

// Eval arms or disarms the underlying alarm as a side effect of noticing
// the trigger's edge; the delay cell's own value only changes later, when
// the armed alarm fires and calls Engine.Publish.
func (d *Delay) Eval(ctx context.Context) values.Value {
	if d.trigger.Base().Value() == values.True {
		if d.alarm == nil {
			d.alarm = d.queue.Schedule(time.Now().Add(d.duration), func(ctx context.Context, now time.Time) {
				d.engine.Publish(ctx, d, values.True)
				d.alarm = nil
			})
		}
		return d.base.Value()
	}
	if d.alarm != nil {
		d.queue.Cancel(d.alarm)
		d.alarm = nil
	}
	return values.False
}
