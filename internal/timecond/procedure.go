// Package timecond implements NodeBrain's time-condition engine: a
// calendar grammar compiled to a schedule (via robfig/cron/v3), pulse and
// delay cells built on top of it, and the single-threaded cooperative
// timer queue that drives them (spec.md §4.8).
package timecond

import (
	"fmt"
	"time"

	"github.com/araddon/dateparse"
	"github.com/robfig/cron/v3"
)

// cronParser accepts the standard five-field cron grammar; NodeBrain's
// calendar syntax compiles down to this rather than inventing its own
// recurrence engine, the same way the teacher's scheduling code leans on
// robfig/cron for cron-grammar validation.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Procedure is a compiled recurrence: something that can answer "when is
// the next occurrence after t".
type Procedure struct {
	spec     string
	schedule cron.Schedule
}

// Compile parses a cron-grammar calendar spec, e.g. "0 9 * * mon-fri" for
// weekday mornings at nine.
func Compile(spec string) (*Procedure, error) {
	sched, err := cronParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("timecond: compile %q: %w", spec, err)
	}
	return &Procedure{spec: spec, schedule: sched}, nil
}

// Next returns the first occurrence strictly after t.
func (p *Procedure) Next(t time.Time) time.Time {
	return p.schedule.Next(t)
}

// Spec returns the original calendar source, for Show output.
func (p *Procedure) Spec() string { return p.spec }

// ParseMoment parses a free-form timestamp the way NodeBrain's "set time"
// testing hook and log replay do: permissively, without requiring the
// caller to know the exact layout in advance.
func ParseMoment(s string) (time.Time, error) {
	return dateparse.ParseAny(s)
}
