package timecond

import (
	"container/heap"
	"context"
	"time"

	"github.com/nodebrain/nodebrain/internal/diag"
)

// Alarm is one scheduled callback.
type Alarm struct {
	At    time.Time
	Fire  func(ctx context.Context, now time.Time)
	index int
}

type alarmHeap []*Alarm

func (h alarmHeap) Len() int            { return len(h) }
func (h alarmHeap) Less(i, j int) bool  { return h[i].At.Before(h[j].At) }
func (h alarmHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *alarmHeap) Push(x any) {
	a := x.(*Alarm)
	a.index = len(*h)
	*h = append(*h, a)
}
func (h *alarmHeap) Pop() any {
	old := *h
	n := len(old)
	a := old[n-1]
	old[n-1] = nil
	a.index = -1
	*h = old[:n-1]
	return a
}

// Queue is NodeBrain's timer queue: a min-heap of alarms drained
// cooperatively by Tick, guarded by a re-entrancy flag the same way the
// original engine's clockAlerting guard keeps a timer callback from
// recursively re-entering the alerting pass.
type Queue struct {
	heap     alarmHeap
	alerting bool
	reporter *diag.Reporter
}

// NewQueue creates an empty timer queue reporting logic errors through r.
func NewQueue(r *diag.Reporter) *Queue {
	q := &Queue{reporter: r}
	heap.Init(&q.heap)
	return q
}

// Schedule arms a new alarm at "at" and returns it so the caller can
// Cancel it later.
func (q *Queue) Schedule(at time.Time, fire func(ctx context.Context, now time.Time)) *Alarm {
	a := &Alarm{At: at, Fire: fire}
	heap.Push(&q.heap, a)
	return a
}

// Cancel removes a previously scheduled alarm. It is a no-op if a has
// already fired or was never scheduled on q.
func (q *Queue) Cancel(a *Alarm) {
	if a.index < 0 || a.index >= len(q.heap) || q.heap[a.index] != a {
		return
	}
	heap.Remove(&q.heap, a.index)
}

// Next reports the time of the earliest pending alarm.
func (q *Queue) Next() (time.Time, bool) {
	if len(q.heap) == 0 {
		return time.Time{}, false
	}
	return q.heap[0].At, true
}

// Tick fires every alarm due at or before now, in order, and returns how
// many fired. It refuses to run re-entrantly: a Fire callback that itself
// calls Tick (directly, or transitively through Engine.Publish driving
// more scheduling) is a logic error rather than a silent recursive drain.
func (q *Queue) Tick(ctx context.Context, now time.Time) int {
	if q.alerting {
		if q.reporter != nil {
			q.reporter.Report(diag.CodeReentrantAlert, diag.ClassLogic, "timer queue re-entered during Tick")
		}
		return 0
	}
	q.alerting = true
	defer func() { q.alerting = false }()

	fired := 0
	for len(q.heap) > 0 && !q.heap[0].At.After(now) {
		a := heap.Pop(&q.heap).(*Alarm)
		a.Fire(ctx, now)
		fired++
	}
	return fired
}

// Len reports the number of pending alarms, for diagnostics.
func (q *Queue) Len() int { return len(q.heap) }
