// Package schedule runs deferred one-shot callbacks on the game loop goroutine.
package schedule

import (
	"container/heap"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/encounter/internal/clock"
)

// Handle identifies a registered callback. The zero Handle is never issued.
type Handle uint64

type timer struct {
	id  Handle
	due clock.ProcessMs
	fn  func()
}

// timerHeap orders by due time, then registration order.
type timerHeap []*timer

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].due != h[j].due {
		return h[i].due < h[j].due
	}
	return h[i].id < h[j].id
}
func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x any)   { *h = append(*h, x.(*timer)) }
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}

// Deferred holds one-shot callbacks keyed by process-clock due time.
// Not safe for concurrent use; everything runs on the tick goroutine.
type Deferred struct {
	clock  clock.Process
	log    *zap.Logger
	timers timerHeap
	live   map[Handle]struct{}
	nextID Handle
}

func NewDeferred(c clock.Process, log *zap.Logger) *Deferred {
	return &Deferred{
		clock:  c,
		log:    log,
		live:   make(map[Handle]struct{}, 32),
		nextID: 1,
	}
}

// Register schedules fn to run on the first Run at or after now+delay.
// A callback never fires during the Run that registered it.
func (d *Deferred) Register(delay time.Duration, fn func()) Handle {
	if delay < 0 {
		delay = 0
	}
	id := d.nextID
	d.nextID++
	heap.Push(&d.timers, &timer{id: id, due: d.clock.NowMs().Add(delay), fn: fn})
	d.live[id] = struct{}{}
	return id
}

// Unregister cancels h. Returns false if h already fired or was cancelled.
func (d *Deferred) Unregister(h Handle) bool {
	if _, ok := d.live[h]; !ok {
		return false
	}
	delete(d.live, h)
	return true
}

// Pending returns the number of callbacks still waiting to fire.
func (d *Deferred) Pending() int { return len(d.live) }

// Run fires every due callback in due order and returns how many ran.
// A panicking callback is logged and does not stop the others.
func (d *Deferred) Run() int {
	now := d.clock.NowMs()
	cutoff := d.nextID
	var later []*timer
	fired := 0
	for d.timers.Len() > 0 && !d.timers[0].due.After(now) {
		t := heap.Pop(&d.timers).(*timer)
		if _, ok := d.live[t.id]; !ok {
			continue
		}
		if t.id >= cutoff {
			later = append(later, t)
			continue
		}
		delete(d.live, t.id)
		d.call(t)
		fired++
	}
	for _, t := range later {
		heap.Push(&d.timers, t)
	}
	// drop cancelled timers so a cancel-heavy workload does not grow the heap
	if d.timers.Len() > 64 && d.timers.Len() > 4*len(d.live) {
		d.compact()
	}
	return fired
}

func (d *Deferred) call(t *timer) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("deferred callback panic", zap.Uint64("handle", uint64(t.id)), zap.Any("panic", r))
		}
	}()
	t.fn()
}

func (d *Deferred) compact() {
	kept := d.timers[:0]
	for _, t := range d.timers {
		if _, ok := d.live[t.id]; ok {
			kept = append(kept, t)
		}
	}
	for i := len(kept); i < len(d.timers); i++ {
		d.timers[i] = nil
	}
	d.timers = kept
	heap.Init(&d.timers)
}
