package ability

import (
	"time"

	"github.com/l1jgo/encounter/internal/core/schedule"
)

// Windup holds at most one outstanding deferred effect. Pending and the
// handle are always set and cleared together.
type Windup struct {
	pending bool
	handle  schedule.Handle
}

func (w *Windup) Pending() bool { return w.pending }

// Begin schedules fn after delay. Returns false, scheduling nothing, while a
// previous windup is still pending.
func (w *Windup) Begin(s Scheduler, delay time.Duration, fn func()) bool {
	if w.pending {
		return false
	}
	w.pending = true
	var h schedule.Handle
	h = s.Register(delay, func() {
		// someone already cleared us, or a newer windup owns the slot
		if !w.pending || w.handle != h {
			return
		}
		w.pending = false
		w.handle = 0
		fn()
	})
	w.handle = h
	return true
}

// Cancel unregisters the pending callback. Returns false if nothing was pending.
func (w *Windup) Cancel(s Scheduler) bool {
	if !w.pending {
		return false
	}
	s.Unregister(w.handle)
	w.pending = false
	w.handle = 0
	return true
}
