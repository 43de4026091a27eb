package system

import (
	"time"

	"github.com/l1jgo/encounter/internal/core/event"
	"github.com/l1jgo/encounter/internal/core/schedule"
	coresys "github.com/l1jgo/encounter/internal/core/system"
)

// EventDispatchSystem delivers last tick's events. Phase 1 (PreUpdate).
type EventDispatchSystem struct {
	bus *event.Bus
}

func NewEventDispatchSystem(bus *event.Bus) *EventDispatchSystem {
	return &EventDispatchSystem{bus: bus}
}

func (s *EventDispatchSystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

func (s *EventDispatchSystem) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}

// DeferredSystem fires windup callbacks that came due. Phase 1 (PreUpdate),
// registered after EventDispatchSystem so effects see a settled world.
type DeferredSystem struct {
	sched *schedule.Deferred
}

func NewDeferredSystem(sched *schedule.Deferred) *DeferredSystem {
	return &DeferredSystem{sched: sched}
}

func (s *DeferredSystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

func (s *DeferredSystem) Update(_ time.Duration) {
	s.sched.Run()
}
