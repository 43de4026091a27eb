package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: swap in reloaded tables, player joins
	PhasePreUpdate               // 1: last tick's events, due deferred callbacks
	PhaseUpdate                  // 2: ability components
	PhasePostUpdate              // 3: hazards, effect sweep
	PhaseOutput                  // 4: drain dirty attributes
	PhasePersist                 // 5: periodic snapshot save
	PhaseCleanup                 // 6: destroy queued entities
)

var phaseNames = [...]string{"input", "pre_update", "update", "post_update", "output", "persist", "cleanup"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// System is the interface every ECS system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
