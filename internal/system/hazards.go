package system

import (
	"time"

	"github.com/l1jgo/encounter/internal/clock"
	coresys "github.com/l1jgo/encounter/internal/core/system"
	"github.com/l1jgo/encounter/internal/effect"
	"github.com/l1jgo/encounter/internal/hazard"
)

// HazardSystem polls hazard entities every scan interval and ground tiles
// every tick. Phase 3 (PostUpdate).
type HazardSystem struct {
	life     *hazard.Lifecycle
	clock    clock.Process
	interval time.Duration
	next     clock.ProcessMs
}

func NewHazardSystem(life *hazard.Lifecycle, c clock.Process, scanInterval time.Duration) *HazardSystem {
	return &HazardSystem{life: life, clock: c, interval: scanInterval}
}

func (s *HazardSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *HazardSystem) Update(_ time.Duration) {
	s.life.TickGround()
	now := s.clock.NowMs()
	if now.Before(s.next) {
		return
	}
	s.next = now.Add(s.interval)
	s.life.Tick()
}

// EffectSweepSystem refreshes every tracked effect target on the sweep
// interval so expired effects come off even when nothing else touches the
// target. Phase 3 (PostUpdate).
type EffectSweepSystem struct {
	effects  *effect.Manager
	clock    clock.Process
	interval time.Duration
	next     clock.ProcessMs
}

func NewEffectSweepSystem(effects *effect.Manager, c clock.Process, interval time.Duration) *EffectSweepSystem {
	return &EffectSweepSystem{effects: effects, clock: c, interval: interval}
}

func (s *EffectSweepSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *EffectSweepSystem) Update(_ time.Duration) {
	now := s.clock.NowMs()
	if now.Before(s.next) {
		return
	}
	s.next = now.Add(s.interval)
	s.effects.Sweep()
}
