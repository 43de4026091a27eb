package event

import (
	"time"

	"github.com/jakecoffman/cp"

	"github.com/l1jgo/encounter/internal/core/ecs"
)

// Presenter receives presentation hooks from ability components.
// Implementations must not fail loudly; a lost cue is acceptable.
type Presenter interface {
	PlaySound(pos cp.Vector, mapID int32, sound string, volume, rng float64, delay time.Duration)
	StartAnimation(id ecs.EntityID, animation string)
	SpawnParticles(pos cp.Vector, mapID int32, kind string, count int)
}

// BusPresenter turns presentation hooks into bus events.
type BusPresenter struct {
	Bus *Bus
}

func (p BusPresenter) PlaySound(pos cp.Vector, mapID int32, sound string, volume, rng float64, delay time.Duration) {
	if sound == "" {
		return
	}
	Emit(p.Bus, SoundPlayed{Pos: pos, MapID: mapID, Sound: sound, Volume: volume, Range: rng, Delay: delay})
}

func (p BusPresenter) StartAnimation(id ecs.EntityID, animation string) {
	if animation == "" {
		return
	}
	Emit(p.Bus, AnimationStarted{EntityID: id, Animation: animation})
}

func (p BusPresenter) SpawnParticles(pos cp.Vector, mapID int32, kind string, count int) {
	if kind == "" || count <= 0 {
		return
	}
	Emit(p.Bus, ParticlesSpawned{Pos: pos, MapID: mapID, Kind: kind, Count: count})
}
