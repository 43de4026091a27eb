package event

import (
	"testing"

	"github.com/jakecoffman/cp"
	"github.com/stretchr/testify/assert"
)

func TestBus_EventsVisibleNextTick(t *testing.T) {
	b := NewBus()
	var got []EntityDied
	Subscribe(b, func(e EntityDied) { got = append(got, e) })

	Emit(b, EntityDied{EntityID: 7})
	b.DispatchAll()
	assert.Empty(t, got, "emitted this tick, not yet readable")

	b.SwapBuffers()
	b.DispatchAll()
	assert.Equal(t, []EntityDied{{EntityID: 7}}, got)

	b.SwapBuffers()
	b.DispatchAll()
	assert.Len(t, got, 1, "front buffer is consumed by the swap")
}

func TestBusPresenter_SkipsEmptyCues(t *testing.T) {
	b := NewBus()
	var sounds []SoundPlayed
	var anims []AnimationStarted
	Subscribe(b, func(e SoundPlayed) { sounds = append(sounds, e) })
	Subscribe(b, func(e AnimationStarted) { anims = append(anims, e) })

	p := BusPresenter{Bus: b}
	p.PlaySound(cp.Vector{X: 1, Y: 2}, 4, "roar", 1, 16, 0)
	p.PlaySound(cp.Vector{}, 4, "", 1, 16, 0)
	p.StartAnimation(3, "")
	p.SpawnParticles(cp.Vector{}, 4, "ash", 0)

	b.SwapBuffers()
	b.DispatchAll()
	assert.Len(t, sounds, 1)
	assert.Equal(t, "roar", sounds[0].Sound)
	assert.Empty(t, anims)
}

func TestBus_DeliversInEmissionOrder(t *testing.T) {
	b := NewBus()
	var order []string
	Subscribe(b, func(e AbilityActivated) { order = append(order, "activated:"+e.Ability) })
	Subscribe(b, func(e DamageDealt) { order = append(order, "damage:"+e.Type) })
	Subscribe(b, func(e EntityDespawned) {
		order = append(order, "despawned:"+e.Reason)
		Emit(b, EntityDied{EntityID: e.EntityID})
	})

	Emit(b, AbilityActivated{Ability: "ground_slam"})
	Emit(b, DamageDealt{Type: "blunt"})
	Emit(b, EntityDespawned{Reason: "died"})
	Emit(b, AbilityActivated{Ability: "last_gasp"})
	assert.Equal(t, 4, b.Pending())

	b.SwapBuffers()
	b.DispatchAll()
	assert.Equal(t, []string{"activated:ground_slam", "damage:blunt", "despawned:died", "activated:last_gasp"}, order)
	assert.Equal(t, 1, b.Pending(), "emitted during dispatch waits for the next tick")
}
