package ability

import (
	"github.com/l1jgo/encounter/internal/core/ecs"
	"github.com/l1jgo/encounter/internal/effect"
	"github.com/l1jgo/encounter/internal/world"
)

// frostMark hits the chosen target and slows it on the process clock.
type frostMark struct{}

func (frostMark) execute(ctx *Context, boss *world.BossInfo, a Activation) {
	target := ctx.World.Player(a.Target)
	if target == nil || target.Dead {
		return
	}
	ctx.hit(boss, a, target, zeroVec)
	if !target.Dead {
		applySlow(ctx, a, target.ID, boss.ID, a.Ability, a.Stage.Payload.Magnitude)
	}
	ctx.particles(target.Pos, target.MapID, a.Stage.Payload.Particles, 1)
}

// chillAura slows everyone around the boss. The slow runs on the calendar
// clock, so it survives a server restart with its remaining time intact.
type chillAura struct{}

func (chillAura) allow(ctx *Context, boss *world.BossInfo, a *Activation) bool {
	return anyoneWithin(ctx, boss, a.Stage.Payload.Radius)
}

func (chillAura) execute(ctx *Context, boss *world.BossInfo, a Activation) {
	p := a.Stage.Payload
	victims := ctx.World.FindPlayersWithin(boss.Pos, boss.MapID, p.Radius, nil)
	for _, v := range victims {
		if p.Damage > 0 {
			ctx.hit(boss, a, v, zeroVec)
		}
		if v.Dead {
			continue
		}
		id := v.ID
		ctx.attempt("apply effect", a, func() error {
			return ctx.Effects.Start(id, effect.Spec{
				Source:   a.Ability,
				Domain:   effect.DomainCalendar,
				Duration: p.Duration,
				Mods:     map[string]float64{effect.StatWalkSpeed: p.Magnitude},
				Owner:    boss.ID,
			})
		})
	}
	ctx.particles(boss.Pos, boss.MapID, p.Particles, len(victims))
}

// applySlow starts a process-clock walk speed effect lasting the stage's
// duration.
func applySlow(ctx *Context, a Activation, target, owner ecs.EntityID, source string, delta float64) {
	p := a.Stage.Payload
	ctx.attempt("apply effect", a, func() error {
		return ctx.Effects.Start(target, effect.Spec{
			Source:   source,
			Domain:   effect.DomainProcess,
			Duration: p.Duration,
			Mods:     map[string]float64{effect.StatWalkSpeed: delta},
			Owner:    owner,
		})
	})
}

func anyoneWithin(ctx *Context, boss *world.BossInfo, radius float64) bool {
	return radius > 0 && len(ctx.World.FindPlayersWithin(boss.Pos, boss.MapID, radius, nil)) > 0
}
