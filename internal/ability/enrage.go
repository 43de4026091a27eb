package ability

import (
	"github.com/l1jgo/encounter/internal/effect"
	"github.com/l1jgo/encounter/internal/world"
)

// enrage buffs the boss itself. Magnitude is added to both walk speed and
// damage multiplier. It does not recast while the buff is up, and the buff
// is refreshed every tick so it ends on time even between sweeps.
type enrage struct{}

func (enrage) allow(ctx *Context, boss *world.BossInfo, a *Activation) bool {
	return !ctx.Effects.Active(boss.ID, a.Ability)
}

func (enrage) maintain(ctx *Context, boss *world.BossInfo, code string) {
	if boss.Dead {
		return
	}
	ctx.Effects.RefreshSource(boss.ID, code)
}

func (enrage) execute(ctx *Context, boss *world.BossInfo, a Activation) {
	p := a.Stage.Payload
	ok := ctx.attempt("apply effect", a, func() error {
		return ctx.Effects.Start(boss.ID, effect.Spec{
			Source:   a.Ability,
			Domain:   effect.DomainProcess,
			Duration: p.Duration,
			Mods: map[string]float64{
				effect.StatWalkSpeed:  p.Magnitude,
				effect.StatDamageMult: p.Magnitude,
			},
			Owner: boss.ID,
		})
	})
	if ok {
		ctx.particles(boss.Pos, boss.MapID, p.Particles, 1)
	}
}
