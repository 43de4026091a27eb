package ability

import (
	"math"

	"github.com/jakecoffman/cp"

	"github.com/l1jgo/encounter/internal/hazard"
	"github.com/l1jgo/encounter/internal/scripting"
	"github.com/l1jgo/encounter/internal/world"
)

// ashFloor covers the floor around the target with burning tiles. The first
// tile goes under the target; the rest scatter within Spread.
type ashFloor struct{}

func (ashFloor) execute(ctx *Context, boss *world.BossInfo, a Activation) {
	p := a.Stage.Payload
	dmg := ctx.damageFor(boss, a, nil)
	placed := 0
	seen := map[world.TileKey]bool{}
	for i := 0; i < max(p.Count, 1); i++ {
		pos := a.TargetPos
		if i > 0 {
			pos = ctx.scatter(a.TargetPos, p.Spread)
		}
		key := world.TileAt(pos, a.MapID)
		if seen[key] {
			continue
		}
		seen[key] = true
		if ctx.attempt("place ground tile", a, func() error {
			return ctx.Hazards.PlaceGround(hazard.GroundSpec{
				Owner:      boss.ID,
				Ability:    a.Ability,
				Key:        key,
				Lifetime:   p.Duration,
				Damage:     dmg,
				DamageType: p.DamageType,
				DamageTier: p.DamageTier,
			})
		}) {
			placed++
		}
	}
	ctx.particles(a.TargetPos, a.MapID, p.Particles, placed)
}

// drainNova damages every player around the boss and heals the boss for a
// share of what was dealt.
type drainNova struct{}

func (drainNova) allow(ctx *Context, boss *world.BossInfo, a *Activation) bool {
	return anyoneWithin(ctx, boss, a.Stage.Payload.Radius)
}

func (drainNova) execute(ctx *Context, boss *world.BossInfo, a Activation) {
	p := a.Stage.Payload
	victims := ctx.World.FindPlayersWithin(boss.Pos, boss.MapID, p.Radius, nil)
	var dealt float64
	for _, v := range victims {
		dealt += ctx.hit(boss, a, v, cp.Vector{})
	}
	if dealt > 0 && p.HealFraction > 0 && !boss.Dead {
		in := scripting.DrainHealContext{
			Ability:   a.Ability,
			Dealt:     dealt,
			Fraction:  p.HealFraction,
			Victims:   len(victims),
			BossHP:    boss.HP,
			BossMaxHP: boss.MaxHP,
		}
		amount := in.Dealt * in.Fraction
		if ctx.Formulas != nil {
			amount = ctx.Formulas.CalcDrainHeal(in)
		}
		ctx.attempt("drain heal", a, func() error {
			_, err := ctx.World.Heal(boss.ID, amount)
			return err
		})
	}
	ctx.particles(boss.Pos, boss.MapID, p.Particles, len(victims))
}

// shockwave knocks every player in radius away from the boss, damages them
// and roots them briefly.
type shockwave struct{}

func (shockwave) execute(ctx *Context, boss *world.BossInfo, a Activation) {
	p := a.Stage.Payload
	victims := ctx.World.FindPlayersWithin(boss.Pos, boss.MapID, p.Radius, nil)
	for _, v := range victims {
		dir := v.Pos.Sub(boss.Pos)
		if dir.LengthSq() < 1e-9 {
			dir = cp.ForAngle(ctx.randFloat() * 2 * math.Pi)
		}
		ctx.hit(boss, a, v, dir.Normalize().Mult(p.Knockback))
		if p.Duration > 0 && !v.Dead {
			// rooted: the whole base walk speed is taken away
			applySlow(ctx, a, v.ID, boss.ID, stunSource(a.Ability), -v.BaseWalkSpeed)
		}
	}
	ctx.particles(boss.Pos, boss.MapID, p.Particles, len(victims))
}

func stunSource(code string) string { return code + "_stun" }
