package ability

import (
	"errors"
	"math"
	"time"

	"github.com/jakecoffman/cp"
	"go.uber.org/zap"

	"github.com/l1jgo/encounter/internal/core/ecs"
	"github.com/l1jgo/encounter/internal/effect"
	"github.com/l1jgo/encounter/internal/scripting"
	"github.com/l1jgo/encounter/internal/world"
)

var zeroVec cp.Vector

// Presentation is fire-and-forget. A broken presenter never stops an ability.

func (ctx *Context) sound(pos cp.Vector, mapID int32, sound string, volume, rng float64, delay time.Duration) {
	if ctx.Present == nil || sound == "" {
		return
	}
	defer ctx.swallow("sound")
	ctx.Present.PlaySound(pos, mapID, sound, volume, rng, delay)
}

func (ctx *Context) animation(id ecs.EntityID, anim string) {
	if ctx.Present == nil || anim == "" {
		return
	}
	defer ctx.swallow("animation")
	ctx.Present.StartAnimation(id, anim)
}

func (ctx *Context) particles(pos cp.Vector, mapID int32, kind string, count int) {
	if ctx.Present == nil || kind == "" || count <= 0 {
		return
	}
	defer ctx.swallow("particles")
	ctx.Present.SpawnParticles(pos, mapID, kind, count)
}

func (ctx *Context) swallow(what string) {
	if r := recover(); r != nil {
		ctx.Log.Warn("presentation failed", zap.String("cue", what), zap.Any("panic", r))
	}
}

// attempt runs one placement or application. A failure is logged and
// reported; the caller moves on to the next one.
func (ctx *Context) attempt(what string, a Activation, fn func() error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ctx.Log.Error(what+" panic", zap.String("ability", a.Ability), zap.Any("panic", r))
			ok = false
		}
	}()
	if err := fn(); err != nil {
		ctx.Log.Debug(what+" failed", zap.String("ability", a.Ability), zap.Error(err))
		return false
	}
	return true
}

func (ctx *Context) damageMult(boss ecs.EntityID) float64 {
	if ctx.Effects == nil {
		return 1
	}
	return ctx.Effects.Blended(boss, effect.StatDamageMult)
}

// damageFor computes one hit of the stage's damage. target may be nil for
// damage fixed at placement time (hazards, tiles).
func (ctx *Context) damageFor(boss *world.BossInfo, a Activation, target *world.PlayerInfo) float64 {
	p := a.Stage.Payload
	in := scripting.AbilityDamageContext{
		Ability:    a.Ability,
		Kind:       a.Kind,
		Base:       p.Damage,
		Tier:       p.DamageTier,
		Multiplier: ctx.damageMult(boss.ID),
	}
	if target != nil {
		in.Distance = boss.Pos.Distance(target.Pos)
		in.TargetHP = target.HP
		in.TargetMaxHP = target.MaxHP
	}
	if ctx.Formulas == nil {
		return in.Base * in.Multiplier
	}
	return ctx.Formulas.CalcAbilityDamage(in)
}

// hit damages target for the stage and returns the amount dealt.
func (ctx *Context) hit(boss *world.BossInfo, a Activation, target *world.PlayerInfo, knockback cp.Vector) float64 {
	amount := ctx.damageFor(boss, a, target)
	if amount <= 0 {
		return 0
	}
	dealt, err := ctx.World.ApplyDamage(target.ID, world.Damage{
		Amount:    amount,
		Type:      a.Stage.Payload.DamageType,
		Tier:      a.Stage.Payload.DamageTier,
		Source:    boss.ID,
		Knockback: knockback,
	})
	if err != nil && !errors.Is(err, world.ErrEntityDead) {
		ctx.Log.Debug("ability damage", zap.String("ability", a.Ability), zap.Uint64("target", uint64(target.ID)), zap.Error(err))
	}
	return dealt
}

func (ctx *Context) randFloat() float64 {
	if ctx.Rand == nil {
		return 0.5
	}
	return ctx.Rand.Float64()
}

// scatter returns a point uniformly inside a circle of radius spread.
func (ctx *Context) scatter(center cp.Vector, spread float64) cp.Vector {
	if spread <= 0 {
		return center
	}
	r := spread * math.Sqrt(ctx.randFloat())
	return center.Add(cp.ForAngle(ctx.randFloat() * 2 * math.Pi).Mult(r))
}
