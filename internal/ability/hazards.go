package ability

import (
	"time"

	"github.com/jakecoffman/cp"
	"go.uber.org/zap"

	"github.com/l1jgo/encounter/internal/core/event"
	"github.com/l1jgo/encounter/internal/hazard"
	"github.com/l1jgo/encounter/internal/world"
)

// decoyTrap drops fused traps around the target. Damage is fixed when the
// trap is placed.
type decoyTrap struct{}

func (decoyTrap) execute(ctx *Context, boss *world.BossInfo, a Activation) {
	p := a.Stage.Payload
	now := ctx.Clock.NowMs()
	payload := hazard.Payload{
		Owner:        boss.ID,
		Ability:      a.Ability,
		ExplodeAt:    now.Add(max(p.Fuse, time.Millisecond)),
		Radius:       p.Radius,
		Damage:       ctx.damageFor(boss, a, nil),
		DamageType:   p.DamageType,
		DamageTier:   p.DamageTier,
		Invulnerable: true,
	}
	placed := spawnAround(ctx, a, hazard.TypeDecoyTrap, a.TargetPos, max(p.Count, 1), p.Spread, payload)
	ctx.particles(a.TargetPos, a.MapID, p.Particles, placed)
}

// summonEcho raises timed adds around the boss that pulse damage until they
// expire. Only one wave may be alive at a time.
type summonEcho struct{}

func (summonEcho) allow(ctx *Context, boss *world.BossInfo, _ *Activation) bool {
	return liveHazards(ctx, boss, hazard.TypeEcho) == 0
}

func (summonEcho) execute(ctx *Context, boss *world.BossInfo, a Activation) {
	p := a.Stage.Payload
	payload := hazard.Payload{
		Owner:      boss.ID,
		Ability:    a.Ability,
		DespawnAt:  ctx.Clock.NowMs().Add(max(p.Duration, time.Millisecond)),
		Radius:     p.Radius,
		Damage:     ctx.damageFor(boss, a, nil),
		DamageType: p.DamageType,
		DamageTier: p.DamageTier,
	}
	placed := spawnAround(ctx, a, hazard.TypeEcho, boss.Pos, max(p.Count, 1), p.Spread, payload)
	ctx.particles(boss.Pos, boss.MapID, p.Particles, placed)
}

// spawnAround places n hazards, the first at center and the rest scattered.
// Each placement stands alone; a failed one is logged and skipped.
func spawnAround(ctx *Context, a Activation, typ string, center cp.Vector, n int, spread float64, payload hazard.Payload) int {
	placed := 0
	for i := 0; i < n; i++ {
		pos := center
		if i > 0 {
			pos = ctx.scatter(center, spread)
		}
		if ctx.attempt("spawn hazard", a, func() error {
			_, err := ctx.Hazards.Spawn(typ, pos, a.MapID, payload)
			return err
		}) {
			placed++
		}
	}
	return placed
}

// liveHazards counts hazards of typ owned by boss that are still in-world.
func liveHazards(ctx *Context, boss *world.BossInfo, typ string) int {
	n := 0
	ctx.World.AllHazards(func(h *world.HazardInfo) {
		if h.Type != typ {
			return
		}
		if p, ok := hazard.Decode(h.Attrs); ok && p.Owner == boss.ID {
			n++
		}
	})
	return n
}

// DeathBurst leaves a fused hazard where its boss died. It has no idle loop;
// the stage is chosen by the health fraction at death, which is always the
// last stage whose threshold is reachable. A dead boss is despawned, never
// revived, so the burst fires at most once per component.
type DeathBurst struct {
	code  string
	fired bool
}

func (d *DeathBurst) Code() string  { return d.code }
func (d *DeathBurst) Kind() string  { return KindDeathBurst }
func (d *DeathBurst) Pending() bool { return false }

func (d *DeathBurst) Tick(*Context, *world.BossInfo) {}

func (d *DeathBurst) Cancel(*Context, *world.BossInfo, string) bool { return false }

func (d *DeathBurst) OnOwnerDeath(ctx *Context, boss *world.BossInfo) {
	if d.fired {
		return
	}
	def := ctx.Tables.Current().Get(d.code)
	if def == nil || def.Kind != KindDeathBurst {
		return
	}
	idx, ok := SelectStage(def.Stages, boss.HealthFraction())
	if !ok {
		return
	}
	d.fired = true
	st := def.Stages[idx]
	a := Activation{
		Owner:      boss.ID,
		Ability:    d.code,
		Kind:       KindDeathBurst,
		StageIndex: idx,
		Stage:      st,
		TargetPos:  boss.Pos,
		Origin:     boss.Pos,
		MapID:      boss.MapID,
	}
	tg := st.Telegraph
	ctx.sound(boss.Pos, boss.MapID, tg.Sound, tg.Volume, tg.Range, tg.SoundDelay)
	ctx.animation(boss.ID, tg.Animation)

	fuse := max(st.Payload.Fuse, tg.Windup, time.Millisecond)
	payload := hazard.Payload{
		Owner:        boss.ID,
		Ability:      d.code,
		ExplodeAt:    ctx.Clock.NowMs().Add(fuse),
		Radius:       st.Payload.Radius,
		Damage:       ctx.damageFor(boss, a, nil),
		DamageType:   st.Payload.DamageType,
		DamageTier:   st.Payload.DamageTier,
		Invulnerable: true,
		SurviveOwner: true,
	}
	placed := spawnAround(ctx, a, hazard.TypeDeathBurst, boss.Pos, max(st.Payload.Count, 1), st.Payload.Spread, payload)
	ctx.particles(boss.Pos, boss.MapID, st.Payload.Particles, placed)

	event.Emit(ctx.Bus, event.AbilityActivated{OwnerID: boss.ID, Ability: d.code, Stage: idx})
	ctx.Tracer.Decision(boss.ID, d.code, "death burst placed", zap.Int("stage", idx), zap.Duration("fuse", fuse))
}
