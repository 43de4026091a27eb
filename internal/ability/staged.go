package ability

import (
	"go.uber.org/zap"

	"github.com/l1jgo/encounter/internal/clock"
	"github.com/l1jgo/encounter/internal/core/ecs"
	"github.com/l1jgo/encounter/internal/core/event"
	"github.com/l1jgo/encounter/internal/world"
)

// Targeting selects how a staged ability picks what it acts on.
type Targeting uint8

const (
	TargetNearest Targeting = iota // nearest player within the stage's range bounds
	TargetSelf                     // the boss itself; range is not checked
)

// executor runs a stage's effect when the windup completes.
type executor interface {
	execute(ctx *Context, boss *world.BossInfo, a Activation)
}

// gate is an optional extra precondition checked after targeting.
type gate interface {
	allow(ctx *Context, boss *world.BossInfo, a *Activation) bool
}

// maintainer runs on every tick, pending or not.
type maintainer interface {
	maintain(ctx *Context, boss *world.BossInfo, code string)
}

// Staged is the shared ability component. Variants plug in an executor.
type Staged struct {
	code      string
	kind      string
	targeting Targeting
	exec      executor
	cooldown  CooldownGate
	windup    Windup
	active    *Activation // transient, never persisted
}

func newStaged(code, kind string, t Targeting, exec executor) *Staged {
	return &Staged{
		code:      code,
		kind:      kind,
		targeting: t,
		exec:      exec,
		cooldown:  CooldownGate{Key: CooldownKey(code)},
	}
}

func (s *Staged) Code() string  { return s.code }
func (s *Staged) Kind() string  { return s.kind }
func (s *Staged) Pending() bool { return s.windup.Pending() }

// Active returns the activation captured by the in-flight windup.
func (s *Staged) Active() (Activation, bool) {
	if s.active == nil {
		return Activation{}, false
	}
	return *s.active, true
}

func (s *Staged) Tick(ctx *Context, boss *world.BossInfo) {
	if m, ok := s.exec.(maintainer); ok {
		m.maintain(ctx, boss, s.code)
	}
	if s.windup.Pending() {
		if boss.Dead {
			s.Cancel(ctx, boss, world.ReasonDied)
		}
		return
	}
	if boss.Dead {
		return
	}

	def := ctx.Tables.Current().Get(s.code)
	if def == nil || def.Kind != s.kind {
		return
	}
	idx, ok := SelectStage(def.Stages, boss.HealthFraction())
	if !ok {
		return
	}
	st := def.Stages[idx]
	now := ctx.Clock.NowMs()
	if !s.cooldown.Ready(boss.Attrs, st.Cooldown, now) {
		return
	}

	a := Activation{
		Owner:      boss.ID,
		Ability:    s.code,
		Kind:       s.kind,
		StageIndex: idx,
		Stage:      st,
		TargetPos:  boss.Pos,
		Origin:     boss.Pos,
		MapID:      boss.MapID,
	}
	if s.targeting == TargetNearest {
		p, _, ok := AcquireTarget(ctx.World, boss.Pos, boss.MapID, st)
		if !ok {
			return
		}
		a.Target, a.TargetPos = p.ID, p.Pos
	}
	if g, ok := s.exec.(gate); ok && !g.allow(ctx, boss, &a) {
		return
	}
	s.activate(ctx, boss, a, now)
}

func (s *Staged) activate(ctx *Context, boss *world.BossInfo, a Activation, now clock.ProcessMs) {
	s.cooldown.Commit(boss.Attrs, now)
	boss.Freeze()
	s.active = &a

	tg := a.Stage.Telegraph
	ctx.sound(boss.Pos, boss.MapID, tg.Sound, tg.Volume, tg.Range, tg.SoundDelay)
	ctx.animation(boss.ID, tg.Animation)
	s.windup.Begin(ctx.Sched, tg.Windup, func() { s.fire(ctx, a) })

	event.Emit(ctx.Bus, event.AbilityActivated{OwnerID: boss.ID, Ability: s.code, Stage: a.StageIndex, TargetID: a.Target})
	ctx.Tracer.Decision(boss.ID, s.code, "windup started",
		zap.Int("stage", a.StageIndex), zap.Uint64("target", uint64(a.Target)), zap.Duration("windup", tg.Windup))
}

// fire runs on the deferred callback. The windup has already cleared its
// pending flag by the time this runs.
func (s *Staged) fire(ctx *Context, a Activation) {
	s.active = nil
	boss := ctx.World.Boss(a.Owner)
	if boss != nil {
		boss.Unfreeze()
	}
	if boss == nil || boss.Dead {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			ctx.Log.Error("ability effect panic",
				zap.String("ability", s.code), zap.Uint64("owner", uint64(a.Owner)), zap.Any("panic", r))
		}
	}()
	ctx.Tracer.Decision(boss.ID, s.code, "effect", zap.Int("stage", a.StageIndex))
	s.exec.execute(ctx, boss, a)
}

func (s *Staged) Cancel(ctx *Context, boss *world.BossInfo, reason string) bool {
	if !s.windup.Cancel(ctx.Sched) {
		return false
	}
	var owner ecs.EntityID
	if s.active != nil {
		owner = s.active.Owner
	}
	s.active = nil
	if boss != nil {
		boss.Unfreeze()
		owner = boss.ID
	}
	event.Emit(ctx.Bus, event.AbilityCancelled{OwnerID: owner, Ability: s.code})
	ctx.Tracer.Decision(owner, s.code, "windup cancelled", zap.String("reason", reason))
	return true
}
