package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/encounter/internal/ability"
	"github.com/l1jgo/encounter/internal/core/ecs"
	coresys "github.com/l1jgo/encounter/internal/core/system"
	"github.com/l1jgo/encounter/internal/data"
	"github.com/l1jgo/encounter/internal/world"
)

// AbilitySystem runs every boss's ability components once per tick.
// Phase 2 (Update).
type AbilitySystem struct {
	world    *world.State
	ctx      *ability.Context
	loadouts map[ecs.EntityID]*ability.Loadout
	log      *zap.Logger
}

func NewAbilitySystem(ws *world.State, ctx *ability.Context, log *zap.Logger) *AbilitySystem {
	return &AbilitySystem{
		world:    ws,
		ctx:      ctx,
		loadouts: make(map[ecs.EntityID]*ability.Loadout),
		log:      log,
	}
}

func (s *AbilitySystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

// Attach builds the boss's loadout from the current table. Problems with
// individual abilities are logged; the boss keeps whatever did build.
func (s *AbilitySystem) Attach(boss *world.BossInfo) int {
	lo, errs := ability.BuildLoadout(s.ctx.Tables.Current(), boss.Code, boss.ID)
	for _, err := range errs {
		s.log.Warn("ability not attached", zap.String("boss", boss.SpawnKey), zap.Error(err))
	}
	s.loadouts[boss.ID] = lo
	s.ctx.Tracer.Watch(boss)
	return len(lo.Components())
}

// Loadout returns the components attached to a boss.
func (s *AbilitySystem) Loadout(id ecs.EntityID) *ability.Loadout {
	return s.loadouts[id]
}

// Rebuild re-syncs every loadout with a newly loaded table.
func (s *AbilitySystem) Rebuild(t *data.AbilityTable) {
	for id, lo := range s.loadouts {
		b := s.world.Boss(id)
		if b == nil {
			continue
		}
		for _, err := range lo.Rebuild(t, b.Code) {
			s.log.Warn("ability not attached after reload", zap.String("boss", b.SpawnKey), zap.Error(err))
		}
	}
}

func (s *AbilitySystem) Update(_ time.Duration) {
	s.world.AllBosses(func(b *world.BossInfo) {
		lo := s.loadouts[b.ID]
		if lo == nil {
			return
		}
		lo.Each(func(c ability.Component) { s.tick(c, b) })
	})
}

// tick isolates one component; a panic costs that component one tick.
func (s *AbilitySystem) tick(c ability.Component, b *world.BossInfo) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("ability tick panic",
				zap.String("boss", b.SpawnKey), zap.String("ability", c.Code()), zap.Any("panic", r))
		}
	}()
	c.Tick(s.ctx, b)
}

// HandleGone is registered with world.State.OnEntityGone. It runs
// synchronously at the moment a boss dies or despawns, so no windup can fire
// after its owner is gone.
func (s *AbilitySystem) HandleGone(id ecs.EntityID, reason string) {
	lo := s.loadouts[id]
	if lo == nil {
		return
	}
	b := s.world.Boss(id)
	if b != nil {
		if n := lo.CancelAll(s.ctx, b, reason); n > 0 {
			s.log.Debug("windups cancelled", zap.String("boss", b.SpawnKey), zap.Int("count", n), zap.String("reason", reason))
		}
		if reason == world.ReasonDied {
			s.deathTriggers(lo, b)
		}
	}
	if s.ctx.Hazards != nil {
		s.ctx.Hazards.DespawnOwnedBy(id)
	}
	if reason != world.ReasonDied {
		delete(s.loadouts, id)
		s.ctx.Tracer.Disable(id)
	}
}

func (s *AbilitySystem) deathTriggers(lo *ability.Loadout, b *world.BossInfo) {
	for _, c := range lo.Components() {
		dt, ok := c.(ability.DeathTrigger)
		if !ok {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.log.Error("death trigger panic", zap.String("ability", c.Code()), zap.Any("panic", r))
				}
			}()
			dt.OnOwnerDeath(s.ctx, b)
		}()
	}
}
