package hazard

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/encounter/internal/clock"
	"github.com/l1jgo/encounter/internal/core/ecs"
	"github.com/l1jgo/encounter/internal/world"
)

// GroundSpec describes one ground tile placement.
type GroundSpec struct {
	Owner      ecs.EntityID
	Ability    string
	Key        world.TileKey
	Lifetime   time.Duration
	Damage     float64
	DamageType string
	DamageTier int
}

// PlaceGround puts a burning tile on the floor. The first DoT tick is one
// interval after placement.
func (l *Lifecycle) PlaceGround(g GroundSpec) error {
	if !l.world.Alive(g.Owner) {
		return ErrOwnerGone
	}
	now := l.clock.NowMs()
	return l.world.PlaceGroundTile(&world.GroundTile{
		Key:        g.Key,
		Owner:      g.Owner,
		Ability:    g.Ability,
		DespawnAt:  now.Add(g.Lifetime),
		NextDot:    now.Add(l.opts.DotInterval),
		Damage:     g.Damage,
		DamageType: g.DamageType,
		DamageTier: g.DamageTier,
	})
}

// TickGround expires tiles and applies damage-over-time to players standing
// on them. Each tile is handled independently.
func (l *Lifecycle) TickGround() {
	now := l.clock.NowMs()
	for _, t := range l.world.GroundTiles() {
		l.stepTile(t, now)
	}
}

func (l *Lifecycle) stepTile(t *world.GroundTile, now clock.ProcessMs) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("ground tile panic", zap.Int32("x", t.Key.X), zap.Int32("y", t.Key.Y), zap.Any("panic", r))
		}
	}()
	if !now.Before(t.DespawnAt) || !l.world.Alive(t.Owner) {
		l.world.RemoveGroundTile(t.Key)
		return
	}
	if now.Before(t.NextDot) {
		return
	}
	t.NextDot = now.Add(l.opts.DotInterval)
	for _, p := range l.world.PlayersOnTile(t.Key) {
		_, err := l.world.ApplyDamage(p.ID, world.Damage{
			Amount: t.Damage, Type: t.DamageType, Tier: t.DamageTier, Source: t.Owner,
		})
		if err != nil && !errors.Is(err, world.ErrEntityDead) {
			l.log.Debug("ground dot", zap.Uint64("player", uint64(p.ID)), zap.Error(err))
		}
	}
}
