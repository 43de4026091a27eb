// Package hazard runs the lifecycle of secondary entities spawned by
// abilities: fused hazards that detonate, timed adds, and ground tiles that
// burn whoever stands on them.
//
//	Spawned -> Armed -> Detonated | Expired | Orphaned
//
// All waiting is expressed as stored timestamps compared against the process
// clock on each pass.
package hazard

import (
	"errors"
	"fmt"
	"time"

	"github.com/jakecoffman/cp"
	"go.uber.org/zap"

	"github.com/l1jgo/encounter/internal/clock"
	"github.com/l1jgo/encounter/internal/core/ecs"
	"github.com/l1jgo/encounter/internal/core/event"
	"github.com/l1jgo/encounter/internal/world"
)

var ErrOwnerGone = errors.New("hazard owner gone")

// Hazard entity types.
const (
	TypeDecoyTrap  = "decoy_trap"
	TypeDeathBurst = "death_burst"
	TypeEcho       = "echo"
)

// Despawn reasons.
const (
	ReasonDetonated = "detonated"
	ReasonExpired   = "expired"
	ReasonOrphaned  = "orphaned"
)

// World is the part of world.State the lifecycle drives.
type World interface {
	SpawnHazard(typ string, pos cp.Vector, mapID int32) *world.HazardInfo
	AllHazards(fn func(*world.HazardInfo))
	Alive(id ecs.EntityID) bool
	Despawn(id ecs.EntityID, reason string) error
	FindPlayersWithin(pos cp.Vector, mapID int32, radius float64, pred func(*world.PlayerInfo) bool) []*world.PlayerInfo
	ApplyDamage(target ecs.EntityID, d world.Damage) (float64, error)
	PlaceGroundTile(t *world.GroundTile) error
	GroundTiles() []*world.GroundTile
	RemoveGroundTile(k world.TileKey)
	PlayersOnTile(k world.TileKey) []*world.PlayerInfo
}

type Options struct {
	Retry       time.Duration // backoff after a failed detonation
	DotInterval time.Duration // ground tile and echo pulse cadence
}

// Lifecycle owns no hazard state beyond retry bookkeeping; everything else
// lives on the hazard entities and ground tiles.
type Lifecycle struct {
	world   World
	clock   clock.Process
	present event.Presenter
	opts    Options
	log     *zap.Logger

	retryAt  map[ecs.EntityID]clock.ProcessMs
	hit      map[ecs.EntityID]map[ecs.EntityID]struct{} // players already damaged by a detonation in progress
	inactive map[ecs.EntityID]struct{}
}

func NewLifecycle(w World, c clock.Process, present event.Presenter, opts Options, log *zap.Logger) *Lifecycle {
	return &Lifecycle{
		world:    w,
		clock:    c,
		present:  present,
		opts:     opts,
		log:      log,
		retryAt:  make(map[ecs.EntityID]clock.ProcessMs),
		hit:      make(map[ecs.EntityID]map[ecs.EntityID]struct{}),
		inactive: make(map[ecs.EntityID]struct{}),
	}
}

// Spawn creates a hazard entity and writes its payload. Refuses when the
// owner is already gone, unless the hazard is meant to outlive it.
func (l *Lifecycle) Spawn(typ string, pos cp.Vector, mapID int32, p Payload) (ecs.EntityID, error) {
	if !p.SurviveOwner && !l.world.Alive(p.Owner) {
		return 0, ErrOwnerGone
	}
	h := l.world.SpawnHazard(typ, pos, mapID)
	p.Encode(h.Attrs)
	return h.ID, nil
}

// Tick advances every hazard entity one step.
func (l *Lifecycle) Tick() {
	now := l.clock.NowMs()
	var hazards []*world.HazardInfo
	l.world.AllHazards(func(h *world.HazardInfo) { hazards = append(hazards, h) })
	for _, h := range hazards {
		l.step(h, now)
	}
}

func (l *Lifecycle) step(h *world.HazardInfo, now clock.ProcessMs) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("hazard step panic", zap.Uint64("hazard", uint64(h.ID)), zap.Any("panic", r))
		}
	}()

	p, ok := Decode(h.Attrs)
	if !ok {
		// tolerated for one pass; a payload that never shows up is an orphan
		if _, seen := l.inactive[h.ID]; seen {
			l.despawn(h.ID, ReasonOrphaned)
			return
		}
		l.inactive[h.ID] = struct{}{}
		return
	}
	delete(l.inactive, h.ID)

	if !p.SurviveOwner && !l.world.Alive(p.Owner) {
		l.despawn(h.ID, ReasonOrphaned)
		return
	}

	if !p.Fused() {
		if !now.Before(p.DespawnAt) {
			l.despawn(h.ID, ReasonExpired)
			return
		}
		l.pulse(h, p, now)
		return
	}

	if now.Before(p.ExplodeAt) {
		return // armed
	}
	if at, ok := l.retryAt[h.ID]; ok && now.Before(at) {
		return
	}
	if err := l.detonate(h, p); err != nil {
		l.retryAt[h.ID] = now.Add(l.opts.Retry)
		l.log.Debug("hazard detonation failed, retrying",
			zap.Uint64("hazard", uint64(h.ID)), zap.Duration("after", l.opts.Retry), zap.Error(err))
		return
	}
	l.despawn(h.ID, ReasonDetonated)
}

// detonate damages every player in radius, crediting the owner. Players
// already hit by an earlier failed attempt are skipped.
func (l *Lifecycle) detonate(h *world.HazardInfo, p Payload) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("detonate panic: %v", r)
		}
	}()
	hit := l.hit[h.ID]
	if hit == nil {
		hit = make(map[ecs.EntityID]struct{})
		l.hit[h.ID] = hit
	}
	for _, pl := range l.world.FindPlayersWithin(h.Pos, h.MapID, p.Radius, nil) {
		if _, done := hit[pl.ID]; done {
			continue
		}
		_, derr := l.world.ApplyDamage(pl.ID, world.Damage{
			Amount: p.Damage, Type: p.DamageType, Tier: p.DamageTier, Source: p.Owner,
		})
		if derr != nil && !errors.Is(derr, world.ErrEntityDead) {
			return fmt.Errorf("damage %d: %w", pl.ID, derr)
		}
		hit[pl.ID] = struct{}{}
	}
	l.present.SpawnParticles(h.Pos, h.MapID, h.Type, 12)
	return nil
}

// pulse damages players around a timed add on the DoT cadence.
func (l *Lifecycle) pulse(h *world.HazardInfo, p Payload, now clock.ProcessMs) {
	if p.Damage <= 0 || p.Radius <= 0 {
		return
	}
	next := clock.ProcessMs(h.Attrs.GetLong(keyNextPulseMs, 0))
	if now.Before(next) {
		return
	}
	h.Attrs.SetLong(keyNextPulseMs, now.Add(l.opts.DotInterval).Int64())
	for _, pl := range l.world.FindPlayersWithin(h.Pos, h.MapID, p.Radius, nil) {
		_, _ = l.world.ApplyDamage(pl.ID, world.Damage{
			Amount: p.Damage, Type: p.DamageType, Tier: p.DamageTier, Source: p.Owner,
		})
	}
}

func (l *Lifecycle) despawn(id ecs.EntityID, reason string) {
	delete(l.retryAt, id)
	delete(l.hit, id)
	delete(l.inactive, id)
	if err := l.world.Despawn(id, reason); err != nil && !errors.Is(err, world.ErrNoSuchEntity) {
		l.log.Warn("hazard despawn", zap.Uint64("hazard", uint64(id)), zap.String("reason", reason), zap.Error(err))
	}
}

// DespawnOwnedBy removes every hazard owned by owner that does not survive
// it. Used when a boss dies, so its hazards do not wait for the next pass.
func (l *Lifecycle) DespawnOwnedBy(owner ecs.EntityID) int {
	var ids []ecs.EntityID
	l.world.AllHazards(func(h *world.HazardInfo) {
		if p, ok := Decode(h.Attrs); ok && p.Owner == owner && !p.SurviveOwner {
			ids = append(ids, h.ID)
		}
	})
	for _, id := range ids {
		l.despawn(id, ReasonOrphaned)
	}
	return len(ids)
}
