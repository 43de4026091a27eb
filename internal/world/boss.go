package world

import (
	"github.com/jakecoffman/cp"

	"github.com/l1jgo/encounter/internal/attr"
	"github.com/l1jgo/encounter/internal/core/ecs"
)

// BossInfo holds runtime data for a boss currently in-world.
type BossInfo struct {
	ID            ecs.EntityID
	Code          string // boss template code
	SpawnKey      string // persistence identity, stable across restarts
	Pos           cp.Vector
	MapID         int32
	HP            float64
	MaxHP         float64
	BaseWalkSpeed float64
	Dead          bool
	Attrs         *attr.Store

	freeze int // outstanding windups holding the boss in place
}

func (b *BossInfo) OwnerKey() string {
	return "boss:" + b.SpawnKey
}

// HealthFraction returns HP/MaxHP clamped to [0,1].
func (b *BossInfo) HealthFraction() float64 {
	if b.MaxHP <= 0 {
		return 0
	}
	return min(max(b.HP/b.MaxHP, 0), 1)
}

// Freeze halts autonomous movement and AI. Calls nest; each needs an Unfreeze.
func (b *BossInfo) Freeze() { b.freeze++ }

func (b *BossInfo) Unfreeze() {
	if b.freeze > 0 {
		b.freeze--
	}
}

// Frozen reports whether any windup is holding the boss.
func (b *BossInfo) Frozen() bool { return b.freeze > 0 }

// SpawnBoss registers a boss in the world.
func (s *State) SpawnBoss(b *BossInfo) ecs.EntityID {
	b.ID = s.ecs.CreateEntity()
	if b.Attrs == nil {
		b.Attrs = attr.NewStore()
	}
	if b.BaseWalkSpeed == 0 {
		b.BaseWalkSpeed = 1
	}
	if b.HP == 0 {
		b.HP = b.MaxHP
	}
	s.bosses.Set(b.ID, b)
	return b.ID
}

// Boss returns a boss by entity ID, or nil.
func (s *State) Boss(id ecs.EntityID) *BossInfo {
	b, _ := s.bosses.Get(id)
	return b
}

// AllBosses iterates all bosses in entity order.
func (s *State) AllBosses(fn func(*BossInfo)) {
	s.bosses.Each(func(_ ecs.EntityID, b *BossInfo) { fn(b) })
}

func (s *State) BossCount() int {
	return s.bosses.Len()
}
