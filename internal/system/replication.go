package system

import (
	"time"

	"github.com/l1jgo/encounter/internal/attr"
	"github.com/l1jgo/encounter/internal/core/ecs"
	"github.com/l1jgo/encounter/internal/core/event"
	coresys "github.com/l1jgo/encounter/internal/core/system"
	"github.com/l1jgo/encounter/internal/world"
)

// ReplicationSystem drains dirty attribute keys and publishes them for the
// client-facing layer. Phase 4 (Output).
type ReplicationSystem struct {
	world *world.State
	bus   *event.Bus
}

func NewReplicationSystem(ws *world.State, bus *event.Bus) *ReplicationSystem {
	return &ReplicationSystem{world: ws, bus: bus}
}

func (s *ReplicationSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *ReplicationSystem) Update(_ time.Duration) {
	s.world.AllPlayers(func(p *world.PlayerInfo) { s.drain(p.ID, p.Attrs) })
	s.world.AllBosses(func(b *world.BossInfo) { s.drain(b.ID, b.Attrs) })
	s.world.AllHazards(func(h *world.HazardInfo) { s.drain(h.ID, h.Attrs) })
}

func (s *ReplicationSystem) drain(id ecs.EntityID, store *attr.Store) {
	if keys := store.DrainDirty(); len(keys) > 0 {
		event.Emit(s.bus, event.AttributesChanged{EntityID: id, Keys: keys})
	}
}
