package world

import (
	"github.com/jakecoffman/cp"

	"github.com/l1jgo/encounter/internal/attr"
	"github.com/l1jgo/encounter/internal/core/ecs"
)

// HazardInfo is a secondary entity spawned by an ability: a fused trap, a
// death burst or a summoned echo. Its payload lives in Attrs and is written
// and read by the hazard package.
type HazardInfo struct {
	ID    ecs.EntityID
	Type  string
	Pos   cp.Vector
	MapID int32
	Attrs *attr.Store
}

// SpawnHazard registers a hazard entity. The caller fills Attrs after the
// entity exists; readers treat missing payload fields as inactive.
func (s *State) SpawnHazard(typ string, pos cp.Vector, mapID int32) *HazardInfo {
	h := &HazardInfo{
		ID:    s.ecs.CreateEntity(),
		Type:  typ,
		Pos:   pos,
		MapID: mapID,
		Attrs: attr.NewStore(),
	}
	s.hazards.Set(h.ID, h)
	return h
}

func (s *State) Hazard(id ecs.EntityID) *HazardInfo {
	h, _ := s.hazards.Get(id)
	return h
}

// AllHazards iterates hazards that are not queued for despawn.
func (s *State) AllHazards(fn func(*HazardInfo)) {
	s.hazards.Each(func(id ecs.EntityID, h *HazardInfo) {
		if s.ecs.Alive(id) {
			fn(h)
		}
	})
}

func (s *State) HazardCount() int {
	return s.hazards.Len()
}
