package world

import (
	"fmt"

	"github.com/jakecoffman/cp"

	"github.com/l1jgo/encounter/internal/attr"
	"github.com/l1jgo/encounter/internal/core/ecs"
)

// PlayerInfo holds in-memory data for a player currently in-world.
// Accessed only from the game loop goroutine; no locks needed.
type PlayerInfo struct {
	ID            ecs.EntityID
	CharID        int32 // DB ID, persistence identity
	Name          string
	Pos           cp.Vector
	MapID         int32
	HP            float64
	MaxHP         float64
	BaseWalkSpeed float64
	Dead          bool
	Attrs         *attr.Store
}

// OwnerKey is the identity the player's attributes are saved under.
func (p *PlayerInfo) OwnerKey() string {
	return PlayerOwnerKey(p.CharID)
}

func PlayerOwnerKey(charID int32) string {
	return fmt.Sprintf("player:%d", charID)
}

// AddPlayer registers a player in the world and returns its entity ID.
func (s *State) AddPlayer(p *PlayerInfo) ecs.EntityID {
	p.ID = s.ecs.CreateEntity()
	if p.Attrs == nil {
		p.Attrs = attr.NewStore()
	}
	if p.BaseWalkSpeed == 0 {
		p.BaseWalkSpeed = 1
	}
	s.players.Set(p.ID, p)
	s.byCharID[p.CharID] = p
	s.aoi.Add(p.ID, p.Pos, p.MapID)
	return p.ID
}

// Player returns a player by entity ID, or nil.
func (s *State) Player(id ecs.EntityID) *PlayerInfo {
	p, _ := s.players.Get(id)
	return p
}

// GetByCharID returns a player by character DB ID.
func (s *State) GetByCharID(charID int32) *PlayerInfo {
	return s.byCharID[charID]
}

// MovePlayer moves a player and updates the AOI grid.
func (s *State) MovePlayer(id ecs.EntityID, pos cp.Vector, mapID int32) {
	p := s.Player(id)
	if p == nil {
		return
	}
	oldPos, oldMap := p.Pos, p.MapID
	p.Pos = pos
	p.MapID = mapID
	s.aoi.Move(id, oldPos, oldMap, pos, mapID)
}

// PlayerCount returns the number of players in-world.
func (s *State) PlayerCount() int {
	return s.players.Len()
}

// AllPlayers iterates all in-world players in entity order.
func (s *State) AllPlayers(fn func(*PlayerInfo)) {
	s.players.Each(func(_ ecs.EntityID, p *PlayerInfo) { fn(p) })
}

// FindNearestPlayer returns the closest live player on mapID whose distance
// from pos lies in [minR, maxR] and who passes pred (nil accepts all).
// Ties go to the lower entity ID.
func (s *State) FindNearestPlayer(pos cp.Vector, mapID int32, minR, maxR float64, pred func(*PlayerInfo) bool) *PlayerInfo {
	var best *PlayerInfo
	bestDist := 0.0
	for _, id := range s.aoi.Within(pos, mapID, maxR) {
		p := s.Player(id)
		if p == nil || p.Dead || p.MapID != mapID || !s.ecs.Alive(id) {
			continue
		}
		d := pos.Distance(p.Pos)
		if d < minR || d > maxR {
			continue
		}
		if pred != nil && !pred(p) {
			continue
		}
		if best == nil || d < bestDist {
			best, bestDist = p, d
		}
	}
	return best
}

// FindPlayersWithin returns every live player on mapID within radius of pos
// that passes pred, in entity order.
func (s *State) FindPlayersWithin(pos cp.Vector, mapID int32, radius float64, pred func(*PlayerInfo) bool) []*PlayerInfo {
	var out []*PlayerInfo
	for _, id := range s.aoi.Within(pos, mapID, radius) {
		p := s.Player(id)
		if p == nil || p.Dead || p.MapID != mapID || !s.ecs.Alive(id) {
			continue
		}
		if pos.Distance(p.Pos) > radius {
			continue
		}
		if pred != nil && !pred(p) {
			continue
		}
		out = append(out, p)
	}
	return out
}
