package world

import (
	"math"
	"sort"

	"github.com/jakecoffman/cp"

	"github.com/l1jgo/encounter/internal/clock"
	"github.com/l1jgo/encounter/internal/core/ecs"
)

// TileKey uniquely identifies a ground tile (map + integer coordinates).
type TileKey struct {
	MapID int32
	X, Y  int32
}

// TileAt returns the tile containing pos.
func TileAt(pos cp.Vector, mapID int32) TileKey {
	return TileKey{MapID: mapID, X: int32(math.Floor(pos.X)), Y: int32(math.Floor(pos.Y))}
}

// Center returns the middle of the tile.
func (k TileKey) Center() cp.Vector {
	return cp.Vector{X: float64(k.X) + 0.5, Y: float64(k.Y) + 0.5}
}

// GroundTile is a hazard block placed on the floor. It has no entity of its
// own; its owner is the boss whose ability placed it.
// Not persisted; exists only in memory.
type GroundTile struct {
	Key        TileKey
	Owner      ecs.EntityID
	Ability    string
	DespawnAt  clock.ProcessMs
	NextDot    clock.ProcessMs
	Damage     float64
	DamageType string
	DamageTier int
}

// BlockTile marks a tile as unable to hold ground hazards (walls, water).
func (s *State) BlockTile(k TileKey) {
	s.blocked[k] = struct{}{}
}

// PlaceGroundTile puts t on the floor, replacing any tile already there.
func (s *State) PlaceGroundTile(t *GroundTile) error {
	if _, ok := s.blocked[t.Key]; ok {
		return ErrTileBlocked
	}
	s.tiles[t.Key] = t
	return nil
}

func (s *State) GroundTile(k TileKey) *GroundTile {
	return s.tiles[k]
}

func (s *State) RemoveGroundTile(k TileKey) {
	delete(s.tiles, k)
}

// GroundTiles returns all placed tiles in key order.
func (s *State) GroundTiles() []*GroundTile {
	out := make([]*GroundTile, 0, len(s.tiles))
	for _, t := range s.tiles {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Key, out[j].Key
		if a.MapID != b.MapID {
			return a.MapID < b.MapID
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
	return out
}

// PlayersOnTile returns the live players standing on k.
func (s *State) PlayersOnTile(k TileKey) []*PlayerInfo {
	return s.FindPlayersWithin(k.Center(), k.MapID, math.Sqrt2/2, func(p *PlayerInfo) bool {
		return TileAt(p.Pos, p.MapID) == k
	})
}
