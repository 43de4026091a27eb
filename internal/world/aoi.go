package world

import (
	"math"
	"sort"

	"github.com/jakecoffman/cp"

	"github.com/l1jgo/encounter/internal/core/ecs"
)

// AOIGrid implements a cell-based Area of Interest index over player
// positions. Queries return every entity in the cells overlapping the search
// square; callers do the fine-grained distance filtering.
// Accessed only from the game loop goroutine; no locks.

const cellSize = 16.0

type cellKey struct {
	mapID int32
	cx    int32
	cy    int32
}

func toCellCoord(v float64) int32 {
	return int32(math.Floor(v / cellSize))
}

type AOIGrid struct {
	cells map[cellKey]map[ecs.EntityID]struct{}
}

func NewAOIGrid() *AOIGrid {
	return &AOIGrid{
		cells: make(map[cellKey]map[ecs.EntityID]struct{}),
	}
}

func (g *AOIGrid) key(pos cp.Vector, mapID int32) cellKey {
	return cellKey{mapID: mapID, cx: toCellCoord(pos.X), cy: toCellCoord(pos.Y)}
}

func (g *AOIGrid) Add(id ecs.EntityID, pos cp.Vector, mapID int32) {
	k := g.key(pos, mapID)
	cell := g.cells[k]
	if cell == nil {
		cell = make(map[ecs.EntityID]struct{})
		g.cells[k] = cell
	}
	cell[id] = struct{}{}
}

func (g *AOIGrid) Remove(id ecs.EntityID, pos cp.Vector, mapID int32) {
	k := g.key(pos, mapID)
	cell := g.cells[k]
	if cell != nil {
		delete(cell, id)
		if len(cell) == 0 {
			delete(g.cells, k)
		}
	}
}

// Move updates an entity's cell when its position changes.
func (g *AOIGrid) Move(id ecs.EntityID, oldPos cp.Vector, oldMap int32, newPos cp.Vector, newMap int32) {
	if g.key(oldPos, oldMap) == g.key(newPos, newMap) {
		return
	}
	g.Remove(id, oldPos, oldMap)
	g.Add(id, newPos, newMap)
}

// Within returns the IDs in every cell touched by the square of half-size
// radius around pos, in ascending order. A square spanning more cells than
// are occupied is answered by scanning the occupied cells instead, so the
// cost never exceeds the population.
func (g *AOIGrid) Within(pos cp.Vector, mapID int32, radius float64) []ecs.EntityID {
	if math.IsNaN(radius) || radius < 0 {
		return nil
	}
	fminX, fmaxX := math.Floor((pos.X-radius)/cellSize), math.Floor((pos.X+radius)/cellSize)
	fminY, fmaxY := math.Floor((pos.Y-radius)/cellSize), math.Floor((pos.Y+radius)/cellSize)

	var result []ecs.EntityID
	if span := (fmaxX - fminX + 1) * (fmaxY - fminY + 1); !(span <= float64(len(g.cells))) {
		for k, cell := range g.cells {
			if k.mapID != mapID || float64(k.cx) < fminX || float64(k.cx) > fmaxX ||
				float64(k.cy) < fminY || float64(k.cy) > fmaxY {
				continue
			}
			for id := range cell {
				result = append(result, id)
			}
		}
	} else {
		for cx := int32(fminX); cx <= int32(fmaxX); cx++ {
			for cy := int32(fminY); cy <= int32(fmaxY); cy++ {
				for id := range g.cells[cellKey{mapID: mapID, cx: cx, cy: cy}] {
					result = append(result, id)
				}
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}
