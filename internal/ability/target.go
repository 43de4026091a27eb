package ability

import (
	"github.com/jakecoffman/cp"

	"github.com/l1jgo/encounter/internal/data"
	"github.com/l1jgo/encounter/internal/world"
)

// minSearchRadius keeps melee-range stages from searching an empty circle.
const minSearchRadius = 2.0

// AcquireTarget finds the nearest live player on mapID within the stage's
// search radius, then re-checks the distance against both stage bounds.
// A candidate outside [MinRange, MaxRange] means no target this tick.
func AcquireTarget(w World, pos cp.Vector, mapID int32, st data.Stage) (*world.PlayerInfo, float64, bool) {
	radius := max(st.MaxRange, minSearchRadius)
	p := w.FindNearestPlayer(pos, mapID, 0, radius, nil)
	if p == nil {
		return nil, 0, false
	}
	d := pos.Distance(p.Pos)
	if d < st.MinRange || d > st.MaxRange {
		return nil, d, false
	}
	return p, d, true
}
