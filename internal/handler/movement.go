package handler

import (
	"github.com/jakecoffman/cp"

	"github.com/l1jgo/encounter/internal/effect"
	"github.com/l1jgo/encounter/internal/net"
	"github.com/l1jgo/encounter/internal/net/packet"
)

// HandleMove processes C_MOVE: [F x][F y]. The player stays on its map.
// Dead, stunned and not-yet-joined players do not move.
func HandleMove(sess *net.Session, r *packet.Reader, deps *Deps) {
	x, y := r.ReadF(), r.ReadF()
	if !finite(x, y) {
		return
	}
	p := deps.World.GetByCharID(sess.CharID)
	if p == nil || p.Dead {
		return
	}
	if deps.Effects.Blended(p.ID, effect.StatWalkSpeed) <= 0 {
		return
	}
	deps.World.MovePlayer(p.ID, cp.Vector{X: x, Y: y}, p.MapID)
}
