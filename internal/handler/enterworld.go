package handler

import (
	"errors"
	"math"

	"github.com/jakecoffman/cp"
	"go.uber.org/zap"

	"github.com/l1jgo/encounter/internal/net"
	"github.com/l1jgo/encounter/internal/net/packet"
	"github.com/l1jgo/encounter/internal/world"
)

// HandleJoin processes C_JOIN: [D char id][S name][D map][F x][F y][F hp][F max hp].
// The player enters on the next session pass; S_JOINED follows once it has.
func HandleJoin(sess *net.Session, r *packet.Reader, deps *Deps) {
	charID := r.ReadD()
	name := r.ReadS()
	mapID := r.ReadD()
	x, y := r.ReadF(), r.ReadF()
	hp, maxHP := r.ReadF(), r.ReadF()

	if charID <= 0 || name == "" {
		sendReject(sess, "join needs a character id and name")
		return
	}
	if !finite(x, y, hp, maxHP) || maxHP <= 0 {
		sendReject(sess, "bad join stats")
		return
	}
	if hp <= 0 || hp > maxHP {
		hp = maxHP
	}
	if deps.World.GetByCharID(charID) != nil {
		sendReject(sess, "character already in world")
		return
	}

	p := &world.PlayerInfo{
		CharID: charID,
		Name:   name,
		Pos:    cp.Vector{X: x, Y: y},
		MapID:  mapID,
		HP:     hp,
		MaxHP:  maxHP,
	}
	if err := deps.Sessions.Join(p, sess.ID); err != nil {
		if errors.Is(err, world.ErrCharacterTaken) {
			sendReject(sess, "character already in world")
			return
		}
		deps.Log.Warn("join refused", zap.Uint64("session", sess.ID), zap.Int32("char_id", charID), zap.Error(err))
		sendReject(sess, "server busy")
		return
	}

	sess.CharID = charID
	sess.Name = name
	sess.PlayerID = 0
	sess.SetState(packet.StateInWorld)
	deps.Log.Info("feed client joining", zap.Uint64("session", sess.ID),
		zap.Int32("char_id", charID), zap.String("name", name), zap.Int32("map", mapID))
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
