package handler

import (
	"go.uber.org/zap"

	"github.com/l1jgo/encounter/internal/net"
	"github.com/l1jgo/encounter/internal/net/packet"
	"github.com/l1jgo/encounter/internal/world"
)

// HandleTrace processes C_TRACE: [S spawn key][C on]. Turns info-level
// decision logging on or off for one boss.
func HandleTrace(sess *net.Session, r *packet.Reader, deps *Deps) {
	key := r.ReadS()
	on := r.ReadC() != 0

	var boss *world.BossInfo
	deps.World.AllBosses(func(b *world.BossInfo) {
		if boss == nil && b.SpawnKey == key {
			boss = b
		}
	})
	if boss == nil {
		sendReject(sess, "no boss "+key)
		return
	}
	if on {
		deps.Tracer.Enable(boss.ID)
	} else {
		deps.Tracer.Disable(boss.ID)
	}
	deps.Log.Info("ability trace toggled", zap.Uint64("session", sess.ID),
		zap.String("spawn", key), zap.Bool("on", on))
}
