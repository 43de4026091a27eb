package handler

import (
	"go.uber.org/zap"

	"github.com/l1jgo/encounter/internal/net"
	"github.com/l1jgo/encounter/internal/net/packet"
)

// HandleLeave processes C_LEAVE: the player is saved and removed, and the
// session goes back to observing.
func HandleLeave(sess *net.Session, _ *packet.Reader, deps *Deps) {
	if !deps.Sessions.Leave(sess.CharID, sess.ID) {
		deps.Log.Warn("leave queue full", zap.Uint64("session", sess.ID), zap.Int32("char_id", sess.CharID))
		sendReject(sess, "server busy")
		return
	}
	sess.CharID = 0
	sess.Name = ""
	sess.PlayerID = 0
	sess.SetState(packet.StateObserving)
}

// HandleQuit processes C_QUIT. An in-world player is removed by the
// network system once the session is closed.
func HandleQuit(sess *net.Session, _ *packet.Reader, deps *Deps) {
	deps.Log.Info("feed client quit", zap.Uint64("session", sess.ID))
	sess.CloseWhenFlushed()
}
