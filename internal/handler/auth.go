package handler

import (
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/l1jgo/encounter/internal/net"
	"github.com/l1jgo/encounter/internal/net/packet"
)

// HandleHello processes C_HELLO: [D version][S password].
// With no password hash configured, any client may watch.
func HandleHello(sess *net.Session, r *packet.Reader, deps *Deps) {
	version := r.ReadD()
	password := r.ReadS()

	if version != packet.ProtocolVersion {
		deps.Log.Info("feed client protocol mismatch",
			zap.Uint64("session", sess.ID), zap.Int32("version", version))
		rejectAndClose(sess, fmt.Sprintf("protocol version %d, server speaks %d", version, packet.ProtocolVersion))
		return
	}

	if hash := deps.Config.Network.PasswordHash; hash != "" {
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
			deps.Log.Warn("feed client bad password", zap.Uint64("session", sess.ID), zap.String("ip", sess.IP))
			rejectAndClose(sess, "bad password")
			return
		}
	}

	sess.SetState(packet.StateObserving)
	sendWelcome(sess, deps.Config.Server.Name, deps.Config.Tick.Rate.Milliseconds())
	deps.Log.Info("feed client observing", zap.Uint64("session", sess.ID), zap.String("ip", sess.IP))
}

// HashPassword returns the bcrypt hash to put in [network] password_hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func rejectAndClose(sess *net.Session, reason string) {
	sendReject(sess, reason)
	sess.CloseWhenFlushed()
}
