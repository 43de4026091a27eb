// Package handler implements the observer feed protocol: the packet handlers
// that let feed clients authenticate, drive a player and toggle decision
// tracing, and the Feed that encodes world events for them.
package handler

import (
	"go.uber.org/zap"

	"github.com/l1jgo/encounter/internal/ability"
	"github.com/l1jgo/encounter/internal/config"
	"github.com/l1jgo/encounter/internal/effect"
	"github.com/l1jgo/encounter/internal/net"
	"github.com/l1jgo/encounter/internal/net/packet"
	"github.com/l1jgo/encounter/internal/world"
)

// Sessions queues players into and out of the world. owner is the feed
// session ID holding the character.
type Sessions interface {
	Join(p *world.PlayerInfo, owner uint64) error
	Leave(charID int32, owner uint64) bool
}

// Deps holds shared dependencies injected into all packet handlers.
type Deps struct {
	Config   *config.Config
	Log      *zap.Logger
	World    *world.State
	Effects  *effect.Manager
	Sessions Sessions
	Tracer   *ability.Tracer
}

// RegisterAll registers all packet handlers into the registry.
func RegisterAll(reg *packet.Registry, deps *Deps) {
	reg.Register(packet.C_OPCODE_HELLO,
		[]packet.SessionState{packet.StateHandshake},
		func(sess any, r *packet.Reader) {
			HandleHello(sess.(*net.Session), r, deps)
		},
	)

	reg.Register(packet.C_OPCODE_JOIN,
		[]packet.SessionState{packet.StateObserving},
		func(sess any, r *packet.Reader) {
			HandleJoin(sess.(*net.Session), r, deps)
		},
	)

	reg.Register(packet.C_OPCODE_MOVE,
		[]packet.SessionState{packet.StateInWorld},
		func(sess any, r *packet.Reader) {
			HandleMove(sess.(*net.Session), r, deps)
		},
	)
	reg.Register(packet.C_OPCODE_LEAVE,
		[]packet.SessionState{packet.StateInWorld},
		func(sess any, r *packet.Reader) {
			HandleLeave(sess.(*net.Session), r, deps)
		},
	)

	watching := []packet.SessionState{packet.StateObserving, packet.StateInWorld}
	reg.Register(packet.C_OPCODE_TRACE, watching,
		func(sess any, r *packet.Reader) {
			HandleTrace(sess.(*net.Session), r, deps)
		},
	)
	reg.Register(packet.C_OPCODE_QUIT,
		[]packet.SessionState{packet.StateHandshake, packet.StateObserving, packet.StateInWorld},
		func(sess any, r *packet.Reader) {
			HandleQuit(sess.(*net.Session), r, deps)
		},
	)
}
