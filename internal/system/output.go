package system

import (
	"time"

	"github.com/l1jgo/encounter/internal/core/ecs"
	coresys "github.com/l1jgo/encounter/internal/core/system"
	"github.com/l1jgo/encounter/internal/handler"
	"github.com/l1jgo/encounter/internal/net"
	"github.com/l1jgo/encounter/internal/net/packet"
	"github.com/l1jgo/encounter/internal/world"
)

// OutputSystem confirms pending joins and flushes every session's buffered
// packets to its writer. Phase 4 (Output), registered after
// ReplicationSystem.
type OutputSystem struct {
	store *net.SessionStore
	world *world.State
}

func NewOutputSystem(store *net.SessionStore, ws *world.State) *OutputSystem {
	return &OutputSystem{store: store, world: ws}
}

func (s *OutputSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *OutputSystem) Update(_ time.Duration) {
	claimed := make(map[ecs.EntityID]struct{})
	s.store.ForEach(func(sess *net.Session) {
		if sess.PlayerID != 0 {
			claimed[ecs.EntityID(sess.PlayerID)] = struct{}{}
		}
	})
	s.store.ForEach(func(sess *net.Session) {
		if sess.State() == packet.StateInWorld && sess.PlayerID == 0 {
			s.confirm(sess, claimed)
		}
		sess.FlushOutput()
	})
}

func (s *OutputSystem) confirm(sess *net.Session, claimed map[ecs.EntityID]struct{}) {
	p := s.world.GetByCharID(sess.CharID)
	if p == nil {
		return
	}
	if _, taken := claimed[p.ID]; taken {
		return
	}
	claimed[p.ID] = struct{}{}
	sess.PlayerID = uint64(p.ID)
	handler.SendJoined(sess, p.ID, p.CharID)
}
