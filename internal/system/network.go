package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/l1jgo/encounter/internal/core/system"
	"github.com/l1jgo/encounter/internal/net"
	"github.com/l1jgo/encounter/internal/net/packet"
)

// SessionSource hands over newly connected feed sessions.
type SessionSource interface {
	NewSessions() <-chan *net.Session
}

// Leaver takes a player out of the world on behalf of the session that
// joined it.
type Leaver interface {
	Leave(charID int32, owner uint64) bool
}

// NetworkSystem accepts feed sessions, drains their packet queues through the
// registry and retires closed ones. Phase 0 (Input), registered before
// PlayerSessionSystem so joins handled here enter the world this tick.
type NetworkSystem struct {
	source     SessionSource
	registry   *packet.Registry
	store      *net.SessionStore
	leaver     Leaver
	maxPerTick int
	log        *zap.Logger
}

func NewNetworkSystem(source SessionSource, registry *packet.Registry, store *net.SessionStore, leaver Leaver, maxPerTick int, log *zap.Logger) *NetworkSystem {
	return &NetworkSystem{
		source:     source,
		registry:   registry,
		store:      store,
		leaver:     leaver,
		maxPerTick: max(maxPerTick, 1),
		log:        log,
	}
}

func (s *NetworkSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *NetworkSystem) Update(_ time.Duration) {
	s.accept()

	var gone []*net.Session
	s.store.ForEach(func(sess *net.Session) {
		if sess.IsClosed() || sess.State() == packet.StateDisconnecting {
			gone = append(gone, sess)
			return
		}
		s.drain(sess)
	})
	for _, sess := range gone {
		s.retire(sess)
	}
}

func (s *NetworkSystem) accept() {
	for {
		select {
		case sess := <-s.source.NewSessions():
			s.store.Add(sess)
		default:
			return
		}
	}
}

// drain dispatches up to maxPerTick packets. A handler may change the
// session's state, so each packet is dispatched under the current one.
func (s *NetworkSystem) drain(sess *net.Session) {
	for i := 0; i < s.maxPerTick; i++ {
		select {
		case data := <-sess.InQueue:
			if err := s.registry.Dispatch(sess, sess.State(), data); err != nil {
				s.log.Debug("packet dispatch", zap.Uint64("session", sess.ID), zap.Error(err))
			}
		default:
			return
		}
	}
}

func (s *NetworkSystem) retire(sess *net.Session) {
	if sess.CharID != 0 && !s.leaver.Leave(sess.CharID, sess.ID) {
		// stays in the store; retried next tick
		s.log.Warn("leave queue full", zap.Uint64("session", sess.ID), zap.Int32("char_id", sess.CharID))
		return
	}
	sess.CharID = 0
	sess.FlushOutput()
	s.store.Remove(sess.ID)
	s.log.Info("feed client disconnected", zap.Uint64("session", sess.ID), zap.String("ip", sess.IP))
}
