package system

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/encounter/internal/attr"
	coresys "github.com/l1jgo/encounter/internal/core/system"
	"github.com/l1jgo/encounter/internal/effect"
	"github.com/l1jgo/encounter/internal/world"
)

const sessionQueueSize = 64

var ErrJoinQueueFull = errors.New("join queue full")

// sessionOp is one queued join (player set) or leave.
type sessionOp struct {
	player *world.PlayerInfo
	charID int32
	owner  uint64
}

// PlayerSessionSystem brings players into the world with their saved
// attributes and takes them out again, saving on the way. Joins and leaves
// are queued from any goroutine and applied on the tick in the order they
// were queued. Phase 0 (Input).
//
// A character is reserved by its owner (a feed session ID) from Join until
// the matching Leave is applied; only that owner can take it out again.
type PlayerSessionSystem struct {
	world   *world.State
	effects *effect.Manager
	snaps   attr.SnapshotStore
	log     *zap.Logger
	ops     chan sessionOp

	mu       sync.Mutex
	reserved map[int32]uint64 // char id -> owner
}

func NewPlayerSessionSystem(ws *world.State, effects *effect.Manager, snaps attr.SnapshotStore, log *zap.Logger) *PlayerSessionSystem {
	return &PlayerSessionSystem{
		world:    ws,
		effects:  effects,
		snaps:    snaps,
		log:      log,
		ops:      make(chan sessionOp, sessionQueueSize),
		reserved: make(map[int32]uint64),
	}
}

func (s *PlayerSessionSystem) Phase() coresys.Phase { return coresys.PhaseInput }

// Join reserves p's character for owner and queues it for entry. Fails with
// world.ErrCharacterTaken when the character is reserved or already in the
// world, and ErrJoinQueueFull when the queue is full.
func (s *PlayerSessionSystem) Join(p *world.PlayerInfo, owner uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.reserved[p.CharID]; taken {
		return world.ErrCharacterTaken
	}
	select {
	case s.ops <- sessionOp{player: p, charID: p.CharID, owner: owner}:
		s.reserved[p.CharID] = owner
		return nil
	default:
		return ErrJoinQueueFull
	}
}

// Leave queues the removal of charID on behalf of owner. A character owned
// by someone else is left alone. Returns false only when the queue is full.
func (s *PlayerSessionSystem) Leave(charID int32, owner uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.reserved[charID]; !ok || o != owner {
		s.log.Debug("leave for a character not owned", zap.Int32("char_id", charID), zap.Uint64("owner", owner))
		return true
	}
	select {
	case s.ops <- sessionOp{charID: charID, owner: owner}:
		return true
	default:
		return false
	}
}

// Reserved reports whether charID is held by a join that has not left yet.
func (s *PlayerSessionSystem) Reserved(charID int32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.reserved[charID]
	return ok
}

func (s *PlayerSessionSystem) release(charID int32, owner uint64) {
	s.mu.Lock()
	if s.reserved[charID] == owner {
		delete(s.reserved, charID)
	}
	s.mu.Unlock()
}

func (s *PlayerSessionSystem) Update(_ time.Duration) {
	for {
		select {
		case op := <-s.ops:
			if op.player != nil {
				s.join(op.player, op.owner)
			} else {
				s.leave(op.charID, op.owner)
			}
		default:
			return
		}
	}
}

func (s *PlayerSessionSystem) join(p *world.PlayerInfo, owner uint64) {
	if s.world.GetByCharID(p.CharID) != nil {
		s.log.Warn("player already in world", zap.Int32("char_id", p.CharID))
		s.release(p.CharID, owner)
		return
	}
	if p.Attrs == nil {
		p.Attrs = attr.NewStore()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	restored := 0
	snap, ok, err := s.snaps.LoadSnapshot(ctx, p.OwnerKey())
	if err != nil {
		s.log.Error("load player attributes", zap.Int32("char_id", p.CharID), zap.Error(err))
	} else if ok {
		restored = p.Attrs.Restore(snap)
	}

	s.world.AddPlayer(p)
	s.effects.Track(p.ID)
	active := s.effects.Refresh(p.ID)
	s.log.Info("player joined",
		zap.String("name", p.Name), zap.Int32("char_id", p.CharID),
		zap.Int("restored_keys", restored), zap.Int("active_effects", active))
}

func (s *PlayerSessionSystem) leave(charID int32, owner uint64) {
	defer s.release(charID, owner)
	p := s.world.GetByCharID(charID)
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.snaps.SaveSnapshots(ctx, []attr.Snapshot{p.Attrs.Snapshot(p.OwnerKey())}); err != nil {
		s.log.Error("save player attributes", zap.Int32("char_id", charID), zap.Error(err))
	}
	if err := s.world.Despawn(p.ID, world.ReasonLogout); err != nil && !errors.Is(err, world.ErrNoSuchEntity) {
		s.log.Warn("despawn player", zap.Int32("char_id", charID), zap.Error(err))
	}
	s.log.Info("player left", zap.String("name", p.Name), zap.Int32("char_id", charID))
}
