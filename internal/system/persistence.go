package system

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/encounter/internal/attr"
	"github.com/l1jgo/encounter/internal/clock"
	"github.com/l1jgo/encounter/internal/core/ecs"
	"github.com/l1jgo/encounter/internal/core/event"
	coresys "github.com/l1jgo/encounter/internal/core/system"
	"github.com/l1jgo/encounter/internal/persist"
	"github.com/l1jgo/encounter/internal/world"
)

// WorldOwner is the snapshot owner for server-wide state.
const (
	WorldOwner  = "world"
	calendarKey = "calendar.hours"
)

// maxPendingActivations bounds the activation log backlog kept while the
// store is unreachable. The oldest entries go first.
const maxPendingActivations = 4096

// ActivationWriter stores the ability activation log.
type ActivationWriter interface {
	WriteActivations(ctx context.Context, entries []persist.ActivationEntry) error
}

// PersistenceSystem periodically saves every player's and boss's attributes,
// the calendar position and the activation log. Phase 5 (Persist).
type PersistenceSystem struct {
	world       *world.State
	snaps       attr.SnapshotStore
	activations ActivationWriter
	clock       clock.Process
	cal         clock.Calendar
	interval    time.Duration
	next        clock.ProcessMs
	pending     []persist.ActivationEntry
	maxPending  int
	dropped     int
	log         *zap.Logger
}

func NewPersistenceSystem(ws *world.State, bus *event.Bus, snaps attr.SnapshotStore, activations ActivationWriter,
	proc clock.Process, cal clock.Calendar, interval time.Duration, log *zap.Logger) *PersistenceSystem {
	s := &PersistenceSystem{
		world:       ws,
		snaps:       snaps,
		activations: activations,
		clock:       proc,
		cal:         cal,
		interval:    interval,
		next:        proc.NowMs().Add(interval),
		maxPending:  maxPendingActivations,
		log:         log,
	}
	event.Subscribe(bus, func(e event.AbilityActivated) {
		s.record(persist.ActivationEntry{
			Boss: s.ownerKey(e.OwnerID), Ability: e.Ability, Stage: e.Stage, Target: s.ownerKey(e.TargetID),
		})
	})
	event.Subscribe(bus, func(e event.AbilityCancelled) {
		s.record(persist.ActivationEntry{
			Boss: s.ownerKey(e.OwnerID), Ability: e.Ability, Stage: -1, Cancelled: true,
		})
	})
	return s
}

func (s *PersistenceSystem) record(e persist.ActivationEntry) {
	if len(s.pending) >= s.maxPending {
		n := len(s.pending) - s.maxPending + 1
		s.pending = append(s.pending[:0], s.pending[n:]...)
		s.dropped += n
	}
	s.pending = append(s.pending, e)
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(_ time.Duration) {
	now := s.clock.NowMs()
	if now.Before(s.next) {
		return
	}
	s.next = now.Add(s.interval)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.SaveAll(ctx); err != nil {
		s.log.Error("auto-save failed", zap.Error(err))
	}
}

// SaveAll persists everything immediately. Called on the save interval and
// once more at shutdown.
func (s *PersistenceSystem) SaveAll(ctx context.Context) error {
	snaps := make([]attr.Snapshot, 0, s.world.PlayerCount()+s.world.BossCount()+1)
	s.world.AllPlayers(func(p *world.PlayerInfo) {
		snaps = append(snaps, p.Attrs.Snapshot(p.OwnerKey()))
	})
	s.world.AllBosses(func(b *world.BossInfo) {
		snaps = append(snaps, b.Attrs.Snapshot(b.OwnerKey()))
	})
	ws := attr.NewStore()
	ws.SetDouble(calendarKey, s.cal.NowHours().Float64())
	snaps = append(snaps, ws.Snapshot(WorldOwner))

	if err := s.snaps.SaveSnapshots(ctx, snaps); err != nil {
		return fmt.Errorf("save snapshots: %w", err)
	}
	if s.dropped > 0 {
		s.log.Warn("activation log backlog full, oldest entries dropped",
			zap.Int("dropped", s.dropped), zap.Int("kept", len(s.pending)))
		s.dropped = 0
	}
	if len(s.pending) > 0 {
		if err := s.activations.WriteActivations(ctx, s.pending); err != nil {
			return fmt.Errorf("write activations: %w", err)
		}
		s.pending = s.pending[:0]
	}
	s.log.Debug("attributes saved", zap.Int("owners", len(snaps)))
	return nil
}

func (s *PersistenceSystem) ownerKey(id ecs.EntityID) string {
	if id.IsZero() {
		return ""
	}
	if p := s.world.Player(id); p != nil {
		return p.OwnerKey()
	}
	if b := s.world.Boss(id); b != nil {
		return b.OwnerKey()
	}
	return fmt.Sprintf("entity:%d", uint64(id))
}

// LoadCalendar returns the calendar position saved by the previous run, or
// zero on first start.
func LoadCalendar(ctx context.Context, snaps attr.SnapshotStore) (clock.CalendarHours, error) {
	snap, ok, err := snaps.LoadSnapshot(ctx, WorldOwner)
	if err != nil || !ok {
		return 0, err
	}
	st := attr.NewStore()
	st.Restore(snap)
	return clock.CalendarHours(st.GetDouble(calendarKey, 0)), nil
}
