package world

import (
	"errors"

	"github.com/jakecoffman/cp"

	"github.com/l1jgo/encounter/internal/attr"
	"github.com/l1jgo/encounter/internal/core/ecs"
	"github.com/l1jgo/encounter/internal/core/event"
)

var (
	ErrNoSuchEntity = errors.New("no such entity")
	ErrEntityDead   = errors.New("entity is dead")
	ErrTileBlocked  = errors.New("tile is blocked")

	ErrCharacterTaken = errors.New("character already in world")
)

// Lifecycle reasons shared by several packages.
const (
	ReasonDied   = "died"
	ReasonLogout = "logout"
)

// GoneHook runs synchronously when an entity dies or is despawned, before
// anything else can observe the change.
type GoneHook func(id ecs.EntityID, reason string)

// Damage is one hit. Source is the entity credited with it.
type Damage struct {
	Amount    float64
	Type      string
	Tier      int
	Source    ecs.EntityID
	Knockback cp.Vector // displacement applied to the target
}

// State tracks all players, bosses, hazards and ground tiles in-world.
// Single-goroutine access only (game loop).
type State struct {
	ecs *ecs.World
	bus *event.Bus

	players  *ecs.PtrComponentStore[PlayerInfo]
	bosses   *ecs.PtrComponentStore[BossInfo]
	hazards  *ecs.PtrComponentStore[HazardInfo]
	byCharID map[int32]*PlayerInfo
	aoi      *AOIGrid

	tiles   map[TileKey]*GroundTile
	blocked map[TileKey]struct{}

	goneHooks []GoneHook
}

func NewState(bus *event.Bus) *State {
	s := &State{
		ecs:      ecs.NewWorld(),
		bus:      bus,
		players:  ecs.NewPtrComponentStore[PlayerInfo](),
		bosses:   ecs.NewPtrComponentStore[BossInfo](),
		hazards:  ecs.NewPtrComponentStore[HazardInfo](),
		byCharID: make(map[int32]*PlayerInfo),
		aoi:      NewAOIGrid(),
		tiles:    make(map[TileKey]*GroundTile),
		blocked:  make(map[TileKey]struct{}),
	}
	s.ecs.Registry().Register(s.players)
	s.ecs.Registry().Register(s.bosses)
	s.ecs.Registry().Register(s.hazards)
	return s
}

// ECS exposes the entity world, for CleanupSystem.
func (s *State) ECS() *ecs.World { return s.ecs }

// OnEntityGone registers a lifecycle hook.
func (s *State) OnEntityGone(h GoneHook) {
	s.goneHooks = append(s.goneHooks, h)
}

func (s *State) fireGone(id ecs.EntityID, reason string) {
	for _, h := range s.goneHooks {
		h(id, reason)
	}
}

// Exists reports whether id refers to an entity that has not been despawned.
func (s *State) Exists(id ecs.EntityID) bool {
	return s.ecs.Alive(id)
}

// Alive reports whether id exists and is not dead.
func (s *State) Alive(id ecs.EntityID) bool {
	if !s.ecs.Alive(id) {
		return false
	}
	if p := s.Player(id); p != nil {
		return !p.Dead
	}
	if b := s.Boss(id); b != nil {
		return !b.Dead
	}
	return true
}

// Attrs returns the attribute store of any entity kind.
func (s *State) Attrs(id ecs.EntityID) (*attr.Store, bool) {
	if p := s.Player(id); p != nil {
		return p.Attrs, true
	}
	if b := s.Boss(id); b != nil {
		return b.Attrs, true
	}
	if h := s.Hazard(id); h != nil {
		return h.Attrs, true
	}
	return nil, false
}

// Position returns the position and map of a player, boss or hazard.
func (s *State) Position(id ecs.EntityID) (cp.Vector, int32, bool) {
	if p := s.Player(id); p != nil {
		return p.Pos, p.MapID, true
	}
	if b := s.Boss(id); b != nil {
		return b.Pos, b.MapID, true
	}
	if h := s.Hazard(id); h != nil {
		return h.Pos, h.MapID, true
	}
	return cp.Vector{}, 0, false
}

// BaseStat returns the unmodified value of a blendable stat.
func (s *State) BaseStat(id ecs.EntityID, stat string) (float64, bool) {
	switch stat {
	case "walk_speed":
		if p := s.Player(id); p != nil {
			return p.BaseWalkSpeed, true
		}
		if b := s.Boss(id); b != nil {
			return b.BaseWalkSpeed, true
		}
	case "damage_mult":
		if _, ok := s.Attrs(id); ok {
			return 1, true
		}
	}
	return 0, false
}

// Despawn removes an entity from queries immediately and queues it for
// destruction at the end of the tick.
func (s *State) Despawn(id ecs.EntityID, reason string) error {
	if !s.ecs.Alive(id) {
		return ErrNoSuchEntity
	}
	if p := s.Player(id); p != nil {
		s.aoi.Remove(id, p.Pos, p.MapID)
		delete(s.byCharID, p.CharID)
	}
	s.ecs.MarkForDestruction(id, reason)
	s.fireGone(id, reason)
	event.Emit(s.bus, event.EntityDespawned{EntityID: id, Reason: reason})
	return nil
}

// ApplyDamage subtracts d.Amount from a player's or boss's HP and returns the
// amount actually dealt.
func (s *State) ApplyDamage(target ecs.EntityID, d Damage) (float64, error) {
	if !s.ecs.Alive(target) {
		return 0, ErrNoSuchEntity
	}
	var hp *float64
	var dead *bool
	switch {
	case s.Player(target) != nil:
		p := s.Player(target)
		hp, dead = &p.HP, &p.Dead
	case s.Boss(target) != nil:
		b := s.Boss(target)
		hp, dead = &b.HP, &b.Dead
	default:
		return 0, ErrNoSuchEntity
	}
	if *dead {
		return 0, ErrEntityDead
	}
	if d.Amount <= 0 {
		return 0, nil
	}

	dealt := min(d.Amount, *hp)
	*hp -= dealt
	if d.Knockback != (cp.Vector{}) {
		s.displace(target, d.Knockback)
	}
	killed := *hp <= 0
	if killed {
		*hp = 0
		*dead = true
	}
	event.Emit(s.bus, event.DamageDealt{
		TargetID: target, SourceID: d.Source, Amount: dealt,
		Type: d.Type, Tier: d.Tier, Killed: killed,
	})
	if killed {
		event.Emit(s.bus, event.EntityDied{EntityID: target, KillerID: d.Source})
		s.fireGone(target, ReasonDied)
	}
	return dealt, nil
}

// Heal restores HP up to MaxHP and returns the amount restored.
func (s *State) Heal(target ecs.EntityID, amount float64) (float64, error) {
	if !s.ecs.Alive(target) {
		return 0, ErrNoSuchEntity
	}
	var hp, maxHP float64
	var set func(float64)
	if p := s.Player(target); p != nil {
		if p.Dead {
			return 0, ErrEntityDead
		}
		hp, maxHP, set = p.HP, p.MaxHP, func(v float64) { p.HP = v }
	} else if b := s.Boss(target); b != nil {
		if b.Dead {
			return 0, ErrEntityDead
		}
		hp, maxHP, set = b.HP, b.MaxHP, func(v float64) { b.HP = v }
	} else {
		return 0, ErrNoSuchEntity
	}
	if amount <= 0 {
		return 0, nil
	}
	next := min(hp+amount, maxHP)
	set(next)
	return next - hp, nil
}

func (s *State) displace(id ecs.EntityID, by cp.Vector) {
	if p := s.Player(id); p != nil {
		s.MovePlayer(id, p.Pos.Add(by), p.MapID)
		return
	}
	if b := s.Boss(id); b != nil && !b.Frozen() {
		b.Pos = b.Pos.Add(by)
	}
}
