package world

import (
	"math"
	"testing"

	"github.com/jakecoffman/cp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l1jgo/encounter/internal/core/ecs"
	"github.com/l1jgo/encounter/internal/core/event"
)

func addPlayer(s *State, charID int32, x, y float64, mapID int32) *PlayerInfo {
	p := &PlayerInfo{CharID: charID, Name: "p", Pos: cp.Vector{X: x, Y: y}, MapID: mapID, HP: 100, MaxHP: 100}
	s.AddPlayer(p)
	return p
}

func TestFindNearestPlayer(t *testing.T) {
	s := NewState(event.NewBus())
	far := addPlayer(s, 1, 30, 0, 4)
	near := addPlayer(s, 2, 3, 4, 4) // distance 5
	addPlayer(s, 3, 1, 0, 7)         // other map
	origin := cp.Vector{}

	assert.Same(t, near, s.FindNearestPlayer(origin, 4, 0, 40, nil))
	assert.Same(t, far, s.FindNearestPlayer(origin, 4, 6, 40, nil), "min radius excludes the closer one")
	assert.Nil(t, s.FindNearestPlayer(origin, 4, 0, 4.9, nil))
	assert.Same(t, far, s.FindNearestPlayer(origin, 4, 0, 40, func(p *PlayerInfo) bool { return p.CharID != 2 }))

	near.Dead = true
	assert.Same(t, far, s.FindNearestPlayer(origin, 4, 0, 40, nil), "dead players are skipped")
}

func TestFindPlayersWithin_AcrossCells(t *testing.T) {
	s := NewState(event.NewBus())
	a := addPlayer(s, 1, -1, -1, 1)
	b := addPlayer(s, 2, 15.5, 0, 1)
	addPlayer(s, 3, 20, 20, 1)

	got := s.FindPlayersWithin(cp.Vector{X: 7, Y: 0}, 1, 9, nil)
	require.Len(t, got, 2)
	assert.Same(t, a, got[0])
	assert.Same(t, b, got[1])
}

func TestFindPlayersWithin_HugeRadiusScansOccupiedCells(t *testing.T) {
	s := NewState(event.NewBus())
	a := addPlayer(s, 1, 5, 5, 1)
	b := addPlayer(s, 2, 900, -700, 1)
	addPlayer(s, 3, 0, 0, 2)

	// a square of this size covers far more cells than the three occupied
	got := s.FindPlayersWithin(cp.Vector{}, 1, 1e9, nil)
	require.Len(t, got, 2)
	assert.Same(t, a, got[0])
	assert.Same(t, b, got[1])

	assert.Same(t, a, s.FindNearestPlayer(cp.Vector{}, 1, 0, math.Inf(1), nil))
	assert.Empty(t, s.aoi.Within(cp.Vector{}, 1, math.NaN()))

	// the bounds of the square still apply on the scan path
	got = s.FindPlayersWithin(cp.Vector{X: 900, Y: -700}, 1, 100, nil)
	require.Len(t, got, 1)
	assert.Same(t, b, got[0])
	assert.Equal(t, []ecs.EntityID{b.ID}, s.aoi.Within(cp.Vector{X: 2000, Y: -700}, 1, 1200))
}

func TestApplyDamage_KillFiresHooksOnce(t *testing.T) {
	bus := event.NewBus()
	s := NewState(bus)
	p := addPlayer(s, 1, 0, 0, 1)
	boss := &BossInfo{Code: "k", SpawnKey: "k@0", MaxHP: 500}
	bossID := s.SpawnBoss(boss)

	var gone []string
	s.OnEntityGone(func(id ecs.EntityID, reason string) {
		assert.Equal(t, p.ID, id)
		gone = append(gone, reason)
	})
	var died []event.EntityDied
	event.Subscribe(bus, func(e event.EntityDied) { died = append(died, e) })

	dealt, err := s.ApplyDamage(p.ID, Damage{Amount: 30, Type: "fire", Source: bossID, Knockback: cp.Vector{X: 2}})
	require.NoError(t, err)
	assert.Equal(t, 30.0, dealt)
	assert.Equal(t, 70.0, p.HP)
	assert.Equal(t, cp.Vector{X: 2}, p.Pos)

	dealt, err = s.ApplyDamage(p.ID, Damage{Amount: 500, Source: bossID})
	require.NoError(t, err)
	assert.Equal(t, 70.0, dealt)
	assert.True(t, p.Dead)
	assert.False(t, s.Alive(p.ID))
	assert.True(t, s.Exists(p.ID))

	_, err = s.ApplyDamage(p.ID, Damage{Amount: 1})
	assert.ErrorIs(t, err, ErrEntityDead)
	assert.Equal(t, []string{ReasonDied}, gone)

	bus.SwapBuffers()
	bus.DispatchAll()
	require.Len(t, died, 1)
	assert.Equal(t, bossID, died[0].KillerID)
}

func TestHeal_CapsAtMax(t *testing.T) {
	s := NewState(event.NewBus())
	id := s.SpawnBoss(&BossInfo{MaxHP: 100, HP: 90})

	got, err := s.Heal(id, 25)
	require.NoError(t, err)
	assert.Equal(t, 10.0, got)
	assert.Equal(t, 1.0, s.Boss(id).HealthFraction())

	_, err = s.Heal(ecs.NewEntityID(99, 0), 5)
	assert.ErrorIs(t, err, ErrNoSuchEntity)
}

func TestDespawn_RemovesFromQueriesImmediately(t *testing.T) {
	s := NewState(event.NewBus())
	p := addPlayer(s, 9, 0, 0, 1)
	h := s.SpawnHazard("decoy_trap", cp.Vector{X: 1}, 1)

	var reasons []string
	s.OnEntityGone(func(_ ecs.EntityID, r string) { reasons = append(reasons, r) })

	require.NoError(t, s.Despawn(p.ID, ReasonLogout))
	require.NoError(t, s.Despawn(h.ID, "detonated"))
	assert.ErrorIs(t, s.Despawn(h.ID, "again"), ErrNoSuchEntity)

	assert.Nil(t, s.FindNearestPlayer(cp.Vector{}, 1, 0, 10, nil))
	assert.Nil(t, s.GetByCharID(9))
	count := 0
	s.AllHazards(func(*HazardInfo) { count++ })
	assert.Zero(t, count)
	assert.Equal(t, []string{ReasonLogout, "detonated"}, reasons)

	assert.Equal(t, map[string]int{ReasonLogout: 1, "detonated": 1}, s.ECS().FlushDestroyQueue())
	assert.Nil(t, s.Player(p.ID))
	assert.Nil(t, s.Hazard(h.ID))
}

func TestBossFreezeNests(t *testing.T) {
	b := &BossInfo{}
	b.Freeze()
	b.Freeze()
	b.Unfreeze()
	assert.True(t, b.Frozen())
	b.Unfreeze()
	b.Unfreeze()
	assert.False(t, b.Frozen())
}

func TestGroundTiles(t *testing.T) {
	s := NewState(event.NewBus())
	on := addPlayer(s, 1, 3.2, 4.9, 2)
	addPlayer(s, 2, 4.1, 4.9, 2)

	k := TileAt(on.Pos, 2)
	assert.Equal(t, TileKey{MapID: 2, X: 3, Y: 4}, k)
	assert.Equal(t, TileKey{MapID: 2, X: -1, Y: -1}, TileAt(cp.Vector{X: -0.5, Y: -0.1}, 2))

	require.NoError(t, s.PlaceGroundTile(&GroundTile{Key: k, Damage: 5}))
	s.BlockTile(TileKey{MapID: 2, X: 0, Y: 0})
	assert.ErrorIs(t, s.PlaceGroundTile(&GroundTile{Key: TileKey{MapID: 2}}), ErrTileBlocked)

	players := s.PlayersOnTile(k)
	require.Len(t, players, 1)
	assert.Same(t, on, players[0])
	assert.Len(t, s.GroundTiles(), 1)

	s.RemoveGroundTile(k)
	assert.Nil(t, s.GroundTile(k))
}

func TestBaseStat(t *testing.T) {
	s := NewState(event.NewBus())
	p := addPlayer(s, 1, 0, 0, 1)
	v, ok := s.BaseStat(p.ID, "walk_speed")
	assert.True(t, ok)
	assert.Equal(t, 1.0, v)
	_, ok = s.BaseStat(p.ID, "nope")
	assert.False(t, ok)
}
