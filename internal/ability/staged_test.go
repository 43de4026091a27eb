package ability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l1jgo/encounter/internal/data"
	"github.com/l1jgo/encounter/internal/effect"
	"github.com/l1jgo/encounter/internal/world"
)

func TestStaged_WindupThenEffect(t *testing.T) {
	f := newFixture(t, "brute")
	p := f.player(1, 5)
	f.setHealth(0.9)
	slam := f.component("slam").(*Staged)

	f.tick()
	require.True(t, slam.Pending())
	a, ok := slam.Active()
	require.True(t, ok)
	assert.Equal(t, 0, a.StageIndex)
	assert.Equal(t, p.ID, a.Target)
	assert.True(t, f.boss.Frozen())
	assert.Equal(t, int64(1000), f.boss.Attrs.GetLong(CooldownKey("slam"), 0))

	f.advance(799 * time.Millisecond)
	f.tick()
	assert.Equal(t, 100.0, p.HP, "effect waits for the full windup")

	f.advance(time.Millisecond)
	assert.False(t, slam.Pending())
	assert.False(t, f.boss.Frozen())
	assert.Equal(t, 90.0, p.HP)
	assert.InDelta(t, 7, p.Pos.X, 1e-9, "knocked away from the boss")
	assert.InDelta(t, 0, f.effects.Blended(p.ID, effect.StatWalkSpeed), 1e-9, "rooted")

	f.rec.flush()
	require.Len(t, f.rec.activated, 1)
	assert.Equal(t, "slam", f.rec.activated[0].Ability)
	require.Len(t, f.rec.sounds, 1)
	assert.Equal(t, "roar", f.rec.sounds[0].Sound)
	require.Len(t, f.rec.anims, 1)
	assert.Equal(t, "slam_windup", f.rec.anims[0].Animation)
}

func TestStaged_StageCooldownBlocksUntilElapsed(t *testing.T) {
	f := newFixture(t, "brute")
	p := f.player(1, 5)
	f.setHealth(0.4)
	slam := f.component("slam").(*Staged)

	f.tick()
	a, _ := slam.Active()
	assert.Equal(t, 1, a.StageIndex)
	f.advance(800 * time.Millisecond)
	assert.Equal(t, 80.0, p.HP)

	f.clk.Set(5999)
	f.tick()
	assert.False(t, slam.Pending())

	f.clk.Set(6000)
	f.tick()
	assert.True(t, slam.Pending())
	assert.Equal(t, int64(6000), f.boss.Attrs.GetLong(CooldownKey("slam"), 0))
}

func TestStaged_CancelledWindupNeverFires(t *testing.T) {
	f := newFixture(t, "brute")
	p := f.player(1, 5)
	slam := f.component("slam").(*Staged)

	f.tick()
	require.True(t, slam.Pending())

	f.clk.Set(1500)
	_, err := f.state.ApplyDamage(f.boss.ID, world.Damage{Amount: 1e6, Source: p.ID})
	require.NoError(t, err)
	f.tick()
	assert.False(t, slam.Pending())
	assert.False(t, f.boss.Frozen())

	f.clk.Set(1800)
	f.sched.Run()
	assert.Equal(t, 100.0, p.HP)
	assert.Zero(t, f.sched.Pending())

	f.rec.flush()
	require.Len(t, f.rec.cancelled, 1)
	assert.Equal(t, f.boss.ID, f.rec.cancelled[0].OwnerID)
}

func TestStaged_OutOfRangeKeepsCooldown(t *testing.T) {
	tests := []struct {
		name string
		x    float64
	}{
		{"too far", 20},
		{"inside min range", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "brute")
			f.player(1, tt.x)

			f.tick()
			assert.False(t, f.component("slam").Pending())
			assert.False(t, f.boss.Attrs.Has(CooldownKey("slam")))
			assert.False(t, f.boss.Frozen())
		})
	}
}

func TestStaged_FutureCooldownRecordIsReady(t *testing.T) {
	f := newFixture(t, "brute")
	f.player(1, 5)
	f.boss.Attrs.SetLong(CooldownKey("slam"), 3_600_000)

	f.tick()
	assert.True(t, f.component("slam").Pending())
}

func TestStaged_ReloadKeepsCapturedStage(t *testing.T) {
	f := newFixture(t, "brute")
	p := f.player(1, 5)
	f.tick()

	next, err := data.ParseAbilityTable([]byte(`
abilities:
  - code: slam
    kind: shockwave
    stages:
      - {threshold: 1.0, cooldown: 10s, max_range: 8, payload: {damage: 50, radius: 8}, telegraph: {windup: 800ms}}
bosses:
  - {code: brute, max_hp: 1000, abilities: [slam]}
`))
	require.NoError(t, err)
	f.ctx.Tables.Swap(next)
	require.Empty(t, f.loadout.Rebuild(next, "brute"))
	assert.True(t, f.component("slam").Pending(), "same code and kind keeps the component")

	f.advance(800 * time.Millisecond)
	assert.Equal(t, 90.0, p.HP)
}

func TestLoadout_RetiredComponentFinishesWindup(t *testing.T) {
	f := newFixture(t, "brute")
	p := f.player(1, 5)
	f.tick()

	next, err := data.ParseAbilityTable([]byte(`
bosses:
  - {code: brute, max_hp: 1000, abilities: []}
`))
	require.NoError(t, err)
	f.ctx.Tables.Swap(next)
	f.loadout.Rebuild(next, "brute")
	assert.Empty(t, f.loadout.Components())
	assert.True(t, f.loadout.Pending())

	f.advance(800 * time.Millisecond)
	assert.Equal(t, 90.0, p.HP)
	assert.False(t, f.loadout.Pending())
}

func TestLoadout_CancelAll(t *testing.T) {
	f := newFixture(t, "brute")
	f.player(1, 5)
	f.tick()

	assert.Equal(t, 1, f.loadout.CancelAll(f.ctx, f.boss, world.ReasonLogout))
	assert.Zero(t, f.loadout.CancelAll(f.ctx, f.boss, world.ReasonLogout))
	assert.False(t, f.boss.Frozen())
}

func TestBuildLoadout_ReportsMissing(t *testing.T) {
	tbl, err := data.ParseAbilityTable([]byte(`
abilities:
  - {code: odd, kind: moonbeam, stages: [{threshold: 1}]}
bosses:
  - {code: b, max_hp: 10, abilities: [odd, gone]}
`))
	require.NoError(t, err)

	lo, errs := BuildLoadout(tbl, "b", 1)
	assert.Empty(t, lo.Components())
	require.Len(t, errs, 2)
	assert.ErrorIs(t, errs[0], ErrUnknownKind)
	var missing *MissingError
	assert.ErrorAs(t, errs[1], &missing)
	assert.Equal(t, "gone", missing.Code)

	_, errs = BuildLoadout(tbl, "nobody", 1)
	require.Len(t, errs, 1)
}

func TestStaged_DeadBossDoesNotActivate(t *testing.T) {
	f := newFixture(t, "brute")
	f.player(1, 5)
	f.boss.Dead = true
	f.boss.HP = 0

	f.tick()
	assert.False(t, f.component("slam").Pending())
	assert.False(t, f.boss.Attrs.Has(CooldownKey("slam")))
}
