package ability

import (
	"math/rand"
	"testing"
	"time"

	"github.com/jakecoffman/cp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/l1jgo/encounter/internal/clock"
	"github.com/l1jgo/encounter/internal/core/event"
	"github.com/l1jgo/encounter/internal/core/schedule"
	"github.com/l1jgo/encounter/internal/data"
	"github.com/l1jgo/encounter/internal/effect"
	"github.com/l1jgo/encounter/internal/hazard"
	"github.com/l1jgo/encounter/internal/world"
)

const testTable = `
abilities:
  - code: slam
    kind: shockwave
    stages:
      - threshold: 1.0
        cooldown: 10s
        min_range: 2
        max_range: 8
        payload: {damage: 10, damage_type: physical, radius: 8, knockback: 2, duration: 1s}
        telegraph: {windup: 800ms, animation: slam_windup, sound: roar, volume: 1, range: 20}
      - threshold: 0.5
        cooldown: 5s
        min_range: 2
        max_range: 8
        payload: {damage: 20, damage_type: physical, radius: 8, knockback: 2, duration: 1s}
        telegraph: {windup: 800ms, animation: slam_windup, sound: roar}

  - code: ash
    kind: ash_floor
    stages:
      - {threshold: 1.0, cooldown: 4s, max_range: 12, payload: {damage: 5, damage_type: fire, duration: 6s, count: 1, particles: ash}}

  - code: nova
    kind: drain_nova
    stages:
      - {threshold: 1.0, cooldown: 8s, payload: {damage: 50, radius: 6, heal_fraction: 0.5, particles: drain}}

  - code: mark
    kind: frost_mark
    stages:
      - {threshold: 1.0, cooldown: 6s, max_range: 10, payload: {damage: 0, duration: 3s, magnitude: -0.4}}

  - code: chill
    kind: chill_aura
    stages:
      - {threshold: 1.0, cooldown: 6s, payload: {radius: 6, duration: 60s, magnitude: -0.25}}

  - code: decoy
    kind: decoy_trap
    stages:
      - {threshold: 1.0, cooldown: 6s, max_range: 10, payload: {damage: 30, radius: 3, fuse: 2s, count: 2, spread: 2}}

  - code: burst
    kind: death_burst
    stages:
      - {threshold: 1.0, payload: {damage: 80, radius: 5, fuse: 1500ms}}

  - code: rage
    kind: enrage
    stages:
      - {threshold: 0.5, cooldown: 1s, payload: {duration: 10s, magnitude: 0.5}}

  - code: echoes
    kind: summon_echo
    stages:
      - {threshold: 1.0, cooldown: 1s, max_range: 15, payload: {damage: 4, radius: 2, duration: 20s, count: 2, spread: 3}}

bosses:
  - {code: brute, max_hp: 1000, abilities: [slam]}
  - {code: ashen, max_hp: 1000, abilities: [ash]}
  - {code: leech, max_hp: 1000, abilities: [nova]}
  - {code: frost, max_hp: 1000, abilities: [mark, chill]}
  - {code: trick, max_hp: 1000, abilities: [decoy, burst]}
  - {code: fury, max_hp: 1000, abilities: [rage]}
  - {code: caller, max_hp: 1000, abilities: [echoes]}
`

type fixture struct {
	t       *testing.T
	clk     *clock.Manual
	bus     *event.Bus
	state   *world.State
	sched   *schedule.Deferred
	effects *effect.Manager
	hazards *hazard.Lifecycle
	ctx     *Context
	boss    *world.BossInfo
	loadout *Loadout
	rec     *recorder
}

func newFixture(t *testing.T, bossCode string) *fixture {
	t.Helper()
	tbl, err := data.ParseAbilityTable([]byte(testTable))
	require.NoError(t, err)

	clk := clock.NewManual(1000, 100)
	bus := event.NewBus()
	st := world.NewState(bus)
	log := zap.NewNop()
	sched := schedule.NewDeferred(clk, log)
	effects := effect.NewManager(st, clk, clk, effect.Options{
		StaleBound:     5 * time.Minute,
		Floor:          250 * time.Millisecond,
		HoursPerSecond: 1.0 / 60,
	}, log)
	present := event.BusPresenter{Bus: bus}
	hazards := hazard.NewLifecycle(st, clk, present, hazard.Options{Retry: 250 * time.Millisecond, DotInterval: time.Second}, log)

	def := tbl.Boss(bossCode)
	require.NotNil(t, def)
	boss := &world.BossInfo{Code: def.Code, SpawnKey: def.Code + "@0", MaxHP: def.MaxHP, MapID: 1}
	st.SpawnBoss(boss)

	f := &fixture{
		t:       t,
		clk:     clk,
		bus:     bus,
		state:   st,
		sched:   sched,
		effects: effects,
		hazards: hazards,
		boss:    boss,
		rec:     newRecorder(bus),
		ctx: &Context{
			World:   st,
			Clock:   clk,
			Sched:   sched,
			Tables:  data.NewTableHolder(tbl),
			Effects: effects,
			Hazards: hazards,
			Present: present,
			Bus:     bus,
			Tracer:  NewTracer(log, nil),
			Rand:    rand.New(rand.NewSource(7)),
			Log:     log,
		},
	}
	lo, errs := BuildLoadout(tbl, bossCode, boss.ID)
	require.Empty(t, errs)
	f.loadout = lo
	return f
}

func (f *fixture) player(charID int32, x float64) *world.PlayerInfo {
	p := &world.PlayerInfo{CharID: charID, Name: "p", Pos: cp.Vector{X: x}, MapID: 1, HP: 100, MaxHP: 100}
	f.state.AddPlayer(p)
	return p
}

func (f *fixture) tick() {
	f.loadout.Each(func(c Component) { c.Tick(f.ctx, f.boss) })
}

// advance moves the clock forward and fires whatever became due.
func (f *fixture) advance(d time.Duration) {
	f.clk.Advance(d)
	f.sched.Run()
}

func (f *fixture) component(code string) Component {
	for _, c := range f.loadout.Components() {
		if c.Code() == code {
			return c
		}
	}
	f.t.Fatalf("no component %s", code)
	return nil
}

func (f *fixture) setHealth(frac float64) {
	f.boss.HP = f.boss.MaxHP * frac
}

// recorder captures the events abilities emit. flush delivers everything
// emitted since the previous flush.
type recorder struct {
	bus       *event.Bus
	activated []event.AbilityActivated
	cancelled []event.AbilityCancelled
	sounds    []event.SoundPlayed
	anims     []event.AnimationStarted
	particles []event.ParticlesSpawned
}

func newRecorder(bus *event.Bus) *recorder {
	r := &recorder{bus: bus}
	event.Subscribe(bus, func(e event.AbilityActivated) { r.activated = append(r.activated, e) })
	event.Subscribe(bus, func(e event.AbilityCancelled) { r.cancelled = append(r.cancelled, e) })
	event.Subscribe(bus, func(e event.SoundPlayed) { r.sounds = append(r.sounds, e) })
	event.Subscribe(bus, func(e event.AnimationStarted) { r.anims = append(r.anims, e) })
	event.Subscribe(bus, func(e event.ParticlesSpawned) { r.particles = append(r.particles, e) })
	return r
}

func (r *recorder) flush() {
	r.bus.SwapBuffers()
	r.bus.DispatchAll()
}
