package handler

import (
	"errors"
	"fmt"
	"math"
	stdnet "net"
	"testing"
	"time"

	"github.com/jakecoffman/cp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/l1jgo/encounter/internal/ability"
	"github.com/l1jgo/encounter/internal/clock"
	"github.com/l1jgo/encounter/internal/config"
	"github.com/l1jgo/encounter/internal/core/event"
	"github.com/l1jgo/encounter/internal/effect"
	"github.com/l1jgo/encounter/internal/net"
	"github.com/l1jgo/encounter/internal/net/packet"
	"github.com/l1jgo/encounter/internal/world"
)

type fakeSessions struct {
	ws       *world.State
	full     bool
	reserved map[int32]uint64
	joined   []*world.PlayerInfo
	left     []int32
}

func (f *fakeSessions) Join(p *world.PlayerInfo, owner uint64) error {
	if f.full {
		return errors.New("join queue full")
	}
	if _, ok := f.reserved[p.CharID]; ok {
		return world.ErrCharacterTaken
	}
	f.reserved[p.CharID] = owner
	f.joined = append(f.joined, p)
	f.ws.AddPlayer(p)
	return nil
}

func (f *fakeSessions) Leave(charID int32, owner uint64) bool {
	if f.full {
		return false
	}
	if f.reserved[charID] == owner {
		delete(f.reserved, charID)
		f.left = append(f.left, charID)
	}
	return true
}

type fixture struct {
	t        *testing.T
	cfg      *config.Config
	bus      *event.Bus
	ws       *world.State
	effects  *effect.Manager
	sessions *fakeSessions
	tracer   *ability.Tracer
	reg      *packet.Registry
	deps     *Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg, err := config.Parse(nil)
	require.NoError(t, err)

	log := zap.NewNop()
	clk := clock.NewManual(1000, 10)
	bus := event.NewBus()
	ws := world.NewState(bus)
	f := &fixture{
		t:        t,
		cfg:      cfg,
		bus:      bus,
		ws:       ws,
		effects:  effect.NewManager(ws, clk, clk, effect.Options{StaleBound: 5 * time.Minute, Floor: 250 * time.Millisecond, HoursPerSecond: 1.0 / 60}, log),
		sessions: &fakeSessions{ws: ws, reserved: map[int32]uint64{}},
		tracer:   ability.NewTracer(log, nil),
		reg:      packet.NewRegistry(log),
	}
	f.deps = &Deps{Config: cfg, Log: log, World: ws, Effects: f.effects, Sessions: f.sessions, Tracer: f.tracer}
	RegisterAll(f.reg, f.deps)
	return f
}

func (f *fixture) session(id uint64, st packet.SessionState) *net.Session {
	f.t.Helper()
	server, client := stdnet.Pipe()
	f.t.Cleanup(func() { server.Close(); client.Close() })
	sess := net.NewSession(server, id, net.Options{InQueueSize: 8, OutQueueSize: 32}, zap.NewNop())
	sess.SetState(st)
	return sess
}

func (f *fixture) send(sess *net.Session, w *packet.Writer) {
	f.t.Helper()
	_ = f.reg.Dispatch(sess, sess.State(), w.Bytes())
}

// sent flushes and drains what the session would have written.
func sent(sess *net.Session) [][]byte {
	sess.FlushOutput()
	var out [][]byte
	for {
		select {
		case b := <-sess.OutQueue:
			out = append(out, b)
		default:
			return out
		}
	}
}

func hello(version int32, password string) *packet.Writer {
	w := packet.NewWriterWithOpcode(packet.C_OPCODE_HELLO)
	w.WriteD(version)
	w.WriteS(password)
	return w
}

func join(charID int32, name string, hp, maxHP float64) *packet.Writer {
	w := packet.NewWriterWithOpcode(packet.C_OPCODE_JOIN)
	w.WriteD(charID)
	w.WriteS(name)
	w.WriteD(4)
	w.WriteF(10)
	w.WriteF(12)
	w.WriteF(hp)
	w.WriteF(maxHP)
	return w
}

func move(x, y float64) *packet.Writer {
	w := packet.NewWriterWithOpcode(packet.C_OPCODE_MOVE)
	w.WriteF(x)
	w.WriteF(y)
	return w
}

func TestHello_WelcomesObserver(t *testing.T) {
	f := newFixture(t)
	sess := f.session(1, packet.StateHandshake)

	f.send(sess, hello(packet.ProtocolVersion, ""))

	assert.Equal(t, packet.StateObserving, sess.State())
	out := sent(sess)
	require.Len(t, out, 1)
	r := packet.NewReader(out[0])
	assert.Equal(t, packet.S_OPCODE_WELCOME, r.Opcode())
	assert.Equal(t, "encounter", r.ReadS())
	assert.Equal(t, int32(50), r.ReadD())
}

func TestHello_VersionMismatchRejectsAndCloses(t *testing.T) {
	f := newFixture(t)
	sess := f.session(1, packet.StateHandshake)

	f.send(sess, hello(packet.ProtocolVersion+1, ""))

	assert.Equal(t, packet.StateDisconnecting, sess.State())
	out := sent(sess)
	require.Len(t, out, 2)
	assert.Equal(t, packet.S_OPCODE_REJECT, out[0][0])
	assert.Nil(t, out[1], "close marker follows the reject")
}

func TestHello_Password(t *testing.T) {
	f := newFixture(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("ashen vigil"), bcrypt.MinCost)
	require.NoError(t, err)
	f.cfg.Network.PasswordHash = string(hash)

	bad := f.session(1, packet.StateHandshake)
	f.send(bad, hello(packet.ProtocolVersion, "guess"))
	assert.Equal(t, packet.StateDisconnecting, bad.State())
	assert.Equal(t, packet.S_OPCODE_REJECT, sent(bad)[0][0])

	good := f.session(2, packet.StateHandshake)
	f.send(good, hello(packet.ProtocolVersion, "ashen vigil"))
	assert.Equal(t, packet.StateObserving, good.State())
	assert.Equal(t, packet.S_OPCODE_WELCOME, sent(good)[0][0])
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("ember")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("ember")))
}

func TestJoin_QueuesPlayer(t *testing.T) {
	f := newFixture(t)
	sess := f.session(1, packet.StateObserving)

	f.send(sess, join(7, "Ayla", 0, 100))

	require.Len(t, f.sessions.joined, 1)
	p := f.sessions.joined[0]
	assert.Equal(t, int32(7), p.CharID)
	assert.Equal(t, "Ayla", p.Name)
	assert.Equal(t, int32(4), p.MapID)
	assert.Equal(t, cp.Vector{X: 10, Y: 12}, p.Pos)
	assert.Equal(t, 100.0, p.HP, "zero hp means full")
	assert.Equal(t, packet.StateInWorld, sess.State())
	assert.Equal(t, int32(7), sess.CharID)
	assert.Empty(t, sent(sess))
}

func TestJoin_Rejections(t *testing.T) {
	cases := []struct {
		name string
		pkt  *packet.Writer
	}{
		{"no char id", join(0, "Ayla", 10, 100)},
		{"no name", join(7, "", 10, 100)},
		{"no max hp", join(7, "Ayla", 10, 0)},
		{"nan", join(7, "Ayla", math.NaN(), 100)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			sess := f.session(1, packet.StateObserving)
			f.send(sess, tc.pkt)

			assert.Empty(t, f.sessions.joined)
			assert.Equal(t, packet.StateObserving, sess.State())
			out := sent(sess)
			require.Len(t, out, 1)
			assert.Equal(t, packet.S_OPCODE_REJECT, out[0][0])
		})
	}
}

func TestJoin_AlreadyInWorldOrBusy(t *testing.T) {
	f := newFixture(t)
	f.ws.AddPlayer(&world.PlayerInfo{CharID: 7, Name: "Ayla", MaxHP: 100, HP: 100})

	dup := f.session(1, packet.StateObserving)
	f.send(dup, join(7, "Ayla", 10, 100))
	assert.Equal(t, packet.StateObserving, dup.State())

	f.sessions.full = true
	busy := f.session(2, packet.StateObserving)
	f.send(busy, join(8, "Bram", 10, 100))
	assert.Equal(t, packet.StateObserving, busy.State())
	r := packet.NewReader(sent(busy)[0])
	assert.Equal(t, "server busy", r.ReadS())
}

func TestJoin_CharacterHeldByAnotherSession(t *testing.T) {
	f := newFixture(t)
	f.sessions.reserved[9] = 42

	sess := f.session(1, packet.StateObserving)
	f.send(sess, join(9, "Cato", 10, 100))

	assert.Equal(t, packet.StateObserving, sess.State())
	assert.Zero(t, sess.CharID)
	r := packet.NewReader(sent(sess)[0])
	assert.Equal(t, packet.S_OPCODE_REJECT, r.Opcode())
	assert.Equal(t, "character already in world", r.ReadS())
}

func TestMove(t *testing.T) {
	f := newFixture(t)
	sess := f.session(1, packet.StateObserving)
	f.send(sess, join(7, "Ayla", 100, 100))
	p := f.ws.GetByCharID(7)
	require.NotNil(t, p)

	f.send(sess, move(11, 13))
	assert.Equal(t, cp.Vector{X: 11, Y: 13}, p.Pos)

	f.send(sess, move(math.Inf(1), 0))
	assert.Equal(t, cp.Vector{X: 11, Y: 13}, p.Pos)

	require.NoError(t, f.effects.Start(p.ID, effect.Spec{
		Source: "stun", Duration: time.Second, Mods: map[string]float64{effect.StatWalkSpeed: -p.BaseWalkSpeed},
	}))
	f.send(sess, move(20, 20))
	assert.Equal(t, cp.Vector{X: 11, Y: 13}, p.Pos, "stunned players stay put")

	f.effects.Stop(p.ID)
	p.Dead = true
	f.send(sess, move(20, 20))
	assert.Equal(t, cp.Vector{X: 11, Y: 13}, p.Pos)
}

func TestMove_NotAllowedWhileObserving(t *testing.T) {
	f := newFixture(t)
	sess := f.session(1, packet.StateObserving)
	err := f.reg.Dispatch(sess, sess.State(), move(1, 1).Bytes())
	assert.Error(t, err)
}

func TestLeave_ReturnsToObserving(t *testing.T) {
	f := newFixture(t)
	sess := f.session(1, packet.StateObserving)
	f.send(sess, join(7, "Ayla", 100, 100))

	f.send(sess, packet.NewWriterWithOpcode(packet.C_OPCODE_LEAVE))

	assert.Equal(t, []int32{7}, f.sessions.left)
	assert.Equal(t, packet.StateObserving, sess.State())
	assert.Zero(t, sess.CharID)
}

func TestQuit_ClosesAfterFlush(t *testing.T) {
	f := newFixture(t)
	sess := f.session(1, packet.StateObserving)

	f.send(sess, packet.NewWriterWithOpcode(packet.C_OPCODE_QUIT))

	assert.Equal(t, packet.StateDisconnecting, sess.State())
	assert.Equal(t, [][]byte{nil}, sent(sess))
}

func TestTrace_TogglesBoss(t *testing.T) {
	f := newFixture(t)
	id := f.ws.SpawnBoss(&world.BossInfo{Code: "king", SpawnKey: "king@0", MaxHP: 500})
	sess := f.session(1, packet.StateObserving)

	trace := func(key string, on byte) *packet.Writer {
		w := packet.NewWriterWithOpcode(packet.C_OPCODE_TRACE)
		w.WriteS(key)
		w.WriteC(on)
		return w
	}

	f.send(sess, trace("king@0", 1))
	assert.True(t, f.tracer.Enabled(id))
	f.send(sess, trace("king@0", 0))
	assert.False(t, f.tracer.Enabled(id))

	f.send(sess, trace("queen@0", 1))
	out := sent(sess)
	require.Len(t, out, 1)
	assert.Equal(t, packet.S_OPCODE_REJECT, out[0][0])
}

func TestFeed_EncodesForObservers(t *testing.T) {
	f := newFixture(t)
	store := net.NewSessionStore()
	NewFeed(f.bus, store, f.ws)

	watcher := f.session(1, packet.StateObserving)
	pending := f.session(2, packet.StateHandshake)
	store.Add(watcher)
	store.Add(pending)

	pid := f.ws.AddPlayer(&world.PlayerInfo{CharID: 7, Name: "Ayla", MaxHP: 100, HP: 100})
	p := f.ws.Player(pid)
	p.Attrs.SetDouble("derived.walk_speed", 0.5)
	p.Attrs.SetBool("effect.stun.active", true)

	event.Emit(f.bus, event.AttributesChanged{EntityID: pid, Keys: []string{"derived.walk_speed", "effect.stun.active", "mod.walk_speed.frost"}})
	f.bus.SwapBuffers()
	f.bus.DispatchAll()

	out := sent(watcher)
	require.Len(t, out, 1)
	r := packet.NewReader(out[0])
	assert.Equal(t, packet.S_OPCODE_ATTRS, r.Opcode())
	assert.Equal(t, uint64(pid), r.ReadQ())
	assert.Equal(t, uint16(3), r.ReadH())
	assert.Equal(t, "derived.walk_speed", r.ReadS())
	assert.Equal(t, packet.AttrDouble, r.ReadC())
	assert.Equal(t, 0.5, r.ReadF())
	assert.Equal(t, "effect.stun.active", r.ReadS())
	assert.Equal(t, packet.AttrBool, r.ReadC())
	assert.Equal(t, byte(1), r.ReadC())
	assert.Equal(t, "mod.walk_speed.frost", r.ReadS())
	assert.Equal(t, packet.AttrRemoved, r.ReadC())
	assert.Zero(t, r.Remaining())

	assert.Empty(t, sent(pending), "no feed before the handshake")
}

func TestFeed_AbilityAndDamage(t *testing.T) {
	f := newFixture(t)
	store := net.NewSessionStore()
	NewFeed(f.bus, store, f.ws)
	watcher := f.session(1, packet.StateInWorld)
	store.Add(watcher)

	event.Emit(f.bus, event.AbilityActivated{OwnerID: 3, Ability: "ground_slam", Stage: 2, TargetID: 5})
	f.bus.SwapBuffers()
	f.bus.DispatchAll()
	event.Emit(f.bus, event.DamageDealt{TargetID: 5, SourceID: 3, Amount: 12.5, Type: "blunt", Killed: true})
	event.Emit(f.bus, event.SoundPlayed{MapID: 4, Pos: cp.Vector{X: 1, Y: 2}, Sound: "slam", Volume: 1, Range: 16, Delay: 250 * time.Millisecond})
	f.bus.SwapBuffers()
	f.bus.DispatchAll()

	out := sent(watcher)
	require.Len(t, out, 3)

	r := packet.NewReader(out[0])
	assert.Equal(t, packet.S_OPCODE_ABILITY, r.Opcode())
	assert.Equal(t, uint64(3), r.ReadQ())
	assert.Equal(t, "ground_slam", r.ReadS())
	assert.Equal(t, byte(2), r.ReadC())
	assert.Equal(t, uint64(5), r.ReadQ())

	byOp := map[byte]*packet.Reader{}
	for _, b := range out[1:] {
		byOp[b[0]] = packet.NewReader(b)
	}
	dmg := byOp[packet.S_OPCODE_DAMAGE]
	require.NotNil(t, dmg)
	assert.Equal(t, uint64(5), dmg.ReadQ())
	assert.Equal(t, uint64(3), dmg.ReadQ())
	assert.Equal(t, 12.5, dmg.ReadF())
	assert.Equal(t, "blunt", dmg.ReadS())
	assert.Equal(t, byte(1), dmg.ReadC())

	snd := byOp[packet.S_OPCODE_SOUND]
	require.NotNil(t, snd)
	assert.Equal(t, int32(4), snd.ReadD())
	snd.ReadF()
	snd.ReadF()
	assert.Equal(t, "slam", snd.ReadS())
	snd.ReadF()
	snd.ReadF()
	assert.Equal(t, int32(250), snd.ReadD())
}

func TestFeed_SplitsLargeAttributeChanges(t *testing.T) {
	f := newFixture(t)
	store := net.NewSessionStore()
	NewFeed(f.bus, store, f.ws)
	watcher := f.session(1, packet.StateObserving)
	store.Add(watcher)

	pid := f.ws.AddPlayer(&world.PlayerInfo{CharID: 7, Name: "Ayla", MaxHP: 100, HP: 100})
	keys := make([]string, 2000)
	for i := range keys {
		keys[i] = fmt.Sprintf("effect.ember_rain_%04d.until_ms", i)
	}
	event.Emit(f.bus, event.AttributesChanged{EntityID: pid, Keys: keys})
	f.bus.SwapBuffers()
	f.bus.DispatchAll()

	out := sent(watcher)
	require.Greater(t, len(out), 1)
	total := 0
	for _, b := range out {
		assert.LessOrEqual(t, len(b), net.MaxPayload)
		r := packet.NewReader(b)
		assert.Equal(t, uint64(pid), r.ReadQ())
		total += int(r.ReadH())
	}
	assert.Equal(t, len(keys), total)
}
