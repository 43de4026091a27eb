package handler

import (
	"github.com/l1jgo/encounter/internal/attr"
	"github.com/l1jgo/encounter/internal/core/ecs"
	"github.com/l1jgo/encounter/internal/core/event"
	"github.com/l1jgo/encounter/internal/net"
	"github.com/l1jgo/encounter/internal/net/packet"
)

func sendWelcome(sess *net.Session, serverName string, tickMs int64) {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_WELCOME)
	w.WriteS(serverName)
	w.WriteD(int32(tickMs))
	sess.Send(w.Bytes())
}

func sendReject(sess *net.Session, reason string) {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_REJECT)
	w.WriteS(reason)
	sess.Send(w.Bytes())
}

// SendJoined tells a client which entity its player became.
func SendJoined(sess *net.Session, id ecs.EntityID, charID int32) {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_JOINED)
	w.WriteQ(uint64(id))
	w.WriteD(charID)
	sess.Send(w.Bytes())
}

// AttrSource resolves an entity's attribute store.
type AttrSource interface {
	Attrs(id ecs.EntityID) (*attr.Store, bool)
}

// Feed encodes bus events for every session that finished the handshake.
// Events reach it one tick after they were emitted, so an entity may be gone
// by the time its attribute change is encoded; such changes are skipped and
// the client learns of the removal from S_REMOVE.
type Feed struct {
	store *net.SessionStore
	attrs AttrSource
}

func NewFeed(bus *event.Bus, store *net.SessionStore, attrs AttrSource) *Feed {
	f := &Feed{store: store, attrs: attrs}
	event.Subscribe(bus, f.onAttributes)
	event.Subscribe(bus, f.onActivated)
	event.Subscribe(bus, f.onCancelled)
	event.Subscribe(bus, f.onSound)
	event.Subscribe(bus, f.onAnimation)
	event.Subscribe(bus, f.onParticles)
	event.Subscribe(bus, f.onDamage)
	event.Subscribe(bus, f.onDespawned)
	return f
}

func (f *Feed) broadcast(data []byte) {
	f.store.ForEach(func(sess *net.Session) {
		switch sess.State() {
		case packet.StateObserving, packet.StateInWorld:
			sess.Send(data)
		}
	})
}

// attrsBatch bounds one S_ATTRS body; larger changes span several packets.
const attrsBatch = 16 << 10

func (f *Feed) onAttributes(e event.AttributesChanged) {
	store, ok := f.attrs.Attrs(e.EntityID)
	if !ok || len(e.Keys) == 0 {
		return
	}
	body := packet.NewWriter()
	n := 0
	flush := func() {
		if n == 0 {
			return
		}
		w := packet.NewWriterWithOpcode(packet.S_OPCODE_ATTRS)
		w.WriteQ(uint64(e.EntityID))
		w.WriteH(uint16(n))
		w.WriteBytes(body.Bytes())
		f.broadcast(w.Bytes())
		body, n = packet.NewWriter(), 0
	}
	for _, k := range e.Keys {
		body.WriteS(k)
		if en, ok := store.Entry(k); ok {
			writeEntry(body, en)
		} else {
			body.WriteC(packet.AttrRemoved)
		}
		n++
		if body.Len() >= attrsBatch {
			flush()
		}
	}
	flush()
}

func writeEntry(w *packet.Writer, en attr.Entry) {
	switch attr.Kind(en.Kind[0]) {
	case attr.KindBool:
		w.WriteC(packet.AttrBool)
		if en.Bool {
			w.WriteC(1)
		} else {
			w.WriteC(0)
		}
	case attr.KindLong:
		w.WriteC(packet.AttrLong)
		w.WriteQ(uint64(en.Long))
	case attr.KindFloat, attr.KindDouble:
		w.WriteC(packet.AttrDouble)
		w.WriteF(en.Double)
	default:
		w.WriteC(packet.AttrString)
		w.WriteS(en.Str)
	}
}

func (f *Feed) onActivated(e event.AbilityActivated) {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_ABILITY)
	w.WriteQ(uint64(e.OwnerID))
	w.WriteS(e.Ability)
	w.WriteC(byte(e.Stage))
	w.WriteQ(uint64(e.TargetID))
	f.broadcast(w.Bytes())
}

func (f *Feed) onCancelled(e event.AbilityCancelled) {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_CANCEL)
	w.WriteQ(uint64(e.OwnerID))
	w.WriteS(e.Ability)
	f.broadcast(w.Bytes())
}

func (f *Feed) onSound(e event.SoundPlayed) {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_SOUND)
	w.WriteD(e.MapID)
	w.WriteF(e.Pos.X)
	w.WriteF(e.Pos.Y)
	w.WriteS(e.Sound)
	w.WriteF(e.Volume)
	w.WriteF(e.Range)
	w.WriteD(int32(e.Delay.Milliseconds()))
	f.broadcast(w.Bytes())
}

func (f *Feed) onAnimation(e event.AnimationStarted) {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_ANIMATION)
	w.WriteQ(uint64(e.EntityID))
	w.WriteS(e.Animation)
	f.broadcast(w.Bytes())
}

func (f *Feed) onParticles(e event.ParticlesSpawned) {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_PARTICLES)
	w.WriteD(e.MapID)
	w.WriteF(e.Pos.X)
	w.WriteF(e.Pos.Y)
	w.WriteS(e.Kind)
	w.WriteH(uint16(min(max(e.Count, 0), 0xFFFF)))
	f.broadcast(w.Bytes())
}

func (f *Feed) onDamage(e event.DamageDealt) {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_DAMAGE)
	w.WriteQ(uint64(e.TargetID))
	w.WriteQ(uint64(e.SourceID))
	w.WriteF(e.Amount)
	w.WriteS(e.Type)
	if e.Killed {
		w.WriteC(1)
	} else {
		w.WriteC(0)
	}
	f.broadcast(w.Bytes())
}

func (f *Feed) onDespawned(e event.EntityDespawned) {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_REMOVE)
	w.WriteQ(uint64(e.EntityID))
	w.WriteS(e.Reason)
	f.broadcast(w.Bytes())
}
