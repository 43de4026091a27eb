package hazard

import (
	"github.com/l1jgo/encounter/internal/attr"
	"github.com/l1jgo/encounter/internal/clock"
	"github.com/l1jgo/encounter/internal/core/ecs"
)

// Payload is the typed record stored on a hazard entity's attributes.
// Exactly one of ExplodeAt (fused) and DespawnAt (timed add) is set.
type Payload struct {
	Owner        ecs.EntityID
	Ability      string
	ExplodeAt    clock.ProcessMs
	DespawnAt    clock.ProcessMs
	Radius       float64
	Damage       float64
	DamageType   string
	DamageTier   int
	Invulnerable bool
	SurviveOwner bool // keeps the orphan rule from despawning it
}

const (
	keyOwner        = "hazard.owner"
	keyAbility      = "hazard.ability"
	keyExplodeMs    = "hazard.explode_ms"
	keyDespawnMs    = "hazard.despawn_ms"
	keyRadius       = "hazard.radius"
	keyDamage       = "hazard.damage"
	keyDamageType   = "hazard.type"
	keyDamageTier   = "hazard.tier"
	keyInvulnerable = "hazard.invulnerable"
	keySurvive      = "hazard.survive_owner"
	keyNextPulseMs  = "hazard.next_pulse_ms"
)

// Fused reports whether the hazard detonates (as opposed to timing out).
func (p Payload) Fused() bool { return !p.ExplodeAt.IsZero() }

func (p Payload) Encode(s *attr.Store) {
	s.SetLong(keyOwner, int64(p.Owner))
	s.SetString(keyAbility, p.Ability)
	if p.Fused() {
		s.SetLong(keyExplodeMs, p.ExplodeAt.Int64())
	} else {
		s.SetLong(keyDespawnMs, p.DespawnAt.Int64())
	}
	s.SetDouble(keyRadius, p.Radius)
	s.SetDouble(keyDamage, p.Damage)
	s.SetString(keyDamageType, p.DamageType)
	s.SetLong(keyDamageTier, int64(p.DamageTier))
	s.SetBool(keyInvulnerable, p.Invulnerable)
	s.SetBool(keySurvive, p.SurviveOwner)
	for _, k := range []string{keyOwner, keyExplodeMs, keyDespawnMs, keyInvulnerable} {
		if s.Has(k) {
			s.MarkDirty(k)
		}
	}
}

// Decode reads the payload. A hazard missing its owner or both timestamps is
// inactive and reported as absent.
func Decode(s *attr.Store) (Payload, bool) {
	if !s.Has(keyOwner) || (!s.Has(keyExplodeMs) && !s.Has(keyDespawnMs)) {
		return Payload{}, false
	}
	return Payload{
		Owner:        ecs.EntityID(s.GetLong(keyOwner, 0)),
		Ability:      s.GetString(keyAbility, ""),
		ExplodeAt:    clock.ProcessMs(s.GetLong(keyExplodeMs, 0)),
		DespawnAt:    clock.ProcessMs(s.GetLong(keyDespawnMs, 0)),
		Radius:       s.GetDouble(keyRadius, 0),
		Damage:       s.GetDouble(keyDamage, 0),
		DamageType:   s.GetString(keyDamageType, ""),
		DamageTier:   int(s.GetLong(keyDamageTier, 0)),
		Invulnerable: s.GetBool(keyInvulnerable, false),
		SurviveOwner: s.GetBool(keySurvive, false),
	}, true
}
