package event

import (
	"time"

	"github.com/jakecoffman/cp"

	"github.com/l1jgo/encounter/internal/core/ecs"
)

// Lifecycle events.

type EntityDied struct {
	EntityID ecs.EntityID
	KillerID ecs.EntityID
}

type EntityDespawned struct {
	EntityID ecs.EntityID
	Reason   string
}

// Combat events.

type DamageDealt struct {
	TargetID ecs.EntityID
	SourceID ecs.EntityID // attributed owner, never the hazard itself
	Amount   float64
	Type     string
	Tier     int
	Killed   bool
}

type AbilityActivated struct {
	OwnerID  ecs.EntityID
	Ability  string
	Stage    int
	TargetID ecs.EntityID
}

type AbilityCancelled struct {
	OwnerID ecs.EntityID
	Ability string
}

// Presentation events. Fire-and-forget; nobody waits on delivery.

type SoundPlayed struct {
	Pos    cp.Vector
	MapID  int32
	Sound  string
	Volume float64
	Range  float64
	Delay  time.Duration // client-side start offset
}

type AnimationStarted struct {
	EntityID  ecs.EntityID
	Animation string
}

type ParticlesSpawned struct {
	Pos   cp.Vector
	MapID int32
	Kind  string
	Count int
}

// Replication / data events.

// AttributesChanged carries the keys drained from an entity's dirty set.
type AttributesChanged struct {
	EntityID ecs.EntityID
	Keys     []string
}

type AbilityTableReloaded struct {
	Abilities int
	Issues    int
}
