// Package ability implements boss combat abilities on a shared staged
// scheduler. Every ability instance follows the same loop on the tick
// goroutine:
//
//	select stage by health -> cooldown ready? -> target in range?
//	-> commit cooldown, freeze, telegraph, defer effect by windup
//	-> effect fires (or is cancelled when the owner dies or despawns)
//
// Variants differ only in targeting and in what the effect does.
package ability

import (
	"math/rand"
	"time"

	"github.com/jakecoffman/cp"
	"go.uber.org/zap"

	"github.com/l1jgo/encounter/internal/clock"
	"github.com/l1jgo/encounter/internal/core/ecs"
	"github.com/l1jgo/encounter/internal/core/event"
	"github.com/l1jgo/encounter/internal/core/schedule"
	"github.com/l1jgo/encounter/internal/data"
	"github.com/l1jgo/encounter/internal/effect"
	"github.com/l1jgo/encounter/internal/hazard"
	"github.com/l1jgo/encounter/internal/scripting"
	"github.com/l1jgo/encounter/internal/world"
)

// World is the part of world.State abilities use.
type World interface {
	Boss(id ecs.EntityID) *world.BossInfo
	Player(id ecs.EntityID) *world.PlayerInfo
	Alive(id ecs.EntityID) bool
	FindNearestPlayer(pos cp.Vector, mapID int32, minR, maxR float64, pred func(*world.PlayerInfo) bool) *world.PlayerInfo
	FindPlayersWithin(pos cp.Vector, mapID int32, radius float64, pred func(*world.PlayerInfo) bool) []*world.PlayerInfo
	ApplyDamage(target ecs.EntityID, d world.Damage) (float64, error)
	Heal(target ecs.EntityID, amount float64) (float64, error)
	AllHazards(fn func(*world.HazardInfo))
}

// Scheduler registers deferred one-shot callbacks.
type Scheduler interface {
	Register(delay time.Duration, fn func()) schedule.Handle
	Unregister(h schedule.Handle) bool
}

// Formulas computes damage and heal amounts.
type Formulas interface {
	CalcAbilityDamage(ctx scripting.AbilityDamageContext) float64
	CalcDrainHeal(ctx scripting.DrainHealContext) float64
}

// Context carries every collaborator an ability touches. One per world,
// shared by all ability instances.
type Context struct {
	World    World
	Clock    clock.Process
	Sched    Scheduler
	Tables   *data.TableHolder
	Effects  *effect.Manager
	Hazards  *hazard.Lifecycle
	Present  event.Presenter
	Bus      *event.Bus
	Formulas Formulas // nil uses Base*Multiplier
	Tracer   *Tracer
	Rand     *rand.Rand
	Log      *zap.Logger
}

// Component is one ability instance attached to one boss.
type Component interface {
	Code() string
	Kind() string
	// Tick runs the idle check. Never called concurrently with a deferred fire.
	Tick(ctx *Context, boss *world.BossInfo)
	// Cancel drops an in-flight windup without running its effect.
	Cancel(ctx *Context, boss *world.BossInfo, reason string) bool
	Pending() bool
}

// DeathTrigger is implemented by components that act when their owner dies
// instead of on the health-stage loop.
type DeathTrigger interface {
	OnOwnerDeath(ctx *Context, boss *world.BossInfo)
}

// Activation is what a windup captured when it started. The effect runs
// against this, not against whatever the table says by the time it fires.
type Activation struct {
	Owner      ecs.EntityID
	Ability    string
	Kind       string
	StageIndex int
	Stage      data.Stage
	Target     ecs.EntityID // zero for self-targeted abilities
	TargetPos  cp.Vector
	Origin     cp.Vector
	MapID      int32
}
