package ability

import (
	"github.com/l1jgo/encounter/internal/core/ecs"
	"github.com/l1jgo/encounter/internal/data"
	"github.com/l1jgo/encounter/internal/world"
)

// Loadout is the set of ability components attached to one boss.
type Loadout struct {
	Boss       ecs.EntityID
	components []Component
	// retired components were dropped by a table reload while a windup was
	// in flight; they stay until it fires or is cancelled.
	retired []Component
}

// BuildLoadout creates one component per ability the boss template lists.
// Abilities that are missing or of an unknown kind are skipped and reported.
func BuildLoadout(t *data.AbilityTable, bossCode string, owner ecs.EntityID) (*Loadout, []error) {
	l := &Loadout{Boss: owner}
	errs := l.Rebuild(t, bossCode)
	return l, errs
}

// Rebuild re-syncs the loadout with t. Components whose code and kind are
// unchanged are kept with their windup state; everything else is rebuilt.
func (l *Loadout) Rebuild(t *data.AbilityTable, bossCode string) []error {
	var errs []error
	var codes []string
	if b := t.Boss(bossCode); b != nil {
		codes = b.Abilities
	} else {
		errs = append(errs, &MissingError{What: "boss", Code: bossCode})
	}

	old := make(map[string]Component, len(l.components))
	for _, c := range l.components {
		old[c.Code()] = c
	}
	next := make([]Component, 0, len(codes))
	for _, code := range codes {
		def := t.Get(code)
		if def == nil {
			errs = append(errs, &MissingError{What: "ability", Code: code})
			continue
		}
		if c, ok := old[code]; ok && c.Kind() == def.Kind {
			next = append(next, c)
			delete(old, code)
			continue
		}
		c, err := New(def)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		next = append(next, c)
	}
	for _, c := range l.components {
		if _, dropped := old[c.Code()]; dropped && c.Pending() {
			l.retired = append(l.retired, c)
		}
	}
	l.components = next
	return errs
}

// Components returns the live components in table order.
func (l *Loadout) Components() []Component {
	return l.components
}

// Each visits live components, then retired ones still waiting on a windup.
// Retired components that have settled are forgotten afterwards.
func (l *Loadout) Each(fn func(Component)) {
	for _, c := range l.components {
		fn(c)
	}
	if len(l.retired) == 0 {
		return
	}
	kept := l.retired[:0]
	for _, c := range l.retired {
		if c.Pending() {
			fn(c)
		}
		if c.Pending() {
			kept = append(kept, c)
		}
	}
	clear(l.retired[len(kept):])
	l.retired = kept
}

// Pending reports whether any component has a windup in flight.
func (l *Loadout) Pending() bool {
	pending := false
	l.Each(func(c Component) { pending = pending || c.Pending() })
	return pending
}

// CancelAll drops every in-flight windup. Returns how many were cancelled.
func (l *Loadout) CancelAll(ctx *Context, boss *world.BossInfo, reason string) int {
	n := 0
	l.Each(func(c Component) {
		if c.Cancel(ctx, boss, reason) {
			n++
		}
	})
	return n
}

// MissingError reports a boss or ability code the table does not define.
type MissingError struct {
	What string
	Code string
}

func (e *MissingError) Error() string {
	return e.What + " " + e.Code + " not defined"
}
