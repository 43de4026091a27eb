// Package effect is the Timed Effect Manager: duration-bounded stat
// modifiers on players and bosses, persisted through the attribute store and
// removed exactly once when they expire, across restarts included.
package effect

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/encounter/internal/attr"
	"github.com/l1jgo/encounter/internal/clock"
	"github.com/l1jgo/encounter/internal/core/ecs"
)

var (
	ErrNoTarget  = errors.New("effect target has no attribute store")
	ErrBadSource = errors.New("effect source must be a non-empty name without dots")
)

// Targets is the world view the manager needs.
type Targets interface {
	Attrs(id ecs.EntityID) (*attr.Store, bool)
	BaseStat(id ecs.EntityID, stat string) (float64, bool)
}

// Spec describes one application of a timed effect.
type Spec struct {
	Source   string
	Domain   Domain
	Duration time.Duration      // real time; calendar effects convert it
	Mods     map[string]float64 // stat -> delta
	Owner    ecs.EntityID       // optional; effect ends when the owner is gone
}

type Options struct {
	StaleBound     time.Duration // max plausible remaining time of a process-clock effect
	Floor          time.Duration // minimum effect duration
	HoursPerSecond float64       // calendar speed, converts durations to calendar hours
}

type ownedRef struct {
	target ecs.EntityID
	source string
}

// Manager applies, refreshes and clears timed effects. Constructed once per
// world and injected into abilities; accessed only from the game loop.
type Manager struct {
	targets Targets
	clock   clock.Process
	cal     clock.Calendar
	opts    Options
	log     *zap.Logger

	lastHours clock.CalendarHours
	tracked   map[ecs.EntityID]struct{}
	owned     map[ecs.EntityID]map[ownedRef]struct{}
}

func NewManager(targets Targets, proc clock.Process, cal clock.Calendar, opts Options, log *zap.Logger) *Manager {
	return &Manager{
		targets: targets,
		clock:   proc,
		cal:     cal,
		opts:    opts,
		log:     log,
		tracked: make(map[ecs.EntityID]struct{}),
		owned:   make(map[ecs.EntityID]map[ownedRef]struct{}),
	}
}

// nowHours reads the calendar, never returning less than a value already seen.
func (m *Manager) nowHours() clock.CalendarHours {
	h := m.cal.NowHours()
	if h < m.lastHours {
		return m.lastHours
	}
	m.lastHours = h
	return h
}

// Start applies spec to target, replacing any effect from the same source.
func (m *Manager) Start(target ecs.EntityID, spec Spec) error {
	if !validName(spec.Source) {
		return fmt.Errorf("%w: %q", ErrBadSource, spec.Source)
	}
	store, ok := m.targets.Attrs(target)
	if !ok {
		return ErrNoTarget
	}

	d := max(spec.Duration, m.opts.Floor)
	rec := Record{Source: spec.Source, Domain: spec.Domain, Mods: make(map[string]float64, len(spec.Mods))}
	switch spec.Domain {
	case DomainCalendar:
		rec.UntilHours = m.nowHours().AddHours(d.Seconds() * m.opts.HoursPerSecond)
	default:
		if d > m.opts.StaleBound {
			m.log.Warn("effect duration exceeds stale bound, shortened",
				zap.String("source", spec.Source), zap.Duration("duration", d), zap.Duration("bound", m.opts.StaleBound))
			d = m.opts.StaleBound
		}
		rec.UntilMs = m.clock.NowMs().Add(d)
	}
	for stat, delta := range spec.Mods {
		if !validName(stat) {
			return fmt.Errorf("%w: stat %q", ErrBadSource, stat)
		}
		rec.Mods[stat] = delta
	}

	// stats the previous application touched but this one does not
	if prev, ok := decodeRecord(store, spec.Source); ok {
		for stat := range prev.Mods {
			if _, still := rec.Mods[stat]; !still {
				store.Remove(magKey(spec.Source, stat))
				m.writeMod(target, store, stat, spec.Source, 0)
			}
		}
	}

	rec.encode(store)
	for stat, delta := range rec.Mods {
		m.writeMod(target, store, stat, spec.Source, m.clampDelta(target, stat, delta))
	}

	m.tracked[target] = struct{}{}
	m.disown(target, spec.Source)
	if !spec.Owner.IsZero() && spec.Owner != target {
		refs := m.owned[spec.Owner]
		if refs == nil {
			refs = make(map[ownedRef]struct{})
			m.owned[spec.Owner] = refs
		}
		refs[ownedRef{target: target, source: spec.Source}] = struct{}{}
	}
	return nil
}

// Active reports whether target currently carries an unexpired record from
// source. It does not clear anything.
func (m *Manager) Active(target ecs.EntityID, source string) bool {
	store, ok := m.targets.Attrs(target)
	if !ok {
		return false
	}
	rec, ok := decodeRecord(store, source)
	if !ok {
		return false
	}
	live, _ := m.check(rec)
	return live
}

// check reports whether rec is still live and, if not, why.
func (m *Manager) check(rec Record) (bool, string) {
	if rec.Domain == DomainCalendar {
		if m.nowHours() >= rec.UntilHours {
			return false, "expired"
		}
		return true, ""
	}
	now := m.clock.NowMs()
	if !now.Before(rec.UntilMs) {
		return false, "expired"
	}
	// An expiry this far ahead was written by an earlier process whose
	// clock had run longer than ours.
	if rec.UntilMs.Sub(now) > m.opts.StaleBound {
		return false, "stale"
	}
	return true, ""
}

// RefreshSource checks one source on target: clears it if expired or stale,
// otherwise re-applies its magnitudes. Returns whether it is still active.
func (m *Manager) RefreshSource(target ecs.EntityID, source string) bool {
	store, ok := m.targets.Attrs(target)
	if !ok {
		return false
	}
	rec, ok := decodeRecord(store, source)
	if !ok {
		// partial record: payload without expiry is inactive
		for _, k := range store.Keys(effectPrefix(source)) {
			store.Remove(k)
		}
		m.zeroMods(target, store, source)
		return false
	}
	if live, why := m.check(rec); !live {
		m.clear(target, store, rec)
		if why == "stale" {
			m.log.Info("cleared stale effect", zap.Uint64("target", uint64(target)),
				zap.String("source", source), zap.Int64("until_ms", rec.UntilMs.Int64()), zap.Int64("now_ms", m.clock.NowMs().Int64()))
		}
		return false
	}
	for stat, delta := range rec.Mods {
		m.writeMod(target, store, stat, source, m.clampDelta(target, stat, delta))
	}
	return true
}

// Refresh checks every effect on target and returns how many remain active.
// Applied deltas whose source has no record left are zeroed.
func (m *Manager) Refresh(target ecs.EntityID) int {
	store, ok := m.targets.Attrs(target)
	if !ok {
		return 0
	}
	active := 0
	recorded := map[string]bool{}
	for _, src := range sources(store) {
		recorded[src] = true
		if m.RefreshSource(target, src) {
			active++
		}
	}
	for stat, bySrc := range appliedMods(store) {
		for src, delta := range bySrc {
			if !recorded[src] && delta != 0 {
				m.writeMod(target, store, stat, src, 0)
			}
		}
	}
	return active
}

// Stop ends every effect on target. Safe when none is active.
func (m *Manager) Stop(target ecs.EntityID) {
	store, ok := m.targets.Attrs(target)
	if !ok {
		return
	}
	for _, src := range sources(store) {
		m.StopSource(target, src)
	}
}

// StopSource ends one effect early. Safe when it is not active.
func (m *Manager) StopSource(target ecs.EntityID, source string) {
	store, ok := m.targets.Attrs(target)
	if !ok {
		return
	}
	if rec, ok := decodeRecord(store, source); ok {
		m.clear(target, store, rec)
		return
	}
	m.zeroMods(target, store, source)
}

// Sweep refreshes every tracked target, forgetting those with nothing left.
func (m *Manager) Sweep() {
	for _, id := range m.trackedIDs() {
		if _, ok := m.targets.Attrs(id); !ok {
			delete(m.tracked, id)
			continue
		}
		if m.Refresh(id) == 0 {
			delete(m.tracked, id)
		}
	}
}

// Track adds a target to the sweep, e.g. after its attributes were restored
// from a snapshot.
func (m *Manager) Track(id ecs.EntityID) {
	m.tracked[id] = struct{}{}
}

func (m *Manager) Tracked(id ecs.EntityID) bool {
	_, ok := m.tracked[id]
	return ok
}

// HandleGone ends the effects on an entity that died or despawned, and the
// effects it applied to others.
func (m *Manager) HandleGone(id ecs.EntityID, _ string) {
	m.Stop(id)
	for ref := range m.owned[id] {
		m.StopSource(ref.target, ref.source)
	}
	delete(m.owned, id)
}

// Blended returns base + sum of every applied delta for stat, never below 0.
func (m *Manager) Blended(target ecs.EntityID, stat string) float64 {
	store, ok := m.targets.Attrs(target)
	if !ok {
		return 0
	}
	base, _ := m.targets.BaseStat(target, stat)
	return blend(store, base, stat)
}

func blend(store *attr.Store, base float64, stat string) float64 {
	v := base
	for _, k := range store.Keys("mod." + stat + ".") {
		v += store.GetDouble(k, 0)
	}
	return max(v, 0)
}

func (m *Manager) clear(target ecs.EntityID, store *attr.Store, rec Record) {
	for _, k := range store.Keys(effectPrefix(rec.Source)) {
		store.Remove(k)
	}
	m.zeroMods(target, store, rec.Source)
	for stat := range rec.Mods {
		m.writeMod(target, store, stat, rec.Source, 0)
	}
	m.disown(target, rec.Source)
}

func (m *Manager) disown(target ecs.EntityID, source string) {
	for owner, set := range m.owned {
		delete(set, ownedRef{target: target, source: source})
		if len(set) == 0 {
			delete(m.owned, owner)
		}
	}
}

// zeroMods writes 0 to every applied delta of source on store.
func (m *Manager) zeroMods(target ecs.EntityID, store *attr.Store, source string) {
	for stat, bySrc := range appliedMods(store) {
		if d, ok := bySrc[source]; ok && d != 0 {
			m.writeMod(target, store, stat, source, 0)
		}
	}
}

// writeMod sets one applied delta and re-derives the blended stat. Keys are
// only marked dirty when a value changes.
func (m *Manager) writeMod(target ecs.EntityID, store *attr.Store, stat, source string, delta float64) {
	k := modKey(stat, source)
	if !store.Has(k) || store.GetDouble(k, 0) != delta {
		store.SetDouble(k, delta)
		store.MarkDirty(k)
	}
	base, _ := m.targets.BaseStat(target, stat)
	v := blend(store, base, stat)
	dk := derivedKey(stat)
	if !store.Has(dk) || store.GetDouble(dk, 0) != v {
		store.SetDouble(dk, v)
		store.MarkDirty(dk)
	}
}

// clampDelta limits a single source to taking a stat at most down to zero.
func (m *Manager) clampDelta(target ecs.EntityID, stat string, delta float64) float64 {
	base, ok := m.targets.BaseStat(target, stat)
	if !ok {
		return delta
	}
	return max(delta, -base)
}

func (m *Manager) trackedIDs() []ecs.EntityID {
	ids := make([]ecs.EntityID, 0, len(m.tracked))
	for id := range m.tracked {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
