package effect

import (
	"strings"

	"github.com/l1jgo/encounter/internal/attr"
	"github.com/l1jgo/encounter/internal/clock"
)

// Stats that timed effects may modify.
const (
	StatWalkSpeed  = "walk_speed"
	StatDamageMult = "damage_mult"
)

// Domain selects the clock an effect's expiry is measured on.
type Domain uint8

const (
	// DomainProcess expiries are process-clock milliseconds. They do not
	// survive a restart and are bounded by the stale check.
	DomainProcess Domain = iota
	// DomainCalendar expiries are calendar hours and survive restarts.
	DomainCalendar
)

// Record is one timed effect on one target, keyed by source. The attribute
// store is only its transport: encode/decode below are the sole writers and
// readers of the effect.* and mod.* keys.
//
// Layout on the target's store:
//
//	effect.<source>.until_ms   long    process-domain expiry
//	effect.<source>.until_h    double  calendar-domain expiry
//	effect.<source>.mag.<stat> double  nominal delta
//	mod.<stat>.<source>        double  applied delta, 0 when inactive
//	derived.<stat>             double  base + sum of applied deltas
type Record struct {
	Source     string
	Domain     Domain
	UntilMs    clock.ProcessMs
	UntilHours clock.CalendarHours
	Mods       map[string]float64 // stat -> nominal delta
}

func effectPrefix(source string) string  { return "effect." + source + "." }
func untilMsKey(source string) string    { return effectPrefix(source) + "until_ms" }
func untilHoursKey(source string) string { return effectPrefix(source) + "until_h" }
func magKey(source, stat string) string  { return effectPrefix(source) + "mag." + stat }
func modKey(stat, source string) string  { return "mod." + stat + "." + source }
func derivedKey(stat string) string      { return "derived." + stat }
func validName(s string) bool            { return s != "" && !strings.Contains(s, ".") }

func (r Record) encode(s *attr.Store) {
	switch r.Domain {
	case DomainCalendar:
		s.Remove(untilMsKey(r.Source))
		s.SetDouble(untilHoursKey(r.Source), r.UntilHours.Float64())
		s.MarkDirty(untilHoursKey(r.Source))
	default:
		s.Remove(untilHoursKey(r.Source))
		s.SetLong(untilMsKey(r.Source), r.UntilMs.Int64())
		s.MarkDirty(untilMsKey(r.Source))
	}
	for stat, delta := range r.Mods {
		s.SetDouble(magKey(r.Source, stat), delta)
	}
}

// decodeRecord reads the record for source. A record without an expiry key
// is reported as absent.
func decodeRecord(s *attr.Store, source string) (Record, bool) {
	r := Record{Source: source, Mods: make(map[string]float64)}
	switch {
	case s.Has(untilMsKey(source)):
		r.Domain = DomainProcess
		r.UntilMs = clock.ProcessMs(s.GetLong(untilMsKey(source), 0))
	case s.Has(untilHoursKey(source)):
		r.Domain = DomainCalendar
		r.UntilHours = clock.CalendarHours(s.GetDouble(untilHoursKey(source), 0))
	default:
		return r, false
	}
	magPrefix := effectPrefix(source) + "mag."
	for _, k := range s.Keys(magPrefix) {
		r.Mods[strings.TrimPrefix(k, magPrefix)] = s.GetDouble(k, 0)
	}
	return r, true
}

// sources lists every source with at least one effect.* key, sorted.
func sources(s *attr.Store) []string {
	var out []string
	seen := map[string]bool{}
	for _, k := range s.Keys("effect.") {
		rest := strings.TrimPrefix(k, "effect.")
		src, _, ok := strings.Cut(rest, ".")
		if !ok || seen[src] {
			continue
		}
		seen[src] = true
		out = append(out, src)
	}
	return out
}

// appliedMods maps stat -> source -> delta for every mod.* key.
func appliedMods(s *attr.Store) map[string]map[string]float64 {
	out := make(map[string]map[string]float64)
	for _, k := range s.Keys("mod.") {
		stat, src, ok := strings.Cut(strings.TrimPrefix(k, "mod."), ".")
		if !ok {
			continue
		}
		if out[stat] == nil {
			out[stat] = make(map[string]float64)
		}
		out[stat][src] = s.GetDouble(k, 0)
	}
	return out
}
