package data

import (
	"fmt"
	"math"
	"time"
)

type Severity int

const (
	SeverityClamp Severity = iota // value was changed to a safe one
	SeverityWarn                  // value kept, but probably not what the author meant
)

// Issue is one load-time finding for an ability definition.
type Issue struct {
	Severity Severity
	Ability  string
	Stage    int // -1 when not stage specific
	Field    string
	Msg      string
}

func (i Issue) String() string {
	if i.Stage < 0 {
		return fmt.Sprintf("%s: %s: %s", i.Ability, i.Field, i.Msg)
	}
	return fmt.Sprintf("%s stage %d: %s: %s", i.Ability, i.Stage, i.Field, i.Msg)
}

// MaxQueryRadius bounds every range and radius that drives a spatial query.
// A whole arena fits well inside it.
const MaxQueryRadius = 128.0

// sanitizeAbility clamps every stage of def in place.
func sanitizeAbility(def *AbilityDef) []Issue {
	var issues []Issue
	clamp := func(stage int, field, msg string) {
		issues = append(issues, Issue{Severity: SeverityClamp, Ability: def.Code, Stage: stage, Field: field, Msg: msg})
	}
	durNonNeg := func(stage int, field string, d *time.Duration) {
		if *d < 0 {
			clamp(stage, field, fmt.Sprintf("negative %v clamped to 0", *d))
			*d = 0
		}
	}
	floatNonNeg := func(stage int, field string, v *float64) {
		if *v < 0 {
			clamp(stage, field, fmt.Sprintf("negative %v clamped to 0", *v))
			*v = 0
		}
	}
	radius := func(stage int, field string, v *float64) {
		floatNonNeg(stage, field, v)
		if *v > MaxQueryRadius || math.IsNaN(*v) {
			clamp(stage, field, fmt.Sprintf("%v clamped to %v", *v, MaxQueryRadius))
			*v = MaxQueryRadius
		}
	}

	if len(def.Stages) == 0 {
		issues = append(issues, Issue{Severity: SeverityWarn, Ability: def.Code, Stage: -1, Field: "stages", Msg: "no stages, ability never fires"})
	}
	for i := range def.Stages {
		s := &def.Stages[i]
		if s.Threshold < 0 || s.Threshold > 1 {
			old := s.Threshold
			s.Threshold = min(max(s.Threshold, 0), 1)
			clamp(i, "threshold", fmt.Sprintf("%v clamped to %v", old, s.Threshold))
		}
		durNonNeg(i, "cooldown", &s.Cooldown)
		radius(i, "min_range", &s.MinRange)
		radius(i, "max_range", &s.MaxRange)
		if s.MinRange > s.MaxRange {
			clamp(i, "min_range", fmt.Sprintf("inverted range [%v,%v], min set to max", s.MinRange, s.MaxRange))
			s.MinRange = s.MaxRange
		}
		durNonNeg(i, "payload.duration", &s.Payload.Duration)
		durNonNeg(i, "payload.fuse", &s.Payload.Fuse)
		radius(i, "payload.radius", &s.Payload.Radius)
		floatNonNeg(i, "payload.damage", &s.Payload.Damage)
		floatNonNeg(i, "payload.spread", &s.Payload.Spread)
		if s.Payload.Count < 0 {
			clamp(i, "payload.count", fmt.Sprintf("negative %d clamped to 0", s.Payload.Count))
			s.Payload.Count = 0
		}
		if s.Payload.HealFraction < 0 || s.Payload.HealFraction > 1 {
			old := s.Payload.HealFraction
			s.Payload.HealFraction = min(max(old, 0), 1)
			clamp(i, "payload.heal_fraction", fmt.Sprintf("%v clamped to %v", old, s.Payload.HealFraction))
		}
		durNonNeg(i, "telegraph.windup", &s.Telegraph.Windup)
		durNonNeg(i, "telegraph.sound_delay", &s.Telegraph.SoundDelay)
		floatNonNeg(i, "telegraph.volume", &s.Telegraph.Volume)
		floatNonNeg(i, "telegraph.range", &s.Telegraph.Range)
	}

	// Selection is last-match by position, so a stage followed by one with an
	// equal or higher threshold can never be chosen.
	for i := range def.Stages {
		for j := i + 1; j < len(def.Stages); j++ {
			if def.Stages[j].Threshold >= def.Stages[i].Threshold {
				issues = append(issues, Issue{
					Severity: SeverityWarn, Ability: def.Code, Stage: i, Field: "threshold",
					Msg: fmt.Sprintf("%v is shadowed by stage %d (%v) and never selected", def.Stages[i].Threshold, j, def.Stages[j].Threshold),
				})
				break
			}
		}
	}
	return issues
}
