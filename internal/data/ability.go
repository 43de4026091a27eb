package data

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Payload holds the effect parameters of one stage. Which fields matter
// depends on the ability kind.
type Payload struct {
	Damage       float64       `yaml:"damage"`
	DamageType   string        `yaml:"damage_type"` // "fire", "frost", "magic", ...
	DamageTier   int           `yaml:"damage_tier"`
	Duration     time.Duration `yaml:"duration"` // timed effect / ground hazard lifetime
	Radius       float64       `yaml:"radius"`
	Count        int           `yaml:"count"`     // hazards, tiles or adds to spawn
	Magnitude    float64       `yaml:"magnitude"` // stat delta, e.g. -0.4 walk speed
	Knockback    float64       `yaml:"knockback"`
	Fuse         time.Duration `yaml:"fuse"`
	HealFraction float64       `yaml:"heal_fraction"`
	Spread       float64       `yaml:"spread"` // placement scatter around the target
	Particles    string        `yaml:"particles"`
}

// Telegraph is the warning cue played while the boss winds up.
type Telegraph struct {
	Windup     time.Duration `yaml:"windup"`
	Animation  string        `yaml:"animation"`
	Sound      string        `yaml:"sound"`
	Volume     float64       `yaml:"volume"`
	Range      float64       `yaml:"range"`
	SoundDelay time.Duration `yaml:"sound_delay"`
}

// Stage is one health-gated variant of an ability.
type Stage struct {
	Threshold float64       `yaml:"threshold"` // health fraction, 0-1
	Cooldown  time.Duration `yaml:"cooldown"`
	MinRange  float64       `yaml:"min_range"`
	MaxRange  float64       `yaml:"max_range"`
	Payload   Payload       `yaml:"payload"`
	Telegraph Telegraph     `yaml:"telegraph"`
}

// AbilityDef is an immutable ability definition. Stages run from the widest
// health gate to the narrowest (thresholds descending, e.g. 1.0 then 0.5);
// selection is positional and the loader never re-sorts them.
type AbilityDef struct {
	Code   string  `yaml:"code"`
	Kind   string  `yaml:"kind"`
	Stages []Stage `yaml:"stages"`
}

// BossDef describes a boss template and the abilities it carries.
type BossDef struct {
	Code      string   `yaml:"code"`
	Name      string   `yaml:"name"`
	MaxHP     float64  `yaml:"max_hp"`
	WalkSpeed float64  `yaml:"walk_speed"`
	Abilities []string `yaml:"abilities"`
}

type abilityFile struct {
	Abilities []AbilityDef `yaml:"abilities"`
	Bosses    []BossDef    `yaml:"bosses"`
}

// AbilityTable holds every ability and boss definition from one file.
type AbilityTable struct {
	abilities map[string]*AbilityDef
	bosses    map[string]*BossDef
	issues    []Issue
}

// Get returns an ability definition, or nil if none defined.
func (t *AbilityTable) Get(code string) *AbilityDef {
	return t.abilities[code]
}

// Boss returns a boss definition, or nil if none defined.
func (t *AbilityTable) Boss(code string) *BossDef {
	return t.bosses[code]
}

// Count returns the number of abilities.
func (t *AbilityTable) Count() int {
	return len(t.abilities)
}

// Codes returns all ability codes, sorted.
func (t *AbilityTable) Codes() []string {
	codes := make([]string, 0, len(t.abilities))
	for c := range t.abilities {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// BossCodes returns all boss codes, sorted.
func (t *AbilityTable) BossCodes() []string {
	codes := make([]string, 0, len(t.bosses))
	for c := range t.bosses {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// Issues returns everything the loader clamped or flagged, in file order.
func (t *AbilityTable) Issues() []Issue {
	return t.issues
}

// LoadAbilityTable loads ability and boss definitions from a YAML file.
func LoadAbilityTable(path string) (*AbilityTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read boss_abilities: %w", err)
	}
	t, err := ParseAbilityTable(raw)
	if err != nil {
		return nil, fmt.Errorf("parse boss_abilities: %w", err)
	}
	return t, nil
}

// ParseAbilityTable decodes and sanitizes an ability table. Malformed values
// are clamped and reported through Issues; only YAML syntax errors fail.
func ParseAbilityTable(raw []byte) (*AbilityTable, error) {
	var f abilityFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	t := &AbilityTable{
		abilities: make(map[string]*AbilityDef, len(f.Abilities)),
		bosses:    make(map[string]*BossDef, len(f.Bosses)),
	}
	for i := range f.Abilities {
		def := &f.Abilities[i]
		if def.Code == "" {
			t.issues = append(t.issues, Issue{Severity: SeverityWarn, Stage: -1, Field: "code", Msg: fmt.Sprintf("ability #%d has no code, skipped", i)})
			continue
		}
		if _, dup := t.abilities[def.Code]; dup {
			t.issues = append(t.issues, Issue{Severity: SeverityWarn, Ability: def.Code, Stage: -1, Field: "code", Msg: "duplicate code, later entry skipped"})
			continue
		}
		t.issues = append(t.issues, sanitizeAbility(def)...)
		t.abilities[def.Code] = def
	}
	for i := range f.Bosses {
		b := &f.Bosses[i]
		if b.MaxHP <= 0 {
			t.issues = append(t.issues, Issue{Severity: SeverityWarn, Ability: b.Code, Stage: -1, Field: "max_hp", Msg: fmt.Sprintf("boss max_hp %v clamped to 1", b.MaxHP)})
			b.MaxHP = 1
		}
		for _, code := range b.Abilities {
			if _, ok := t.abilities[code]; !ok {
				t.issues = append(t.issues, Issue{Severity: SeverityWarn, Ability: code, Stage: -1, Field: "abilities", Msg: fmt.Sprintf("boss %s references unknown ability", b.Code)})
			}
		}
		t.bosses[b.Code] = b
	}
	return t, nil
}
