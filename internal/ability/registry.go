package ability

import (
	"errors"
	"fmt"
	"sort"

	"github.com/l1jgo/encounter/internal/data"
)

// Ability kinds accepted in the table's kind field.
const (
	KindAshFloor   = "ash_floor"
	KindDrainNova  = "drain_nova"
	KindFrostMark  = "frost_mark"
	KindChillAura  = "chill_aura"
	KindShockwave  = "shockwave"
	KindDecoyTrap  = "decoy_trap"
	KindDeathBurst = "death_burst"
	KindEnrage     = "enrage"
	KindSummonEcho = "summon_echo"
)

var ErrUnknownKind = errors.New("unknown ability kind")

var kinds = map[string]func(code string) Component{
	KindAshFloor:   func(c string) Component { return newStaged(c, KindAshFloor, TargetNearest, ashFloor{}) },
	KindDrainNova:  func(c string) Component { return newStaged(c, KindDrainNova, TargetSelf, drainNova{}) },
	KindFrostMark:  func(c string) Component { return newStaged(c, KindFrostMark, TargetNearest, frostMark{}) },
	KindChillAura:  func(c string) Component { return newStaged(c, KindChillAura, TargetSelf, chillAura{}) },
	KindShockwave:  func(c string) Component { return newStaged(c, KindShockwave, TargetNearest, shockwave{}) },
	KindDecoyTrap:  func(c string) Component { return newStaged(c, KindDecoyTrap, TargetNearest, decoyTrap{}) },
	KindDeathBurst: func(c string) Component { return &DeathBurst{code: c} },
	KindEnrage:     func(c string) Component { return newStaged(c, KindEnrage, TargetSelf, enrage{}) },
	KindSummonEcho: func(c string) Component { return newStaged(c, KindSummonEcho, TargetNearest, summonEcho{}) },
}

// New builds the component for def.
func New(def *data.AbilityDef) (Component, error) {
	mk, ok := kinds[def.Kind]
	if !ok {
		return nil, fmt.Errorf("%w %q (ability %s)", ErrUnknownKind, def.Kind, def.Code)
	}
	return mk(def.Code), nil
}

func Known(kind string) bool {
	_, ok := kinds[kind]
	return ok
}

// Kinds lists every supported kind, sorted.
func Kinds() []string {
	out := make([]string, 0, len(kinds))
	for k := range kinds {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// UnknownKinds returns the codes of abilities in t whose kind has no
// implementation, sorted.
func UnknownKinds(t *data.AbilityTable) []string {
	var out []string
	for _, code := range t.Codes() {
		if def := t.Get(code); def != nil && !Known(def.Kind) {
			out = append(out, code)
		}
	}
	return out
}
