package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for ability formulas.
// Single-goroutine access only (game loop).
type Engine struct {
	vm      *lua.LState
	log     *zap.Logger
	missing map[string]bool // functions already reported as absent
}

// NewEngine creates a Lua engine and loads all scripts from the given directory.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log, missing: make(map[string]bool)}

	// Load core scripts first, then feature scripts
	for _, sub := range []string{"core", "ability"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}

	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// AbilityDamageContext holds pre-packed data for one ability hit.
type AbilityDamageContext struct {
	Ability     string
	Kind        string
	Base        float64 // stage payload damage
	Tier        int
	Multiplier  float64 // attacker's blended damage_mult
	Distance    float64 // attacker to target; 0 for hazards
	TargetHP    float64
	TargetMaxHP float64
}

// CalcAbilityDamage calls the Lua calc_ability_damage function. Falls back to
// Base*Multiplier when the script is missing or fails.
func (e *Engine) CalcAbilityDamage(ctx AbilityDamageContext) float64 {
	fallback := ctx.Base * ctx.Multiplier

	t := e.vm.NewTable()
	t.RawSetString("ability", lua.LString(ctx.Ability))
	t.RawSetString("kind", lua.LString(ctx.Kind))
	t.RawSetString("base", lua.LNumber(ctx.Base))
	t.RawSetString("tier", lua.LNumber(ctx.Tier))
	t.RawSetString("multiplier", lua.LNumber(ctx.Multiplier))
	t.RawSetString("distance", lua.LNumber(ctx.Distance))

	tgt := e.vm.NewTable()
	tgt.RawSetString("hp", lua.LNumber(ctx.TargetHP))
	tgt.RawSetString("max_hp", lua.LNumber(ctx.TargetMaxHP))
	t.RawSetString("target", tgt)

	v, ok := e.callNumber("calc_ability_damage", t)
	if !ok || v < 0 {
		return fallback
	}
	return v
}

// DrainHealContext holds data for a life-drain heal.
type DrainHealContext struct {
	Ability   string
	Dealt     float64 // total damage the drain dealt
	Fraction  float64 // stage heal_fraction
	Victims   int
	BossHP    float64
	BossMaxHP float64
}

// CalcDrainHeal calls the Lua calc_drain_heal function. Falls back to
// Dealt*Fraction.
func (e *Engine) CalcDrainHeal(ctx DrainHealContext) float64 {
	fallback := ctx.Dealt * ctx.Fraction

	t := e.vm.NewTable()
	t.RawSetString("ability", lua.LString(ctx.Ability))
	t.RawSetString("dealt", lua.LNumber(ctx.Dealt))
	t.RawSetString("fraction", lua.LNumber(ctx.Fraction))
	t.RawSetString("victims", lua.LNumber(ctx.Victims))
	t.RawSetString("boss_hp", lua.LNumber(ctx.BossHP))
	t.RawSetString("boss_max_hp", lua.LNumber(ctx.BossMaxHP))

	v, ok := e.callNumber("calc_drain_heal", t)
	if !ok || v < 0 {
		return fallback
	}
	return v
}

// callNumber calls a global Lua function with one table argument and returns
// its numeric result.
func (e *Engine) callNumber(name string, arg *lua.LTable) (float64, bool) {
	fn := e.vm.GetGlobal(name)
	if fn == lua.LNil {
		if !e.missing[name] {
			e.missing[name] = true
			e.log.Warn("lua function not found, using fallback", zap.String("name", name))
		}
		return 0, false
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, arg); err != nil {
		e.log.Error("lua call error", zap.String("func", name), zap.Error(err))
		return 0, false
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)
	n, ok := result.(lua.LNumber)
	if !ok {
		e.log.Error("lua function returned non-number", zap.String("func", name), zap.String("type", result.Type().String()))
		return 0, false
	}
	return float64(n), true
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
