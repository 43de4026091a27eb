package data

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sampleTable = `
abilities:
  - code: ember_rain
    kind: ash_floor
    stages:
      - threshold: 1.0
        cooldown: 10s
        max_range: 12
        payload: {damage: 20, damage_type: fire, count: 8, radius: 1.5, duration: 8s}
        telegraph: {windup: 800ms, animation: raise_arms, sound: roar, volume: 1.0, range: 24, sound_delay: 150ms}
      - threshold: 0.5
        cooldown: 5s
        max_range: 12
bosses:
  - code: hollow_king
    name: The Hollow King
    max_hp: 5000
    walk_speed: 1.0
    abilities: [ember_rain]
`

func TestParseAbilityTable(t *testing.T) {
	tbl, err := ParseAbilityTable([]byte(sampleTable))
	require.NoError(t, err)
	assert.Empty(t, tbl.Issues())
	assert.Equal(t, 1, tbl.Count())

	def := tbl.Get("ember_rain")
	require.NotNil(t, def)
	assert.Equal(t, "ash_floor", def.Kind)
	require.Len(t, def.Stages, 2)
	assert.Equal(t, 10*time.Second, def.Stages[0].Cooldown)
	assert.Equal(t, 800*time.Millisecond, def.Stages[0].Telegraph.Windup)
	assert.Equal(t, 150*time.Millisecond, def.Stages[0].Telegraph.SoundDelay)
	assert.Equal(t, 8*time.Second, def.Stages[0].Payload.Duration)
	assert.Equal(t, 8, def.Stages[0].Payload.Count)

	boss := tbl.Boss("hollow_king")
	require.NotNil(t, boss)
	assert.Equal(t, []string{"ember_rain"}, boss.Abilities)
	assert.Nil(t, tbl.Get("missing"))
}

func TestParseAbilityTable_ClampsMalformedStages(t *testing.T) {
	raw := `
abilities:
  - code: broken
    kind: drain_nova
    stages:
      - threshold: 1.5
        cooldown: -3s
        min_range: 9
        max_range: 4
        payload: {radius: -2, count: -1, heal_fraction: 2}
        telegraph: {windup: -1s}
`
	tbl, err := ParseAbilityTable([]byte(raw))
	require.NoError(t, err)

	s := tbl.Get("broken").Stages[0]
	assert.Equal(t, 1.0, s.Threshold)
	assert.Equal(t, time.Duration(0), s.Cooldown)
	assert.Equal(t, 4.0, s.MinRange)
	assert.Equal(t, 4.0, s.MaxRange)
	assert.Equal(t, 0.0, s.Payload.Radius)
	assert.Equal(t, 0, s.Payload.Count)
	assert.Equal(t, 1.0, s.Payload.HealFraction)
	assert.Equal(t, time.Duration(0), s.Telegraph.Windup)

	fields := map[string]bool{}
	for _, is := range tbl.Issues() {
		assert.Equal(t, SeverityClamp, is.Severity)
		fields[is.Field] = true
	}
	for _, f := range []string{"threshold", "cooldown", "min_range", "payload.radius", "payload.count", "payload.heal_fraction", "telegraph.windup"} {
		assert.True(t, fields[f], f)
	}
}

func TestParseAbilityTable_ClampsQueryRadius(t *testing.T) {
	raw := `
abilities:
  - code: wide
    kind: chill_aura
    stages:
      - {threshold: 1.0, max_range: 50000, payload: {radius: 1e6}}
`
	tbl, err := ParseAbilityTable([]byte(raw))
	require.NoError(t, err)

	s := tbl.Get("wide").Stages[0]
	assert.Equal(t, MaxQueryRadius, s.MaxRange)
	assert.Equal(t, MaxQueryRadius, s.Payload.Radius)

	fields := map[string]bool{}
	for _, is := range tbl.Issues() {
		fields[is.Field] = is.Severity == SeverityClamp
	}
	assert.True(t, fields["max_range"])
	assert.True(t, fields["payload.radius"])
}

func TestParseAbilityTable_UnsortedStagesKeepOrder(t *testing.T) {
	raw := `
abilities:
  - code: backwards
    kind: shockwave
    stages:
      - {threshold: 0.5}
      - {threshold: 1.0}
      - {threshold: 0.25}
`
	tbl, err := ParseAbilityTable([]byte(raw))
	require.NoError(t, err)

	def := tbl.Get("backwards")
	assert.Equal(t, []float64{0.5, 1.0, 0.25}, []float64{def.Stages[0].Threshold, def.Stages[1].Threshold, def.Stages[2].Threshold})

	issues := tbl.Issues()
	require.Len(t, issues, 1)
	assert.Equal(t, SeverityWarn, issues[0].Severity)
	assert.Equal(t, 0, issues[0].Stage)
	assert.Contains(t, issues[0].String(), "backwards stage 0: threshold")
	assert.Contains(t, issues[0].Msg, "shadowed by stage 1")
}

func TestParseAbilityTable_NarrowingStagesAreClean(t *testing.T) {
	raw := `
abilities:
  - code: nova
    kind: drain_nova
    stages:
      - {threshold: 1.0, cooldown: 10s}
      - {threshold: 0.5, cooldown: 5s}
      - {threshold: 0.2, cooldown: 3s}
`
	tbl, err := ParseAbilityTable([]byte(raw))
	require.NoError(t, err)
	assert.Empty(t, tbl.Issues())
}

func TestParseAbilityTable_DuplicatesAndUnknownRefs(t *testing.T) {
	raw := `
abilities:
  - {code: a, kind: enrage, stages: [{threshold: 1}]}
  - {code: a, kind: shockwave, stages: [{threshold: 1}]}
bosses:
  - {code: b, max_hp: 0, abilities: [a, nope]}
`
	tbl, err := ParseAbilityTable([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "enrage", tbl.Get("a").Kind, "first definition wins")
	assert.Equal(t, 1.0, tbl.Boss("b").MaxHP)
	assert.Len(t, tbl.Issues(), 3)
}

func TestLoadAbilityTable_Errors(t *testing.T) {
	_, err := LoadAbilityTable(filepath.Join(t.TempDir(), "none.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read boss_abilities")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("abilities: [\n"), 0o644))
	_, err = LoadAbilityTable(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse boss_abilities")
}

func TestLoadBossSpawnList_DefaultKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spawns.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
spawns:
  - {boss: hollow_king, map_id: 4, x: 10, y: 12}
  - {key: east_gate, boss: hollow_king, map_id: 4, x: 40, y: 12}
`), 0o644))

	spawns, err := LoadBossSpawnList(path)
	require.NoError(t, err)
	require.Len(t, spawns, 2)
	assert.Equal(t, "hollow_king@0", spawns[0].Key)
	assert.Equal(t, "east_gate", spawns[1].Key)
	assert.Equal(t, int32(4), spawns[1].MapID)
}

func TestTableHolder_Swap(t *testing.T) {
	a, _ := ParseAbilityTable([]byte(sampleTable))
	b, _ := ParseAbilityTable([]byte("abilities: []"))
	h := NewTableHolder(a)
	v := h.Version()
	h.Swap(b)
	assert.Same(t, b, h.Current())
	assert.Equal(t, v+1, h.Version())
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "boss_abilities.yaml")
	require.NoError(t, os.WriteFile(path, []byte("abilities: []"), 0o644))

	w, err := NewWatcher(path, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// unrelated files in the same directory are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte(sampleTable), 0o644))

	select {
	case tbl := <-w.Updates():
		assert.Equal(t, 1, tbl.Count())
	case <-time.After(5 * time.Second):
		t.Fatal("no reload observed")
	}
}
