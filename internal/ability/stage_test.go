package ability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/l1jgo/encounter/internal/attr"
	"github.com/l1jgo/encounter/internal/clock"
	"github.com/l1jgo/encounter/internal/data"
)

func stages(thresholds ...float64) []data.Stage {
	out := make([]data.Stage, len(thresholds))
	for i, th := range thresholds {
		out[i].Threshold = th
	}
	return out
}

func TestSelectStage(t *testing.T) {
	tests := []struct {
		name   string
		stages []data.Stage
		health float64
		want   int
		ok     bool
	}{
		{"full health picks first", stages(1.0, 0.5), 0.9, 0, true},
		{"below second gate", stages(1.0, 0.5), 0.4, 1, true},
		{"exactly on a threshold", stages(1.0, 0.5), 0.5, 1, true},
		{"no stage reachable", stages(0.5), 0.9, -1, false},
		{"empty", nil, 0.1, -1, false},
		{"dead boss takes last", stages(1.0, 0.5, 0.2), 0, 2, true},
		{"position wins over threshold", stages(0.5, 1.0), 0.4, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SelectStage(tt.stages, tt.health)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestCooldownGate(t *testing.T) {
	s := attr.NewStore()
	g := CooldownGate{Key: CooldownKey("slam")}
	assert.Equal(t, "ability.slam.last_ms", g.Key)

	assert.True(t, g.Ready(s, 5*time.Second, 1000), "no record yet")

	g.Commit(s, 1000)
	assert.False(t, g.Ready(s, 5*time.Second, 5999))
	assert.True(t, g.Ready(s, 5*time.Second, 6000))

	assert.True(t, g.Ready(s, 0, 1000), "zero cooldown is always ready")
}

func TestCooldownGate_RecordFromEarlierProcess(t *testing.T) {
	s := attr.NewStore()
	g := CooldownGate{Key: CooldownKey("slam")}
	// written when the old process had been up for 90s; we restarted at 0
	g.Commit(s, 90_000)

	assert.True(t, g.Ready(s, 10*time.Second, clock.ProcessMs(1000)))
}

func TestCooldownGate_ReadyDoesNotWrite(t *testing.T) {
	s := attr.NewStore()
	g := CooldownGate{Key: CooldownKey("slam")}
	g.Ready(s, time.Second, 1000)
	assert.False(t, s.Has(g.Key))
}
