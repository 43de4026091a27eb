package system

import (
	"context"

	"github.com/jakecoffman/cp"
	"go.uber.org/zap"

	"github.com/l1jgo/encounter/internal/attr"
	"github.com/l1jgo/encounter/internal/data"
	"github.com/l1jgo/encounter/internal/effect"
	"github.com/l1jgo/encounter/internal/world"
)

// SpawnBosses places every boss in the spawn list, restores its saved
// attributes and attaches its abilities. Spawns naming an unknown boss are
// skipped. Returns how many bosses were placed.
func SpawnBosses(ctx context.Context, ws *world.State, t *data.AbilityTable, spawns []data.BossSpawn,
	snaps attr.SnapshotStore, effects *effect.Manager, abilities *AbilitySystem, log *zap.Logger) int {
	n := 0
	for _, sp := range spawns {
		def := t.Boss(sp.Boss)
		if def == nil {
			log.Warn("spawn names unknown boss", zap.String("spawn", sp.Key), zap.String("boss", sp.Boss))
			continue
		}
		b := &world.BossInfo{
			Code:          def.Code,
			SpawnKey:      sp.Key,
			Pos:           cp.Vector{X: sp.X, Y: sp.Y},
			MapID:         sp.MapID,
			MaxHP:         def.MaxHP,
			BaseWalkSpeed: def.WalkSpeed,
			Attrs:         attr.NewStore(),
		}
		snap, ok, err := snaps.LoadSnapshot(ctx, b.OwnerKey())
		if err != nil {
			log.Error("load boss attributes", zap.String("spawn", sp.Key), zap.Error(err))
		} else if ok {
			b.Attrs.Restore(snap)
		}
		ws.SpawnBoss(b)
		effects.Track(b.ID)
		active := effects.Refresh(b.ID)
		attached := abilities.Attach(b)
		log.Info("boss spawned",
			zap.String("spawn", sp.Key), zap.String("boss", def.Code), zap.Int32("map", sp.MapID),
			zap.Int("abilities", attached), zap.Int("active_effects", active))
		n++
	}
	return n
}
