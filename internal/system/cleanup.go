package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/encounter/internal/core/ecs"
	coresys "github.com/l1jgo/encounter/internal/core/system"
)

// CleanupSystem flushes the deferred entity destruction queue at tick end.
// Phase 6 (Cleanup).
type CleanupSystem struct {
	world *ecs.World
	log   *zap.Logger
}

func NewCleanupSystem(world *ecs.World, log *zap.Logger) *CleanupSystem {
	return &CleanupSystem{world: world, log: log}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	for reason, n := range s.world.FlushDestroyQueue() {
		s.log.Debug("entities destroyed", zap.String("reason", reason), zap.Int("count", n))
	}
}
