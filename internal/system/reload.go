package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/encounter/internal/ability"
	"github.com/l1jgo/encounter/internal/core/event"
	coresys "github.com/l1jgo/encounter/internal/core/system"
	"github.com/l1jgo/encounter/internal/data"
)

// TableReloadSystem swaps in ability tables parsed by the file watcher.
// Phase 0 (Input). Windups already in flight keep the stage they captured.
type TableReloadSystem struct {
	updates   <-chan *data.AbilityTable
	holder    *data.TableHolder
	abilities *AbilitySystem
	bus       *event.Bus
	log       *zap.Logger
}

func NewTableReloadSystem(updates <-chan *data.AbilityTable, holder *data.TableHolder, abilities *AbilitySystem, bus *event.Bus, log *zap.Logger) *TableReloadSystem {
	return &TableReloadSystem{updates: updates, holder: holder, abilities: abilities, bus: bus, log: log}
}

func (s *TableReloadSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *TableReloadSystem) Update(_ time.Duration) {
	select {
	case t := <-s.updates:
		s.apply(t)
	default:
	}
}

func (s *TableReloadSystem) apply(t *data.AbilityTable) {
	s.holder.Swap(t)
	s.abilities.Rebuild(t)
	for _, code := range ability.UnknownKinds(t) {
		s.log.Warn("ability kind not implemented", zap.String("ability", code), zap.String("kind", t.Get(code).Kind))
	}
	s.log.Info("ability table reloaded",
		zap.Int("abilities", t.Count()), zap.Int("issues", len(t.Issues())), zap.Int("version", s.holder.Version()))
	event.Emit(s.bus, event.AbilityTableReloaded{Abilities: t.Count(), Issues: len(t.Issues())})
}
