package ability

import (
	"go.uber.org/zap"

	"github.com/l1jgo/encounter/internal/core/ecs"
	"github.com/l1jgo/encounter/internal/world"
)

// Tracer logs ability decisions. Bosses it is enabled for log at info; the
// rest log at debug. A nil Tracer discards everything.
type Tracer struct {
	log   *zap.Logger
	spawn map[string]struct{}
	ids   map[ecs.EntityID]struct{}
}

// NewTracer enables tracing for bosses whose spawn key is listed once Watch
// sees them.
func NewTracer(log *zap.Logger, spawnKeys []string) *Tracer {
	t := &Tracer{
		log:   log.Named("ability"),
		spawn: make(map[string]struct{}, len(spawnKeys)),
		ids:   make(map[ecs.EntityID]struct{}),
	}
	for _, k := range spawnKeys {
		t.spawn[k] = struct{}{}
	}
	return t
}

// Watch enables tracing for boss if its spawn key was configured.
func (t *Tracer) Watch(boss *world.BossInfo) {
	if t == nil {
		return
	}
	if _, ok := t.spawn[boss.SpawnKey]; ok {
		t.Enable(boss.ID)
	}
}

func (t *Tracer) Enable(id ecs.EntityID) {
	if t != nil {
		t.ids[id] = struct{}{}
	}
}

func (t *Tracer) Disable(id ecs.EntityID) {
	if t != nil {
		delete(t.ids, id)
	}
}

func (t *Tracer) Enabled(id ecs.EntityID) bool {
	if t == nil {
		return false
	}
	_, ok := t.ids[id]
	return ok
}

// Reset disables tracing for every boss.
func (t *Tracer) Reset() {
	if t != nil {
		clear(t.ids)
	}
}

func (t *Tracer) Decision(owner ecs.EntityID, ability, what string, fields ...zap.Field) {
	if t == nil {
		return
	}
	fields = append(fields, zap.Uint64("boss", uint64(owner)), zap.String("ability", ability))
	if t.Enabled(owner) {
		t.log.Info(what, fields...)
		return
	}
	t.log.Debug(what, fields...)
}
