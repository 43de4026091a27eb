package ecs

type pendingDestroy struct {
	id     EntityID
	reason string
}

// World is the top-level ECS container. It owns the entity pool, the component
// registry, and a deferred destruction queue flushed by CleanupSystem each tick.
type World struct {
	pool         *EntityPool
	registry     *Registry
	destroyQueue []pendingDestroy
	queued       map[EntityID]struct{}
}

func NewWorld() *World {
	return &World{
		pool:         NewEntityPool(),
		registry:     NewRegistry(),
		destroyQueue: make([]pendingDestroy, 0, 64),
		queued:       make(map[EntityID]struct{}, 64),
	}
}

func (w *World) Pool() *EntityPool   { return w.pool }
func (w *World) Registry() *Registry { return w.registry }

func (w *World) CreateEntity() EntityID {
	return w.pool.Create()
}

// Alive reports whether id is allocated and not queued for destruction.
func (w *World) Alive(id EntityID) bool {
	if !w.pool.Alive(id) {
		return false
	}
	_, q := w.queued[id]
	return !q
}

// MarkForDestruction queues an entity for end-of-tick cleanup. Queuing the
// same entity twice keeps the first reason.
func (w *World) MarkForDestruction(id EntityID, reason string) bool {
	if !w.pool.Alive(id) {
		return false
	}
	if _, q := w.queued[id]; q {
		return false
	}
	w.queued[id] = struct{}{}
	w.destroyQueue = append(w.destroyQueue, pendingDestroy{id: id, reason: reason})
	return true
}

// FlushDestroyQueue destroys all queued entities and clears their components.
// Called by CleanupSystem at the end of each tick. Returns the number
// destroyed per reason.
func (w *World) FlushDestroyQueue() map[string]int {
	if len(w.destroyQueue) == 0 {
		return nil
	}
	counts := make(map[string]int, 4)
	for _, d := range w.destroyQueue {
		w.registry.RemoveAll(d.id)
		w.pool.Destroy(d.id)
		delete(w.queued, d.id)
		counts[d.reason]++
	}
	w.destroyQueue = w.destroyQueue[:0]
	return counts
}
