package ecs

import (
	"sync"

	"github.com/milk9111/rigidworld/ecs/component"
)

// System updates a world each frame.
type System interface {
	Update(w *World)
}

// Attacher is implemented by components that need their owner once added.
// A non-nil error rejects the component and nothing is stored.
type Attacher interface {
	OnAttached(w *World, e Entity) error
}

// Detacher is implemented by components that release resources on removal.
type Detacher interface {
	OnDetached(w *World, e Entity)
}

// Detachable lets a component refuse removal while its entity is alive.
type Detachable interface {
	Detachable() bool
}

// World owns entities, components, and system order. It is safe for
// concurrent use; lifecycle hooks run without the world lock held.
type World struct {
	mu        sync.RWMutex
	entities  entityStore
	stores    map[component.ComponentID]*SparseSet
	scheduler *Scheduler
	events    EventQueue
}

// NewWorld creates an empty ECS world.
func NewWorld() *World {
	return &World{
		stores:    make(map[component.ComponentID]*SparseSet),
		scheduler: NewScheduler(),
	}
}

// CreateEntity allocates a new entity.
func (w *World) CreateEntity() Entity {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.entities.create()
}

// DestroyEntity removes every component of e, ignoring detachability, and
// frees the handle. It reports whether e was alive.
func (w *World) DestroyEntity(e Entity) bool {
	w.mu.Lock()
	if !w.entities.isAlive(e) {
		w.mu.Unlock()
		return false
	}
	id := int(e.id())
	var removed []any
	for _, store := range w.stores {
		if v := store.Get(id); v != nil {
			removed = append(removed, v)
			store.Remove(id)
		}
	}
	w.entities.destroy(e)
	w.mu.Unlock()

	for _, v := range removed {
		if d, ok := v.(Detacher); ok {
			d.OnDetached(w, e)
		}
	}
	return true
}

// IsAlive reports whether an entity handle is valid.
func (w *World) IsAlive(e Entity) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.entities.isAlive(e)
}

// Len returns the number of live entities.
func (w *World) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.entities.alive
}

// AddSystem appends a system to the update order.
func (w *World) AddSystem(s System) {
	w.scheduler.Add(s)
}

// Update runs all systems once.
func (w *World) Update() {
	if w == nil {
		return
	}
	w.scheduler.Update(w)
}

// Events returns the world event queue.
func (w *World) Events() *EventQueue {
	if w == nil {
		return nil
	}
	return &w.events
}

// Query returns the live entities holding every listed component.
func (w *World) Query(ids ...component.ComponentID) []Entity {
	if len(ids) == 0 {
		return nil
	}
	w.mu.RLock()
	defer w.mu.RUnlock()

	sets := make([]*SparseSet, len(ids))
	for i, cid := range ids {
		sets[i] = w.stores[cid]
	}
	matched := intersect(sets...)

	out := make([]Entity, 0, len(matched))
	for _, id := range matched {
		out = append(out, w.entities.current(id))
	}
	return out
}

// First returns any live entity holding the component.
func (w *World) First(id component.ComponentID) (Entity, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	store := w.stores[id]
	if store.Len() == 0 {
		return 0, false
	}
	return w.entities.current(store.Entities()[0]), true
}

func (w *World) addComponent(e Entity, id component.ComponentID, value any) error {
	if value == nil {
		return component.ErrNilComponent
	}
	if id == 0 {
		return component.ErrInvalidComponentKind
	}

	w.mu.RLock()
	alive := w.entities.isAlive(e)
	prev := w.stores[id].Get(int(e.id()))
	w.mu.RUnlock()
	if !alive {
		return component.ErrEntityNotAlive
	}

	if prev != nil && prev != value {
		if d, ok := prev.(Detachable); ok && !d.Detachable() {
			return component.ErrNotDetachable
		}
	}
	if prev != value {
		if a, ok := value.(Attacher); ok {
			if err := a.OnAttached(w, e); err != nil {
				return err
			}
		}
	}

	w.mu.Lock()
	if !w.entities.isAlive(e) {
		w.mu.Unlock()
		if d, ok := value.(Detacher); ok {
			d.OnDetached(w, e)
		}
		return component.ErrEntityNotAlive
	}
	store := w.stores[id]
	if store == nil {
		store = &SparseSet{}
		w.stores[id] = store
	}
	store.Set(int(e.id()), value)
	w.mu.Unlock()

	if prev != nil && prev != value {
		if d, ok := prev.(Detacher); ok {
			d.OnDetached(w, e)
		}
	}
	return nil
}

func (w *World) removeComponent(e Entity, id component.ComponentID) error {
	w.mu.Lock()
	if !w.entities.isAlive(e) {
		w.mu.Unlock()
		return component.ErrEntityNotAlive
	}
	store := w.stores[id]
	value := store.Get(int(e.id()))
	if value == nil {
		w.mu.Unlock()
		return component.ErrComponentNotFound
	}
	if d, ok := value.(Detachable); ok && !d.Detachable() {
		w.mu.Unlock()
		return component.ErrNotDetachable
	}
	store.Remove(int(e.id()))
	w.mu.Unlock()

	if d, ok := value.(Detacher); ok {
		d.OnDetached(w, e)
	}
	return nil
}

func (w *World) getComponent(e Entity, id component.ComponentID) (any, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.entities.isAlive(e) {
		return nil, false
	}
	v := w.stores[id].Get(int(e.id()))
	return v, v != nil
}
