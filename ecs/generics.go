package ecs

import "github.com/milk9111/rigidworld/ecs/component"

// Add attaches value to e, replacing any previous component of the same kind.
// Attacher hooks run before the value becomes visible.
func Add[T any](w *World, e Entity, kind component.ComponentKind[T], value *T) error {
	if value == nil {
		return component.ErrNilComponent
	}
	return w.addComponent(e, kind.ID(), value)
}

// Remove detaches the component, honouring Detachable.
func Remove[T any](w *World, e Entity, kind component.ComponentKind[T]) error {
	return w.removeComponent(e, kind.ID())
}

func Has[T any](w *World, e Entity, kind component.ComponentKind[T]) bool {
	_, ok := w.getComponent(e, kind.ID())
	return ok
}

func Get[T any](w *World, e Entity, kind component.ComponentKind[T]) (*T, bool) {
	value, ok := w.getComponent(e, kind.ID())
	if !ok {
		return nil, false
	}
	cast, ok := value.(*T)
	return cast, ok
}

// GetOrAdd returns the existing component or attaches the one built by create.
func GetOrAdd[T any](w *World, e Entity, kind component.ComponentKind[T], create func() *T) (*T, error) {
	if v, ok := Get(w, e, kind); ok {
		return v, nil
	}
	v := create()
	if err := Add(w, e, kind, v); err != nil {
		return nil, err
	}
	return v, nil
}

// ForEach calls fn for every live entity holding the component.
func ForEach[T any](w *World, kind component.ComponentKind[T], fn func(e Entity, v *T)) {
	for _, e := range w.Query(kind.ID()) {
		if v, ok := Get(w, e, kind); ok {
			fn(e, v)
		}
	}
}
