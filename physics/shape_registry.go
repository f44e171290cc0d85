package physics

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// ShapeConstructor builds a shape from positional bounds. The slice length
// always equals the arity it was resolved for.
type ShapeConstructor func(bounds []float64) (Shape, error)

type shapeCtor struct {
	arity int
	build ShapeConstructor
}

// ShapeRegistry maps a shape kind and a bounds count to a constructor.
type ShapeRegistry struct {
	mu    sync.RWMutex
	kinds map[string][]shapeCtor
}

func NewShapeRegistry() *ShapeRegistry {
	return &ShapeRegistry{kinds: make(map[string][]shapeCtor)}
}

// DefaultShapes returns a registry with the built in primitives.
func DefaultShapes() *ShapeRegistry {
	r := NewShapeRegistry()
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}
	must(Register1(r, "sphere", NewSphere))
	must(Register2(r, "box", func(x, y float64) (Box, error) { return NewBox(x, y) }))
	must(Register3(r, "box", func(x, y, z float64) (Box, error) { return NewBox(x, y, z) }))
	must(Register2(r, "capsule", NewCapsule))
	must(Register2(r, "cylinder", NewCylinder))
	return r
}

func Register1[S Shape](r *ShapeRegistry, kind string, fn func(a float64) (S, error)) error {
	return r.register(kind, 1, func(b []float64) (Shape, error) { return wrap(fn(b[0])) })
}

func Register2[S Shape](r *ShapeRegistry, kind string, fn func(a, b float64) (S, error)) error {
	return r.register(kind, 2, func(b []float64) (Shape, error) { return wrap(fn(b[0], b[1])) })
}

func Register3[S Shape](r *ShapeRegistry, kind string, fn func(a, b, c float64) (S, error)) error {
	return r.register(kind, 3, func(b []float64) (Shape, error) { return wrap(fn(b[0], b[1], b[2])) })
}

func wrap[S Shape](s S, err error) (Shape, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

func normalizeKind(kind string) string {
	return strings.ToLower(strings.TrimSpace(kind))
}

func (r *ShapeRegistry) register(kind string, arity int, build ShapeConstructor) error {
	if r == nil {
		return fmt.Errorf("%w: nil shape registry", ErrInvalidArgument)
	}
	key := normalizeKind(kind)
	if key == "" {
		return fmt.Errorf("%w: empty shape kind", ErrInvalidArgument)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.kinds[key] {
		if c.arity == arity {
			return fmt.Errorf("%w: %s/%d", ErrDuplicateShape, key, arity)
		}
	}
	r.kinds[key] = append(r.kinds[key], shapeCtor{arity: arity, build: build})
	return nil
}

// Resolve returns the constructor for kind taking exactly arity bounds.
func (r *ShapeRegistry) Resolve(kind string, arity int) (ShapeConstructor, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil shape registry", ErrInvalidArgument)
	}
	key := normalizeKind(kind)

	r.mu.RLock()
	ctors, ok := r.kinds[key]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownShape, kind)
	}
	for _, c := range ctors {
		if c.arity != arity {
			continue
		}
		build := c.build
		return func(bounds []float64) (Shape, error) {
			if len(bounds) != arity {
				return nil, fmt.Errorf("%w: %s takes %d bounds, got %d", ErrInvalidArgument, key, arity, len(bounds))
			}
			return build(bounds)
		}, nil
	}
	return nil, fmt.Errorf("%w: %s with %d bounds (accepts %v)", ErrNoConstructor, key, arity, r.arities(ctors))
}

// Build resolves and constructs in one call.
func (r *ShapeRegistry) Build(kind string, bounds ...float64) (Shape, error) {
	ctor, err := r.Resolve(kind, len(bounds))
	if err != nil {
		return nil, err
	}
	return ctor(bounds)
}

func (r *ShapeRegistry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.kinds))
	for k := range r.kinds {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func (r *ShapeRegistry) Arities(kind string) []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.arities(r.kinds[normalizeKind(kind)])
}

func (r *ShapeRegistry) arities(ctors []shapeCtor) []int {
	out := make([]int, 0, len(ctors))
	for _, c := range ctors {
		out = append(out, c.arity)
	}
	slices.Sort(out)
	return out
}
