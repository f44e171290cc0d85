package entity

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/milk9111/rigidworld/ecs"
	"github.com/milk9111/rigidworld/ecs/component"
	"github.com/milk9111/rigidworld/physics"
	"github.com/milk9111/rigidworld/prefabs"
)

var (
	ErrNilEnvironment  = errors.New("entity: environment is incomplete")
	ErrUnknownBuilder  = errors.New("entity: no builder for component")
	ErrMalformedBounds = errors.New("entity: malformed bounds")
)

// Options changes how prefabs are applied.
type Options struct {
	// LegacyRestitutionAsMass routes the Restitution property through the
	// mass setter, as older content expects.
	LegacyRestitutionAsMass bool
}

// Environment is what a prefab needs to spawn into.
type Environment struct {
	World   *ecs.World
	Sim     *physics.Simulation
	Shapes  *physics.ShapeRegistry
	Options Options
}

func NewEnvironment(w *ecs.World, sim *physics.Simulation) *Environment {
	return &Environment{World: w, Sim: sim, Shapes: physics.DefaultShapes()}
}

func (env *Environment) check() error {
	if env == nil || env.World == nil || env.Sim == nil || env.Shapes == nil {
		return ErrNilEnvironment
	}
	return nil
}

// SpawnEvent is the payload of ecs.EventSpawned.
type SpawnEvent struct {
	Entity ecs.Entity
	Prefab string
}

// EntityPrefab is an immutable template built once from a PrefabSpec and
// reused for every spawn.
type EntityPrefab struct {
	name       string
	components []string
	data       map[string]string
	collision  map[string]float64

	bounds    []float64
	boundsErr error
}

func NewPrefab(spec prefabs.PrefabSpec) *EntityPrefab {
	p := &EntityPrefab{
		name:       spec.Name,
		components: slices.Clone(spec.Components),
		data:       maps.Clone(spec.Data),
		collision:  maps.Clone(spec.Collision),
	}
	p.bounds, p.boundsErr = collectBounds(p.collision)
	return p
}

// FromLibrary builds the prefab registered under name.
func FromLibrary(lib *prefabs.Library, name string) (*EntityPrefab, error) {
	spec, err := lib.Get(name)
	if err != nil {
		return nil, err
	}
	return NewPrefab(spec), nil
}

// Validator checks specs as a prefab library loads them.
func Validator(shapes *physics.ShapeRegistry) prefabs.Validator {
	return func(spec prefabs.PrefabSpec) error {
		return NewPrefab(spec).Validate(shapes)
	}
}

func (p *EntityPrefab) Name() string         { return p.name }
func (p *EntityPrefab) Components() []string { return slices.Clone(p.components) }
func (p *EntityPrefab) Bounds() []float64    { return slices.Clone(p.bounds) }

func (p *EntityPrefab) Data(key string) (string, bool) {
	v, ok := p.data[key]
	return v, ok
}

func (p *EntityPrefab) Collision(key string) (float64, bool) {
	v, ok := p.collision[key]
	return v, ok
}

// collectBounds returns the Bounds1..BoundsN values in index order. Indices
// must start at 1 and have no gaps.
func collectBounds(collision map[string]float64) ([]float64, error) {
	byIndex := make(map[int]float64)
	for key, v := range collision {
		suffix, ok := strings.CutPrefix(key, prefabs.BoundsPrefix)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(suffix)
		if err != nil || n < 1 || strconv.Itoa(n) != suffix {
			return nil, fmt.Errorf("%w: key %q", ErrMalformedBounds, key)
		}
		byIndex[n] = v
	}
	if len(byIndex) == 0 {
		return nil, nil
	}
	out := make([]float64, len(byIndex))
	for i := range out {
		v, ok := byIndex[i+1]
		if !ok {
			return nil, fmt.Errorf("%w: missing %s%d", ErrMalformedBounds, prefabs.BoundsPrefix, i+1)
		}
		out[i] = v
	}
	return out, nil
}

// resolveShape picks the constructor for the prefab's shape from the number
// of bounds and builds the shape. It returns nil when the prefab declares no
// shape or no bounds.
func (p *EntityPrefab) resolveShape(shapes *physics.ShapeRegistry) (physics.Shape, error) {
	if p.boundsErr != nil {
		return nil, fmt.Errorf("entity: prefab %q: %w", p.name, p.boundsErr)
	}
	kind := p.data[prefabs.KeyShape]
	if kind == "" || len(p.bounds) == 0 {
		return nil, nil
	}
	ctor, err := shapes.Resolve(kind, len(p.bounds))
	if err != nil {
		return nil, fmt.Errorf("%w: prefab %q: no %s constructor for bounds %v: %w",
			physics.ErrIllegalState, p.name, kind, p.bounds, err)
	}
	shape, err := ctor(p.bounds)
	if err != nil {
		return nil, fmt.Errorf("%w: prefab %q: cannot build %s from bounds %v: %w",
			physics.ErrIllegalState, p.name, kind, p.bounds, err)
	}
	return shape, nil
}

// Validate reports problems CreateEntity would hit: unknown components,
// malformed bounds, and shapes that cannot be built.
func (p *EntityPrefab) Validate(shapes *physics.ShapeRegistry) error {
	var errs []error
	for _, name := range p.components {
		if _, ok := componentRegistry[name]; !ok {
			errs = append(errs, fmt.Errorf("%w %q", ErrUnknownBuilder, name))
		}
	}
	if _, err := p.resolveShape(shapes); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (p *EntityPrefab) CreateEntityAt(env *Environment, pos mgl64.Vec3) (ecs.Entity, error) {
	return p.CreateEntity(env, component.NewTransform(pos))
}

// CreateEntity spawns a new entity at t: it places the entity, attaches the
// listed components in order, sets the model, and configures the physics
// body from the collision properties. On failure nothing is left behind and
// the zero entity is returned.
func (p *EntityPrefab) CreateEntity(env *Environment, t component.Transform) (ecs.Entity, error) {
	if err := env.check(); err != nil {
		return 0, err
	}
	shape, err := p.resolveShape(env.Shapes)
	if err != nil {
		return 0, err
	}

	w := env.World
	e := w.CreateEntity()
	if err := p.build(env, e, t, shape); err != nil {
		Destroy(env, e)
		return 0, err
	}
	w.Events().Push(ecs.Event{Type: ecs.EventSpawned, Data: SpawnEvent{Entity: e, Prefab: p.name}})
	return e, nil
}

func (p *EntityPrefab) build(env *Environment, e ecs.Entity, t component.Transform, shape physics.Shape) error {
	w := env.World
	tr := t
	if err := ecs.Add(w, e, component.TransformComponent.Kind(), &tr); err != nil {
		return fmt.Errorf("entity: prefab %q: add transform: %w", p.name, err)
	}
	if _, err := env.Sim.Place(e, t.Position); err != nil {
		return fmt.Errorf("entity: prefab %q: place: %w", p.name, err)
	}

	ctx := &buildContext{env: env, prefab: p.name}
	for _, name := range p.components {
		builder, ok := componentRegistry[name]
		if !ok {
			return fmt.Errorf("entity: prefab %q: %w %q", p.name, ErrUnknownBuilder, name)
		}
		if err := builder(w, e, ctx); err != nil {
			return fmt.Errorf("entity: prefab %q: add %q: %w", p.name, name, err)
		}
	}

	if id, ok := p.data[prefabs.KeyModel]; ok {
		model, err := ecs.GetOrAdd(w, e, component.ModelComponent.Kind(), newModel)
		if err != nil {
			return fmt.Errorf("entity: prefab %q: add model: %w", p.name, err)
		}
		model.ID = id
	}

	if shape == nil {
		return nil
	}
	return p.applyCollision(env, e, shape)
}

// applyCollision sets body properties in a fixed order: mass, shape,
// damping, friction, restitution.
func (p *EntityPrefab) applyCollision(env *Environment, e ecs.Entity, shape physics.Shape) error {
	holder, err := ecs.GetOrAdd(env.World, e, physics.PhysicsComponent.Kind(), dynamicBody(env.Sim))
	if err != nil {
		return fmt.Errorf("entity: prefab %q: add physics: %w", p.name, err)
	}
	obj := holder.Object
	wrap := func(op string, err error) error {
		if err != nil {
			return fmt.Errorf("entity: prefab %q: %s: %w", p.name, op, err)
		}
		return nil
	}

	if m, ok := p.collision[prefabs.KeyMass]; ok {
		if err := wrap("set mass", obj.SetMass(m)); err != nil {
			return err
		}
	}
	if err := wrap("set shape", obj.SetCollisionShape(shape)); err != nil {
		return err
	}

	lin, hasLin := p.collision[prefabs.KeyLinearDamping]
	ang, hasAng := p.collision[prefabs.KeyAngularDamping]
	if hasLin || hasAng {
		if err := wrap("set damping", obj.SetDamping(lin, ang)); err != nil {
			return err
		}
	}

	if f, ok := p.collision[prefabs.KeyFriction]; ok {
		if err := wrap("set friction", obj.SetFriction(f)); err != nil {
			return err
		}
	}
	if r, ok := p.collision[prefabs.KeyRestitution]; ok {
		if env.Options.LegacyRestitutionAsMass {
			return wrap("set restitution", obj.SetMass(r))
		}
		return wrap("set restitution", obj.SetRestitution(r))
	}
	return nil
}

// Destroy removes e from the simulation and the world.
func Destroy(env *Environment, e ecs.Entity) {
	if env == nil || env.World == nil {
		return
	}
	env.World.DestroyEntity(e)
	if env.Sim != nil {
		env.Sim.Remove(e)
	}
}
