package physics

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jakecoffman/cp"

	"github.com/milk9111/rigidworld/common"
	"github.com/milk9111/rigidworld/ecs"
	"github.com/milk9111/rigidworld/ecs/component"
)

// Capability is one optional operation of Object.
type Capability uint16

const (
	CapMass Capability = 1 << iota
	CapDamping
	CapShapeReplace
	CapImpulse
	CapForce
	CapMaterial
	CapVelocity
	CapTeleport
)

const (
	dynamicCapabilities = CapMass | CapDamping | CapShapeReplace | CapImpulse | CapForce | CapMaterial | CapVelocity
	playerCapabilities  = CapMaterial | CapVelocity | CapTeleport
)

// Object is the physics side of an entity. Each call that touches the
// simulation takes the lock of the entity's region for that call only and
// fails with ErrIllegalState when the entity is in no region. Operations a
// variant lacks fail with ErrUnsupported.
type Object interface {
	ecs.Attacher
	ecs.Detacher
	ecs.Detachable

	Supports(c Capability) bool

	Mass() (float64, error)
	SetMass(m float64) error
	LinearDamping() (float64, error)
	AngularDamping() (float64, error)
	SetDamping(linear, angular float64) error

	Friction() (float64, error)
	SetFriction(f float64) error
	Restitution() (float64, error)
	SetRestitution(r float64) error

	CollisionShape() (Shape, error)
	SetCollisionShape(s Shape) error

	LinearVelocity() (mgl64.Vec3, error)
	AngularVelocity() (mgl64.Vec3, error)
	SetLinearVelocity(v mgl64.Vec3) error
	SetAngularVelocity(v mgl64.Vec3) error

	ApplyImpulse(impulse mgl64.Vec3) error
	ApplyImpulseAt(impulse, relPos mgl64.Vec3) error
	ApplyForce(force mgl64.Vec3) error
	ApplyForceAt(force, relPos mgl64.Vec3) error

	// CopySnapshot refreshes the game-thread copy of the simulated state.
	CopySnapshot() error
	Snapshot() Snapshot
	IsVelocityDirty() bool

	CollisionObject() *CollisionObject
}

// Physics is the ECS component holding an entity's Object.
type Physics struct {
	Object
}

var PhysicsComponent = component.NewComponent[Physics]()

// Attach adds obj as the physics component of e.
func Attach(w *ecs.World, e ecs.Entity, obj Object) error {
	if obj == nil {
		return ErrInvalidArgument
	}
	return ecs.Add(w, e, PhysicsComponent.Kind(), &Physics{Object: obj})
}

// ObjectOf returns the physics object of e, if any.
func ObjectOf(w *ecs.World, e ecs.Entity) (Object, bool) {
	p, ok := ecs.Get(w, e, PhysicsComponent.Kind())
	if !ok || p.Object == nil {
		return nil, false
	}
	return p.Object, true
}

// Snapshot is the state last copied out of the simulation.
type Snapshot struct {
	Position        mgl64.Vec3
	Rotation        mgl64.Quat
	LinearVelocity  mgl64.Vec3
	AngularVelocity mgl64.Vec3
}

type snapshotCache struct {
	mu    sync.RWMutex
	snap  Snapshot
	dirty bool
}

func (c *snapshotCache) store(s Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty = s.LinearVelocity != c.snap.LinearVelocity || s.AngularVelocity != c.snap.AngularVelocity
	c.snap = s
}

func (c *snapshotCache) load() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

func (c *snapshotCache) isDirty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dirty
}

// CollisionObject is a simulation body together with the shapes built from
// its Shape and the material applied to them. Its fields are guarded by the
// lock of the region the owning entity belongs to.
type CollisionObject struct {
	owner ecs.Entity
	body  *cp.Body
	depth float64

	shape  Shape
	shapes []*cp.Shape
	space  *cp.Space

	friction    float64
	restitution float64
}

func newCollisionObject(owner ecs.Entity, body *cp.Body) *CollisionObject {
	o := &CollisionObject{owner: owner, body: body, friction: 0.5}
	body.UserData = o
	return o
}

func (o *CollisionObject) Owner() ecs.Entity { return o.owner }
func (o *CollisionObject) Body() *cp.Body    { return o.body }

// Space is the space the object currently lives in, or nil.
func (o *CollisionObject) Space() *cp.Space { return o.space }
func (o *CollisionObject) Shapes() []*cp.Shape {
	return o.shapes
}

func (o *CollisionObject) Position() mgl64.Vec3 {
	return common.FromPlane(o.body.Position(), o.depth)
}

func (o *CollisionObject) Rotation() mgl64.Quat {
	return common.QuatFromPlaneAngle(o.body.Angle())
}

func (o *CollisionObject) setTransform(pos mgl64.Vec3, rot mgl64.Quat) {
	o.depth = pos.Z()
	o.body.SetPosition(common.ToPlane(pos))
	o.body.SetAngle(common.PlaneAngle(rot))
}

func (o *CollisionObject) setShape(s Shape) {
	space := o.space
	for _, sh := range o.shapes {
		if space != nil {
			space.RemoveShape(sh)
		}
	}
	o.shape = s
	o.shapes = s.build(o.body, cp.Vector{})
	for _, sh := range o.shapes {
		o.applyMaterial(sh)
		if space != nil {
			space.AddShape(sh)
		}
	}
}

func (o *CollisionObject) applyMaterial(sh *cp.Shape) {
	sh.SetFriction(o.friction)
	sh.SetElasticity(o.restitution)
	sh.UserData = o
}

func (o *CollisionObject) setFriction(f float64) {
	o.friction = f
	for _, sh := range o.shapes {
		sh.SetFriction(f)
	}
}

func (o *CollisionObject) setRestitution(r float64) {
	o.restitution = r
	for _, sh := range o.shapes {
		sh.SetElasticity(r)
	}
}

func (o *CollisionObject) addTo(space *cp.Space) {
	if o.space == space {
		return
	}
	o.removeFromSpace()
	space.AddBody(o.body)
	for _, sh := range o.shapes {
		space.AddShape(sh)
	}
	o.space = space
}

func (o *CollisionObject) removeFromSpace() {
	if o.space == nil {
		return
	}
	for _, sh := range o.shapes {
		o.space.RemoveShape(sh)
	}
	o.space.RemoveBody(o.body)
	o.space = nil
}

// objectCore is the state and behaviour shared by every Object variant.
type objectCore struct {
	sim   *Simulation
	world *ecs.World
	owner ecs.Entity
	obj   *CollisionObject
	snap  snapshotCache
}

func (c *objectCore) locked(op string, fn func(o *CollisionObject) error) error {
	if c.obj == nil {
		return &StateError{Op: op, Entity: c.owner, Err: ErrNotAttached}
	}
	return c.sim.WithRegion(c.owner, op, func(*Region) error {
		return fn(c.obj)
	})
}

func (c *objectCore) Friction() (float64, error) {
	var f float64
	err := c.locked("get friction", func(o *CollisionObject) error {
		f = o.friction
		return nil
	})
	return f, err
}

func (c *objectCore) SetFriction(f float64) error {
	if !common.IsFinite(f) || f < 0 {
		return invalidArgument("set friction", f)
	}
	return c.locked("set friction", func(o *CollisionObject) error {
		o.setFriction(f)
		return nil
	})
}

func (c *objectCore) Restitution() (float64, error) {
	var r float64
	err := c.locked("get restitution", func(o *CollisionObject) error {
		r = o.restitution
		return nil
	})
	return r, err
}

func (c *objectCore) SetRestitution(r float64) error {
	if !common.IsFinite(r) || r < 0 {
		return invalidArgument("set restitution", r)
	}
	return c.locked("set restitution", func(o *CollisionObject) error {
		o.setRestitution(r)
		return nil
	})
}

// CollisionShape returns the shape last set, nil if none was.
func (c *objectCore) CollisionShape() (Shape, error) {
	var s Shape
	err := c.locked("get shape", func(o *CollisionObject) error {
		s = o.shape
		return nil
	})
	return s, err
}

func (c *objectCore) CollisionObject() *CollisionObject { return c.obj }

func (c *objectCore) Snapshot() Snapshot { return c.snap.load() }

func (c *objectCore) IsVelocityDirty() bool { return c.snap.isDirty() }

func (c *objectCore) OnDetached(_ *ecs.World, e ecs.Entity) {
	if c.obj == nil || c.sim == nil {
		return
	}
	c.sim.untrack(e, c.obj)
}

func (c *objectCore) bind(sim *Simulation, w *ecs.World, e ecs.Entity, obj *CollisionObject) {
	c.sim, c.world, c.owner, c.obj = sim, w, e, obj
}

func transformOf(w *ecs.World, e ecs.Entity) component.Transform {
	if tr, ok := ecs.Get(w, e, component.TransformComponent.Kind()); ok {
		return *tr
	}
	return component.NewTransform(mgl64.Vec3{})
}
