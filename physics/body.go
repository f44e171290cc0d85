package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jakecoffman/cp"

	"github.com/milk9111/rigidworld/common"
	"github.com/milk9111/rigidworld/ecs"
)

const defaultMass = 1

// DynamicBody is a fully simulated rigid body. It has no shape until one is
// set and takes no part in collisions before that.
type DynamicBody struct {
	objectCore

	// guarded by the region lock
	linearDamping  float64
	angularDamping float64
}

var _ Object = (*DynamicBody)(nil)

func NewDynamicBody(sim *Simulation) *DynamicBody {
	return &DynamicBody{objectCore: objectCore{sim: sim}}
}

func (b *DynamicBody) Supports(c Capability) bool {
	return dynamicCapabilities&c == c
}

func (b *DynamicBody) Detachable() bool { return true }

// OnAttached creates the body at the entity's transform and hands it to the
// simulation. If the entity already has a region the body joins that space
// immediately.
func (b *DynamicBody) OnAttached(w *ecs.World, e ecs.Entity) error {
	if b.sim == nil {
		return &StateError{Op: "attach dynamic body", Entity: e, Err: ErrNoSimulation}
	}
	if b.obj != nil {
		return &StateError{Op: "attach dynamic body", Entity: e, Err: ErrAlreadyAttached}
	}

	body := cp.NewBody(defaultMass, cp.INFINITY)
	body.SetVelocityUpdateFunc(b.integrateVelocity)
	obj := newCollisionObject(e, body)
	tr := transformOf(w, e)
	obj.setTransform(tr.Position, tr.Rotation)

	if err := b.sim.track(e, obj, nil); err != nil {
		return err
	}
	b.bind(b.sim, w, e, obj)
	return nil
}

func (b *DynamicBody) integrateVelocity(body *cp.Body, gravity cp.Vector, damping, dt float64) {
	cp.BodyUpdateVelocity(body, gravity, damping, dt)
	if b.linearDamping > 0 {
		body.SetVelocityVector(body.Velocity().Mult(math.Pow(1-b.linearDamping, dt)))
	}
	if b.angularDamping > 0 {
		body.SetAngularVelocity(body.AngularVelocity() * math.Pow(1-b.angularDamping, dt))
	}
}

func (b *DynamicBody) Mass() (float64, error) {
	var m float64
	err := b.locked("get mass", func(o *CollisionObject) error {
		m = o.body.Mass()
		return nil
	})
	return m, err
}

// SetMass changes the mass and rescales the moment of inertia for the
// current shape.
func (b *DynamicBody) SetMass(m float64) error {
	if !common.IsFinite(m) || m <= 0 {
		return invalidArgument("set mass", m)
	}
	return b.locked("set mass", func(o *CollisionObject) error {
		o.body.SetMass(m)
		if o.shape != nil {
			o.body.SetMoment(o.shape.moment(m, cp.Vector{}))
		}
		return nil
	})
}

func (b *DynamicBody) LinearDamping() (float64, error) {
	var d float64
	err := b.locked("get linear damping", func(*CollisionObject) error {
		d = b.linearDamping
		return nil
	})
	return d, err
}

func (b *DynamicBody) AngularDamping() (float64, error) {
	var d float64
	err := b.locked("get angular damping", func(*CollisionObject) error {
		d = b.angularDamping
		return nil
	})
	return d, err
}

// SetDamping sets the fraction of velocity lost per second.
func (b *DynamicBody) SetDamping(linear, angular float64) error {
	if !inUnit(linear) || !inUnit(angular) {
		return invalidArgument("set damping", linear, angular)
	}
	return b.locked("set damping", func(*CollisionObject) error {
		b.linearDamping, b.angularDamping = linear, angular
		return nil
	})
}

func inUnit(v float64) bool {
	return common.IsFinite(v) && v >= 0 && v <= 1
}

// SetCollisionShape rebuilds the body's shapes, keeping material and mass.
func (b *DynamicBody) SetCollisionShape(s Shape) error {
	if s == nil {
		return invalidArgument("set shape: nil")
	}
	return b.locked("set shape", func(o *CollisionObject) error {
		o.setShape(s)
		o.body.SetMoment(s.moment(o.body.Mass(), cp.Vector{}))
		return nil
	})
}

func (b *DynamicBody) LinearVelocity() (mgl64.Vec3, error) {
	var v mgl64.Vec3
	err := b.locked("get linear velocity", func(o *CollisionObject) error {
		v = common.FromPlane(o.body.Velocity(), 0)
		return nil
	})
	return v, err
}

func (b *DynamicBody) AngularVelocity() (mgl64.Vec3, error) {
	var v mgl64.Vec3
	err := b.locked("get angular velocity", func(o *CollisionObject) error {
		v = common.AngularFromPlane(o.body.AngularVelocity())
		return nil
	})
	return v, err
}

func (b *DynamicBody) SetLinearVelocity(v mgl64.Vec3) error {
	if !common.IsFiniteVec(v) {
		return invalidArgument("set linear velocity", v)
	}
	return b.locked("set linear velocity", func(o *CollisionObject) error {
		o.body.SetVelocityVector(common.ToPlane(v))
		return nil
	})
}

func (b *DynamicBody) SetAngularVelocity(v mgl64.Vec3) error {
	if !common.IsFiniteVec(v) {
		return invalidArgument("set angular velocity", v)
	}
	return b.locked("set angular velocity", func(o *CollisionObject) error {
		o.body.SetAngularVelocity(common.AngularToPlane(v))
		return nil
	})
}

func (b *DynamicBody) ApplyImpulse(impulse mgl64.Vec3) error {
	return b.ApplyImpulseAt(impulse, mgl64.Vec3{})
}

// ApplyImpulseAt applies impulse at relPos, an offset from the centre of
// mass in world orientation.
func (b *DynamicBody) ApplyImpulseAt(impulse, relPos mgl64.Vec3) error {
	if !common.IsFiniteVec(impulse) || !common.IsFiniteVec(relPos) {
		return invalidArgument("apply impulse", impulse, relPos)
	}
	return b.locked("apply impulse", func(o *CollisionObject) error {
		o.body.ApplyImpulseAtWorldPoint(common.ToPlane(impulse), centerOf(o.body).Add(common.ToPlane(relPos)))
		return nil
	})
}

func (b *DynamicBody) ApplyForce(force mgl64.Vec3) error {
	return b.ApplyForceAt(force, mgl64.Vec3{})
}

// ApplyForceAt accumulates force at relPos until the next step.
func (b *DynamicBody) ApplyForceAt(force, relPos mgl64.Vec3) error {
	if !common.IsFiniteVec(force) || !common.IsFiniteVec(relPos) {
		return invalidArgument("apply force", force, relPos)
	}
	return b.locked("apply force", func(o *CollisionObject) error {
		o.body.ApplyForceAtWorldPoint(common.ToPlane(force), centerOf(o.body).Add(common.ToPlane(relPos)))
		return nil
	})
}

func centerOf(body *cp.Body) cp.Vector {
	return body.LocalToWorld(body.CenterOfGravity())
}

func (b *DynamicBody) CopySnapshot() error {
	return b.locked("copy snapshot", func(o *CollisionObject) error {
		b.snap.store(Snapshot{
			Position:        o.Position(),
			Rotation:        o.Rotation(),
			LinearVelocity:  common.FromPlane(o.body.Velocity(), 0),
			AngularVelocity: common.AngularFromPlane(o.body.AngularVelocity()),
		})
		return nil
	})
}
