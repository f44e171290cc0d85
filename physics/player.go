package physics

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/jakecoffman/cp"

	"github.com/milk9111/rigidworld/common"
	"github.com/milk9111/rigidworld/ecs"
	"github.com/milk9111/rigidworld/ecs/component"
)

const (
	playerVariant = "player"

	playerShapeScale  = 1.2
	playerStepHeight  = 0.2
	playerNoMass      = "players have no mass"
	playerNoDamping   = "players have no damping"
	playerKinematic   = "players are moved by their character controller"
	playerFixedShapes = "the player shape is fixed at attach time"
)

// PlayerController is the physics of the local player: a kinematic ghost
// moved by a CharacterController. Once attached it cannot be removed.
type PlayerController struct {
	objectCore
	controller *CharacterController
}

var _ Object = (*PlayerController)(nil)

// TeleportEvent is the payload of ecs.EventTeleported.
type TeleportEvent struct {
	Entity   ecs.Entity
	Position mgl64.Vec3
}

func NewPlayerController(sim *Simulation) *PlayerController {
	return &PlayerController{objectCore: objectCore{sim: sim}}
}

func (p *PlayerController) Supports(c Capability) bool {
	return playerCapabilities&c == c
}

func (p *PlayerController) Detachable() bool { return false }

// OnAttached sizes the capsule from the entity's scale, places the ghost at
// its transform, and ensures the entity is network synced.
func (p *PlayerController) OnAttached(w *ecs.World, e ecs.Entity) error {
	const op = "attach player controller"
	if p.sim == nil {
		return &StateError{Op: op, Entity: e, Err: ErrNoSimulation}
	}
	if p.obj != nil {
		return &StateError{Op: op, Entity: e, Err: ErrAlreadyAttached}
	}
	if !ecs.Has(w, e, component.PlayerTagComponent.Kind()) {
		return &StateError{Op: op, Entity: e, Err: ErrNotPlayer}
	}

	tr := transformOf(w, e)
	height := tr.Scale.Y() * playerShapeScale
	width := tr.Scale.Z() * playerShapeScale
	shape, err := NewCapsule(width/2, height)
	if err != nil {
		return &StateError{Op: op, Entity: e, Err: err}
	}

	body := cp.NewKinematicBody()
	body.SetPositionUpdateFunc(func(*cp.Body, float64) {})
	obj := newCollisionObject(e, body)
	obj.setTransform(tr.Position, tr.Rotation)
	obj.setShape(shape)
	ctrl := newCharacterController(obj, shape, playerStepHeight*height, p.sim.cfg.Controller)

	if _, err := ecs.GetOrAdd(w, e, component.NetworkSyncComponent.Kind(), component.NewNetworkSync); err != nil {
		return err
	}
	if err := p.sim.track(e, obj, ctrl); err != nil {
		return err
	}
	p.controller = ctrl
	p.bind(p.sim, w, e, obj)
	return nil
}

// Controller returns the character controller, nil before attachment.
func (p *PlayerController) Controller() *CharacterController { return p.controller }

func (p *PlayerController) unsupported(op, reason string) error {
	return &UnsupportedError{Variant: playerVariant, Op: op, Reason: reason}
}

func (p *PlayerController) Mass() (float64, error) {
	return 0, p.unsupported("get mass", playerNoMass)
}

func (p *PlayerController) SetMass(float64) error {
	return p.unsupported("set mass", playerNoMass)
}

func (p *PlayerController) LinearDamping() (float64, error) {
	return 0, p.unsupported("get linear damping", playerNoDamping)
}

func (p *PlayerController) AngularDamping() (float64, error) {
	return 0, p.unsupported("get angular damping", playerNoDamping)
}

func (p *PlayerController) SetDamping(float64, float64) error {
	return p.unsupported("set damping", playerNoDamping)
}

func (p *PlayerController) SetCollisionShape(Shape) error {
	return p.unsupported("set shape", playerFixedShapes)
}

func (p *PlayerController) ApplyImpulse(mgl64.Vec3) error {
	return p.unsupported("apply impulse", playerKinematic)
}

func (p *PlayerController) ApplyImpulseAt(mgl64.Vec3, mgl64.Vec3) error {
	return p.unsupported("apply impulse", playerKinematic)
}

func (p *PlayerController) ApplyForce(mgl64.Vec3) error {
	return p.unsupported("apply force", playerKinematic)
}

func (p *PlayerController) ApplyForceAt(mgl64.Vec3, mgl64.Vec3) error {
	return p.unsupported("apply force", playerKinematic)
}

// LinearVelocity reads the ghost's interpolated velocity.
func (p *PlayerController) LinearVelocity() (mgl64.Vec3, error) {
	var v mgl64.Vec3
	err := p.locked("get linear velocity", func(*CollisionObject) error {
		v = common.FromPlane(p.controller.InterpolatedVelocity(), 0)
		return nil
	})
	return v, err
}

func (p *PlayerController) AngularVelocity() (mgl64.Vec3, error) {
	var v mgl64.Vec3
	err := p.locked("get angular velocity", func(o *CollisionObject) error {
		v = common.AngularFromPlane(o.body.AngularVelocity())
		return nil
	})
	return v, err
}

// SetLinearVelocity hands the controller a walk and vertical speed for the
// following steps.
func (p *PlayerController) SetLinearVelocity(v mgl64.Vec3) error {
	if !common.IsFiniteVec(v) {
		return invalidArgument("set linear velocity", v)
	}
	return p.locked("set linear velocity", func(*CollisionObject) error {
		p.controller.SetVelocityHint(common.ToPlane(v))
		return nil
	})
}

// SetAngularVelocity stores a spin hint on the ghost. The ghost does not
// integrate it.
func (p *PlayerController) SetAngularVelocity(v mgl64.Vec3) error {
	if !common.IsFiniteVec(v) {
		return invalidArgument("set angular velocity", v)
	}
	return p.locked("set angular velocity", func(o *CollisionObject) error {
		o.body.SetAngularVelocity(common.AngularToPlane(v))
		return nil
	})
}

func (p *PlayerController) Jump(speed float64) (bool, error) {
	var jumped bool
	err := p.locked("jump", func(*CollisionObject) error {
		jumped = p.controller.Jump(speed)
		return nil
	})
	return jumped, err
}

func (p *PlayerController) OnGround() (bool, error) {
	var ground bool
	err := p.locked("on ground", func(*CollisionObject) error {
		ground = p.controller.OnGround()
		return nil
	})
	return ground, err
}

// Teleport warps the player to pos. The transform follows, the entity moves
// to the region containing pos, and the network position is flagged dirty.
func (p *PlayerController) Teleport(pos mgl64.Vec3) error {
	if !common.IsFiniteVec(pos) {
		return invalidArgument("teleport", pos)
	}
	err := p.locked("teleport", func(o *CollisionObject) error {
		p.controller.Warp(common.ToPlane(pos))
		o.depth = pos.Z()
		return nil
	})
	if err != nil {
		return err
	}

	if tr, ok := ecs.Get(p.world, p.owner, component.TransformComponent.Kind()); ok {
		tr.Position = pos
	}
	if _, err := p.sim.Place(p.owner, pos); err != nil {
		return err
	}
	if ns, ok := ecs.Get(p.world, p.owner, component.NetworkSyncComponent.Kind()); ok {
		ns.SetPositionDirty()
	}
	p.world.Events().Push(ecs.Event{
		Type: ecs.EventTeleported,
		Data: TeleportEvent{Entity: p.owner, Position: pos},
	})
	return nil
}

// TeleportTransform teleports to the position of t.
func (p *PlayerController) TeleportTransform(t component.Transform) error {
	return p.Teleport(t.Position)
}

func (p *PlayerController) CopySnapshot() error {
	return p.locked("copy snapshot", func(o *CollisionObject) error {
		p.snap.store(Snapshot{
			Position:        o.Position(),
			Rotation:        o.Rotation(),
			LinearVelocity:  common.FromPlane(p.controller.InterpolatedVelocity(), 0),
			AngularVelocity: common.AngularFromPlane(o.body.AngularVelocity()),
		})
		return nil
	})
}
