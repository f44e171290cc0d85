package physics

import (
	"math"

	"github.com/jakecoffman/cp"
)

// Penetration shallower than this is treated as touching.
const penetrationSlop = 1e-6

// CharacterController moves a kinematic ghost body by collide-and-slide. Each
// step it rises by the step height, walks, then drops back down by the step
// height plus the fall distance. Overlaps are resolved by pushing the ghost
// out along the deepest contact normal.
//
// All methods require the lock of the region the ghost lives in.
type CharacterController struct {
	ghost      *CollisionObject
	shape      Capsule
	stepHeight float64
	cfg        ControllerConfig

	walk             float64
	verticalVelocity float64
	onGround         bool
}

func newCharacterController(ghost *CollisionObject, shape Capsule, stepHeight float64, cfg ControllerConfig) *CharacterController {
	return &CharacterController{ghost: ghost, shape: shape, stepHeight: stepHeight, cfg: cfg}
}

func (c *CharacterController) Shape() Capsule            { return c.shape }
func (c *CharacterController) StepHeight() float64       { return c.stepHeight }
func (c *CharacterController) Position() cp.Vector       { return c.ghost.body.Position() }
func (c *CharacterController) OnGround() bool            { return c.onGround }
func (c *CharacterController) VerticalVelocity() float64 { return c.verticalVelocity }

// InterpolatedVelocity is the ghost's displacement over the last step, or the
// velocity hint if it was set since.
func (c *CharacterController) InterpolatedVelocity() cp.Vector {
	return c.ghost.body.Velocity()
}

// Warp moves the ghost to p without sweeping and stops any fall.
func (c *CharacterController) Warp(p cp.Vector) {
	c.ghost.body.SetPosition(p)
	c.ghost.body.SetVelocityVector(cp.Vector{})
	c.verticalVelocity = 0
	c.onGround = false
}

// SetVelocityHint sets the walk speed along X and the vertical speed.
func (c *CharacterController) SetVelocityHint(v cp.Vector) {
	c.walk = v.X
	c.verticalVelocity = v.Y
	c.ghost.body.SetVelocityVector(v)
}

// Jump launches the character upward if it stands on something.
func (c *CharacterController) Jump(speed float64) bool {
	if !c.onGround || speed <= 0 {
		return false
	}
	c.verticalVelocity = speed
	c.onGround = false
	return true
}

func (c *CharacterController) step(space *cp.Space, dt float64) {
	body := c.ghost.body
	start := body.Position()

	c.verticalVelocity += space.Gravity().Y * dt
	if c.verticalVelocity < -c.cfg.MaxFallSpeed {
		c.verticalVelocity = -c.cfg.MaxFallSpeed
	}

	var up float64
	if c.onGround {
		up = c.stepHeight
	}
	if c.verticalVelocity > 0 {
		up += c.verticalVelocity * dt
	}
	if up > 0 {
		if _, ceiling := c.moveBy(space, cp.Vector{Y: up}); ceiling && c.verticalVelocity > 0 {
			c.verticalVelocity = 0
		}
	}

	if c.walk != 0 {
		c.moveBy(space, cp.Vector{X: c.walk * dt})
	}

	var down float64
	if c.onGround {
		down = c.stepHeight
	}
	if c.verticalVelocity < 0 {
		down -= c.verticalVelocity * dt
	}
	ground := false
	if down > 0 {
		ground, _ = c.moveBy(space, cp.Vector{Y: -down})
	}
	c.onGround = ground
	if ground && c.verticalVelocity < 0 {
		c.verticalVelocity = 0
	}

	body.SetVelocityVector(body.Position().Sub(start).Mult(1 / dt))
}

// moveBy translates the ghost in slices no longer than half the capsule
// radius, resolving overlaps after each slice.
func (c *CharacterController) moveBy(space *cp.Space, delta cp.Vector) (ground, ceiling bool) {
	length := delta.Length()
	if length == 0 {
		return false, false
	}
	slices := int(math.Ceil(length / (c.shape.Radius / 2)))
	part := delta.Mult(1 / float64(slices))
	body := c.ghost.body
	for i := 0; i < slices; i++ {
		body.SetPosition(body.Position().Add(part))
		g, ce := c.recover(space)
		ground = ground || g
		ceiling = ceiling || ce
	}
	return ground, ceiling
}

func (c *CharacterController) recover(space *cp.Space) (ground, ceiling bool) {
	body := c.ghost.body
	for i := 0; i < c.cfg.MaxIterations; i++ {
		deepest := -penetrationSlop
		var normal cp.Vector
		for _, sh := range c.ghost.shapes {
			space.ShapeQuery(sh, func(other *cp.Shape, set *cp.ContactPointSet) {
				if !c.blocks(other) {
					return
				}
				for j := 0; j < set.Count; j++ {
					if d := set.Points[j].Distance; d < deepest {
						deepest = d
						normal = set.Normal
					}
				}
			})
		}
		if normal == (cp.Vector{}) {
			break
		}

		// The normal points from the ghost into the obstacle.
		body.SetPosition(body.Position().Add(normal.Mult(deepest)))
		push := normal.Neg()
		if push.Y >= c.cfg.MinGroundNormalY {
			ground = true
		}
		if push.Y <= -c.cfg.MinGroundNormalY {
			ceiling = true
		}
	}
	return ground, ceiling
}

func (c *CharacterController) blocks(other *cp.Shape) bool {
	return other.Body() != c.ghost.body && !other.Sensor()
}
