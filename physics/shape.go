package physics

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jakecoffman/cp"

	"github.com/milk9111/rigidworld/common"
)

// Shape describes collision geometry independently of any body. A Shape is
// turned into cp shapes when it is bound to a collision object.
type Shape interface {
	Kind() string
	Dimensions() []float64

	build(body *cp.Body, offset cp.Vector) []*cp.Shape
	moment(mass float64, offset cp.Vector) float64
	area() float64
}

type Sphere struct {
	Radius float64
}

func NewSphere(radius float64) (Sphere, error) {
	if err := checkDimension("sphere", "radius", radius); err != nil {
		return Sphere{}, err
	}
	return Sphere{Radius: radius}, nil
}

func (Sphere) Kind() string            { return "sphere" }
func (s Sphere) Dimensions() []float64 { return []float64{s.Radius} }

func (s Sphere) build(body *cp.Body, offset cp.Vector) []*cp.Shape {
	return []*cp.Shape{cp.NewCircle(body, s.Radius, offset)}
}

func (s Sphere) moment(mass float64, offset cp.Vector) float64 {
	return cp.MomentForCircle(mass, 0, s.Radius, offset)
}

func (s Sphere) area() float64 { return math.Pi * s.Radius * s.Radius }

// Box is an axis aligned box given by its half extents. The Z extent is kept
// for the game side and does not reach the simulation.
type Box struct {
	HalfExtents mgl64.Vec3
}

// NewBox builds a box from two or three half extents. With two, the depth
// matches the X extent.
func NewBox(halfExtents ...float64) (Box, error) {
	switch len(halfExtents) {
	case 2:
		halfExtents = append(halfExtents, halfExtents[0])
	case 3:
	default:
		return Box{}, fmt.Errorf("%w: box takes 2 or 3 half extents, got %d", ErrInvalidArgument, len(halfExtents))
	}
	for i, name := range []string{"x", "y", "z"} {
		if err := checkDimension("box", name, halfExtents[i]); err != nil {
			return Box{}, err
		}
	}
	return Box{HalfExtents: mgl64.Vec3{halfExtents[0], halfExtents[1], halfExtents[2]}}, nil
}

func (Box) Kind() string { return "box" }

func (b Box) Dimensions() []float64 {
	return []float64{b.HalfExtents.X(), b.HalfExtents.Y(), b.HalfExtents.Z()}
}

func (b Box) bb(offset cp.Vector) cp.BB {
	return cp.NewBBForExtents(offset, b.HalfExtents.X(), b.HalfExtents.Y())
}

func (b Box) build(body *cp.Body, offset cp.Vector) []*cp.Shape {
	return []*cp.Shape{cp.NewBox2(body, b.bb(offset), 0)}
}

func (b Box) moment(mass float64, offset cp.Vector) float64 {
	return cp.MomentForBox2(mass, b.bb(offset))
}

func (b Box) area() float64 { return 4 * b.HalfExtents.X() * b.HalfExtents.Y() }

// Capsule is upright along Y. Height is the distance between the centres of
// the two end caps.
type Capsule struct {
	Radius float64
	Height float64
}

func NewCapsule(radius, height float64) (Capsule, error) {
	if err := checkDimension("capsule", "radius", radius); err != nil {
		return Capsule{}, err
	}
	if err := checkDimension("capsule", "height", height); err != nil {
		return Capsule{}, err
	}
	return Capsule{Radius: radius, Height: height}, nil
}

func (Capsule) Kind() string            { return "capsule" }
func (c Capsule) Dimensions() []float64 { return []float64{c.Radius, c.Height} }

func (c Capsule) ends(offset cp.Vector) (cp.Vector, cp.Vector) {
	half := cp.Vector{X: 0, Y: c.Height / 2}
	return offset.Sub(half), offset.Add(half)
}

func (c Capsule) build(body *cp.Body, offset cp.Vector) []*cp.Shape {
	a, b := c.ends(offset)
	return []*cp.Shape{cp.NewSegment(body, a, b, c.Radius)}
}

func (c Capsule) moment(mass float64, offset cp.Vector) float64 {
	a, b := c.ends(offset)
	return cp.MomentForSegment(mass, a, b, c.Radius)
}

func (c Capsule) area() float64 {
	return 2*c.Radius*c.Height + math.Pi*c.Radius*c.Radius
}

// TotalHeight is the full extent of the capsule including both caps.
func (c Capsule) TotalHeight() float64 { return c.Height + 2*c.Radius }

// Cylinder is upright along Y; its planar cross section is a rectangle.
type Cylinder struct {
	Radius float64
	Height float64
}

func NewCylinder(radius, height float64) (Cylinder, error) {
	if err := checkDimension("cylinder", "radius", radius); err != nil {
		return Cylinder{}, err
	}
	if err := checkDimension("cylinder", "height", height); err != nil {
		return Cylinder{}, err
	}
	return Cylinder{Radius: radius, Height: height}, nil
}

func (Cylinder) Kind() string            { return "cylinder" }
func (c Cylinder) Dimensions() []float64 { return []float64{c.Radius, c.Height} }

func (c Cylinder) bb(offset cp.Vector) cp.BB {
	return cp.NewBBForExtents(offset, c.Radius, c.Height/2)
}

func (c Cylinder) build(body *cp.Body, offset cp.Vector) []*cp.Shape {
	return []*cp.Shape{cp.NewBox2(body, c.bb(offset), 0)}
}

func (c Cylinder) moment(mass float64, offset cp.Vector) float64 {
	return cp.MomentForBox2(mass, c.bb(offset))
}

func (c Cylinder) area() float64 { return 2 * c.Radius * c.Height }

type ChildShape struct {
	Offset mgl64.Vec3
	Shape  Shape
}

// Compound groups child shapes at fixed offsets from the body origin. Mass is
// spread over the children in proportion to their area.
type Compound struct {
	Children []ChildShape
}

func NewCompound(children ...ChildShape) (Compound, error) {
	if len(children) == 0 {
		return Compound{}, fmt.Errorf("%w: compound needs at least one child", ErrInvalidArgument)
	}
	for i, c := range children {
		if c.Shape == nil {
			return Compound{}, fmt.Errorf("%w: compound child %d has no shape", ErrInvalidArgument, i)
		}
		if !common.IsFiniteVec(c.Offset) {
			return Compound{}, fmt.Errorf("%w: compound child %d offset %v", ErrInvalidArgument, i, c.Offset)
		}
	}
	return Compound{Children: append([]ChildShape(nil), children...)}, nil
}

func (Compound) Kind() string { return "compound" }

func (c Compound) Dimensions() []float64 { return nil }

func (c Compound) build(body *cp.Body, offset cp.Vector) []*cp.Shape {
	var out []*cp.Shape
	for _, child := range c.Children {
		out = append(out, child.Shape.build(body, offset.Add(common.ToPlane(child.Offset)))...)
	}
	return out
}

func (c Compound) moment(mass float64, offset cp.Vector) float64 {
	total := c.area()
	if total <= 0 {
		return cp.INFINITY
	}
	var m float64
	for _, child := range c.Children {
		share := mass * child.Shape.area() / total
		m += child.Shape.moment(share, offset.Add(common.ToPlane(child.Offset)))
	}
	return m
}

func (c Compound) area() float64 {
	var a float64
	for _, child := range c.Children {
		a += child.Shape.area()
	}
	return a
}

func checkDimension(kind, name string, v float64) error {
	if !common.IsFinite(v) || v <= 0 {
		return fmt.Errorf("%w: %s %s must be positive and finite, got %v", ErrInvalidArgument, kind, name, v)
	}
	return nil
}
