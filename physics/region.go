package physics

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jakecoffman/cp"

	"github.com/milk9111/rigidworld/common"
)

// RegionKey addresses one cell of the region grid.
type RegionKey struct {
	X, Y, Z int
}

// KeyFor returns the key of the cell of side size containing pos.
func KeyFor(pos mgl64.Vec3, size float64) RegionKey {
	return RegionKey{
		X: int(math.Floor(pos.X() / size)),
		Y: int(math.Floor(pos.Y() / size)),
		Z: int(math.Floor(pos.Z() / size)),
	}
}

func (k RegionKey) String() string {
	return fmt.Sprintf("(%d,%d,%d)", k.X, k.Y, k.Z)
}

func (k RegionKey) less(o RegionKey) bool {
	if k.X != o.X {
		return k.X < o.X
	}
	if k.Y != o.Y {
		return k.Y < o.Y
	}
	return k.Z < o.Z
}

func compareKeys(a, b RegionKey) int {
	switch {
	case a.less(b):
		return -1
	case b.less(a):
		return 1
	}
	return 0
}

// Region owns one simulation space and the lock guarding it. Every read or
// write of a body in the space happens with mu held.
type Region struct {
	key  RegionKey
	size float64

	mu          sync.Mutex
	space       *cp.Space
	controllers []*CharacterController
	ticks       uint64
}

func newRegion(key RegionKey, cfg Config) *Region {
	space := cp.NewSpace()
	space.Iterations = uint(cfg.Iterations)
	space.SetGravity(common.ToPlane(cfg.Gravity))
	space.SetDamping(cfg.Damping)

	r := &Region{key: key, size: cfg.RegionSize, space: space}
	if cfg.FloorY != nil {
		r.addFloor(*cfg.FloorY)
	}
	return r
}

func (r *Region) Key() RegionKey { return r.key }

// Bounds is the planar extent of the region.
func (r *Region) Bounds() cp.BB {
	return cp.BB{
		L: float64(r.key.X) * r.size,
		B: float64(r.key.Y) * r.size,
		R: float64(r.key.X+1) * r.size,
		T: float64(r.key.Y+1) * r.size,
	}
}

// Do runs fn with the region locked. The lock is released on every path out
// of fn, panics included.
func (r *Region) Do(fn func(space *cp.Space) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(r.space)
}

// Ticks reports how many times the region has been stepped.
func (r *Region) Ticks() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ticks
}

// AddStaticBox adds fixed level geometry centred at center.
func (r *Region) AddStaticBox(center, halfExtents mgl64.Vec3) error {
	if !common.IsFiniteVec(center) || halfExtents.X() <= 0 || halfExtents.Y() <= 0 {
		return fmt.Errorf("%w: static box at %v with half extents %v", ErrInvalidArgument, center, halfExtents)
	}
	return r.Do(func(space *cp.Space) error {
		bb := cp.NewBBForExtents(common.ToPlane(center), halfExtents.X(), halfExtents.Y())
		addStatic(space, bb)
		return nil
	})
}

func (r *Region) addFloor(y float64) {
	b := r.Bounds()
	if y < b.B || y >= b.T {
		return
	}
	addStatic(r.space, cp.BB{L: b.L, B: y - 1, R: b.R, T: y})
	log.Printf("Region %s: floor at y=%.2f", r.key, y)
}

func addStatic(space *cp.Space, bb cp.BB) {
	shape := space.AddShape(cp.NewBox2(space.StaticBody, bb, 0))
	shape.SetFriction(0.8)
	shape.SetElasticity(0)
}

// insert and remove require mu.
func (r *Region) insert(obj *CollisionObject, ctrl *CharacterController) {
	obj.addTo(r.space)
	if ctrl != nil {
		r.controllers = append(r.controllers, ctrl)
	}
}

func (r *Region) remove(obj *CollisionObject, ctrl *CharacterController) {
	obj.removeFromSpace()
	if ctrl == nil {
		return
	}
	for i, c := range r.controllers {
		if c == ctrl {
			r.controllers = append(r.controllers[:i], r.controllers[i+1:]...)
			break
		}
	}
}

func (r *Region) step(ctx context.Context, dt float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.controllers {
		c.step(r.space, dt)
	}
	r.space.Step(dt)
	r.ticks++
	return nil
}
