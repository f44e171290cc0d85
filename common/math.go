package common

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jakecoffman/cp"
)

// The simulation runs in the XY plane of game space. Z is depth.
var planeNormal = mgl64.Vec3{0, 0, 1}

// ToPlane projects a game-space vector onto the simulation plane.
func ToPlane(v mgl64.Vec3) cp.Vector {
	return cp.Vector{X: v.X(), Y: v.Y()}
}

// FromPlane lifts a simulation vector back into game space at depth z.
func FromPlane(v cp.Vector, z float64) mgl64.Vec3 {
	return mgl64.Vec3{v.X, v.Y, z}
}

// PlaneAngle returns the rotation of q around the plane normal, in radians.
func PlaneAngle(q mgl64.Quat) float64 {
	if q.W == 0 && q.V.Len() == 0 {
		return 0
	}
	x := q.Normalize().Rotate(mgl64.Vec3{1, 0, 0})
	return math.Atan2(x.Y(), x.X())
}

// QuatFromPlaneAngle builds a rotation of angle radians around the plane normal.
func QuatFromPlaneAngle(angle float64) mgl64.Quat {
	return mgl64.QuatRotate(angle, planeNormal)
}

// AngularToPlane keeps only the spin around the plane normal.
func AngularToPlane(v mgl64.Vec3) float64 {
	return v.Z()
}

// AngularFromPlane lifts a planar spin into a game-space angular velocity.
func AngularFromPlane(w float64) mgl64.Vec3 {
	return mgl64.Vec3{0, 0, w}
}

func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func IsFiniteVec(v mgl64.Vec3) bool {
	return IsFinite(v.X()) && IsFinite(v.Y()) && IsFinite(v.Z())
}
