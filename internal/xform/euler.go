package xform

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// EulerXYZ returns the rotation as X, Y, Z angles in degrees for the xyz
// rotation order, where X is applied first (R = Rz * Ry * Rx).
func EulerXYZ(q mgl64.Quat) mgl64.Vec3 {
	m := q.Normalize().Mat4()
	sy := -m.At(2, 0)
	if sy > 1 {
		sy = 1
	} else if sy < -1 {
		sy = -1
	}
	y := math.Asin(sy)

	var x, z float64
	if math.Abs(sy) < 1-1e-12 {
		x = math.Atan2(m.At(2, 1), m.At(2, 2))
		z = math.Atan2(m.At(1, 0), m.At(0, 0))
	} else {
		// Gimbal lock: fold the whole roll into X.
		x = math.Atan2(-m.At(1, 2), m.At(1, 1))
		z = 0
	}
	return mgl64.Vec3{mgl64.RadToDeg(x), mgl64.RadToDeg(y), mgl64.RadToDeg(z)}
}

// QuatFromEulerXYZ is the inverse of EulerXYZ.
func QuatFromEulerXYZ(deg mgl64.Vec3) mgl64.Quat {
	qx := mgl64.QuatRotate(mgl64.DegToRad(deg.X()), mgl64.Vec3{1, 0, 0})
	qy := mgl64.QuatRotate(mgl64.DegToRad(deg.Y()), mgl64.Vec3{0, 1, 0})
	qz := mgl64.QuatRotate(mgl64.DegToRad(deg.Z()), mgl64.Vec3{0, 0, 1})
	return qz.Mul(qy).Mul(qx).Normalize()
}
