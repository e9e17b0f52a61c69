package xform

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// DefaultTolerance is the element-wise tolerance under which two matrices
// are treated as the same pose.
const DefaultTolerance = 1e-5

// minScale guards against axes that cannot yield a rotation basis.
const minScale = 1e-12

// ErrDegenerate reports a matrix with a collapsed axis, which has no
// recoverable rotation.
var ErrDegenerate = errors.New("degenerate transform: zero scale axis")

// Components is a transform split into translation, unit-quaternion rotation
// and per-axis scale. The matrix it describes is T * R * S.
type Components struct {
	Translation mgl64.Vec3
	Rotation    mgl64.Quat
	Scale       mgl64.Vec3
}

// Identity returns the components of the identity transform.
func Identity() Components {
	return Components{Rotation: mgl64.QuatIdent(), Scale: mgl64.Vec3{1, 1, 1}}
}

// Decompose splits m into translation, rotation and scale. Shear is not
// representable and is discarded. A reflected basis is folded into a
// negative X scale so the rotation stays proper.
func Decompose(m mgl64.Mat4) (Components, error) {
	var c Components
	c.Translation = m.Col(3).Vec3()

	axes := [3]mgl64.Vec3{m.Col(0).Vec3(), m.Col(1).Vec3(), m.Col(2).Vec3()}
	for i, axis := range axes {
		c.Scale[i] = axis.Len()
		if c.Scale[i] < minScale {
			return Components{}, ErrDegenerate
		}
	}
	if m.Mat3().Det() < 0 {
		c.Scale[0] = -c.Scale[0]
	}

	basis := mgl64.Ident4()
	for i, axis := range axes {
		unit := axis.Mul(1 / c.Scale[i])
		basis.SetCol(i, unit.Vec4(0))
	}
	c.Rotation = mgl64.Mat4ToQuat(basis).Normalize()
	return c, nil
}

// Matrix recomposes the components into a single transform.
func (c Components) Matrix() mgl64.Mat4 {
	t := mgl64.Translate3D(c.Translation.X(), c.Translation.Y(), c.Translation.Z())
	r := c.Rotation.Normalize().Mat4()
	s := mgl64.Scale3D(c.Scale.X(), c.Scale.Y(), c.Scale.Z())
	return t.Mul4(r).Mul4(s)
}

// Slerp interpolates between two rotations along the shortest arc. When the
// quaternions lie in opposite hemispheres b is negated first; both signs
// describe the same orientation but only one gives the short path.
func Slerp(a, b mgl64.Quat, t float64) mgl64.Quat {
	a, b = a.Normalize(), b.Normalize()
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl64.QuatSlerp(a, b, t).Normalize()
}

// Lerp3 interpolates two vectors component-wise as a*(1-t) + b*t.
func Lerp3(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	return a.Mul(1 - t).Add(b.Mul(t))
}

// Interpolate blends every component: linear for translation and scale,
// spherical for rotation.
func Interpolate(a, b Components, t float64) Components {
	return Components{
		Translation: Lerp3(a.Translation, b.Translation, t),
		Rotation:    Slerp(a.Rotation, b.Rotation, t),
		Scale:       Lerp3(a.Scale, b.Scale, t),
	}
}

// Clamp01 limits t to the closed unit interval. NaN clamps to 0.
func Clamp01(t float64) float64 {
	switch {
	case math.IsNaN(t), t <= 0:
		return 0
	case t >= 1:
		return 1
	default:
		return t
	}
}

// Blend returns the transform a fraction t of the way from a to b. The end
// points return a and b unchanged rather than a recomposed approximation.
func Blend(a, b mgl64.Mat4, t float64) (mgl64.Mat4, error) {
	t = Clamp01(t)
	switch t {
	case 0:
		return a, nil
	case 1:
		return b, nil
	}

	ca, err := Decompose(a)
	if err != nil {
		return mgl64.Mat4{}, err
	}
	cb, err := Decompose(b)
	if err != nil {
		return mgl64.Mat4{}, err
	}
	return Interpolate(ca, cb, t).Matrix(), nil
}

// Equivalent reports whether every element of a and b agrees within tol,
// either absolutely or relative to the larger magnitude.
func Equivalent(a, b mgl64.Mat4, tol float64) bool {
	for i := range a {
		diff := math.Abs(a[i] - b[i])
		if diff <= tol {
			continue
		}
		scale := math.Max(math.Abs(a[i]), math.Abs(b[i]))
		if diff <= tol*scale {
			continue
		}
		return false
	}
	return true
}
