// pkg/physics/vector.go
package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Body-local axes. X is right, Y is up, Z is forward.
var (
	Right   = mgl64.Vec3{1, 0, 0}
	Up      = mgl64.Vec3{0, 1, 0}
	Forward = mgl64.Vec3{0, 0, 1}
	WorldUp = Up
)

// Vector2D represents a 2D vector in screen space
type Vector2D struct {
	X float64
	Y float64
}

// Add returns the sum of two vectors
func (v Vector2D) Add(other Vector2D) Vector2D {
	return Vector2D{X: v.X + other.X, Y: v.Y + other.Y}
}

// Sub returns the difference between two vectors
func (v Vector2D) Sub(other Vector2D) Vector2D {
	return Vector2D{X: v.X - other.X, Y: v.Y - other.Y}
}

// Scale multiplies the vector by a scalar value
func (v Vector2D) Scale(factor float64) Vector2D {
	return Vector2D{X: v.X * factor, Y: v.Y * factor}
}

// Length returns the magnitude of the vector
func (v Vector2D) Length() float64 {
	return math.Hypot(v.X, v.Y)
}

// ClampLength returns v shortened to at most maxLength.
func (v Vector2D) ClampLength(maxLength float64) Vector2D {
	length := v.Length()
	if length <= maxLength || length == 0 {
		return v
	}
	return v.Scale(maxLength / length)
}

// MoveTowards moves v toward target by at most maxStep.
// It lands exactly on target once the remaining distance is within maxStep.
func (v Vector2D) MoveTowards(target Vector2D, maxStep float64) Vector2D {
	delta := target.Sub(v)
	dist := delta.Length()
	if dist <= maxStep || dist == 0 {
		return target
	}
	return v.Add(delta.Scale(maxStep / dist))
}

// Distance returns the distance between two vectors
func (v Vector2D) Distance(other Vector2D) float64 {
	return v.Sub(other).Length()
}

// SafeNormalize returns v scaled to unit length, or fallback when v is
// too short to carry a direction.
func SafeNormalize(v, fallback mgl64.Vec3) mgl64.Vec3 {
	l := v.Len()
	if l < 1e-9 {
		return fallback
	}
	return v.Mul(1 / l)
}

// ProjectOnPlane removes the component of v along the unit normal n.
func ProjectOnPlane(v, n mgl64.Vec3) mgl64.Vec3 {
	return v.Sub(n.Mul(v.Dot(n)))
}

// SignedAngle returns the angle in radians from a to b measured around axis.
// a and b need not be normalized.
func SignedAngle(a, b, axis mgl64.Vec3) float64 {
	return math.Atan2(axis.Dot(a.Cross(b)), a.Dot(b))
}

// AngleBetween returns the unsigned angle in radians between a and b.
func AngleBetween(a, b mgl64.Vec3) float64 {
	la, lb := a.Len(), b.Len()
	if la == 0 || lb == 0 {
		return 0
	}
	return math.Acos(mgl64.Clamp(a.Dot(b)/(la*lb), -1, 1))
}

// RotateDirTowards turns the direction from toward to by the fraction t of
// the angle between them, rotating in the plane they span.
func RotateDirTowards(from, to mgl64.Vec3, t float64) mgl64.Vec3 {
	t = mgl64.Clamp(t, 0, 1)
	angle := AngleBetween(from, to)
	if angle < 1e-9 {
		return to
	}
	axis := from.Cross(to)
	if axis.Len() < 1e-9 {
		// antiparallel: any perpendicular axis is a shortest arc
		axis = from.Cross(Up)
		if axis.Len() < 1e-9 {
			axis = from.Cross(Right)
		}
	}
	return mgl64.QuatRotate(angle*t, axis.Normalize()).Rotate(from)
}
