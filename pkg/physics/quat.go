package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// LookRotation returns the orientation whose forward axis points along
// forward and whose up axis is as close to upHint as possible.
func LookRotation(forward, upHint mgl64.Vec3) mgl64.Quat {
	f := SafeNormalize(forward, Forward)
	r := upHint.Cross(f)
	if r.Len() < 1e-6 {
		// up hint parallel to forward: borrow another reference axis
		r = WorldUp.Cross(f)
		if r.Len() < 1e-6 {
			r = Right
		}
	}
	r = r.Normalize()
	u := f.Cross(r)

	// column-major: columns are the body axes expressed in world space
	m := mgl64.Mat4{
		r.X(), r.Y(), r.Z(), 0,
		u.X(), u.Y(), u.Z(), 0,
		f.X(), f.Y(), f.Z(), 0,
		0, 0, 0, 1,
	}
	return mgl64.Mat4ToQuat(m).Normalize()
}

// QuatAngle returns the shortest-arc angle in radians between two orientations.
func QuatAngle(a, b mgl64.Quat) float64 {
	d := math.Abs(a.Normalize().Dot(b.Normalize()))
	return 2 * math.Acos(mgl64.Clamp(d, -1, 1))
}

// RotateTowards rotates current toward target along the shortest arc by at
// most maxRadians. The result is always unit length.
func RotateTowards(current, target mgl64.Quat, maxRadians float64) mgl64.Quat {
	current = current.Normalize()
	target = target.Normalize()
	if maxRadians <= 0 {
		return current
	}

	delta := target.Mul(current.Conjugate())
	if delta.W < 0 {
		delta = delta.Scale(-1)
	}
	angle := 2 * math.Acos(mgl64.Clamp(delta.W, -1, 1))
	if angle <= maxRadians {
		return target
	}
	axis := delta.V
	if axis.Len() < 1e-12 {
		return target
	}
	step := mgl64.QuatRotate(maxRadians, axis.Normalize())
	return step.Mul(current).Normalize()
}

// AxisAngle returns the rotation taking current to target as a vector whose
// direction is the world-space axis and whose length is the angle in radians.
func AxisAngle(current, target mgl64.Quat) mgl64.Vec3 {
	delta := target.Normalize().Mul(current.Normalize().Conjugate())
	if delta.W < 0 {
		delta = delta.Scale(-1)
	}
	angle := 2 * math.Acos(mgl64.Clamp(delta.W, -1, 1))
	if delta.V.Len() < 1e-12 {
		return mgl64.Vec3{}
	}
	return delta.V.Normalize().Mul(angle)
}

// IntegrateAngular advances q by the world-space angular velocity omega
// (radians per second) over dt.
func IntegrateAngular(q mgl64.Quat, omega mgl64.Vec3, dt float64) mgl64.Quat {
	rate := omega.Len()
	if rate < 1e-12 || dt <= 0 {
		return q.Normalize()
	}
	return mgl64.QuatRotate(rate*dt, omega.Mul(1/rate)).Mul(q).Normalize()
}
