// Package control turns a desired look direction into bounded orientation
// changes and implements the angle-of-attack limiter that gates them.
package control

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-aerocontrol/pkg/config"
	"github.com/opd-ai/go-aerocontrol/pkg/physics"
)

const (
	// MaxStallAttenuation is the fraction of control authority removed at
	// full stall intensity.
	MaxStallAttenuation = 0.9
	// StallNoseDownStart and StallNoseDownEnd bound the forced nose-down
	// pitch, in degrees below the horizon, reached over StallRampSeconds.
	StallNoseDownStart = 45.0
	StallNoseDownEnd   = 80.0
	StallRampSeconds   = 3.0
)

// AttitudeInput is everything the controller reads in one tick.
type AttitudeInput struct {
	Orientation     mgl64.Quat
	TargetDirection mgl64.Vec3
	TargetUpHint    mgl64.Vec3
	Speed           float64
	LimiterDisabled bool
	Dt              float64
}

// AttitudeController steers an orientation toward a target direction at a
// bounded rate.
type AttitudeController struct {
	profile config.AerodynamicProfile

	stallIntensity float64
	stallDuration  float64
	maxDelta       float64
	target         mgl64.Quat
}

// NewAttitudeController creates a controller for the given profile.
func NewAttitudeController(p config.AerodynamicProfile) *AttitudeController {
	return &AttitudeController{profile: p, target: mgl64.QuatIdent()}
}

// Update returns the new orientation for this tick. The result differs from
// in.Orientation by at most MaxDelta() radians.
func (c *AttitudeController) Update(in AttitudeInput) mgl64.Quat {
	target := c.Target(in)
	c.maxDelta = MaxRotation(c.profile, in.LimiterDisabled, in.Dt)
	return physics.RotateTowards(in.Orientation, target, c.maxDelta)
}

// Target updates the stall state and returns the orientation the controller
// is steering toward this tick, before rate limiting.
func (c *AttitudeController) Target(in AttitudeInput) mgl64.Quat {
	c.ObserveSpeed(in.Speed, in.Dt)

	q := in.Orientation.Normalize()
	curFwd := q.Rotate(physics.Forward)
	curUp := q.Rotate(physics.Up)
	authority := 1 - MaxStallAttenuation*c.stallIntensity

	// pitch/yaw: only part of the way toward the requested direction while stalled
	dir := physics.SafeNormalize(in.TargetDirection, curFwd)
	dir = physics.RotateDirTowards(curFwd, dir, authority)
	if c.stallIntensity > 0 {
		dir = physics.RotateDirTowards(dir, c.noseDownDirection(curFwd), c.stallIntensity)
	}

	// roll: level the wings between the input frame and the horizon
	upRef := physics.SafeNormalize(
		physics.ProjectOnPlane(curUp, dir),
		physics.SafeNormalize(physics.ProjectOnPlane(curFwd.Mul(-1), dir), physics.Up),
	)
	hint := physics.SafeNormalize(in.TargetUpHint, physics.WorldUp)
	inputUp := physics.SafeNormalize(physics.ProjectOnPlane(hint, dir), upRef)
	worldUp := physics.SafeNormalize(physics.ProjectOnPlane(physics.WorldUp, dir), inputUp)

	toInput := physics.SignedAngle(upRef, inputUp, dir)
	toWorld := physics.SignedAngle(upRef, worldUp, dir)
	blend := mgl64.Clamp(c.profile.WorldLevelBlend, 0, 1)
	roll := (toInput + (toWorld-toInput)*blend) * authority

	up := mgl64.QuatRotate(roll, dir).Rotate(upRef)
	c.target = physics.LookRotation(dir, up)
	return c.target
}

// ObserveSpeed advances the stall accumulators without steering. Target
// calls it; the flight loop calls it directly on ticks with no target.
func (c *AttitudeController) ObserveSpeed(speed, dt float64) {
	stall := c.profile.StallSpeed
	if stall <= 0 || speed >= stall {
		c.stallIntensity = 0
		c.stallDuration = 0
		return
	}
	deficit := mgl64.Clamp(1-speed/stall, 0, 1)
	c.stallIntensity = deficit * deficit
	if dt > 0 {
		c.stallDuration += dt
	}
}

// noseDownDirection is the forced recovery attitude: the current heading
// pitched below the horizon by an angle that deepens the longer the stall lasts.
func (c *AttitudeController) noseDownDirection(curFwd mgl64.Vec3) mgl64.Vec3 {
	heading := physics.SafeNormalize(physics.ProjectOnPlane(curFwd, physics.WorldUp), physics.Forward)
	ramp := mgl64.Clamp(c.stallDuration/StallRampSeconds, 0, 1)
	angle := mgl64.DegToRad(StallNoseDownStart + (StallNoseDownEnd-StallNoseDownStart)*ramp)
	return heading.Mul(math.Cos(angle)).Sub(physics.WorldUp.Mul(math.Sin(angle)))
}

// StallIntensity is 0 at or above stall speed and rises to 1 at zero speed.
func (c *AttitudeController) StallIntensity() float64 { return c.stallIntensity }

// StallDuration is the time in seconds spent continuously below stall speed.
func (c *AttitudeController) StallDuration() float64 { return c.stallDuration }

// MaxDelta returns the rotation budget in radians used by the last Update.
func (c *AttitudeController) MaxDelta() float64 { return c.maxDelta }

// LastTarget returns the most recent unconstrained target orientation.
func (c *AttitudeController) LastTarget() mgl64.Quat { return c.target }

// Reset clears the stall accumulators.
func (c *AttitudeController) Reset() {
	c.stallIntensity = 0
	c.stallDuration = 0
	c.maxDelta = 0
}

// RateMultiplier is AoARateMultiplier while the limiter is disabled, else 1.
func RateMultiplier(p config.AerodynamicProfile, limiterDisabled bool) float64 {
	if limiterDisabled {
		return p.AoARateMultiplier
	}
	return 1
}

// MaxRotation returns the largest rotation in radians allowed over dt.
func MaxRotation(p config.AerodynamicProfile, limiterDisabled bool, dt float64) float64 {
	if dt <= 0 {
		return 0
	}
	rate := math.Max(p.PitchRate, p.RollRate)
	return mgl64.DegToRad(rate * RateMultiplier(p, limiterDisabled) * dt)
}
