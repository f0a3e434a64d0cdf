package control

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-aerocontrol/pkg/config"
	"github.com/opd-ai/go-aerocontrol/pkg/physics"
)

// PDTorque returns the world-space torque that drives state toward target
// with a proportional-derivative law on body-local angular rate. The
// desired rate on each axis is capped at the profile's pitch (X), yaw (Y)
// and roll (Z) rates, scaled by RateMultiplier.
func PDTorque(p config.AerodynamicProfile, state physics.BodyState, target mgl64.Quat, limiterDisabled bool) mgl64.Vec3 {
	errLocal := state.ToLocal(physics.AxisAngle(state.Orientation, target))
	mult := RateMultiplier(p, limiterDisabled)

	desired := errLocal.Mul(p.RotationGainP)
	limits := mgl64.Vec3{
		mgl64.DegToRad(p.PitchRate * mult),
		mgl64.DegToRad(p.YawRate * mult),
		mgl64.DegToRad(p.RollRate * mult),
	}
	for i := range desired {
		desired[i] = mgl64.Clamp(desired[i], -limits[i], limits[i])
	}

	omega := state.ToLocal(state.AngularVelocity)
	return state.ToWorld(desired.Sub(omega).Mul(p.RotationGainD))
}
