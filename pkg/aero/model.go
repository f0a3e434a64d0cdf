// Package aero computes the per-tick aerodynamic and engine forces acting on
// a fixed-wing body: thrust, directional drag, lift and induced drag.
//
// Body axes follow the physics package: X right, Y up, Z forward. Angles
// are reported in degrees.
package aero

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-aerocontrol/pkg/config"
	"github.com/opd-ai/go-aerocontrol/pkg/physics"
)

const (
	// MinAeroSpeed is the airspeed below which AoA is undefined and no
	// drag, lift or induced drag is produced.
	MinAeroSpeed = 0.1
	// MinInducedDragSpeed is the airspeed below which induced drag is skipped.
	MinInducedDragSpeed = 1.0
	// verticalDragScale damps the vertical axis relative to the lateral one.
	verticalDragScale = 0.5
	// inducedDragRefAoA normalizes AoA in the induced drag term.
	inducedDragRefAoA = 15.0
)

// Forces is the output of one aerodynamic evaluation. All vectors are in
// world space; the caller applies each of them to the integrator.
type Forces struct {
	Thrust      mgl64.Vec3
	Drag        mgl64.Vec3
	Lift        mgl64.Vec3
	InducedDrag mgl64.Vec3

	AoA        float64
	Speed      float64
	Altitude   float64
	Efficiency float64
}

// Total returns the sum of all force components.
func (f Forces) Total() mgl64.Vec3 {
	return f.Thrust.Add(f.Drag).Add(f.Lift).Add(f.InducedDrag)
}

// Model evaluates forces for one aircraft profile and remembers the last AoA.
type Model struct {
	profile    config.AerodynamicProfile
	currentAoA float64
}

// NewModel creates a model for the given profile.
func NewModel(profile config.AerodynamicProfile) *Model {
	return &Model{profile: profile}
}

// Profile returns the profile the model was built with.
func (m *Model) Profile() config.AerodynamicProfile { return m.profile }

// CurrentAoA returns the AoA computed by the most recent Compute call.
func (m *Model) CurrentAoA() float64 { return m.currentAoA }

// Compute evaluates all forces for state at the given throttle.
func (m *Model) Compute(state physics.BodyState, throttle float64) Forces {
	p := m.profile
	alt := state.Altitude()
	eff := AltitudeEfficiency(p, alt)
	throttle = mgl64.Clamp(throttle, 0, 1)

	out := Forces{
		Altitude:   alt,
		Efficiency: eff,
		Speed:      state.Speed(),
	}
	out.Thrust = state.Forward().Mul(throttle * p.EnginePower * eff)

	if out.Speed < MinAeroSpeed {
		m.currentAoA = 0
		return out
	}

	local := state.ToLocal(state.LinearVelocity)
	out.AoA = AngleOfAttack(local)
	m.currentAoA = out.AoA

	out.Drag = state.ToWorld(directionalDrag(p, local, state.Mass))

	liftMag := BaseLift(p, out.Speed, state.Mass) *
		AoAFactor(out.AoA) *
		SpeedFactor(p, out.Speed) *
		mgl64.Clamp(state.Up().Dot(physics.WorldUp), -0.5, 1.0) *
		eff
	out.Lift = state.Up().Mul(liftMag)

	if out.Speed > MinInducedDragSpeed {
		ratio := math.Abs(out.AoA) / inducedDragRefAoA
		mag := out.Speed * out.Speed * p.InducedDragCoeff * ratio * ratio * eff
		out.InducedDrag = state.LinearVelocity.Mul(-mag / out.Speed)
	}
	return out
}

func directionalDrag(p config.AerodynamicProfile, local mgl64.Vec3, mass float64) mgl64.Vec3 {
	x, y, z := local.X(), local.Y(), local.Z()
	return mgl64.Vec3{
		-x * math.Abs(x) * p.LateralDragCoeff,
		-y * math.Abs(y) * p.LateralDragCoeff * verticalDragScale,
		-z * math.Abs(z) * p.ForwardDragCoeff * mass,
	}
}

// AngleOfAttack returns atan2(vertical, forward) of a body-local velocity in
// degrees, or 0 when the velocity is too small to define it.
func AngleOfAttack(localVelocity mgl64.Vec3) float64 {
	if localVelocity.Len() < MinAeroSpeed {
		return 0
	}
	return mgl64.RadToDeg(math.Atan2(localVelocity.Y(), localVelocity.Z()))
}

// AltitudeEfficiency is 1 below AltitudeEffectStart, falls linearly to 0 at
// MaxAltitude and stays 0 above it.
func AltitudeEfficiency(p config.AerodynamicProfile, altitude float64) float64 {
	if altitude >= p.MaxAltitude {
		return 0
	}
	if altitude <= p.AltitudeEffectStart {
		return 1
	}
	span := p.MaxAltitude - p.AltitudeEffectStart
	if span <= 0 {
		return 0
	}
	return mgl64.Clamp(1-(altitude-p.AltitudeEffectStart)/span, 0, 1)
}

// SpeedFactor is 0 below MinLiftSpeed, rises quadratically to 1 at
// StallSpeed and is 1 above it.
func SpeedFactor(p config.AerodynamicProfile, speed float64) float64 {
	if speed < p.MinLiftSpeed {
		return 0
	}
	if speed >= p.StallSpeed {
		return 1
	}
	span := p.StallSpeed - p.MinLiftSpeed
	if span <= 0 {
		return 1
	}
	t := mgl64.Clamp((speed-p.MinLiftSpeed)/span, 0, 1)
	return t * t
}

// AoAFactor is the lift curve over |AoA| in degrees: a ramp from 0.2 to 1
// up to 15°, flat to 25°, decaying to 0 at 40°, and 0 beyond.
func AoAFactor(aoa float64) float64 {
	a := math.Abs(aoa)
	switch {
	case a <= 15:
		return mgl64.Clamp(0.2+0.8*a/15, 0.2, 1)
	case a <= 25:
		return 1
	case a <= 40:
		return mgl64.Clamp(1-(a-25)/15, 0, 1)
	default:
		return 0
	}
}

// BaseLift is the lift magnitude before the AoA, speed, attitude and
// altitude factors are applied.
func BaseLift(p config.AerodynamicProfile, speed, mass float64) float64 {
	return speed * speed * p.LiftCoeff * mass
}
