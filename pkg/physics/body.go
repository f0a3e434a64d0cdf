package physics

import "github.com/go-gl/mathgl/mgl64"

// BodyState is the physical state of a simulated aircraft.
type BodyState struct {
	Position        mgl64.Vec3
	Orientation     mgl64.Quat
	LinearVelocity  mgl64.Vec3
	AngularVelocity mgl64.Vec3 // world space, radians per second
	Mass            float64
}

// Forward returns the body's forward axis in world space.
func (s BodyState) Forward() mgl64.Vec3 { return s.Orientation.Rotate(Forward) }

// Up returns the body's up axis in world space.
func (s BodyState) Up() mgl64.Vec3 { return s.Orientation.Rotate(Up) }

// Right returns the body's right axis in world space.
func (s BodyState) Right() mgl64.Vec3 { return s.Orientation.Rotate(Right) }

// Speed returns the magnitude of the linear velocity.
func (s BodyState) Speed() float64 { return s.LinearVelocity.Len() }

// Altitude returns the height above the world origin plane.
func (s BodyState) Altitude() float64 { return s.Position.Y() }

// ToLocal transforms a world-space vector into body axes.
func (s BodyState) ToLocal(v mgl64.Vec3) mgl64.Vec3 {
	return s.Orientation.Conjugate().Rotate(v)
}

// ToWorld transforms a body-space vector into world axes.
func (s BodyState) ToWorld(v mgl64.Vec3) mgl64.Vec3 {
	return s.Orientation.Rotate(v)
}

// RigidBody is the integrator-facing view of a body. Forces and torques
// accumulate until the integrator resolves them; orientation is set directly.
type RigidBody interface {
	State() BodyState
	AddForce(force mgl64.Vec3)
	AddTorque(torque mgl64.Vec3)
	SetOrientation(q mgl64.Quat)
}

// IntegratorConfig tunes the reference integrator.
type IntegratorConfig struct {
	Gravity        float64 // downward acceleration
	GroundLevel    float64
	AngularDamping float64 // fraction of angular velocity removed per second
	Inertia        float64 // scalar moment of inertia per unit mass
}

// Integrator is a semi-implicit Euler integrator for a single body.
// It implements RigidBody.
type Integrator struct {
	state  BodyState
	config IntegratorConfig
	force  mgl64.Vec3
	torque mgl64.Vec3
}

// NewIntegrator creates an integrator owning the given initial state.
func NewIntegrator(state BodyState, config IntegratorConfig) *Integrator {
	if state.Mass <= 0 {
		state.Mass = 1
	}
	if state.Orientation == (mgl64.Quat{}) {
		state.Orientation = mgl64.QuatIdent()
	}
	state.Orientation = state.Orientation.Normalize()
	if config.Inertia <= 0 {
		config.Inertia = 1
	}
	return &Integrator{state: state, config: config}
}

// State returns a copy of the current body state.
func (in *Integrator) State() BodyState { return in.state }

// AddForce accumulates a world-space force for the next step.
func (in *Integrator) AddForce(force mgl64.Vec3) { in.force = in.force.Add(force) }

// AddTorque accumulates a world-space torque for the next step.
func (in *Integrator) AddTorque(torque mgl64.Vec3) { in.torque = in.torque.Add(torque) }

// SetOrientation replaces the orientation kinematically.
func (in *Integrator) SetOrientation(q mgl64.Quat) { in.state.Orientation = q.Normalize() }

// PendingForce returns the force accumulated since the last step.
func (in *Integrator) PendingForce() mgl64.Vec3 { return in.force }

// PendingTorque returns the torque accumulated since the last step.
func (in *Integrator) PendingTorque() mgl64.Vec3 { return in.torque }

// Step resolves accumulated forces and torques over dt and clears them.
func (in *Integrator) Step(dt float64) {
	if dt <= 0 {
		return
	}
	s := &in.state

	accel := in.force.Mul(1 / s.Mass).Sub(WorldUp.Mul(in.config.Gravity))
	s.LinearVelocity = s.LinearVelocity.Add(accel.Mul(dt))
	s.Position = s.Position.Add(s.LinearVelocity.Mul(dt))

	if s.Position.Y() < in.config.GroundLevel {
		s.Position[1] = in.config.GroundLevel
		if s.LinearVelocity.Y() < 0 {
			s.LinearVelocity[1] = 0
		}
	}

	angAccel := in.torque.Mul(1 / (s.Mass * in.config.Inertia))
	s.AngularVelocity = s.AngularVelocity.Add(angAccel.Mul(dt))
	damping := 1 - in.config.AngularDamping*dt
	if damping < 0 {
		damping = 0
	}
	s.AngularVelocity = s.AngularVelocity.Mul(damping)
	s.Orientation = IntegrateAngular(s.Orientation, s.AngularVelocity, dt)

	in.force = mgl64.Vec3{}
	in.torque = mgl64.Vec3{}
}
