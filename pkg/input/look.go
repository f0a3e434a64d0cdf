package input

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-aerocontrol/pkg/config"
	"github.com/opd-ai/go-aerocontrol/pkg/physics"
)

// Target is a desired look direction and the up vector used to frame roll.
type Target struct {
	Direction mgl64.Vec3
	UpHint    mgl64.Vec3
}

// TargetProvider supplies the direction the flight loop steers toward.
// It reports false when no target is available this tick.
type TargetProvider interface {
	Target() (Target, bool)
}

// LookRig is a TargetProvider that turns stick deflection from a Handoff
// into a look orientation leading the aircraft's nose. It must be advanced
// from the goroutine that runs the flight loop.
type LookRig struct {
	cfg     config.LookConfig
	handoff *Handoff
	look    mgl64.Quat
	ready   bool
}

// NewLookRig creates a rig reading stick input from h.
func NewLookRig(cfg config.LookConfig, h *Handoff) *LookRig {
	return &LookRig{cfg: cfg, handoff: h, look: mgl64.QuatIdent()}
}

// Advance integrates the latest stick deflection over dt and keeps the look
// orientation within LeadAngle of body. The first call snaps to body.
func (r *LookRig) Advance(body mgl64.Quat, dt float64) {
	if !r.ready {
		r.look = body.Normalize()
		r.ready = true
		return
	}
	if v, ok := r.handoff.Load(); ok && dt > 0 {
		// positive rotation about right is nose-down, about forward is a left bank
		pitch := mgl64.QuatRotate(-mgl64.DegToRad(v.Pitch*r.cfg.PitchRate*dt), physics.Right)
		roll := mgl64.QuatRotate(-mgl64.DegToRad(v.Roll*r.cfg.RollRate*dt), physics.Forward)
		r.look = r.look.Mul(roll).Mul(pitch).Normalize()
	}

	lead := mgl64.DegToRad(r.cfg.LeadAngle)
	if lead > 0 && physics.QuatAngle(body, r.look) > lead {
		r.look = physics.RotateTowards(body, r.look, lead)
	}
}

// Reset discards the look orientation; the next Advance snaps to the body.
func (r *LookRig) Reset() { r.ready = false }

// Orientation returns the current look orientation.
func (r *LookRig) Orientation() mgl64.Quat { return r.look }

// Target implements TargetProvider.
func (r *LookRig) Target() (Target, bool) {
	if !r.ready {
		return Target{}, false
	}
	return Target{
		Direction: r.look.Rotate(physics.Forward),
		UpHint:    r.look.Rotate(physics.Up),
	}, true
}

// StaticTarget is a TargetProvider that always returns the same target.
type StaticTarget Target

// Target implements TargetProvider.
func (s StaticTarget) Target() (Target, bool) { return Target(s), true }
