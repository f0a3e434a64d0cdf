// Package flight runs the per-tick flight loop: aerodynamic forces, attitude
// control and the AoA limiter, applied to one rigid body in a fixed order.
package flight

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-aerocontrol/pkg/aero"
	"github.com/opd-ai/go-aerocontrol/pkg/config"
	"github.com/opd-ai/go-aerocontrol/pkg/control"
	"github.com/opd-ai/go-aerocontrol/pkg/event"
	"github.com/opd-ai/go-aerocontrol/pkg/input"
	"github.com/opd-ai/go-aerocontrol/pkg/logging"
	"github.com/opd-ai/go-aerocontrol/pkg/physics"
)

// Options wires a Loop to its collaborators. Every field is optional.
type Options struct {
	ID          uint64
	ControlMode string // config.ControlModeKinematic (default) or config.ControlModePD
	Provider    input.TargetProvider
	Source      input.ControlSource
	Bus         *event.Bus
	Logger      *logging.Logger
	Context     context.Context // carries the session ID for logging
}

// Snapshot is a read-only view of one aircraft after a tick.
type Snapshot struct {
	ID                uint64     `json:"id"`
	Tick              uint64     `json:"tick"`
	Position          mgl64.Vec3 `json:"position"`
	Velocity          mgl64.Vec3 `json:"velocity"`
	Forward           mgl64.Vec3 `json:"forward"`
	Up                mgl64.Vec3 `json:"up"`
	Speed             float64    `json:"speed"`
	Altitude          float64    `json:"altitude"`
	AoA               float64    `json:"aoa"`
	AoACeiling        float64    `json:"aoa_ceiling"`
	Throttle          float64    `json:"throttle"`
	Efficiency        float64    `json:"efficiency"`
	StallIntensity    float64    `json:"stall_intensity"`
	StallDuration     float64    `json:"stall_duration"`
	LimiterMode       string     `json:"limiter_mode"`
	LimiterActive     bool       `json:"limiter_active"`
	CooldownRemaining float64    `json:"cooldown_remaining"`
	Correction        float64    `json:"correction"`
	HasTarget         bool       `json:"has_target"`
}

// OverCeiling reports whether |AoA| exceeds the ceiling for the limiter mode.
func (s Snapshot) OverCeiling() bool {
	return s.AoACeiling > 0 && math.Abs(s.AoA) > s.AoACeiling
}

// Loop owns the flight state of one body. Tick must be called from a
// single goroutine; Snapshot may be read from any goroutine.
type Loop struct {
	id       uint64
	body     physics.RigidBody
	profile  config.AerodynamicProfile
	pd       bool
	aero     *aero.Model
	attitude *control.AttitudeController
	limiter  *control.AoALimiter
	provider input.TargetProvider
	source   input.ControlSource
	bus      *event.Bus
	logger   *logging.Logger
	ctx      context.Context

	throttle   float64
	forces     aero.Forces
	correction float64
	hasTarget  bool
	stalled    bool
	ticks      uint64
	snapshot   atomic.Pointer[Snapshot]
}

// NewLoop creates a flight loop driving body with the given profile.
func NewLoop(body physics.RigidBody, profile config.AerodynamicProfile, opts Options) *Loop {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	l := &Loop{
		id:       opts.ID,
		body:     body,
		profile:  profile,
		pd:       opts.ControlMode == config.ControlModePD,
		aero:     aero.NewModel(profile),
		attitude: control.NewAttitudeController(profile),
		limiter:  control.NewAoALimiter(profile),
		provider: opts.Provider,
		source:   opts.Source,
		bus:      opts.Bus,
		logger:   opts.Logger.Component("flight"),
		ctx:      opts.Context,
	}
	l.publishSnapshot(body.State())
	return l
}

// Tick runs one fixed step. Forces and torques are accumulated on the body;
// the caller integrates them afterwards.
func (l *Loop) Tick(dt float64) {
	if dt <= 0 {
		return
	}
	state := l.body.State()

	// inputs; a missing source means no throttle and no override
	l.throttle = 0
	held := false
	if l.source != nil {
		if t, ok := l.source.Throttle(); ok {
			l.throttle = t
		}
		held = l.source.AoAHeld()
	}

	tr := l.limiter.Update(held, dt)

	// thrust, then aerodynamic forces
	l.forces = l.aero.Compute(state, l.throttle)
	l.body.AddForce(l.forces.Thrust)
	l.body.AddForce(l.forces.Drag)
	l.body.AddForce(l.forces.Lift)
	l.body.AddForce(l.forces.InducedDrag)

	l.steer(state, dt)

	// limiter correction about the post-rotation pitch axis
	l.correction = l.limiter.Correction(l.forces.AoA, l.forces.Speed)
	if l.correction != 0 {
		l.body.AddTorque(l.body.State().Right().Mul(l.correction))
	}

	l.ticks++
	l.announce(tr)
	l.publishSnapshot(l.body.State())
}

func (l *Loop) steer(state physics.BodyState, dt float64) {
	l.hasTarget = false
	var target input.Target
	if l.provider != nil {
		target, l.hasTarget = l.provider.Target()
	}
	if !l.hasTarget {
		l.attitude.ObserveSpeed(l.forces.Speed, dt)
		return
	}

	in := control.AttitudeInput{
		Orientation:     state.Orientation,
		TargetDirection: target.Direction,
		TargetUpHint:    target.UpHint,
		Speed:           l.forces.Speed,
		LimiterDisabled: l.limiter.Disabled(),
		Dt:              dt,
	}
	if l.pd {
		goal := l.attitude.Target(in)
		l.body.AddTorque(control.PDTorque(l.profile, state, goal, l.limiter.Disabled()))
		return
	}
	l.body.SetOrientation(l.attitude.Update(in))
}

func (l *Loop) announce(tr control.Transition) {
	if tr.Changed() {
		l.logger.Debug(l.ctx, "limiter transition",
			"aircraft", l.id, "from", tr.From.String(), "to", tr.To.String(), "aoa", l.forces.AoA)
		if l.bus != nil {
			var typ event.Type
			switch {
			case tr.To == control.LimiterDisabled:
				typ = event.LimiterDisabled
			case tr.To == control.LimiterCooldown:
				typ = event.CooldownStarted
			case tr.From == control.LimiterCooldown:
				typ = event.CooldownEnded
			}
			if typ != "" {
				l.bus.Publish(event.NewLimiterEvent(typ, l, l.id, tr.From.String(), tr.To.String(),
					l.forces.AoA, l.limiter.CooldownRemaining()))
			}
		}
	}

	stalled := l.attitude.StallIntensity() > 0
	if stalled == l.stalled {
		return
	}
	l.stalled = stalled
	typ := event.StallRecovered
	if stalled {
		typ = event.StallEntered
		l.logger.Debug(l.ctx, "stall entered", "aircraft", l.id, "speed", l.forces.Speed)
	}
	if l.bus != nil {
		l.bus.Publish(event.NewStallEvent(typ, l, l.id, l.forces.Speed,
			l.attitude.StallIntensity(), l.attitude.StallDuration()))
	}
}

func (l *Loop) publishSnapshot(s physics.BodyState) {
	l.snapshot.Store(&Snapshot{
		ID:                l.id,
		Tick:              l.ticks,
		Position:          s.Position,
		Velocity:          s.LinearVelocity,
		Forward:           s.Forward(),
		Up:                s.Up(),
		Speed:             s.Speed(),
		Altitude:          s.Altitude(),
		AoA:               l.forces.AoA,
		AoACeiling:        l.limiter.AoACeiling(),
		Throttle:          l.throttle,
		Efficiency:        l.forces.Efficiency,
		StallIntensity:    l.attitude.StallIntensity(),
		StallDuration:     l.attitude.StallDuration(),
		LimiterMode:       l.limiter.Mode().String(),
		LimiterActive:     l.limiter.Active(),
		CooldownRemaining: l.limiter.CooldownRemaining(),
		Correction:        l.correction,
		HasTarget:         l.hasTarget,
	})
}

// Snapshot returns the state published at the end of the last tick.
func (l *Loop) Snapshot() Snapshot { return *l.snapshot.Load() }

// ID returns the aircraft ID given in Options.
func (l *Loop) ID() uint64 { return l.id }

// Ticks returns the number of completed ticks.
func (l *Loop) Ticks() uint64 { return l.ticks }

// CurrentAoA returns the AoA in degrees from the last tick.
func (l *Loop) CurrentAoA() float64 { return l.aero.CurrentAoA() }

// StallIntensity returns the stall intensity in [0, 1] from the last tick.
func (l *Loop) StallIntensity() float64 { return l.attitude.StallIntensity() }

// StallDuration returns the seconds spent continuously stalled.
func (l *Loop) StallDuration() float64 { return l.attitude.StallDuration() }

// LimiterActive reports whether the AoA limiter is enforcing its limit.
func (l *Loop) LimiterActive() bool { return l.limiter.Active() }

// LimiterMode returns the limiter's current mode.
func (l *Loop) LimiterMode() control.LimiterMode { return l.limiter.Mode() }

// CooldownRemaining returns the seconds until the limiter override is usable.
func (l *Loop) CooldownRemaining() float64 { return l.limiter.CooldownRemaining() }

// Forces returns the forces computed in the last tick.
func (l *Loop) Forces() aero.Forces { return l.forces }

// Profile returns the aircraft profile.
func (l *Loop) Profile() config.AerodynamicProfile { return l.profile }
