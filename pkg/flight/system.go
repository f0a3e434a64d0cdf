package flight

import (
	"github.com/EngoEngine/ecs"

	"github.com/opd-ai/go-aerocontrol/pkg/config"
	"github.com/opd-ai/go-aerocontrol/pkg/input"
	"github.com/opd-ai/go-aerocontrol/pkg/physics"
)

// Aircraft is an ECS entity bundling a body, its flight loop and an
// optional look rig that supplies the loop's target.
type Aircraft struct {
	ecs.BasicEntity
	Body *physics.Integrator
	Loop *Loop
	Rig  *input.LookRig
}

// NewAircraft creates an aircraft entity. When rig is non-nil and
// opts.Provider is nil, the rig becomes the loop's target provider.
func NewAircraft(state physics.BodyState, integrator physics.IntegratorConfig, profile config.AerodynamicProfile, rig *input.LookRig, opts Options) *Aircraft {
	basic := ecs.NewBasic()
	body := physics.NewIntegrator(state, integrator)
	opts.ID = basic.ID()
	if opts.Provider == nil && rig != nil {
		opts.Provider = rig
	}
	return &Aircraft{
		BasicEntity: basic,
		Body:        body,
		Loop:        NewLoop(body, profile, opts),
		Rig:         rig,
	}
}

// FlightSystem ticks every registered aircraft by one fixed step per
// World.Update. The float32 frame delta is ignored so that the simulation
// stays deterministic in float64.
type FlightSystem struct {
	step     float64
	aircraft []*Aircraft
}

// NewFlightSystem creates a system advancing aircraft by step seconds per update.
func NewFlightSystem(step float64) *FlightSystem {
	return &FlightSystem{step: step}
}

// Add registers an aircraft.
func (fs *FlightSystem) Add(a *Aircraft) {
	fs.aircraft = append(fs.aircraft, a)
}

// Remove satisfies the ecs.System interface
func (fs *FlightSystem) Remove(basic ecs.BasicEntity) {
	for i, a := range fs.aircraft {
		if a.ID() == basic.ID() {
			fs.aircraft = append(fs.aircraft[:i], fs.aircraft[i+1:]...)
			return
		}
	}
}

// Update runs one fixed step for every aircraft: rig, loop, integrator,
// then republishes the snapshot with the integrated state.
func (fs *FlightSystem) Update(dt float32) {
	for _, a := range fs.aircraft {
		if a.Rig != nil {
			a.Rig.Advance(a.Body.State().Orientation, fs.step)
		}
		a.Loop.Tick(fs.step)
		a.Body.Step(fs.step)
		a.Loop.publishSnapshot(a.Body.State())
	}
}

// Priority runs flight before systems that observe its results.
func (fs *FlightSystem) Priority() int { return 100 }

// Aircraft returns the registered aircraft.
func (fs *FlightSystem) Aircraft() []*Aircraft { return fs.aircraft }

// Step returns the fixed step in seconds.
func (fs *FlightSystem) Step() float64 { return fs.step }
