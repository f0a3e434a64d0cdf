package flight

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-aerocontrol/pkg/config"
	"github.com/opd-ai/go-aerocontrol/pkg/control"
	"github.com/opd-ai/go-aerocontrol/pkg/event"
	"github.com/opd-ai/go-aerocontrol/pkg/input"
	"github.com/opd-ai/go-aerocontrol/pkg/physics"
)

const tick = 1.0 / 60

// recordingBody is a RigidBody that records the order of calls made on it.
type recordingBody struct {
	state   physics.BodyState
	calls   []string
	forces  []mgl64.Vec3
	torques []mgl64.Vec3
}

func (b *recordingBody) State() physics.BodyState { return b.state }

func (b *recordingBody) AddForce(f mgl64.Vec3) {
	b.calls = append(b.calls, "force")
	b.forces = append(b.forces, f)
}

func (b *recordingBody) AddTorque(t mgl64.Vec3) {
	b.calls = append(b.calls, "torque")
	b.torques = append(b.torques, t)
}

func (b *recordingBody) SetOrientation(q mgl64.Quat) {
	b.calls = append(b.calls, "orient")
	b.state.Orientation = q.Normalize()
}

// bodyAt returns a wings-level body flying at speed with the given AoA.
func bodyAt(speed, aoaDeg float64) *recordingBody {
	rad := mgl64.DegToRad(aoaDeg)
	return &recordingBody{state: physics.BodyState{
		Position:       mgl64.Vec3{0, 1000, 0},
		Orientation:    mgl64.QuatIdent(),
		LinearVelocity: mgl64.Vec3{0, math.Sin(rad) * speed, math.Cos(rad) * speed},
		Mass:           1,
	}}
}

var ahead = input.StaticTarget{Direction: physics.Forward, UpHint: physics.WorldUp}

func equalCalls(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestLoop_TickOrder(t *testing.T) {
	tests := []struct {
		name     string
		mode     string
		provider input.TargetProvider
		aoa      float64
		expected []string
	}{
		{"kinematic_with_correction", config.ControlModeKinematic, ahead, 30, []string{"force", "force", "force", "force", "orient", "torque"}},
		{"kinematic_within_limit", config.ControlModeKinematic, ahead, 5, []string{"force", "force", "force", "force", "orient"}},
		{"pd_with_correction", config.ControlModePD, ahead, 30, []string{"force", "force", "force", "force", "torque", "torque"}},
		{"no_target", config.ControlModeKinematic, nil, 5, []string{"force", "force", "force", "force"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := bodyAt(80, tt.aoa)
			loop := NewLoop(body, config.DefaultProfile(), Options{
				ControlMode: tt.mode,
				Provider:    tt.provider,
				Source:      input.NewControls(0.8),
			})
			loop.Tick(tick)
			if !equalCalls(body.calls, tt.expected) {
				t.Errorf("calls = %v, expected %v", body.calls, tt.expected)
			}
		})
	}
}

func TestLoop_ForcesMatchModel(t *testing.T) {
	body := bodyAt(70, 10)
	loop := NewLoop(body, config.DefaultProfile(), Options{Provider: ahead, Source: input.NewControls(0.8)})
	loop.Tick(tick)

	f := loop.Forces()
	want := []mgl64.Vec3{f.Thrust, f.Drag, f.Lift, f.InducedDrag}
	for i, w := range want {
		if body.forces[i] != w {
			t.Errorf("force %d = %v, expected %v", i, body.forces[i], w)
		}
	}
	if math.Abs(f.Thrust.Len()-0.8*config.DefaultProfile().EnginePower) > 1e-9 {
		t.Errorf("thrust = %f", f.Thrust.Len())
	}
	if math.Abs(loop.CurrentAoA()-10) > 1e-9 {
		t.Errorf("CurrentAoA = %f, expected 10", loop.CurrentAoA())
	}
}

func TestLoop_MissingSourceMeansIdleThrottle(t *testing.T) {
	body := bodyAt(80, 5)
	loop := NewLoop(body, config.DefaultProfile(), Options{Provider: ahead})
	loop.Tick(tick)

	if loop.Forces().Thrust.Len() != 0 {
		t.Errorf("expected zero thrust without a control source, got %v", loop.Forces().Thrust)
	}
	if loop.Forces().Drag.Len() == 0 {
		t.Error("aerodynamic model should still run without a control source")
	}
	if !loop.LimiterActive() {
		t.Error("limiter should stay active without a control source")
	}
}

func TestLoop_CorrectionTorque(t *testing.T) {
	body := bodyAt(80, 30)
	loop := NewLoop(body, config.DefaultProfile(), Options{Provider: ahead, Source: input.NewControls(0.5)})
	loop.Tick(tick)

	// 15° over the limit at strength 0.05, turning the nose toward the velocity
	want := mgl64.Vec3{-0.75, 0, 0}
	if len(body.torques) != 1 || !body.torques[0].ApproxEqualThreshold(want, 1e-9) {
		t.Errorf("torques = %v, expected [%v]", body.torques, want)
	}
	if s := loop.Snapshot(); math.Abs(s.Correction+0.75) > 1e-9 {
		t.Errorf("snapshot correction = %f", s.Correction)
	}
}

func TestLoop_OverrideDisablesCorrection(t *testing.T) {
	controls := input.NewControls(0.5)
	controls.SetAoAHeld(true)
	body := bodyAt(80, 30)
	loop := NewLoop(body, config.DefaultProfile(), Options{Provider: ahead, Source: controls})
	loop.Tick(tick)

	if len(body.torques) != 0 {
		t.Errorf("no correction expected while the override is held, got %v", body.torques)
	}
	if loop.LimiterActive() || loop.LimiterMode() != control.LimiterDisabled {
		t.Errorf("expected limiter disabled, got %v", loop.LimiterMode())
	}
}

func TestLoop_LimiterEvents(t *testing.T) {
	bus := event.NewEventBus()
	var got []event.Type
	for _, typ := range []event.Type{event.LimiterDisabled, event.CooldownStarted, event.CooldownEnded} {
		bus.Subscribe(typ, func(e event.Event) { got = append(got, e.GetType()) })
	}

	p := config.DefaultProfile()
	p.CooldownSeconds = 0.5
	controls := input.NewControls(0.5)
	loop := NewLoop(bodyAt(80, 5), p, Options{Provider: ahead, Source: controls, Bus: bus})

	controls.SetAoAHeld(true)
	loop.Tick(0.25)
	controls.SetAoAHeld(false)
	loop.Tick(0.25)
	if loop.CooldownRemaining() != 0.5 {
		t.Errorf("CooldownRemaining = %f, expected 0.5", loop.CooldownRemaining())
	}
	loop.Tick(0.25)
	loop.Tick(0.25)

	expected := []event.Type{event.LimiterDisabled, event.CooldownStarted, event.CooldownEnded}
	if len(got) != len(expected) {
		t.Fatalf("events = %v, expected %v", got, expected)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("event %d = %v, expected %v", i, got[i], expected[i])
		}
	}
}

func TestLoop_StallEvents(t *testing.T) {
	bus := event.NewEventBus()
	var got []*event.StallEvent
	handler := func(e event.Event) { got = append(got, e.(*event.StallEvent)) }
	bus.Subscribe(event.StallEntered, handler)
	bus.Subscribe(event.StallRecovered, handler)

	body := bodyAt(30, 5)
	loop := NewLoop(body, config.DefaultProfile(), Options{ID: 9, Bus: bus})
	loop.Tick(tick) // no provider: stall is still tracked
	loop.Tick(tick)
	if loop.StallIntensity() <= 0 || loop.StallDuration() <= 0 {
		t.Fatalf("expected stall, intensity %f duration %f", loop.StallIntensity(), loop.StallDuration())
	}

	body.state.LinearVelocity = mgl64.Vec3{0, 0, 90}
	loop.Tick(tick)

	if len(got) != 2 {
		t.Fatalf("expected enter and recover events, got %d", len(got))
	}
	if got[0].GetType() != event.StallEntered || got[0].AircraftID != 9 {
		t.Errorf("unexpected first event %+v", got[0])
	}
	if got[1].GetType() != event.StallRecovered {
		t.Errorf("unexpected second event %+v", got[1])
	}
}

func TestLoop_Snapshot(t *testing.T) {
	loop := NewLoop(bodyAt(80, 5), config.DefaultProfile(), Options{ID: 4, Provider: ahead, Source: input.NewControls(0.6)})
	if s := loop.Snapshot(); s.Tick != 0 || s.ID != 4 || !s.LimiterActive {
		t.Errorf("unexpected initial snapshot %+v", s)
	}

	loop.Tick(tick)
	loop.Tick(0) // ignored
	s := loop.Snapshot()
	if s.Tick != 1 || loop.Ticks() != 1 {
		t.Errorf("Tick = %d, expected 1", s.Tick)
	}
	if s.Throttle != 0.6 || !s.HasTarget || s.LimiterMode != "normal" {
		t.Errorf("unexpected snapshot %+v", s)
	}
	if math.Abs(s.Speed-80) > 1e-9 || math.Abs(s.AoA-5) > 1e-9 {
		t.Errorf("snapshot speed %f aoa %f", s.Speed, s.AoA)
	}
}

func TestLoop_SnapshotAoACeiling(t *testing.T) {
	profile := config.DefaultProfile()

	tests := []struct {
		name    string
		held    bool
		ceiling float64
		over    bool
	}{
		{"limited", false, profile.MaxAoAWithLimiter, true},
		{"override", true, profile.MaxAoAWithoutLimiter, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			controls := input.NewControls(0.5)
			controls.SetAoAHeld(tt.held)
			loop := NewLoop(bodyAt(80, 30), profile, Options{Provider: ahead, Source: controls})
			loop.Tick(tick)

			s := loop.Snapshot()
			if s.AoACeiling != tt.ceiling {
				t.Errorf("AoACeiling = %f, expected %f", s.AoACeiling, tt.ceiling)
			}
			if s.OverCeiling() != tt.over {
				t.Errorf("OverCeiling = %v at AoA %f, expected %v", s.OverCeiling(), s.AoA, tt.over)
			}
		})
	}
}
