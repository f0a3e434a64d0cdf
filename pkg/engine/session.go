// Package engine owns a flight session: the ECS world, the player's
// aircraft, its input plumbing and the fixed-step clock that drives them.
package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/EngoEngine/ecs"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-aerocontrol/pkg/config"
	"github.com/opd-ai/go-aerocontrol/pkg/event"
	"github.com/opd-ai/go-aerocontrol/pkg/flight"
	"github.com/opd-ai/go-aerocontrol/pkg/input"
	"github.com/opd-ai/go-aerocontrol/pkg/logging"
	"github.com/opd-ai/go-aerocontrol/pkg/physics"
)

// MaxFrameDelta caps the wall-clock time fed to Advance in one call.
const MaxFrameDelta = 0.1

// Status is the lifecycle state of a session.
type Status int32

const (
	StatusWaiting Status = iota
	StatusActive
	StatusEnded
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusActive:
		return "active"
	case StatusEnded:
		return "ended"
	}
	return "unknown"
}

// Options customises a session. Zero values pick the defaults: the
// aircraft's look rig steers and Controls supplies throttle.
type Options struct {
	Provider input.TargetProvider
	Source   input.ControlSource
	Bus      *event.Bus
	Logger   *logging.Logger
	Systems  []ecs.System
}

// Session is a single-aircraft flight session.
type Session struct {
	ID       string
	Config   *config.SimConfig
	Profile  config.AerodynamicProfile
	TimeStep float64

	World    *ecs.World
	Flight   *flight.FlightSystem
	Aircraft *flight.Aircraft
	Controls *input.Controls
	Handoff  *input.Handoff
	EventBus *event.Bus

	ctx    context.Context
	logger *logging.Logger
	status atomic.Int32

	stepMu      sync.Mutex
	accumulator float64
	startTime   time.Time
}

// NewSession validates cfg and spawns the aircraft.
func NewSession(cfg *config.SimConfig, opts Options) (*Session, error) {
	if cfg == nil {
		return nil, errors.New("nil session config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, logging.WrapError(err, "invalid session config")
	}
	profile, err := cfg.ResolveProfile()
	if err != nil {
		return nil, logging.WrapError(err, "failed to resolve profile", "preset", cfg.Preset)
	}

	id := logging.GenerateSessionID()
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	bus := opts.Bus
	if bus == nil {
		bus = event.NewEventBus()
	}

	s := &Session{
		ID:       id,
		Config:   cfg,
		Profile:  profile,
		TimeStep: cfg.TimeStep(),
		World:    &ecs.World{},
		Controls: input.NewControls(cfg.Spawn.Throttle),
		Handoff:  &input.Handoff{},
		EventBus: bus,
		ctx:      logging.WithSessionID(context.Background(), id),
		logger:   logger.Component("session"),
	}

	source := opts.Source
	if source == nil {
		source = s.Controls
	}
	var rig *input.LookRig
	if opts.Provider == nil {
		rig = input.NewLookRig(cfg.Look, s.Handoff)
	}

	s.Flight = flight.NewFlightSystem(s.TimeStep)
	s.Aircraft = flight.NewAircraft(spawnState(cfg), integratorConfig(cfg), profile, rig, flight.Options{
		ControlMode: cfg.ControlMode,
		Provider:    opts.Provider,
		Source:      source,
		Bus:         bus,
		Logger:      logger,
		Context:     s.ctx,
	})
	s.Flight.Add(s.Aircraft)
	s.World.AddSystem(s.Flight)
	for _, sys := range opts.Systems {
		s.World.AddSystem(sys)
	}

	s.logger.Info(s.ctx, "session created",
		"preset", cfg.Preset,
		"control_mode", cfg.ControlMode,
		"tick_rate", cfg.TickRate,
		"aircraft", s.Aircraft.ID())
	return s, nil
}

// spawnState places the body at the spawn altitude, level, flying along
// the spawn heading.
func spawnState(cfg *config.SimConfig) physics.BodyState {
	heading := mgl64.QuatRotate(mgl64.DegToRad(cfg.Spawn.Heading), physics.WorldUp)
	return physics.BodyState{
		Position:       mgl64.Vec3{0, cfg.Spawn.Altitude, 0},
		Orientation:    heading,
		LinearVelocity: heading.Rotate(physics.Forward).Mul(cfg.Spawn.Speed),
		Mass:           cfg.Physics.Mass,
	}
}

func integratorConfig(cfg *config.SimConfig) physics.IntegratorConfig {
	return physics.IntegratorConfig{
		Gravity:        cfg.Physics.Gravity,
		GroundLevel:    cfg.Physics.GroundLevel,
		AngularDamping: cfg.Physics.AngularDamping,
		Inertia:        cfg.Physics.Inertia,
	}
}

// AddSystem registers an additional ECS system.
func (s *Session) AddSystem(sys ecs.System) {
	s.stepMu.Lock()
	defer s.stepMu.Unlock()
	s.World.AddSystem(sys)
}

// Start marks the session active.
func (s *Session) Start() {
	if !s.status.CompareAndSwap(int32(StatusWaiting), int32(StatusActive)) {
		return
	}
	s.startTime = time.Now()
	s.logger.Info(s.ctx, "session started")
	s.EventBus.Publish(event.NewSessionEvent(event.SessionStarted, s, s.ID, 0))
}

// Stop ends the session. Further Advance calls do nothing.
func (s *Session) Stop() {
	prev := Status(s.status.Swap(int32(StatusEnded)))
	if prev == StatusEnded {
		return
	}
	ticks := s.Ticks()
	s.logger.Info(s.ctx, "session ended", "ticks", ticks, "elapsed", time.Since(s.startTime).Round(time.Millisecond).String())
	s.EventBus.Publish(event.NewSessionEvent(event.SessionEnded, s, s.ID, ticks))
}

// Status returns the lifecycle state.
func (s *Session) Status() Status { return Status(s.status.Load()) }

// Running reports whether the session is active.
func (s *Session) Running() bool { return s.Status() == StatusActive }

// Step advances the world by exactly one fixed tick.
func (s *Session) Step() {
	s.stepMu.Lock()
	defer s.stepMu.Unlock()
	s.World.Update(float32(s.TimeStep))
}

// Advance feeds frameDt seconds of wall-clock time into the fixed-step
// accumulator and runs as many ticks as fit. frameDt is capped at
// MaxFrameDelta. It returns the number of ticks run.
func (s *Session) Advance(frameDt float64) int {
	if !s.Running() || frameDt <= 0 {
		return 0
	}
	if frameDt > MaxFrameDelta {
		frameDt = MaxFrameDelta
	}

	s.stepMu.Lock()
	defer s.stepMu.Unlock()

	s.accumulator += frameDt
	steps := 0
	for s.accumulator >= s.TimeStep {
		s.World.Update(float32(s.TimeStep))
		s.accumulator -= s.TimeStep
		steps++
	}
	return steps
}

// Run starts the session and drives it from a ticker at the tick rate
// until ctx is done, then stops it.
func (s *Session) Run(ctx context.Context) error {
	s.Start()
	defer s.Stop()

	ticker := time.NewTicker(time.Duration(s.TimeStep * float64(time.Second)))
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			s.Advance(now.Sub(last).Seconds())
			last = now
		}
		if !s.Running() {
			return nil
		}
	}
}

// Ticks returns the player's aircraft tick count. Safe from any goroutine.
func (s *Session) Ticks() uint64 { return s.Aircraft.Loop.Snapshot().Tick }

// Snapshot returns the player's latest flight snapshot.
func (s *Session) Snapshot() flight.Snapshot { return s.Aircraft.Loop.Snapshot() }

// Context returns the session-scoped logging context.
func (s *Session) Context() context.Context { return s.ctx }
