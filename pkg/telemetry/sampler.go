package telemetry

import (
	"sync/atomic"

	"github.com/EngoEngine/ecs"

	"github.com/opd-ai/go-aerocontrol/pkg/flight"
)

// Sampler is an ECS system that copies aircraft snapshots into a Recorder
// every few updates and keeps the latest set for HTTP readers. It runs on
// the simulation goroutine; State is safe to call from any goroutine.
type Sampler struct {
	flight   *flight.FlightSystem
	recorder *Recorder
	every    int

	updates int
	latest  atomic.Pointer[[]flight.Snapshot]
}

// NewSampler creates a sampler over fs. every <= 1 samples on each update.
func NewSampler(fs *flight.FlightSystem, recorder *Recorder, every int) *Sampler {
	if every < 1 {
		every = 1
	}
	s := &Sampler{flight: fs, recorder: recorder, every: every}
	empty := []flight.Snapshot{}
	s.latest.Store(&empty)
	return s
}

// Update samples when the update counter hits the sampling interval.
func (s *Sampler) Update(dt float32) {
	s.updates++
	if s.updates%s.every != 0 {
		return
	}
	s.Sample()
}

// Sample records every aircraft immediately.
func (s *Sampler) Sample() {
	aircraft := s.flight.Aircraft()
	snaps := make([]flight.Snapshot, 0, len(aircraft))
	for _, a := range aircraft {
		snap := a.Loop.Snapshot()
		if s.recorder != nil {
			s.recorder.Record(snap)
		}
		snaps = append(snaps, snap)
	}
	s.latest.Store(&snaps)
}

// Remove satisfies the ecs.System interface and drops the entity's series.
func (s *Sampler) Remove(basic ecs.BasicEntity) {
	if s.recorder != nil {
		s.recorder.Forget(basic.ID())
	}
}

// Priority runs the sampler after the flight system.
func (s *Sampler) Priority() int { return 10 }

// State returns the most recent sample.
func (s *Sampler) State() []flight.Snapshot {
	return *s.latest.Load()
}

// Lookup returns the latest snapshot for one aircraft.
func (s *Sampler) Lookup(id uint64) (flight.Snapshot, bool) {
	for _, snap := range s.State() {
		if snap.ID == id {
			return snap, true
		}
	}
	return flight.Snapshot{}, false
}
