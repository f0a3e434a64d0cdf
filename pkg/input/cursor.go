// Package input maps pointer motion to a normalized stick deflection and
// carries pilot inputs from the host's render loop to the flight loop.
package input

import (
	"math"

	"github.com/opd-ai/go-aerocontrol/pkg/config"
	"github.com/opd-ai/go-aerocontrol/pkg/physics"
)

// snapDistance is how close to center the cursor must be before it snaps.
const snapDistance = 1.0

// ControlVector is a normalized stick deflection. Both axes are in [-1, 1];
// positive pitch raises the nose and positive roll banks right.
type ControlVector struct {
	Pitch float64
	Roll  float64
}

// IsZero reports whether the stick is centered.
func (v ControlVector) IsZero() bool { return v.Pitch == 0 && v.Roll == 0 }

// CursorState is the screen-space state of the virtual stick.
type CursorState struct {
	Position       physics.Vector2D
	Center         physics.Vector2D
	LastDelta      physics.Vector2D
	HasActiveInput bool
}

// CursorMapper accumulates raw pointer deltas into a self-centering virtual
// stick. It is not safe for concurrent use; publish its output through a
// Handoff.
type CursorMapper struct {
	cfg         config.CursorConfig
	state       CursorState
	halfSize    physics.Vector2D
	size        physics.Vector2D
	reach       physics.Vector2D
	maxRadius   float64
	warmup      int
	initialized bool
}

// NewCursorMapper creates a mapper. Call Init once the display size is known.
func NewCursorMapper(cfg config.CursorConfig) *CursorMapper {
	return &CursorMapper{cfg: cfg}
}

// Init sizes the mapper to the display, recenters the cursor and restarts
// the warm-up period. It may be called again on resize.
func (m *CursorMapper) Init(width, height float64) {
	if width <= 0 || height <= 0 {
		return
	}
	m.size = physics.Vector2D{X: width, Y: height}
	m.halfSize = m.size.Scale(0.5)
	m.state = CursorState{Center: m.halfSize, Position: m.halfSize}
	m.maxRadius = m.cfg.MaxRadius
	if m.maxRadius <= 0 {
		m.maxRadius = math.Min(m.halfSize.X, m.halfSize.Y)
	}
	m.reach = physics.Vector2D{X: m.axisReach(m.halfSize.X), Y: m.axisReach(m.halfSize.Y)}
	m.warmup = m.cfg.WarmupTicks
	m.initialized = true
}

// Initialized reports whether Init has been called with a valid size.
func (m *CursorMapper) Initialized() bool { return m.initialized }

// Update feeds one tick of raw pointer motion.
func (m *CursorMapper) Update(rawDelta physics.Vector2D, dt float64) {
	if !m.initialized {
		return
	}
	if m.warmup > 0 {
		// the first deltas after a (re)grab are pointer warps, not pilot input
		m.warmup--
		m.state.LastDelta = physics.Vector2D{}
		m.state.HasActiveInput = false
		return
	}

	m.state.LastDelta = rawDelta
	m.state.HasActiveInput = rawDelta.Length() > m.cfg.InputThreshold
	if m.state.HasActiveInput {
		m.state.Position = m.state.Position.Add(rawDelta.Scale(m.cfg.Sensitivity))
	}

	m.returnToCenter(dt)
	m.confine()
}

// returnToCenter pulls the cursor back at MaxRadius/CenterReturnTime. A
// non-positive return time snaps it to center.
func (m *CursorMapper) returnToCenter(dt float64) {
	switch {
	case m.cfg.CenterReturnTime <= 0:
		m.state.Position = m.state.Center
	case dt > 0:
		speed := m.maxRadius / m.cfg.CenterReturnTime
		m.state.Position = m.state.Position.MoveTowards(m.state.Center, speed*dt)
	}
	if m.state.Position.Distance(m.state.Center) < snapDistance {
		m.state.Position = m.state.Center
	}
}

func (m *CursorMapper) confine() {
	offset := m.state.Position.Sub(m.state.Center).ClampLength(m.maxRadius)
	pos := m.state.Center.Add(offset)

	if margin := m.cfg.ConfinementMargin; m.marginActive() {
		pos.X = clamp(pos.X, margin, m.size.X-margin)
		pos.Y = clamp(pos.Y, margin, m.size.Y-margin)
	}
	m.state.Position = pos
}

func (m *CursorMapper) marginActive() bool {
	margin := m.cfg.ConfinementMargin
	return margin > 0 && 2*margin < m.size.X && 2*margin < m.size.Y
}

// axisReach is how far the cursor can travel from center along an axis
// with the given half extent.
func (m *CursorMapper) axisReach(half float64) float64 {
	r := math.Min(half, m.maxRadius)
	if m.marginActive() {
		r = math.Min(r, half-m.cfg.ConfinementMargin)
	}
	return r
}

// Output returns the current normalized, dead-zoned stick deflection. Each
// axis is scaled by the cursor's reach along it, the half screen size
// limited by the confinement radius and margin, so full deflection is
// reachable on any aspect ratio. Screen Y grows downward, so moving the
// pointer up raises the nose unless InvertPitch is set.
func (m *CursorMapper) Output() ControlVector {
	if !m.initialized {
		return ControlVector{}
	}
	offset := m.state.Position.Sub(m.state.Center)
	n := physics.Vector2D{X: offset.X / m.reach.X, Y: offset.Y / m.reach.Y}.ClampLength(1)

	pitch := -n.Y
	if m.cfg.InvertPitch {
		pitch = -pitch
	}
	return ControlVector{
		Pitch: deadZone(pitch, m.cfg.DeadZone),
		Roll:  deadZone(n.X, m.cfg.DeadZone),
	}
}

// State returns a copy of the cursor state.
func (m *CursorMapper) State() CursorState { return m.state }

// MaxRadius returns the effective confinement radius in pixels.
func (m *CursorMapper) MaxRadius() float64 { return m.maxRadius }

// Reach returns the per-axis distance that maps to full deflection.
func (m *CursorMapper) Reach() physics.Vector2D { return m.reach }

func deadZone(v, zone float64) float64 {
	if math.Abs(v) < zone {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
