package input

import (
	"math"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
)

// Handoff passes the latest ControlVector from the render loop to the
// flight loop. The last write wins; readers never block.
type Handoff struct {
	latest atomic.Pointer[ControlVector]
}

// Store publishes v.
func (h *Handoff) Store(v ControlVector) {
	h.latest.Store(&v)
}

// Load returns the most recently stored vector and whether one exists.
func (h *Handoff) Load() (ControlVector, bool) {
	v := h.latest.Load()
	if v == nil {
		return ControlVector{}, false
	}
	return *v, true
}

// ControlSource supplies throttle and AoA-override inputs. Throttle reports
// false when no throttle input is available.
type ControlSource interface {
	Throttle() (float64, bool)
	AoAHeld() bool
}

// Controls is a ControlSource written by an input host and read by the
// flight loop from another goroutine.
type Controls struct {
	throttle    atomic.Uint64 // math.Float64bits
	hasThrottle atomic.Bool
	aoaHeld     atomic.Bool
}

// NewControls creates controls with the given initial throttle.
func NewControls(throttle float64) *Controls {
	c := &Controls{}
	c.SetThrottle(throttle)
	return c
}

// SetThrottle stores a throttle clamped to [0, 1].
func (c *Controls) SetThrottle(v float64) {
	c.throttle.Store(math.Float64bits(mgl64.Clamp(v, 0, 1)))
	c.hasThrottle.Store(true)
}

// AdjustThrottle adds delta to the throttle and returns the clamped result.
func (c *Controls) AdjustThrottle(delta float64) float64 {
	for {
		old := c.throttle.Load()
		next := mgl64.Clamp(math.Float64frombits(old)+delta, 0, 1)
		if c.throttle.CompareAndSwap(old, math.Float64bits(next)) {
			c.hasThrottle.Store(true)
			return next
		}
	}
}

// Throttle implements ControlSource.
func (c *Controls) Throttle() (float64, bool) {
	return math.Float64frombits(c.throttle.Load()), c.hasThrottle.Load()
}

// SetAoAHeld records whether the limiter override is held.
func (c *Controls) SetAoAHeld(held bool) { c.aoaHeld.Store(held) }

// AoAHeld implements ControlSource.
func (c *Controls) AoAHeld() bool { return c.aoaHeld.Load() }
