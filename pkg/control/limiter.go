package control

import (
	"math"

	"github.com/opd-ai/go-aerocontrol/pkg/config"
)

// LimiterMinSpeed is the airspeed below which the limiter applies no
// correction; the control surfaces have no authority there.
const LimiterMinSpeed = 5.0

// LimiterMode is the state of the AoA limiter.
type LimiterMode int

// Limiter modes
const (
	LimiterNormal   LimiterMode = iota // limiter active
	LimiterDisabled                    // pilot holding the override
	LimiterCooldown                    // limiter forced active until the timer runs out
)

func (m LimiterMode) String() string {
	switch m {
	case LimiterNormal:
		return "normal"
	case LimiterDisabled:
		return "disabled"
	case LimiterCooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// Transition describes a mode change produced by one Update call.
type Transition struct {
	From LimiterMode
	To   LimiterMode
}

// Changed reports whether the mode actually changed.
func (t Transition) Changed() bool { return t.From != t.To }

// LimiterState is a snapshot of the limiter's internal state.
type LimiterState struct {
	Held              bool
	HeldPrevTick      bool
	OnCooldown        bool
	CooldownRemaining float64
	Mode              LimiterMode
}

// AoALimiter is the hold-to-disable angle-of-attack limiter.
// The zero value is not usable; create one with NewAoALimiter.
type AoALimiter struct {
	maxAoA    float64
	envelope  float64
	strength  float64
	cooldown  float64
	mode      LimiterMode
	held      bool
	heldPrev  bool
	remaining float64
}

// NewAoALimiter creates a limiter in Normal mode for the given profile.
func NewAoALimiter(p config.AerodynamicProfile) *AoALimiter {
	return &AoALimiter{
		maxAoA:   p.MaxAoAWithLimiter,
		envelope: p.MaxAoAWithoutLimiter,
		strength: p.LimiterStrength,
		cooldown: p.CooldownSeconds,
		mode:     LimiterNormal,
	}
}

// Update advances the state machine by one tick with the current hold input.
//
// The cooldown timer runs first. When it expires the limiter returns to
// Normal and the same tick's held input is evaluated, so a hold that was
// kept through the cooldown takes effect without an extra tick of delay.
func (l *AoALimiter) Update(held bool, dt float64) Transition {
	from := l.mode
	l.heldPrev = l.held
	l.held = held

	if l.mode == LimiterCooldown {
		l.remaining -= dt
		if l.remaining > 0 {
			return Transition{From: from, To: l.mode}
		}
		l.remaining = 0
		l.mode = LimiterNormal
	}

	switch l.mode {
	case LimiterNormal:
		if held {
			l.mode = LimiterDisabled
		}
	case LimiterDisabled:
		if !held && l.heldPrev {
			l.startCooldown()
		}
	}
	return Transition{From: from, To: l.mode}
}

func (l *AoALimiter) startCooldown() {
	if l.cooldown <= 0 {
		l.mode = LimiterNormal
		l.remaining = 0
		return
	}
	l.mode = LimiterCooldown
	l.remaining = l.cooldown
}

// Correction returns the signed pitch torque about the body right axis that
// pushes the AoA back under the limit by turning the nose toward the
// velocity vector. A positive torque about right pitches the nose down.
func (l *AoALimiter) Correction(aoa, speed float64) float64 {
	if !l.Active() || speed < LimiterMinSpeed {
		return 0
	}
	excess := math.Abs(aoa) - l.maxAoA
	if excess <= 0 {
		return 0
	}
	sign := 1.0
	if aoa < 0 {
		sign = -1
	}
	return -sign * excess * l.strength
}

// Active reports whether the limiter is enforcing the AoA limit.
func (l *AoALimiter) Active() bool { return l.mode != LimiterDisabled }

// Disabled reports whether the pilot currently holds the override.
func (l *AoALimiter) Disabled() bool { return l.mode == LimiterDisabled }

// Mode returns the current mode.
func (l *AoALimiter) Mode() LimiterMode { return l.mode }

// CooldownRemaining returns the seconds left before the override can be used again.
func (l *AoALimiter) CooldownRemaining() float64 { return l.remaining }

// AoALimit returns the limit in degrees enforced while active.
func (l *AoALimiter) AoALimit() float64 { return l.maxAoA }

// AoACeiling returns the usable AoA in degrees for the current mode: the
// enforced limit while active, the airframe envelope (MaxAoAWithoutLimiter)
// while the limiter is overridden.
func (l *AoALimiter) AoACeiling() float64 {
	if l.mode == LimiterDisabled {
		return l.envelope
	}
	return l.maxAoA
}

// State returns a snapshot of the limiter state.
func (l *AoALimiter) State() LimiterState {
	return LimiterState{
		Held:              l.held,
		HeldPrevTick:      l.heldPrev,
		OnCooldown:        l.mode == LimiterCooldown,
		CooldownRemaining: l.remaining,
		Mode:              l.mode,
	}
}
