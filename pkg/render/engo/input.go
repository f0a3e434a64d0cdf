package engo

import (
	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"

	"github.com/opd-ai/go-aerocontrol/pkg/config"
	"github.com/opd-ai/go-aerocontrol/pkg/engine"
	"github.com/opd-ai/go-aerocontrol/pkg/input"
	"github.com/opd-ai/go-aerocontrol/pkg/physics"
)

// ThrottleRate is the throttle change per second while a throttle key is held.
const ThrottleRate = 0.5

// frameInput is one frame of window input.
type frameInput struct {
	Mouse         physics.Vector2D
	Width, Height float64
	ThrottleUp    bool
	ThrottleDown  bool
	AoAHeld       bool
	Quit          bool
}

// InputSystem turns window mouse motion and keys into pilot inputs and
// drives the session clock once per frame.
type InputSystem struct {
	session *engine.Session
	mapper  *input.CursorMapper
	quit    func()

	size      physics.Vector2D
	lastMouse physics.Vector2D
	haveMouse bool
}

// NewInputSystem creates an input system for session.
func NewInputSystem(session *engine.Session, cursor config.CursorConfig) *InputSystem {
	return &InputSystem{
		session: session,
		mapper:  input.NewCursorMapper(cursor),
		quit:    engo.Exit,
	}
}

// Remove satisfies the ecs.System interface
func (is *InputSystem) Remove(basic ecs.BasicEntity) {}

// Priority runs input before the HUD reads the new state.
func (is *InputSystem) Priority() int { return 20 }

// Update reads engo's input state and applies it.
func (is *InputSystem) Update(dt float32) {
	is.apply(readFrame(), float64(dt))
}

func readFrame() frameInput {
	return frameInput{
		Mouse:        physics.Vector2D{X: float64(engo.Input.Mouse.X), Y: float64(engo.Input.Mouse.Y)},
		Width:        float64(engo.WindowWidth()),
		Height:       float64(engo.WindowHeight()),
		ThrottleUp:   engo.Input.Button("throttleUp").Down(),
		ThrottleDown: engo.Input.Button("throttleDown").Down(),
		AoAHeld:      engo.Input.Button("aoaOverride").Down(),
		Quit:         engo.Input.Button("quit").JustPressed(),
	}
}

func (is *InputSystem) apply(in frameInput, dt float64) {
	if in.Width != is.size.X || in.Height != is.size.Y {
		is.size = physics.Vector2D{X: in.Width, Y: in.Height}
		is.mapper.Init(in.Width, in.Height)
		is.haveMouse = false
	}

	var delta physics.Vector2D
	if is.haveMouse {
		delta = in.Mouse.Sub(is.lastMouse)
	}
	is.lastMouse = in.Mouse
	is.haveMouse = true

	is.mapper.Update(delta, dt)
	is.session.Handoff.Store(is.mapper.Output())

	controls := is.session.Controls
	switch {
	case in.ThrottleUp && !in.ThrottleDown:
		controls.AdjustThrottle(ThrottleRate * dt)
	case in.ThrottleDown && !in.ThrottleUp:
		controls.AdjustThrottle(-ThrottleRate * dt)
	}
	controls.SetAoAHeld(in.AoAHeld)

	if in.Quit && is.quit != nil {
		is.quit()
	}
	is.session.Advance(dt)
}

// Cursor returns the virtual stick state.
func (is *InputSystem) Cursor() input.CursorState { return is.mapper.State() }

// SetupInputBindings registers the flight key bindings.
func SetupInputBindings() {
	engo.Input.RegisterButton("throttleUp", engo.KeyW, engo.KeyArrowUp)
	engo.Input.RegisterButton("throttleDown", engo.KeyS, engo.KeyArrowDown)
	engo.Input.RegisterButton("aoaOverride", engo.KeySpace)
	engo.Input.RegisterButton("quit", engo.KeyEscape)
}
